package domain

import (
	"encoding/json"
	"time"
)

// CandidateStatus enumerates the topic bank lifecycle.
type CandidateStatus string

const (
	CandidatePending    CandidateStatus = "pending"
	CandidateProcessing CandidateStatus = "processing"
	CandidateDone       CandidateStatus = "done"
	CandidateDiscarded  CandidateStatus = "discarded"
)

// Valid reports whether s is one of the known statuses.
func (s CandidateStatus) Valid() bool {
	switch s {
	case CandidatePending, CandidateProcessing, CandidateDone, CandidateDiscarded:
		return true
	}
	return false
}

// Candidate is a story idea waiting in the cold-content queue.
type Candidate struct {
	ID        int64
	Title     string
	Summary   string
	Territory string
	SourceURL string
	// Priority orders the queue; lower values are drained first.
	Priority  int
	Status    CandidateStatus
	Research  json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CandidateFilter narrows queue listings and counts.
type CandidateFilter struct {
	Status  CandidateStatus
	Search  string
	Page    int
	PerPage int
}

// Normalize clamps pagination to sane bounds.
func (f CandidateFilter) Normalize() CandidateFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage <= 0 {
		f.PerPage = 20
	}
	if f.PerPage > 100 {
		f.PerPage = 100
	}
	return f
}

// Offset returns the row offset for the current page.
func (f CandidateFilter) Offset() uint64 {
	n := f.Normalize()
	return uint64((n.Page - 1) * n.PerPage)
}
