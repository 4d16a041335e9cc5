package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/journal"
	"EditorialDesk/internal/ports"
)

// StatusReport summarises the desk over a period.
type StatusReport struct {
	Since       time.Time                        `json:"since"`
	Candidates  map[domain.CandidateStatus]int64 `json:"candidates"`
	Approvals   map[domain.ApprovalStatus]int64  `json:"approvals"`
	FeedItems   int64                            `json:"feed_items"`
	Journal     map[domain.Level]int64           `json:"journal"`
	Occurrences []domain.Occurrence              `json:"occurrences,omitempty"`
}

// Reporter gathers counts from every repository.
type Reporter struct {
	candidates ports.CandidateRepository
	approvals  ports.ApprovalRepository
	feeds      ports.FeedRepository
	journal    *journal.Journal
	scheduler  *Scheduler
	now        func() time.Time
}

// NewReporter builds the status usecase; scheduler may be nil.
func NewReporter(c ports.CandidateRepository, a ports.ApprovalRepository, f ports.FeedRepository, j *journal.Journal, s *Scheduler) *Reporter {
	return &Reporter{candidates: c, approvals: a, feeds: f, journal: j, scheduler: s, now: time.Now}
}

// Report counts activity within the trailing period.
func (r *Reporter) Report(ctx context.Context, period time.Duration) (StatusReport, error) {
	since := r.now().Add(-period)
	rep := StatusReport{Since: since, Candidates: map[domain.CandidateStatus]int64{}}

	for _, st := range []domain.CandidateStatus{domain.CandidatePending, domain.CandidateProcessing, domain.CandidateDone, domain.CandidateDiscarded} {
		n, err := r.candidates.Count(ctx, domain.CandidateFilter{Status: st})
		if err != nil {
			return rep, fmt.Errorf("count %s candidates: %w", st, err)
		}
		rep.Candidates[st] = n
	}

	var err error
	if rep.Approvals, err = r.approvals.CountByStatusSince(ctx, since); err != nil {
		return rep, err
	}
	if rep.FeedItems, err = r.feeds.CountSince(ctx, since); err != nil {
		return rep, fmt.Errorf("count feed items: %w", err)
	}
	if rep.Journal, err = r.journal.CountByLevel(ctx, since); err != nil {
		return rep, fmt.Errorf("count journal: %w", err)
	}
	if r.scheduler != nil {
		rep.Occurrences = r.scheduler.Occurrences()
	}
	return rep, nil
}

// Text renders the report for chat.
func (s StatusReport) Text(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Since %s\n", s.Since.In(loc).Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Queue: %d pending, %d processing, %d done\n",
		s.Candidates[domain.CandidatePending], s.Candidates[domain.CandidateProcessing], s.Candidates[domain.CandidateDone])
	fmt.Fprintf(&b, "Approvals: %d pending, %d published, %d rejected\n",
		s.Approvals[domain.ApprovalPending], s.Approvals[domain.ApprovalPublished], s.Approvals[domain.ApprovalRejected])
	fmt.Fprintf(&b, "Feed items: %d\n", s.FeedItems)
	fmt.Fprintf(&b, "Errors: %d, warnings: %d\n", s.Journal[domain.LevelError], s.Journal[domain.LevelWarn])

	occ := append([]domain.Occurrence(nil), s.Occurrences...)
	sort.Slice(occ, func(i, j int) bool { return occ[i].FireAt.Before(occ[j].FireAt) })
	for _, o := range occ {
		fmt.Fprintf(&b, "⏰ %s at %s\n", o.Job, o.FireAt.In(loc).Format("Mon 15:04"))
	}
	return strings.TrimRight(b.String(), "\n")
}
