package domain

import (
	"encoding/json"
	"time"
)

// Level is the journal severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warning"
	LevelError Level = "error"
)

// JournalEntry is one append-only event log row.
type JournalEntry struct {
	ID        int64
	Level     Level
	Event     string
	SubjectID string
	Context   json.RawMessage
	CreatedAt time.Time
}

// JournalQuery paginates journal reads.
type JournalQuery struct {
	Level   Level
	Page    int
	PerPage int
}
