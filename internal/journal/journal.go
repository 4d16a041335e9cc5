// Package journal records domain events in the process log and the persistent event journal.
package journal

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

// Fields is the free-form context attached to an entry.
type Fields map[string]any

// Journal writes every event to slog and, when a repository is wired, to the journal table.
// A nil *Journal is valid and drops everything.
type Journal struct {
	repo   ports.JournalRepository
	logger *slog.Logger
	now    func() time.Time
}

// New builds a journal; repo may be nil for log-only operation.
func New(repo ports.JournalRepository, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{repo: repo, logger: logger, now: time.Now}
}

// Debug records a debug event.
func (j *Journal) Debug(ctx context.Context, event, subject string, f Fields) {
	j.Record(ctx, domain.LevelDebug, event, subject, f)
}

// Info records an informational event.
func (j *Journal) Info(ctx context.Context, event, subject string, f Fields) {
	j.Record(ctx, domain.LevelInfo, event, subject, f)
}

// Warn records a warning.
func (j *Journal) Warn(ctx context.Context, event, subject string, f Fields) {
	j.Record(ctx, domain.LevelWarn, event, subject, f)
}

// Error records an error event.
func (j *Journal) Error(ctx context.Context, event, subject string, f Fields) {
	j.Record(ctx, domain.LevelError, event, subject, f)
}

// Record writes the entry; persistence failures are logged and swallowed.
func (j *Journal) Record(ctx context.Context, level domain.Level, event, subject string, f Fields) {
	if j == nil {
		return
	}

	attrs := make([]any, 0, 2+len(f)*2)
	if subject != "" {
		attrs = append(attrs, "subject", subject)
	}
	for k, v := range f {
		if err, ok := v.(error); ok {
			v = err.Error()
			f[k] = v
		}
		attrs = append(attrs, k, v)
	}
	j.logger.Log(ctx, slogLevel(level), event, attrs...)

	if j.repo == nil {
		return
	}

	var payload json.RawMessage
	if len(f) > 0 {
		raw, err := json.Marshal(f)
		if err != nil {
			j.logger.Warn("journal context not serializable", "event", event, "error", err)
		} else {
			payload = raw
		}
	}

	err := j.repo.Append(context.WithoutCancel(ctx), domain.JournalEntry{
		Level:     level,
		Event:     event,
		SubjectID: subject,
		Context:   payload,
		CreatedAt: j.now(),
	})
	if err != nil {
		j.logger.Warn("journal append failed", "event", event, "error", err)
	}
}

// Prune deletes entries older than the given age.
func (j *Journal) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if j == nil || j.repo == nil {
		return 0, nil
	}
	return j.repo.PruneOlderThan(ctx, j.now().Add(-olderThan))
}

// CountByLevel aggregates entries recorded after since.
func (j *Journal) CountByLevel(ctx context.Context, since time.Time) (map[domain.Level]int64, error) {
	if j == nil || j.repo == nil {
		return map[domain.Level]int64{}, nil
	}
	return j.repo.CountByLevel(ctx, since)
}

// List returns a page of entries and the total count.
func (j *Journal) List(ctx context.Context, q domain.JournalQuery) ([]domain.JournalEntry, int64, error) {
	if j == nil || j.repo == nil {
		return nil, 0, nil
	}
	return j.repo.List(ctx, q)
}

func slogLevel(l domain.Level) slog.Level {
	switch l {
	case domain.LevelError:
		return slog.LevelError
	case domain.LevelWarn:
		return slog.LevelWarn
	case domain.LevelDebug:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
