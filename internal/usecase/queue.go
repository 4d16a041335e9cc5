package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/journal"
	"EditorialDesk/internal/ports"
)

// Queue is the cold-content backlog.
type Queue struct {
	repo    ports.CandidateRepository
	journal *journal.Journal
	logger  *slog.Logger
}

// NewQueue wraps the candidate repository.
func NewQueue(repo ports.CandidateRepository, j *journal.Journal, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{repo: repo, journal: j, logger: logger}
}

// Enqueue stores a new pending candidate.
func (q *Queue) Enqueue(ctx context.Context, c domain.Candidate) (int64, error) {
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		return 0, domain.ErrEmptyTitle
	}
	c.Status = domain.CandidatePending
	id, err := q.repo.Insert(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("enqueue candidate: %w", err)
	}
	q.journal.Info(ctx, "candidate.enqueued", strconv.FormatInt(id, 10), journal.Fields{"title": c.Title})
	return id, nil
}

// ClaimNext flips the next pending candidate to processing.
func (q *Queue) ClaimNext(ctx context.Context) (domain.Candidate, bool, error) {
	c, ok, err := q.repo.Claim(ctx)
	if err != nil {
		return domain.Candidate{}, false, fmt.Errorf("claim candidate: %w", err)
	}
	return c, ok, nil
}

// Complete marks a processing candidate done.
func (q *Queue) Complete(ctx context.Context, id int64) error {
	return q.move(ctx, id, domain.CandidateProcessing, domain.CandidateDone)
}

// Requeue returns a processing candidate to pending.
func (q *Queue) Requeue(ctx context.Context, id int64) error {
	return q.move(ctx, id, domain.CandidateProcessing, domain.CandidatePending)
}

// Discard drops a candidate from the backlog, whether pending or processing.
func (q *Queue) Discard(ctx context.Context, id int64) error {
	c, err := q.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("discard candidate %d: %w", id, err)
	}
	return q.move(ctx, id, c.Status, domain.CandidateDiscarded)
}

func (q *Queue) move(ctx context.Context, id int64, from, to domain.CandidateStatus) error {
	if err := q.repo.SetStatus(ctx, id, from, to); err != nil {
		return fmt.Errorf("candidate %d %s -> %s: %w", id, from, to, err)
	}
	return nil
}

// Process claims one candidate and runs fn on it. The candidate is completed
// when fn succeeds and requeued when fn fails or panics. ok is false when the
// queue was empty.
func (q *Queue) Process(ctx context.Context, fn func(context.Context, domain.Candidate) error) (ok bool, err error) {
	c, ok, err := q.ClaimNext(ctx)
	if err != nil || !ok {
		return false, err
	}

	subject := strconv.FormatInt(c.ID, 10)
	defer func() {
		cleanup := context.WithoutCancel(ctx)
		if r := recover(); r != nil {
			err = fmt.Errorf("process candidate %d: panic: %v", c.ID, r)
		}
		if err != nil {
			if rqErr := q.Requeue(cleanup, c.ID); rqErr != nil {
				q.logger.Error("requeue failed", "candidate", c.ID, "error", rqErr)
				err = errors.Join(err, rqErr)
			}
			q.journal.Warn(cleanup, "candidate.requeued", subject, journal.Fields{"error": err.Error()})
			return
		}
		if cErr := q.Complete(cleanup, c.ID); cErr != nil {
			err = cErr
			return
		}
		q.journal.Info(cleanup, "candidate.done", subject, nil)
	}()

	return true, fn(ctx, c)
}

// List returns one page of candidates.
func (q *Queue) List(ctx context.Context, f domain.CandidateFilter) ([]domain.Candidate, error) {
	return q.repo.List(ctx, f.Normalize())
}

// Count mirrors List's filters.
func (q *Queue) Count(ctx context.Context, f domain.CandidateFilter) (int64, error) {
	return q.repo.Count(ctx, f)
}
