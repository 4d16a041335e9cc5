package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/logging"
)

func TestQueueEnqueueRejectsEmptyTitle(t *testing.T) {
	t.Parallel()

	q := NewQueue(newFakeCandidates(), nil, logging.Discard())
	_, err := q.Enqueue(context.Background(), domain.Candidate{Title: "   "})
	assert.ErrorIs(t, err, domain.ErrEmptyTitle)
}

func TestQueueProcessCompletesOnSuccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newFakeCandidates()
	q := NewQueue(repo, nil, logging.Discard())
	id, err := q.Enqueue(ctx, domain.Candidate{Title: "Tram line extension"})
	require.NoError(t, err)

	ok, err := q.Process(ctx, func(_ context.Context, c domain.Candidate) error {
		assert.Equal(t, domain.CandidateProcessing, c.Status)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.CandidateDone, repo.status(id))
}

func TestQueueProcessRequeuesOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newFakeCandidates()
	q := NewQueue(repo, nil, logging.Discard())
	id, _ := q.Enqueue(ctx, domain.Candidate{Title: "Rewrite will fail"})

	boom := errors.New("completion timeout")
	ok, err := q.Process(ctx, func(context.Context, domain.Candidate) error { return boom })
	assert.True(t, ok)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, domain.CandidatePending, repo.status(id))
}

func TestQueueProcessRequeuesOnPanic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newFakeCandidates()
	q := NewQueue(repo, nil, logging.Discard())
	id, _ := q.Enqueue(ctx, domain.Candidate{Title: "Panicking worker"})

	ok, err := q.Process(ctx, func(context.Context, domain.Candidate) error { panic("nil map") })
	assert.True(t, ok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.Equal(t, domain.CandidatePending, repo.status(id))
}

func TestQueueProcessRequeuesWhenContextCancelled(t *testing.T) {
	t.Parallel()

	repo := newFakeCandidates()
	q := NewQueue(repo, nil, logging.Discard())
	id, _ := q.Enqueue(context.Background(), domain.Candidate{Title: "Shutdown mid-run"})

	ctx, cancel := context.WithCancel(context.Background())
	_, err := q.Process(ctx, func(ctx context.Context, _ domain.Candidate) error {
		cancel()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.CandidatePending, repo.status(id))
}

func TestQueueProcessEmpty(t *testing.T) {
	t.Parallel()

	q := NewQueue(newFakeCandidates(), nil, logging.Discard())
	ok, err := q.Process(context.Background(), func(context.Context, domain.Candidate) error {
		t.Fatal("fn called on empty queue")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueueDiscardPending(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newFakeCandidates()
	q := NewQueue(repo, nil, logging.Discard())
	id, _ := q.Enqueue(ctx, domain.Candidate{Title: "Stale idea"})

	require.NoError(t, q.Discard(ctx, id))
	assert.Equal(t, domain.CandidateDiscarded, repo.status(id))
	assert.ErrorIs(t, q.Complete(ctx, id), domain.ErrIllegalTransition)
}
