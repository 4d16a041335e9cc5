package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/journal"
)

// ColdDrain turns queued candidates into approvals, a few per run.
type ColdDrain struct {
	queue     *Queue
	rewriter  *Rewriter
	images    *ImageChain
	approvals *Approvals
	notifier  *Notifier
	journal   *journal.Journal
	logger    *slog.Logger
	batch     int
}

// NewColdDrain drains up to batch candidates per run.
func NewColdDrain(q *Queue, rw *Rewriter, img *ImageChain, ap *Approvals, n *Notifier, j *journal.Journal, logger *slog.Logger, batch int) *ColdDrain {
	if batch < 1 {
		batch = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ColdDrain{queue: q, rewriter: rw, images: img, approvals: ap, notifier: n, journal: j, logger: logger, batch: batch}
}

// Run stops at the first failure so a requeued candidate is not claimed again in the same run.
func (d *ColdDrain) Run(ctx context.Context) (int, error) {
	drafted := 0
	for drafted < d.batch {
		ok, err := d.queue.Process(ctx, d.draft)
		if err != nil {
			d.journal.Error(ctx, "drain.failed", "", journal.Fields{"error": err, "raw": RawPayload(err)})
			d.notifier.Notify(ctx, fmt.Sprintf("Cold drain: %d drafted, stopped on error.", drafted))
			return drafted, err
		}
		if !ok {
			break
		}
		drafted++
	}
	if drafted > 0 {
		d.notifier.Notify(ctx, fmt.Sprintf("Cold drain: %d drafted.", drafted))
	}
	return drafted, nil
}

func (d *ColdDrain) draft(ctx context.Context, c domain.Candidate) error {
	draft, err := d.rewriter.Rewrite(ctx, domain.SourceMaterial{
		Title:     c.Title,
		Summary:   c.Summary,
		Content:   string(c.Research),
		Link:      c.SourceURL,
		Territory: c.Territory,
	})
	if err != nil {
		return err
	}
	draft.ImageURL = d.images.Acquire(ctx, "", draft.TitleA, draft.Excerpt)
	_, err = d.approvals.Submit(ctx, draft, domain.ApprovalColdContent, "candidate:"+strconv.FormatInt(c.ID, 10))
	return err
}
