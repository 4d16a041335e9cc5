package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"EditorialDesk/internal/config"
	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/journal"
	"EditorialDesk/internal/ports"
)

// DailyDeps wires the daily rewrite run.
type DailyDeps struct {
	Ingestor  *Ingestor
	Scorer    *Scorer
	Rewriter  *Rewriter
	Images    *ImageChain
	Approvals *Approvals
	Feeds     ports.FeedRepository
	Journal   *journal.Journal
	Notifier  *Notifier
	Retention config.RetentionConfig
	Logger    *slog.Logger
}

// DailyReport counts one daily run.
type DailyReport struct {
	Ingest   IngestReport
	Selected int
	Drafted  int
	Failed   int
	Purged   int64
}

// DailyRewrite ingests feeds, picks the best fresh items and turns each into an approval.
type DailyRewrite struct {
	deps DailyDeps
	now  func() time.Time
}

// NewDailyRewrite builds the job.
func NewDailyRewrite(deps DailyDeps) *DailyRewrite {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &DailyRewrite{deps: deps, now: time.Now}
}

// Run executes one pass. A failed rewrite leaves its item unused for the next run.
func (d *DailyRewrite) Run(ctx context.Context) (DailyReport, error) {
	var rep DailyReport
	log := d.deps.Logger

	if d.deps.Ingestor != nil {
		ing, err := d.deps.Ingestor.Ingest(ctx)
		if err != nil {
			log.WarnContext(ctx, "ingestion failed, scoring stored items", "error", err)
		}
		rep.Ingest = ing
	}

	selected, err := d.deps.Scorer.Select(ctx)
	if err != nil {
		return rep, err
	}
	rep.Selected = len(selected)

	for _, s := range selected {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err := d.draft(ctx, s.Item); err != nil {
			rep.Failed++
			d.deps.Journal.Error(ctx, "daily.rewrite_failed", strconv.FormatInt(s.Item.ID, 10), journal.Fields{
				"title": s.Item.Title,
				"error": err,
				"raw":   RawPayload(err),
			})
			continue
		}
		rep.Drafted++
	}

	rep.Purged = d.sweep(ctx)
	d.deps.Notifier.Notify(ctx, fmt.Sprintf("Daily run: %d selected, %d drafted, %d failed.", rep.Selected, rep.Drafted, rep.Failed))
	return rep, nil
}

func (d *DailyRewrite) draft(ctx context.Context, item domain.FeedItem) error {
	draft, err := d.deps.Rewriter.Rewrite(ctx, domain.SourceMaterial{
		Title:     item.Title,
		Summary:   item.Excerpt,
		Link:      item.Link,
		ImageURL:  item.ImageURL,
		Territory: item.Territory,
	})
	if err != nil {
		return err
	}
	draft.ImageURL = d.deps.Images.Acquire(ctx, item.ImageURL, draft.TitleA, draft.Excerpt)
	if _, err := d.deps.Approvals.Submit(ctx, draft, domain.ApprovalDailyRSS, item.Link); err != nil {
		return err
	}
	return d.deps.Feeds.MarkUsed(ctx, item.ID)
}

// sweep drops old feed items and journal rows.
func (d *DailyRewrite) sweep(ctx context.Context) int64 {
	var purged int64
	if days := d.deps.Retention.FeedDays; days > 0 && d.deps.Feeds != nil {
		n, err := d.deps.Feeds.PurgeOlderThan(ctx, d.now().AddDate(0, 0, -days))
		if err != nil {
			d.deps.Logger.WarnContext(ctx, "feed retention sweep failed", "error", err)
		}
		purged = n
	}
	if days := d.deps.Retention.LogDays; days > 0 {
		if _, err := d.deps.Journal.Prune(ctx, time.Duration(days)*24*time.Hour); err != nil {
			d.deps.Logger.WarnContext(ctx, "journal prune failed", "error", err)
		}
	}
	return purged
}
