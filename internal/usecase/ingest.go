package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/journal"
	"EditorialDesk/internal/ports"
)

// IngestReport counts one ingestion pass.
type IngestReport struct {
	Fetched  int
	Inserted int
}

// Ingestor pulls every feed and stores unseen items.
type Ingestor struct {
	source  ports.FeedSource
	feeds   ports.FeedRepository
	journal *journal.Journal
	logger  *slog.Logger
	now     func() time.Time
}

// NewIngestor wires the feed source and repository.
func NewIngestor(source ports.FeedSource, feeds ports.FeedRepository, j *journal.Journal, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{source: source, feeds: feeds, journal: j, logger: logger, now: time.Now}
}

// Ingest fetches and deduplicates by guid. Items already seen are skipped.
func (i *Ingestor) Ingest(ctx context.Context) (IngestReport, error) {
	if i.source == nil {
		return IngestReport{}, nil
	}
	items, err := i.source.FetchAll(ctx)
	if err != nil && len(items) == 0 {
		return IngestReport{}, fmt.Errorf("fetch feeds: %w", err)
	}

	rep := IngestReport{Fetched: len(items)}
	now := i.now()
	for _, item := range items {
		if item.GUID == "" {
			item.GUID = item.Link
		}
		if item.GUID == "" || item.Title == "" {
			continue
		}
		item.Status = domain.FeedItemNew
		if item.FetchedAt.IsZero() {
			item.FetchedAt = now
		}
		if item.PublishedAt.IsZero() {
			item.PublishedAt = now
		}
		inserted, err := i.feeds.InsertIfAbsent(ctx, item)
		if err != nil {
			return rep, fmt.Errorf("store feed item %s: %w", item.GUID, err)
		}
		if inserted {
			rep.Inserted++
		}
	}

	i.journal.Info(ctx, "feeds.ingested", "", journal.Fields{"fetched": rep.Fetched, "inserted": rep.Inserted})
	return rep, nil
}
