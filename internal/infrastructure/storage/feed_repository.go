package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

var feedColumns = []string{
	"id", "feed_id", "guid", "title", "excerpt", "link", "image_url",
	"territory", "published_at", "fetched_at", "status",
}

// FeedRepository persists ingested feed items keyed by guid.
type FeedRepository struct {
	db *DB
}

var _ ports.FeedRepository = (*FeedRepository)(nil)

// NewFeedRepository wires the repository to a database.
func NewFeedRepository(db *DB) *FeedRepository {
	return &FeedRepository{db: db}
}

// InsertIfAbsent stores the item unless its guid already exists; inserted is false for duplicates.
func (r *FeedRepository) InsertIfAbsent(ctx context.Context, item domain.FeedItem) (bool, error) {
	if item.GUID == "" {
		item.GUID = item.Link
	}
	if item.GUID == "" {
		return false, fmt.Errorf("feed item %q has no guid", item.Title)
	}
	if item.FetchedAt.IsZero() {
		item.FetchedAt = r.db.now()
	}
	if item.PublishedAt.IsZero() {
		item.PublishedAt = item.FetchedAt
	}
	if item.Status == "" {
		item.Status = domain.FeedItemNew
	}

	n, err := r.db.exec(ctx, r.db.sb.Insert("feed_items").
		Columns("feed_id", "guid", "title", "excerpt", "link", "image_url", "territory", "published_at", "fetched_at", "status").
		Values(item.FeedID, item.GUID, item.Title, item.Excerpt, item.Link, item.ImageURL, item.Territory,
			unixNano(item.PublishedAt), unixNano(item.FetchedAt), string(item.Status)).
		Suffix("ON CONFLICT (guid) DO NOTHING"))
	if err != nil {
		return false, fmt.Errorf("insert feed item %s: %w", item.GUID, err)
	}
	return n > 0, nil
}

// Window returns items published since w.Since in fetch order.
func (r *FeedRepository) Window(ctx context.Context, w domain.FeedItemWindow) ([]domain.FeedItem, error) {
	q := r.db.sb.Select(feedColumns...).From("feed_items").
		Where(sq.GtOrEq{"published_at": unixNano(w.Since)}).
		OrderBy("id ASC")
	if w.Territory != "" {
		q = q.Where(sq.Eq{"territory": w.Territory})
	}
	if w.Status != "" {
		q = q.Where(sq.Eq{"status": string(w.Status)})
	}

	rows, err := r.db.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("feed window: %w", err)
	}
	defer rows.Close()

	var out []domain.FeedItem
	for rows.Next() {
		var (
			item               domain.FeedItem
			status             string
			published, fetched int64
		)
		if err := rows.Scan(&item.ID, &item.FeedID, &item.GUID, &item.Title, &item.Excerpt, &item.Link,
			&item.ImageURL, &item.Territory, &published, &fetched, &status); err != nil {
			return nil, fmt.Errorf("scan feed item: %w", err)
		}
		item.PublishedAt = fromUnixNano(published)
		item.FetchedAt = fromUnixNano(fetched)
		item.Status = domain.FeedItemStatus(status)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// MarkUsed flags items as consumed by a rewrite batch.
func (r *FeedRepository) MarkUsed(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.db.exec(ctx, r.db.sb.Update("feed_items").
		Set("status", string(domain.FeedItemUsed)).
		Where(sq.Eq{"id": ids})); err != nil {
		return fmt.Errorf("mark feed items used: %w", err)
	}
	return nil
}

// PurgeOlderThan is the retention sweep.
func (r *FeedRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := r.db.exec(ctx, r.db.sb.Delete("feed_items").Where(sq.Lt{"fetched_at": unixNano(cutoff)}))
	if err != nil {
		return 0, fmt.Errorf("purge feed items: %w", err)
	}
	return n, nil
}

// CountSince counts items fetched after since.
func (r *FeedRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	n, err := r.db.count(ctx, r.db.sb.Select("COUNT(*)").From("feed_items").
		Where(sq.GtOrEq{"fetched_at": unixNano(since)}))
	if err != nil {
		return 0, fmt.Errorf("count feed items: %w", err)
	}
	return n, nil
}

// RecentTitles returns the latest fetched titles, newest first.
func (r *FeedRepository) RecentTitles(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.query(ctx, r.db.sb.Select("title").From("feed_items").
		OrderBy("fetched_at DESC", "id DESC").
		Limit(uint64(limit)))
	if err != nil {
		return nil, fmt.Errorf("recent feed titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}
