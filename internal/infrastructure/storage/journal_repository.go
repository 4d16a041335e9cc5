package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

// JournalRepository stores the structured event log.
type JournalRepository struct {
	db *DB
}

var _ ports.JournalRepository = (*JournalRepository)(nil)

// NewJournalRepository wires the repository to a database.
func NewJournalRepository(db *DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// Append writes one entry.
func (r *JournalRepository) Append(ctx context.Context, e domain.JournalEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.db.now()
	}
	var payload any
	if len(e.Context) > 0 {
		payload = string(e.Context)
	}
	if _, err := r.db.exec(ctx, r.db.sb.Insert("journal").
		Columns("level", "event", "subject_id", "context", "created_at").
		Values(string(e.Level), e.Event, e.SubjectID, payload, unixNano(e.CreatedAt))); err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}

// List returns a page of entries, newest first, with the total matching count.
func (r *JournalRepository) List(ctx context.Context, q domain.JournalQuery) ([]domain.JournalEntry, int64, error) {
	page, perPage := q.Page, q.PerPage
	if page < 1 {
		page = 1
	}
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	filter := func(b sq.SelectBuilder) sq.SelectBuilder {
		if q.Level != "" {
			return b.Where(sq.Eq{"level": string(q.Level)})
		}
		return b
	}

	total, err := r.db.count(ctx, filter(r.db.sb.Select("COUNT(*)").From("journal")))
	if err != nil {
		return nil, 0, fmt.Errorf("count journal: %w", err)
	}

	rows, err := r.db.query(ctx, filter(r.db.sb.Select("id", "level", "event", "subject_id", "context", "created_at").From("journal")).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(perPage)).
		Offset(uint64((page-1)*perPage)))
	if err != nil {
		return nil, 0, fmt.Errorf("list journal: %w", err)
	}
	defer rows.Close()

	var out []domain.JournalEntry
	for rows.Next() {
		var (
			e         domain.JournalEntry
			level     string
			payload   sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &level, &e.Event, &e.SubjectID, &payload, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("scan journal: %w", err)
		}
		e.Level = domain.Level(level)
		if payload.Valid && payload.String != "" {
			e.Context = []byte(payload.String)
		}
		e.CreatedAt = fromUnixNano(createdAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration: %w", err)
	}
	return out, total, nil
}

// PruneOlderThan deletes entries created before cutoff.
func (r *JournalRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := r.db.exec(ctx, r.db.sb.Delete("journal").Where(sq.Lt{"created_at": unixNano(cutoff)}))
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return n, nil
}

// CountByLevel aggregates entries created after since.
func (r *JournalRepository) CountByLevel(ctx context.Context, since time.Time) (map[domain.Level]int64, error) {
	rows, err := r.db.query(ctx, r.db.sb.Select("level", "COUNT(*)").From("journal").
		Where(sq.GtOrEq{"created_at": unixNano(since)}).
		GroupBy("level"))
	if err != nil {
		return nil, fmt.Errorf("count journal levels: %w", err)
	}
	defer rows.Close()

	out := map[domain.Level]int64{}
	for rows.Next() {
		var (
			level string
			n     int64
		)
		if err := rows.Scan(&level, &n); err != nil {
			return nil, fmt.Errorf("scan level count: %w", err)
		}
		out[domain.Level(level)] = n
	}
	return out, rows.Err()
}
