package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

const claimAttempts = 5

var candidateColumns = []string{
	"id", "title", "summary", "territory", "source_url", "priority",
	"status", "research", "created_at", "updated_at",
}

// CandidateRepository persists the cold-content queue.
type CandidateRepository struct {
	db *DB
}

var _ ports.CandidateRepository = (*CandidateRepository)(nil)

// NewCandidateRepository wires the repository to a database.
func NewCandidateRepository(db *DB) *CandidateRepository {
	return &CandidateRepository{db: db}
}

// Insert stores a new candidate in pending state.
func (r *CandidateRepository) Insert(ctx context.Context, c domain.Candidate) (int64, error) {
	if strings.TrimSpace(c.Title) == "" {
		return 0, domain.ErrEmptyTitle
	}
	if c.Status == "" {
		c.Status = domain.CandidatePending
	}
	now := unixNano(r.db.now())

	var research any
	if len(c.Research) > 0 {
		research = string(c.Research)
	}

	id, err := r.db.insertReturningID(ctx, r.db.sb.Insert("candidates").
		Columns("title", "summary", "territory", "source_url", "priority", "status", "research", "created_at", "updated_at").
		Values(strings.TrimSpace(c.Title), c.Summary, c.Territory, c.SourceURL, c.Priority, string(c.Status), research, now, now))
	if err != nil {
		return 0, fmt.Errorf("insert candidate: %w", err)
	}
	return id, nil
}

// Get loads a candidate by id.
func (r *CandidateRepository) Get(ctx context.Context, id int64) (domain.Candidate, error) {
	row, err := r.db.queryRow(ctx, r.db.sb.Select(candidateColumns...).From("candidates").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.Candidate{}, err
	}
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Candidate{}, fmt.Errorf("candidate %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("get candidate %d: %w", id, err)
	}
	return c, nil
}

// Claim picks the next pending candidate by (priority, created_at, id) and flips it to processing.
// The flip is conditional on the row still being pending, so concurrent claimers never share a row.
func (r *CandidateRepository) Claim(ctx context.Context) (domain.Candidate, bool, error) {
	for attempt := 0; attempt < claimAttempts; attempt++ {
		row, err := r.db.queryRow(ctx, r.db.sb.Select("id").From("candidates").
			Where(sq.Eq{"status": string(domain.CandidatePending)}).
			OrderBy("priority ASC", "created_at ASC", "id ASC").
			Limit(1))
		if err != nil {
			return domain.Candidate{}, false, err
		}

		var id int64
		if err := row.Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.Candidate{}, false, nil
			}
			return domain.Candidate{}, false, fmt.Errorf("claim candidate: %w", err)
		}

		n, err := r.db.exec(ctx, r.db.sb.Update("candidates").
			Set("status", string(domain.CandidateProcessing)).
			Set("updated_at", unixNano(r.db.now())).
			Where(sq.Eq{"id": id, "status": string(domain.CandidatePending)}))
		if err != nil {
			return domain.Candidate{}, false, fmt.Errorf("claim candidate %d: %w", id, err)
		}
		if n == 0 {
			continue
		}

		c, err := r.Get(ctx, id)
		if err != nil {
			return domain.Candidate{}, false, err
		}
		return c, true, nil
	}
	return domain.Candidate{}, false, fmt.Errorf("claim candidate: %w", domain.ErrStaleStatus)
}

// SetStatus moves a candidate from exactly `from` to `to`.
func (r *CandidateRepository) SetStatus(ctx context.Context, id int64, from, to domain.CandidateStatus) error {
	if err := domain.CheckCandidateTransition(from, to); err != nil {
		return err
	}
	n, err := r.db.exec(ctx, r.db.sb.Update("candidates").
		Set("status", string(to)).
		Set("updated_at", unixNano(r.db.now())).
		Where(sq.Eq{"id": id, "status": string(from)}))
	if err != nil {
		return fmt.Errorf("set candidate %d status: %w", id, err)
	}
	if n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("candidate %d not %s: %w", id, from, domain.ErrStaleStatus)
	}
	return nil
}

// List returns candidates matching the filter in queue order.
func (r *CandidateRepository) List(ctx context.Context, f domain.CandidateFilter) ([]domain.Candidate, error) {
	f = f.Normalize()
	q := applyCandidateFilter(r.db.sb.Select(candidateColumns...).From("candidates"), f).
		OrderBy("priority ASC", "created_at ASC", "id ASC").
		Limit(uint64(f.PerPage)).
		Offset(f.Offset())

	rows, err := r.db.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []domain.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// Count mirrors List filters without pagination.
func (r *CandidateRepository) Count(ctx context.Context, f domain.CandidateFilter) (int64, error) {
	n, err := r.db.count(ctx, applyCandidateFilter(r.db.sb.Select("COUNT(*)").From("candidates"), f))
	if err != nil {
		return 0, fmt.Errorf("count candidates: %w", err)
	}
	return n, nil
}

// ExistsTitle reports whether a candidate with the same title (case-insensitive) exists.
func (r *CandidateRepository) ExistsTitle(ctx context.Context, title string) (bool, error) {
	n, err := r.db.count(ctx, r.db.sb.Select("COUNT(*)").From("candidates").
		Where(sq.Expr("LOWER(title) = ?", strings.ToLower(strings.TrimSpace(title)))))
	if err != nil {
		return false, fmt.Errorf("lookup candidate title: %w", err)
	}
	return n > 0, nil
}

func applyCandidateFilter(q sq.SelectBuilder, f domain.CandidateFilter) sq.SelectBuilder {
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": string(f.Status)})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		q = q.Where(sq.Or{
			sq.Expr("LOWER(title) LIKE ?", pattern),
			sq.Expr("LOWER(summary) LIKE ?", pattern),
		})
	}
	return q
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (domain.Candidate, error) {
	var (
		c                  domain.Candidate
		status             string
		research           sql.NullString
		createdAt, updated int64
	)
	if err := row.Scan(&c.ID, &c.Title, &c.Summary, &c.Territory, &c.SourceURL, &c.Priority,
		&status, &research, &createdAt, &updated); err != nil {
		return domain.Candidate{}, err
	}
	c.Status = domain.CandidateStatus(status)
	if research.Valid && research.String != "" {
		c.Research = []byte(research.String)
	}
	c.CreatedAt = fromUnixNano(createdAt)
	c.UpdatedAt = fromUnixNano(updated)
	return c, nil
}
