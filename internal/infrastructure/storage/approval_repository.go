package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

var approvalColumns = []string{
	"id", "type", "source_ref", "title_a", "title_b", "excerpt", "body", "image_url",
	"tags", "categories", "message_id", "status", "resolved_title", "post_id",
	"created_at", "resolved_at",
}

// ApprovalRepository persists pending approvals and guards their state machine.
type ApprovalRepository struct {
	db *DB
}

var _ ports.ApprovalRepository = (*ApprovalRepository)(nil)

// NewApprovalRepository wires the repository to a database.
func NewApprovalRepository(db *DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// Insert stores a new record; the status is always pending.
func (r *ApprovalRepository) Insert(ctx context.Context, a domain.Approval) (int64, error) {
	if a.TitleA == "" {
		return 0, domain.ErrEmptyTitle
	}
	tags, err := encodeList(a.Tags)
	if err != nil {
		return 0, err
	}
	categories, err := encodeList(a.Categories)
	if err != nil {
		return 0, err
	}

	id, err := r.db.insertReturningID(ctx, r.db.sb.Insert("approvals").
		Columns("type", "source_ref", "title_a", "title_b", "excerpt", "body", "image_url",
			"tags", "categories", "status", "created_at").
		Values(string(a.Type), a.SourceRef, a.TitleA, a.TitleB, a.Excerpt, a.Body, a.ImageURL,
			tags, categories, string(domain.ApprovalPending), unixNano(r.db.now())))
	if err != nil {
		return 0, fmt.Errorf("insert approval: %w", err)
	}
	return id, nil
}

// Get loads an approval by id.
func (r *ApprovalRepository) Get(ctx context.Context, id int64) (domain.Approval, error) {
	row, err := r.db.queryRow(ctx, r.db.sb.Select(approvalColumns...).From("approvals").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.Approval{}, err
	}
	a, err := scanApproval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Approval{}, fmt.Errorf("approval %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Approval{}, fmt.Errorf("get approval %d: %w", id, err)
	}
	return a, nil
}

// SetMessageID stores the chat message rendering the record.
func (r *ApprovalRepository) SetMessageID(ctx context.Context, id int64, messageID int) error {
	if _, err := r.db.exec(ctx, r.db.sb.Update("approvals").
		Set("message_id", messageID).
		Where(sq.Eq{"id": id})); err != nil {
		return fmt.Errorf("set approval %d message: %w", id, err)
	}
	return nil
}

// Transition moves the record from exactly `from` to `to`, applying change in the same write.
func (r *ApprovalRepository) Transition(ctx context.Context, id int64, from, to domain.ApprovalStatus, change domain.ApprovalChange) error {
	if err := domain.CheckApprovalTransition(from, to); err != nil {
		return err
	}

	q := r.db.sb.Update("approvals").
		Set("status", string(to)).
		Where(sq.Eq{"id": id, "status": string(from)})
	if change.ResolvedTitle != nil {
		q = q.Set("resolved_title", *change.ResolvedTitle)
	}
	if change.ResolvedAt != nil {
		q = q.Set("resolved_at", unixNano(*change.ResolvedAt))
	}
	if change.PostID != nil {
		q = q.Set("post_id", *change.PostID)
	}

	n, err := r.db.exec(ctx, q)
	if err != nil {
		return fmt.Errorf("transition approval %d: %w", id, err)
	}
	if n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("approval %d not %s: %w", id, from, domain.ErrStaleStatus)
	}
	return nil
}

// AttachPost sets post_id on an approved record that has none yet.
func (r *ApprovalRepository) AttachPost(ctx context.Context, id int64, postID int64) error {
	n, err := r.db.exec(ctx, r.db.sb.Update("approvals").
		Set("post_id", postID).
		Where(sq.Eq{
			"id":      id,
			"post_id": 0,
			"status":  []string{string(domain.ApprovalApprovedA), string(domain.ApprovalApprovedB)},
		}))
	if err != nil {
		return fmt.Errorf("attach post to approval %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("approval %d already has a post: %w", id, domain.ErrStaleStatus)
	}
	return nil
}

// UpdateDraft rewrites excerpt and body; only pending records are editable.
func (r *ApprovalRepository) UpdateDraft(ctx context.Context, id int64, excerpt, body string) error {
	n, err := r.db.exec(ctx, r.db.sb.Update("approvals").
		Set("excerpt", excerpt).
		Set("body", body).
		Where(sq.Eq{"id": id, "status": string(domain.ApprovalPending)}))
	if err != nil {
		return fmt.Errorf("update approval %d draft: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("approval %d not editable: %w", id, domain.ErrStaleStatus)
	}
	return nil
}

// ListByStatus returns the oldest records in a status.
func (r *ApprovalRepository) ListByStatus(ctx context.Context, status domain.ApprovalStatus, limit int) ([]domain.Approval, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.query(ctx, r.db.sb.Select(approvalColumns...).From("approvals").
		Where(sq.Eq{"status": string(status)}).
		OrderBy("created_at ASC", "id ASC").
		Limit(uint64(limit)))
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var out []domain.Approval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// CountByStatusSince aggregates records created after since.
func (r *ApprovalRepository) CountByStatusSince(ctx context.Context, since time.Time) (map[domain.ApprovalStatus]int64, error) {
	rows, err := r.db.query(ctx, r.db.sb.Select("status", "COUNT(*)").From("approvals").
		Where(sq.GtOrEq{"created_at": unixNano(since)}).
		GroupBy("status"))
	if err != nil {
		return nil, fmt.Errorf("count approvals: %w", err)
	}
	defer rows.Close()

	out := map[domain.ApprovalStatus]int64{}
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan approval count: %w", err)
		}
		out[domain.ApprovalStatus(status)] = n
	}
	return out, rows.Err()
}

func scanApproval(row rowScanner) (domain.Approval, error) {
	var (
		a                domain.Approval
		kind, status     string
		tags, categories string
		createdAt        int64
		resolvedAt       sql.NullInt64
	)
	if err := row.Scan(&a.ID, &kind, &a.SourceRef, &a.TitleA, &a.TitleB, &a.Excerpt, &a.Body, &a.ImageURL,
		&tags, &categories, &a.MessageID, &status, &a.ResolvedTitle, &a.PostID, &createdAt, &resolvedAt); err != nil {
		return domain.Approval{}, err
	}
	a.Type = domain.ApprovalType(kind)
	a.Status = domain.ApprovalStatus(status)
	a.CreatedAt = fromUnixNano(createdAt)
	if resolvedAt.Valid && resolvedAt.Int64 != 0 {
		t := fromUnixNano(resolvedAt.Int64)
		a.ResolvedAt = &t
	}
	var err error
	if a.Tags, err = decodeList(tags); err != nil {
		return domain.Approval{}, fmt.Errorf("decode tags: %w", err)
	}
	if a.Categories, err = decodeList(categories); err != nil {
		return domain.Approval{}, fmt.Errorf("decode categories: %w", err)
	}
	return a, nil
}

func encodeList(values []string) (string, error) {
	if len(values) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(raw), nil
}

func decodeList(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}
