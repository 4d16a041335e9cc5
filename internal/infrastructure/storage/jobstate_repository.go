package storage

import (
	"context"
	"fmt"
	"time"

	"EditorialDesk/internal/ports"
)

// JobStateRepository remembers the last run of every scheduled job.
type JobStateRepository struct {
	db *DB
}

var _ ports.JobStateRepository = (*JobStateRepository)(nil)

// NewJobStateRepository wires the repository to a database.
func NewJobStateRepository(db *DB) *JobStateRepository {
	return &JobStateRepository{db: db}
}

// RecordRun upserts the last-run timestamp.
func (r *JobStateRepository) RecordRun(ctx context.Context, job string, at time.Time) error {
	if _, err := r.db.exec(ctx, r.db.sb.Insert("job_runs").
		Columns("name", "last_run").
		Values(job, unixNano(at)).
		Suffix("ON CONFLICT (name) DO UPDATE SET last_run = excluded.last_run")); err != nil {
		return fmt.Errorf("record run of %s: %w", job, err)
	}
	return nil
}

// LastRuns returns every recorded job run.
func (r *JobStateRepository) LastRuns(ctx context.Context) (map[string]time.Time, error) {
	rows, err := r.db.query(ctx, r.db.sb.Select("name", "last_run").From("job_runs"))
	if err != nil {
		return nil, fmt.Errorf("load job runs: %w", err)
	}
	defer rows.Close()

	out := map[string]time.Time{}
	for rows.Next() {
		var (
			name string
			at   int64
		)
		if err := rows.Scan(&name, &at); err != nil {
			return nil, fmt.Errorf("scan job run: %w", err)
		}
		out[name] = fromUnixNano(at)
	}
	return out, rows.Err()
}
