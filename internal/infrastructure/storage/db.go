package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"EditorialDesk/internal/config"
)

//go:embed schema/postgres.sql
var postgresSchema string

//go:embed schema/sqlite.sql
var sqliteSchema string

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	pingAttempts = 5
	pingWait     = 200 * time.Millisecond
	busyTimeout  = 5000
)

// DB wraps the SQL connection together with its dialect-specific statement builder.
type DB struct {
	conn    *sql.DB
	dialect string
	sb      sq.StatementBuilderType
	now     func() time.Time
}

// Open connects to the configured database and verifies connectivity.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	dialect := strings.ToLower(strings.TrimSpace(cfg.Driver))
	dsn := cfg.DSN

	var driver string
	switch dialect {
	case DialectPostgres, "postgresql", "pg":
		dialect, driver = DialectPostgres, "postgres"
	case DialectSQLite, "sqlite3", "":
		dialect, driver = DialectSQLite, "sqlite"
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dialect == DialectSQLite {
		conn.SetMaxOpenConns(1)
	}

	db := wrap(conn, dialect)
	if err := db.ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

func wrap(conn *sql.DB, dialect string) *DB {
	format := sq.Question
	if dialect == DialectPostgres {
		format = sq.Dollar
	}
	return &DB{
		conn:    conn,
		dialect: dialect,
		sb:      sq.StatementBuilder.PlaceholderFormat(format),
		now:     time.Now,
	}
}

func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "file:editorialdesk.db"
	}
	if strings.Contains(dsn, "_pragma") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", dsn, sep, busyTimeout)
}

func (db *DB) ping(ctx context.Context) error {
	var err error
	wait := pingWait
	for attempt := 0; attempt < pingAttempts; attempt++ {
		if err = db.conn.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}

// Migrate applies the schema for the active dialect; statements are idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if db.dialect == DialectPostgres {
		schema = postgresSchema
	}
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply %s schema: %w", db.dialect, err)
	}
	return nil
}

// Dialect reports which SQL flavour is in use.
func (db *DB) Dialect() string {
	return db.dialect
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// SetClock swaps the time source used for row timestamps.
func (db *DB) SetClock(now func() time.Time) {
	if now != nil {
		db.now = now
	}
}

func (db *DB) exec(ctx context.Context, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (db *DB) queryRow(ctx context.Context, b sq.Sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return db.conn.QueryRowContext(ctx, query, args...), nil
}

func (db *DB) query(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return db.conn.QueryContext(ctx, query, args...)
}

func (db *DB) insertReturningID(ctx context.Context, b sq.InsertBuilder) (int64, error) {
	row, err := db.queryRow(ctx, b.Suffix("RETURNING id"))
	if err != nil {
		return 0, err
	}
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (db *DB) count(ctx context.Context, b sq.SelectBuilder) (int64, error) {
	row, err := db.queryRow(ctx, b)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, v).UTC()
}
