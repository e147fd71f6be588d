package cache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	getEntryQuery = `SELECT path, cached_at, payload FROM response_cache WHERE key = $1`
	setEntryQuery = `INSERT INTO response_cache (key, path, cached_at, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET path = EXCLUDED.path, cached_at = EXCLUDED.cached_at, payload = EXCLUDED.payload`
	clearQuery = `DELETE FROM response_cache`
	countQuery = `SELECT COUNT(*) FROM response_cache`
)

// SQLStore keeps entries in a PostgreSQL table.
type SQLStore struct {
	conn *sqlx.DB
}

// NewSQLStore wraps an existing connection.
func NewSQLStore(conn *sqlx.DB) *SQLStore {
	return &SQLStore{conn: conn}
}

// OpenSQLStore connects to PostgreSQL and applies pending migrations.
func OpenSQLStore(ctx context.Context, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres cache needs a DSN")
	}
	conn, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cache database: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetConnMaxLifetime(5 * time.Minute)
	if err := Migrate(conn.DB); err != nil {
		conn.Close()
		return nil, err
	}
	return NewSQLStore(conn), nil
}

// Migrate brings the cache schema up to date.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to migrate cache schema: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var e Entry
	err := s.conn.GetContext(ctx, &e, getEntryQuery, key)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return e, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, entry Entry) error {
	if _, err := s.conn.ExecContext(ctx, setEntryQuery, key, entry.Path, entry.CachedAt, []byte(entry.Payload)); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (s *SQLStore) Clear(ctx context.Context) (int, error) {
	res, err := s.conn.ExecContext(ctx, clearQuery)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	return int(n), nil
}

func (s *SQLStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.GetContext(ctx, &n, countQuery); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

// Close releases the database connection.
func (s *SQLStore) Close() error {
	return s.conn.Close()
}
