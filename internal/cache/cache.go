// Package cache provides a local SQLite-backed cache for API responses.
// Listing commands use it to avoid refetching slow-changing data; entries
// expire after a configurable TTL.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

// dirPerms is used when creating the cache directory.
const dirPerms = 0o700

// Store is a TTL cache over a SQLite database. It is a sole-writer store:
// the connection pool is capped at one connection.
type Store struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger

	// now is the clock for freshness checks; tests override it.
	now func() time.Time
}

// Open creates or opens the cache database at path and applies pending
// schema migrations.
func Open(ctx context.Context, path string, ttl time.Duration, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return nil, fmt.Errorf("cache: creating directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("cache: opening %s: %w", path, err)
	}

	// Sole writer: serialize all access through one connection.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, ttl: ttl, logger: logger, now: time.Now}, nil
}

// Get returns the cached body for key. ok is false on a miss or when the
// entry is older than the TTL.
func (s *Store) Get(ctx context.Context, key string) (body []byte, ok bool, err error) {
	var fetchedAt int64

	row := s.db.QueryRowContext(ctx,
		`SELECT body, fetched_at FROM response_cache WHERE key = ?`, key)
	if err := row.Scan(&body, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("cache: reading %s: %w", key, err)
	}

	age := s.now().Sub(time.Unix(fetchedAt, 0))
	if age > s.ttl {
		s.logger.Debug("cache entry stale",
			slog.String("key", key),
			slog.Duration("age", age),
		)

		return nil, false, nil
	}

	return body, true, nil
}

// Put stores body under key, replacing any previous entry.
func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO response_cache (key, body, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at`,
		key, body, s.now().Unix())
	if err != nil {
		return fmt.Errorf("cache: writing %s: %w", key, err)
	}

	return nil
}

// Purge deletes entries older than the TTL and returns how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ttl).Unix()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM response_cache WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cache: purging: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cache: counting purged rows: %w", err)
	}

	return n, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
