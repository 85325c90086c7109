// Package sqlitestore provides a SQLite-backed cache.Store.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"scorebot/pkg/cache"
)

const schema = `CREATE TABLE IF NOT EXISTS cache_entries (
	namespace  TEXT    NOT NULL,
	key        TEXT    NOT NULL,
	value      TEXT    NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (namespace, key)
)`

// Store persists cache entries in one SQLite table partitioned by namespace.
type Store struct {
	sqlDB     *sql.DB
	namespace string
	now       func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens the database at path and ensures the schema exists.
func Open(path string, namespace string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{sqlDB: sqlDB, namespace: namespace, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get returns the live value for key or fallback.
func (s *Store) Get(ctx context.Context, key string, fallback string) (string, error) {
	if err := cache.ValidateKey(key); err != nil {
		return "", err
	}

	var value string
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT value FROM cache_entries
		 WHERE namespace = ? AND key = ? AND (expires_at = 0 OR expires_at > ?)`,
		s.namespace, key, toMillis(s.now()),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("select entry %s: %w", key, err)
	}

	return value, nil
}

// Set upserts value. A positive ttl sets an expiry after which reads treat the
// entry as absent.
func (s *Store) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}

	now := s.now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = toMillis(now.Add(ttl))
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO cache_entries (namespace, key, value, expires_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET
		   value = excluded.value,
		   expires_at = excluded.expires_at,
		   updated_at = excluded.updated_at`,
		s.namespace, key, value, expiresAt, toMillis(now),
	)
	if err != nil {
		return fmt.Errorf("upsert entry %s: %w", key, err)
	}

	return nil
}

// Delete removes key from the namespace.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}

	if _, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM cache_entries WHERE namespace = ? AND key = ?`,
		s.namespace, key,
	); err != nil {
		return fmt.Errorf("delete entry %s: %w", key, err)
	}

	return nil
}

// Clear removes every row of the namespace.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM cache_entries WHERE namespace = ?`,
		s.namespace,
	); err != nil {
		return fmt.Errorf("clear namespace %s: %w", s.namespace, err)
	}

	return nil
}

// Keys lists the live keys of the namespace.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT key FROM cache_entries
		 WHERE namespace = ? AND (expires_at = 0 OR expires_at > ?)
		 ORDER BY key`,
		s.namespace, toMillis(s.now()),
	)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}

	return keys, nil
}

// GetMultiple reads every key.
func (s *Store) GetMultiple(ctx context.Context, keys []string, fallback string) (map[string]string, error) {
	return cache.GetEach(ctx, keys, fallback, s.Get)
}

// SetMultiple writes every entry, attempting all of them.
func (s *Store) SetMultiple(ctx context.Context, values map[string]string, ttl time.Duration) error {
	return cache.SetEach(ctx, values, ttl, s.Set)
}

// DeleteMultiple removes every key, attempting all of them.
func (s *Store) DeleteMultiple(ctx context.Context, keys []string) error {
	return cache.DeleteEach(ctx, keys, s.Delete)
}

// Has reports whether key holds a live value.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	if err := cache.ValidateKey(key); err != nil {
		return false, err
	}

	var found int
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT 1 FROM cache_entries
		 WHERE namespace = ? AND key = ? AND (expires_at = 0 OR expires_at > ?)`,
		s.namespace, key, toMillis(s.now()),
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probe entry %s: %w", key, err)
	}

	return true, nil
}
