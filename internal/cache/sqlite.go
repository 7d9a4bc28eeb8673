package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	op         TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL,
	PRIMARY KEY (op, key)
);
CREATE INDEX IF NOT EXISTS idx_cache_expires ON cache_entries (expires_at);
`

// SQLite is a file-backed TTL cache that survives restarts. Expired
// rows are pruned lazily on Set.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func OpenSQLite(path string, ttl time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	// modernc sqlite serializes writes itself; a single connection
	// avoids SQLITE_BUSY under concurrent workers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return &SQLite{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *SQLite) Get(ctx context.Context, op, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache_entries WHERE op = ? AND key = ?`,
		op, key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	if s.now().Unix() > expiresAt {
		return nil, false, nil
	}
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, op, key string, value []byte) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (op, key, value, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (op, key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		op, key, value, now.Add(s.ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at < ?`, now.Unix())
	if err != nil {
		return fmt.Errorf("cache prune: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }
