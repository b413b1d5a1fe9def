package dedup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS recent_changes (
	fingerprint  TEXT PRIMARY KEY,
	last_seen_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recent_changes_last_seen ON recent_changes(last_seen_ms);
`

// SQLiteStore is a Store shared by every hook process pointed at the same
// database file, so duplicates are suppressed across invocations.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the dedup database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating dedup directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening dedup database: %w", err)
	}
	// Hook processes may run concurrently; let them queue on the write lock.
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{
		"PRAGMA busy_timeout = 2000",
		"PRAGMA journal_mode = WAL",
		schema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing dedup database: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) LastSeen(fp string) (time.Time, bool, error) {
	var ms int64
	err := s.db.QueryRow(`SELECT last_seen_ms FROM recent_changes WHERE fingerprint = ?`, fp).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms), true, nil
}

// TouchIfStale is a single upsert, so concurrent hook processes sharing the
// database cannot both record the same fingerprint.
func (s *SQLiteStore) TouchIfStale(fp string, now time.Time, window time.Duration) (bool, error) {
	res, err := s.db.Exec(`
		INSERT INTO recent_changes (fingerprint, last_seen_ms) VALUES (?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET last_seen_ms = excluded.last_seen_ms
		WHERE excluded.last_seen_ms - recent_changes.last_seen_ms >= ?`,
		fp, now.UnixMilli(), window.Milliseconds())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) Len() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM recent_changes`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Evict(cutoff time.Time) error {
	_, err := s.db.Exec(`DELETE FROM recent_changes WHERE last_seen_ms < ?`, cutoff.UnixMilli())
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
