// Package cache persists per-path content and output hashes between build
// invocations so unchanged units can be skipped.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is the persisted record for one content path.
type Entry struct {
	Path        string
	ContentHash string
	OutputHash  string
	RenderedAt  time.Time
}

// Store is a SQLite-backed cache. It is an explicit object with defined
// load/flush points: opened at build start, flushed and closed at build end.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (creating if needed) the cache database at dbPath.
// Use ":memory:" for an ephemeral cache.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		path TEXT PRIMARY KEY,
		content_hash TEXT NOT NULL,
		output_hash TEXT NOT NULL,
		rendered_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load reads every entry, keyed by path. Called once at build start.
func (s *Store) Load(ctx context.Context) (map[string]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT path, content_hash, output_hash, rendered_at FROM entries")
	if err != nil {
		return nil, fmt.Errorf("query cache entries: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]Entry)
	for rows.Next() {
		var e Entry
		var renderedAt int64
		if err := rows.Scan(&e.Path, &e.ContentHash, &e.OutputHash, &renderedAt); err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		e.RenderedAt = time.Unix(renderedAt, 0)
		entries[e.Path] = e
	}
	return entries, rows.Err()
}

// Flush upserts the given entries in one transaction. Called once at build
// end with the successfully rendered and clean nodes; entries for failed or
// skipped nodes are left untouched so a retry naturally reprocesses them.
func (s *Store) Flush(ctx context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache flush: %w", err)
	}

	for _, e := range entries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO entries (path, content_hash, output_hash, rendered_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(path) DO UPDATE SET
			   content_hash = excluded.content_hash,
			   output_hash = excluded.output_hash,
			   rendered_at = excluded.rendered_at`,
			e.Path, e.ContentHash, e.OutputHash, e.RenderedAt.Unix())
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert cache entry %s: %w", e.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cache flush: %w", err)
	}
	return nil
}

// Delete removes the entry for path, if present.
func (s *Store) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete cache entry %s: %w", path, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
