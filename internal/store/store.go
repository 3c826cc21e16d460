// Package store keeps the run history of the aggregator in SQLite.
// Articles themselves are never stored: every run rebuilds them.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Run is one completed aggregation.
type Run struct {
	ID         string
	Started    time.Time
	Finished   time.Time
	Categories int
	Articles   int
	English    int
	Fetches    []SourceFetch
}

// SourceFetch is the outcome of one source in one run.
type SourceFetch struct {
	Category   string
	Source     string
	OK         bool
	Proxy      string
	Candidates int
	Duration   time.Duration
}

// SourceHealth aggregates fetch outcomes of one source over several runs.
type SourceHealth struct {
	Category  string
	Source    string
	Attempts  int
	Successes int
	AvgMs     float64
	LastProxy string
}

// SuccessRate is Successes/Attempts, 0 when never attempted.
func (h SourceHealth) SuccessRate() float64 {
	if h.Attempts == 0 {
		return 0
	}
	return float64(h.Successes) / float64(h.Attempts)
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// shared cache so every pooled connection sees the same database
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		categories INTEGER NOT NULL,
		articles INTEGER NOT NULL,
		en_articles INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);

	CREATE TABLE IF NOT EXISTS source_fetches (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		category TEXT NOT NULL,
		source TEXT NOT NULL,
		ok INTEGER NOT NULL,
		proxy TEXT,
		candidates INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_fetches_run ON source_fetches(run_id);
	CREATE INDEX IF NOT EXISTS idx_fetches_source ON source_fetches(category, source);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// RecordRun stores a run and its source fetches in one transaction.
// Recording the same run ID twice is an error.
func (s *Store) RecordRun(r Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, started_at, finished_at, categories, articles, en_articles)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.Started.UTC(), r.Finished.UTC(), r.Categories, r.Articles, r.English)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO source_fetches (run_id, category, source, ok, proxy, candidates, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare fetch insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range r.Fetches {
		if _, err := stmt.Exec(r.ID, f.Category, f.Source, boolToInt(f.OK), f.Proxy, f.Candidates, f.Duration.Milliseconds()); err != nil {
			return fmt.Errorf("insert fetch %s/%s: %w", f.Category, f.Source, err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns the latest runs, newest first, without their fetches.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, categories, articles, en_articles
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Started, &r.Finished, &r.Categories, &r.Articles, &r.English); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunFetches returns the source fetches of one run in insertion order.
func (s *Store) RunFetches(runID string) ([]SourceFetch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT category, source, ok, COALESCE(proxy, ''), candidates, duration_ms
		FROM source_fetches
		WHERE run_id = ?
		ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SourceFetch
	for rows.Next() {
		var f SourceFetch
		var ok int
		var ms int64
		if err := rows.Scan(&f.Category, &f.Source, &ok, &f.Proxy, &f.Candidates, &ms); err != nil {
			return nil, err
		}
		f.OK = ok != 0
		f.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, f)
	}
	return out, rows.Err()
}

// SourceHealth aggregates fetch outcomes per source for runs started at
// or after since, ordered by category then source.
func (s *Store) SourceHealth(since time.Time) ([]SourceHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT f.category, f.source, COUNT(*), SUM(f.ok), AVG(f.duration_ms),
			COALESCE((
				SELECT f2.proxy FROM source_fetches f2
				JOIN runs r2 ON r2.id = f2.run_id
				WHERE f2.category = f.category AND f2.source = f.source AND f2.ok = 1
				ORDER BY r2.started_at DESC LIMIT 1
			), '')
		FROM source_fetches f
		JOIN runs r ON r.id = f.run_id
		WHERE r.started_at >= ?
		GROUP BY f.category, f.source
		ORDER BY f.category, f.source
	`, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SourceHealth
	for rows.Next() {
		var h SourceHealth
		if err := rows.Scan(&h.Category, &h.Source, &h.Attempts, &h.Successes, &h.AvgMs, &h.LastProxy); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// PruneBefore deletes runs started before cutoff, with their fetches.
// Returns the number of runs removed.
func (s *Store) PruneBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM source_fetches
		WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)
	`, cutoff.UTC()); err != nil {
		return 0, fmt.Errorf("prune fetches: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// boolToInt converts a bool to an int for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
