package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"bindsig/internal/shared/util"
)

const (
	driverName         = "sqlite"
	maxAttempts        = 5
	defaultBusyTimeout = 2 * time.Second
)

// Store is a sqlite-backed run history. It is safe for concurrent use.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	return OpenWithTimeout(path, defaultBusyTimeout)
}

// OpenWithTimeout opens the store with a custom sqlite busy timeout.
func OpenWithTimeout(path string, busyTimeout time.Duration) (*Store, error) {
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}
	if err := util.EnsureParentDir(cleanPath); err != nil {
		return nil, fmt.Errorf("create history directory for %q: %w", cleanPath, err)
	}

	// busy_timeout + WAL reduce lock conflicts while watch mode writes.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores a run and its results atomically. A run without an ID gets
// a fresh UUID; a run without a start time is stamped now.
func (s *Store) SaveRun(run Run, results []Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	return s.withRetry("save run", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO runs (id, source, started_at_utc, declaration_count, failure_count) VALUES (?, ?, ?, ?, ?)`,
			run.ID, run.Source, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Declarations, run.Failures,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
		for _, r := range results {
			if _, err := tx.Exec(
				`INSERT INTO results (run_id, line, kind, text, success, message, error_index) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				run.ID, r.Line, r.Kind, r.Text, r.Success, r.Message, r.Index,
			); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

// LoadRuns returns the most recent runs, newest first. limit <= 0 returns
// every run.
func (s *Store) LoadRuns(limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, source, started_at_utc, declaration_count, failure_count FROM runs ORDER BY started_at_utc DESC, id ASC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			run   Run
			tsRaw string
		)
		if err := rows.Scan(&run.ID, &run.Source, &tsRaw, &run.Declarations, &run.Failures); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
		}
		run.StartedAt = ts.UTC()
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// LoadResults returns the results of one run ordered by line.
func (s *Store) LoadResults(runID string) ([]Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load results", func() error {
		var qErr error
		rows, qErr = s.db.Query(
			`SELECT run_id, line, kind, text, success, message, error_index FROM results WHERE run_id = ? ORDER BY line ASC, kind ASC`,
			runID,
		)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]Result, 0)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.RunID, &r.Line, &r.Kind, &r.Text, &r.Success, &r.Message, &r.Index); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}
	return results, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
