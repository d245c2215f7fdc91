package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// ErrNotFound is returned for an unknown job id.
var ErrNotFound = errors.New("job not found")

// Store persists job records.
type Store interface {
	// Register creates or replaces a job record.
	Register(ctx context.Context, job Job) error
	// Update overwrites an existing job; ErrNotFound if it was never registered.
	Update(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, error)
}

// SQLiteStore keeps jobs in a single SQLite table.
type SQLiteStore struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS jobs (
		id         TEXT PRIMARY KEY,
		tank_id    INTEGER NOT NULL,
		status     TEXT NOT NULL,
		progress   REAL NOT NULL,
		cache_url  TEXT NOT NULL DEFAULT '',
		result_url TEXT NOT NULL DEFAULT '',
		error      TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create jobs table: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Register(ctx context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.Status == "" {
		job.Status = StatusQueued
	}
	if _, err := ParseStatus(string(job.Status)); err != nil {
		return fmt.Errorf("register job %s: %w", job.ID, err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, tank_id, status, progress, cache_url, result_url, error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tank_id = excluded.tank_id,
			status = excluded.status,
			progress = excluded.progress,
			cache_url = excluded.cache_url,
			result_url = excluded.result_url,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, job.ID, job.TankID, string(job.Status), job.Progress, job.CacheURL, job.ResultURL, job.Error, s.stamp())
	if err != nil {
		return fmt.Errorf("register job %s: %w", job.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, job Job) error {
	if _, err := ParseStatus(string(job.Status)); err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET tank_id = ?, status = ?, progress = ?, cache_url = ?, result_url = ?, error = ?, updated_at = ?
		WHERE id = ?
	`, job.TankID, string(job.Status), job.Progress, job.CacheURL, job.ResultURL, job.Error, s.stamp(), job.ID)
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update job %s: %w", job.ID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Job, error) {
	var (
		job     Job
		status  string
		updated string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tank_id, status, progress, cache_url, result_url, error, updated_at
		FROM jobs WHERE id = ?
	`, id).Scan(&job.ID, &job.TankID, &status, &job.Progress, &job.CacheURL, &job.ResultURL, &job.Error, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		return Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	if job.Status, err = ParseStatus(status); err != nil {
		return Job{}, fmt.Errorf("job %s: %w", id, err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return Job{}, fmt.Errorf("job %s: bad updated_at %q: %w", id, updated, err)
	}
	return job, nil
}

func (s *SQLiteStore) stamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}
