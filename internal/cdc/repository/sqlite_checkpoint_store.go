package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/allisson/workforce-sync/internal/errors"
)

const checkpointSchema = `CREATE TABLE IF NOT EXISTS cdc_checkpoints (
	name       TEXT PRIMARY KEY,
	watermark  TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteCheckpointStore keeps named watermarks in a local SQLite file so a
// restarted detector resumes where it stopped.
type SQLiteCheckpointStore struct {
	db   *sql.DB
	name string
}

// OpenSQLiteCheckpointStore creates or opens the checkpoint file at path.
// name identifies the detector, allowing several to share one file.
func OpenSQLiteCheckpointStore(path, name string) (*SQLiteCheckpointStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to checkpoint database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000", checkpointSchema} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", stmt, err)
		}
	}

	return &SQLiteCheckpointStore{db: db, name: name}, nil
}

// Load returns the stored watermark. ok is false when none was saved yet.
func (s *SQLiteCheckpointStore) Load(ctx context.Context) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT watermark FROM cdc_checkpoints WHERE name = ?`, s.name).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, apperrors.Wrap(err, "failed to load checkpoint")
	}

	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, apperrors.Wrapf(err, "corrupt checkpoint %q", raw)
	}
	return at, true, nil
}

// Save stores the watermark, replacing any previous value.
func (s *SQLiteCheckpointStore) Save(ctx context.Context, at time.Time) error {
	query := `INSERT INTO cdc_checkpoints (name, watermark, updated_at) VALUES (?, ?, ?)
			  ON CONFLICT(name) DO UPDATE SET watermark = excluded.watermark, updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(
		ctx,
		query,
		s.name,
		at.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to save checkpoint")
	}
	return nil
}

// Close closes the checkpoint database.
func (s *SQLiteCheckpointStore) Close() error {
	return s.db.Close()
}

// MemoryCheckpointStore keeps the watermark in process memory. A restart
// falls back to the initial lookback window.
type MemoryCheckpointStore struct {
	mu    sync.Mutex
	at    time.Time
	saved bool
}

// NewMemoryCheckpointStore creates an empty in-memory checkpoint store.
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{}
}

// Load returns the stored watermark. ok is false when none was saved yet.
func (m *MemoryCheckpointStore) Load(_ context.Context) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.at, m.saved, nil
}

// Save stores the watermark.
func (m *MemoryCheckpointStore) Save(_ context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.at = at.UTC()
	m.saved = true
	return nil
}

// Close is a no-op.
func (m *MemoryCheckpointStore) Close() error {
	return nil
}
