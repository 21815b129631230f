package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLiteStore implements Store on the kv_store table.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLiteStore wraps a database opened with InitSQLite.
func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

type kvRow struct {
	Key       string    `db:"key"`
	Value     []byte    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.GetContext(ctx, &value, `SELECT value FROM kv_store WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (:key, :value, :updated_at)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	row := kvRow{Key: key, Value: value, UpdatedAt: s.now().UTC()}
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sqlx.DB
}

func NewSQLiteEventRepository(db *sqlx.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event EventRecord) error {
	query := `
		INSERT INTO events (seq, id, session_id, timestamp, event_type, actor_id, payload)
		VALUES (:seq, :id, :session_id, :timestamp, :event_type, :actor_id, :payload)
	`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

const eventColumns = `seq, id, session_id, timestamp, event_type, actor_id, payload`

func (r *SQLiteEventRepository) Recent(ctx context.Context, limit int) ([]EventRecord, error) {
	var out []EventRecord
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY timestamp DESC, seq DESC LIMIT ?`
	if err := r.db.SelectContext(ctx, &out, query, clampLimit(limit)); err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return out, nil
}

func (r *SQLiteEventRepository) ByType(ctx context.Context, eventType string, limit int) ([]EventRecord, error) {
	var out []EventRecord
	query := `SELECT ` + eventColumns + ` FROM events WHERE event_type = ? ORDER BY timestamp DESC, seq DESC LIMIT ?`
	if err := r.db.SelectContext(ctx, &out, query, eventType, clampLimit(limit)); err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return out, nil
}

// DefaultHistoryLimit and MaxHistoryLimit bound history reads.
const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
