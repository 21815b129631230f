// Package storage - postgres.go
// PostgreSQL implementations of Store and EventRepository on a pgx pool.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenPostgres connects a pool and creates the schemas.
func OpenPostgres(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	schemas := []string{
		`CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS event_log (
			seq BIGINT NOT NULL,
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			event_type TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			payload JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_log_timestamp ON event_log(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_event_log_event_type ON event_log(event_type)`,
	}
	for _, q := range schemas {
		if _, err := pool.Exec(ctx, q); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create schemas: %w", err)
		}
	}
	return pool, nil
}

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps a pool opened with OpenPostgres.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// PostgresEventRepository implements EventRepository using PostgreSQL.
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgreSQL event repository.
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

// Append inserts a new event into the history table.
func (r *PostgresEventRepository) Append(ctx context.Context, event EventRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_log (seq, id, session_id, timestamp, event_type, actor_id, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		event.Seq,
		event.ID,
		event.Session,
		event.Timestamp,
		event.EventType,
		event.ActorID,
		event.Payload,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// Recent returns the newest events.
func (r *PostgresEventRepository) Recent(ctx context.Context, limit int) ([]EventRecord, error) {
	return r.queryEvents(ctx, `
		SELECT seq, id, session_id, timestamp, event_type, actor_id, payload::text
		FROM event_log
		ORDER BY timestamp DESC, seq DESC
		LIMIT $1
	`, clampLimit(limit))
}

// ByType returns the newest events of one type.
func (r *PostgresEventRepository) ByType(ctx context.Context, eventType string, limit int) ([]EventRecord, error) {
	return r.queryEvents(ctx, `
		SELECT seq, id, session_id, timestamp, event_type, actor_id, payload::text
		FROM event_log
		WHERE event_type = $1
		ORDER BY timestamp DESC, seq DESC
		LIMIT $2
	`, eventType, clampLimit(limit))
}

func (r *PostgresEventRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]EventRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var e EventRecord
		if err := rows.Scan(&e.Seq, &e.ID, &e.Session, &e.Timestamp, &e.EventType, &e.ActorID, &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
