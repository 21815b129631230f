// Package storage provides the persistence layer for the game server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Store.Get for a key that was never written or
// has been deleted.
var ErrNotFound = errors.New("storage: key not found")

// Store is a durable key/value store holding opaque blobs. The save record
// lives under one key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// EventRecord is the stored form of a game event. The payload is kept as
// raw JSON so the history table does not depend on payload types.
type EventRecord struct {
	Seq       int64     `json:"seq" db:"seq"`
	ID        string    `json:"id" db:"id"`
	Session   string    `json:"session" db:"session_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	EventType string    `json:"event_type" db:"event_type"`
	ActorID   string    `json:"actor_id" db:"actor_id"`
	Payload   string    `json:"payload" db:"payload"`
}

// EventRepository defines the interface for event history persistence.
type EventRepository interface {
	// Append adds a new event to the history table.
	Append(ctx context.Context, event EventRecord) error

	// Recent returns up to limit events, newest first.
	Recent(ctx context.Context, limit int) ([]EventRecord, error)

	// ByType returns up to limit events of one type, newest first.
	ByType(ctx context.Context, eventType string, limit int) ([]EventRecord, error)
}
