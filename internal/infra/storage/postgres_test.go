package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// Set IDLE_TEST_POSTGRES_DSN to run against a live database.
func openPostgres(t *testing.T) *Backend {
	t.Helper()
	dsn := os.Getenv("IDLE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("IDLE_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	b, err := Open(ctx, Options{Driver: DriverPostgres, DSN: dsn, MaxOpenConns: 2})
	if err != nil {
		t.Fatalf("Failed to open postgres: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	b := openPostgres(t)
	ctx := context.Background()
	key := "test-" + uuid.NewString()

	if _, err := b.Store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if err := b.Store.Set(ctx, key, []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := b.Store.Set(ctx, key, []byte(`{"v":2}`)); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}
	got, err := b.Store.Get(ctx, key)
	if err != nil || string(got) != `{"v":2}` {
		t.Errorf("Expected latest value, got %s (%v)", got, err)
	}
	if err := b.Store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
}

func TestPostgresEventHistory(t *testing.T) {
	b := openPostgres(t)
	ctx := context.Background()
	eventType := "TEST_" + uuid.NewString()

	for i := 0; i < 3; i++ {
		err := b.Events.Append(ctx, EventRecord{
			Seq:       int64(i + 1),
			ID:        uuid.NewString(),
			Session:   "test",
			Timestamp: time.Now().UTC(),
			EventType: eventType,
			ActorID:   "SYSTEM",
			Payload:   `{"i":1}`,
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := b.Events.ByType(ctx, eventType, 2)
	if err != nil {
		t.Fatalf("ByType failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected limit of 2 records, got %d", len(got))
	}
}
