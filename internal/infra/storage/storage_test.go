package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cosmic-idle/server/internal/events"
)

func openSQLite(t *testing.T) *Backend {
	t.Helper()
	b, err := Open(context.Background(), Options{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "idle.db")})
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func backends(t *testing.T) map[string]*Backend {
	mem, err := Open(context.Background(), Options{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("Failed to open memory backend: %v", err)
	}
	return map[string]*Backend{
		"memory": mem,
		"sqlite": openSQLite(t),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := b.Store.Get(ctx, "save"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Expected ErrNotFound, got %v", err)
			}

			if err := b.Store.Set(ctx, "save", []byte(`{"v":1}`)); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if err := b.Store.Set(ctx, "save", []byte(`{"v":2}`)); err != nil {
				t.Fatalf("Overwrite failed: %v", err)
			}
			got, err := b.Store.Get(ctx, "save")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if string(got) != `{"v":2}` {
				t.Errorf("Expected latest value, got %s", got)
			}

			if err := b.Store.Delete(ctx, "save"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := b.Store.Get(ctx, "save"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound after delete, got %v", err)
			}
			// Deleting a missing key is not an error
			if err := b.Store.Delete(ctx, "save"); err != nil {
				t.Errorf("Delete of missing key failed: %v", err)
			}
		})
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "idle.db")

	db, err := InitSQLite(path)
	if err != nil {
		t.Fatalf("InitSQLite failed: %v", err)
	}
	if err := NewSQLiteStore(db).Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	db.Close()

	db, err = InitSQLite(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer db.Close()
	got, err := NewSQLiteStore(db).Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Expected v, got %q %v", got, err)
	}
}

func TestEventHistory(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i, typ := range []string{"ENEMY_SPAWNED", "ENEMY_DEFEATED", "ENEMY_SPAWNED"} {
				rec := EventRecord{
					Seq:       int64(i + 1),
					ID:        events.GenerateEventID(),
					Session:   "s1",
					Timestamp: base.Add(time.Duration(i) * time.Second),
					EventType: typ,
					ActorID:   events.ActorSystem,
					Payload:   `{"stage":1}`,
				}
				if err := b.Events.Append(ctx, rec); err != nil {
					t.Fatalf("Append failed: %v", err)
				}
			}

			recent, err := b.Events.Recent(ctx, 2)
			if err != nil {
				t.Fatalf("Recent failed: %v", err)
			}
			if len(recent) != 2 || recent[0].Seq != 3 {
				t.Errorf("Expected newest 2 events starting at seq 3, got %+v", recent)
			}

			spawned, err := b.Events.ByType(ctx, "ENEMY_SPAWNED", 0)
			if err != nil {
				t.Fatalf("ByType failed: %v", err)
			}
			if len(spawned) != 2 {
				t.Errorf("Expected 2 spawn events, got %d", len(spawned))
			}
		})
	}
}

func TestEventLogPersister(t *testing.T) {
	repo := NewMemoryEventRepository()
	p := NewEventLogPersister(repo, "session-1")

	err := p.Append(events.GameEvent{
		Seq:       7,
		ID:        "evt-1",
		Timestamp: time.Now(),
		Type:      events.EventTypeLevelUp,
		ActorID:   events.ActorPlayer,
		Payload:   map[string]int{"level": 2},
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, _ := repo.Recent(context.Background(), 10)
	if len(got) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(got))
	}
	if got[0].Payload != `{"level":2}` || got[0].Session != "session-1" || got[0].EventType != "LEVEL_UP" {
		t.Errorf("Unexpected record: %+v", got[0])
	}
}

func TestUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Options{Driver: "mongo"}); err == nil {
		t.Error("Expected error for unknown driver")
	}
}
