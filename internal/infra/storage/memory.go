package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a process-local Store. Nothing survives a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	s.mu.Lock()
	s.data[key] = v
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// MemoryEventRepository keeps event history in a slice.
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events []EventRecord
}

func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{}
}

func (r *MemoryEventRepository) Append(ctx context.Context, event EventRecord) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *MemoryEventRepository) Recent(ctx context.Context, limit int) ([]EventRecord, error) {
	return r.filter("", limit), nil
}

func (r *MemoryEventRepository) ByType(ctx context.Context, eventType string, limit int) ([]EventRecord, error) {
	return r.filter(eventType, limit), nil
}

func (r *MemoryEventRepository) filter(eventType string, limit int) []EventRecord {
	r.mu.RLock()
	var out []EventRecord
	for _, e := range r.events {
		if eventType == "" || e.EventType == eventType {
			out = append(out, e)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Seq > out[j].Seq
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if n := clampLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out
}
