package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cosmic-idle/server/internal/events"
)

// persistTimeout bounds a single history write.
const persistTimeout = 5 * time.Second

// EventLogPersister translates log events into history records.
type EventLogPersister struct {
	repo    EventRepository
	session string
}

// NewEventLogPersister writes events to repo stamped with session.
func NewEventLogPersister(repo EventRepository, session string) *EventLogPersister {
	return &EventLogPersister{repo: repo, session: session}
}

// Append implements events.EventPersister.
func (p *EventLogPersister) Append(event events.GameEvent) error {
	payload := []byte("null")
	if event.Payload != nil {
		b, err := json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		payload = b
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	return p.repo.Append(ctx, EventRecord{
		Seq:       event.Seq,
		ID:        event.ID,
		Session:   p.session,
		Timestamp: event.Timestamp.UTC(),
		EventType: string(event.Type),
		ActorID:   event.ActorID,
		Payload:   string(payload),
	})
}
