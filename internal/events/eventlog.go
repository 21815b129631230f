// Package events provides the append-only game event log.
// It is the observation boundary: the engine appends, the websocket hub and
// the HTTP surface read with Since.
package events

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypeEnemySpawned      EventType = "ENEMY_SPAWNED"
	EventTypeEnemyDefeated     EventType = "ENEMY_DEFEATED"
	EventTypePlayerDied        EventType = "PLAYER_DIED"
	EventTypeLevelUp           EventType = "LEVEL_UP"
	EventTypeStageUnlocked     EventType = "STAGE_UNLOCKED"
	EventTypeStageChanged      EventType = "STAGE_CHANGED"
	EventTypeAutoProgress      EventType = "AUTO_PROGRESS_TOGGLED"
	EventTypePointAllocated    EventType = "POINT_ALLOCATED"
	EventTypeModuleEquipped    EventType = "MODULE_EQUIPPED"
	EventTypeAutoHealSet       EventType = "AUTO_HEAL_SET"
	EventTypeAutoHealTriggered EventType = "AUTO_HEAL_TRIGGERED"
	EventTypeBuildingPurchased EventType = "BUILDING_PURCHASED"
	EventTypeGearUpgraded      EventType = "GEAR_UPGRADED"
	EventTypeArtifactPurchased EventType = "ARTIFACT_PURCHASED"
	EventTypePrestige          EventType = "PRESTIGE"
	EventTypeGameSaved         EventType = "GAME_SAVED"
	EventTypeGameLoaded        EventType = "GAME_LOADED"
	EventTypeGameReset         EventType = "GAME_RESET"
)

// ActorPlayer and ActorSystem are the two event sources.
const (
	ActorPlayer = "PLAYER"
	ActorSystem = "SYSTEM"
)

// DefaultCapacity bounds the in-memory history.
const DefaultCapacity = 1024

// DefaultPersistQueue bounds events waiting for the persister.
const DefaultPersistQueue = 256

// ErrPersistQueueFull is reported for events dropped because the
// persister fell too far behind.
var ErrPersistQueueFull = errors.New("event persist queue full")

// GameEvent represents an immutable record of something that happened.
type GameEvent struct {
	Seq       int64       `json:"seq"`
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`
	Payload   interface{} `json:"payload,omitempty"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// PersistErrorFunc is told about every event that did not reach the
// persister.
type PersistErrorFunc func(event GameEvent, err error)

// Options configures an EventLog.
type Options struct {
	Persister EventPersister
	Capacity  int
	// PersistQueue bounds events waiting to be written. A full queue
	// drops the event and reports ErrPersistQueueFull.
	PersistQueue   int
	OnPersistError PersistErrorFunc
}

// EventLog is the in-memory append-only log of game events. Only the most
// recent capacity events are retained; sequence numbers keep increasing.
// With a persister, events are written behind by a single goroutine in
// sequence order until Close.
type EventLog struct {
	mu       sync.RWMutex
	events   []GameEvent
	capacity int
	nextSeq  int64
	now      func() time.Time

	persister EventPersister
	onError   PersistErrorFunc
	queue     chan GameEvent
	closed    bool
	written   chan struct{}
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	return NewEventLogWithOptions(Options{Persister: persister})
}

// NewEventLogWithCapacity creates a log retaining at most capacity events.
func NewEventLogWithCapacity(persister EventPersister, capacity int) *EventLog {
	return NewEventLogWithOptions(Options{Persister: persister, Capacity: capacity})
}

// NewEventLogWithOptions creates a log and, when a persister is set,
// starts its writer.
func NewEventLogWithOptions(opts Options) *EventLog {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.PersistQueue <= 0 {
		opts.PersistQueue = DefaultPersistQueue
	}
	el := &EventLog{
		events:    make([]GameEvent, 0, opts.Capacity),
		capacity:  opts.Capacity,
		nextSeq:   1,
		now:       time.Now,
		persister: opts.Persister,
		onError:   opts.OnPersistError,
	}
	if el.persister != nil {
		el.queue = make(chan GameEvent, opts.PersistQueue)
		el.written = make(chan struct{})
		go el.writeLoop()
	}
	return el
}

// Emit builds and appends an event, returning the stored copy.
func (el *EventLog) Emit(eventType EventType, actorID string, payload interface{}) GameEvent {
	return el.Append(GameEvent{Type: eventType, ActorID: actorID, Payload: payload})
}

// Append adds a new event to the log, filling in ID, sequence and
// timestamp. Events are immutable once appended.
func (el *EventLog) Append(event GameEvent) GameEvent {
	el.mu.Lock()
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = el.now()
	}
	event.Seq = el.nextSeq
	el.nextSeq++

	if len(el.events) == el.capacity {
		copy(el.events, el.events[1:])
		el.events = el.events[:len(el.events)-1]
	}
	el.events = append(el.events, event)

	dropped := false
	if el.queue != nil && !el.closed {
		select {
		case el.queue <- event:
		default:
			dropped = true
		}
	}
	el.mu.Unlock()

	if dropped {
		el.reportError(event, ErrPersistQueueFull)
	}
	return event
}

func (el *EventLog) writeLoop() {
	defer close(el.written)
	for event := range el.queue {
		if err := el.persister.Append(event); err != nil {
			el.reportError(event, err)
		}
	}
}

func (el *EventLog) reportError(event GameEvent, err error) {
	if el.onError != nil {
		el.onError(event, err)
	}
}

// Close stops accepting events for the persister and waits until every
// queued event has been written. Later events stay in memory only. Safe
// to call more than once.
func (el *EventLog) Close() {
	el.mu.Lock()
	if el.queue == nil || el.closed {
		el.mu.Unlock()
		return
	}
	el.closed = true
	close(el.queue)
	el.mu.Unlock()

	<-el.written
}

// Since returns retained events with a sequence number greater than seq.
func (el *EventLog) Since(seq int64) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Seq > seq {
			result = append(result, e)
		}
	}
	return result
}

// GetByType returns retained events of one type.
func (el *EventLog) GetByType(eventType EventType) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns a copy of the retained history, oldest first.
func (el *EventLog) Replay() []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	out := make([]GameEvent, len(el.events))
	copy(out, el.events)
	return out
}

// LastSeq is the sequence number of the newest event, 0 when empty.
func (el *EventLog) LastSeq() int64 {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.nextSeq - 1
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
