// Package persistence saves and restores the whole game as one JSON record
// under a fixed key in a storage.Store.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cosmic-idle/server/internal/domain/combat"
	"github.com/cosmic-idle/server/internal/domain/economy"
	"github.com/cosmic-idle/server/internal/domain/player"
	"github.com/cosmic-idle/server/internal/domain/prestige"
	"github.com/cosmic-idle/server/internal/domain/rules"
	"github.com/cosmic-idle/server/internal/engine"
	"github.com/cosmic-idle/server/internal/events"
	"github.com/cosmic-idle/server/internal/infra/storage"
	"github.com/cosmic-idle/server/internal/platform/logger"
	"github.com/cosmic-idle/server/internal/platform/metrics"
)

// DefaultSaveKey is the key the save record lives under.
const DefaultSaveKey = "cosmic_idle_save_v2"

// Record is the stored layout. Field names are part of the save format.
type Record struct {
	Resources      economy.Resources `json:"resources"`
	Buildings      economy.Buildings `json:"buildings"`
	Player         player.Player     `json:"player"`
	CombatStage    int               `json:"combatStage"`
	CombatMaxStage int               `json:"combatMaxStage"`
	AutoProgress   bool              `json:"autoProgress"`
	Prestige       prestige.State    `json:"prestige"`
	LastSave       int64             `json:"lastSave"` // unix milliseconds
	Session        string            `json:"session,omitempty"`
}

// DefaultRecord is a first-run game. Loaded records are decoded over it,
// so any field missing from storage keeps its first-run value.
func DefaultRecord() Record {
	cs := combat.New()
	return Record{
		Player:         *player.New(),
		CombatStage:    cs.Stage,
		CombatMaxStage: cs.MaxUnlockedStage,
		AutoProgress:   cs.AutoProgress,
		Prestige:       prestige.New(nil).Clone(),
	}
}

// RecordFromSnapshot extracts the persisted subset of a snapshot.
func RecordFromSnapshot(s engine.Snapshot) Record {
	return Record{
		Resources:      s.Resources,
		Buildings:      s.Buildings,
		Player:         s.Player,
		CombatStage:    s.Combat.Stage,
		CombatMaxStage: s.Combat.MaxUnlockedStage,
		AutoProgress:   s.Combat.AutoProgress,
		Prestige:       s.Prestige,
	}
}

// Snapshot converts a record into engine restore input. Combat restarts
// without an enemy.
func (r Record) Snapshot() engine.Snapshot {
	return engine.Snapshot{
		Player:    r.Player,
		Resources: r.Resources,
		Buildings: r.Buildings,
		Combat: combat.State{
			Status:           combat.StatusIdle,
			Stage:            r.CombatStage,
			MaxUnlockedStage: r.CombatMaxStage,
			AutoProgress:     r.AutoProgress,
		},
		Prestige: r.Prestige,
	}
}

// repair forces stage fields into range. Player and prestige fields are
// repaired by Engine.Restore.
func (r *Record) repair() {
	r.CombatStage = min(max(r.CombatStage, 1), rules.MaxStage)
	r.CombatMaxStage = min(max(r.CombatMaxStage, r.CombatStage), rules.MaxStage)
	r.Player.Repair()
}

// LoadResult describes what Load found.
type LoadResult struct {
	Found bool `json:"found"`
	// Corrupt is set when a record existed but could not be decoded.
	Corrupt bool `json:"corrupt"`
	// Offline is the time since the record was written. It is reported
	// only; no offline progress is simulated.
	Offline  time.Duration `json:"offline"`
	LastSave time.Time     `json:"last_save"`
}

// GameLoadedPayload is emitted after a load.
type GameLoadedPayload struct {
	Found          bool    `json:"found"`
	Corrupt        bool    `json:"corrupt"`
	OfflineSeconds float64 `json:"offline_seconds"`
}

// GameSavedPayload is emitted after a successful save.
type GameSavedPayload struct {
	Bytes int    `json:"bytes"`
	Key   string `json:"key"`
}

// Gateway reads and writes the save record. Writes are serialized, so a
// snapshot taken inside SaveFrom or Restart is never overtaken by an older
// one.
type Gateway struct {
	mu       sync.Mutex
	store    storage.Store
	key      string
	session  string
	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  *metrics.Collector
	now      func() time.Time
}

// NewGateway creates a gateway over store with a fresh session id. An empty
// key uses DefaultSaveKey.
func NewGateway(store storage.Store, key string, eventLog *events.EventLog, log *logger.Logger, m *metrics.Collector) *Gateway {
	return NewGatewayForSession(store, key, uuid.NewString(), eventLog, log, m)
}

// NewGatewayForSession is NewGateway with a caller-chosen session id, so the
// event history and the save record can share it.
func NewGatewayForSession(store storage.Store, key, session string, eventLog *events.EventLog, log *logger.Logger, m *metrics.Collector) *Gateway {
	if key == "" {
		key = DefaultSaveKey
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Gateway{
		store:    store,
		key:      key,
		session:  session,
		eventLog: eventLog,
		logger:   log,
		metrics:  m,
		now:      time.Now,
	}
}

// Session identifies this process in the records it writes.
func (g *Gateway) Session() string {
	return g.session
}

// Save writes the persisted subset of s.
func (g *Gateway) Save(ctx context.Context, s engine.Snapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.save(ctx, s)
}

// SaveFrom takes the snapshot from source while holding the write lock and
// saves it.
func (g *Gateway) SaveFrom(ctx context.Context, source func() engine.Snapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.save(ctx, source())
}

// Restart runs wipe, deletes the record and saves the snapshot wipe
// returns, all under the write lock. A save racing the restart lands
// either before the delete or after with post-wipe state.
func (g *Gateway) Restart(ctx context.Context, wipe func() engine.Snapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	fresh := wipe()
	if err := g.reset(ctx); err != nil {
		return err
	}
	return g.save(ctx, fresh)
}

func (g *Gateway) save(ctx context.Context, s engine.Snapshot) error {
	start := time.Now()
	rec := RecordFromSnapshot(s)
	rec.LastSave = g.now().UnixMilli()
	rec.Session = g.session

	data, err := json.Marshal(rec)
	if err == nil {
		err = g.store.Set(ctx, g.key, data)
	}
	if g.metrics != nil {
		g.metrics.RecordSave(time.Since(start), err)
	}
	if err != nil {
		return fmt.Errorf("save %q: %w", g.key, err)
	}

	if g.eventLog != nil {
		g.eventLog.Emit(events.EventTypeGameSaved, events.ActorSystem, GameSavedPayload{Bytes: len(data), Key: g.key})
	}
	return nil
}

// Load reads the save record. A missing or undecodable record yields a
// first-run game; only store failures are returned as errors, and even
// then the returned snapshot is a usable first-run game.
func (g *Gateway) Load(ctx context.Context) (engine.Snapshot, LoadResult, error) {
	fresh := DefaultRecord()

	data, err := g.store.Get(ctx, g.key)
	if errors.Is(err, storage.ErrNotFound) {
		g.recordLoad(false)
		g.emitLoaded(LoadResult{})
		return fresh.Snapshot(), LoadResult{}, nil
	}
	if err != nil {
		g.recordLoad(true)
		return fresh.Snapshot(), LoadResult{}, fmt.Errorf("load %q: %w", g.key, err)
	}

	rec := DefaultRecord()
	if err := json.Unmarshal(data, &rec); err != nil {
		g.logger.Warn("save record is corrupt, starting fresh", "key", g.key, "error", err)
		g.recordLoad(true)
		res := LoadResult{Found: true, Corrupt: true}
		g.emitLoaded(res)
		return fresh.Snapshot(), res, nil
	}
	rec.repair()

	res := LoadResult{Found: true}
	if rec.LastSave > 0 {
		res.LastSave = time.UnixMilli(rec.LastSave)
		if off := g.now().Sub(res.LastSave); off > 0 {
			res.Offline = off
		}
	}
	g.logger.Info("save loaded", "key", g.key, "offline", res.Offline.Round(time.Second))
	g.recordLoad(false)
	g.emitLoaded(res)
	return rec.Snapshot(), res, nil
}

// Reset deletes the save record.
func (g *Gateway) Reset(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reset(ctx)
}

func (g *Gateway) reset(ctx context.Context) error {
	if err := g.store.Delete(ctx, g.key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("reset %q: %w", g.key, err)
	}
	g.logger.Warn("save record deleted", "key", g.key)
	return nil
}

func (g *Gateway) recordLoad(fellBack bool) {
	if g.metrics != nil {
		g.metrics.RecordLoad(fellBack)
	}
}

func (g *Gateway) emitLoaded(res LoadResult) {
	if g.eventLog == nil {
		return
	}
	g.eventLog.Emit(events.EventTypeGameLoaded, events.ActorSystem, GameLoadedPayload{
		Found:          res.Found,
		Corrupt:        res.Corrupt,
		OfflineSeconds: res.Offline.Seconds(),
	})
}
