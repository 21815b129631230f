package engine

import (
	"sync"
	"time"

	"github.com/cosmic-idle/server/internal/domain/combat"
	"github.com/cosmic-idle/server/internal/domain/economy"
	"github.com/cosmic-idle/server/internal/domain/player"
	"github.com/cosmic-idle/server/internal/domain/prestige"
	"github.com/cosmic-idle/server/internal/domain/rules"
	"github.com/cosmic-idle/server/internal/events"
	"github.com/cosmic-idle/server/internal/platform/logger"
	"github.com/cosmic-idle/server/internal/platform/metrics"
)

// DefaultPrestigeRequirement is the highest-stage gate for a warp jump.
const DefaultPrestigeRequirement = 1000

// Config carries the balance knobs the engine is built with.
type Config struct {
	Buildings economy.Catalog
	Artifacts prestige.Catalog
	// PrestigeRequirement is the max unlocked stage needed to warp; 0 disables the gate.
	PrestigeRequirement int
	Metrics             *metrics.Collector
}

// DefaultConfig returns the shipped balance.
func DefaultConfig() Config {
	return Config{
		Buildings:           economy.DefaultCatalog(),
		Artifacts:           prestige.DefaultCatalog(),
		PrestigeRequirement: DefaultPrestigeRequirement,
	}
}

// Engine is the central orchestrator. It owns every model and serialises
// ticks and actions behind one lock, so a Snapshot is always consistent.
type Engine struct {
	mu sync.Mutex

	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  *metrics.Collector

	// Models
	player   *player.Player
	prestige *prestige.State
	economy  *economy.Economy
	combat   *combat.State

	// Sub-systems
	combatSystem *CombatSystem

	prestigeRequirement int
	now                 func() time.Time
}

// NewEngine builds fresh models and wires the combat system to them.
func NewEngine(eventLog *events.EventLog, log *logger.Logger, cfg Config) *Engine {
	if eventLog == nil {
		eventLog = events.NewEventLog(nil)
	}
	if log == nil {
		log = logger.Discard()
	}

	ps := prestige.New(cfg.Artifacts)
	p := player.New()
	econ := economy.New(cfg.Buildings, ps)
	cs := combat.New()

	e := &Engine{
		eventLog:            eventLog,
		logger:              log,
		metrics:             cfg.Metrics,
		player:              p,
		prestige:            ps,
		economy:             econ,
		combat:              cs,
		prestigeRequirement: cfg.PrestigeRequirement,
		now:                 time.Now,
	}
	e.combatSystem = NewCombatSystem(cs, p, econ, ps, eventLog, log, cfg.Metrics)
	return e
}

// EventLog returns the log the engine emits to.
func (e *Engine) EventLog() *events.EventLog {
	return e.eventLog
}

// Step advances the whole simulation by dt seconds: production first,
// then combat. dt is expected to be clamped by the driver.
func (e *Engine) Step(dt float64) {
	if dt <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.economy.Tick(dt)
	e.combatSystem.Tick(dt)
}

// ResourceTick advances production alone.
func (e *Engine) ResourceTick(dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.economy.Tick(dt)
}

// CombatTick advances combat alone.
func (e *Engine) CombatTick(dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.combatSystem.Tick(dt)
}

// canPrestigeLocked reports whether the warp gate is open. Caller holds mu.
func (e *Engine) canPrestigeLocked() bool {
	return e.prestigeRequirement <= 0 || e.combat.MaxUnlockedStage >= e.prestigeRequirement
}

// Prestige performs a warp jump: award Dark Matter, then reset the run.
// The prestige record itself survives.
func (e *Engine) Prestige() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.canPrestigeLocked() {
		return false
	}
	reached := e.combat.MaxUnlockedStage
	gain := e.prestige.Prestige()

	e.player.Reset()
	e.economy.Reset()
	e.combat.Reset()

	e.eventLog.Emit(events.EventTypePrestige, events.ActorPlayer, PrestigePayload{
		Gained:         gain,
		DarkMatter:     e.prestige.DarkMatter,
		TimesPrestiged: e.prestige.TimesPrestiged,
		ReachedStage:   reached,
	})
	e.logger.Info("warp jump", "dark_matter_gained", gain, "times", e.prestige.TimesPrestiged)
	if e.metrics != nil {
		e.metrics.RecordPrestige()
	}
	return true
}

// Wipe reinitialises every model, prestige included.
func (e *Engine) Wipe() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.player.Reset()
	e.economy.Reset()
	e.combat.Reset()
	e.prestige.Wipe()
	e.eventLog.Emit(events.EventTypeGameReset, events.ActorSystem, nil)
}

// Snapshot captures a consistent copy of every model.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	costs := make(map[economy.BuildingType]economy.Resources, len(economy.BuildingTypes))
	for _, t := range economy.BuildingTypes {
		if _, ok := e.economy.Catalog()[t]; ok {
			costs[t] = e.economy.NextCost(t)
		}
	}
	return Snapshot{
		Player:        *e.player,
		Stats:         e.player.Stats(),
		Resources:     e.economy.Resources,
		Buildings:     e.economy.Buildings,
		Production:    e.economy.Production,
		BuildingCosts: costs,
		GearCosts: map[player.GearType]economy.Resources{
			player.GearWeapon: economy.GearCost(e.player.WeaponTier),
			player.GearArmor:  economy.GearCost(e.player.ArmorTier),
		},
		Combat:              e.combat.Clone(),
		Prestige:            e.prestige.Clone(),
		CanPrestige:         e.canPrestigeLocked(),
		NextDarkMatter:      e.prestige.NextGain(),
		PrestigeRequirement: e.prestigeRequirement,
		TakenAt:             e.now(),
	}
}

// Restore installs persisted state. Values are repaired into their domains
// and combat restarts without an enemy.
func (e *Engine) Restore(s Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.prestige.Restore(s.Prestige)
	*e.player = s.Player
	e.player.Repair()
	e.economy.Restore(s.Resources, s.Buildings)
	e.combat.Restore(s.Combat.Stage, s.Combat.MaxUnlockedStage, s.Combat.AutoProgress)
}

// AllocatePoint spends one stat point.
func (e *Engine) AllocatePoint(attr player.Attribute) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.player.AllocatePoint(attr) {
		return false
	}
	e.applied(events.EventTypePointAllocated, PointPayload{Stat: attr, Remaining: e.player.StatPoints})
	return true
}

// EquipModule swaps the active module.
func (e *Engine) EquipModule(m rules.Module) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.player.EquipModule(m) {
		return false
	}
	e.applied(events.EventTypeModuleEquipped, ModulePayload{Module: m})
	return true
}

// SetAutoHeal snaps percent to [0,90] step 10 and stores it.
func (e *Engine) SetAutoHeal(percent int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	snapped := rules.SnapAutoHeal(percent)
	e.player.SetAutoHeal(snapped)
	e.applied(events.EventTypeAutoHealSet, AutoHealSetPayload{Percent: snapped})
	return snapped
}

// AddXP grants experience outside of combat and returns the levels gained.
func (e *Engine) AddXP(amount float64) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	levels := e.player.AddXP(amount)
	if levels > 0 {
		e.eventLog.Emit(events.EventTypeLevelUp, events.ActorPlayer, LevelUpPayload{
			Level:      e.player.Level,
			Gained:     levels,
			StatPoints: e.player.StatPoints,
		})
	}
	if e.metrics != nil {
		e.metrics.RecordAction()
	}
	return levels
}

// BuyBuilding buys one unit of t when affordable.
func (e *Engine) BuyBuilding(t economy.BuildingType) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.economy.BuyBuilding(t) {
		return false
	}
	e.applied(events.EventTypeBuildingPurchased, BuildingPayload{
		Building: t,
		Count:    e.economy.Buildings.Count(t),
		NextCost: e.economy.NextCost(t),
	})
	return true
}

// UpgradeGear pays for one tier of gear when affordable.
func (e *Engine) UpgradeGear(g player.GearType) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.economy.TryUpgradeGear(e.player, g) {
		return false
	}
	tier := e.player.WeaponTier
	if g == player.GearArmor {
		tier = e.player.ArmorTier
	}
	e.applied(events.EventTypeGearUpgraded, GearPayload{Gear: g, Tier: tier})
	return true
}

// ClickMine is manual income.
func (e *Engine) ClickMine() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.economy.ClickMine()
	if e.metrics != nil {
		e.metrics.RecordAction()
	}
}

// SetStage moves to an unlocked stage.
func (e *Engine) SetStage(stage int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.combat.SetStage(stage) {
		return false
	}
	e.applied(events.EventTypeStageChanged, StagePayload{
		Stage:            e.combat.Stage,
		MaxUnlockedStage: e.combat.MaxUnlockedStage,
	})
	return true
}

// ToggleAutoProgress flips frontier auto-advance and returns the new value.
func (e *Engine) ToggleAutoProgress() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	on := e.combat.ToggleAutoProgress()
	e.applied(events.EventTypeAutoProgress, AutoProgressPayload{Enabled: on})
	return on
}

// BuyArtifact spends Dark Matter on an artifact.
func (e *Engine) BuyArtifact(id prestige.ArtifactID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.prestige.BuyArtifact(id) {
		return false
	}
	e.applied(events.EventTypeArtifactPurchased, ArtifactPayload{
		Artifact:   id,
		DarkMatter: e.prestige.DarkMatter,
	})
	return true
}

// Catalogs returns the balance tables the engine was built with.
func (e *Engine) Catalogs() (economy.Catalog, prestige.Catalog) {
	return e.economy.Catalog(), e.prestige.Catalog()
}

// applied emits a player event and counts the action. Caller holds mu.
func (e *Engine) applied(t events.EventType, payload interface{}) {
	e.eventLog.Emit(t, events.ActorPlayer, payload)
	if e.metrics != nil {
		e.metrics.RecordAction()
	}
}
