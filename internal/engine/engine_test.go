package engine

import (
	"errors"
	"testing"

	"github.com/cosmic-idle/server/internal/domain/economy"
	"github.com/cosmic-idle/server/internal/domain/player"
	"github.com/cosmic-idle/server/internal/domain/prestige"
	"github.com/cosmic-idle/server/internal/domain/rules"
	"github.com/cosmic-idle/server/internal/events"
	"github.com/cosmic-idle/server/internal/platform/logger"
	"github.com/cosmic-idle/server/internal/platform/metrics"
)

func newTestEngine(cfg Config) (*Engine, *events.EventLog) {
	el := events.NewEventLog(nil)
	return NewEngine(el, logger.Discard(), cfg), el
}

func TestFreshSnapshot(t *testing.T) {
	e, _ := newTestEngine(DefaultConfig())

	s := e.Snapshot()

	if s.Stats.MaxHP != 100 || s.Stats.Damage != 7 || s.Stats.Defense != 1 {
		t.Errorf("Unexpected fresh stats: %+v", s.Stats)
	}
	if s.Combat.Stage != 1 || !s.Combat.AutoProgress {
		t.Errorf("Unexpected fresh combat: %+v", s.Combat)
	}
	if s.BuildingCosts[economy.AutoMiner].Stardust != 50 {
		t.Errorf("Expected autoMiner cost 50, got %+v", s.BuildingCosts[economy.AutoMiner])
	}
	if s.GearCosts[player.GearWeapon].Stardust != 100 {
		t.Errorf("Expected weapon cost 100, got %+v", s.GearCosts[player.GearWeapon])
	}
	if s.CanPrestige {
		t.Error("Fresh game should not be able to prestige")
	}
}

func TestAutoMinerEconomy(t *testing.T) {
	e, _ := newTestEngine(DefaultConfig())
	for i := 0; i < 60; i++ {
		e.ClickMine()
	}

	if !e.BuyBuilding(economy.AutoMiner) {
		t.Fatal("Expected purchase to succeed")
	}
	e.ResourceTick(10)

	s := e.Snapshot()
	if s.Resources.Stardust != 30 {
		t.Errorf("Expected stardust 10 + 20, got %v", s.Resources.Stardust)
	}
	if s.Resources.Energy != -5 {
		t.Errorf("Expected energy -5, got %v", s.Resources.Energy)
	}
	if s.BuildingCosts[economy.AutoMiner].Stardust != 57 {
		t.Errorf("Expected next cost floor(50*1.15)=57, got %v", s.BuildingCosts[economy.AutoMiner].Stardust)
	}
}

func TestPrestigeGate(t *testing.T) {
	e, el := newTestEngine(DefaultConfig())

	if e.Prestige() {
		t.Fatal("Prestige should be gated at stage 1")
	}
	if len(el.GetByType(events.EventTypePrestige)) != 0 {
		t.Error("Gated prestige must not emit")
	}
}

func TestPrestigeResetsRunKeepsDarkMatter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrestigeRequirement = 0
	cfg.Metrics = metrics.NewCollector()
	e, _ := newTestEngine(cfg)
	e.ClickMine()
	e.AddXP(100)
	e.Step(0.05)

	if !e.Prestige() {
		t.Fatal("Expected prestige with the gate disabled")
	}
	if !e.Prestige() {
		t.Fatal("Expected second prestige")
	}
	if !e.Prestige() {
		t.Fatal("Expected third prestige")
	}

	s := e.Snapshot()
	// gains 1, 1, 2
	if s.Prestige.DarkMatter != 4 || s.Prestige.TotalDarkMatter != 4 || s.Prestige.TimesPrestiged != 3 {
		t.Errorf("Unexpected prestige record: %+v", s.Prestige)
	}
	if s.Player.Level != 1 || s.Resources.Stardust != 0 || s.Combat.Enemy != nil {
		t.Errorf("Run was not reset: level %d stardust %v enemy %+v", s.Player.Level, s.Resources.Stardust, s.Combat.Enemy)
	}
	if cfg.Metrics.Prestiges != 3 {
		t.Errorf("Expected 3 prestiges recorded, got %d", cfg.Metrics.Prestiges)
	}
}

func TestBuyArtifactExactlyOnce(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrestigeRequirement = 0
	e, _ := newTestEngine(cfg)
	e.Prestige()
	e.Prestige()

	if !e.BuyArtifact(prestige.ArtifactTimeDilation) {
		t.Fatal("Expected purchase")
	}
	if e.BuyArtifact(prestige.ArtifactTimeDilation) {
		t.Error("Artifact bought twice")
	}
	if got := e.Snapshot().Prestige.DarkMatter; got != 1 {
		t.Errorf("Expected 1 dark matter left, got %d", got)
	}
}

func TestWipeClearsPrestige(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrestigeRequirement = 0
	e, el := newTestEngine(cfg)
	e.Prestige()

	e.Wipe()

	s := e.Snapshot()
	if s.Prestige.DarkMatter != 0 || s.Prestige.TimesPrestiged != 0 {
		t.Errorf("Expected prestige wiped, got %+v", s.Prestige)
	}
	if len(el.GetByType(events.EventTypeGameReset)) != 1 {
		t.Error("Expected GAME_RESET event")
	}
}

func TestSetAutoHealSnaps(t *testing.T) {
	e, _ := newTestEngine(DefaultConfig())

	tests := []struct {
		in   int
		want int
	}{
		{-5, 0},
		{0, 0},
		{37, 30},
		{90, 90},
		{150, 90},
	}
	for _, tt := range tests {
		if got := e.SetAutoHeal(tt.in); got != tt.want {
			t.Errorf("SetAutoHeal(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRestoreRepairs(t *testing.T) {
	e, _ := newTestEngine(DefaultConfig())
	s := e.Snapshot()
	s.Player.CurrentHP = 5000
	s.Player.ActiveModule = rules.Module("warp_core")
	s.Combat.Stage = 0
	s.Combat.MaxUnlockedStage = 0
	s.Buildings.AutoMiner = 2

	e.Restore(s)

	got := e.Snapshot()
	if got.Player.CurrentHP != 100 {
		t.Errorf("Expected HP clamped to 100, got %v", got.Player.CurrentHP)
	}
	if got.Player.ActiveModule != rules.ModuleNone {
		t.Errorf("Expected module none, got %s", got.Player.ActiveModule)
	}
	if got.Combat.Stage != 1 || got.Combat.MaxUnlockedStage != 1 {
		t.Errorf("Expected stage 1/1, got %d/%d", got.Combat.Stage, got.Combat.MaxUnlockedStage)
	}
	if got.Production.Stardust != 4 || got.Production.Energy != -1 {
		t.Errorf("Expected production recomputed, got %+v", got.Production)
	}
}

func TestDispatch(t *testing.T) {
	e, _ := newTestEngine(DefaultConfig())
	e.AddXP(100)

	applied, err := e.Dispatch(Action{Type: ActionAllocatePoint, Stat: "strength"})
	if err != nil || !applied {
		t.Fatalf("Expected allocate to apply, got %v %v", applied, err)
	}
	if got := e.Snapshot().Player.Strength; got != 6 {
		t.Errorf("Expected STR 6, got %d", got)
	}

	applied, err = e.Dispatch(Action{Type: ActionBuyBuilding, Building: "autoMiner"})
	if err != nil || applied {
		t.Errorf("Unaffordable purchase should be (false, nil), got %v %v", applied, err)
	}

	applied, err = e.Dispatch(Action{Type: ActionSetStage, Stage: 6})
	if err != nil || applied {
		t.Errorf("Locked stage should be (false, nil), got %v %v", applied, err)
	}
}

func TestDispatchRejectsMalformed(t *testing.T) {
	e, _ := newTestEngine(DefaultConfig())

	tests := []struct {
		name   string
		action Action
		want   error
	}{
		{"unknown type", Action{Type: "DANCE"}, ErrUnknownAction},
		{"unknown stat", Action{Type: ActionAllocatePoint, Stat: "luck"}, ErrInvalidArgument},
		{"unknown module", Action{Type: ActionEquipModule, Module: "laser"}, ErrInvalidArgument},
		{"unknown building", Action{Type: ActionBuyBuilding, Building: "farm"}, ErrInvalidArgument},
		{"unknown gear", Action{Type: ActionUpgradeGear, Gear: "boots"}, ErrInvalidArgument},
		{"unknown artifact", Action{Type: ActionBuyArtifact, Artifact: "ankh"}, ErrInvalidArgument},
		{"negative xp", Action{Type: ActionAddXP, Amount: -1}, ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Dispatch(tt.action)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestActionsEmitEvents(t *testing.T) {
	e, el := newTestEngine(DefaultConfig())

	e.EquipModule(rules.ModulePlating)
	e.ToggleAutoProgress()

	if len(el.GetByType(events.EventTypeModuleEquipped)) != 1 {
		t.Error("Expected MODULE_EQUIPPED")
	}
	if len(el.GetByType(events.EventTypeAutoProgress)) != 1 {
		t.Error("Expected AUTO_PROGRESS_TOGGLED")
	}
	// Rejected actions stay silent
	e.AllocatePoint(player.AttrStrength)
	if len(el.GetByType(events.EventTypePointAllocated)) != 0 {
		t.Error("Rejected allocation emitted an event")
	}
}

func TestStepRunsProductionThenCombat(t *testing.T) {
	e, _ := newTestEngine(DefaultConfig())

	e.Step(0.05)
	e.Step(0)
	e.Step(-1)

	s := e.Snapshot()
	if s.Combat.Enemy == nil {
		t.Fatal("Expected an enemy after the first step")
	}
	if s.Combat.PlayerCooldown != 0.5 {
		t.Errorf("Non-positive steps should be ignored, cooldown %v", s.Combat.PlayerCooldown)
	}
}
