package engine

import (
	"math"
	"testing"

	"github.com/cosmic-idle/server/internal/domain/combat"
	"github.com/cosmic-idle/server/internal/domain/economy"
	"github.com/cosmic-idle/server/internal/domain/player"
	"github.com/cosmic-idle/server/internal/domain/prestige"
	"github.com/cosmic-idle/server/internal/domain/rules"
	"github.com/cosmic-idle/server/internal/events"
	"github.com/cosmic-idle/server/internal/platform/logger"
)

type combatFixture struct {
	cs   *CombatSystem
	st   *combat.State
	p    *player.Player
	econ *economy.Economy
	ps   *prestige.State
	el   *events.EventLog
}

func newCombatFixture() *combatFixture {
	el := events.NewEventLog(nil)
	ps := prestige.New(nil)
	p := player.New()
	econ := economy.New(nil, ps)
	st := combat.New()
	return &combatFixture{
		cs:   NewCombatSystem(st, p, econ, ps, el, logger.Discard(), nil),
		st:   st,
		p:    p,
		econ: econ,
		ps:   ps,
		el:   el,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFirstTickSpawnsEnemy(t *testing.T) {
	f := newCombatFixture()

	f.cs.Tick(0.05)

	if f.st.Status != combat.StatusFighting {
		t.Fatalf("Expected FIGHTING, got %s", f.st.Status)
	}
	if f.st.Enemy == nil || f.st.Enemy.MaxHP != 20 {
		t.Fatalf("Expected stage 1 enemy with 20 HP, got %+v", f.st.Enemy)
	}
	if f.st.PlayerCooldown != 0.5 || f.st.EnemyCooldown != 1.5 {
		t.Errorf("Expected opening cooldowns 0.5/1.5, got %v/%v", f.st.PlayerCooldown, f.st.EnemyCooldown)
	}
	if len(f.el.GetByType(events.EventTypeEnemySpawned)) != 1 {
		t.Error("Expected one ENEMY_SPAWNED event")
	}
}

func TestPlayerStrikesFirst(t *testing.T) {
	f := newCombatFixture()
	f.cs.Tick(0.05) // spawn

	f.cs.Tick(0.5)

	if f.st.Enemy.CurrentHP != 13 {
		t.Errorf("Expected enemy HP 13 after one hit of 7, got %v", f.st.Enemy.CurrentHP)
	}
	wantCd := 2 * math.Pow(0.96, 5)
	if !almostEqual(f.st.PlayerCooldown, wantCd) {
		t.Errorf("Expected player cooldown reset to %v, got %v", wantCd, f.st.PlayerCooldown)
	}
	if !almostEqual(f.st.EnemyCooldown, 1.0) {
		t.Errorf("Expected enemy cooldown 1.0, got %v", f.st.EnemyCooldown)
	}
	if f.p.CurrentHP != 100 {
		t.Errorf("Enemy should not have struck yet, HP %v", f.p.CurrentHP)
	}
}

func TestEnemyStrikeThroughDefense(t *testing.T) {
	f := newCombatFixture()
	f.cs.Tick(0.05)
	f.st.PlayerCooldown = 10 // keep the player out of it

	f.cs.Tick(1.5)

	// 2 damage against 1 defense
	if f.p.CurrentHP != 99 {
		t.Errorf("Expected HP 99, got %v", f.p.CurrentHP)
	}
	if f.st.EnemyCooldown != f.st.Enemy.AttackCooldown {
		t.Errorf("Expected enemy cooldown reset to %v, got %v", f.st.Enemy.AttackCooldown, f.st.EnemyCooldown)
	}
}

func TestVictoryAtFrontierAutoAdvances(t *testing.T) {
	f := newCombatFixture()
	f.cs.Tick(0.05)
	f.st.Enemy.CurrentHP = 1

	f.cs.Tick(0.5)

	if f.st.Status != combat.StatusRespawning || f.st.Enemy != nil {
		t.Fatalf("Expected RESPAWNING with no enemy, got %s %+v", f.st.Status, f.st.Enemy)
	}
	if f.st.Stage != 2 || f.st.MaxUnlockedStage != 2 {
		t.Errorf("Expected stage 2/2, got %d/%d", f.st.Stage, f.st.MaxUnlockedStage)
	}
	if f.econ.Resources.Stardust != 10 || f.econ.Resources.Essence != 1 {
		t.Errorf("Expected loot 10 stardust 1 essence, got %+v", f.econ.Resources)
	}
	if f.p.XP != 5 {
		t.Errorf("Expected 5 XP, got %v", f.p.XP)
	}
	if len(f.el.GetByType(events.EventTypeStageUnlocked)) != 1 {
		t.Error("Expected STAGE_UNLOCKED event")
	}
}

func TestKillPreventsEnemyCounterattack(t *testing.T) {
	f := newCombatFixture()
	f.cs.Tick(0.05)
	f.st.Enemy.CurrentHP = 1

	// both cooldowns expire in the same tick
	f.cs.Tick(2)

	if f.p.CurrentHP != 100 {
		t.Errorf("Dead enemy should not strike, HP %v", f.p.CurrentHP)
	}
}

func TestVictoryBelowFrontierStays(t *testing.T) {
	f := newCombatFixture()
	f.st.Restore(3, 5, true)
	f.cs.Tick(0.05)
	f.st.Enemy.CurrentHP = 1

	f.cs.Tick(0.5)

	if f.st.Stage != 3 || f.st.MaxUnlockedStage != 5 {
		t.Errorf("Expected stage 3/5, got %d/%d", f.st.Stage, f.st.MaxUnlockedStage)
	}
}

func TestVictoryWithAutoProgressOff(t *testing.T) {
	f := newCombatFixture()
	f.st.ToggleAutoProgress()
	f.cs.Tick(0.05)
	f.st.Enemy.CurrentHP = 1

	f.cs.Tick(0.5)

	if f.st.Stage != 1 || f.st.MaxUnlockedStage != 2 {
		t.Errorf("Expected stage 1 with 2 unlocked, got %d/%d", f.st.Stage, f.st.MaxUnlockedStage)
	}
}

func TestDeathStepsBackAndHeals(t *testing.T) {
	f := newCombatFixture()
	f.st.Restore(4, 4, true)
	f.cs.Tick(0.05)
	f.p.CurrentHP = 0

	f.cs.Tick(0.05)

	if f.st.Stage != 3 || f.st.MaxUnlockedStage != 4 {
		t.Errorf("Expected stage 3 with 4 unlocked, got %d/%d", f.st.Stage, f.st.MaxUnlockedStage)
	}
	if f.p.CurrentHP != 100 {
		t.Errorf("Expected full heal, got %v", f.p.CurrentHP)
	}
	if f.st.Status != combat.StatusRespawning {
		t.Errorf("Expected RESPAWNING, got %s", f.st.Status)
	}
	if len(f.el.GetByType(events.EventTypePlayerDied)) != 1 {
		t.Error("Expected PLAYER_DIED event")
	}
}

func TestDeathAtStageOneStays(t *testing.T) {
	f := newCombatFixture()
	f.cs.Tick(0.05)
	f.p.CurrentHP = 0

	f.cs.Tick(0.05)

	if f.st.Stage != 1 {
		t.Errorf("Expected stage 1, got %d", f.st.Stage)
	}
}

func TestAutoHealSpendsEnergy(t *testing.T) {
	f := newCombatFixture()
	f.cs.Tick(0.05)
	f.p.SetAutoHeal(50)
	f.p.CurrentHP = 40
	f.econ.Resources.Energy = 15

	f.cs.Tick(0.01)

	if f.p.CurrentHP != 50 {
		t.Errorf("Expected heal of 10%% max HP to 50, got %v", f.p.CurrentHP)
	}
	if f.econ.Resources.Energy != 5 {
		t.Errorf("Expected energy 5, got %v", f.econ.Resources.Energy)
	}

	// Not enough energy for a second heal
	f.p.CurrentHP = 40
	f.cs.Tick(0.01)
	if f.p.CurrentHP != 40 {
		t.Errorf("Expected no heal without energy, got %v", f.p.CurrentHP)
	}
}

func TestOverclockDrainsEnergy(t *testing.T) {
	f := newCombatFixture()
	f.p.EquipModule(rules.ModuleOverclock)
	f.cs.Tick(0.05)
	f.econ.Resources.Energy = 1

	f.cs.Tick(0.25)
	if !almostEqual(f.econ.Resources.Energy, 0.75) {
		t.Errorf("Expected energy 0.75, got %v", f.econ.Resources.Energy)
	}

	// Short energy: drain skipped, combat continues
	f.econ.Resources.Energy = 0.1
	f.cs.Tick(0.25)
	if f.econ.Resources.Energy != 0.1 {
		t.Errorf("Expected drain skipped, got %v", f.econ.Resources.Energy)
	}
}

func TestVampirismHealsOnStrike(t *testing.T) {
	f := newCombatFixture()
	f.p.EquipModule(rules.ModuleVampirism)
	f.cs.Tick(0.05)
	f.p.CurrentHP = 50

	f.cs.Tick(0.5)

	// INT 1: 2 + floor(0.2)
	if f.p.CurrentHP != 52 {
		t.Errorf("Expected HP 52, got %v", f.p.CurrentHP)
	}
}

func TestMatterConversionBonus(t *testing.T) {
	f := newCombatFixture()
	f.ps.DarkMatter = 3
	f.ps.BuyArtifact(prestige.ArtifactMatterConversion)
	f.cs.Tick(0.05)
	f.st.Enemy.CurrentHP = 1

	f.cs.Tick(0.5)

	// 10 loot + floor(20 * 0.5)
	if f.econ.Resources.Stardust != 20 {
		t.Errorf("Expected 20 stardust, got %v", f.econ.Resources.Stardust)
	}
}

func TestTimeDilationShortensCooldowns(t *testing.T) {
	f := newCombatFixture()
	f.ps.DarkMatter = 1
	f.ps.BuyArtifact(prestige.ArtifactTimeDilation)
	f.cs.Tick(0.05)

	f.cs.Tick(0.2)

	if !almostEqual(f.st.EnemyCooldown, 1.2) {
		t.Errorf("Expected enemy cooldown 1.5 - 0.3, got %v", f.st.EnemyCooldown)
	}
}
