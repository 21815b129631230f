// Package engine - combat_system.go
// Combat System - resolves one combat tick against the player, the economy
// and the prestige modifiers.
//
// Resolution order inside a FIGHTING tick is fixed:
// death check, overclock drain, auto-heal, cooldowns, player strike,
// enemy strike. A kill ends the tick before the enemy can answer.
package engine

import (
	"fmt"
	"math"

	"github.com/cosmic-idle/server/internal/domain/combat"
	"github.com/cosmic-idle/server/internal/domain/economy"
	"github.com/cosmic-idle/server/internal/domain/player"
	"github.com/cosmic-idle/server/internal/domain/prestige"
	"github.com/cosmic-idle/server/internal/domain/rules"
	"github.com/cosmic-idle/server/internal/events"
	"github.com/cosmic-idle/server/internal/platform/logger"
	"github.com/cosmic-idle/server/internal/platform/metrics"
)

const (
	// AutoHealCost is the energy price of one auto-heal.
	AutoHealCost = 10
	// AutoHealFraction of max HP is restored per auto-heal.
	AutoHealFraction = 0.1
	// OverclockDrainPerSecond is the energy upkeep of the overclock module.
	OverclockDrainPerSecond = 1
	// MatterConversionRate of an enemy's max HP is paid as bonus stardust.
	MatterConversionRate = 0.5
)

// EnemySpawnedPayload records a new fight.
type EnemySpawnedPayload struct {
	Stage int     `json:"stage"`
	Name  string  `json:"name"`
	MaxHP float64 `json:"max_hp"`
}

// EnemyDefeatedPayload records the rewards of a victory.
type EnemyDefeatedPayload struct {
	Stage         int     `json:"stage"`
	Name          string  `json:"name"`
	XP            float64 `json:"xp"`
	Stardust      float64 `json:"stardust"`
	BonusStardust float64 `json:"bonus_stardust"`
	Essence       float64 `json:"essence"`
}

// PlayerDiedPayload records the stage setback of a death.
type PlayerDiedPayload struct {
	Stage     int    `json:"stage"`
	NextStage int    `json:"next_stage"`
	KilledBy  string `json:"killed_by"`
}

// LevelUpPayload records levels gained in one XP grant.
type LevelUpPayload struct {
	Level      int `json:"level"`
	Gained     int `json:"gained"`
	StatPoints int `json:"stat_points"`
}

// StagePayload records stage movement.
type StagePayload struct {
	Stage            int `json:"stage"`
	MaxUnlockedStage int `json:"max_unlocked_stage"`
}

// AutoHealPayload records an automatic heal.
type AutoHealPayload struct {
	Healed      float64 `json:"healed"`
	EnergySpent float64 `json:"energy_spent"`
}

// CombatSystem advances the combat state machine.
type CombatSystem struct {
	state    *combat.State
	player   *player.Player
	economy  *economy.Economy
	prestige *prestige.State
	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  *metrics.Collector
}

// NewCombatSystem wires the combat state to the models it reads and writes.
func NewCombatSystem(
	state *combat.State,
	p *player.Player,
	econ *economy.Economy,
	ps *prestige.State,
	eventLog *events.EventLog,
	log *logger.Logger,
	m *metrics.Collector,
) *CombatSystem {
	return &CombatSystem{
		state:    state,
		player:   p,
		economy:  econ,
		prestige: ps,
		eventLog: eventLog,
		logger:   log,
		metrics:  m,
	}
}

// Tick advances combat by dt seconds of real time.
func (cs *CombatSystem) Tick(dt float64) {
	s := cs.state

	if s.Status == combat.StatusIdle || s.Status == combat.StatusRespawning {
		cs.spawn()
		return
	}
	if s.Status != combat.StatusFighting || s.Enemy == nil {
		return
	}

	p := cs.player

	// 1. Death check
	if p.IsDead() {
		cs.handlePlayerDeath()
		return
	}

	// 2. Overclock upkeep; silently skipped when energy is short
	if p.ActiveModule == rules.ModuleOverclock {
		cs.economy.SpendEnergy(dt * OverclockDrainPerSecond)
	}

	// 3. Auto-heal
	stats := p.Stats()
	if p.AutoHealThreshold > 0 && p.HPPercent() < float64(p.AutoHealThreshold) {
		if cs.economy.SpendEnergy(AutoHealCost) {
			before := p.CurrentHP
			p.Heal(stats.MaxHP * AutoHealFraction)
			cs.eventLog.Emit(events.EventTypeAutoHealTriggered, events.ActorSystem, AutoHealPayload{
				Healed:      p.CurrentHP - before,
				EnergySpent: AutoHealCost,
			})
		}
	}

	// 4-5. Cooldowns run on dilated time
	effectiveDt := dt * cs.prestige.SpeedMultiplier()
	s.PlayerCooldown = math.Max(0, s.PlayerCooldown-effectiveDt)
	s.EnemyCooldown = math.Max(0, s.EnemyCooldown-effectiveDt)

	// 6. Player strike
	if s.PlayerCooldown <= 0 {
		stats = p.Stats()
		s.Enemy.CurrentHP -= float64(stats.Damage)
		s.PlayerCooldown = stats.AttackCooldown

		if p.ActiveModule == rules.ModuleVampirism {
			p.Heal(stats.Modules.VampirismHeal)
		}

		if s.Enemy.CurrentHP <= 0 {
			cs.handleVictory()
			return
		}
	}

	// 7. Enemy strike
	if s.EnemyCooldown <= 0 {
		p.TakeDamage(s.Enemy.Damage)
		s.EnemyCooldown = s.Enemy.AttackCooldown
	}
}

func (cs *CombatSystem) spawn() {
	e := cs.state.Spawn()
	cs.eventLog.Emit(events.EventTypeEnemySpawned, events.ActorSystem, EnemySpawnedPayload{
		Stage: e.Level,
		Name:  e.Name,
		MaxHP: e.MaxHP,
	})
}

// handleVictory pays out the enemy and moves the stage frontier.
func (cs *CombatSystem) handleVictory() {
	s := cs.state
	enemy := *s.Enemy
	clearedStage := s.Stage

	var bonus float64
	if cs.prestige.Owns(prestige.ArtifactMatterConversion) {
		bonus = math.Floor(enemy.MaxHP * MatterConversionRate)
	}

	levels := cs.player.AddXP(enemy.XPReward)
	cs.economy.Grant(economy.Resources{
		Stardust: enemy.Reward.Stardust + bonus,
		Essence:  enemy.Reward.Essence,
	})

	unlocked := s.AdvanceAfterVictory()

	cs.eventLog.Emit(events.EventTypeEnemyDefeated, events.ActorPlayer, EnemyDefeatedPayload{
		Stage:         clearedStage,
		Name:          enemy.Name,
		XP:            enemy.XPReward,
		Stardust:      enemy.Reward.Stardust,
		BonusStardust: bonus,
		Essence:       enemy.Reward.Essence,
	})
	if levels > 0 {
		cs.eventLog.Emit(events.EventTypeLevelUp, events.ActorPlayer, LevelUpPayload{
			Level:      cs.player.Level,
			Gained:     levels,
			StatPoints: cs.player.StatPoints,
		})
	}
	if unlocked {
		cs.eventLog.Emit(events.EventTypeStageUnlocked, events.ActorSystem, StagePayload{
			Stage:            s.Stage,
			MaxUnlockedStage: s.MaxUnlockedStage,
		})
		cs.logger.Event(string(events.EventTypeStageUnlocked), events.ActorPlayer,
			fmt.Sprintf("frontier %d, fighting at %d", s.MaxUnlockedStage, s.Stage))
	}
	if cs.metrics != nil {
		cs.metrics.RecordVictory()
	}
}

// handlePlayerDeath costs one stage and a full heal; a run never ends here.
func (cs *CombatSystem) handlePlayerDeath() {
	s := cs.state
	died := s.Stage
	killer := ""
	if s.Enemy != nil {
		killer = s.Enemy.Name
	}

	cs.player.RestoreFullHP()
	s.RetreatAfterDeath()

	cs.eventLog.Emit(events.EventTypePlayerDied, events.ActorSystem, PlayerDiedPayload{
		Stage:     died,
		NextStage: s.Stage,
		KilledBy:  killer,
	})
	cs.logger.Debug("player died", "stage", died, "next_stage", s.Stage)
	if cs.metrics != nil {
		cs.metrics.RecordDeath()
	}
}
