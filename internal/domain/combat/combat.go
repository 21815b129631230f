// Package combat defines the combat state machine data: status, the current
// enemy, cooldowns and stage progression. Tick resolution lives in the
// engine, which owns the references to the other models.
package combat

import (
	"fmt"
	"math"

	"github.com/cosmic-idle/server/internal/domain/rules"
)

// Status is the combat state machine state.
type Status string

const (
	StatusIdle       Status = "IDLE"       // cold start, no enemy
	StatusFighting   Status = "FIGHTING"   // enemy present, cooldowns ticking
	StatusRespawning Status = "RESPAWNING" // enemy cleared, next spawn pending
)

// Opening cooldowns give the player the first strike.
const (
	OpeningPlayerCooldown = 0.5
	OpeningEnemyCooldown  = 1.5
)

// Loot is the resource reward of an enemy.
type Loot struct {
	Stardust float64 `json:"stardust"`
	Essence  float64 `json:"essence"`
}

// Enemy is a generated opponent.
type Enemy struct {
	Name           string  `json:"name"`
	Level          int     `json:"level"`
	CurrentHP      float64 `json:"currentHp"`
	MaxHP          float64 `json:"maxHp"`
	Damage         float64 `json:"damage"`
	AttackCooldown float64 `json:"attackCooldown"`
	XPReward       float64 `json:"xpReward"`
	Reward         Loot    `json:"resourceReward"`
}

// NewEnemy generates the enemy for a stage. HP and damage compound
// geometrically; attack speed only approaches its floor linearly.
func NewEnemy(stage int) Enemy {
	scale := rules.EnemyScale(stage)
	hp := math.Floor(20 * scale)
	return Enemy{
		Name:           fmt.Sprintf("Void Drone Mk.%d", stage),
		Level:          stage,
		CurrentHP:      hp,
		MaxHP:          hp,
		Damage:         math.Floor(2 * scale),
		AttackCooldown: math.Max(0.5, 2.5-float64(stage)*0.05),
		XPReward:       math.Floor(5 * scale),
		Reward: Loot{
			Stardust: math.Floor(10 * scale),
			Essence:  math.Floor(1 + float64(stage)*0.5),
		},
	}
}

// State is the combat record.
type State struct {
	Status           Status  `json:"status"`
	Enemy            *Enemy  `json:"enemy"`
	PlayerCooldown   float64 `json:"playerCooldown"`
	EnemyCooldown    float64 `json:"enemyCooldown"`
	Stage            int     `json:"stage"`
	MaxUnlockedStage int     `json:"maxUnlockedStage"`
	AutoProgress     bool    `json:"autoProgress"`
}

// New creates the cold-start combat state.
func New() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset restores the cold-start state in place.
func (s *State) Reset() {
	*s = State{
		Status:           StatusIdle,
		Stage:            1,
		MaxUnlockedStage: 1,
		AutoProgress:     true,
	}
}

// Restore installs a persisted stage position, clamped to
// [1, rules.MaxStage]. The fight itself is never persisted; the next tick
// spawns a fresh enemy.
func (s *State) Restore(stage, maxUnlocked int, autoProgress bool) {
	s.Reset()
	stage = min(max(stage, 1), rules.MaxStage)
	maxUnlocked = min(max(maxUnlocked, stage), rules.MaxStage)
	s.Stage = stage
	s.MaxUnlockedStage = maxUnlocked
	s.AutoProgress = autoProgress
}

// Spawn starts a fight against a fresh enemy for the current stage.
func (s *State) Spawn() Enemy {
	e := NewEnemy(s.Stage)
	s.Status = StatusFighting
	s.Enemy = &e
	s.PlayerCooldown = OpeningPlayerCooldown
	s.EnemyCooldown = OpeningEnemyCooldown
	return e
}

// SetStage moves to a previously unlocked stage, discarding any fight in
// progress. Out-of-range stages are ignored.
func (s *State) SetStage(stage int) bool {
	if stage < 1 || stage > s.MaxUnlockedStage {
		return false
	}
	s.Stage = stage
	s.Status = StatusRespawning
	s.Enemy = nil
	return true
}

// ToggleAutoProgress flips frontier auto-advance.
func (s *State) ToggleAutoProgress() bool {
	s.AutoProgress = !s.AutoProgress
	return s.AutoProgress
}

// AdvanceAfterVictory applies stage progression for a cleared enemy and
// clears the fight. It reports whether a new stage was unlocked; nothing
// unlocks past rules.MaxStage.
func (s *State) AdvanceAfterVictory() (unlocked bool) {
	atFrontier := s.Stage == s.MaxUnlockedStage
	if atFrontier && s.MaxUnlockedStage < rules.MaxStage {
		s.MaxUnlockedStage++
		unlocked = true
		if s.AutoProgress {
			s.Stage = s.MaxUnlockedStage
		}
	}
	s.Status = StatusRespawning
	s.Enemy = nil
	return unlocked
}

// RetreatAfterDeath steps back one stage (never below 1) and clears the fight.
func (s *State) RetreatAfterDeath() {
	if s.Stage > 1 {
		s.Stage--
	}
	s.Status = StatusRespawning
	s.Enemy = nil
}

// Clone returns a deep copy.
func (s *State) Clone() State {
	c := *s
	if s.Enemy != nil {
		e := *s.Enemy
		c.Enemy = &e
	}
	return c
}
