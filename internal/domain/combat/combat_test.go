package combat

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/cosmic-idle/server/internal/domain/rules"
)

func TestNewEnemyStageOne(t *testing.T) {
	e := NewEnemy(1)

	if e.Name != "Void Drone Mk.1" {
		t.Errorf("Expected name Void Drone Mk.1, got %s", e.Name)
	}
	if e.MaxHP != 20 || e.CurrentHP != 20 || e.Damage != 2 {
		t.Errorf("Expected 20 HP and 2 damage, got %v/%v", e.MaxHP, e.Damage)
	}
	if e.AttackCooldown != 2.45 {
		t.Errorf("Expected cooldown 2.45, got %v", e.AttackCooldown)
	}
	if e.XPReward != 5 || e.Reward.Stardust != 10 || e.Reward.Essence != 1 {
		t.Errorf("Unexpected rewards: xp %v, loot %+v", e.XPReward, e.Reward)
	}
}

func TestEnemyCooldownFloor(t *testing.T) {
	if got := NewEnemy(100).AttackCooldown; got != 0.5 {
		t.Errorf("Expected cooldown floor 0.5, got %v", got)
	}
}

func TestEnemyMaxHPClosedForm(t *testing.T) {
	tests := []struct {
		stage int
		want  float64
	}{
		{1, 20},
		{2, 25},
		{3, 31},
		{4, 39},
		{5, 48},
		{10, 149},
		{20, 1387},
	}
	for _, tt := range tests {
		if got := NewEnemy(tt.stage).MaxHP; got != tt.want {
			t.Errorf("Stage %d: expected max HP %v, got %v", tt.stage, tt.want, got)
		}
	}
}

func TestEnemyMaxHPStrictlyIncreasesToLastStage(t *testing.T) {
	prev := NewEnemy(1).MaxHP
	for stage := 2; stage <= rules.MaxStage; stage++ {
		hp := NewEnemy(stage).MaxHP
		if math.IsInf(hp, 0) || math.IsNaN(hp) {
			t.Fatalf("Stage %d: expected finite max HP, got %v", stage, hp)
		}
		if hp <= prev {
			t.Fatalf("Stage %d: expected max HP above %v, got %v", stage, prev, hp)
		}
		if want := math.Floor(20 * math.Pow(1.25, float64(stage-1))); hp != want {
			t.Fatalf("Stage %d: expected floor(20*1.25^(s-1)) = %v, got %v", stage, want, hp)
		}
		prev = hp
	}
}

func TestLastStageEnemyEncodes(t *testing.T) {
	s := New()
	s.Restore(rules.MaxStage, rules.MaxStage, true)
	s.Spawn()

	if _, err := json.Marshal(s); err != nil {
		t.Errorf("Expected last-stage state to encode, got %v", err)
	}
}

func TestSpawnGivesPlayerFirstStrike(t *testing.T) {
	s := New()
	s.Spawn()

	if s.Status != StatusFighting || s.Enemy == nil {
		t.Fatalf("Expected a fight, got %s", s.Status)
	}
	if s.PlayerCooldown >= s.EnemyCooldown {
		t.Errorf("Expected player cooldown %v below enemy %v", s.PlayerCooldown, s.EnemyCooldown)
	}
}

func TestAdvanceAfterVictory(t *testing.T) {
	tests := []struct {
		name         string
		stage, max   int
		autoProgress bool
		wantStage    int
		wantMax      int
		wantUnlocked bool
	}{
		{"frontier with auto-progress", 1, 1, true, 2, 2, true},
		{"frontier without auto-progress", 1, 1, false, 1, 2, true},
		{"farming below frontier", 2, 5, true, 2, 5, false},
		{"last stage unlocks nothing", rules.MaxStage, rules.MaxStage, true, rules.MaxStage, rules.MaxStage, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.Restore(tt.stage, tt.max, tt.autoProgress)
			s.Spawn()

			unlocked := s.AdvanceAfterVictory()

			if unlocked != tt.wantUnlocked || s.Stage != tt.wantStage || s.MaxUnlockedStage != tt.wantMax {
				t.Errorf("Expected %d/%d unlocked=%v, got %d/%d unlocked=%v",
					tt.wantStage, tt.wantMax, tt.wantUnlocked, s.Stage, s.MaxUnlockedStage, unlocked)
			}
			if s.Status != StatusRespawning || s.Enemy != nil {
				t.Errorf("Expected cleared fight, got %s", s.Status)
			}
		})
	}
}

func TestRetreatAfterDeath(t *testing.T) {
	s := New()
	s.RetreatAfterDeath()
	if s.Stage != 1 {
		t.Errorf("Expected stage to stay at 1, got %d", s.Stage)
	}

	s.Restore(4, 4, true)
	s.RetreatAfterDeath()
	if s.Stage != 3 || s.MaxUnlockedStage != 4 {
		t.Errorf("Expected 3/4, got %d/%d", s.Stage, s.MaxUnlockedStage)
	}
}

func TestSetStage(t *testing.T) {
	s := New()
	s.Restore(3, 3, true)
	s.Spawn()

	if s.SetStage(4) || s.SetStage(0) {
		t.Error("Expected out-of-range stages to be rejected")
	}
	if !s.SetStage(2) {
		t.Fatal("Expected stage 2 to be accepted")
	}
	if s.Stage != 2 || s.Enemy != nil || s.Status != StatusRespawning {
		t.Errorf("Expected fight discarded at stage 2, got %+v", s)
	}
}

func TestRestoreRepairs(t *testing.T) {
	s := New()
	s.Restore(0, -3, false)
	if s.Stage != 1 || s.MaxUnlockedStage != 1 || s.AutoProgress {
		t.Errorf("Expected 1/1 autoProgress off, got %+v", s)
	}

	s.Restore(7, 2, true)
	if s.MaxUnlockedStage != 7 {
		t.Errorf("Expected max raised to stage, got %d", s.MaxUnlockedStage)
	}

	s.Restore(5000, 9000, true)
	if s.Stage != rules.MaxStage || s.MaxUnlockedStage != rules.MaxStage {
		t.Errorf("Expected stages capped at %d, got %d/%d", rules.MaxStage, s.Stage, s.MaxUnlockedStage)
	}
}

func TestCloneCopiesEnemy(t *testing.T) {
	s := New()
	s.Spawn()
	c := s.Clone()
	c.Enemy.CurrentHP = 0

	if s.Enemy.CurrentHP == 0 {
		t.Error("Expected clone enemy to be independent")
	}
}
