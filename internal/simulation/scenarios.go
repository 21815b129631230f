package simulation

import (
	"fmt"
	"math"
	"time"

	"github.com/cosmic-idle/server/internal/domain/economy"
	"github.com/cosmic-idle/server/internal/domain/prestige"
	"github.com/cosmic-idle/server/internal/engine"
)

const tolerance = 1e-6

// DefaultScenarios is the shipped balance suite.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{
			Name:        "fresh-player-clears-stage-1",
			Description: "A new character beats the first drone and unlocks stage 2 within 30s.",
			Run:         freshPlayerClearsStageOne,
		},
		{
			Name:        "autominer-drains-energy",
			Description: "One autoMiner and no collectors pushes energy below zero at -0.5/s.",
			Run:         autoMinerDrainsEnergy,
		},
		{
			Name:        "death-steps-stage-back",
			Description: "An under-geared player at stage 30 dies and retreats without losing the unlock.",
			Run:         deathStepsStageBack,
		},
		{
			Name:        "time-dilation-speeds-production",
			Description: "Owning Time Dilation multiplies production by 1.5.",
			Run:         timeDilationSpeedsProduction,
		},
		{
			Name:        "level-up-heals-and-grants-points",
			Description: "Crossing the XP threshold heals fully and grants 3 points.",
			Run:         levelUpHeals,
		},
		{
			Name:        "warp-jump-resets-run",
			Description: "A warp jump pays Dark Matter and resets player, economy and combat.",
			Run:         warpJumpResetsRun,
		},
	}
}

func mine(e *engine.Engine, n int) {
	for i := 0; i < n; i++ {
		e.ClickMine()
	}
}

func freshPlayerClearsStageOne(r *Runner) Outcome {
	e := r.NewEngine(nil)
	r.Simulate(e, 30*time.Second)

	s := e.Snapshot()
	return Outcome{
		Expected: "maxUnlockedStage >= 2",
		Actual:   fmt.Sprintf("maxUnlockedStage = %d", s.Combat.MaxUnlockedStage),
		Passed:   s.Combat.MaxUnlockedStage >= 2,
	}
}

func autoMinerDrainsEnergy(r *Runner) Outcome {
	e := r.NewEngine(nil)
	mine(e, 50)
	if !e.BuyBuilding(economy.AutoMiner) {
		return Outcome{Expected: "autoMiner purchased", Actual: "purchase rejected"}
	}
	r.Simulate(e, 10*time.Second)

	energy := e.Snapshot().Resources.Energy
	return Outcome{
		Expected: "energy = -5",
		Actual:   fmt.Sprintf("energy = %.4f", energy),
		Passed:   math.Abs(energy+5) < tolerance,
	}
}

func deathStepsStageBack(r *Runner) Outcome {
	e := r.NewEngine(nil)
	s := e.Snapshot()
	s.Combat.Stage = 30
	s.Combat.MaxUnlockedStage = 30
	e.Restore(s)

	r.Simulate(e, 5*time.Second)

	got := e.Snapshot().Combat
	return Outcome{
		Expected: "stage < 30, maxUnlockedStage = 30",
		Actual:   fmt.Sprintf("stage = %d, maxUnlockedStage = %d", got.Stage, got.MaxUnlockedStage),
		Passed:   got.Stage < 30 && got.MaxUnlockedStage == 30,
	}
}

func timeDilationSpeedsProduction(r *Runner) Outcome {
	energyAfter := func(dilated bool) float64 {
		e := r.NewEngine(func(c *engine.Config) { c.PrestigeRequirement = 0 })
		if dilated {
			e.Prestige()
			e.BuyArtifact(prestige.ArtifactTimeDilation)
		}
		mine(e, 15)
		e.BuyBuilding(economy.SolarCollector)
		r.Simulate(e, 10*time.Second)
		return e.Snapshot().Resources.Energy
	}

	base := energyAfter(false)
	fast := energyAfter(true)
	if base <= 0 {
		return Outcome{Expected: "baseline energy > 0", Actual: fmt.Sprintf("baseline energy = %.4f", base)}
	}
	ratio := fast / base
	return Outcome{
		Expected: "ratio = 1.5",
		Actual:   fmt.Sprintf("ratio = %.4f (%.2f / %.2f)", ratio, fast, base),
		Passed:   math.Abs(ratio-prestige.TimeDilationMultiplier) < tolerance,
	}
}

func levelUpHeals(r *Runner) Outcome {
	e := r.NewEngine(nil)
	s := e.Snapshot()
	s.Player.CurrentHP = 40
	e.Restore(s)

	e.AddXP(100)

	p := e.Snapshot().Player
	return Outcome{
		Expected: "level 2, 3 points, HP 100",
		Actual:   fmt.Sprintf("level %d, %d points, HP %.0f", p.Level, p.StatPoints, p.CurrentHP),
		Passed:   p.Level == 2 && p.StatPoints == 3 && p.CurrentHP == 100,
	}
}

func warpJumpResetsRun(r *Runner) Outcome {
	e := r.NewEngine(func(c *engine.Config) { c.PrestigeRequirement = 0 })
	r.Simulate(e, 10*time.Second)

	if !e.Prestige() {
		return Outcome{Expected: "warp jump applied", Actual: "warp jump rejected"}
	}

	s := e.Snapshot()
	reset := s.Player.Level == 1 && s.Resources == (economy.Resources{}) && s.Combat.Stage == 1 && s.Combat.MaxUnlockedStage == 1
	return Outcome{
		Expected: "darkMatter 1, fresh run",
		Actual: fmt.Sprintf("darkMatter %d, level %d, stage %d/%d, stardust %.0f",
			s.Prestige.DarkMatter, s.Player.Level, s.Combat.Stage, s.Combat.MaxUnlockedStage, s.Resources.Stardust),
		Passed: s.Prestige.DarkMatter == 1 && reset,
	}
}
