// Package simulation drives the engine with simulated time to check
// balance properties headlessly. Nothing here touches a clock or storage.
package simulation

import (
	"context"
	"math"
	"time"

	"github.com/cosmic-idle/server/internal/engine"
	"github.com/cosmic-idle/server/internal/events"
	"github.com/cosmic-idle/server/internal/platform/logger"
)

// DefaultStep is the simulated tick length, matching the server's loop.
const DefaultStep = 0.05

// Outcome is what a scenario reports about itself.
type Outcome struct {
	Expected string
	Actual   string
	Passed   bool
}

// Scenario is one scripted balance check.
type Scenario struct {
	Name        string
	Description string
	Run         func(r *Runner) Outcome
}

// Result captures the outcome of each scenario.
type Result struct {
	ScenarioName string        `json:"scenario"`
	Expected     string        `json:"expected"`
	Actual       string        `json:"actual"`
	Passed       bool          `json:"passed"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Runner builds fresh engines and advances them in fixed steps.
type Runner struct {
	step   float64
	base   engine.Config
	logger *logger.Logger
}

// NewRunner creates a runner stepping by dt seconds. dt <= 0 uses
// DefaultStep.
func NewRunner(dt float64, base engine.Config, log *logger.Logger) *Runner {
	if dt <= 0 {
		dt = DefaultStep
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Runner{step: dt, base: base, logger: log}
}

// NewEngine creates a fresh engine. tweak may adjust a copy of the base
// balance first.
func (r *Runner) NewEngine(tweak func(*engine.Config)) *engine.Engine {
	cfg := r.base
	if tweak != nil {
		tweak(&cfg)
	}
	return engine.NewEngine(events.NewEventLog(nil), r.logger, cfg)
}

// Simulate advances e by d of game time and returns the number of steps.
func (r *Runner) Simulate(e *engine.Engine, d time.Duration) int {
	steps := int(math.Round(d.Seconds() / r.step))
	for i := 0; i < steps; i++ {
		e.Step(r.step)
	}
	return steps
}

// Run executes scenarios in order. It stops early if ctx is cancelled.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) []Result {
	results := make([]Result, 0, len(scenarios))
	for _, s := range scenarios {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		out := s.Run(r)
		res := Result{
			ScenarioName: s.Name,
			Expected:     out.Expected,
			Actual:       out.Actual,
			Passed:       out.Passed,
			Elapsed:      time.Since(start),
		}
		r.logger.Debug("scenario finished", "scenario", s.Name, "passed", res.Passed)
		results = append(results, res)
	}
	return results
}

// Summary counts passes and failures.
func Summary(results []Result) (passed, failed int) {
	for _, r := range results {
		if r.Passed {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}
