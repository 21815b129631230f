// Package engine - ticker.go
// The Ticker does NOT know about players or enemies. It measures elapsed
// real time and hands it to a Stepper; the Engine does the rest.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/cosmic-idle/server/internal/platform/logger"
	"github.com/cosmic-idle/server/internal/platform/metrics"
)

// Default loop cadence.
const (
	DefaultTickInterval = 50 * time.Millisecond
	DefaultMaxTickDelta = time.Second
)

// Clock is the time source of the loop. time.Time values from time.Now
// carry a monotonic reading, so wall clock jumps do not leak into dt.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Stepper advances a simulation by dt seconds.
type Stepper interface {
	Step(dt float64)
}

// Ticker manages the game loop heartbeat.
type Ticker struct {
	stepper  Stepper
	clock    Clock
	interval time.Duration
	maxDelta time.Duration
	logger   *logger.Logger
	metrics  *metrics.Collector

	mu         sync.Mutex
	last       time.Time
	tickNumber int64

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewTicker creates a loop driving stepper every interval. Elapsed time
// above maxDelta is discarded, so a stalled process does not replay a
// burst on resume.
func NewTicker(stepper Stepper, clock Clock, interval, maxDelta time.Duration, log *logger.Logger, m *metrics.Collector) *Ticker {
	if clock == nil {
		clock = SystemClock{}
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if maxDelta <= 0 {
		maxDelta = DefaultMaxTickDelta
	}
	return &Ticker{
		stepper:  stepper,
		clock:    clock,
		interval: interval,
		maxDelta: maxDelta,
		logger:   log,
		metrics:  m,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the game loop. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	defer close(t.done)
	t.logger.Info("game loop started", "interval", t.interval, "max_delta", t.maxDelta)

	t.mu.Lock()
	t.last = t.clock.Now()
	t.mu.Unlock()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("game loop stopped by context")
			return
		case <-t.stopChan:
			t.logger.Info("game loop stopped")
			return
		case <-ticker.C:
			t.Tick()
		}
	}
}

// Stop halts the loop. Safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// Done is closed once Start has returned.
func (t *Ticker) Done() <-chan struct{} {
	return t.done
}

// Tick measures time since the previous tick and steps the simulation.
// It returns the dt handed to the stepper.
func (t *Ticker) Tick() float64 {
	t.mu.Lock()
	now := t.clock.Now()
	if t.last.IsZero() {
		t.last = now
	}
	elapsed := now.Sub(t.last)
	t.last = now
	t.tickNumber++
	t.mu.Unlock()

	if elapsed < 0 {
		elapsed = 0
	}
	clamped := elapsed > t.maxDelta
	if clamped {
		elapsed = t.maxDelta
	}

	dt := elapsed.Seconds()
	start := time.Now()
	t.stepper.Step(dt)
	if t.metrics != nil {
		t.metrics.RecordTick(time.Since(start), clamped)
	}
	return dt
}

// TickNumber returns how many ticks have run.
func (t *Ticker) TickNumber() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tickNumber
}
