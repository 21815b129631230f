package engine

import (
	"context"
	"sync"
	"time"

	"github.com/cosmic-idle/server/internal/platform/logger"
)

// DefaultAutosaveInterval matches the client's save cadence.
const DefaultAutosaveInterval = 10 * time.Second

// finalSaveTimeout bounds the forced save on shutdown.
const finalSaveTimeout = 5 * time.Second

// SaveFunc persists the current game.
type SaveFunc func(ctx context.Context) error

// Autosaver runs a SaveFunc on a fixed cadence, independent of the game
// loop, and forces one last save when stopped. The final save belongs to
// Stop alone: the owner stops every writer first, then calls Stop, so the
// last record written is the last state the engine reached.
type Autosaver struct {
	save     SaveFunc
	interval time.Duration
	logger   *logger.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewAutosaver creates an autosaver.
func NewAutosaver(save SaveFunc, interval time.Duration, log *logger.Logger) *Autosaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	return &Autosaver{
		save:     save,
		interval: interval,
		logger:   log,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start saves every interval until Stop is called, then saves once more.
// Cancelling ctx abandons the loop without a final save. Call in a
// goroutine.
func (a *Autosaver) Start(ctx context.Context) {
	defer close(a.done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Warn("autosave loop abandoned without final save")
			return
		case <-a.stopChan:
			a.final()
			return
		case <-ticker.C:
			if err := a.save(ctx); err != nil {
				a.logger.Error("autosave failed", "error", err)
			}
		}
	}
}

// final runs on a fresh context so a slow backend cannot hang shutdown.
func (a *Autosaver) final() {
	ctx, cancel := context.WithTimeout(context.Background(), finalSaveTimeout)
	defer cancel()
	if err := a.save(ctx); err != nil {
		a.logger.Error("final save failed", "error", err)
		return
	}
	a.logger.Info("final save written")
}

// Stop ends the loop after a final save. Safe to call more than once.
func (a *Autosaver) Stop() {
	a.stopOnce.Do(func() { close(a.stopChan) })
}

// Done is closed once the final save has completed.
func (a *Autosaver) Done() <-chan struct{} {
	return a.done
}
