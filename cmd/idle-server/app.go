package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cosmic-idle/server/internal/api"
	"github.com/cosmic-idle/server/internal/config"
	"github.com/cosmic-idle/server/internal/engine"
	"github.com/cosmic-idle/server/internal/events"
	"github.com/cosmic-idle/server/internal/infra/storage"
	"github.com/cosmic-idle/server/internal/network"
	"github.com/cosmic-idle/server/internal/persistence"
	"github.com/cosmic-idle/server/internal/platform/logger"
	"github.com/cosmic-idle/server/internal/platform/metrics"
)

const (
	eventPollInterval = 100 * time.Millisecond
	shutdownTimeout   = 10 * time.Second
)

// app owns every long-lived component of the server.
type app struct {
	cfg     *config.Config
	logger  *logger.Logger
	metrics *metrics.Collector

	backend   *storage.Backend
	eventLog  *events.EventLog
	engine    *engine.Engine
	gateway   *persistence.Gateway
	ticker    *engine.Ticker
	autosaver *engine.Autosaver
	hub       *network.Hub
	srv       *http.Server

	stopHub context.CancelFunc
}

// newApp opens storage, restores the saved game and wires the server. It
// starts no goroutines besides the event writer.
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger, m *metrics.Collector) (*app, error) {
	tuning := cfg.TuningPreset()

	log.Info("opening storage", "driver", cfg.Storage.Driver, "dsn", cfg.Storage.DSN)
	backend, err := storage.Open(ctx, storage.Options{
		Driver:       cfg.Storage.Driver,
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: tuning.DBMaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	session := uuid.NewString()
	var persister events.EventPersister
	var history storage.EventRepository
	if cfg.Storage.EventHistory {
		history = backend.Events
		persister = storage.NewEventLogPersister(history, session)
	}
	eventLog := events.NewEventLogWithOptions(events.Options{
		Persister: persister,
		Capacity:  tuning.EventLogCapacity,
		OnPersistError: func(e events.GameEvent, err error) {
			log.Warn("event history write failed", "seq", e.Seq, "type", e.Type, "error", err)
			m.RecordHistoryError()
		},
	})

	engineCfg := cfg.EngineConfig()
	engineCfg.Metrics = m
	gameEngine := engine.NewEngine(eventLog, log, engineCfg)

	gateway := persistence.NewGatewayForSession(backend.Store, cfg.Storage.SaveKey, session, eventLog, log, m)

	snap, res, err := gateway.Load(ctx)
	if err != nil {
		log.Error("load failed, starting fresh", "error", err)
	}
	gameEngine.Restore(snap)
	if res.Found {
		log.Info("save restored", "last_save", res.LastSave, "offline", res.Offline.Round(time.Second))
	}

	hub := network.NewHub(gameEngine, tuning, log, m)
	router := api.NewRouter(api.Deps{
		Game:    api.NewGameHandler(gameEngine, gateway, log),
		Events:  api.NewEventsHandler(eventLog, history),
		Hub:     hub,
		Metrics: m,
	})

	return &app{
		cfg:       cfg,
		logger:    log,
		metrics:   m,
		backend:   backend,
		eventLog:  eventLog,
		engine:    gameEngine,
		gateway:   gateway,
		ticker:    engine.NewTicker(gameEngine, engine.SystemClock{}, cfg.Server.TickInterval, cfg.Server.MaxTickDelta, log, m),
		autosaver: engine.NewAutosaver(func(saveCtx context.Context) error {
			return gateway.SaveFrom(saveCtx, gameEngine.Snapshot)
		}, cfg.Server.AutosaveInterval, log),
		hub: hub,
		srv: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// start runs the loops and serves HTTP on ln. The loops are detached from
// ctx: a signal only leads to shutdown, which stops them in order. The
// returned channel reports a serve failure and is closed when serving ends.
func (a *app) start(ctx context.Context, ln net.Listener) <-chan error {
	loopCtx := context.WithoutCancel(ctx)

	go a.ticker.Start(loopCtx)
	go a.autosaver.Start(loopCtx)

	hubCtx, stopHub := context.WithCancel(loopCtx)
	a.stopHub = stopHub
	go a.hub.Run(hubCtx)
	a.hub.StartEventPoller(hubCtx, a.eventLog, eventPollInterval)
	a.hub.StartStateBroadcaster(hubCtx, a.cfg.Server.BroadcastInterval)

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", ln.Addr().String())
		if err := a.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	return serveErr
}

// shutdown stops every writer before the final save: HTTP first, then
// websocket actions, then the game loop. Only then does the autosaver
// write the last record, after which event history drains and storage
// closes.
func (a *app) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown incomplete", "error", err)
	}

	a.hub.StopAccepting()
	if a.stopHub != nil {
		a.stopHub()
	}

	a.ticker.Stop()
	<-a.ticker.Done()

	a.autosaver.Stop()
	<-a.autosaver.Done()

	a.shutdownStorage()
	a.logger.Info("shutdown complete")
}

// shutdownStorage drains pending event history and closes the database.
func (a *app) shutdownStorage() {
	a.eventLog.Close()
	if err := a.backend.Close(); err != nil {
		a.logger.Error("closing storage failed", "error", err)
	}
}
