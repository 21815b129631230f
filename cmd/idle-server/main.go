// Package main is the entry point for the Cosmic Idle game server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/cosmic-idle/server/internal/config"
	"github.com/cosmic-idle/server/internal/platform/logger"
	"github.com/cosmic-idle/server/internal/platform/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "idle-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML config file")
	addr := flag.String("addr", "", "listen address (overrides server.addr)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	appLogger := logger.New(os.Stdout, cfg.Logging.Level)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appLogger, metrics.Get())
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		a.shutdownStorage()
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
	}
	serveErr := a.start(ctx, ln)

	select {
	case <-ctx.Done():
		appLogger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			appLogger.Error("http server failed", "error", err)
		}
	}

	a.shutdown()
	return nil
}
