package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itchan-dev/authgate/frontend/internal/router"
	"github.com/itchan-dev/authgate/frontend/internal/setup"
	"github.com/itchan-dev/authgate/shared/config"
	"github.com/itchan-dev/authgate/shared/logger"
	"github.com/itchan-dev/authgate/shared/otel"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout      = 10 * time.Second
	sessionPurgeInterval = 10 * time.Minute
)

func main() {
	var configFolder string
	flag.StringVar(&configFolder, "config_folder", "config", "path to folder with configs")
	flag.Parse()

	cfg := config.MustLoad(configFolder)
	logger.Initialize(cfg.Public.Log.Level, cfg.Public.Log.JSON)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	otelCfg := otel.ConfigFrom(cfg)
	otelShutdown, err := otel.InitProvider(ctx, otelCfg)
	if err != nil {
		logger.Log.Warn("failed to initialize OpenTelemetry, continuing without tracing", "error", err)
		cfg.Public.Otel.Enabled = false
		otelShutdown = func(context.Context) error { return nil }
	}

	deps, err := setup.SetupDependencies(ctx, cfg)
	if err != nil {
		logger.Log.Error("failed to set up dependencies", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	server := &http.Server{
		Addr:         ":" + cfg.Public.Port,
		Handler:      router.SetupRouter(deps),
		ReadTimeout:  cfg.Public.ReadTimeout,
		WriteTimeout: cfg.Public.WriteTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Log.Info("starting frontend", "address", server.Addr, "auth_url", cfg.Public.Auth.URL,
			"session_storage", cfg.Public.Session.Storage)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return deps.Registry.Run(gCtx)
	})

	if deps.PgStorage != nil {
		g.Go(func() error {
			return deps.PgStorage.Run(gCtx, sessionPurgeInterval)
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		logger.Log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return otelShutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Log.Error("shutdown error", "error", err)
		deps.Close()
		os.Exit(1)
	}
	logger.Log.Info("server exited properly")
}
