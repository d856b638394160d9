// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon provides the core daemon bootstrapping and lifecycle management.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuGH/tetherd/internal/config"
	"github.com/ManuGH/tetherd/internal/health"
	"github.com/ManuGH/tetherd/internal/log"
	"github.com/ManuGH/tetherd/internal/telemetry"
)

// Options are the daemon's command-line inputs.
type Options struct {
	// Version is the build version
	Version string
	// ConfigPath is the path to the YAML config file; empty means env + defaults.
	ConfigPath string
	// Overrides replaces platform collaborators.
	Overrides Overrides
}

// Run loads configuration, wires the components and blocks until ctx is
// cancelled or a component fails.
func Run(ctx context.Context, opts Options) error {
	log.Configure(log.Config{Level: "info", Service: "tetherd", Version: opts.Version})
	logger := log.WithComponent("daemon")

	loader := config.NewLoader(opts.ConfigPath, opts.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", opts.ConfigPath).
			Msg("failed to load configuration")
		return fmt.Errorf("load config: %w", err)
	}

	log.Configure(log.Config{Level: cfg.Log.Level, Service: cfg.Log.Service, Version: cfg.Version, Format: cfg.Log.Format})
	logger = log.WithComponent("daemon")
	source := "env+defaults"
	if opts.ConfigPath != "" {
		source = "file"
	}
	logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str("path", opts.ConfigPath).
		Msg("configuration loaded")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Error().Err(err).Str("event", "startup.check_failed").Msg("startup checks failed")
		return err
	}

	tp, err := initTelemetry(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("Telemetry initialization failed, continuing without tracing")
	}
	defer func() {
		if tp == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Telemetry shutdown error")
		}
	}()

	comps, err := Build(cfg, opts.Overrides)
	if err != nil {
		return err
	}

	logger.Info().
		Str("event", "startup").
		Str("version", cfg.Version).
		Str("listen", cfg.API.Listen).
		Str("radio_backend", cfg.Radio.Backend).
		Str("helper_dir", cfg.Helper.Dir).
		Msg("starting tetherd")

	app := NewApp(logger, comps.Controller, comps.Watcher, config.NewConfigHolder(cfg, loader), comps.Server)
	if err := app.Run(ctx); err != nil {
		return err
	}
	logger.Info().Msg("Daemon stopped")
	return nil
}

func initTelemetry(ctx context.Context, cfg config.AppConfig) (*telemetry.Provider, error) {
	telCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Log.Service,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	}
	provider, err := telemetry.NewProvider(ctx, telCfg)
	if err != nil {
		return nil, fmt.Errorf("telemetry init failed: %w", err)
	}
	if provider.Enabled() {
		logger := log.WithComponent("daemon")
		logger.Info().
			Str("endpoint", telCfg.Endpoint).
			Float64("sampling_rate", telCfg.SamplingRate).
			Msg("Telemetry initialized")
	}
	return provider, nil
}

// WaitForShutdown returns a context cancelled on SIGINT or SIGTERM.
func WaitForShutdown() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
