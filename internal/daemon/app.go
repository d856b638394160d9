// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"reflect"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/tetherd/internal/config"
	"github.com/ManuGH/tetherd/internal/log"
	"github.com/ManuGH/tetherd/internal/tether"
	"github.com/rs/zerolog"
)

// Controller is the control loop as seen by the App.
type Controller interface {
	Run(ctx context.Context) error
	Reconfigure(cfg tether.Config)
}

// Runner is a component that blocks until ctx is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// Server is the HTTP surface as seen by the App.
type Server interface {
	Serve(ctx context.Context) error
}

// App owns the long-lived runtime lifecycle: control loop, network watcher,
// config watcher, reload wiring and the HTTP server.
type App struct {
	logger       zerolog.Logger
	controller   Controller
	watcher      Runner
	cfgHolder    *config.ConfigHolder
	server       Server
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. watcher and cfgHolder may be nil.
func NewApp(logger zerolog.Logger, controller Controller, watcher Runner, cfgHolder *config.ConfigHolder, server Server) *App {
	return &App{
		logger:       logger,
		controller:   controller,
		watcher:      watcher,
		cfgHolder:    cfgHolder,
		server:       server,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned subsystems and blocks until ctx is cancelled or one
// of them fails. The control loop tears down a live session before Run
// returns.
func (a *App) Run(ctx context.Context) error {
	if a.controller == nil {
		return ErrMissingController
	}
	if a.server == nil {
		return ErrMissingServer
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.controller.Run(ctx) })

	if a.watcher != nil {
		g.Go(func() error { return a.watcher.Run(ctx) })
	}

	if a.cfgHolder != nil {
		// The file watcher is best-effort: a failure is logged, not fatal.
		g.Go(func() error {
			if err := a.cfgHolder.Watch(ctx); err != nil {
				a.logger.Warn().Err(err).Str("event", "config.watcher_start_failed").Msg("failed to start config watcher")
			}
			return nil
		})

		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)
		boot := a.cfgHolder.Get()
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case next := <-applyCh:
					a.apply(boot, next)
				}
			}
		})
	}

	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str("event", "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.cfgHolder.Reload(ctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str("event", "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error { return a.server.Serve(ctx) })

	return g.Wait()
}

// apply hands live-tunable settings to the control loop and warns about
// the ones that differ from boot but only take effect after a restart.
func (a *App) apply(boot, next config.AppConfig) {
	tc := TetherConfig(next)
	tc.HelperDir = boot.Helper.Dir
	a.controller.Reconfigure(tc)

	if next.Log.Level != boot.Log.Level {
		if err := log.SetLevel(next.Log.Level); err != nil {
			a.logger.Warn().Err(err).Str("level", next.Log.Level).Msg("invalid log level; keeping previous")
		}
	}

	restart := map[string]bool{
		"helper.dir":         boot.Helper.Dir != next.Helper.Dir,
		"helper.command":     !reflect.DeepEqual(boot.Helper.Command, next.Helper.Command),
		"helper.envPrefix":   boot.Helper.EnvPrefix != next.Helper.EnvPrefix,
		"helper.required":    !reflect.DeepEqual(boot.Helper.Required, next.Helper.Required),
		"helper.supervisor":  boot.Helper.StopGrace != next.Helper.StopGrace || boot.Helper.KillTimeout != next.Helper.KillTimeout || boot.Helper.PIDFile != next.Helper.PIDFile,
		"radio.backend":      boot.Radio.Backend != next.Radio.Backend || boot.Radio.SysfsRoot != next.Radio.SysfsRoot,
		"radio.pollInterval": boot.Radio.PollInterval != next.Radio.PollInterval,
		"prefs.file":         boot.Prefs.File != next.Prefs.File,
		"power":              boot.Power != next.Power,
		"api":                boot.API != next.API,
		"log.format":         boot.Log.Format != next.Log.Format,
		"telemetry":          boot.Telemetry != next.Telemetry,
	}
	for key, changed := range restart {
		if changed {
			a.logger.Warn().
				Str("event", "config.restart_required").
				Str("key", key).
				Msg("setting changed; takes effect after restart")
		}
	}
}
