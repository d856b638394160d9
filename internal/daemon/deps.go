// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"fmt"
	"time"

	"github.com/ManuGH/tetherd/internal/api"
	"github.com/ManuGH/tetherd/internal/config"
	"github.com/ManuGH/tetherd/internal/environ"
	"github.com/ManuGH/tetherd/internal/health"
	"github.com/ManuGH/tetherd/internal/helper"
	"github.com/ManuGH/tetherd/internal/power"
	"github.com/ManuGH/tetherd/internal/radio"
	"github.com/ManuGH/tetherd/internal/tether"
)

// Components is the wired object graph of a running daemon.
type Components struct {
	Controller *tether.Controller
	Watcher    *radio.Watcher
	Server     *api.Server
	Hub        *api.Hub
	Health     *health.Manager
}

// Overrides replaces platform collaborators, mainly in tests.
type Overrides struct {
	Radio     radio.Radio
	Links     radio.LinkLister
	Launcher  tether.Launcher
	Inhibitor power.Inhibitor
	Ambient   func() []string
}

// TetherConfig maps the file configuration onto the control loop's tunables.
func TetherConfig(cfg config.AppConfig) tether.Config {
	return tether.Config{
		HelperDir:          cfg.Helper.Dir,
		ReadyMarker:        cfg.Helper.ReadyMarker,
		RadioInterface:     cfg.Radio.Interface,
		RestoreRadioOnStop: cfg.Radio.RestoreOnStop,
		MaxDisableRequests: cfg.Negotiation.MaxDisableRequests,
		NegotiationTimeout: cfg.Negotiation.Timeout,
		DisableInterval:    cfg.Negotiation.MinInterval,
	}
}

// SupervisorConfig maps the helper section onto the process supervisor.
func SupervisorConfig(cfg config.HelperConfig) helper.Config {
	return helper.Config{
		Command:     cfg.Command,
		StopGrace:   cfg.StopGrace,
		KillTimeout: cfg.KillTimeout,
		PIDFile:     cfg.PIDFile,
	}
}

// Build wires every component from configuration.
func Build(cfg config.AppConfig, ov Overrides) (*Components, error) {
	rad := ov.Radio
	if rad == nil {
		var err error
		rad, err = radio.Open(radio.Backend(cfg.Radio.Backend), radio.Options{
			Interface: cfg.Radio.Interface,
			SysfsRoot: cfg.Radio.SysfsRoot,
		})
		if err != nil {
			return nil, fmt.Errorf("open radio: %w", err)
		}
	}
	links := ov.Links
	if links == nil {
		links = radio.SystemLinks
	}
	launcher := ov.Launcher
	if launcher == nil {
		launcher = helper.NewSupervisor(SupervisorConfig(cfg.Helper))
	}
	inhibitor := ov.Inhibitor
	if inhibitor == nil {
		if cfg.Power.InhibitSleep {
			inhibitor = power.Systemd{}
		} else {
			inhibitor = power.Nop{}
		}
	}
	install := helper.Installation{Dir: cfg.Helper.Dir, Required: cfg.Helper.Required}

	var ctrl *tether.Controller
	hub := api.NewHub(func() tether.Status { return ctrl.Status() })

	ctrl, err := tether.New(TetherConfig(cfg), tether.Deps{
		Launcher: launcher,
		Radio:    rad,
		Environ: environ.Builder{
			Prefix:    cfg.Helper.EnvPrefix,
			HelperDir: cfg.Helper.Dir,
			Ambient:   ov.Ambient,
		},
		Prefs:     environ.FileProvider{Path: cfg.Prefs.File},
		Resources: install,
		Inhibitor: inhibitor,
		Links:     links,
		Sink:      tether.MultiSink{tether.NewLogSink(), hub},
	})
	if err != nil {
		return nil, fmt.Errorf("create controller: %w", err)
	}

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewLoopChecker(ctrl))
	hm.RegisterChecker(health.NewHelperChecker(ctrl))
	hm.RegisterChecker(health.NewInstallChecker(install))

	serviceName := ""
	if cfg.Telemetry.Enabled {
		serviceName = cfg.Log.Service
	}
	srv := api.New(api.Config{
		Listen:          cfg.API.Listen,
		RateLimit:       cfg.API.RateLimit,
		ServiceName:     serviceName,
		ShutdownTimeout: 5 * time.Second,
	}, ctrl, hm, hub)

	return &Components{
		Controller: ctrl,
		Watcher:    radio.NewWatcher(rad, links, cfg.Radio.PollInterval, ctrl.NetworkChanged),
		Server:     srv,
		Hub:        hub,
		Health:     hm,
	}, nil
}
