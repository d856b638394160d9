// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/ManuGH/tetherd/internal/validate"
)

// Validate checks an effective configuration.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.AbsPath("helper.dir", cfg.Helper.Dir)
	if len(cfg.Helper.Command) == 0 {
		v.AddError("helper.command", "command cannot be empty", cfg.Helper.Command)
	}
	v.NotEmpty("helper.readyMarker", cfg.Helper.ReadyMarker)
	v.MinDuration("helper.stopGrace", cfg.Helper.StopGrace, 0)
	v.MinDuration("helper.killTimeout", cfg.Helper.KillTimeout, 0)
	v.OptionalAbsPath("helper.pidFile", cfg.Helper.PIDFile)
	v.OptionalAbsPath("prefs.file", cfg.Prefs.File)

	v.OneOf("radio.backend", cfg.Radio.Backend, []string{"nmcli", "rfkill", "fake"})
	if cfg.Radio.Backend == "rfkill" {
		v.AbsPath("radio.sysfsRoot", cfg.Radio.SysfsRoot)
	}
	v.MinDuration("radio.pollInterval", cfg.Radio.PollInterval, 0)

	v.Range("negotiation.maxDisableRequests", cfg.Negotiation.MaxDisableRequests, 1, 100)
	v.MinDuration("negotiation.timeout", cfg.Negotiation.Timeout, 1)
	v.MinDuration("negotiation.minInterval", cfg.Negotiation.MinInterval, 0)

	v.ListenAddr("api.listen", cfg.API.Listen)
	v.NonNegative("api.rateLimit", cfg.API.RateLimit)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	v.LogLevel("log.level", cfg.Log.Level)
	v.NotEmpty("log.service", cfg.Log.Service)
	v.OneOf("log.format", cfg.Log.Format, []string{"json", "console"})

	return v.Err()
}
