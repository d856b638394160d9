// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		Helper: HelperConfig{
			Dir:         "/usr/lib/tetherd/helper",
			Command:     []string{"su", "-c", "./wifi"},
			Required:    []string{"wifi"},
			EnvPrefix:   "brncl",
			ReadyMarker: "WIFI: OK",
			StopGrace:   5 * time.Second,
			KillTimeout: 2 * time.Second,
		},
		Radio: RadioConfig{
			Backend:      "nmcli",
			Interface:    "wlan0",
			SysfsRoot:    "/sys/class/rfkill",
			PollInterval: time.Second,
		},
		Negotiation: NegotiationConfig{
			MaxDisableRequests: 5,
			Timeout:            30 * time.Second,
			MinInterval:        500 * time.Millisecond,
		},
		API: APIConfig{
			Listen:    "127.0.0.1:8088",
			RateLimit: 30,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			Environment:  "device",
			SamplingRate: 1.0,
		},
		Log: LogConfig{
			Level:   "info",
			Service: "tetherd",
			Format:  "json",
		},
	}
}
