// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the effective configuration.
type AppConfig struct {
	Version string

	Helper      HelperConfig
	Prefs       PrefsConfig
	Radio       RadioConfig
	Negotiation NegotiationConfig
	Power       PowerConfig
	API         APIConfig
	Telemetry   TelemetryConfig
	Log         LogConfig
}

// HelperConfig describes the privileged helper and how to run it.
type HelperConfig struct {
	Dir         string
	Command     []string
	Required    []string
	EnvPrefix   string
	ReadyMarker string
	StopGrace   time.Duration
	KillTimeout time.Duration
	PIDFile     string
}

// PrefsConfig locates the user preferences forwarded to the helper.
type PrefsConfig struct {
	File string
}

// RadioConfig selects the radio capability.
type RadioConfig struct {
	Backend       string
	Interface     string
	SysfsRoot     string
	PollInterval  time.Duration
	RestoreOnStop bool
}

// NegotiationConfig bounds the radio hand-over.
type NegotiationConfig struct {
	MaxDisableRequests int
	Timeout            time.Duration
	MinInterval        time.Duration
}

// PowerConfig controls the sleep inhibitor.
type PowerConfig struct {
	InhibitSleep bool
}

// APIConfig configures the HTTP control surface.
type APIConfig struct {
	Listen string
	// RateLimit is start/stop requests per minute per client; 0 disables it.
	RateLimit int
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	Environment  string
	SamplingRate float64
}

// LogConfig configures the base logger.
type LogConfig struct {
	Level   string
	Service string
	// Format is "json" or "console".
	Format string
}

// FileConfig mirrors the YAML file. Pointers distinguish "unset" from zero.
type FileConfig struct {
	Helper      *HelperFile      `yaml:"helper"`
	Prefs       *PrefsFile       `yaml:"prefs"`
	Radio       *RadioFile       `yaml:"radio"`
	Negotiation *NegotiationFile `yaml:"negotiation"`
	Power       *PowerFile       `yaml:"power"`
	API         *APIFile         `yaml:"api"`
	Telemetry   *TelemetryFile   `yaml:"telemetry"`
	Log         *LogFile         `yaml:"log"`
}

type HelperFile struct {
	Dir         string         `yaml:"dir"`
	Command     string         `yaml:"command"`
	Required    []string       `yaml:"required"`
	EnvPrefix   string         `yaml:"envPrefix"`
	ReadyMarker string         `yaml:"readyMarker"`
	StopGrace   *time.Duration `yaml:"stopGrace"`
	KillTimeout *time.Duration `yaml:"killTimeout"`
	PIDFile     string         `yaml:"pidFile"`
}

type PrefsFile struct {
	File string `yaml:"file"`
}

type RadioFile struct {
	Backend       string         `yaml:"backend"`
	Interface     string         `yaml:"interface"`
	SysfsRoot     string         `yaml:"sysfsRoot"`
	PollInterval  *time.Duration `yaml:"pollInterval"`
	RestoreOnStop *bool          `yaml:"restoreOnStop"`
}

type NegotiationFile struct {
	MaxDisableRequests *int           `yaml:"maxDisableRequests"`
	Timeout            *time.Duration `yaml:"timeout"`
	MinInterval        *time.Duration `yaml:"minInterval"`
}

type PowerFile struct {
	InhibitSleep *bool `yaml:"inhibitSleep"`
}

type APIFile struct {
	Listen    string `yaml:"listen"`
	RateLimit *int   `yaml:"rateLimit"`
}

type TelemetryFile struct {
	Enabled      *bool    `yaml:"enabled"`
	Exporter     string   `yaml:"exporter"`
	Endpoint     string   `yaml:"endpoint"`
	Environment  string   `yaml:"environment"`
	SamplingRate *float64 `yaml:"samplingRate"`
}

type LogFile struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Format  string `yaml:"format"`
}
