// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ManuGH/tetherd/internal/log"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the configuration file path, which may be empty.
func (l *Loader) Path() string { return l.configPath }

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envFields(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFields(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults, then validates it.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFile(&cfg, fileCfg)
	}

	l.mergeEnv(&cfg)
	l.warnUnknownEnv()
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile parses the YAML file strictly. A missing file is an error; an
// empty one yields no overrides.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return parseFile(data)
}

func parseFile(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("%w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingContent
	}
	return &fileCfg, nil
}

func mergeFile(cfg *AppConfig, f *FileConfig) {
	if h := f.Helper; h != nil {
		setString(&cfg.Helper.Dir, h.Dir)
		if fields := strings.Fields(h.Command); len(fields) > 0 {
			cfg.Helper.Command = fields
		}
		if h.Required != nil {
			cfg.Helper.Required = h.Required
		}
		setString(&cfg.Helper.EnvPrefix, h.EnvPrefix)
		setString(&cfg.Helper.ReadyMarker, h.ReadyMarker)
		setPtr(&cfg.Helper.StopGrace, h.StopGrace)
		setPtr(&cfg.Helper.KillTimeout, h.KillTimeout)
		setString(&cfg.Helper.PIDFile, h.PIDFile)
	}
	if p := f.Prefs; p != nil {
		setString(&cfg.Prefs.File, p.File)
	}
	if r := f.Radio; r != nil {
		setString(&cfg.Radio.Backend, r.Backend)
		setString(&cfg.Radio.Interface, r.Interface)
		setString(&cfg.Radio.SysfsRoot, r.SysfsRoot)
		setPtr(&cfg.Radio.PollInterval, r.PollInterval)
		setPtr(&cfg.Radio.RestoreOnStop, r.RestoreOnStop)
	}
	if n := f.Negotiation; n != nil {
		setPtr(&cfg.Negotiation.MaxDisableRequests, n.MaxDisableRequests)
		setPtr(&cfg.Negotiation.Timeout, n.Timeout)
		setPtr(&cfg.Negotiation.MinInterval, n.MinInterval)
	}
	if p := f.Power; p != nil {
		setPtr(&cfg.Power.InhibitSleep, p.InhibitSleep)
	}
	if a := f.API; a != nil {
		setString(&cfg.API.Listen, a.Listen)
		setPtr(&cfg.API.RateLimit, a.RateLimit)
	}
	if t := f.Telemetry; t != nil {
		setPtr(&cfg.Telemetry.Enabled, t.Enabled)
		setString(&cfg.Telemetry.Exporter, t.Exporter)
		setString(&cfg.Telemetry.Endpoint, t.Endpoint)
		setString(&cfg.Telemetry.Environment, t.Environment)
		setPtr(&cfg.Telemetry.SamplingRate, t.SamplingRate)
	}
	if lg := f.Log; lg != nil {
		setString(&cfg.Log.Level, lg.Level)
		setString(&cfg.Log.Service, lg.Service)
		setString(&cfg.Log.Format, lg.Format)
	}
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.Helper.Dir = l.envString("TETHERD_HELPER_DIR", cfg.Helper.Dir)
	cfg.Helper.Command = l.envFields("TETHERD_HELPER_COMMAND", cfg.Helper.Command)
	cfg.Helper.Required = l.envFields("TETHERD_HELPER_REQUIRED", cfg.Helper.Required)
	cfg.Helper.EnvPrefix = l.envString("TETHERD_HELPER_ENV_PREFIX", cfg.Helper.EnvPrefix)
	cfg.Helper.ReadyMarker = l.envString("TETHERD_HELPER_READY_MARKER", cfg.Helper.ReadyMarker)
	cfg.Helper.StopGrace = l.envDuration("TETHERD_HELPER_STOP_GRACE", cfg.Helper.StopGrace)
	cfg.Helper.KillTimeout = l.envDuration("TETHERD_HELPER_KILL_TIMEOUT", cfg.Helper.KillTimeout)
	cfg.Helper.PIDFile = l.envString("TETHERD_HELPER_PID_FILE", cfg.Helper.PIDFile)

	cfg.Prefs.File = l.envString("TETHERD_PREFS_FILE", cfg.Prefs.File)

	cfg.Radio.Backend = l.envString("TETHERD_RADIO_BACKEND", cfg.Radio.Backend)
	cfg.Radio.Interface = l.envString("TETHERD_RADIO_INTERFACE", cfg.Radio.Interface)
	cfg.Radio.SysfsRoot = l.envString("TETHERD_RADIO_SYSFS_ROOT", cfg.Radio.SysfsRoot)
	cfg.Radio.PollInterval = l.envDuration("TETHERD_RADIO_POLL_INTERVAL", cfg.Radio.PollInterval)
	cfg.Radio.RestoreOnStop = l.envBool("TETHERD_RADIO_RESTORE_ON_STOP", cfg.Radio.RestoreOnStop)

	cfg.Negotiation.MaxDisableRequests = l.envInt("TETHERD_NEGOTIATION_MAX_DISABLE_REQUESTS", cfg.Negotiation.MaxDisableRequests)
	cfg.Negotiation.Timeout = l.envDuration("TETHERD_NEGOTIATION_TIMEOUT", cfg.Negotiation.Timeout)
	cfg.Negotiation.MinInterval = l.envDuration("TETHERD_NEGOTIATION_MIN_INTERVAL", cfg.Negotiation.MinInterval)

	cfg.Power.InhibitSleep = l.envBool("TETHERD_POWER_INHIBIT_SLEEP", cfg.Power.InhibitSleep)

	cfg.API.Listen = l.envString("TETHERD_API_LISTEN", cfg.API.Listen)
	cfg.API.RateLimit = l.envInt("TETHERD_API_RATE_LIMIT", cfg.API.RateLimit)

	cfg.Telemetry.Enabled = l.envBool("TETHERD_TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString("TETHERD_TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("TETHERD_TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Environment = l.envString("TETHERD_TELEMETRY_ENVIRONMENT", cfg.Telemetry.Environment)
	cfg.Telemetry.SamplingRate = l.envFloat("TETHERD_TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)

	cfg.Log.Level = l.envString("TETHERD_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Service = l.envString("TETHERD_LOG_SERVICE", cfg.Log.Service)
	cfg.Log.Format = l.envString("TETHERD_LOG_FORMAT", cfg.Log.Format)
}

// warnUnknownEnv flags TETHERD_* variables that no setting reads, which are
// usually typos.
func (l *Loader) warnUnknownEnv() []string {
	var unknown []string
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		if _, ok := l.ConsumedEnvKeys[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	if len(unknown) > 0 {
		logger := log.WithComponent("config")
		logger.Warn().
			Str("event", "config.unknown_env").
			Strs("keys", unknown).
			Msg("ignoring unknown environment variables")
	}
	return unknown
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
