// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/tetherd/internal/environ"
	"github.com/ManuGH/tetherd/internal/log"
	"github.com/rs/zerolog"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "TETHERD_"

// lookup returns a non-empty environment value, logging where the setting came from.
func lookup(logger zerolog.Logger, key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Debug().Str("key", key).Str("source", "default").Msg("using default value")
		return "", false
	}
	return v, true
}

func logEnv(logger zerolog.Logger, key string, value any) {
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if environ.IsSensitive(key) {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Interface("value", value)
	}
	ev.Msg("using environment variable")
}

func invalid(logger zerolog.Logger, key, value, kind string, def any) {
	logger.Warn().
		Str("key", key).
		Str("value", value).
		Interface("default", def).
		Msgf("invalid %s in environment variable, using default", kind)
}

// ParseString reads a string from the environment or returns defaultValue.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	logEnv(logger, key, v)
	return v
}

// ParseInt reads an integer, falling back to defaultValue on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		invalid(logger, key, v, "integer", defaultValue)
		return defaultValue
	}
	logEnv(logger, key, i)
	return i
}

// ParseDuration reads a Go duration such as "5s".
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		invalid(logger, key, v, "duration", defaultValue)
		return defaultValue
	}
	logEnv(logger, key, d.String())
	return d
}

// ParseBool accepts true/false, 1/0 and yes/no, case-insensitively.
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		logEnv(logger, key, true)
		return true
	case "false", "0", "no":
		logEnv(logger, key, false)
		return false
	default:
		invalid(logger, key, v, "boolean", defaultValue)
		return defaultValue
	}
}

// ParseFloat reads a float64.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		invalid(logger, key, v, "float", defaultValue)
		return defaultValue
	}
	logEnv(logger, key, f)
	return f
}

// ParseFields reads a whitespace-separated list, e.g. a command line.
func ParseFields(key string, defaultValue []string) []string {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return defaultValue
	}
	logEnv(logger, key, fields)
	return fields
}
