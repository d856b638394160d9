// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads tetherd configuration.
//
// Precedence is defaults, then the YAML file (strict: unknown keys and
// trailing documents are rejected), then TETHERD_* environment variables.
// The result is validated before use. ConfigHolder keeps the current value and
// reloads it when the file changes or on request.
package config
