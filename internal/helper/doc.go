// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package helper supervises the privileged native helper that reconfigures
// the radio. It launches the helper through a fixed elevation command, drains
// its stdout and stderr on dedicated reader goroutines, and tears it down
// gracefully (close stdin, wait) before escalating to signals.
package helper
