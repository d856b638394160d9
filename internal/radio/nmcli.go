// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package radio

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	// #nosec G204 -- fixed binary, arguments are constants
	return exec.CommandContext(ctx, name, args...).Output()
}

// NMCLI drives the radio through NetworkManager.
type NMCLI struct {
	run Runner
}

// NewNMCLI returns an nmcli-backed Radio. A nil runner executes nmcli for real.
func NewNMCLI(run Runner) *NMCLI {
	if run == nil {
		run = execRunner
	}
	return &NMCLI{run: run}
}

// State implements Radio.
func (n *NMCLI) State(ctx context.Context) (State, error) {
	out, err := n.run(ctx, "nmcli", "-t", "-f", "WIFI", "general")
	if err != nil {
		return StateUnknown, fmt.Errorf("nmcli general: %w", err)
	}
	switch strings.TrimSpace(string(out)) {
	case "enabled":
		return StateEnabled, nil
	case "disabled":
		return StateDisabled, nil
	default:
		return StateUnknown, nil
	}
}

// SetEnabled implements Radio.
func (n *NMCLI) SetEnabled(ctx context.Context, enabled bool) error {
	arg := "off"
	if enabled {
		arg = "on"
	}
	if _, err := n.run(ctx, "nmcli", "radio", "wifi", arg); err != nil {
		return fmt.Errorf("nmcli radio wifi %s: %w", arg, err)
	}
	return nil
}
