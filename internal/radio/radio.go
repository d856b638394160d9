// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package radio abstracts the wireless radio the helper takes over: querying
// whether it is enabled, asking it to switch, and noticing when the platform
// changes it underneath us.
package radio

import (
	"context"
	"fmt"
	"strings"
)

// State is the radio's enablement as last observed.
type State int

const (
	StateUnknown State = iota
	StateDisabled
	StateDisabling
	StateEnabled
	StateEnabling
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateDisabling:
		return "disabling"
	case StateEnabled:
		return "enabled"
	case StateEnabling:
		return "enabling"
	default:
		return "unknown"
	}
}

// Active reports whether the platform holds, or is taking, the radio.
func (s State) Active() bool {
	return s == StateEnabled || s == StateEnabling
}

// Radio is the capability the control loop needs from the platform.
type Radio interface {
	State(ctx context.Context) (State, error)
	SetEnabled(ctx context.Context, enabled bool) error
}

// Backend names a Radio implementation.
type Backend string

const (
	BackendNMCLI  Backend = "nmcli"
	BackendRFKill Backend = "rfkill"
	BackendFake   Backend = "fake"
)

// Options configures Open.
type Options struct {
	// Interface restricts rfkill lookups to one phy/interface name (optional).
	Interface string
	// SysfsRoot overrides /sys/class/rfkill.
	SysfsRoot string
	// Run overrides command execution for the nmcli backend.
	Run Runner
}

// Open selects the radio capability once at startup.
func Open(backend Backend, opts Options) (Radio, error) {
	switch Backend(strings.ToLower(string(backend))) {
	case BackendNMCLI, "":
		return NewNMCLI(opts.Run), nil
	case BackendRFKill:
		return NewRFKill(opts.SysfsRoot, opts.Interface), nil
	case BackendFake:
		return NewFake(StateEnabled), nil
	default:
		return nil, fmt.Errorf("unsupported radio backend: %s (supported: nmcli, rfkill, fake)", backend)
	}
}
