// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package radio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoWLAN is returned when no wlan rfkill switch exists.
var ErrNoWLAN = errors.New("no wlan rfkill switch found")

// RFKill reads and flips the soft-block switch under /sys/class/rfkill.
type RFKill struct {
	root  string
	iface string
}

// NewRFKill returns an rfkill-backed Radio. iface optionally matches the
// switch's "name" attribute (for example "phy0").
func NewRFKill(root, iface string) *RFKill {
	if root == "" {
		root = "/sys/class/rfkill"
	}
	return &RFKill{root: root, iface: iface}
}

func (r *RFKill) switches() ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("read rfkill: %w", err)
	}
	var out []string
	for _, e := range entries {
		dir := filepath.Join(r.root, e.Name())
		if readAttr(dir, "type") != "wlan" {
			continue
		}
		if r.iface != "" && readAttr(dir, "name") != r.iface {
			continue
		}
		out = append(out, dir)
	}
	if len(out) == 0 {
		return nil, ErrNoWLAN
	}
	return out, nil
}

// State implements Radio. Any blocked switch means the radio is disabled.
func (r *RFKill) State(_ context.Context) (State, error) {
	dirs, err := r.switches()
	if err != nil {
		return StateUnknown, err
	}
	for _, dir := range dirs {
		if readAttr(dir, "soft") == "1" || readAttr(dir, "hard") == "1" {
			return StateDisabled, nil
		}
	}
	return StateEnabled, nil
}

// SetEnabled implements Radio by toggling the soft block.
func (r *RFKill) SetEnabled(_ context.Context, enabled bool) error {
	dirs, err := r.switches()
	if err != nil {
		return err
	}
	val := "1"
	if enabled {
		val = "0"
	}
	for _, dir := range dirs {
		// #nosec G306 -- sysfs attribute
		if err := os.WriteFile(filepath.Join(dir, "soft"), []byte(val), 0o644); err != nil {
			return fmt.Errorf("write rfkill soft: %w", err)
		}
	}
	return nil
}

func readAttr(dir, name string) string {
	// #nosec G304 -- fixed sysfs layout
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
