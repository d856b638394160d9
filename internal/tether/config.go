// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tether

import "time"

// Config holds the control loop's tunables.
type Config struct {
	// HelperDir is the helper's working directory.
	HelperDir string
	// ReadyMarker prefixes the helper's "access point is up" line.
	ReadyMarker string
	// RadioInterface is excluded from the WAN probe.
	RadioInterface string
	// RestoreRadioOnStop re-enables the radio after a session if it was
	// enabled when the session began.
	RestoreRadioOnStop bool

	// MaxDisableRequests bounds radio-disable requests per negotiation.
	MaxDisableRequests int
	// NegotiationTimeout bounds the time spent starting without a helper.
	NegotiationTimeout time.Duration
	// DisableInterval is the minimum spacing between disable requests.
	DisableInterval time.Duration
}

const (
	defaultMaxDisableRequests = 5
	defaultNegotiationTimeout = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.ReadyMarker == "" {
		c.ReadyMarker = DefaultReadyMarker
	}
	if c.MaxDisableRequests <= 0 {
		c.MaxDisableRequests = defaultMaxDisableRequests
	}
	if c.NegotiationTimeout <= 0 {
		c.NegotiationTimeout = defaultNegotiationTimeout
	}
	if c.DisableInterval < 0 {
		c.DisableInterval = 0
	}
	return c
}
