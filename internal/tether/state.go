// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tether

// State is the lifecycle of the tether session.
type State string

const (
	// StateStopped is the initial state and the end of every attempt.
	StateStopped State = "stopped"
	// StateStarting covers radio negotiation and helper start-up.
	StateStarting State = "starting"
	// StateRunning means the helper reported ready.
	StateRunning State = "running"
)

func (s State) String() string { return string(s) }

// Active reports whether a session is in progress.
func (s State) Active() bool { return s == StateStarting || s == StateRunning }
