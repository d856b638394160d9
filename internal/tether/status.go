// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tether

import "time"

// Status is a point-in-time view of the session, safe to read from any goroutine.
type Status struct {
	State       State        `json:"state"`
	AttemptID   string       `json:"attempt_id,omitempty"`
	PID         int          `json:"pid,omitempty"`
	Since       time.Time    `json:"since"`
	LastFailure *FailureInfo `json:"last_failure,omitempty"`
}

// FailureInfo is the serialisable form of the last Failure.
type FailureInfo struct {
	Kind    Kind          `json:"kind"`
	Reason  FailureReason `json:"reason"`
	Message string        `json:"message"`
	Tail    []string      `json:"stderr_tail,omitempty"`
	At      time.Time     `json:"at"`
}
