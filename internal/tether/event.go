// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tether

import "github.com/ManuGH/tetherd/internal/helper"

// Event is an input to the control loop. Events are values and are never
// modified after they are posted.
type Event interface {
	kind() string
}

// StartRequested asks for a session.
type StartRequested struct{}

// StopRequested ends the session.
type StopRequested struct{}

// NetworkStateChanged says the radio or the link table may have changed. The
// loop samples the radio itself.
type NetworkStateChanged struct {
	// Recheck marks a re-evaluation the loop scheduled for itself.
	Recheck bool
}

// OutputLine is a line, or end-of-stream, from the helper's stdout.
type OutputLine struct {
	Process uint64
	Text    string
	EOF     bool
}

// ErrorLine is a line, or end-of-stream, from the helper's stderr.
type ErrorLine struct {
	Process uint64
	Text    string
	EOF     bool
}

// InternalFault reports a reader failure.
type InternalFault struct {
	Process uint64
	Cause   error
}

// NegotiationDeadline fires when a negotiation ran out of time.
type NegotiationDeadline struct {
	Generation uint64
}

// Reconfigure replaces the loop's tunables. Collaborators are not swapped.
type Reconfigure struct {
	Config Config
}

func (StartRequested) kind() string      { return "start" }
func (StopRequested) kind() string       { return "stop" }
func (NetworkStateChanged) kind() string { return "network" }
func (OutputLine) kind() string          { return "stdout" }
func (ErrorLine) kind() string           { return "stderr" }
func (InternalFault) kind() string       { return "fault" }
func (NegotiationDeadline) kind() string { return "deadline" }
func (Reconfigure) kind() string         { return "reconfigure" }

// lineEvent converts reader output into a loop event.
func lineEvent(l helper.Line) Event {
	switch {
	case l.Err != nil:
		return InternalFault{Process: l.Process, Cause: l.Err}
	case l.Stream == helper.Stderr:
		return ErrorLine{Process: l.Process, Text: l.Text, EOF: l.EOF}
	default:
		return OutputLine{Process: l.Process, Text: l.Text, EOF: l.EOF}
	}
}
