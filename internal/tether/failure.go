// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tether

import (
	"errors"
	"fmt"
	"strings"
)

// FailureReason is what the consumer is told about a failed attempt.
type FailureReason string

const (
	ReasonRootAccessDenied      FailureReason = "root_access_denied"
	ReasonSupplicantUnavailable FailureReason = "supplicant_unavailable"
	ReasonOther                 FailureReason = "other"
)

func (r FailureReason) String() string { return string(r) }

// Classify maps a helper error line to a FailureReason. Unrecognised text is
// ReasonOther, never dropped.
func Classify(line string) FailureReason {
	switch {
	case strings.Contains(line, "ermission"), strings.Contains(line, "su: not found"):
		return ReasonRootAccessDenied
	case strings.Contains(line, "supplicant"):
		return ReasonSupplicantUnavailable
	default:
		return ReasonOther
	}
}

// DefaultReadyMarker is the line prefix the helper prints once the access
// point is up.
const DefaultReadyMarker = "WIFI: OK"

// IsReady reports whether line starts with marker.
func IsReady(line, marker string) bool {
	return strings.HasPrefix(line, marker)
}

// Kind is the failure taxonomy.
type Kind string

const (
	KindLaunch      Kind = "launch"
	KindRuntime     Kind = "runtime"
	KindConflict    Kind = "conflict"
	KindInternal    Kind = "internal"
	KindNegotiation Kind = "negotiation"
	KindResources   Kind = "resources"
)

var (
	// ErrResourcesMissing is reported when the helper installation is incomplete.
	ErrResourcesMissing = errors.New("helper resources missing")
	// ErrNegotiationTimedOut is reported when the radio could not be taken over in time.
	ErrNegotiationTimedOut = errors.New("radio negotiation timed out")
	// ErrExitedBeforeReady is reported when the helper exits while still starting.
	ErrExitedBeforeReady = errors.New("helper exited before it was ready")
	// ErrMissingDependency is returned by New for an incomplete Deps.
	ErrMissingDependency = errors.New("tether: missing dependency")
)

// Failure is the error behind a FailureReason.
type Failure struct {
	Kind   Kind
	Reason FailureReason
	// Line is the helper output that triggered the failure, if any.
	Line string
	// Tail is the helper's last stderr output, when it exited on its own.
	Tail []string
	Err  error
}

func (f *Failure) Error() string {
	switch {
	case f.Err != nil:
		return fmt.Sprintf("%s failure (%s): %v", f.Kind, f.Reason, f.Err)
	case f.Line != "":
		return fmt.Sprintf("%s failure (%s): %s", f.Kind, f.Reason, f.Line)
	default:
		return fmt.Sprintf("%s failure (%s)", f.Kind, f.Reason)
	}
}

func (f *Failure) Unwrap() error { return f.Err }
