// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by tether spans.
const (
	AttemptIDKey     = "tether.attempt_id"
	StateKey         = "tether.state"
	RadioStateKey    = "tether.radio_state"
	DisableCountKey  = "tether.disable_requests"
	HelperPIDKey     = "helper.pid"
	HelperExitKey    = "helper.exit_code"
	HelperOutcomeKey = "helper.stop_outcome"
	FailureKindKey   = "failure.kind"
	FailureReasonKey = "failure.reason"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// AttemptAttributes describes a start attempt.
func AttemptAttributes(attemptID, radioState string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(AttemptIDKey, attemptID)}
	if radioState != "" {
		attrs = append(attrs, attribute.String(RadioStateKey, radioState))
	}
	return attrs
}

// HelperAttributes describes a helper process. exitCode < 0 is omitted.
func HelperAttributes(pid, exitCode int, outcome string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if pid > 0 {
		attrs = append(attrs, attribute.Int(HelperPIDKey, pid))
	}
	if exitCode >= 0 {
		attrs = append(attrs, attribute.Int(HelperExitKey, exitCode))
	}
	if outcome != "" {
		attrs = append(attrs, attribute.String(HelperOutcomeKey, outcome))
	}
	return attrs
}

// FailureAttributes describes a classified failure.
func FailureAttributes(kind, reason string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, kind),
		attribute.String(FailureKindKey, kind),
		attribute.String(FailureReasonKey, reason),
	}
}
