// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldAttemptID = "attempt_id"
	FieldRequestID = "request_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPID       = "pid"
	FieldProcessID = "process_id"
	FieldStream    = "stream"
	FieldLine      = "line"
	FieldExitCode  = "exit_code"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldRadio    = "radio_state"
	FieldReason   = "reason"
	FieldKind     = "kind"

	// Path fields
	FieldPath = "path"
)
