// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

var (
	// ErrMissingController is returned when an App is run without a controller.
	ErrMissingController = errors.New("controller is required")

	// ErrMissingServer is returned when an App is run without an API server.
	ErrMissingServer = errors.New("API server is required")
)
