// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/ManuGH/tetherd/internal/log"
	"github.com/ManuGH/tetherd/internal/tether"
)

// CommandResponse acknowledges a queued start or stop request. The status
// is the one observed when the request was queued; the outcome arrives on
// the event stream.
type CommandResponse struct {
	Accepted string        `json:"accepted"`
	Status   tether.Status `json:"status"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, "start", s.ctrl.Start)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, "stop", s.ctrl.Stop)
}

func (s *Server) command(w http.ResponseWriter, r *http.Request, name string, post func()) {
	if !s.ctrl.Running() {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "control loop is not running")
		return
	}
	post()
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str("event", "api."+name).
		Msg(name + " requested")
	writeJSON(w, http.StatusAccepted, CommandResponse{Accepted: name, Status: s.ctrl.Status()})
}
