// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ManuGH/tetherd/internal/api"
	"github.com/ManuGH/tetherd/internal/tether"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeDaemon(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tether.Status{
			State:     tether.StateRunning,
			AttemptID: "3f0c",
			PID:       4321,
			Since:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			LastFailure: &tether.FailureInfo{
				Kind: tether.KindRuntime, Reason: tether.ReasonSupplicantUnavailable,
				Message: "wpa_supplicant not running", At: time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC),
			},
		})
	})
	mux.HandleFunc("POST /api/v1/start", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(api.CommandResponse{Accepted: "start", Status: tether.Status{State: tether.StateStarting}})
	})
	mux.HandleFunc("POST /api/v1/stop", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: api.ErrCodeUnavailable})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStatusCommand(t *testing.T) {
	srv := fakeDaemon(t)
	var out, errOut bytes.Buffer

	code := run([]string{"status", "-addr", srv.URL}, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())
	assert.Contains(t, out.String(), "state:   running")
	assert.Contains(t, out.String(), "pid:     4321")
	assert.Contains(t, out.String(), "runtime/supplicant_unavailable")

	out.Reset()
	require.Equal(t, 0, run([]string{"status", "-addr", srv.URL, "-json"}, &out, &errOut))
	var st tether.Status
	require.NoError(t, json.Unmarshal(out.Bytes(), &st))
	assert.Equal(t, "3f0c", st.AttemptID)
}

func TestStartStopCommands(t *testing.T) {
	srv := fakeDaemon(t)
	var out, errOut bytes.Buffer

	assert.Equal(t, 0, run([]string{"start", "-addr", srv.URL}, &out, &errOut))
	assert.Equal(t, "start requested (state: starting)\n", out.String())

	assert.Equal(t, 1, run([]string{"stop", "-addr", srv.URL}, &out, &errOut))
	assert.Contains(t, errOut.String(), "controller_unavailable")
}

func TestHealthcheckCommand(t *testing.T) {
	srv := fakeDaemon(t)
	var out, errOut bytes.Buffer

	assert.Equal(t, 1, run([]string{"healthcheck", "-addr", srv.URL}, &out, &errOut))
	assert.Equal(t, 0, run([]string{"healthcheck", "-addr", srv.URL, "-mode", "live"}, &out, &errOut))
	assert.Contains(t, out.String(), "Healthcheck successful (live)")
}

func TestUnreachableDaemon(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"status", "-addr", "http://127.0.0.1:1", "-timeout", "500ms"}, &out, &errOut)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "network")
}

func TestVersionFlag(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, 0, run([]string{"-version"}, &out, &errOut))
	assert.Contains(t, out.String(), "commit:")

	assert.Equal(t, 2, run([]string{"-bogus"}, &out, &errOut))
}
