// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package health provides liveness and readiness checks for the daemon.
// The control loop, the helper process and the helper installation each
// report as a component.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/tetherd/internal/log"
)

// Status represents a component or overall health status.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// worse reports whether s ranks below other.
func (s Status) worse(other Status) bool {
	rank := func(v Status) int {
		switch v {
		case StatusUnhealthy:
			return 2
		case StatusDegraded:
			return 1
		}
		return 0
	}
	return rank(s) > rank(other)
}

const defaultCheckTimeout = 2 * time.Second

// CheckResult is one component's verdict.
type CheckResult struct {
	Status     Status         `json:"status"`
	Message    string         `json:"message,omitempty"`
	Error      string         `json:"error,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    int64                  `json:"uptime_seconds"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse is the /readyz body.
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker is a single component check. Check must honour ctx.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager runs registered checkers for the liveness and readiness probes.
type Manager struct {
	version  string
	started  time.Time
	timeout  time.Duration
	checkers []Checker
}

// NewManager returns a Manager with no checkers.
func NewManager(version string) *Manager {
	return &Manager{
		version: version,
		started: time.Now(),
		timeout: defaultCheckTimeout,
	}
}

// RegisterChecker adds a checker. Not safe once the handlers are serving.
func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// run evaluates every checker concurrently, each bounded by the check
// timeout. A checker that overruns is reported unhealthy.
func (m *Manager) run(ctx context.Context) (map[string]CheckResult, Status) {
	results := make([]CheckResult, len(m.checkers))
	var wg sync.WaitGroup
	for i, c := range m.checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = m.runOne(ctx, c)
		}()
	}
	wg.Wait()

	checks := make(map[string]CheckResult, len(m.checkers))
	overall := StatusHealthy
	for i, c := range m.checkers {
		checks[c.Name()] = results[i]
		if results[i].Status.worse(overall) {
			overall = results[i].Status
		}
	}
	return checks, overall
}

func (m *Manager) runOne(ctx context.Context, c Checker) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan CheckResult, 1)
	go func() { done <- c.Check(ctx) }()

	var res CheckResult
	select {
	case res = <-done:
	case <-ctx.Done():
	}
	if ctx.Err() != nil {
		res = CheckResult{Status: StatusUnhealthy, Error: "check timed out"}
	}
	res.DurationMS = time.Since(start).Milliseconds()
	return res
}

// Health answers the liveness probe. The process is alive whenever it can
// answer; components are only evaluated in verbose mode.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Timestamp: time.Now(),
		Uptime:    int64(time.Since(m.started).Seconds()),
	}
	if verbose && len(m.checkers) > 0 {
		resp.Checks, resp.Status = m.run(ctx)
	}
	return resp
}

// Ready answers the readiness probe. Degraded is still ready.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{
		Ready:     true,
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}
	if len(m.checkers) > 0 {
		resp.Checks, resp.Status = m.run(ctx)
		resp.Ready = resp.Status != StatusUnhealthy
	}
	return resp
}

// ServeHealth always answers 200.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	resp := m.Health(r.Context(), r.URL.Query().Get("verbose") == "true")
	writeProbe(w, r, "health", http.StatusOK, resp, resp.Status)
}

// ServeReady answers 503 while any component is unhealthy.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := m.Ready(r.Context())
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	writeProbe(w, r, "readiness", code, resp, resp.Status)
}

func writeProbe(w http.ResponseWriter, r *http.Request, probe string, code int, body any, status Status) {
	logger := log.WithComponentFromContext(r.Context(), probe)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error().Err(err).Str("event", probe+".encode_error").Msg("failed to encode probe response")
	}

	logger.Debug().
		Str("event", probe+".checked").
		Str("status", string(status)).
		Int("code", code).
		Msg("probe answered")
}
