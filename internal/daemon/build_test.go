// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package daemon

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/ManuGH/tetherd/internal/api"
	"github.com/ManuGH/tetherd/internal/config"
	"github.com/ManuGH/tetherd/internal/log"
	"github.com/ManuGH/tetherd/internal/power"
	"github.com/ManuGH/tetherd/internal/radio"
	"github.com/ManuGH/tetherd/internal/tether"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type listenerServer struct {
	srv *api.Server
	ln  net.Listener
}

func (s listenerServer) Serve(ctx context.Context) error { return s.srv.ServeListener(ctx, s.ln) }

func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	cfg := config.Defaults()
	cfg.Version = "test"
	cfg.Helper.Dir = t.TempDir()
	cfg.Helper.Required = nil
	cfg.Helper.Command = []string{"sh", "-c", "echo 'WIFI: OK'; exec cat"}
	cfg.Helper.StopGrace = time.Second
	cfg.Radio.Backend = "fake"
	cfg.Radio.PollInterval = 10 * time.Millisecond
	cfg.Negotiation.MinInterval = 0
	cfg.Negotiation.Timeout = 5 * time.Second
	return cfg
}

func TestBuild_RejectsUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Radio.Backend = "bluetooth"
	_, err := Build(cfg, Overrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open radio")
}

func getStatus(t *testing.T, base string) tether.Status {
	t.Helper()
	resp, err := http.Get(base + "/api/v1/status")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var st tether.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	return st
}

func TestDaemon_StartStopOverHTTP(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rad := radio.NewFake(radio.StateEnabled)
	comps, err := Build(testConfig(t), Overrides{
		Radio:     rad,
		Links:     func() ([]radio.Link, error) { return nil, nil },
		Inhibitor: power.Nop{},
		Ambient:   func() []string { return []string{"PATH=/usr/bin:/bin"} },
	})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	app := NewApp(log.WithComponent("test"), comps.Controller, comps.Watcher, nil, listenerServer{srv: comps.Server, ln: ln})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, comps.Controller.Running, 2*time.Second, 5*time.Millisecond)

	resp, err := http.Post(base+"/api/v1/start", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	// The enabled radio is disabled, the watcher reports it and the helper starts.
	require.Eventually(t, func() bool { return getStatus(t, base).State == tether.StateRunning }, 5*time.Second, 20*time.Millisecond)
	st := getStatus(t, base)
	assert.NotEmpty(t, st.AttemptID)
	assert.NotZero(t, st.PID)
	assert.GreaterOrEqual(t, rad.DisableRequests(), 1)

	resp, err = http.Post(base+"/api/v1/stop", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Eventually(t, func() bool { return getStatus(t, base).State == tether.StateStopped }, 5*time.Second, 20*time.Millisecond)
	assert.Nil(t, getStatus(t, base).LastFailure)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
	}
	http.DefaultClient.CloseIdleConnections()
}

func TestDaemon_ShutdownTearsDownSession(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	comps, err := Build(testConfig(t), Overrides{
		Radio:     radio.NewFake(radio.StateDisabled),
		Links:     func() ([]radio.Link, error) { return nil, nil },
		Inhibitor: power.Nop{},
		Ambient:   func() []string { return []string{"PATH=/usr/bin:/bin"} },
	})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	app := NewApp(log.WithComponent("test"), comps.Controller, comps.Watcher, nil, listenerServer{srv: comps.Server, ln: ln})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, comps.Controller.Running, 2*time.Second, 5*time.Millisecond)
	comps.Controller.Start()
	require.Eventually(t, func() bool { return comps.Controller.Status().State == tether.StateRunning }, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, tether.StateStopped, comps.Controller.Status().State)
	assert.Zero(t, comps.Controller.Status().PID)
}
