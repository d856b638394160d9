// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tether

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ManuGH/tetherd/internal/environ"
	"github.com/ManuGH/tetherd/internal/helper"
	"github.com/ManuGH/tetherd/internal/power"
	"github.com/ManuGH/tetherd/internal/procgroup"
	"github.com/ManuGH/tetherd/internal/radio"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	id  uint64
	pid int
}

func (h *fakeHandle) ID() uint64 { return h.id }
func (h *fakeHandle) Pid() int   { return h.pid }

type fakeLauncher struct {
	mu        sync.Mutex
	next      uint64
	err       error
	requests  []helper.LaunchRequest
	shutdowns []uint64
	tail      []string
}

func (l *fakeLauncher) Launch(_ context.Context, req helper.LaunchRequest) (helper.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, fmt.Errorf("%w: %w", helper.ErrLaunch, l.err)
	}
	l.next++
	l.requests = append(l.requests, req)
	return &fakeHandle{id: l.next, pid: 1000 + int(l.next)}, nil
}

func (l *fakeLauncher) Shutdown(h helper.Handle) helper.ExitStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.shutdowns = append(l.shutdowns, h.ID())
	return helper.ExitStatus{Code: 0, Outcome: procgroup.OutcomeExited, Tail: l.tail}
}

func (l *fakeLauncher) launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

func (l *fakeLauncher) lastRequest() helper.LaunchRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.requests[len(l.requests)-1]
}

func (l *fakeLauncher) stopped() []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]uint64(nil), l.shutdowns...)
}

type recordingSink struct {
	mu       sync.Mutex
	calls    []string
	failures []*Failure
}

func (s *recordingSink) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *recordingSink) OnStateChanged(st State) { s.record("state:" + st.String()) }
func (s *recordingSink) OnStarted()              { s.record("started") }
func (s *recordingSink) OnStopped()              { s.record("stopped") }
func (s *recordingSink) OnNotice(n Notice)       { s.record("notice:" + string(n)) }

func (s *recordingSink) OnFailed(r FailureReason, f *Failure) {
	s.mu.Lock()
	s.calls = append(s.calls, "failed:"+r.String())
	s.failures = append(s.failures, f)
	s.mu.Unlock()
}

func (s *recordingSink) count(call string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == call {
			n++
		}
	}
	return n
}

// terminal returns the calls that are not plain state reports.
func (s *recordingSink) terminal() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.calls {
		if len(c) < 6 || c[:6] != "state:" {
			out = append(out, c)
		}
	}
	return out
}

func (s *recordingSink) lastFailure() *Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.failures) == 0 {
		return nil
	}
	return s.failures[len(s.failures)-1]
}

type countingInhibitor struct {
	mu       sync.Mutex
	acquired int
	released int
}

type countingLock struct{ i *countingInhibitor }

func (l countingLock) Release() error {
	l.i.mu.Lock()
	l.i.released++
	l.i.mu.Unlock()
	return nil
}

func (i *countingInhibitor) Acquire(context.Context, string) (power.Lock, error) {
	i.mu.Lock()
	i.acquired++
	i.mu.Unlock()
	return countingLock{i}, nil
}

type checkFunc func() error

func (f checkFunc) Check() error { return f() }

type harness struct {
	c        *Controller
	radio    *radio.Fake
	launcher *fakeLauncher
	sink     *recordingSink
	inhibit  *countingInhibitor
}

func newHarness(t *testing.T, initial radio.State, cfg Config) *harness {
	t.Helper()
	h := &harness{
		radio:    radio.NewFake(initial),
		launcher: &fakeLauncher{},
		sink:     &recordingSink{},
		inhibit:  &countingInhibitor{},
	}
	if cfg.HelperDir == "" {
		cfg.HelperDir = "/opt/tetherd/helper"
	}
	c, err := New(cfg, Deps{
		Launcher: h.launcher,
		Radio:    h.radio,
		Environ: environ.Builder{
			Prefix:    "brncl",
			HelperDir: cfg.HelperDir,
			Ambient:   func() []string { return []string{"PATH=/usr/bin"} },
		},
		Prefs:     environ.Static{{Key: "lan_essid", Value: "barnacle", Kind: environ.KindString}},
		Inhibitor: h.inhibit,
		Sink:      h.sink,
	})
	require.NoError(t, err)
	h.c = c
	t.Cleanup(func() { c.endNegotiation() })
	return h
}

func (h *harness) send(ev Event) { h.c.dispatch(context.Background(), ev) }

func (h *harness) pid() uint64 {
	a := h.c.attempt
	if a == nil || a.proc == nil {
		return 0
	}
	return a.proc.ID()
}

// running drives a fresh harness into StateRunning.
func (h *harness) running(t *testing.T) uint64 {
	t.Helper()
	h.send(StartRequested{})
	id := h.pid()
	require.NotZero(t, id)
	h.send(OutputLine{Process: id, Text: "WIFI: OK"})
	require.Equal(t, StateRunning, h.c.state)
	return id
}

var errBoom = errors.New("boom")
