// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package power

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// script writes a stand-in for systemd-inhibit that ignores its arguments.
func script(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "systemd-inhibit")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestNop(t *testing.T) {
	l, err := Nop{}.Acquire(context.Background(), "test")
	require.NoError(t, err)
	assert.NoError(t, l.Release())
}

func TestSystemd_ExitsEarly(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := Systemd{Command: script(t, "exit 1"), Settle: 200 * time.Millisecond}
	_, err := s.Acquire(context.Background(), "tether")
	assert.ErrorIs(t, err, ErrInhibitorExited)
}

func TestSystemd_ReleaseStopsHolder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := Systemd{Command: script(t, "exec sleep 30"), Settle: 50 * time.Millisecond}
	l, err := s.Acquire(context.Background(), "tether")
	require.NoError(t, err)
	sl := l.(*systemdLock)

	require.NoError(t, l.Release())
	select {
	case <-sl.done:
	case <-time.After(3 * time.Second):
		t.Fatal("holder still running after release")
	}
	assert.NoError(t, l.Release())
}

func TestSystemd_MissingBinary(t *testing.T) {
	_, err := Systemd{Command: "/nonexistent/systemd-inhibit"}.Acquire(context.Background(), "tether")
	assert.Error(t, err)
}
