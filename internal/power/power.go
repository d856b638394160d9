// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package power keeps the host awake while a tether session is active.
package power

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/ManuGH/tetherd/internal/log"
	"github.com/ManuGH/tetherd/internal/procgroup"
)

// Lock is a held inhibitor. Release is idempotent.
type Lock interface {
	Release() error
}

// Inhibitor acquires sleep locks.
type Inhibitor interface {
	Acquire(ctx context.Context, why string) (Lock, error)
}

// Nop never inhibits anything.
type Nop struct{}

// Acquire implements Inhibitor.
func (Nop) Acquire(context.Context, string) (Lock, error) { return nopLock{}, nil }

type nopLock struct{}

func (nopLock) Release() error { return nil }

// ErrInhibitorExited is returned when the inhibitor process dies right after start.
var ErrInhibitorExited = errors.New("sleep inhibitor exited early")

// Systemd holds a logind sleep lock by keeping systemd-inhibit running.
type Systemd struct {
	// Command defaults to "systemd-inhibit".
	Command string
	// Settle is how long Acquire waits to catch an immediate failure.
	Settle time.Duration
	// Hold is the process kept alive under the lock; defaults to sleep infinity.
	Hold []string
}

// Acquire starts systemd-inhibit and returns once it has settled.
func (s Systemd) Acquire(_ context.Context, why string) (Lock, error) {
	command := s.Command
	if command == "" {
		command = "systemd-inhibit"
	}
	hold := s.Hold
	if len(hold) == 0 {
		hold = []string{"sleep", "infinity"}
	}
	settle := s.Settle
	if settle <= 0 {
		settle = 100 * time.Millisecond
	}

	args := append([]string{"--what=sleep:idle", "--who=tetherd", "--why=" + why, "--mode=block"}, hold...)
	// #nosec G204 -- fixed binary, operator-provided reason string
	cmd := exec.Command(command, args...)
	procgroup.Set(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", command, err)
	}

	l := &systemdLock{cmd: cmd, done: make(chan struct{})}
	go func() {
		l.waitErr = cmd.Wait()
		close(l.done)
	}()

	select {
	case <-l.done:
		return nil, fmt.Errorf("%w: %v", ErrInhibitorExited, l.waitErr)
	case <-time.After(settle):
	}

	logger := log.WithComponent("power")
	logger.Debug().
		Str("event", "power.inhibit_acquired").
		Int(log.FieldPID, cmd.Process.Pid).
		Str("why", why).
		Msg("sleep inhibitor held")
	return l, nil
}

type systemdLock struct {
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
	once    sync.Once
	err     error
}

func (l *systemdLock) Release() error {
	l.once.Do(func() {
		_, l.err = procgroup.Escalate(l.cmd, l.done, 0, time.Second)
		logger := log.WithComponent("power")
		logger.Debug().
			Str("event", "power.inhibit_released").
			Int(log.FieldPID, l.cmd.Process.Pid).
			Msg("sleep inhibitor released")
	})
	return l.err
}
