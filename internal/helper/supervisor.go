// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package helper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/tetherd/internal/environ"
	"github.com/ManuGH/tetherd/internal/log"
	"github.com/ManuGH/tetherd/internal/metrics"
	"github.com/ManuGH/tetherd/internal/procgroup"
	"github.com/rs/zerolog"
)

var (
	// ErrLaunch wraps every failure to start the helper.
	ErrLaunch = errors.New("helper launch failed")
	// ErrNoCommand is returned when no elevation command is configured.
	ErrNoCommand = errors.New("no helper command configured")
)

// Config configures a Supervisor.
type Config struct {
	// Command is the fixed elevation command, e.g. ["su", "-c", "./wifi"].
	Command []string
	// StopGrace bounds the wait for a voluntary exit after stdin is closed.
	StopGrace time.Duration
	// KillTimeout bounds each signal escalation step.
	KillTimeout time.Duration
	// PIDFile, when set, receives the helper's pid while it runs.
	PIDFile string
	// TailLines is the number of stderr lines kept for failure reports.
	TailLines int
}

// Handle identifies a launched helper to its owner.
type Handle interface {
	ID() uint64
	Pid() int
}

// LaunchRequest carries everything a single launch needs.
type LaunchRequest struct {
	Env    environ.Snapshot
	Dir    string
	OnLine LineFunc
}

// ExitStatus summarises a shutdown.
type ExitStatus struct {
	Code    int // -1 when unavailable
	Outcome procgroup.Outcome
	Err     error
	// Tail holds the newest stderr lines, oldest first.
	Tail    []string
}

// Supervisor launches and tears down helper processes.
type Supervisor struct {
	cfg    Config
	nextID atomic.Uint64
	logger zerolog.Logger
}

// NewSupervisor creates a Supervisor with defaults applied.
func NewSupervisor(cfg Config) *Supervisor {
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = 5 * time.Second
	}
	if cfg.KillTimeout <= 0 {
		cfg.KillTimeout = 2 * time.Second
	}
	if cfg.TailLines <= 0 {
		cfg.TailLines = 64
	}
	return &Supervisor{cfg: cfg, logger: log.WithComponent("helper")}
}

// Process is a running helper.
type Process struct {
	id      uint64
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	readers [2]*LineReader
	tail    *LineRing
	done    chan struct{}

	stopOnce sync.Once
	status   ExitStatus
}

// ID implements Handle.
func (p *Process) ID() uint64 { return p.id }

// Pid implements Handle.
func (p *Process) Pid() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Launch starts the helper with req.Env in req.Dir and starts both readers.
func (s *Supervisor) Launch(ctx context.Context, req LaunchRequest) (Handle, error) {
	logger := log.WithContext(ctx, s.logger)
	if len(s.cfg.Command) == 0 {
		metrics.RecordHelperLaunch("error")
		return nil, fmt.Errorf("%w: %w", ErrLaunch, ErrNoCommand)
	}

	p, err := s.start(req)
	if err != nil {
		metrics.RecordHelperLaunch("error")
		logger.Error().Err(err).
			Str("event", "helper.launch_failed").
			Strs("command", s.cfg.Command).
			Str(log.FieldPath, req.Dir).
			Msg("failed to start helper")
		return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	metrics.RecordHelperLaunch("ok")

	if s.cfg.PIDFile != "" {
		if err := writePIDFile(s.cfg.PIDFile, p.Pid()); err != nil {
			logger.Warn().Err(err).Str(log.FieldPath, s.cfg.PIDFile).Msg("failed to write pid file")
		}
	}

	logger.Info().
		Str("event", "helper.started").
		Uint64(log.FieldProcessID, p.id).
		Int(log.FieldPID, p.Pid()).
		Strs("command", s.cfg.Command).
		Msg("helper started")
	return p, nil
}

func (s *Supervisor) start(req LaunchRequest) (*Process, error) {
	// #nosec G204 -- the elevation command is operator configuration
	cmd := exec.Command(s.cfg.Command[0], s.cfg.Command[1:]...)
	cmd.Env = req.Env.Strings()
	cmd.Dir = req.Dir
	procgroup.Set(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	// Own pipes instead of StdoutPipe: cmd.Wait must not close the read ends
	// while the readers are still draining them.
	outR, outW, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		closeAll(outR, outW)
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		closeAll(outR, outW, errR, errW)
		return nil, err
	}
	closeAll(outW, errW)

	p := &Process{
		id:    s.nextID.Add(1),
		cmd:   cmd,
		stdin: stdin,
		tail:  NewLineRing(s.cfg.TailLines),
		done:  make(chan struct{}),
	}

	// The exit code is read from ProcessState once done is closed.
	go func() {
		_ = cmd.Wait()
		close(p.done)
	}()

	emit := s.observe(p, req.OnLine)
	p.readers[Stdout] = NewLineReader(p.id, Stdout, outR, emit)
	p.readers[Stderr] = NewLineReader(p.id, Stderr, errR, emit)
	go p.readers[Stdout].Run()
	go p.readers[Stderr].Run()
	return p, nil
}

// observe logs and counts every line before handing it to the owner.
func (s *Supervisor) observe(p *Process, next LineFunc) LineFunc {
	return func(l Line) {
		if !l.EOF && l.Err == nil {
			metrics.IncHelperLine(l.Stream.String())
			if l.Stream == Stderr {
				p.tail.Add(l.Text)
			}
		}
		if next != nil {
			next(l)
		}
	}
}

// Shutdown closes the helper's stdin, waits for it to exit, escalates to
// signals if it does not, and always interrupts both readers. Calling it
// again, or with a foreign or nil handle, is a no-op.
func (s *Supervisor) Shutdown(h Handle) ExitStatus {
	p, ok := h.(*Process)
	if !ok || p == nil {
		return ExitStatus{Code: -1, Outcome: procgroup.OutcomeExited}
	}
	p.stopOnce.Do(func() {
		p.status = s.shutdown(p)
	})
	return p.status
}

func (s *Supervisor) shutdown(p *Process) ExitStatus {
	started := time.Now()
	logger := s.logger.With().Uint64(log.FieldProcessID, p.id).Int(log.FieldPID, p.Pid()).Logger()

	if err := p.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		logger.Warn().Err(err).Msg("closing helper stdin failed")
	}

	outcome, err := procgroup.Escalate(p.cmd, p.done, s.cfg.StopGrace, s.cfg.KillTimeout)
	status := ExitStatus{Code: -1, Outcome: outcome, Err: err, Tail: p.tail.Last(s.cfg.TailLines)}

	select {
	case <-p.done:
		if p.cmd.ProcessState != nil {
			status.Code = p.cmd.ProcessState.ExitCode()
		}
		logger.Info().
			Str("event", "helper.exited").
			Int(log.FieldExitCode, status.Code).
			Str("outcome", string(outcome)).
			Msg("helper exited")
	default:
		logger.Error().
			Err(err).
			Str("event", "helper.dirty_stop").
			Msg("helper did not exit cleanly")
	}

	for _, r := range p.readers {
		if r != nil {
			r.Interrupt()
		}
	}

	if s.cfg.PIDFile != "" {
		if err := removePIDFile(s.cfg.PIDFile); err != nil {
			logger.Debug().Err(err).Msg("failed to remove pid file")
		}
	}

	metrics.RecordHelperStop(string(outcome), time.Since(started))
	return status
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
