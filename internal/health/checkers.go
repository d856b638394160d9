// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"errors"

	"github.com/ManuGH/tetherd/internal/helper"
	"github.com/ManuGH/tetherd/internal/tether"
	"github.com/shirou/gopsutil/v3/process"
)

// Session is the view of the controller the checkers need.
type Session interface {
	Status() tether.Status
	Running() bool
}

// LoopChecker reports whether the control loop is consuming events.
type LoopChecker struct {
	session Session
}

// NewLoopChecker creates a checker for the control loop.
func NewLoopChecker(s Session) *LoopChecker {
	return &LoopChecker{session: s}
}

func (c *LoopChecker) Name() string { return "control_loop" }

func (c *LoopChecker) Check(context.Context) CheckResult {
	if !c.session.Running() {
		return CheckResult{Status: StatusUnhealthy, Message: "control loop not running"}
	}
	st := c.session.Status()
	res := CheckResult{
		Status:  StatusHealthy,
		Message: "session " + st.State.String(),
	}
	if st.State == tether.StateStopped && st.LastFailure != nil {
		res.Status = StatusDegraded
		res.Error = st.LastFailure.Message
		res.Details = map[string]any{
			"kind":   st.LastFailure.Kind,
			"reason": st.LastFailure.Reason,
		}
	}
	return res
}

// ProcessSample is a resource snapshot of one process.
type ProcessSample struct {
	RSS        uint64
	CPUPercent float64
	NumThreads int32
}

// errProcessGone is returned by a sampler when the pid no longer exists.
var errProcessGone = errors.New("process not found")

// SampleProcess reads a process's resource usage from the OS.
func SampleProcess(ctx context.Context, pid int) (ProcessSample, error) {
	p, err := process.NewProcessWithContext(ctx, int32(pid)) // #nosec G115 -- pids fit in int32 on every supported OS
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return ProcessSample{}, errProcessGone
		}
		return ProcessSample{}, err
	}
	running, err := p.IsRunningWithContext(ctx)
	if err != nil {
		return ProcessSample{}, err
	}
	if !running {
		return ProcessSample{}, errProcessGone
	}

	var s ProcessSample
	if mi, err := p.MemoryInfoWithContext(ctx); err == nil && mi != nil {
		s.RSS = mi.RSS
	}
	if pct, err := p.CPUPercentWithContext(ctx); err == nil {
		s.CPUPercent = pct
	}
	if n, err := p.NumThreadsWithContext(ctx); err == nil {
		s.NumThreads = n
	}
	return s, nil
}

// HelperChecker samples the live helper process of the current attempt.
type HelperChecker struct {
	session Session
	sample  func(ctx context.Context, pid int) (ProcessSample, error)
}

// NewHelperChecker creates a checker for the helper process.
func NewHelperChecker(s Session) *HelperChecker {
	return &HelperChecker{session: s, sample: SampleProcess}
}

func (c *HelperChecker) Name() string { return "helper_process" }

func (c *HelperChecker) Check(ctx context.Context) CheckResult {
	st := c.session.Status()
	if st.PID == 0 {
		return CheckResult{Status: StatusHealthy, Message: "no helper running"}
	}

	s, err := c.sample(ctx, st.PID)
	if errors.Is(err, errProcessGone) {
		// The loop has not yet observed the exit.
		return CheckResult{
			Status:  StatusDegraded,
			Message: "helper process exited",
			Details: map[string]any{"pid": st.PID},
		}
	}
	if err != nil {
		return CheckResult{Status: StatusDegraded, Error: err.Error(), Details: map[string]any{"pid": st.PID}}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "helper process alive",
		Details: map[string]any{
			"pid":         st.PID,
			"rss_bytes":   s.RSS,
			"cpu_percent": s.CPUPercent,
			"threads":     s.NumThreads,
		},
	}
}

// InstallChecker verifies the helper installation on disk.
type InstallChecker struct {
	install helper.Installation
}

// NewInstallChecker creates a checker for the helper resources.
func NewInstallChecker(in helper.Installation) *InstallChecker {
	return &InstallChecker{install: in}
}

func (c *InstallChecker) Name() string { return "helper_install" }

func (c *InstallChecker) Check(context.Context) CheckResult {
	err := c.install.Check()
	if err == nil {
		return CheckResult{Status: StatusHealthy, Message: "helper resources present"}
	}
	res := CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	var missing *helper.MissingError
	if errors.As(err, &missing) {
		res.Details = map[string]any{"dir": missing.Dir, "missing": missing.Paths}
	}
	return res
}
