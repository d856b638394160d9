// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package procgroup

import (
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/tetherd/internal/log"
)

// Outcome reports how a supervised process ended during Escalate.
type Outcome string

const (
	// OutcomeExited means the process left on its own within the grace period.
	OutcomeExited Outcome = "exited"
	// OutcomeTerminated means SIGTERM to the group was enough.
	OutcomeTerminated Outcome = "terminated"
	// OutcomeKilled means the group had to be SIGKILLed.
	OutcomeKilled Outcome = "killed"
	// OutcomeLost means the group was still alive after SIGKILL and the kill timeout.
	OutcomeLost Outcome = "lost"
)

// Escalate waits for done to close, escalating step by step:
// grace for a voluntary exit, then SIGTERM to the group and killTimeout, then
// SIGKILL and killTimeout again. done must be closed by whoever owns cmd.Wait.
// It is safe to call on a nil command.
func Escalate(cmd *exec.Cmd, done <-chan struct{}, grace, killTimeout time.Duration) (Outcome, error) {
	if cmd == nil || cmd.Process == nil {
		return OutcomeExited, nil
	}
	logger := log.WithComponent("procgroup")
	pid := cmd.Process.Pid

	if waitDone(done, grace) {
		return OutcomeExited, nil
	}

	logger.Debug().Int(log.FieldPID, pid).Msg("grace period exceeded, sending SIGTERM to process group")
	if err := Signal(cmd, syscall.SIGTERM); err != nil {
		logger.Warn().Err(err).Int(log.FieldPID, pid).Msg("SIGTERM delivery failed")
	}
	if waitDone(done, killTimeout) {
		return OutcomeTerminated, nil
	}

	logger.Warn().Int(log.FieldPID, pid).Msg("SIGTERM ignored, sending SIGKILL to process group")
	if err := Signal(cmd, syscall.SIGKILL); err != nil {
		logger.Error().Err(err).Int(log.FieldPID, pid).Msg("SIGKILL delivery failed")
	}
	if waitDone(done, killTimeout) {
		return OutcomeKilled, nil
	}
	return OutcomeLost, ErrKillFailed
}

func waitDone(done <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}
