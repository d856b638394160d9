// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup spawns supervised commands in their own process group and
// tears whole groups down. The elevated helper forks (su -> sh -> hostapd ...),
// so signalling only the leader would leave orphans holding the radio.
package procgroup

import (
	"errors"
	"os/exec"
	"syscall"

	"github.com/ManuGH/tetherd/internal/metrics"
)

var (
	// ErrKillFailed is returned when a group survives SIGKILL for longer than the kill timeout.
	ErrKillFailed = errors.New("kill operation failed")
)

// Signal delivers sig to the whole process group of cmd and records the
// attempt. A group that is already gone is not an error.
func Signal(cmd *exec.Cmd, sig syscall.Signal) error {
	name := signalName(sig)
	err := signalGroup(cmd, sig)
	switch {
	case err == nil:
		metrics.IncProcSignal(name, "sent")
	case errors.Is(err, errGone):
		metrics.IncProcSignal(name, "esrch")
		return nil
	default:
		metrics.IncProcSignal(name, "error")
	}
	return err
}

var errGone = errors.New("process group already gone")

func signalName(sig syscall.Signal) string {
	switch sig {
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGKILL:
		return "SIGKILL"
	default:
		return sig.String()
	}
}
