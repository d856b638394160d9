// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tether

import (
	"github.com/ManuGH/tetherd/internal/log"
	"github.com/rs/zerolog"
)

// Notice is a transient hint for the user.
type Notice string

const (
	// NoticeDisablingRadio is sent each time the loop asks the radio to switch off.
	NoticeDisablingRadio Notice = "Disabling Wi-Fi, waiting for the radio to turn off"
	// NoticeConflict is sent when the radio is re-enabled under a running helper.
	NoticeConflict Notice = "Wi-Fi was re-enabled by someone else, restarting"
)

// StatusSink receives notifications on the control loop goroutine. Methods
// must return quickly; a slow sink stalls the loop.
type StatusSink interface {
	OnStateChanged(State)
	OnStarted()
	OnStopped()
	OnFailed(FailureReason, *Failure)
	OnNotice(Notice)
}

// NopSink ignores everything. Embed it to implement part of StatusSink.
type NopSink struct{}

func (NopSink) OnStateChanged(State)             {}
func (NopSink) OnStarted()                       {}
func (NopSink) OnStopped()                       {}
func (NopSink) OnFailed(FailureReason, *Failure) {}
func (NopSink) OnNotice(Notice)                  {}

// MultiSink fans notifications out in order.
type MultiSink []StatusSink

func (m MultiSink) OnStateChanged(s State) {
	for _, sink := range m {
		sink.OnStateChanged(s)
	}
}

func (m MultiSink) OnStarted() {
	for _, sink := range m {
		sink.OnStarted()
	}
}

func (m MultiSink) OnStopped() {
	for _, sink := range m {
		sink.OnStopped()
	}
}

func (m MultiSink) OnFailed(r FailureReason, f *Failure) {
	for _, sink := range m {
		sink.OnFailed(r, f)
	}
}

func (m MultiSink) OnNotice(n Notice) {
	for _, sink := range m {
		sink.OnNotice(n)
	}
}

// LogSink writes notifications to the structured log.
type LogSink struct {
	logger zerolog.Logger
	last   State
}

// NewLogSink creates a LogSink on the "status" component logger.
func NewLogSink() *LogSink {
	return &LogSink{logger: log.WithComponent("status"), last: StateStopped}
}

// OnStateChanged logs only real changes; the loop reports the state after every event.
func (l *LogSink) OnStateChanged(s State) {
	if s == l.last {
		return
	}
	l.logger.Info().
		Str(log.FieldEvent, "status.state").
		Str(log.FieldOldState, l.last.String()).
		Str(log.FieldNewState, s.String()).
		Msg("tether state changed")
	l.last = s
}

func (l *LogSink) OnStarted() {
	l.logger.Info().Str(log.FieldEvent, "status.started").Msg("access point is up")
}

func (l *LogSink) OnStopped() {
	l.logger.Info().Str(log.FieldEvent, "status.stopped").Msg("access point stopped")
}

func (l *LogSink) OnFailed(r FailureReason, f *Failure) {
	ev := l.logger.Error().Str(log.FieldEvent, "status.failed").Str(log.FieldReason, r.String())
	if f != nil {
		ev = ev.Str(log.FieldKind, string(f.Kind)).Err(f)
	}
	ev.Msg("tether attempt failed")
}

func (l *LogSink) OnNotice(n Notice) {
	l.logger.Info().Str(log.FieldEvent, "status.notice").Msg(string(n))
}
