// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tetherState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tetherd_state",
		Help: "Current tether session state (active state=1, others 0)",
	}, []string{"state"})

	tetherTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tetherd_state_transitions_total",
		Help: "Total number of session state transitions",
	}, []string{"from", "to"})

	tetherEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tetherd_events_total",
		Help: "Total number of events processed by the control loop",
	}, []string{"kind", "disposition"})

	tetherFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tetherd_failures_total",
		Help: "Total number of failure notifications by kind and reason",
	}, []string{"kind", "reason"})

	eventQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tetherd_event_queue_depth",
		Help: "Number of events waiting for the control loop",
	})

	radioDisableRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tetherd_radio_disable_requests_total",
		Help: "Total number of radio disable requests issued during negotiation",
	}, []string{"result"})

	helperLaunches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tetherd_helper_launch_total",
		Help: "Total number of helper process launches",
	}, []string{"result"})

	helperStops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tetherd_helper_stop_total",
		Help: "Total number of helper shutdowns by how the process ended",
	}, []string{"outcome"})

	helperLines = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tetherd_helper_lines_total",
		Help: "Total number of lines read from the helper process",
	}, []string{"stream"})

	helperShutdownDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tetherd_helper_shutdown_duration_seconds",
		Help:    "Time spent tearing down the helper process",
		Buckets: prometheus.ExponentialBuckets(0.005, 2.0, 12), // 5ms to ~10s
	})

	procSignals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tetherd_proc_signal_total",
		Help: "Signals sent to supervised process groups",
	}, []string{"signal", "result"})

	streamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tetherd_event_stream_clients",
		Help: "Connected status stream clients",
	})

	streamDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tetherd_event_stream_dropped_clients_total",
		Help: "Status stream clients disconnected for falling behind",
	})
)

var tetherStates = []string{"stopped", "starting", "running"}

// SetTetherState records the active session state.
func SetTetherState(state string) {
	for _, s := range tetherStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		tetherState.WithLabelValues(s).Set(value)
	}
}

// RecordTransition counts a state change.
func RecordTransition(from, to string) {
	tetherTransitions.WithLabelValues(from, to).Inc()
}

// RecordEvent counts an event handled by the control loop. Disposition is
// "handled" or "stale".
func RecordEvent(kind, disposition string) {
	tetherEvents.WithLabelValues(kind, disposition).Inc()
}

// RecordFailure counts a failure notification.
func RecordFailure(kind, reason string) {
	tetherFailures.WithLabelValues(kind, reason).Inc()
}

// SetEventQueueDepth reports the pending event count.
func SetEventQueueDepth(n int) {
	eventQueueDepth.Set(float64(n))
}

// RecordRadioDisableRequest counts a radio disable request ("ok", "error", "deferred").
func RecordRadioDisableRequest(result string) {
	radioDisableRequests.WithLabelValues(result).Inc()
}

// RecordHelperLaunch counts a helper launch ("ok" or "error").
func RecordHelperLaunch(result string) {
	helperLaunches.WithLabelValues(result).Inc()
}

// RecordHelperStop counts a helper shutdown and how long it took.
func RecordHelperStop(outcome string, took time.Duration) {
	helperStops.WithLabelValues(outcome).Inc()
	helperShutdownDuration.Observe(took.Seconds())
}

// IncHelperLine counts a line read from the helper ("stdout" or "stderr").
func IncHelperLine(stream string) {
	helperLines.WithLabelValues(stream).Inc()
}

// IncProcSignal counts a signal delivery attempt ("sent", "esrch", "error").
func IncProcSignal(signal, result string) {
	procSignals.WithLabelValues(signal, result).Inc()
}

// SetStreamClients reports the number of connected status stream clients.
func SetStreamClients(n int) {
	streamClients.Set(float64(n))
}

// IncStreamDrop counts a slow status stream client being disconnected.
func IncStreamDrop() {
	streamDrops.Inc()
}
