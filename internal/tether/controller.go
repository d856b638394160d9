// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tether

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ManuGH/tetherd/internal/environ"
	"github.com/ManuGH/tetherd/internal/helper"
	"github.com/ManuGH/tetherd/internal/log"
	"github.com/ManuGH/tetherd/internal/metrics"
	"github.com/ManuGH/tetherd/internal/power"
	"github.com/ManuGH/tetherd/internal/radio"
	"github.com/ManuGH/tetherd/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Launcher starts and stops helper processes. *helper.Supervisor implements it.
type Launcher interface {
	Launch(ctx context.Context, req helper.LaunchRequest) (helper.Handle, error)
	Shutdown(h helper.Handle) helper.ExitStatus
}

// ResourceChecker verifies the helper installation before a start.
type ResourceChecker interface {
	Check() error
}

// Deps are the controller's collaborators.
type Deps struct {
	Launcher  Launcher
	Radio     radio.Radio
	Environ   environ.Builder
	Prefs     environ.Provider
	Resources ResourceChecker
	Inhibitor power.Inhibitor
	Links     radio.LinkLister
	Sink      StatusSink
}

// ErrLoopRunning is returned by Run when the loop is already running.
var ErrLoopRunning = errors.New("tether: control loop already running")

// Controller is the tether state machine. All session fields are owned by the
// goroutine executing Run; other goroutines only post events and read Status.
type Controller struct {
	cfg       Config
	deps      Deps
	queue     *queue
	logger    zerolog.Logger
	helperLog zerolog.Logger
	tracer    trace.Tracer

	state       State
	since       time.Time
	attempt     *attempt
	negGen      uint64
	lastFailure *FailureInfo

	status  atomic.Pointer[Status]
	running atomic.Bool
}

// attempt is one session from StartRequested until Stopped.
type attempt struct {
	id              string
	ctx             context.Context
	span            trace.Span
	lock            power.Lock
	radioWasEnabled bool
	proc            helper.Handle
	failed          bool

	negGen   uint64
	disables int
	deadline *time.Timer
	recheck  *time.Timer
	limiter  *rate.Limiter
}

// New wires a controller. Launcher and Radio are required.
func New(cfg Config, deps Deps) (*Controller, error) {
	if deps.Launcher == nil {
		return nil, fmt.Errorf("%w: launcher", ErrMissingDependency)
	}
	if deps.Radio == nil {
		return nil, fmt.Errorf("%w: radio", ErrMissingDependency)
	}
	if deps.Sink == nil {
		deps.Sink = NopSink{}
	}
	if deps.Inhibitor == nil {
		deps.Inhibitor = power.Nop{}
	}

	c := &Controller{
		cfg:       cfg.withDefaults(),
		deps:      deps,
		queue:     newQueue(),
		logger:    log.WithComponent("tether"),
		helperLog: log.WithComponent("helper"),
		tracer:    telemetry.Tracer(telemetry.TracerName),
		state:     StateStopped,
		since:     time.Now(),
	}
	c.publish()
	metrics.SetTetherState(c.state.String())
	return c, nil
}

// Start requests a session. Repeated requests while one is active are no-ops.
func (c *Controller) Start() { c.post(StartRequested{}) }

// Stop ends the session, if any.
func (c *Controller) Stop() { c.post(StopRequested{}) }

// NetworkChanged tells the loop to re-sample the radio. It suits radio.Watcher's notify hook.
func (c *Controller) NetworkChanged() { c.post(NetworkStateChanged{}) }

// Reconfigure swaps the tunables at the next event boundary.
func (c *Controller) Reconfigure(cfg Config) { c.post(Reconfigure{Config: cfg}) }

func (c *Controller) post(ev Event) {
	metrics.SetEventQueueDepth(c.queue.push(ev))
}

// Status returns the latest published snapshot.
func (c *Controller) Status() Status {
	return *c.status.Load()
}

// Running reports whether Run is processing events.
func (c *Controller) Running() bool { return c.running.Load() }

// Run processes events until ctx is cancelled. A live session is then torn
// down and reported as stopped before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer c.running.Store(false)

	c.logger.Info().Str(log.FieldEvent, "tether.loop_started").Msg("control loop started")
	for {
		ev, depth, ok := c.queue.pop(ctx)
		if !ok {
			break
		}
		metrics.SetEventQueueDepth(depth)
		c.dispatch(ctx, ev)
	}

	if c.state.Active() {
		c.dispatch(context.WithoutCancel(ctx), StopRequested{})
	}
	c.logger.Info().Str(log.FieldEvent, "tether.loop_stopped").Msg("control loop stopped")
	return nil
}

// dispatch handles one event and reports the resulting state.
func (c *Controller) dispatch(ctx context.Context, ev Event) {
	before := c.state
	disposition := c.handle(ctx, ev)
	metrics.RecordEvent(ev.kind(), disposition)

	if c.state != before {
		c.since = time.Now()
		metrics.RecordTransition(before.String(), c.state.String())
		metrics.SetTetherState(c.state.String())
		c.log().Info().
			Str(log.FieldEvent, "tether.transition").
			Str(log.FieldOldState, before.String()).
			Str(log.FieldNewState, c.state.String()).
			Str("cause", ev.kind()).
			Msg("state transition")
	}
	// An attempt can begin and fail within one event, so cleanup keys off
	// the attempt rather than the previous state.
	if c.state == StateStopped && c.attempt != nil {
		c.cleanup(ctx)
	}
	c.deps.Sink.OnStateChanged(c.state)
	c.publish()
}

func (c *Controller) handle(ctx context.Context, ev Event) string {
	switch e := ev.(type) {
	case StartRequested:
		return c.onStart(ctx)
	case StopRequested:
		return c.onStop()
	case NetworkStateChanged:
		if e.Recheck && c.attempt != nil {
			c.attempt.recheck = nil
		}
		return c.onNetwork(ctx)
	case OutputLine:
		return c.onOutput(e)
	case ErrorLine:
		return c.onError(e)
	case InternalFault:
		return c.onFault(e)
	case NegotiationDeadline:
		return c.onDeadline(e)
	case Reconfigure:
		return c.onReconfigure(e)
	default:
		c.logger.Warn().Str(log.FieldEvent, "tether.unknown_event").Msgf("unhandled event %T", ev)
		return "ignored"
	}
}

func (c *Controller) onStart(ctx context.Context) string {
	if c.state != StateStopped {
		c.log().Debug().Str(log.FieldEvent, "tether.start_ignored").Str("state", c.state.String()).Msg("session already active")
		return "ignored"
	}

	if c.deps.Resources != nil {
		if err := c.deps.Resources.Check(); err != nil {
			c.fail(&Failure{Kind: KindResources, Reason: ReasonOther, Err: fmt.Errorf("%w: %w", ErrResourcesMissing, err)})
			return "handled"
		}
	}

	c.beginAttempt(ctx)
	c.state = StateStarting
	c.beginNegotiation()
	c.evaluateNetwork(ctx)
	return "handled"
}

func (c *Controller) onStop() string {
	if c.state == StateStopped {
		return "ignored"
	}
	c.log().Info().Str(log.FieldEvent, "tether.stop_requested").Msg("stopping session")
	c.teardown()
	c.state = StateStopped
	return "handled"
}

func (c *Controller) onNetwork(ctx context.Context) string {
	if c.state == StateStopped {
		return "ignored"
	}
	return c.evaluateNetwork(ctx)
}

// evaluateNetwork samples the radio and moves the negotiation along.
func (c *Controller) evaluateNetwork(ctx context.Context) string {
	a := c.attempt
	switch c.state {
	case StateRunning:
		rs := c.sampleRadio(ctx)
		if !rs.Active() {
			c.probeWAN()
			return "handled"
		}
		c.conflict(ctx, rs)
		return "handled"

	case StateStarting:
		if a.proc != nil {
			// Launched: the radio must stay off, but never launch twice.
			if rs := c.sampleRadio(ctx); rs == radio.StateEnabled || rs == radio.StateEnabling {
				c.requestDisable(ctx)
				return "handled"
			}
			return "ignored"
		}
		switch rs := c.sampleRadio(ctx); rs {
		case radio.StateDisabled:
			c.launch(ctx)
		case radio.StateEnabled, radio.StateEnabling:
			c.requestDisable(ctx)
		default:
			c.log().Debug().
				Str(log.FieldEvent, "tether.radio_waiting").
				Str(log.FieldRadio, rs.String()).
				Msg("waiting for radio to settle")
		}
		return "handled"
	}
	return "ignored"
}

func (c *Controller) onOutput(e OutputLine) string {
	if !c.owns(e.Process) {
		return "stale"
	}
	if e.EOF {
		// stderr closing is what ends the process.
		c.log().Debug().Str(log.FieldEvent, "tether.stdout_closed").Msg("helper stdout closed")
		return "ignored"
	}

	c.helperLine(zerolog.InfoLevel, helper.Stdout, e.Text)
	// A failed attempt is already terminal; a late ready marker must not
	// report it started.
	if c.state == StateStarting && !c.attempt.failed && IsReady(e.Text, c.cfg.ReadyMarker) {
		c.state = StateRunning
		c.attempt.span.AddEvent("helper.ready")
		c.deps.Sink.OnStarted()
	}
	return "handled"
}

func (c *Controller) onError(e ErrorLine) string {
	if !c.owns(e.Process) {
		return "stale"
	}
	a := c.attempt

	if e.EOF {
		startingFailed := c.state == StateStarting && !a.failed
		st := c.teardown()
		if startingFailed {
			c.fail(&Failure{Kind: KindRuntime, Reason: ReasonOther, Err: ErrExitedBeforeReady, Tail: st.Tail})
		} else if !a.failed {
			c.log().Warn().Str(log.FieldEvent, "tether.helper_exited").Msg("helper exited while running")
		}
		c.state = StateStopped
		return "handled"
	}

	c.helperLine(zerolog.ErrorLevel, helper.Stderr, e.Text)
	if a.failed {
		return "handled"
	}
	reason := ReasonOther
	if c.state == StateStarting {
		reason = Classify(e.Text)
	}
	c.fail(&Failure{Kind: KindRuntime, Reason: reason, Line: e.Text})
	return "handled"
}

func (c *Controller) onFault(e InternalFault) string {
	if c.state == StateStopped {
		return "ignored"
	}
	if !c.owns(e.Process) {
		return "stale"
	}
	failed := c.attempt.failed
	c.teardown()
	if !failed {
		c.fail(&Failure{Kind: KindInternal, Reason: ReasonOther, Err: e.Cause})
	}
	c.state = StateStopped
	return "handled"
}

func (c *Controller) onDeadline(e NegotiationDeadline) string {
	a := c.attempt
	if c.state != StateStarting || a == nil || a.proc != nil || e.Generation != a.negGen {
		return "stale"
	}
	c.negotiationTimedOut(fmt.Sprintf("radio still enabled after %s", c.cfg.NegotiationTimeout))
	return "handled"
}

func (c *Controller) onReconfigure(e Reconfigure) string {
	c.cfg = e.Config.withDefaults()
	if a := c.attempt; a != nil && a.limiter != nil {
		a.limiter.SetLimit(limitFor(c.cfg.DisableInterval))
	}
	c.logger.Info().
		Str(log.FieldEvent, "tether.reconfigured").
		Int("max_disable_requests", c.cfg.MaxDisableRequests).
		Dur("negotiation_timeout", c.cfg.NegotiationTimeout).
		Msg("control loop reconfigured")
	return "handled"
}

func (c *Controller) beginAttempt(ctx context.Context) {
	id := uuid.NewString()
	base := log.ContextWithAttemptID(context.WithoutCancel(ctx), id)
	actx, span := c.tracer.Start(base, "tether.attempt")

	a := &attempt{id: id, ctx: actx, span: span}
	c.attempt = a

	rs := c.sampleRadio(ctx)
	a.radioWasEnabled = rs.Active()
	span.SetAttributes(telemetry.AttemptAttributes(id, rs.String())...)

	lock, err := c.deps.Inhibitor.Acquire(actx, "Wi-Fi tether active")
	if err != nil {
		c.log().Warn().Err(err).Str(log.FieldEvent, "tether.inhibit_failed").Msg("could not inhibit sleep")
	} else {
		a.lock = lock
	}

	c.log().Info().
		Str(log.FieldEvent, "tether.attempt_started").
		Str(log.FieldRadio, rs.String()).
		Msg("starting session")
}

// beginNegotiation arms the bound for a new radio hand-over.
func (c *Controller) beginNegotiation() {
	a := c.attempt
	c.endNegotiation()
	c.negGen++
	a.negGen = c.negGen
	a.disables = 0
	a.limiter = rate.NewLimiter(limitFor(c.cfg.DisableInterval), 1)

	gen := a.negGen
	a.deadline = time.AfterFunc(c.cfg.NegotiationTimeout, func() {
		c.post(NegotiationDeadline{Generation: gen})
	})
}

func (c *Controller) endNegotiation() {
	a := c.attempt
	if a == nil {
		return
	}
	if a.deadline != nil {
		a.deadline.Stop()
		a.deadline = nil
	}
	if a.recheck != nil {
		a.recheck.Stop()
		a.recheck = nil
	}
	a.negGen = 0
}

func limitFor(interval time.Duration) rate.Limit {
	if interval <= 0 {
		return rate.Inf
	}
	return rate.Every(interval)
}

func (c *Controller) requestDisable(ctx context.Context) {
	a := c.attempt
	if a.disables >= c.cfg.MaxDisableRequests {
		c.negotiationTimedOut(fmt.Sprintf("radio still enabled after %d disable requests", a.disables))
		return
	}

	res := a.limiter.Reserve()
	if d := res.Delay(); d > 0 {
		res.Cancel()
		metrics.RecordRadioDisableRequest("deferred")
		if a.recheck == nil {
			a.recheck = time.AfterFunc(d, func() { c.post(NetworkStateChanged{Recheck: true}) })
		}
		return
	}

	a.disables++
	c.deps.Sink.OnNotice(NoticeDisablingRadio)
	if err := c.deps.Radio.SetEnabled(ctx, false); err != nil {
		metrics.RecordRadioDisableRequest("error")
		c.log().Warn().Err(err).Str(log.FieldEvent, "tether.radio_disable_failed").Int("request", a.disables).Msg("radio disable request failed")
		return
	}
	metrics.RecordRadioDisableRequest("ok")
	c.log().Info().
		Str(log.FieldEvent, "tether.radio_disable").
		Int("request", a.disables).
		Msg("asked radio to disable, waiting")
}

func (c *Controller) negotiationTimedOut(why string) {
	c.endNegotiation()
	c.fail(&Failure{Kind: KindNegotiation, Reason: ReasonOther, Err: fmt.Errorf("%w: %s", ErrNegotiationTimedOut, why)})
	c.state = StateStopped
}

func (c *Controller) launch(ctx context.Context) {
	a := c.attempt
	c.endNegotiation()
	c.probeWAN()

	snap, err := c.deps.Environ.Build(c.deps.Prefs)
	if err != nil {
		c.fail(&Failure{Kind: KindLaunch, Reason: ReasonOther, Err: fmt.Errorf("build environment: %w", err)})
		c.state = StateStopped
		return
	}
	c.logEnvironment(snap)

	h, err := c.deps.Launcher.Launch(a.ctx, helper.LaunchRequest{
		Env: snap,
		Dir: c.cfg.HelperDir,
		OnLine: func(l helper.Line) {
			c.post(lineEvent(l))
		},
	})
	if err != nil {
		c.fail(&Failure{Kind: KindLaunch, Reason: ReasonOther, Err: err})
		c.state = StateStopped
		return
	}
	a.proc = h
	// Re-disables until ready draw from a fresh budget.
	a.disables = 0
	a.span.AddEvent("helper.launched", trace.WithAttributes(telemetry.HelperAttributes(h.Pid(), -1, "")...))
}

// conflict restarts the negotiation after the radio came back under a running helper.
func (c *Controller) conflict(ctx context.Context, rs radio.State) {
	a := c.attempt
	c.log().Error().
		Str(log.FieldEvent, "tether.conflict").
		Str(log.FieldRadio, rs.String()).
		Msg("radio re-enabled while running, restarting")
	metrics.RecordFailure(string(KindConflict), ReasonOther.String())
	a.span.AddEvent("tether.conflict")
	c.deps.Sink.OnNotice(NoticeConflict)

	c.teardown()
	a.failed = false
	c.state = StateStarting
	c.beginNegotiation()
	c.requestDisable(ctx)
}

// teardown stops the current helper, if any, and returns how it ended.
func (c *Controller) teardown() helper.ExitStatus {
	a := c.attempt
	if a == nil || a.proc == nil {
		return helper.ExitStatus{Code: -1}
	}
	st := c.deps.Launcher.Shutdown(a.proc)
	a.span.AddEvent("helper.stopped", trace.WithAttributes(telemetry.HelperAttributes(a.proc.Pid(), st.Code, string(st.Outcome))...))
	a.proc = nil
	return st
}

// cleanup runs once per transition into StateStopped.
func (c *Controller) cleanup(ctx context.Context) {
	a := c.attempt
	c.endNegotiation()
	c.teardown()

	if a.lock != nil {
		if err := a.lock.Release(); err != nil {
			c.log().Warn().Err(err).Str(log.FieldEvent, "tether.inhibit_release_failed").Msg("could not release sleep inhibitor")
		}
		a.lock = nil
	}

	c.deps.Sink.OnStopped()

	if c.cfg.RestoreRadioOnStop && a.radioWasEnabled {
		if err := c.deps.Radio.SetEnabled(context.WithoutCancel(ctx), true); err != nil {
			c.log().Warn().Err(err).Str(log.FieldEvent, "tether.radio_restore_failed").Msg("could not re-enable radio")
		} else {
			c.log().Info().Str(log.FieldEvent, "tether.radio_restored").Msg("radio re-enabled")
		}
	}

	c.log().Info().Str(log.FieldEvent, "tether.attempt_ended").Bool("failed", a.failed).Msg("session stopped")
	a.span.End()
	c.attempt = nil
}

// fail records f and tells the sink. It is the only path to OnFailed.
func (c *Controller) fail(f *Failure) {
	c.lastFailure = &FailureInfo{Kind: f.Kind, Reason: f.Reason, Message: f.Error(), Tail: f.Tail, At: time.Now()}
	metrics.RecordFailure(string(f.Kind), f.Reason.String())
	if a := c.attempt; a != nil {
		a.failed = true
		a.span.RecordError(f)
		a.span.SetStatus(codes.Error, string(f.Kind))
		a.span.SetAttributes(telemetry.FailureAttributes(string(f.Kind), f.Reason.String())...)
	}
	c.log().Error().
		Err(f).
		Str(log.FieldEvent, "tether.failed").
		Str(log.FieldKind, string(f.Kind)).
		Str(log.FieldReason, f.Reason.String()).
		Msg("tether attempt failed")
	c.deps.Sink.OnFailed(f.Reason, f)
}

func (c *Controller) owns(process uint64) bool {
	a := c.attempt
	return a != nil && a.proc != nil && a.proc.ID() == process
}

func (c *Controller) sampleRadio(ctx context.Context) radio.State {
	rs, err := c.deps.Radio.State(ctx)
	if err != nil {
		c.log().Warn().Err(err).Str(log.FieldEvent, "tether.radio_query_failed").Msg("radio state unavailable")
		return radio.StateUnknown
	}
	return rs
}

func (c *Controller) probeWAN() {
	if c.deps.Links == nil {
		return
	}
	links, err := c.deps.Links()
	if err != nil {
		c.log().Debug().Err(err).Msg("link listing failed")
		return
	}
	if name, ok := radio.FindWAN(links, c.cfg.RadioInterface); ok {
		c.log().Info().Str(log.FieldEvent, "tether.wan_found").Str("interface", name).Msg("found active WAN interface")
		return
	}
	c.log().Warn().Str(log.FieldEvent, "tether.wan_missing").Msg("no active WAN interface found")
}

func (c *Controller) logEnvironment(snap environ.Snapshot) {
	logger := c.log()
	if logger.GetLevel() > zerolog.DebugLevel {
		return
	}
	for _, e := range snap.Entries() {
		value := e.Value
		if environ.IsSensitive(e.Key) {
			value = "***"
		}
		logger.Debug().Str("key", e.Key).Str("value", value).Msg("helper environment")
	}
}

func (c *Controller) helperLine(level zerolog.Level, stream helper.Stream, text string) {
	logger := c.helperLog
	if a := c.attempt; a != nil {
		logger = log.WithContext(a.ctx, logger)
	}
	logger.WithLevel(level).
		Str(log.FieldStream, stream.String()).
		Str(log.FieldLine, text).
		Msg("helper output")
}

// log returns the loop logger, carrying the attempt ID while one is active.
func (c *Controller) log() *zerolog.Logger {
	logger := c.logger
	if a := c.attempt; a != nil {
		logger = log.WithContext(a.ctx, logger)
	}
	return &logger
}

func (c *Controller) publish() {
	st := &Status{State: c.state, Since: c.since, LastFailure: c.lastFailure}
	if a := c.attempt; a != nil {
		st.AttemptID = a.id
		if a.proc != nil {
			st.PID = a.proc.Pid()
		}
	}
	c.status.Store(st)
}
