package onboarding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/alljoyn/services-onboarding/pkg/discovery"
	"github.com/alljoyn/services-onboarding/pkg/log"
	"github.com/alljoyn/services-onboarding/pkg/version"
	"github.com/alljoyn/services-onboarding/pkg/wifi"
)

const (
	// collaboratorGrace is added to a join timeout before the engine gives
	// up on the call itself, so the joiner gets to report its own verdict.
	collaboratorGrace = 2 * time.Second

	closeTimeout = 5 * time.Second
)

// JoinController joins Wi-Fi networks and puts the station back on the
// network it started on.
type JoinController interface {
	wifi.Joiner
	wifi.Restorer
}

// Configurator opens configuration sessions to devices.
type Configurator interface {
	// Configure pushes target to the device and tells it to connect.
	Configure(ctx context.Context, locator string, port uint16, target wifi.Network) error

	// Offboard tells the device to forget its configuration.
	Offboard(ctx context.Context, locator string, port uint16) error
}

// Config configures an Engine.
type Config struct {
	Joiner       JoinController
	Configurator Configurator

	// Listener receives notifications. Nil drops them.
	Listener Listener

	// Logger for operational logging. Nil discards.
	Logger *slog.Logger

	// Trace receives structured onboarding events. Nil discards.
	Trace log.Logger

	// Registerer for the engine metrics. Nil leaves them unregistered.
	Registerer prometheus.Registerer

	// PoolSize bounds concurrent collaborator calls.
	PoolSize int

	// QueueSize is the event loop's command buffer.
	QueueSize int

	// JoinTimeout and AnnounceTimeout apply to requests that leave the
	// matching timeout unset.
	JoinTimeout     time.Duration
	AnnounceTimeout time.Duration

	// ConfigureTimeout bounds a Configure or Offboard call.
	ConfigureTimeout time.Duration

	// RestoreTimeout bounds the network restore after Abort.
	RestoreTimeout time.Duration
}

// DefaultConfig returns a Config with default sizes and timeouts. The
// collaborators still have to be set.
func DefaultConfig() Config {
	return Config{
		PoolSize:         4,
		QueueSize:        64,
		JoinTimeout:      DefaultJoinTimeout,
		AnnounceTimeout:  DefaultAnnounceTimeout,
		ConfigureTimeout: 30 * time.Second,
		RestoreTimeout:   30 * time.Second,
	}
}

// Validate checks that the collaborators are set.
func (c Config) Validate() error {
	if c.Joiner == nil {
		return errors.New("onboarding: config: joiner is required")
	}
	if c.Configurator == nil {
		return errors.New("onboarding: config: configurator is required")
	}
	return nil
}

// stopper is the part of *time.Timer the engine uses.
type stopper interface {
	Stop() bool
}

func timeAfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

// Engine runs onboarding. Create one with New and release it with Close.
type Engine struct {
	joiner       JoinController
	configurator Configurator
	listener     Listener
	logger       *slog.Logger
	trace        log.Logger
	metrics      *Metrics
	pool         *ants.Pool
	notify       *notifier

	joinTimeout      time.Duration
	announceTimeout  time.Duration
	configureTimeout time.Duration
	restoreTimeout   time.Duration
	afterFunc        func(time.Duration, func()) stopper

	ctx       context.Context
	cancel    context.CancelFunc
	cmds      chan func()
	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the event loop.
	state         State
	req           Request
	runID         string
	device        *DeviceContext
	epoch         uint64
	cancelAttempt context.CancelFunc
	timer         stopper
	timerSeq      uint64
	phaseStart    time.Time
	offboarding   bool
}

// New creates an Engine in IDLE and starts its event loop.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	def := DefaultConfig()
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = def.PoolSize
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = def.JoinTimeout
	}
	if cfg.AnnounceTimeout <= 0 {
		cfg.AnnounceTimeout = def.AnnounceTimeout
	}
	if cfg.ConfigureTimeout <= 0 {
		cfg.ConfigureTimeout = def.ConfigureTimeout
	}
	if cfg.RestoreTimeout <= 0 {
		cfg.RestoreTimeout = def.RestoreTimeout
	}
	if cfg.Listener == nil {
		cfg.Listener = noopListener{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Trace == nil {
		cfg.Trace = log.NoopLogger{}
	}

	logger := cfg.Logger
	// Nonblocking: the event loop submits and must never wait on a worker.
	pool, err := ants.NewPool(cfg.PoolSize,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p any) {
			logger.Error("collaborator call panicked", slog.Any("panic", p))
		}))
	if err != nil {
		return nil, fmt.Errorf("onboarding: cannot create goroutine pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		joiner:           cfg.Joiner,
		configurator:     cfg.Configurator,
		listener:         cfg.Listener,
		logger:           logger,
		trace:            cfg.Trace,
		metrics:          NewMetrics(cfg.Registerer),
		pool:             pool,
		notify:           newNotifier(),
		joinTimeout:      cfg.JoinTimeout,
		announceTimeout:  cfg.AnnounceTimeout,
		configureTimeout: cfg.ConfigureTimeout,
		restoreTimeout:   cfg.RestoreTimeout,
		afterFunc:        timeAfterFunc,
		ctx:              ctx,
		cancel:           cancel,
		cmds:             make(chan func(), cfg.QueueSize),
		closing:          make(chan struct{}),
		done:             make(chan struct{}),
	}
	go e.loop()
	return e, nil
}

// Metrics returns the engine's collectors.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// Close stops the event loop, cancels the in-flight collaborator call,
// waits briefly for a pending network restore and closes collaborators that
// implement io.Closer.
func (e *Engine) Close() error {
	var result error
	e.closeOnce.Do(func() {
		close(e.closing)
		<-e.done

		// The loop cancelled the pending attempt. A network restore keeps
		// running until the pool drains or closeTimeout passes.
		if err := e.pool.ReleaseTimeout(closeTimeout); err != nil {
			result = multierror.Append(result, fmt.Errorf("release pool: %w", err))
		}
		e.cancel()
		e.notify.close()

		for _, c := range []any{e.configurator, e.joiner} {
			if closer, ok := c.(io.Closer); ok {
				if err := closer.Close(); err != nil {
					result = multierror.Append(result, err)
				}
			}
		}
	})
	return result
}

// Start begins a run from IDLE (or after a completed run), or resumes a
// failed run at the phase that failed using req. It fails with
// ErrRunActive while a run is in a working state and with
// ErrDeviceIncompatible after the device was found not to support
// onboarding.
func (e *Engine) Start(req Request) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	req = req.withDefaults(e.joinTimeout, e.announceTimeout)
	return e.call(func() error { return e.start(req) })
}

// Abort returns the engine to IDLE from any state and asks the join
// controller to restore the original network. Calling it in IDLE does
// nothing.
func (e *Engine) Abort() error {
	return e.call(func() error {
		e.abort()
		return nil
	})
}

// Offboard tells the device at locator:port to forget its configuration.
// The call returns once the request is queued; the outcome is reported
// through the Listener. It is only allowed while the engine is IDLE.
func (e *Engine) Offboard(locator string, port uint16) error {
	if locator == "" || port == 0 {
		return fmt.Errorf("%w: locator %q port %d", ErrInvalidRequest, locator, port)
	}
	return e.call(func() error { return e.offboard(locator, port) })
}

// Announce hands an announcement to the engine. Announcements may arrive
// at any time; the engine only acts on them while waiting for one.
func (e *Engine) Announce(a *discovery.Announcement) error {
	if a == nil {
		return fmt.Errorf("%w: nil announcement", ErrInvalidRequest)
	}
	a = a.Clone()
	return e.post(func() { e.announced(a) })
}

// NetworkChanged reports that the station is now associated with ssid.
// While connecting, association with the expected network counts as a
// successful join. Other changes are ignored.
func (e *Engine) NetworkChanged(ssid string) error {
	return e.post(func() { e.networkChanged(ssid) })
}

// State returns the current state.
func (e *Engine) State() State {
	var s State
	if err := e.call(func() error {
		s = e.state
		return nil
	}); err != nil {
		<-e.done
		return e.state
	}
	return s
}

// Device returns a copy of the current device context, or nil.
func (e *Engine) Device() *DeviceContext {
	var d *DeviceContext
	if err := e.call(func() error {
		d = e.device.Clone()
		return nil
	}); err != nil {
		<-e.done
		return e.device.Clone()
	}
	return d
}

// post queues fn for the event loop.
func (e *Engine) post(fn func()) error {
	select {
	case <-e.closing:
		return ErrClosed
	default:
	}
	select {
	case e.cmds <- fn:
		return nil
	case <-e.closing:
		return ErrClosed
	}
}

// call runs fn on the event loop and waits for its result.
func (e *Engine) call(fn func() error) error {
	reply := make(chan error, 1)
	if err := e.post(func() { reply <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-e.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrClosed
		}
	}
}

func (e *Engine) loop() {
	defer close(e.done)
	for {
		select {
		case fn := <-e.cmds:
			fn()
		case <-e.closing:
			e.disarmTimer()
			e.cancelPending()
			return
		}
	}
}

func (e *Engine) start(req Request) error {
	if e.offboarding {
		return fmt.Errorf("%w: offboard in progress", ErrRunActive)
	}

	switch {
	case e.state == StateIdle || e.state.IsTerminal():
		e.req = req
		e.runID = uuid.NewString()
		e.device = nil
		e.metrics.RunsStarted.Inc()
		e.logger.Info("onboarding started",
			slog.String("run", e.runID),
			slog.String("onboardee", req.Onboardee.String()),
			slog.String("target", req.Target.String()))
		e.enter(StateConnectingOnboardee)
		return nil

	case e.state == StateErrorOnboardeeAnnounceReceived:
		return ErrDeviceIncompatible

	case e.state.IsError():
		next, _ := e.state.ResumeState()
		e.logger.Info("onboarding resumed",
			slog.String("run", e.runID),
			slog.String("from", e.state.String()),
			slog.String("to", next.String()))
		e.req = req
		e.enter(next)
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrRunActive, e.state)
	}
}

// enter moves to working state s, notifies and runs the state's entry
// action. Entering a state supersedes any attempt made in the previous one.
func (e *Engine) enter(s State) {
	from := e.state
	e.state = s
	e.epoch++
	e.cancelPending()

	e.metrics.Transitions.WithLabelValues(s.String()).Inc()
	e.traceState(from, s, "")
	e.logger.Debug("state change", slog.String("from", from.String()), slog.String("to", s.String()))

	ev := StateChange{RunID: e.runID, Phase: s.Phase(), State: s, Device: e.device.Clone()}
	e.notify.push(func() { e.listener.OnStateChange(ev) })

	switch s {
	case StateConnectingOnboardee, StateConnectingTarget:
		e.phaseStart = time.Now()
		e.join(s.Phase())
	case StateWaitingOnboardeeAnnounce, StateWaitingTargetAnnounce:
		e.armTimer(e.req.announceTimeout(s.Phase()))
	case StateOnboardeeAnnounceReceived:
		e.checkDevice()
	case StateConfiguringOnboardee:
		e.configure()
	case StateTargetAnnounceReceived:
		e.metrics.Completed.Inc()
		e.logger.Info("onboarding complete",
			slog.String("run", e.runID),
			slog.String("device", e.device.ID.String()))
		e.device = nil
	}
}

// fail moves from the current working state to its error state.
func (e *Engine) fail(kind ErrorKind, err error) {
	from := e.state
	to, ok := from.ErrorState()
	if !ok {
		e.logger.Warn("failure outside a working state",
			slog.String("state", from.String()), slog.Any("error", err))
		return
	}
	e.disarmTimer()
	e.cancelPending()
	e.epoch++
	e.state = to

	phase := to.Phase()
	e.metrics.Transitions.WithLabelValues(to.String()).Inc()
	e.metrics.Errors.WithLabelValues(phase.String(), kind.String()).Inc()
	e.traceState(from, to, kind.String())
	e.traceError(kind, err)
	e.logger.Warn("onboarding failed",
		slog.String("run", e.runID),
		slog.String("state", to.String()),
		slog.String("kind", kind.String()),
		slog.Any("error", err))

	ev := ErrorEvent{RunID: e.runID, Phase: phase, State: to, Kind: kind, Detail: err.Error(), Err: err}
	e.notify.push(func() { e.listener.OnError(ev) })
}

func (e *Engine) abort() {
	if e.state == StateIdle {
		return
	}
	e.logger.Info("onboarding aborted", slog.String("run", e.runID), slog.String("state", e.state.String()))
	e.disarmTimer()
	e.device = nil
	e.enter(StateIdle)
	e.runID = ""
	e.restore()
}

// cancelPending cancels the in-flight collaborator call, if any.
func (e *Engine) cancelPending() {
	if e.cancelAttempt != nil {
		e.cancelAttempt()
		e.cancelAttempt = nil
	}
}

// submit runs call on the pool and hands its error to done on the event
// loop. The result is dropped if the engine has moved on in the meantime.
func (e *Engine) submit(action, target string, timeout time.Duration, call func(context.Context) error, done func(error)) {
	ctx, cancel := context.WithTimeout(e.ctx, timeout)
	e.cancelAttempt = cancel
	epoch, expect := e.epoch, e.state

	err := e.pool.Submit(func() {
		start := time.Now()
		err := call(ctx)
		cancel()
		_ = e.post(func() {
			e.traceAction(action, target, time.Since(start), err)
			if epoch != e.epoch || expect != e.state {
				e.logger.Debug("dropping stale result",
					slog.String("action", action), slog.String("state", e.state.String()))
				return
			}
			e.cancelAttempt = nil
			done(err)
		})
	})
	if err != nil {
		cancel()
		e.cancelAttempt = nil
		done(fmt.Errorf("submit %s: %w", action, err))
	}
}

func (e *Engine) join(p Phase) {
	n := e.req.network(p)
	timeout := e.req.joinTimeout(p)
	e.submit("JOIN", n.SSID, timeout+collaboratorGrace,
		func(ctx context.Context) error {
			return e.joiner.Join(ctx, n, timeout)
		},
		func(err error) {
			if err != nil {
				e.fail(joinErrorKind(err), err)
				return
			}
			e.joined()
		})
}

func joinErrorKind(err error) ErrorKind {
	if errors.Is(err, wifi.ErrJoinAuth) || errors.Is(err, wifi.ErrInvalidWEPKey) {
		return KindJoinAuthError
	}
	return KindJoinTimeout
}

func (e *Engine) joined() {
	switch e.state {
	case StateConnectingOnboardee:
		e.enter(StateWaitingOnboardeeAnnounce)
	case StateConnectingTarget:
		e.enter(StateWaitingTargetAnnounce)
	}
}

func (e *Engine) networkChanged(ssid string) {
	if e.state == StateConnectingOnboardee || e.state == StateConnectingTarget {
		if wifi.SSIDEqual(ssid, e.req.network(e.state.Phase()).SSID) {
			e.logger.Debug("requested network associated", slog.String("ssid", ssid))
			e.joined()
			return
		}
	}
	e.logger.Debug("network change ignored",
		slog.String("ssid", ssid), slog.String("state", e.state.String()))
}

func (e *Engine) armTimer(d time.Duration) {
	e.disarmTimer()
	e.timerSeq++
	seq := e.timerSeq
	e.timer = e.afterFunc(d, func() {
		_ = e.post(func() { e.timerFired(seq) })
	})
}

func (e *Engine) disarmTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) timerFired(seq uint64) {
	if e.timer == nil || seq != e.timerSeq {
		return
	}
	e.timer = nil
	if e.state == StateWaitingOnboardeeAnnounce || e.state == StateWaitingTargetAnnounce {
		e.fail(KindAnnounceTimeout,
			fmt.Errorf("no announcement within %s", e.req.announceTimeout(e.state.Phase())))
	}
}

func (e *Engine) announced(a *discovery.Announcement) {
	switch e.state {
	case StateWaitingOnboardeeAnnounce:
		if !a.Usable() {
			e.traceAnnouncement(a, false, "no usable device id, locator or port")
			return
		}
		e.disarmTimer()
		e.observePhase(PhaseOnboardee)
		e.device = &DeviceContext{ID: a.DeviceID, Onboardee: a, AcceptedAt: time.Now()}
		e.traceAnnouncement(a, true, "")
		e.enter(StateOnboardeeAnnounceReceived)

	case StateWaitingTargetAnnounce:
		if e.device == nil || a.DeviceID == uuid.Nil || a.DeviceID != e.device.ID {
			e.traceAnnouncement(a, false, "identity mismatch")
			return
		}
		e.disarmTimer()
		e.observePhase(PhaseTarget)
		e.device.Target = a
		e.traceAnnouncement(a, true, "")
		e.enter(StateTargetAnnounceReceived)

	default:
		e.traceAnnouncement(a, false, "not waiting in "+e.state.String())
	}
}

func (e *Engine) observePhase(p Phase) {
	if !e.phaseStart.IsZero() {
		e.metrics.PhaseDuration.WithLabelValues(p.String()).Observe(time.Since(e.phaseStart).Seconds())
	}
}

func (e *Engine) checkDevice() {
	if !e.device.Onboardee.Supports(discovery.InterfaceOnboarding) {
		e.fail(KindDeviceIncompatible, fmt.Errorf("device %s does not announce %s",
			e.device.ID, discovery.InterfaceOnboarding))
		return
	}
	if err := version.Supported(e.device.Onboardee.Version); err != nil {
		e.fail(KindDeviceIncompatible, fmt.Errorf("device %s: %w", e.device.ID, err))
		return
	}
	e.enter(StateConfiguringOnboardee)
}

func (e *Engine) configure() {
	if e.device == nil {
		e.fail(KindConfigurationFailed, errors.New("no device context"))
		return
	}
	target := e.req.Target
	if _, err := wifi.WirePassphrase(target); err != nil {
		e.fail(KindConfigurationFailed, fmt.Errorf("target credentials: %w", err))
		return
	}
	a := e.device.Onboardee
	locator, port := a.Locator(), a.Port
	if locator == "" || port == 0 {
		e.fail(KindConfigurationFailed, fmt.Errorf("device %s has no usable locator", e.device.ID))
		return
	}

	e.submit("CONFIGURE", a.Endpoint(), e.configureTimeout,
		func(ctx context.Context) error {
			return e.configurator.Configure(ctx, locator, port, target)
		},
		func(err error) {
			if err != nil {
				e.fail(KindConfigurationFailed, err)
				return
			}
			e.enter(StateConnectingTarget)
		})
}

func (e *Engine) restore() {
	err := e.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(e.ctx, e.restoreTimeout)
		defer cancel()
		start := time.Now()
		err := e.joiner.Restore(ctx)
		if err != nil {
			e.logger.Warn("restoring original network failed", slog.Any("error", err))
		}
		_ = e.post(func() { e.traceAction("RESTORE", "", time.Since(start), err) })
	})
	if err != nil {
		e.logger.Warn("cannot schedule network restore", slog.Any("error", err))
	}
}

func (e *Engine) offboard(locator string, port uint16) error {
	if e.state != StateIdle || e.offboarding {
		return ErrNotIdle
	}
	e.offboarding = true
	endpoint := net.JoinHostPort(locator, strconv.Itoa(int(port)))

	err := e.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(e.ctx, e.configureTimeout)
		defer cancel()
		start := time.Now()
		err := e.configurator.Offboard(ctx, locator, port)
		_ = e.post(func() { e.offboarded(locator, port, endpoint, time.Since(start), err) })
	})
	if err != nil {
		e.offboarding = false
		return fmt.Errorf("onboarding: schedule offboard: %w", err)
	}
	return nil
}

func (e *Engine) offboarded(locator string, port uint16, endpoint string, took time.Duration, err error) {
	e.offboarding = false
	e.traceAction("OFFBOARD", endpoint, took, err)

	if err != nil {
		e.metrics.Errors.WithLabelValues(PhaseDevice.String(), KindOffboardFailed.String()).Inc()
		e.logger.Warn("offboard failed", slog.String("endpoint", endpoint), slog.Any("error", err))
		ev := ErrorEvent{Phase: PhaseDevice, State: e.state, Kind: KindOffboardFailed, Detail: err.Error(), Err: err}
		e.notify.push(func() { e.listener.OnError(ev) })
		return
	}

	e.logger.Info("device offboarded", slog.String("endpoint", endpoint))
	if ol, ok := e.listener.(OffboardListener); ok {
		e.notify.push(func() { ol.OnOffboarded(locator, port) })
	}
}
