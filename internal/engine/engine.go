// Package engine implements the marker-transition engine: it classifies
// incoming marker updates against the currently displayed state, drives a
// time-stepped interpolation of repositioned markers, and publishes the
// composed marker set on every frame. Interrupting an in-flight transition
// with a new target never snaps: the new transition starts from the
// mid-flight displayed state.
package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/markerflow/markerflow/internal/adaptive"
	"github.com/markerflow/markerflow/internal/channel"
	"github.com/markerflow/markerflow/internal/classify"
	"github.com/markerflow/markerflow/internal/viewport"
	"github.com/markerflow/markerflow/pkg/core"
)

// TimingSource delivers sequences of observed frame-render durations. The
// returned function detaches the subscription.
type TimingSource interface {
	Subscribe(fn func(samples []time.Duration)) (remove func())
}

// Hooks are optional lifecycle callbacks a UI binding layer can attach so
// it can mirror engine state into its own component model without the
// engine knowing anything about the framework. Callbacks run synchronously
// on the engine's execution context and must not call back into the engine.
type Hooks interface {
	OnCreate()
	OnInputChanged(static, target core.MarkerSet, policy core.Policy)
	OnTick(frame core.Frame)
	OnDispose()
}

// Option configures engine construction.
type Option func(*Engine)

// WithLogger replaces the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithHooks attaches lifecycle callbacks.
func WithHooks(h Hooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine owns the displayed marker state exclusively. All mutation happens
// under one mutex, standing in for the single-threaded cooperative
// scheduler of the host UI: updates, ticks, profile changes, and teardown
// serialize against each other, and external callers only ever observe
// immutable snapshots.
type Engine struct {
	mu sync.Mutex

	logger *slog.Logger
	hooks  Hooks
	now    func() time.Time

	policy     core.Policy
	guard      *viewport.Guard
	controller *adaptive.Controller

	static core.MarkerSet
	target core.MarkerSet // latest animated-marker input, kept for Configure
	stable core.MarkerSet
	active map[string]classify.Transition

	// Tick session state. gen invalidates stale ticks synchronously:
	// cancel bumps it under the mutex, so a tick goroutine that already
	// fired observes the mismatch and does nothing.
	running  bool
	gen      uint64
	elapsed  time.Duration
	interval time.Duration
	stopCh   chan struct{}

	out      *channel.Broadcaster[core.Frame]
	seq      uint64
	disposed bool

	detachTiming func()
}

// New validates the policy and constructs an engine. One frame is always
// published immediately so subscribers never observe a blank initial
// render.
func New(policy core.Policy, opts ...Option) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		logger: slog.Default(),
		now:    time.Now,
		policy: policy,
		static: core.MarkerSet{},
		target: core.MarkerSet{},
		stable: core.MarkerSet{},
		active: map[string]classify.Transition{},
		out:    channel.NewBroadcaster[core.Frame](),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.guard = viewport.NewGuard(policy.Bounds, policy.BoundsSource)

	controller, err := adaptive.NewController(policy, e.onProfileChange)
	if err != nil {
		return nil, err
	}
	e.controller = controller

	e.mu.Lock()
	e.publishLocked()
	e.mu.Unlock()

	if e.hooks != nil {
		e.hooks.OnCreate()
	}
	e.logger.Debug("engine created",
		"duration", policy.Duration, "maxFps", policy.MaxFPS, "adaptive", policy.AdaptiveEnabled)
	return e, nil
}

// Update accepts a full desired state: the static set, the animated target
// set, and the policy. It reclassifies against the currently displayed
// state, cancels any running clock, and starts a fresh session when
// transitions remain. Fails fast with core.ErrInvalidPolicy before touching
// any state. Calls after Dispose are silent no-ops.
func (e *Engine) Update(static, animated core.MarkerSet, policy core.Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	if static == nil {
		static = core.MarkerSet{}
	}
	if animated == nil {
		animated = core.MarkerSet{}
	}

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return nil
	}
	e.applyLocked(static.Clone(), animated.Clone(), policy)
	e.mu.Unlock()

	// Outside the mutex: the controller calls back into the engine on
	// profile changes.
	e.controller.Reconfigure(policy)

	if e.hooks != nil {
		e.hooks.OnInputChanged(static, animated, policy)
	}
	return nil
}

// Configure replaces the policy, re-running classification against the
// latest supplied target set.
func (e *Engine) Configure(policy core.Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return nil
	}
	e.applyLocked(e.static, e.target, policy)
	e.mu.Unlock()

	e.controller.Reconfigure(policy)
	return nil
}

// applyLocked is the single state-transition point for external updates.
func (e *Engine) applyLocked(static, animated core.MarkerSet, policy core.Policy) {
	// Swap the viewport guard when its configuration changed so the new
	// bounds govern this classification.
	if policy.Bounds != e.policy.Bounds || policy.BoundsSource != e.policy.BoundsSource || e.guard == nil {
		if e.guard != nil {
			e.guard.Detach()
		}
		e.guard = viewport.NewGuard(policy.Bounds, policy.BoundsSource)
	}
	e.policy = policy
	e.static = static
	e.target = animated

	profile := e.controller.Profile()
	guardFn := func(current, target core.Marker) bool {
		return e.guard.ShouldAnimate(profile, policy.SnapOnLow, current, target)
	}

	lastDisplayed := make(core.MarkerSet, len(e.stable)+len(e.active))
	for id, m := range e.stable {
		lastDisplayed[id] = m
	}
	for id, tr := range e.active {
		lastDisplayed[id] = tr.Current
	}

	res := classify.Classify(lastDisplayed, animated, e.active, guardFn)

	if e.running && res.Unchanged(e.active) {
		// Every transition carried over: keep the clock and its elapsed
		// progress, just substitute the refreshed partition.
		e.stable = res.Stable
		e.active = res.Active
		e.publishLocked()
		return
	}

	e.cancelSessionLocked()
	// The clock restarts from zero, so carried transitions must rebase onto
	// their displayed position; keeping the original From would run them
	// backward.
	for id := range res.Carried {
		tr := res.Active[id]
		tr.From = tr.Current
		res.Active[id] = tr
	}
	e.stable = res.Stable
	e.active = res.Active
	if len(e.active) > 0 {
		e.startSessionLocked(false)
	}
	e.publishLocked()
}

// CurrentMarkers returns a snapshot of the composed set, for hosts that
// render imperatively instead of subscribing.
func (e *Engine) CurrentMarkers() core.MarkerSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Compose(e.static, e.stable, e.active)
}

// Subscribe registers for composed-frame notifications. The most recent
// frame is replayed immediately. The returned cancel detaches the
// subscriber.
func (e *Engine) Subscribe() (<-chan core.Frame, func()) {
	return e.out.Subscribe()
}

// Profile exposes the current effective runtime profile.
func (e *Engine) Profile() core.RuntimeProfile {
	return e.controller.Profile()
}

// Controller exposes the adaptive controller for status reporting.
func (e *Engine) Controller() *adaptive.Controller {
	return e.controller
}

// FrameStats summarizes the adaptive controller's current sample window.
func (e *Engine) FrameStats() (avg time.Duration, jankRatio float64, samples int) {
	return e.controller.Stats()
}

// ActiveTransitions reports how many markers are currently mid-flight.
func (e *Engine) ActiveTransitions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// ReportFrameTimings feeds observed frame-render durations to the adaptive
// controller. Only meaningful when the policy enables adaptive mode, but
// always harmless.
func (e *Engine) ReportFrameTimings(samples ...time.Duration) {
	e.controller.AddSamples(samples...)
}

// AttachTimingSource subscribes the engine to a frame-timing source.
// Any previously attached source is detached first.
func (e *Engine) AttachTimingSource(src TimingSource) {
	e.mu.Lock()
	prev := e.detachTiming
	e.mu.Unlock()
	if prev != nil {
		prev()
	}

	remove := src.Subscribe(func(samples []time.Duration) {
		e.controller.AddSamples(samples...)
	})

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		remove()
		return
	}
	e.detachTiming = remove
	e.mu.Unlock()
}

// Dispose tears the engine down: cancels any running clock, detaches from
// external listenables, and closes the notification channel. Idempotent;
// timers and listeners racing teardown degrade to no-ops.
func (e *Engine) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	e.cancelSessionLocked()
	detach := e.detachTiming
	e.detachTiming = nil
	guard := e.guard
	e.mu.Unlock()

	if detach != nil {
		detach()
	}
	if guard != nil {
		guard.Detach()
	}
	e.out.Close()

	if e.hooks != nil {
		e.hooks.OnDispose()
	}
	e.logger.Debug("engine disposed")
}

// onProfileChange reacts to adaptive profile transitions: entering the low
// profile with snap-on-low finalizes every transition immediately; a pure
// rate change restarts the clock at the new interval, preserving elapsed
// progress so markers continue from their current interpolated position.
func (e *Engine) onProfileChange(p core.RuntimeProfile) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}

	e.logger.Info("runtime profile changed", "profile", p.String())

	if !e.running {
		return
	}
	if p == core.ProfileLow && e.policy.SnapOnLow {
		e.finalizeLocked()
		return
	}
	e.cancelTickerLocked()
	e.startSessionLocked(true)
}

func (e *Engine) publishLocked() {
	e.seq++
	frame := core.Frame{
		Seq:       e.seq,
		Time:      e.now(),
		Markers:   Compose(e.static, e.stable, e.active),
		Animating: e.running,
	}
	e.out.Publish(frame)
	if e.hooks != nil {
		e.hooks.OnTick(frame)
	}
}
