package engine

import (
	"math"
	"time"

	"github.com/markerflow/markerflow/internal/classify"
	"github.com/markerflow/markerflow/internal/curve"
	"github.com/markerflow/markerflow/internal/geo"
	"github.com/markerflow/markerflow/pkg/core"
)

// stepsFor derives the tick count for one transition: effective frames per
// second times duration, rounded, floored at one so the division below can
// never be by zero.
func stepsFor(fps float64, duration time.Duration) int {
	steps := int(math.Round(fps * float64(duration.Milliseconds()) / 1000))
	if steps < 1 {
		steps = 1
	}
	return steps
}

// intervalFor derives the tick interval, floored at one microsecond.
func intervalFor(duration time.Duration, steps int) time.Duration {
	us := math.Round(float64(duration.Microseconds()) / float64(steps))
	if us < 1 {
		us = 1
	}
	return time.Duration(us) * time.Microsecond
}

// startSessionLocked begins a Running session. preserveElapsed keeps the
// accumulated progress across a rate change; a fresh classification starts
// from zero.
func (e *Engine) startSessionLocked(preserveElapsed bool) {
	fps := e.policy.EffectiveFPS(e.controller.Profile())
	steps := stepsFor(fps, e.policy.Duration)
	e.interval = intervalFor(e.policy.Duration, steps)
	if !preserveElapsed {
		e.elapsed = 0
	}

	e.gen++
	gen := e.gen
	e.running = true
	e.stopCh = make(chan struct{})

	go e.tickLoop(gen, e.interval, e.stopCh)
}

// tickLoop drives one session. Ticks are not reentrant: each tick runs to
// completion under the engine mutex, and a tick outliving its session
// observes a generation mismatch and does nothing.
func (e *Engine) tickLoop(gen uint64, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !e.tick(gen) {
				return
			}
		}
	}
}

// tick advances the elapsed accumulator by one interval, recomputes every
// active transition's current state at the eased fraction, and publishes.
// Returns false once the session is over.
func (e *Engine) tick(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed || gen != e.gen {
		return false
	}

	e.elapsed += e.interval
	if e.elapsed > e.policy.Duration {
		e.elapsed = e.policy.Duration
	}
	fraction := float64(e.elapsed) / float64(e.policy.Duration)
	if fraction > 1 {
		fraction = 1
	}
	eased := curve.Apply(e.policy.Curve, fraction)

	for id, tr := range e.active {
		tr.Current = interpolate(tr.From, tr.To, eased)
		e.active[id] = tr
	}

	if fraction >= 1 {
		e.finalizeLocked()
		return false
	}

	e.publishLocked()
	return true
}

// interpolate produces the displayed marker at eased progress t: position,
// rotation, alpha, and z-order blend between from and to (extrapolating on
// curve overshoot); everything else copies from the target.
func interpolate(from, to core.Marker, t float64) core.Marker {
	m := to
	m.Position = geo.PositionAt(from.Position, to.Position, t)
	m.Rotation = geo.AngleAt(from.Rotation, to.Rotation, t)
	m.Alpha = geo.ValueAt(from.Alpha, to.Alpha, t)
	m.ZIndex = geo.ValueAt(from.ZIndex, to.ZIndex, t)
	return m
}

// finalizeLocked commits every active transition to its target value,
// clears the active bucket, stops the clock, and publishes the settled set.
func (e *Engine) finalizeLocked() {
	for id, tr := range e.active {
		e.stable[id] = tr.To
	}
	e.active = map[string]classify.Transition{}
	e.cancelTickerLocked()
	e.publishLocked()
}

// cancelSessionLocked stops the clock ahead of a reclassification. The
// generation bump makes cancellation synchronous from the caller's
// perspective: a tick that already fired no-ops on the stale generation.
func (e *Engine) cancelSessionLocked() {
	e.cancelTickerLocked()
}

func (e *Engine) cancelTickerLocked() {
	e.gen++
	if e.stopCh != nil {
		close(e.stopCh)
		e.stopCh = nil
	}
	e.running = false
}
