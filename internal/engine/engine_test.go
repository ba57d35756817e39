package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markerflow/markerflow/pkg/core"
)

// slowPolicy yields 4 steps of 25s each: the live ticker never fires within
// a test run, so step drives the clock deterministically.
func slowPolicy() core.Policy {
	p := core.DefaultPolicy()
	p.Duration = 100 * time.Second
	p.MaxFPS = 0.04
	p.MinFPS = 0.04
	return p
}

// step stops the live ticker goroutine without invalidating the session and
// advances the clock by exactly one tick.
func step(t *testing.T, e *Engine) {
	t.Helper()
	e.mu.Lock()
	if e.stopCh != nil {
		close(e.stopCh)
		e.stopCh = nil
	}
	gen := e.gen
	e.mu.Unlock()
	e.tick(gen)
}

func carAt(lat float64) core.Marker {
	return core.Marker{
		ID:       "car",
		Position: core.LatLng{Lat: lat, Lng: 0},
		Alpha:    1,
		Visible:  true,
	}
}

func displayedLat(e *Engine) float64 {
	return e.CurrentMarkers()["car"].Position.Lat
}

func TestNew_RejectsInvalidPolicy(t *testing.T) {
	bad := core.DefaultPolicy()
	bad.Duration = 0

	_, err := New(bad)
	require.ErrorIs(t, err, core.ErrInvalidPolicy)
}

func TestNew_PublishesInitialFrame(t *testing.T) {
	e, err := New(core.DefaultPolicy())
	require.NoError(t, err)
	defer e.Dispose()

	ch, cancel := e.Subscribe()
	defer cancel()

	select {
	case frame := <-ch:
		assert.Equal(t, uint64(1), frame.Seq)
		assert.Empty(t, frame.Markers)
		assert.False(t, frame.Animating)
	case <-time.After(time.Second):
		t.Fatal("expected an initial frame even with zero transitions")
	}
}

func TestUpdate_RejectsInvalidPolicyWithoutMutation(t *testing.T) {
	e, err := New(slowPolicy())
	require.NoError(t, err)
	defer e.Dispose()

	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(0)), slowPolicy()))

	bad := slowPolicy()
	bad.MaxFPS = -1
	err = e.Update(nil, core.NewMarkerSet(carAt(99)), bad)
	require.ErrorIs(t, err, core.ErrInvalidPolicy)

	assert.Equal(t, float64(0), displayedLat(e), "failed update must not touch prior valid state")
}

func TestUpdate_NewMarkerShowsImmediately(t *testing.T) {
	e, err := New(slowPolicy())
	require.NoError(t, err)
	defer e.Dispose()

	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(7)), slowPolicy()))

	assert.Equal(t, float64(7), displayedLat(e))
	assert.Zero(t, e.ActiveTransitions(), "first appearance never animates")
}

func TestUpdate_IdempotentTarget(t *testing.T) {
	e, err := New(slowPolicy())
	require.NoError(t, err)
	defer e.Dispose()

	target := core.NewMarkerSet(carAt(3))
	require.NoError(t, e.Update(nil, target, slowPolicy()))
	first := e.CurrentMarkers()

	require.NoError(t, e.Update(nil, target, slowPolicy()))
	second := e.CurrentMarkers()

	assert.Zero(t, e.ActiveTransitions())
	assert.Equal(t, first, second)
}

func TestUpdate_MoveAnimatesStepwise(t *testing.T) {
	e, err := New(slowPolicy())
	require.NoError(t, err)
	defer e.Dispose()

	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(0)), slowPolicy()))
	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(4)), slowPolicy()))
	require.Equal(t, 1, e.ActiveTransitions())

	step(t, e) // 25% of the way
	assert.InDelta(t, 1.0, displayedLat(e), 1e-9)

	step(t, e)
	assert.InDelta(t, 2.0, displayedLat(e), 1e-9)
}

func TestUpdate_InterruptionResumesFromDisplayedState(t *testing.T) {
	e, err := New(slowPolicy())
	require.NoError(t, err)
	defer e.Dispose()

	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(0)), slowPolicy()))
	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(4)), slowPolicy()))

	step(t, e)
	require.InDelta(t, 1.0, displayedLat(e), 1e-9)

	// Re-target mid-flight. The new leg starts at the in-flight displayed
	// value, not at the original 0 or the superseded target 4.
	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(8)), slowPolicy()))

	e.mu.Lock()
	tr := e.active["car"]
	elapsed := e.elapsed
	e.mu.Unlock()
	assert.InDelta(t, 1.0, tr.From.Position.Lat, 1e-9)
	assert.Zero(t, elapsed, "a superseding target restarts the leg")

	step(t, e) // 25% of 1.0 -> 8.0
	assert.InDelta(t, 2.75, displayedLat(e), 1e-9)
}

func TestUpdate_NoopRetargetKeepsProgress(t *testing.T) {
	e, err := New(slowPolicy())
	require.NoError(t, err)
	defer e.Dispose()

	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(0)), slowPolicy()))
	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(4)), slowPolicy()))

	step(t, e)
	require.InDelta(t, 1.0, displayedLat(e), 1e-9)

	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(4)), slowPolicy()))

	e.mu.Lock()
	elapsed := e.elapsed
	running := e.running
	e.mu.Unlock()
	assert.Equal(t, 25*time.Second, elapsed, "unchanged in-flight target must not reset progress")
	assert.True(t, running)
	assert.InDelta(t, 1.0, displayedLat(e), 1e-9)
}

func TestUpdate_MixedRetargetRebasesCarriedTransition(t *testing.T) {
	e, err := New(slowPolicy())
	require.NoError(t, err)
	defer e.Dispose()

	a0 := core.Marker{ID: "a", Position: core.LatLng{Lat: 0}, Visible: true}
	a4 := core.Marker{ID: "a", Position: core.LatLng{Lat: 4}, Visible: true}
	b0 := core.Marker{ID: "b", Position: core.LatLng{Lat: 0}, Visible: true}
	b9 := core.Marker{ID: "b", Position: core.LatLng{Lat: 9}, Visible: true}

	require.NoError(t, e.Update(nil, core.NewMarkerSet(a0, b0), slowPolicy()))
	require.NoError(t, e.Update(nil, core.NewMarkerSet(a4, b0), slowPolicy()))

	step(t, e)
	step(t, e) // a is halfway: displayed at 2.0
	require.InDelta(t, 2.0, e.CurrentMarkers()["a"].Position.Lat, 1e-9)

	// Mixed update: a keeps its in-flight destination while b starts moving.
	// The session restarts for b, and a's leg must rebase onto its displayed
	// position instead of replaying from the original 0.
	require.NoError(t, e.Update(nil, core.NewMarkerSet(a4, b9), slowPolicy()))

	e.mu.Lock()
	trA := e.active["a"]
	elapsed := e.elapsed
	e.mu.Unlock()
	require.Zero(t, elapsed, "adding a transition restarts the clock")
	assert.InDelta(t, 2.0, trA.From.Position.Lat, 1e-9)

	step(t, e) // 25% of the new leg
	got := e.CurrentMarkers()
	assert.GreaterOrEqual(t, got["a"].Position.Lat, 2.0, "carried marker must never move backward")
	assert.InDelta(t, 2.5, got["a"].Position.Lat, 1e-9)
	assert.InDelta(t, 2.25, got["b"].Position.Lat, 1e-9)
}

func TestUpdate_AddRemoveUpdateComposition(t *testing.T) {
	e, err := New(slowPolicy())
	require.NoError(t, err)
	defer e.Dispose()

	static := core.NewMarkerSet(core.Marker{ID: "static", Position: core.LatLng{Lat: 100}})
	a0 := core.Marker{ID: "a", Position: core.LatLng{Lat: 0}}
	b5 := core.Marker{ID: "b", Position: core.LatLng{Lat: 5}}
	require.NoError(t, e.Update(static, core.NewMarkerSet(a0, b5), slowPolicy()))

	a2 := core.Marker{ID: "a", Position: core.LatLng{Lat: 2}}
	c7 := core.Marker{ID: "c", Position: core.LatLng{Lat: 7}}
	require.NoError(t, e.Update(static, core.NewMarkerSet(a2, c7), slowPolicy()))

	got := e.CurrentMarkers()
	assert.Equal(t, float64(100), got["static"].Position.Lat, "static marker unchanged")
	assert.Equal(t, float64(7), got["c"].Position.Lat, "new marker present immediately")
	_, hasB := got["b"]
	assert.False(t, hasB, "removed marker absent from output")
	require.Equal(t, 1, e.ActiveTransitions())

	step(t, e)
	assert.InDelta(t, 0.5, displayedLat2(e, "a"), 1e-9, "a animates from 0 toward 2")
}

func displayedLat2(e *Engine, id string) float64 {
	return e.CurrentMarkers()[id].Position.Lat
}

func TestUpdate_OutOfViewportSnapsWithoutFractionalFrames(t *testing.T) {
	policy := slowPolicy()
	policy.Bounds = &core.LatLngBounds{
		Southwest: core.LatLng{Lat: 40, Lng: 40},
		Northeast: core.LatLng{Lat: 60, Lng: 60},
	}

	e, err := New(policy)
	require.NoError(t, err)
	defer e.Dispose()

	ch, cancel := e.Subscribe()
	defer cancel()

	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(0)), policy))
	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(4)), policy))

	assert.Zero(t, e.ActiveTransitions(), "both endpoints outside bounds must snap")
	assert.Equal(t, float64(4), displayedLat(e))

	// Drain whatever frames were published: none may show a fractional lat.
	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case frame := <-ch:
			if m, ok := frame.Markers["car"]; ok {
				lat := m.Position.Lat
				assert.True(t, lat == 0 || lat == 4, "unexpected interpolated frame at lat %v", lat)
			}
		case <-deadline:
			return
		}
	}
}

func TestEngine_FinalizesInRealTime(t *testing.T) {
	policy := core.DefaultPolicy()
	policy.Duration = 80 * time.Millisecond
	policy.MaxFPS = 50
	policy.MinFPS = 10

	e, err := New(policy)
	require.NoError(t, err)
	defer e.Dispose()

	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(0)), policy))
	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(4)), policy))

	require.Eventually(t, func() bool {
		return e.ActiveTransitions() == 0 && displayedLat(e) == 4
	}, 2*time.Second, 10*time.Millisecond, "transition should finalize at its target")
}

func TestEngine_SnapOnLowProfileFinalizesImmediately(t *testing.T) {
	policy := slowPolicy()
	policy.AdaptiveEnabled = true
	policy.SnapOnLow = true
	policy.AdaptationCooldown = 0

	e, err := New(policy)
	require.NoError(t, err)
	defer e.Dispose()

	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(0)), policy))
	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(4)), policy))
	require.Equal(t, 1, e.ActiveTransitions())

	// Enough heavy samples to trip the low profile.
	for i := 0; i < 20; i++ {
		e.ReportFrameTimings(100 * time.Millisecond)
	}

	assert.Equal(t, core.ProfileLow, e.Profile())
	assert.Zero(t, e.ActiveTransitions(), "entering low with snap-on-low finalizes transitions")
	assert.Equal(t, float64(4), displayedLat(e))
}

func TestEngine_OverrideViaConfigure(t *testing.T) {
	policy := slowPolicy()
	policy.SnapOnLow = true

	e, err := New(policy)
	require.NoError(t, err)
	defer e.Dispose()

	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(0)), policy))
	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(4)), policy))
	require.Equal(t, 1, e.ActiveTransitions())

	low := core.ProfileLow
	pinned := policy
	pinned.ProfileOverride = &low
	require.NoError(t, e.Configure(pinned))

	assert.Equal(t, core.ProfileLow, e.Profile())
	assert.Zero(t, e.ActiveTransitions())
	assert.Equal(t, float64(4), displayedLat(e))
}

func TestEngine_RateChangePreservesElapsed(t *testing.T) {
	policy := slowPolicy()
	policy.AdaptiveEnabled = true
	policy.SnapOnLow = false
	policy.AdaptationCooldown = 0
	policy.MinFPS = 0.02

	e, err := New(policy)
	require.NoError(t, err)
	defer e.Dispose()

	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(0)), policy))
	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(4)), policy))

	step(t, e)
	require.InDelta(t, 1.0, displayedLat(e), 1e-9)

	for i := 0; i < 20; i++ {
		e.ReportFrameTimings(100 * time.Millisecond)
	}
	require.Equal(t, core.ProfileLow, e.Profile())

	e.mu.Lock()
	elapsed := e.elapsed
	running := e.running
	e.mu.Unlock()
	assert.Equal(t, 25*time.Second, elapsed, "rate change must preserve progress")
	assert.True(t, running)
	assert.InDelta(t, 1.0, displayedLat(e), 1e-9, "marker continues from its interpolated position")
}

func TestDispose_IsIdempotentAndSilencesUpdates(t *testing.T) {
	e, err := New(slowPolicy())
	require.NoError(t, err)

	ch, cancel := e.Subscribe()
	defer cancel()

	e.Dispose()
	e.Dispose()

	assert.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(1)), slowPolicy()),
		"update after dispose is a silent no-op")

	drained := false
	for !drained {
		select {
		case _, open := <-ch:
			if !open {
				drained = true
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber channel should be closed after dispose")
		}
	}
}

type recordingHooks struct {
	created  int
	inputs   int
	ticks    int
	disposed int
}

func (h *recordingHooks) OnCreate() { h.created++ }
func (h *recordingHooks) OnInputChanged(static, target core.MarkerSet, policy core.Policy) {
	h.inputs++
}
func (h *recordingHooks) OnTick(frame core.Frame) { h.ticks++ }
func (h *recordingHooks) OnDispose()              { h.disposed++ }

func TestEngine_LifecycleHooks(t *testing.T) {
	hooks := &recordingHooks{}
	e, err := New(slowPolicy(), WithHooks(hooks))
	require.NoError(t, err)

	require.NoError(t, e.Update(nil, core.NewMarkerSet(carAt(1)), slowPolicy()))
	e.Dispose()

	assert.Equal(t, 1, hooks.created)
	assert.Equal(t, 1, hooks.inputs)
	assert.GreaterOrEqual(t, hooks.ticks, 2, "initial publish plus the update publish")
	assert.Equal(t, 1, hooks.disposed)
}

func TestStepsAndInterval(t *testing.T) {
	// 1s at 4 fps -> 4 steps of 250ms.
	steps := stepsFor(4, time.Second)
	require.Equal(t, 4, steps)
	assert.Equal(t, 250*time.Millisecond, intervalFor(time.Second, steps))

	// Floors: sub-step configurations collapse to a single step.
	steps = stepsFor(0.1, 100*time.Millisecond)
	require.Equal(t, 1, steps)
	assert.Equal(t, 100*time.Millisecond, intervalFor(100*time.Millisecond, steps))

	// Interval floor of one microsecond.
	assert.Equal(t, time.Microsecond, intervalFor(time.Microsecond, 5))
}

func TestCompose_MergePrecedence(t *testing.T) {
	static := core.NewMarkerSet(core.Marker{ID: "x", Position: core.LatLng{Lat: 1}})
	stable := core.NewMarkerSet(core.Marker{ID: "x", Position: core.LatLng{Lat: 2}})

	got := Compose(static, stable, nil)
	assert.Equal(t, float64(2), got["x"].Position.Lat, "animated state shadows a static marker with the same id")
}
