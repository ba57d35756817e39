package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markerflow/markerflow/pkg/core"
)

func at(lat, lng float64) core.Marker {
	return core.Marker{ID: "m", Position: core.LatLng{Lat: lat, Lng: lng}}
}

func box(south, west, north, east float64) *core.LatLngBounds {
	return &core.LatLngBounds{
		Southwest: core.LatLng{Lat: south, Lng: west},
		Northeast: core.LatLng{Lat: north, Lng: east},
	}
}

func TestGuard_NoBoundsAlwaysAnimates(t *testing.T) {
	g := NewGuard(nil, nil)
	assert.True(t, g.ShouldAnimate(core.ProfileHigh, false, at(89, 179), at(-89, -179)))
}

func TestGuard_StaticBounds(t *testing.T) {
	g := NewGuard(box(-10, -10, 10, 10), nil)

	assert.True(t, g.ShouldAnimate(core.ProfileHigh, false, at(0, 0), at(50, 50)),
		"current endpoint inside bounds animates")
	assert.True(t, g.ShouldAnimate(core.ProfileHigh, false, at(50, 50), at(0, 0)),
		"target endpoint inside bounds animates")
	assert.False(t, g.ShouldAnimate(core.ProfileHigh, false, at(50, 50), at(60, 60)),
		"both endpoints outside bounds snap")
}

func TestGuard_EdgeInclusive(t *testing.T) {
	g := NewGuard(box(-10, -10, 10, 10), nil)
	assert.True(t, g.ShouldAnimate(core.ProfileHigh, false, at(10, 10), at(50, 50)))
}

func TestGuard_AntimeridianWrap(t *testing.T) {
	// West of 170 wrapping to east of -170.
	g := NewGuard(box(-10, 170, 10, -170), nil)

	assert.True(t, g.ShouldAnimate(core.ProfileHigh, false, at(0, 175), at(50, 50)))
	assert.True(t, g.ShouldAnimate(core.ProfileHigh, false, at(0, -175), at(50, 50)))
	assert.False(t, g.ShouldAnimate(core.ProfileHigh, false, at(0, 0), at(0, 100)),
		"longitudes between east and west edges are outside a wrapped box")
}

func TestGuard_LowProfileSnapOnLow(t *testing.T) {
	g := NewGuard(nil, nil)

	assert.False(t, g.ShouldAnimate(core.ProfileLow, true, at(0, 0), at(1, 1)),
		"low profile with snap-on-low always snaps")
	assert.True(t, g.ShouldAnimate(core.ProfileLow, false, at(0, 0), at(1, 1)),
		"low profile without snap-on-low still animates")
	assert.True(t, g.ShouldAnimate(core.ProfileHigh, true, at(0, 0), at(1, 1)))
}

func TestGuard_DynamicSourceRefreshesCache(t *testing.T) {
	holder := NewHolder(box(-10, -10, 10, 10))
	g := NewGuard(nil, holder)

	assert.True(t, g.ShouldAnimate(core.ProfileHigh, false, at(0, 0), at(50, 50)))

	holder.Set(box(40, 40, 60, 60))
	assert.False(t, g.ShouldAnimate(core.ProfileHigh, false, at(0, 0), at(20, 20)),
		"narrowed bounds apply to decisions made after the change")
	assert.True(t, g.ShouldAnimate(core.ProfileHigh, false, at(50, 50), at(70, 70)))
}

func TestGuard_DynamicSourceNilValueMeansNoBounds(t *testing.T) {
	holder := NewHolder(nil)
	// Static bounds present but a source is attached, so the source wins.
	g := NewGuard(box(-10, -10, 10, 10), holder)

	assert.True(t, g.ShouldAnimate(core.ProfileHigh, false, at(50, 50), at(60, 60)))
}

func TestGuard_DetachStopsRefreshes(t *testing.T) {
	holder := NewHolder(nil)
	g := NewGuard(nil, holder)

	g.Detach()
	holder.Set(box(40, 40, 60, 60))

	assert.True(t, g.ShouldAnimate(core.ProfileHigh, false, at(0, 0), at(1, 1)),
		"bounds set after detach must not reach the guard")
	g.Detach() // idempotent
}

func TestHolder_ListenersAndRemoval(t *testing.T) {
	holder := NewHolder(nil)

	calls := 0
	remove := holder.AddListener(func() { calls++ })

	holder.Set(box(0, 0, 1, 1))
	require.Equal(t, 1, calls)

	remove()
	holder.Set(nil)
	assert.Equal(t, 1, calls, "removed listener must not fire")
}

func TestHolder_ValueIsACopy(t *testing.T) {
	b := box(0, 0, 1, 1)
	holder := NewHolder(b)

	got := holder.Value()
	require.NotNil(t, got)
	got.Northeast.Lat = 99

	again := holder.Value()
	assert.Equal(t, float64(1), again.Northeast.Lat, "mutating a returned value must not affect the holder")
}
