// Package viewport decides per transition whether interpolation should run
// at all or the marker should snap straight to its target, based on an
// optional axis-aligned bounding box and the active runtime profile.
package viewport

import (
	"sync"

	"github.com/markerflow/markerflow/pkg/core"
)

// Guard gates geometry changes into animated transitions. It caches the
// dynamic bounds value and refreshes the cache when the source notifies a
// change; a bounds change never forces reclassification of transitions that
// were already admitted.
type Guard struct {
	mu     sync.RWMutex
	static *core.LatLngBounds
	source core.BoundsSource
	cached *core.LatLngBounds

	removeListener func()
}

// NewGuard builds a guard from the policy's viewport configuration and, if
// a dynamic source is present, subscribes for cache refreshes.
func NewGuard(static *core.LatLngBounds, source core.BoundsSource) *Guard {
	g := &Guard{static: static, source: source}
	if source != nil {
		g.cached = source.Value()
		g.removeListener = source.AddListener(g.refresh)
	}
	return g
}

func (g *Guard) refresh() {
	v := g.source.Value()
	g.mu.Lock()
	g.cached = v
	g.mu.Unlock()
}

// Bounds resolves the effective viewport box: the cached dynamic value when
// a source is attached, else the static bounds. Nil means no restriction.
func (g *Guard) Bounds() *core.LatLngBounds {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.source != nil {
		return g.cached
	}
	return g.static
}

// ShouldAnimate reports whether the transition from current to target
// should interpolate. Pure decision, no side effects:
//
//   - the low profile with snap-on-low enabled always snaps;
//   - no effective bounds always animates;
//   - otherwise animate iff either endpoint lies inside the bounds.
func (g *Guard) ShouldAnimate(profile core.RuntimeProfile, snapOnLow bool, current, target core.Marker) bool {
	if profile == core.ProfileLow && snapOnLow {
		return false
	}
	b := g.Bounds()
	if b == nil {
		return true
	}
	return b.Contains(current.Position) || b.Contains(target.Position)
}

// Detach unsubscribes from the dynamic bounds source. Safe to call more
// than once.
func (g *Guard) Detach() {
	g.mu.Lock()
	remove := g.removeListener
	g.removeListener = nil
	g.mu.Unlock()
	if remove != nil {
		remove()
	}
}
