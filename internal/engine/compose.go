package engine

import (
	"github.com/markerflow/markerflow/internal/classify"
	"github.com/markerflow/markerflow/pkg/core"
)

// Compose merges the three displayed buckets into the single set exposed to
// renderers: static markers, settled animated markers, and the current
// interpolated state of every in-flight transition. Stable and active are
// disjoint by the classifier invariant; an animated marker sharing an ID
// with a static one shadows it.
func Compose(static, stable core.MarkerSet, active map[string]classify.Transition) core.MarkerSet {
	out := make(core.MarkerSet, len(static)+len(stable)+len(active))
	for id, m := range static {
		out[id] = m
	}
	for id, m := range stable {
		out[id] = m
	}
	for id, tr := range active {
		out[id] = tr.Current
	}
	return out
}
