// Package classify partitions an incoming target marker set against the
// currently displayed set into stable markers and active transitions. It is
// deliberately timer-free: the engine substitutes the result wholesale,
// which keeps the stable/active disjointness invariant checkable in
// isolation.
package classify

import "github.com/markerflow/markerflow/pkg/core"

// Transition is the ephemeral record for one actively interpolating marker.
// From is the state displayed when the transition was accepted, To the new
// target, Current the latest interpolated state (starts at From). On
// interruption a fresh transition is built with Current as the new From,
// which is what keeps interruptions artifact-free.
type Transition struct {
	From    core.Marker
	To      core.Marker
	Current core.Marker
}

// ShouldAnimateFunc decides whether a geometry change becomes an animated
// transition (true) or folds straight into the stable bucket (false).
type ShouldAnimateFunc func(current, target core.Marker) bool

// Result is one complete stable/active partition. Stable and Active are
// disjoint by construction and together cover exactly the target set's IDs.
type Result struct {
	Stable core.MarkerSet
	Active map[string]Transition

	// Carried holds the IDs whose in-flight transition survived unchanged
	// because the new target matched the transition's existing destination.
	// If every active entry is carried and none were added or removed, the
	// running clock keeps its elapsed progress instead of restarting.
	Carried map[string]bool
}

// Classify buckets every marker in target against lastDisplayed:
//
//   - IDs absent from lastDisplayed appear stable at their target value
//     immediately, avoiding initial-load flicker.
//   - IDs whose position and rotation are unchanged go stable at the target
//     value, so attribute-only changes (icon, alpha source value, z-order)
//     apply without animating geometry.
//   - IDs with changed geometry become active transitions when the guard
//     admits them, otherwise they snap stable at the target value.
//
// IDs present in lastDisplayed but absent from target are dropped silently.
// prior carries the previous active map so an unchanged in-flight target
// keeps its transition (and therefore its progress) instead of restarting.
func Classify(lastDisplayed, target core.MarkerSet, prior map[string]Transition, guard ShouldAnimateFunc) Result {
	res := Result{
		Stable:  make(core.MarkerSet, len(target)),
		Active:  make(map[string]Transition),
		Carried: make(map[string]bool),
	}

	for id, tgt := range target {
		last, shown := lastDisplayed[id]
		if !shown {
			res.Stable[id] = tgt
			continue
		}
		if last.GeometryEquals(tgt) {
			res.Stable[id] = tgt
			continue
		}
		if pr, ok := prior[id]; ok && pr.To.GeometryEquals(tgt) {
			// Same destination the marker is already flying toward; refresh
			// the pass-through attributes but leave progress alone.
			pr.To = tgt
			res.Active[id] = pr
			res.Carried[id] = true
			continue
		}
		if guard == nil || guard(last, tgt) {
			res.Active[id] = Transition{From: last, To: tgt, Current: last}
			continue
		}
		res.Stable[id] = tgt
	}

	return res
}

// Unchanged reports whether the partition leaves a running animation
// session exactly as it was: every active transition carried over, nothing
// newly admitted, and the same transition count as before.
func (r Result) Unchanged(prior map[string]Transition) bool {
	if len(r.Active) != len(prior) {
		return false
	}
	for id := range r.Active {
		if !r.Carried[id] {
			return false
		}
	}
	return true
}
