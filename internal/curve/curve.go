// Package curve provides the stock easing curves used by marker
// transitions. A curve maps elapsed-time fraction to eased progress;
// outputs outside [0,1] are legitimate (ElasticOut overshoots) and the
// interpolation layer extrapolates through them.
package curve

import (
	"math"

	"github.com/markerflow/markerflow/pkg/core"
)

// Linear passes the fraction through unchanged.
func Linear(t float64) float64 {
	return t
}

// EaseIn accelerates from standstill.
func EaseIn(t float64) float64 {
	return t * t * t
}

// EaseOut decelerates into the target.
func EaseOut(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

// EaseInOut is the smoothstep cubic: slow start, slow finish.
func EaseInOut(t float64) float64 {
	return -2*math.Pow(t, 3) + 3*math.Pow(t, 2)
}

// ElasticOut springs past the target before settling. Output exceeds 1
// mid-flight.
func ElasticOut(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	const period = 0.3
	return math.Pow(2, -10*t)*math.Sin((t-period/4)*(2*math.Pi)/period) + 1
}

// Apply evaluates the curve at t, substituting Linear when c is nil.
func Apply(c core.Curve, t float64) float64 {
	if c == nil {
		return Linear(t)
	}
	return c(t)
}

// ByName resolves a configuration string to a curve. Unknown names fall
// back to Linear so a typo in a config file degrades instead of failing.
func ByName(name string) core.Curve {
	switch name {
	case "easeIn":
		return EaseIn
	case "easeOut":
		return EaseOut
	case "easeInOut":
		return EaseInOut
	case "elasticOut":
		return ElasticOut
	default:
		return Linear
	}
}
