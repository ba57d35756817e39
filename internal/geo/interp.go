// Package geo provides the interpolation primitives driving marker
// transitions: linear position interpolation, shortest-arc angle
// interpolation, and web-mercator projection for renderer-facing output.
package geo

import (
	"errors"
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/markerflow/markerflow/pkg/core"
)

// ErrInvalidInterpolationInput is returned when a checked interpolation call
// receives a progress value outside [0,1]. Curve-driven interpolation goes
// through the *At functions instead, which extrapolate.
var ErrInvalidInterpolationInput = errors.New("interpolation progress out of range")

// LerpPosition linearly interpolates between two coordinates.
// t must be in [0,1] inclusive.
func LerpPosition(a, b core.LatLng, t float64) (core.LatLng, error) {
	if t < 0 || t > 1 || math.IsNaN(t) {
		return core.LatLng{}, fmt.Errorf("%w: t=%v", ErrInvalidInterpolationInput, t)
	}
	return PositionAt(a, b, t), nil
}

// LerpAngle interpolates between two angles in degrees along the shorter
// rotational arc. t must be in [0,1] inclusive.
func LerpAngle(a, b, t float64) (float64, error) {
	if t < 0 || t > 1 || math.IsNaN(t) {
		return 0, fmt.Errorf("%w: t=%v", ErrInvalidInterpolationInput, t)
	}
	return AngleAt(a, b, t), nil
}

// PositionAt is the unchecked interpolation path used with eased progress.
// Values of t outside [0,1] extrapolate along the segment, which is what
// overshooting curves (elastic, back) rely on.
func PositionAt(a, b core.LatLng, t float64) core.LatLng {
	from := geom.XY{X: a.Lng, Y: a.Lat}
	to := geom.XY{X: b.Lng, Y: b.Lat}
	p := from.Add(to.Sub(from).Scale(t))
	return core.LatLng{Lat: p.Y, Lng: p.X}
}

// AngleAt interpolates angles in degrees without a domain check, always
// taking the shorter arc. Both inputs are normalized into [0,360) first and
// the signed difference is wrapped into (-180,180], so a 350°→10° sweep
// passes through 0° rather than 180°.
func AngleAt(a, b, t float64) float64 {
	a = normalizeDegrees(a)
	b = normalizeDegrees(b)
	diff := b - a
	if diff > 180 {
		diff -= 360
	} else if diff <= -180 {
		diff += 360
	}
	return normalizeDegrees(a + t*diff)
}

// ValueAt linearly interpolates a scalar, extrapolating outside [0,1].
// Used for alpha and z-order blending.
func ValueAt(a, b, t float64) float64 {
	return a + (b-a)*t
}

func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
