package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPolicy is returned when a policy fails validation. The wrapped
// message names the offending field.
var ErrInvalidPolicy = errors.New("invalid policy")

// Curve maps a normalized elapsed-time fraction in [0,1] to eased progress.
// Outputs may overshoot [0,1] (elastic/back curves); consumers extrapolate.
type Curve func(t float64) float64

// BoundsSource is a value holder supplying the current viewport bounds.
// Listeners are notified when the held value changes; Value is read
// synchronously on demand. A nil Value means "no bounds known right now".
// AddListener returns the function that detaches the listener again.
type BoundsSource interface {
	Value() *LatLngBounds
	AddListener(fn func()) (remove func())
}

// Policy is the immutable tunable bundle consumed by the transition engine.
// The engine never mutates a Policy, it only derives effective runtime
// parameters from it.
type Policy struct {
	// Duration is the total length of one marker transition.
	Duration time.Duration

	// Curve eases elapsed-time fraction into progress. Nil means linear.
	Curve Curve

	// MaxFPS caps the tick rate at the high profile.
	MaxFPS float64

	// MinFPS is the tick rate floor applied at the low profile.
	MinFPS float64

	// Bounds optionally restricts interpolation to a static viewport box.
	Bounds *LatLngBounds

	// BoundsSource optionally supplies viewport bounds dynamically. When
	// present it takes precedence over Bounds.
	BoundsSource BoundsSource

	// AdaptiveEnabled turns on the frame-health quality controller.
	AdaptiveEnabled bool

	// ProfileOverride pins the runtime profile, bypassing measurement.
	ProfileOverride *RuntimeProfile

	// SnapOnLow skips interpolation entirely while the low profile is
	// active, snapping markers straight to their targets.
	SnapOnLow bool

	// AdaptationCooldown is the minimum spacing between profile changes.
	AdaptationCooldown time.Duration
}

// DefaultPolicy returns the tunables used when the host supplies nothing.
func DefaultPolicy() Policy {
	return Policy{
		Duration:           time.Second,
		MaxFPS:             30,
		MinFPS:             10,
		AdaptationCooldown: 5 * time.Second,
	}
}

// Validate checks the policy, returning an ErrInvalidPolicy-wrapped error
// on the first malformed field. A valid policy is safe to hand to the
// engine without partial-state concerns.
func (p Policy) Validate() error {
	if p.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %v", ErrInvalidPolicy, p.Duration)
	}
	if p.MaxFPS <= 0 {
		return fmt.Errorf("%w: maxFps must be positive, got %v", ErrInvalidPolicy, p.MaxFPS)
	}
	if p.MinFPS <= 0 {
		return fmt.Errorf("%w: minFps must be positive, got %v", ErrInvalidPolicy, p.MinFPS)
	}
	if p.MinFPS > p.MaxFPS {
		return fmt.Errorf("%w: minFps %v exceeds maxFps %v", ErrInvalidPolicy, p.MinFPS, p.MaxFPS)
	}
	if p.AdaptationCooldown < 0 {
		return fmt.Errorf("%w: adaptationCooldown must not be negative, got %v", ErrInvalidPolicy, p.AdaptationCooldown)
	}
	return nil
}

// EffectiveFPS derives the tick rate for a runtime profile.
func (p Policy) EffectiveFPS(profile RuntimeProfile) float64 {
	switch profile {
	case ProfileLow:
		return p.MinFPS
	case ProfileMedium:
		half := p.MaxFPS / 2
		if half < p.MinFPS {
			return p.MinFPS
		}
		return half
	default:
		return p.MaxFPS
	}
}

// EffectiveBounds resolves the viewport box: dynamic source value when one
// is attached, else the static bounds, else nil (no restriction).
func (p Policy) EffectiveBounds() *LatLngBounds {
	if p.BoundsSource != nil {
		if b := p.BoundsSource.Value(); b != nil {
			return b
		}
		return nil
	}
	return p.Bounds
}
