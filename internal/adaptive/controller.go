// Package adaptive maps observed frame-render health to a runtime profile.
// It keeps a bounded rolling window of frame durations, derives an average
// and a jank ratio, and steps the profile between high, medium, and low
// with cooldown hysteresis. A policy override pins the profile and bypasses
// measurement entirely.
package adaptive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/markerflow/markerflow/pkg/core"
)

const (
	// WindowCapacity bounds the rolling sample window.
	WindowCapacity = 60

	// MinSamples is the fill level below which no profile decision is made.
	MinSamples = 20

	// JankBudget is the per-frame render budget; frames over it count as
	// jank. One frame at 60fps.
	JankBudget = time.Second / 60
)

// Threshold constants mapping window statistics to target profiles.
const (
	mediumAvgThreshold = 22 * time.Millisecond
	lowAvgThreshold    = 34 * time.Millisecond
	mediumJankRatio    = 0.25
	lowJankRatio       = 0.5
)

// ChangeFunc is invoked, outside the controller's lock, whenever the
// effective profile changes.
type ChangeFunc func(core.RuntimeProfile)

// Controller consumes frame-render durations and derives the runtime
// profile. All methods are safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	enabled  bool
	override *core.RuntimeProfile
	cooldown time.Duration

	window [WindowCapacity]time.Duration
	head   int
	count  int
	sum    time.Duration
	jank   int

	profile    core.RuntimeProfile
	lastChange time.Time

	onChange ChangeFunc
	now      func() time.Time

	jankFrames     metric.Int64Counter
	samplesSeen    metric.Int64Counter
	profileChanges metric.Int64Counter
}

// NewController creates a controller configured from the policy. Metrics
// come from the global OTel meter (no-op when not configured).
func NewController(policy core.Policy, onChange ChangeFunc) (*Controller, error) {
	c := &Controller{
		enabled:  policy.AdaptiveEnabled,
		override: policy.ProfileOverride,
		cooldown: policy.AdaptationCooldown,
		profile:  core.ProfileHigh,
		onChange: onChange,
		now:      time.Now,
	}
	if c.override != nil {
		c.profile = *c.override
	}

	m := meter()
	var err error

	c.jankFrames, err = m.Int64Counter(
		"animation.frames.jank",
		metric.WithDescription("Frames whose render duration exceeded the jank budget"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating jank counter: %w", err)
	}

	c.samplesSeen, err = m.Int64Counter(
		"animation.frames.sampled",
		metric.WithDescription("Frame timing samples consumed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sample counter: %w", err)
	}

	c.profileChanges, err = m.Int64Counter(
		"animation.profile.changes",
		metric.WithDescription("Runtime profile transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating profile change counter: %w", err)
	}

	_, err = m.Int64ObservableGauge(
		"animation.profile.current",
		metric.WithDescription("Current runtime profile (0=high 1=medium 2=low)"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			o.Observe(int64(c.Profile()))
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("registering profile gauge: %w", err)
	}

	return c, nil
}

// Profile returns the current effective profile.
func (c *Controller) Profile() core.RuntimeProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.override != nil {
		return *c.override
	}
	return c.profile
}

// Reconfigure applies a new policy. Setting an override pins the profile
// immediately; clearing it resumes adaptive control over the retained
// sample window (missed samples are not replayed).
func (c *Controller) Reconfigure(policy core.Policy) {
	c.mu.Lock()
	before := c.effectiveLocked()
	c.enabled = policy.AdaptiveEnabled
	c.override = policy.ProfileOverride
	c.cooldown = policy.AdaptationCooldown
	after := c.effectiveLocked()
	changed := before != after
	onChange := c.onChange
	c.mu.Unlock()

	if changed {
		c.profileChanges.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("profile", after.String())))
		if onChange != nil {
			onChange(after)
		}
	}
}

func (c *Controller) effectiveLocked() core.RuntimeProfile {
	if c.override != nil {
		return *c.override
	}
	return c.profile
}

// AddSamples feeds observed frame-render durations in arrival order and
// re-evaluates the profile. Samples are always accumulated, including while
// an override is pinned or adaptive mode is disabled, so clearing the
// override resumes from a warm window.
func (c *Controller) AddSamples(durations ...time.Duration) {
	if len(durations) == 0 {
		return
	}

	c.mu.Lock()
	jankSeen := int64(0)
	for _, d := range durations {
		c.push(d)
		if d > JankBudget {
			jankSeen++
		}
	}

	var (
		changed  bool
		target   core.RuntimeProfile
		onChange ChangeFunc
	)
	if c.enabled && c.override == nil && c.count >= MinSamples {
		if c.lastChange.IsZero() || c.now().Sub(c.lastChange) >= c.cooldown {
			target = c.targetLocked()
			if target != c.profile {
				c.profile = target
				c.lastChange = c.now()
				changed = true
				onChange = c.onChange
			}
		}
	}
	c.mu.Unlock()

	ctx := context.Background()
	c.samplesSeen.Add(ctx, int64(len(durations)))
	if jankSeen > 0 {
		c.jankFrames.Add(ctx, jankSeen)
	}
	if changed {
		c.profileChanges.Add(ctx, 1,
			metric.WithAttributes(attribute.String("profile", target.String())))
		if onChange != nil {
			onChange(target)
		}
	}
}

// push inserts one sample into the ring, evicting the oldest at capacity.
func (c *Controller) push(d time.Duration) {
	if c.count == WindowCapacity {
		old := c.window[c.head]
		c.sum -= old
		if old > JankBudget {
			c.jank--
		}
	} else {
		c.count++
	}
	c.window[c.head] = d
	c.head = (c.head + 1) % WindowCapacity
	c.sum += d
	if d > JankBudget {
		c.jank++
	}
}

func (c *Controller) targetLocked() core.RuntimeProfile {
	avg := c.sum / time.Duration(c.count)
	ratio := float64(c.jank) / float64(c.count)

	switch {
	case avg >= lowAvgThreshold || ratio >= lowJankRatio:
		return core.ProfileLow
	case avg >= mediumAvgThreshold || ratio >= mediumJankRatio:
		return core.ProfileMedium
	default:
		return core.ProfileHigh
	}
}

// Stats returns the current window average and jank ratio, for status
// reporting. Zero values before any sample arrives.
func (c *Controller) Stats() (avg time.Duration, jankRatio float64, samples int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count == 0 {
		return 0, 0, 0
	}
	return c.sum / time.Duration(c.count), float64(c.jank) / float64(c.count), c.count
}
