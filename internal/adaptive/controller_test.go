package adaptive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markerflow/markerflow/pkg/core"
)

func adaptivePolicy() core.Policy {
	p := core.DefaultPolicy()
	p.AdaptiveEnabled = true
	p.AdaptationCooldown = 0
	return p
}

func newTestController(t *testing.T, policy core.Policy, onChange ChangeFunc) *Controller {
	t.Helper()
	c, err := NewController(policy, onChange)
	require.NoError(t, err)
	return c
}

// feed pushes n identical samples.
func feed(c *Controller, n int, d time.Duration) {
	for i := 0; i < n; i++ {
		c.AddSamples(d)
	}
}

func TestController_StartsHigh(t *testing.T) {
	c := newTestController(t, adaptivePolicy(), nil)
	assert.Equal(t, core.ProfileHigh, c.Profile())
}

func TestController_NoDecisionBelowMinFill(t *testing.T) {
	c := newTestController(t, adaptivePolicy(), nil)

	feed(c, MinSamples-1, 100*time.Millisecond)
	assert.Equal(t, core.ProfileHigh, c.Profile(),
		"no profile decision before the window reaches minimum fill")
}

func TestController_HeavyFramesTripLow(t *testing.T) {
	var observed []core.RuntimeProfile
	c := newTestController(t, adaptivePolicy(), func(p core.RuntimeProfile) {
		observed = append(observed, p)
	})

	feed(c, MinSamples, 100*time.Millisecond)

	assert.Equal(t, core.ProfileLow, c.Profile())
	require.Len(t, observed, 1)
	assert.Equal(t, core.ProfileLow, observed[0])
}

func TestController_ModerateFramesTripMedium(t *testing.T) {
	c := newTestController(t, adaptivePolicy(), nil)

	// 40% jank frames at 40ms, 60% clean frames at 12ms: avg 23.2ms and
	// jank ratio 0.4 — both in the medium band, neither in the low band.
	for i := 0; i < 30; i++ {
		if i%5 < 2 {
			c.AddSamples(40 * time.Millisecond)
		} else {
			c.AddSamples(12 * time.Millisecond)
		}
	}

	assert.Equal(t, core.ProfileMedium, c.Profile())
}

func TestController_JankRatioAloneTripsLow(t *testing.T) {
	c := newTestController(t, adaptivePolicy(), nil)

	// 17ms frames: barely over budget (jank) but the average stays low.
	feed(c, MinSamples, 17*time.Millisecond)

	avg, ratio, n := c.Stats()
	require.Equal(t, MinSamples, n)
	require.Less(t, avg, mediumAvgThreshold)
	require.Equal(t, 1.0, ratio)
	assert.Equal(t, core.ProfileLow, c.Profile())
}

func TestController_RecoversWhenFramesImprove(t *testing.T) {
	c := newTestController(t, adaptivePolicy(), nil)

	feed(c, MinSamples, 100*time.Millisecond)
	require.Equal(t, core.ProfileLow, c.Profile())

	// Push enough clean samples to evict the heavy ones from the window.
	feed(c, WindowCapacity, 5*time.Millisecond)
	assert.Equal(t, core.ProfileHigh, c.Profile())
}

func TestController_CooldownBlocksRapidChanges(t *testing.T) {
	policy := adaptivePolicy()
	policy.AdaptationCooldown = time.Minute

	c := newTestController(t, policy, nil)
	base := time.Unix(1000, 0)
	clock := base
	c.now = func() time.Time { return clock }

	feed(c, MinSamples, 100*time.Millisecond)
	require.Equal(t, core.ProfileLow, c.Profile())

	// Improvement within the cooldown window is ignored.
	clock = base.Add(30 * time.Second)
	feed(c, WindowCapacity, 5*time.Millisecond)
	assert.Equal(t, core.ProfileLow, c.Profile(), "cooldown must hold the profile")

	// After the cooldown elapses the next sample re-evaluates.
	clock = base.Add(2 * time.Minute)
	c.AddSamples(5 * time.Millisecond)
	assert.Equal(t, core.ProfileHigh, c.Profile())
}

func TestController_DisabledNeverChanges(t *testing.T) {
	policy := adaptivePolicy()
	policy.AdaptiveEnabled = false

	c := newTestController(t, policy, nil)
	feed(c, WindowCapacity, 100*time.Millisecond)

	assert.Equal(t, core.ProfileHigh, c.Profile())
}

func TestController_OverridePinsProfile(t *testing.T) {
	medium := core.ProfileMedium
	policy := adaptivePolicy()
	policy.ProfileOverride = &medium

	c := newTestController(t, policy, nil)

	feed(c, WindowCapacity, 100*time.Millisecond)
	assert.Equal(t, core.ProfileMedium, c.Profile(),
		"override bypasses measured health entirely")
}

func TestController_ClearingOverrideResumesWithWarmWindow(t *testing.T) {
	medium := core.ProfileMedium
	pinned := adaptivePolicy()
	pinned.ProfileOverride = &medium

	c := newTestController(t, pinned, nil)
	feed(c, WindowCapacity, 100*time.Millisecond)
	require.Equal(t, core.ProfileMedium, c.Profile())

	c.Reconfigure(adaptivePolicy())

	// The retained window is heavy, so the first new sample trips low.
	c.AddSamples(100 * time.Millisecond)
	assert.Equal(t, core.ProfileLow, c.Profile())
}

func TestController_ReconfigureFiresChangeOnOverride(t *testing.T) {
	var observed []core.RuntimeProfile
	c := newTestController(t, adaptivePolicy(), func(p core.RuntimeProfile) {
		observed = append(observed, p)
	})

	low := core.ProfileLow
	policy := adaptivePolicy()
	policy.ProfileOverride = &low
	c.Reconfigure(policy)

	require.Len(t, observed, 1)
	assert.Equal(t, core.ProfileLow, observed[0])
}

func TestController_WindowEviction(t *testing.T) {
	c := newTestController(t, adaptivePolicy(), nil)

	feed(c, WindowCapacity+10, 10*time.Millisecond)

	avg, ratio, n := c.Stats()
	assert.Equal(t, WindowCapacity, n, "window must stay bounded")
	assert.Equal(t, 10*time.Millisecond, avg)
	assert.Zero(t, ratio)
}
