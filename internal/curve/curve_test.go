package curve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurves_Endpoints(t *testing.T) {
	tests := []struct {
		name string
		fn   func(float64) float64
	}{
		{"linear", Linear},
		{"easeIn", EaseIn},
		{"easeOut", EaseOut},
		{"easeInOut", EaseInOut},
		{"elasticOut", ElasticOut},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, 0, tt.fn(0), 1e-9, "curve must start at 0")
			assert.InDelta(t, 1, tt.fn(1), 1e-9, "curve must end at 1")
		})
	}
}

func TestEaseInOut_Midpoint(t *testing.T) {
	assert.InDelta(t, 0.5, EaseInOut(0.5), 1e-9)
}

func TestElasticOut_Overshoots(t *testing.T) {
	overshot := false
	for tt := 0.05; tt < 1; tt += 0.01 {
		if ElasticOut(tt) > 1 {
			overshot = true
			break
		}
	}
	assert.True(t, overshot, "elasticOut should exceed 1 somewhere mid-flight")
}

func TestApply_NilCurveIsLinear(t *testing.T) {
	assert.Equal(t, 0.37, Apply(nil, 0.37))
}

func TestApply_Delegates(t *testing.T) {
	assert.Equal(t, EaseIn(0.5), Apply(EaseIn, 0.5))
}

func TestByName(t *testing.T) {
	assert.InDelta(t, EaseInOut(0.3), ByName("easeInOut")(0.3), 1e-12)
	assert.InDelta(t, Linear(0.3), ByName("unknown")(0.3), 1e-12, "unknown names fall back to linear")
	assert.False(t, math.IsNaN(ByName("elasticOut")(0.5)))
}
