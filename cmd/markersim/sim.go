package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/markerflow/markerflow/internal/engine"
	"github.com/markerflow/markerflow/pkg/core"
)

// fleetSim moves a ring of markers around a fixed center and feeds each new
// arrangement to the engine, along with synthetic frame-render timings so
// the adaptive controller has something to chew on.
type fleetSim struct {
	eng    *engine.Engine
	policy core.Policy
	logger *slog.Logger

	static core.MarkerSet
	count  int
	center core.LatLng
	radius float64 // degrees
	phase  float64
}

func newFleetSim(eng *engine.Engine, policy core.Policy, count int, logger *slog.Logger) *fleetSim {
	static := core.MarkerSet{
		"depot": {
			ID:       "depot",
			Position: core.LatLng{Lat: 52.5200, Lng: 13.4050},
			Icon:     "depot",
			Visible:  true,
		},
	}

	return &fleetSim{
		eng:    eng,
		policy: policy,
		logger: logger,
		static: static,
		count:  count,
		center: core.LatLng{Lat: 52.5200, Lng: 13.4050},
		radius: 0.02,
	}
}

// run retargets the fleet once per animation duration until ctx is done.
func (s *fleetSim) run(ctx context.Context) {
	ticker := time.NewTicker(s.policy.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.phase += math.Pi / 12
			if err := s.eng.Update(s.static, s.fleetAt(s.phase), s.policy); err != nil {
				s.logger.Error("Error updating engine", "error", err)
				return
			}
			s.eng.ReportFrameTimings(s.syntheticTimings()...)
		}
	}
}

// fleetAt places the fleet on a ring, each marker heading along its tangent.
func (s *fleetSim) fleetAt(phase float64) core.MarkerSet {
	fleet := core.NewMarkerSet()
	for i := 0; i < s.count; i++ {
		angle := phase + 2*math.Pi*float64(i)/float64(s.count)
		id := fmt.Sprintf("vehicle-%02d", i)
		fleet[id] = core.Marker{
			ID: id,
			Position: core.LatLng{
				Lat: s.center.Lat + s.radius*math.Sin(angle),
				Lng: s.center.Lng + s.radius*math.Cos(angle),
			},
			Rotation: math.Mod(angle*180/math.Pi+90, 360),
			Alpha:    1,
			Visible:  true,
			Icon:     "vehicle",
		}
	}
	return fleet
}

// syntheticTimings fakes one burst of frame-render durations, mostly smooth
// with an occasional slow frame.
func (s *fleetSim) syntheticTimings() []time.Duration {
	samples := make([]time.Duration, 10)
	for i := range samples {
		base := 8 + rand.Float64()*6 // 8-14ms
		if rand.Float64() < 0.05 {
			base += 30
		}
		samples[i] = time.Duration(base * float64(time.Millisecond))
	}
	return samples
}
