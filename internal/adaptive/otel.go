package adaptive

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/markerflow/markerflow/internal/adaptive"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
