package geo

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/markerflow/markerflow/pkg/core"
)

// Point3857 projects a geographic coordinate to web mercator (EPSG:3857),
// the projection map renderers consume. Returned as a simplefeatures point
// so downstream tooling can serialize it as WKT/WKB directly.
func Point3857(p core.LatLng) (geom.Point, error) {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(p.Lng, p.Lat, 0)
	pt, err := geom.NewPoint(geom.Coordinates{
		XY: geom.XY{X: x, Y: y},
	})
	if err != nil {
		return geom.Point{}, fmt.Errorf("project to EPSG:3857: %w", err)
	}
	return pt, nil
}
