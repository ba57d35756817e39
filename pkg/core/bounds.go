package core

// LatLngBounds is an axis-aligned bounding box on the map surface.
// Southwest carries the southern latitude and western longitude,
// Northeast the northern latitude and eastern longitude. A box whose west
// longitude is greater than its east longitude crosses the antimeridian.
type LatLngBounds struct {
	Southwest LatLng `json:"southwest"`
	Northeast LatLng `json:"northeast"`
}

// Contains reports whether the point lies inside the box, edges inclusive.
// For antimeridian-crossing boxes (west > east) the valid longitude range is
// the union of [west, 180] and [-180, east].
func (b LatLngBounds) Contains(p LatLng) bool {
	if p.Lat < b.Southwest.Lat || p.Lat > b.Northeast.Lat {
		return false
	}
	west, east := b.Southwest.Lng, b.Northeast.Lng
	if west > east {
		return p.Lng >= west || p.Lng <= east
	}
	return p.Lng >= west && p.Lng <= east
}
