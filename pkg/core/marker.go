// Package core holds the plain value types shared between the transition
// engine, its storage backends, and host UI bindings. Everything here is
// framework-free: markers are immutable values, an "updated" marker is a new
// value carrying the same ID.
package core

// LatLng is a geographic coordinate in degrees (EPSG:4326).
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Marker represents a labeled point on the map surface.
//
// Position and Rotation are the animated attributes. Alpha and ZIndex are
// interpolated alongside them during a transition; every other field is
// copied verbatim from the target marker on each interpolated frame.
type Marker struct {
	ID         string  `json:"id"`
	Position   LatLng  `json:"position"`
	Rotation   float64 `json:"rotation"` // degrees, interpreted modulo 360
	Alpha      float64 `json:"alpha"`
	ZIndex     float64 `json:"zIndex"`
	Icon       string  `json:"icon,omitempty"`
	Anchor     string  `json:"anchor,omitempty"`
	InfoWindow string  `json:"infoWindow,omitempty"`
	Draggable  bool    `json:"draggable,omitempty"`
	Flat       bool    `json:"flat,omitempty"`
	Visible    bool    `json:"visible"`
}

// GeometryEquals reports whether two markers share the exact same animated
// geometry (position and rotation). Attribute-only changes compare equal.
func (m Marker) GeometryEquals(o Marker) bool {
	return m.Position == o.Position && m.Rotation == o.Rotation
}

// MarkerSet maps marker IDs to markers. Keys are unique by construction.
type MarkerSet map[string]Marker

// NewMarkerSet builds a set from a list of markers, keyed by ID.
// Later duplicates win, matching last-writer semantics of map assignment.
func NewMarkerSet(markers ...Marker) MarkerSet {
	s := make(MarkerSet, len(markers))
	for _, m := range markers {
		s[m.ID] = m
	}
	return s
}

// Clone returns an independent shallow copy of the set.
func (s MarkerSet) Clone() MarkerSet {
	out := make(MarkerSet, len(s))
	for id, m := range s {
		out[id] = m
	}
	return out
}

// IDs returns the set's keys in unspecified order.
func (s MarkerSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}
