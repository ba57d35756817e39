package core

import "time"

// Frame is one composed marker set as published to renderers and recording
// backends. Markers is always an independent snapshot; receivers may keep
// or mutate it freely.
type Frame struct {
	Seq       uint64    `json:"seq"`
	Time      time.Time `json:"time"`
	Markers   MarkerSet `json:"markers"`
	Animating bool      `json:"animating"`
}
