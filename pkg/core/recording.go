package core

import "time"

// RecordingSession describes one recording run: the engine lifetime a host
// chooses to capture, usually from construction to Dispose.
type RecordingSession struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`

	// Policy summary kept with the recording for later analysis.
	DurationMs int     `json:"durationMs"`
	MaxFPS     float64 `json:"maxFps"`
	MinFPS     float64 `json:"minFps"`
	Adaptive   bool    `json:"adaptive"`
}

// ProfileChange records one adaptive quality transition.
type ProfileChange struct {
	Time time.Time      `json:"time"`
	From RuntimeProfile `json:"from"`
	To   RuntimeProfile `json:"to"`
}
