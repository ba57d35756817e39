// Package storage defines the recording backend interface used by hosts
// that persist or stream the engine's frame output.
package storage

import (
	"github.com/markerflow/markerflow/pkg/core"
)

// Backend is the interface all recording implementations satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.RecordingSession) error
	EndSession() error

	// Recording
	RecordFrame(f core.Frame) error
	RecordProfileChange(c core.ProfileChange) error
}

// Uploadable is an optional interface for backends that produce a file
// suitable for handing to an external viewer.
type Uploadable interface {
	GetExportedFilePath() string
}
