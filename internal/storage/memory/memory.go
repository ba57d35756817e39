// Package memory records frames in RAM and exports each session as a JSON
// file, optionally gzipped, when the session ends.
package memory

import (
	"fmt"
	"sync"

	"github.com/markerflow/markerflow/pkg/core"
)

// Config holds in-memory backend settings.
type Config struct {
	OutputDir      string
	CompressOutput bool
}

// Backend stores the recording in memory until EndSession exports it.
type Backend struct {
	cfg Config

	session        *core.RecordingSession
	frames         []core.Frame
	profileChanges []core.ProfileChange

	exportedPath string
	mu           sync.RWMutex
}

// New creates a new memory backend.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend.
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources.
func (b *Backend) Close() error {
	return nil
}

// StartSession begins a new recording, dropping any prior unsaved data.
func (b *Backend) StartSession(s *core.RecordingSession) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	b.frames = nil
	b.profileChanges = nil
	b.exportedPath = ""

	return nil
}

// EndSession finalizes and exports the recording.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return fmt.Errorf("no session in progress")
	}
	return b.exportJSON()
}

// RecordFrame appends one published frame to the recording.
func (b *Backend) RecordFrame(f core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return fmt.Errorf("no session in progress")
	}
	b.frames = append(b.frames, f)
	return nil
}

// RecordProfileChange appends one adaptive quality transition.
func (b *Backend) RecordProfileChange(c core.ProfileChange) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return fmt.Errorf("no session in progress")
	}
	b.profileChanges = append(b.profileChanges, c)
	return nil
}

// FrameCount reports how many frames have been recorded so far.
func (b *Backend) FrameCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.frames)
}

// GetExportedFilePath returns the path of the last exported recording, or
// an empty string before the first export.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.exportedPath
}
