package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/markerflow/markerflow/internal/geo"
	"github.com/markerflow/markerflow/pkg/core"
)

// Recording is the exported JSON document for one session.
type Recording struct {
	FormatVersion  int                    `json:"formatVersion"`
	Session        *core.RecordingSession `json:"session"`
	Frames         []ExportedFrame        `json:"frames"`
	ProfileChanges []core.ProfileChange   `json:"profileChanges"`
}

// ExportedFrame is a recorded frame plus the web-mercator (EPSG:3857)
// projection of each marker position as WKT, keyed by marker ID, so viewers
// consuming the export don't have to reproject.
type ExportedFrame struct {
	core.Frame
	Mercator map[string]string `json:"mercator,omitempty"`
}

const formatVersion = 1

func exportFrames(frames []core.Frame) []ExportedFrame {
	out := make([]ExportedFrame, len(frames))
	for i, f := range frames {
		ex := ExportedFrame{Frame: f}
		if len(f.Markers) > 0 {
			ex.Mercator = make(map[string]string, len(f.Markers))
		}
		for id, m := range f.Markers {
			pt, err := geo.Point3857(m.Position)
			if err != nil {
				continue
			}
			ex.Mercator[id] = pt.AsText()
		}
		out[i] = ex
	}
	return out
}

// exportJSON writes the recording next to earlier exports in OutputDir.
// Callers hold b.mu.
func (b *Backend) exportJSON() error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	rec := Recording{
		FormatVersion:  formatVersion,
		Session:        b.session,
		Frames:         exportFrames(b.frames),
		ProfileChanges: b.profileChanges,
	}

	name := fmt.Sprintf("%s.%s.json", b.session.ID, b.session.StartedAt.Format("20060102_150405"))
	if b.cfg.CompressOutput {
		name += ".gz"
	}
	path := filepath.Join(b.cfg.OutputDir, name)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer file.Close()

	if b.cfg.CompressOutput {
		gz := gzip.NewWriter(file)
		if err := json.NewEncoder(gz).Encode(rec); err != nil {
			_ = gz.Close()
			return fmt.Errorf("encode recording: %w", err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("close gzip writer: %w", err)
		}
	} else {
		enc := json.NewEncoder(file)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode recording: %w", err)
		}
	}

	b.exportedPath = path
	return nil
}
