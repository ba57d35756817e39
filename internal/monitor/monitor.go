// Package monitor periodically samples engine health and writes it to a
// status file, the log, and optionally InfluxDB.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/markerflow/markerflow/internal/influx"
	"github.com/markerflow/markerflow/internal/logging"
	"github.com/markerflow/markerflow/pkg/core"
)

// EngineStatus is the sampled view of the running engine.
type EngineStatus struct {
	Time              time.Time `json:"time"`
	Profile           string    `json:"profile"`
	ActiveTransitions int       `json:"activeTransitions"`
	AvgFrameMs        float64   `json:"avgFrameMs"`
	JankRatio         float64   `json:"jankRatio"`
	Samples           int       `json:"samples"`
}

// Source is the slice of the engine the monitor observes.
type Source interface {
	Profile() core.RuntimeProfile
	ActiveTransitions() int
	FrameStats() (avg time.Duration, jankRatio float64, samples int)
}

// Dependencies holds everything the monitor service needs.
type Dependencies struct {
	Engine     Source
	LogManager *logging.Manager
	Influx     *influx.Manager // optional
	StatusDir  string
	SessionID  string
	Interval   time.Duration
}

// Service samples engine status on an interval until stopped.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a monitor service.
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning reports whether the monitor goroutine is active.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Sample captures the current engine status.
func (s *Service) Sample() EngineStatus {
	avg, jank, samples := s.deps.Engine.FrameStats()
	return EngineStatus{
		Time:              time.Now(),
		Profile:           s.deps.Engine.Profile().String(),
		ActiveTransitions: s.deps.Engine.ActiveTransitions(),
		AvgFrameMs:        float64(avg) / float64(time.Millisecond),
		JankRatio:         jank,
		Samples:           samples,
	}
}

// Start launches the sampling goroutine. Calling Start on a running
// service is a no-op.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	logger := s.deps.LogManager.Logger()

	var statusFile *os.File
	if s.deps.StatusDir != "" {
		var err error
		statusFile, err = os.Create(filepath.Join(s.deps.StatusDir, "status.json"))
		if err != nil {
			logger.Error("Error creating status file", "error", err)
		}
	}

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			if statusFile != nil {
				statusFile.Close()
			}
		}()

		logger.Debug("Starting status monitor goroutine")

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				status := s.Sample()

				logger.Debug("Engine status",
					"profile", status.Profile,
					"active", status.ActiveTransitions,
					"avgFrameMs", status.AvgFrameMs,
					"jankRatio", status.JankRatio,
				)

				if statusFile != nil {
					data, err := json.MarshalIndent(status, "", "  ")
					if err != nil {
						data = []byte(fmt.Sprintf(`{"error": %q}`, err.Error()))
					}
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					statusFile.Write(append(data, '\n'))
				}

				if s.deps.Influx != nil {
					point := influx.EngineStatusPoint(s.deps.SessionID, status.Profile,
						status.ActiveTransitions, status.AvgFrameMs, status.JankRatio)
					if err := s.deps.Influx.WritePoint(context.Background(), "engine_status", point); err != nil {
						logger.Error("Error writing engine status to InfluxDB", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

// Stop halts the sampling goroutine.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
