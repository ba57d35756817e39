// markersim drives the marker-transition engine with a simulated vehicle
// fleet and records the published frames through a configurable storage
// backend. It is the reference host: everything a real map UI would wire
// up (config, logging, recording, health monitoring) happens here.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/markerflow/markerflow/internal/api"
	"github.com/markerflow/markerflow/internal/config"
	"github.com/markerflow/markerflow/internal/engine"
	"github.com/markerflow/markerflow/internal/influx"
	"github.com/markerflow/markerflow/internal/logging"
	"github.com/markerflow/markerflow/internal/monitor"
	"github.com/markerflow/markerflow/internal/otel"
	"github.com/markerflow/markerflow/internal/storage"
	"github.com/markerflow/markerflow/pkg/core"
)

func main() {
	configDir := flag.String("config", ".", "directory containing markerflow.cfg.json")
	markers := flag.Int("markers", 12, "number of simulated markers")
	flag.Parse()

	if err := run(*configDir, *markers); err != nil {
		fmt.Fprintln(os.Stderr, "markersim:", err)
		os.Exit(1)
	}
}

func run(configDir string, markerCount int) error {
	if err := config.Load(configDir); err != nil {
		return err
	}

	startedAt := time.Now()
	sessionID := fmt.Sprintf("sim-%d", startedAt.Unix())

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}
	logFile, err := os.Create(logging.LogFilePath(logsDir, "markersim", startedAt))
	if err != nil {
		return fmt.Errorf("create log file: %w", err)
	}
	defer logFile.Close()

	otelProvider, err := otel.New(otel.Config{
		Enabled:      config.GetBool("otel.enabled"),
		ServiceName:  "markersim",
		BatchTimeout: 5 * time.Second,
		LogWriter:    logFile,
		Endpoint:     config.GetString("otel.endpoint"),
		Insecure:     true,
	})
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer otelProvider.Shutdown(context.Background())

	var currentProfile atomic.Value
	currentProfile.Store(core.ProfileHigh)

	logManager := logging.NewManager()
	graylogAddr := ""
	if config.GetBool("graylog.enabled") {
		graylogAddr = config.GetString("graylog.address")
	}
	if err := logManager.Setup(logging.Options{
		Level:       config.GetString("logLevel"),
		File:        logFile,
		GraylogAddr: graylogAddr,
		Provider:    otelProvider.LoggerProvider(),
		Context: func() []slog.Attr {
			return []slog.Attr{
				slog.String("session", sessionID),
				slog.String("profile", currentProfile.Load().(core.RuntimeProfile).String()),
			}
		},
	}); err != nil {
		return fmt.Errorf("logging setup: %w", err)
	}
	logger := logManager.Logger()

	zlog := zerolog.New(os.Stderr).With().Timestamp().Str("session", sessionID).Logger()

	var influxManager *influx.Manager
	if config.GetBool("influx.enabled") {
		influxManager = influx.NewManager(zlog, logging.LogFilePath(logsDir, "influx_backup", startedAt)+".gz")
		if err := influxManager.Connect(); err != nil {
			logger.Warn("InfluxDB unavailable, continuing without it", "error", err)
			influxManager = nil
		} else {
			defer influxManager.Close()
		}
	}

	backend, err := storage.NewBackend(zlog)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("storage init: %w", err)
	}
	defer backend.Close()

	policy, err := config.Policy()
	if err != nil {
		return err
	}

	eng, err := engine.New(policy, engine.WithLogger(logger))
	if err != nil {
		return err
	}
	defer eng.Dispose()

	if err := backend.StartSession(&core.RecordingSession{
		ID:         sessionID,
		StartedAt:  startedAt,
		DurationMs: int(policy.Duration / time.Millisecond),
		MaxFPS:     policy.MaxFPS,
		MinFPS:     policy.MinFPS,
		Adaptive:   policy.AdaptiveEnabled,
	}); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	// Record every published frame; watch for profile transitions on the way.
	frames, cancelFrames := eng.Subscribe()
	recordDone := make(chan struct{})
	go func() {
		defer close(recordDone)
		lastProfile := eng.Profile()
		for frame := range frames {
			if err := backend.RecordFrame(frame); err != nil {
				logger.Error("Error recording frame", "seq", frame.Seq, "error", err)
			}
			if p := eng.Profile(); p != lastProfile {
				change := core.ProfileChange{Time: time.Now(), From: lastProfile, To: p}
				if err := backend.RecordProfileChange(change); err != nil {
					logger.Error("Error recording profile change", "error", err)
				}
				if influxManager != nil {
					point := influx.ProfileChangePoint(sessionID, lastProfile, p)
					_ = influxManager.WritePoint(context.Background(), "profile_changes", point)
				}
				currentProfile.Store(p)
				lastProfile = p
			}
		}
	}()

	mon := monitor.NewService(monitor.Dependencies{
		Engine:     eng,
		LogManager: logManager,
		Influx:     influxManager,
		StatusDir:  logsDir,
		SessionID:  sessionID,
		Interval:   time.Second,
	})
	if err := mon.Start(); err != nil {
		return err
	}
	defer mon.Stop()

	sim := newFleetSim(eng, policy, markerCount, logger)
	simCtx, cancelSim := context.WithCancel(context.Background())
	go sim.run(simCtx)

	logger.Info("markersim running", "markers", markerCount, "storage", config.GetString("storage.type"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", "signal", sig.String())

	cancelSim()
	eng.Dispose()
	cancelFrames()
	<-recordDone

	if err := backend.EndSession(); err != nil {
		logger.Error("Error ending session", "error", err)
	}
	if uploadable, ok := backend.(storage.Uploadable); ok {
		path := uploadable.GetExportedFilePath()
		logger.Info("Recording exported", "path", path)

		if config.GetBool("api.enabled") && path != "" {
			client := api.New(config.GetString("api.serverUrl"), config.GetString("api.apiKey"))
			if err := client.Upload(path, api.UploadMetadata{
				SessionID:   sessionID,
				StartedAt:   startedAt,
				DurationSec: time.Since(startedAt).Seconds(),
			}); err != nil {
				logger.Error("Error uploading recording", "error", err)
			} else {
				logger.Info("Recording uploaded", "server", config.GetString("api.serverUrl"))
			}
		}
	}

	flushCtx, cancelFlush := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelFlush()
	if err := logManager.Flush(flushCtx); err != nil {
		logger.Error("Error flushing logs", "error", err)
	}

	return nil
}
