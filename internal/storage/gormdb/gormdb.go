// Package gormdb records frames into a relational database via gorm, with
// queue-backed batch writes so the engine's publish path never waits on the
// database.
package gormdb

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/markerflow/markerflow/internal/database"
	"github.com/markerflow/markerflow/internal/queue"
	"github.com/markerflow/markerflow/pkg/core"
)

// Driver selects the underlying database.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

const flushInterval = 500 * time.Millisecond

// Config holds connection settings for the gorm backend.
type Config struct {
	Driver Driver

	// Path is the SQLite file; empty means in-memory.
	Path string

	// Postgres connection parameters.
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// Backend implements storage.Backend with batched inserts. Frames queue up
// in memory and a writer goroutine flushes them on a short interval.
type Backend struct {
	cfg Config
	log zerolog.Logger

	db       *gorm.DB
	frames   *queue.Queue[FrameRow]
	changes  *queue.Queue[ProfileChangeRow]
	stopChan chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	session *SessionRow
}

// New creates a gorm recording backend.
func New(cfg Config, log zerolog.Logger) *Backend {
	return &Backend{
		cfg:     cfg,
		log:     log,
		frames:  queue.New[FrameRow](),
		changes: queue.New[ProfileChangeRow](),
	}
}

// Init opens the connection, migrates the schema, and starts the writer.
func (b *Backend) Init() error {
	var (
		db  *gorm.DB
		err error
	)
	switch b.cfg.Driver {
	case DriverSQLite:
		db, err = database.OpenSQLite(b.cfg.Path)
	case DriverPostgres:
		db, err = database.OpenPostgres(database.PostgresConfig{
			Host:     b.cfg.Host,
			Port:     b.cfg.Port,
			Username: b.cfg.Username,
			Password: b.cfg.Password,
			Database: b.cfg.Database,
		})
	default:
		return fmt.Errorf("unknown driver %q", b.cfg.Driver)
	}
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(tables...); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	b.db = db
	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	go b.writeLoop()

	b.log.Info().Str("driver", string(b.cfg.Driver)).Msg("gorm recording backend initialized")
	return nil
}

// Close stops the writer, flushes what remains, and closes the connection.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}

	close(b.stopChan)
	b.wg.Wait()
	b.flush()

	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// StartSession inserts the session row; recording calls reference its ID.
func (b *Backend) StartSession(s *core.RecordingSession) error {
	row := SessionRow{
		SessionID:  s.ID,
		StartedAt:  s.StartedAt,
		DurationMs: s.DurationMs,
		MaxFPS:     s.MaxFPS,
		MinFPS:     s.MinFPS,
		Adaptive:   s.Adaptive,
	}
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	b.mu.Lock()
	b.session = &row
	b.mu.Unlock()
	return nil
}

// EndSession flushes pending rows and stamps the session's end time.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	session := b.session
	b.session = nil
	b.mu.Unlock()

	if session == nil {
		return fmt.Errorf("no session in progress")
	}

	b.flush()

	now := time.Now()
	return b.db.Model(session).Update("ended_at", &now).Error
}

// RecordFrame queues one frame for batch insertion.
func (b *Backend) RecordFrame(f core.Frame) error {
	b.mu.Lock()
	session := b.session
	b.mu.Unlock()
	if session == nil {
		return fmt.Errorf("no session in progress")
	}

	markers, err := json.Marshal(f.Markers)
	if err != nil {
		return fmt.Errorf("marshal markers: %w", err)
	}

	b.frames.Push(FrameRow{
		SessionID: session.SessionID,
		Seq:       f.Seq,
		Time:      f.Time,
		Animating: f.Animating,
		Markers:   markers,
	})
	return nil
}

// RecordProfileChange queues one profile transition.
func (b *Backend) RecordProfileChange(c core.ProfileChange) error {
	b.mu.Lock()
	session := b.session
	b.mu.Unlock()
	if session == nil {
		return fmt.Errorf("no session in progress")
	}

	b.changes.Push(ProfileChangeRow{
		SessionID:   session.SessionID,
		Time:        c.Time,
		FromProfile: c.From.String(),
		ToProfile:   c.To.String(),
	})
	return nil
}

// writeLoop drains the queues on a fixed interval until Close.
func (b *Backend) writeLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.flush()
		}
	}
}

// flush inserts everything currently queued.
func (b *Backend) flush() {
	if frames := b.frames.Drain(); len(frames) > 0 {
		if err := b.db.Create(&frames).Error; err != nil {
			b.log.Error().Err(err).Int("count", len(frames)).Msg("Error inserting frames")
		}
	}
	if changes := b.changes.Drain(); len(changes) > 0 {
		if err := b.db.Create(&changes).Error; err != nil {
			b.log.Error().Err(err).Int("count", len(changes)).Msg("Error inserting profile changes")
		}
	}
}
