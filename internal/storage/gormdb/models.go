package gormdb

import (
	"time"

	"gorm.io/datatypes"
)

// SessionRow is the sessions table.
type SessionRow struct {
	ID         uint      `gorm:"primarykey"`
	SessionID  string    `gorm:"index;size:64"`
	StartedAt  time.Time `gorm:"index"`
	EndedAt    *time.Time
	DurationMs int
	MaxFPS     float64
	MinFPS     float64
	Adaptive   bool
}

// FrameRow is one published frame. Markers holds the composed marker set as
// a JSON document; frames are append-only and read back whole.
type FrameRow struct {
	ID        uint   `gorm:"primarykey"`
	SessionID string `gorm:"index;size:64"`
	Seq       uint64 `gorm:"index"`
	Time      time.Time
	Animating bool
	Markers   datatypes.JSON
}

// ProfileChangeRow is one adaptive quality transition.
type ProfileChangeRow struct {
	ID          uint   `gorm:"primarykey"`
	SessionID   string `gorm:"index;size:64"`
	Time        time.Time
	FromProfile string `gorm:"size:16"`
	ToProfile   string `gorm:"size:16"`
}

// tables lists everything AutoMigrate manages.
var tables = []any{
	&SessionRow{},
	&FrameRow{},
	&ProfileChangeRow{},
}
