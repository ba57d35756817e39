package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/markerflow/markerflow/internal/config"
	"github.com/markerflow/markerflow/internal/storage/gormdb"
	"github.com/markerflow/markerflow/internal/storage/memory"
	"github.com/markerflow/markerflow/internal/storage/wsstream"
)

// ErrUnknownBackend is wrapped by NewBackend for unrecognized storage types.
var ErrUnknownBackend = fmt.Errorf("unknown storage type")

// NewBackend creates a recording backend from the loaded configuration.
func NewBackend(log zerolog.Logger) (Backend, error) {
	switch t := config.GetString("storage.type"); t {
	case "memory":
		return memory.New(memory.Config{
			OutputDir:      config.GetString("storage.memory.outputDir"),
			CompressOutput: config.GetBool("storage.memory.compressOutput"),
		}), nil
	case "sqlite":
		return gormdb.New(gormdb.Config{
			Driver: gormdb.DriverSQLite,
			Path:   config.GetString("storage.sqlite.path"),
		}, log), nil
	case "postgres":
		return gormdb.New(gormdb.Config{
			Driver:   gormdb.DriverPostgres,
			Host:     config.GetString("db.host"),
			Port:     config.GetString("db.port"),
			Username: config.GetString("db.username"),
			Password: config.GetString("db.password"),
			Database: config.GetString("db.database"),
		}, log), nil
	case "wsstream":
		return wsstream.New(wsstream.Config{
			URL:    config.GetString("stream.url"),
			Secret: config.GetString("stream.secret"),
		}), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, t)
	}
}
