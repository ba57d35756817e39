// Package config loads the markerflow JSON configuration via viper and
// maps the animation section onto a core.Policy.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/markerflow/markerflow/internal/curve"
	"github.com/markerflow/markerflow/pkg/core"
)

// MemoryConfig holds in-memory/JSON storage backend settings.
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// Load reads configuration from a JSON file and sets default values.
// configDir is the directory containing markerflow.cfg.json.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./markerflow-logs")

	viper.SetDefault("animation.durationMs", 1000)
	viper.SetDefault("animation.curve", "linear")
	viper.SetDefault("animation.maxFps", 30)
	viper.SetDefault("animation.minFps", 10)
	viper.SetDefault("animation.snapOnLow", true)

	viper.SetDefault("adaptive.enabled", true)
	viper.SetDefault("adaptive.cooldownMs", 5000)
	viper.SetDefault("adaptive.profileOverride", "")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./markerflow.db")

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "markerflow")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "markerflow-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.endpoint", "localhost:4318")
	viper.SetDefault("otel.stdout", false)

	viper.SetDefault("stream.url", "ws://localhost:8777/frames")
	viper.SetDefault("stream.secret", "")

	viper.SetConfigName("markerflow.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// Policy builds a validated core.Policy from the animation and adaptive
// sections of the loaded configuration.
func Policy() (core.Policy, error) {
	p := core.DefaultPolicy()
	p.Duration = time.Duration(viper.GetInt("animation.durationMs")) * time.Millisecond
	p.Curve = curve.ByName(viper.GetString("animation.curve"))
	p.MaxFPS = viper.GetFloat64("animation.maxFps")
	p.MinFPS = viper.GetFloat64("animation.minFps")
	p.SnapOnLow = viper.GetBool("animation.snapOnLow")
	p.AdaptiveEnabled = viper.GetBool("adaptive.enabled")
	p.AdaptationCooldown = time.Duration(viper.GetInt("adaptive.cooldownMs")) * time.Millisecond

	if override := viper.GetString("adaptive.profileOverride"); override != "" {
		profile, err := parseProfile(override)
		if err != nil {
			return core.Policy{}, err
		}
		p.ProfileOverride = &profile
	}

	if err := p.Validate(); err != nil {
		return core.Policy{}, err
	}
	return p, nil
}

func parseProfile(name string) (core.RuntimeProfile, error) {
	switch strings.ToLower(name) {
	case "high":
		return core.ProfileHigh, nil
	case "medium":
		return core.ProfileMedium, nil
	case "low":
		return core.ProfileLow, nil
	default:
		return core.ProfileHigh, fmt.Errorf("%w: unknown profile override %q", core.ErrInvalidPolicy, name)
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
