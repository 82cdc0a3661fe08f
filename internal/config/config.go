// Package config loads service configuration from an optional YAML file with
// environment variable overrides. Every setting has a working default, so the
// service starts with no file and no environment at all.
//
// Resolution order (later wins): defaults, YAML file, ISSTRACK_* environment.
// The file path comes from ISSTRACK_CONFIG, falling back to ./config.yml if
// one exists.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Server holds HTTP listener settings.
type Server struct {
	Addr       string `yaml:"addr"`
	TrustProxy bool   `yaml:"trustProxy"`
}

// Dataset holds ephemeris source settings.
type Dataset struct {
	SourceURL              string `yaml:"sourceURL" validate:"omitempty"`
	FetchTimeoutSeconds    int    `yaml:"fetchTimeoutSeconds" validate:"gte=0"`
	RefreshIntervalSeconds int    `yaml:"refreshIntervalSeconds" validate:"gte=0"` // 0 disables periodic refresh
}

// Geocode holds reverse geocoding settings.
type Geocode struct {
	Endpoint       string `yaml:"endpoint" validate:"omitempty,url"`
	TimeoutSeconds int    `yaml:"timeoutSeconds" validate:"gte=0"`
}

// Stream holds SSE streaming settings.
type Stream struct {
	Enabled            bool `yaml:"enabled"`
	MaxConcurrentPerIP int  `yaml:"maxConcurrentPerIP" validate:"gte=0"`
	IntervalSeconds    int  `yaml:"intervalSeconds" validate:"gte=0"`
	KeepaliveSeconds   int  `yaml:"keepaliveSeconds" validate:"gte=0"`
}

// AppConfig is the full service configuration.
type AppConfig struct {
	LogLevel string  `yaml:"logLevel" validate:"omitempty,oneof=debug info warn error"`
	Server   Server  `yaml:"server"`
	Dataset  Dataset `yaml:"dataset"`
	Geocode  Geocode `yaml:"geocode"`
	Stream   Stream  `yaml:"stream"`
}

func defaults() AppConfig {
	return AppConfig{
		LogLevel: "info",
		Server: Server{
			Addr: ":8080",
		},
		Dataset: Dataset{
			FetchTimeoutSeconds:    30,
			RefreshIntervalSeconds: 0,
		},
		Geocode: Geocode{
			Endpoint:       "https://nominatim.openstreetmap.org/reverse",
			TimeoutSeconds: 5,
		},
		Stream: Stream{
			Enabled:            true,
			MaxConcurrentPerIP: 10,
			IntervalSeconds:    5,
			KeepaliveSeconds:   30,
		},
	}
}

// Load builds the configuration from defaults, the YAML file (if any), and
// environment overrides, then validates it.
func Load(logger *slog.Logger) (AppConfig, error) {
	cfg := defaults()

	path := os.Getenv("ISSTRACK_CONFIG")
	if path == "" {
		if _, err := os.Stat("config.yml"); err == nil {
			path = "config.yml"
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
		logger.Info("loaded config file", "path", path)
	}

	applyEnv(&cfg, logger)

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (c AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FetchTimeout returns the dataset fetch timeout as a duration.
func (c AppConfig) FetchTimeout() time.Duration {
	return time.Duration(c.Dataset.FetchTimeoutSeconds) * time.Second
}

// RefreshInterval returns the refresh period, or zero when refresh is disabled.
func (c AppConfig) RefreshInterval() time.Duration {
	return time.Duration(c.Dataset.RefreshIntervalSeconds) * time.Second
}

func applyEnv(cfg *AppConfig, logger *slog.Logger) {
	if v := os.Getenv("ISSTRACK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if v := os.Getenv("ISSTRACK_HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	if v := os.Getenv("ISSTRACK_TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid ISSTRACK_TRUST_PROXY value, using default", "value", v)
		} else {
			cfg.Server.TrustProxy = b
		}
	}

	if v := os.Getenv("ISSTRACK_OEM_SOURCE"); v != "" {
		cfg.Dataset.SourceURL = v
	}

	if v := os.Getenv("ISSTRACK_FETCH_TIMEOUT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ISSTRACK_FETCH_TIMEOUT value, using default", "value", v, "default", cfg.Dataset.FetchTimeoutSeconds)
		} else {
			cfg.Dataset.FetchTimeoutSeconds = n
		}
	}

	if v := os.Getenv("ISSTRACK_REFRESH_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			logger.Warn("invalid ISSTRACK_REFRESH_INTERVAL value, using default", "value", v, "default", cfg.Dataset.RefreshIntervalSeconds)
		} else {
			cfg.Dataset.RefreshIntervalSeconds = n
		}
	}

	if v := os.Getenv("ISSTRACK_GEOCODE_ENDPOINT"); v != "" {
		cfg.Geocode.Endpoint = v
	}

	if v := os.Getenv("ISSTRACK_GEOCODE_TIMEOUT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ISSTRACK_GEOCODE_TIMEOUT value, using default", "value", v, "default", cfg.Geocode.TimeoutSeconds)
		} else {
			cfg.Geocode.TimeoutSeconds = n
		}
	}

	if v := os.Getenv("ISSTRACK_STREAM_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid ISSTRACK_STREAM_ENABLED value, using default", "value", v)
		} else {
			cfg.Stream.Enabled = b
		}
	}

	if v := os.Getenv("ISSTRACK_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ISSTRACK_STREAM_MAX_CONCURRENT value, using default", "value", v, "default", cfg.Stream.MaxConcurrentPerIP)
		} else {
			cfg.Stream.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("ISSTRACK_STREAM_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ISSTRACK_STREAM_INTERVAL value, using default", "value", v, "default", cfg.Stream.IntervalSeconds)
		} else {
			cfg.Stream.IntervalSeconds = n
		}
	}

	if v := os.Getenv("ISSTRACK_STREAM_KEEPALIVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ISSTRACK_STREAM_KEEPALIVE_INTERVAL value, using default", "value", v, "default", cfg.Stream.KeepaliveSeconds)
		} else {
			cfg.Stream.KeepaliveSeconds = n
		}
	}
}
