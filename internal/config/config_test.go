package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// clearEnv unsets every ISSTRACK_* variable touched by the tests so state
// does not leak between cases. t.Setenv handles restoration.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ISSTRACK_CONFIG",
		"ISSTRACK_LOG_LEVEL",
		"ISSTRACK_HTTP_ADDR",
		"ISSTRACK_TRUST_PROXY",
		"ISSTRACK_OEM_SOURCE",
		"ISSTRACK_FETCH_TIMEOUT",
		"ISSTRACK_REFRESH_INTERVAL",
		"ISSTRACK_GEOCODE_ENDPOINT",
		"ISSTRACK_GEOCODE_TIMEOUT",
		"ISSTRACK_STREAM_ENABLED",
		"ISSTRACK_STREAM_MAX_CONCURRENT",
		"ISSTRACK_STREAM_INTERVAL",
		"ISSTRACK_STREAM_KEEPALIVE_INTERVAL",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir()) // no config.yml in cwd

	cfg, err := Load(testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q, want info", cfg.LogLevel)
	}
	if cfg.Dataset.SourceURL != "" {
		t.Errorf("source url = %q, want empty (fetcher default)", cfg.Dataset.SourceURL)
	}
	if got := cfg.RefreshInterval(); got != 0 {
		t.Errorf("refresh interval = %v, want 0 (disabled)", got)
	}
	if !cfg.Stream.Enabled {
		t.Error("stream should default to enabled")
	}
	if got := cfg.FetchTimeout(); got != 30*time.Second {
		t.Errorf("fetch timeout = %v, want 30s", got)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "isstrack.yml")
	body := `
logLevel: debug
server:
  addr: ":9090"
  trustProxy: true
dataset:
  refreshIntervalSeconds: 3600
stream:
  enabled: false
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ISSTRACK_CONFIG", path)

	cfg, err := Load(testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q, want :9090", cfg.Server.Addr)
	}
	if !cfg.Server.TrustProxy {
		t.Error("trustProxy should be true")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug", cfg.LogLevel)
	}
	if got := cfg.RefreshInterval(); got != time.Hour {
		t.Errorf("refresh interval = %v, want 1h", got)
	}
	if cfg.Stream.Enabled {
		t.Error("stream should be disabled")
	}
	// Untouched sections keep defaults.
	if cfg.Geocode.TimeoutSeconds != 5 {
		t.Errorf("geocode timeout = %d, want 5", cfg.Geocode.TimeoutSeconds)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "isstrack.yml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ISSTRACK_CONFIG", path)
	t.Setenv("ISSTRACK_HTTP_ADDR", ":7070")
	t.Setenv("ISSTRACK_OEM_SOURCE", "/data/iss.xml")
	t.Setenv("ISSTRACK_STREAM_MAX_CONCURRENT", "3")

	cfg, err := Load(testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr != ":7070" {
		t.Errorf("addr = %q, want :7070 (env wins over file)", cfg.Server.Addr)
	}
	if cfg.Dataset.SourceURL != "/data/iss.xml" {
		t.Errorf("source url = %q, want /data/iss.xml", cfg.Dataset.SourceURL)
	}
	if cfg.Stream.MaxConcurrentPerIP != 3 {
		t.Errorf("max concurrent = %d, want 3", cfg.Stream.MaxConcurrentPerIP)
	}
}

func TestInvalidEnvFallsBack(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	t.Setenv("ISSTRACK_STREAM_INTERVAL", "nope")
	t.Setenv("ISSTRACK_TRUST_PROXY", "definitely")

	cfg, err := Load(testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Stream.IntervalSeconds != 5 {
		t.Errorf("interval = %d, want default 5", cfg.Stream.IntervalSeconds)
	}
	if cfg.Server.TrustProxy {
		t.Error("trustProxy should stay false on bad value")
	}
}

func TestValidateRejectsBadLevel(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("ISSTRACK_LOG_LEVEL", "loud")

	if _, err := Load(testLogger()); err == nil {
		t.Fatal("expected validation error for bad log level")
	}
}

func TestValidateRejectsBadEndpoint(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("ISSTRACK_GEOCODE_ENDPOINT", "not a url")

	if _, err := Load(testLogger()); err == nil {
		t.Fatal("expected validation error for bad geocode endpoint")
	}
}

func TestMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ISSTRACK_CONFIG", filepath.Join(t.TempDir(), "absent.yml"))

	if _, err := Load(testLogger()); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := AppConfig{LogLevel: tt.level}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
