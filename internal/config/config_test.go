package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestDefaultsValid(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.Pipeline.Capacity != 25000 {
		t.Errorf("capacity = %d, want 25000", cfg.Pipeline.Capacity)
	}
	if cfg.Ingest.RefreshPeriod != 6*time.Hour {
		t.Errorf("refresh period = %s, want 6h", cfg.Ingest.RefreshPeriod)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("addr = %q, want :8080", cfg.HTTP.Addr)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "satview.toml")
	data := `
[ingest]
source_url = "http://example.test/tle"
extra_urls = ["http://example.test/extra"]
refresh_period = "2h"

[pipeline]
capacity = 500

[render]
headless = true

[log]
level = "debug"
format = "text"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ingest.SourceURL != "http://example.test/tle" || len(cfg.Ingest.ExtraURLs) != 1 {
		t.Errorf("ingest = %+v", cfg.Ingest)
	}
	if cfg.Ingest.RefreshPeriod != 2*time.Hour {
		t.Errorf("refresh period = %s, want 2h", cfg.Ingest.RefreshPeriod)
	}
	if cfg.Pipeline.Capacity != 500 {
		t.Errorf("capacity = %d, want 500", cfg.Pipeline.Capacity)
	}
	if cfg.Pipeline.BodyRadiusKm != 6378.137 {
		t.Errorf("unset body radius should keep default, got %g", cfg.Pipeline.BodyRadiusKm)
	}
	if !cfg.Render.Headless || cfg.Render.Width != 1280 {
		t.Errorf("render = %+v", cfg.Render)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[pipeline\ncapacity = "), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed TOML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero capacity", func(c *Config) { c.Pipeline.Capacity = 0 }, "pipeline.capacity"},
		{"negative radius", func(c *Config) { c.Pipeline.BodyRadiusKm = -1 }, "body_radius_km"},
		{"short period", func(c *Config) { c.Ingest.RefreshPeriod = time.Second }, "refresh_period"},
		{"auth without token", func(c *Config) { c.HTTP.AuthEnabled = true }, "auth_token"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SATVIEW_SOURCE_URL":     "http://env.test/tle",
		"SATVIEW_EXTRA_URLS":     "http://a.test, ,http://b.test",
		"SATVIEW_REFRESH_PERIOD": "30m",
		"SATVIEW_CAPACITY":       "100",
		"SATVIEW_BODY_RADIUS_KM": "1737.4",
		"SATVIEW_HEADLESS":       "true",
		"SATVIEW_HTTP_ADDR":      "",
		"SATVIEW_AUTH_ENABLED":   "1",
		"SATVIEW_AUTH_TOKEN":     "secret",
		"SATVIEW_LOG_LEVEL":      "warn",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Defaults()
	cfg.applyEnv(lookup, testLogger())

	if cfg.Ingest.SourceURL != "http://env.test/tle" {
		t.Errorf("source url = %q", cfg.Ingest.SourceURL)
	}
	if got := strings.Join(cfg.Ingest.ExtraURLs, ","); got != "http://a.test,http://b.test" {
		t.Errorf("extra urls = %q", got)
	}
	if cfg.Ingest.RefreshPeriod != 30*time.Minute {
		t.Errorf("refresh period = %s", cfg.Ingest.RefreshPeriod)
	}
	if cfg.Pipeline.Capacity != 100 || cfg.Pipeline.BodyRadiusKm != 1737.4 {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	if !cfg.Render.Headless {
		t.Error("headless not applied")
	}
	if cfg.HTTP.Addr != "" {
		t.Errorf("empty SATVIEW_HTTP_ADDR should disable the server, got %q", cfg.HTTP.Addr)
	}
	if !cfg.HTTP.AuthEnabled || cfg.HTTP.AuthToken != "secret" {
		t.Errorf("http = %+v", cfg.HTTP)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestApplyEnvInvalidKeepsDefault(t *testing.T) {
	env := map[string]string{
		"SATVIEW_CAPACITY":       "-5",
		"SATVIEW_REFRESH_PERIOD": "soon",
		"SATVIEW_BODY_RADIUS_KM": "abc",
		"SATVIEW_HEADLESS":       "maybe",
		"SATVIEW_TPS":            "0",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Defaults()
	cfg.applyEnv(lookup, testLogger())

	def := Defaults()
	if cfg.Pipeline.Capacity != def.Pipeline.Capacity {
		t.Errorf("capacity = %d, want default", cfg.Pipeline.Capacity)
	}
	if cfg.Ingest.RefreshPeriod != def.Ingest.RefreshPeriod {
		t.Errorf("refresh period = %s, want default", cfg.Ingest.RefreshPeriod)
	}
	if cfg.Pipeline.BodyRadiusKm != def.Pipeline.BodyRadiusKm {
		t.Errorf("body radius = %g, want default", cfg.Pipeline.BodyRadiusKm)
	}
	if cfg.Render.Headless || cfg.Render.TPS != def.Render.TPS {
		t.Errorf("render = %+v, want defaults", cfg.Render)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}
