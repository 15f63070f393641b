// Package config loads satview settings from an optional TOML file, then
// applies SATVIEW_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full satview configuration, one field per TOML section.
type Config struct {
	Ingest   IngestConfig   `toml:"ingest"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Render   RenderConfig   `toml:"render"`
	HTTP     HTTPConfig     `toml:"http"`
	Log      LogConfig      `toml:"log"`
}

// IngestConfig controls where element sets come from and how often.
type IngestConfig struct {
	SourceURL     string        `toml:"source_url"`
	ExtraURLs     []string      `toml:"extra_urls"`
	RefreshPeriod time.Duration `toml:"refresh_period"`
	FetchTimeout  time.Duration `toml:"fetch_timeout"`
}

// PipelineConfig sizes the active set and the frame pass.
type PipelineConfig struct {
	Capacity     int     `toml:"capacity"`
	BodyRadiusKm float64 `toml:"body_radius_km"`
	ParseWorkers int     `toml:"parse_workers"`
}

// RenderConfig sets up the window or the headless frame driver.
type RenderConfig struct {
	Width       int     `toml:"width"`
	Height      int     `toml:"height"`
	TPS         int     `toml:"tps"`
	MarkerSize  float64 `toml:"marker_size"`
	Headless    bool    `toml:"headless"`
	HeadlessFPS int     `toml:"headless_fps"`
}

// HTTPConfig configures the ops server.
type HTTPConfig struct {
	Addr        string `toml:"addr"` // empty disables the ops server
	AuthEnabled bool   `toml:"auth_enabled"`
	AuthToken   string `toml:"auth_token"`
	TrustProxy  bool   `toml:"trust_proxy"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // json or text
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Ingest: IngestConfig{
			SourceURL:     "https://celestrak.org/NORAD/elements/gp.php?GROUP=active&FORMAT=tle",
			RefreshPeriod: 6 * time.Hour,
			FetchTimeout:  30 * time.Second,
		},
		Pipeline: PipelineConfig{
			Capacity:     25000,
			BodyRadiusKm: 6378.137,
			ParseWorkers: runtime.NumCPU(),
		},
		Render: RenderConfig{
			Width:       1280,
			Height:      720,
			TPS:         60,
			MarkerSize:  2,
			HeadlessFPS: 30,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path over Defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports configuration that would leave the pipeline unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.Pipeline.Capacity < 1 {
		errs = append(errs, fmt.Errorf("pipeline.capacity must be positive, got %d", c.Pipeline.Capacity))
	}
	if c.Pipeline.BodyRadiusKm <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.body_radius_km must be positive, got %g", c.Pipeline.BodyRadiusKm))
	}
	if c.Ingest.RefreshPeriod < time.Minute {
		errs = append(errs, fmt.Errorf("ingest.refresh_period must be at least 1m, got %s", c.Ingest.RefreshPeriod))
	}
	if c.HTTP.AuthEnabled && c.HTTP.AuthToken == "" {
		errs = append(errs, errors.New("http.auth_token is required when auth is enabled"))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", s, err)
	}
	return l, nil
}

// ApplyEnv overrides fields from SATVIEW_* environment variables. Invalid
// values are logged and ignored.
func (c *Config) ApplyEnv(logger *slog.Logger) {
	c.applyEnv(os.LookupEnv, logger)
}

func (c *Config) applyEnv(lookup func(string) (string, bool), logger *slog.Logger) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	posInt := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid "+key+" value, using default", "value", v, "default", *dst)
			return
		}
		*dst = n
	}
	posFloat := func(key string, dst *float64) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			logger.Warn("invalid "+key+" value, using default", "value", v, "default", *dst)
			return
		}
		*dst = f
	}
	duration := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			logger.Warn("invalid "+key+" value, using default", "value", v, "default", dst.String())
			return
		}
		*dst = d
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid "+key+" value, using default", "value", v, "default", *dst)
			return
		}
		*dst = b
	}

	str("SATVIEW_SOURCE_URL", &c.Ingest.SourceURL)
	if v, ok := lookup("SATVIEW_EXTRA_URLS"); ok {
		var urls []string
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		c.Ingest.ExtraURLs = urls
	}
	duration("SATVIEW_REFRESH_PERIOD", &c.Ingest.RefreshPeriod)
	duration("SATVIEW_FETCH_TIMEOUT", &c.Ingest.FetchTimeout)

	posInt("SATVIEW_CAPACITY", &c.Pipeline.Capacity)
	posFloat("SATVIEW_BODY_RADIUS_KM", &c.Pipeline.BodyRadiusKm)
	posInt("SATVIEW_PARSE_WORKERS", &c.Pipeline.ParseWorkers)

	posInt("SATVIEW_WIDTH", &c.Render.Width)
	posInt("SATVIEW_HEIGHT", &c.Render.Height)
	posInt("SATVIEW_TPS", &c.Render.TPS)
	posFloat("SATVIEW_MARKER_SIZE", &c.Render.MarkerSize)
	boolean("SATVIEW_HEADLESS", &c.Render.Headless)
	posInt("SATVIEW_HEADLESS_FPS", &c.Render.HeadlessFPS)

	if v, ok := lookup("SATVIEW_HTTP_ADDR"); ok {
		c.HTTP.Addr = v // empty disables
	}
	boolean("SATVIEW_AUTH_ENABLED", &c.HTTP.AuthEnabled)
	str("SATVIEW_AUTH_TOKEN", &c.HTTP.AuthToken)
	boolean("SATVIEW_TRUST_PROXY", &c.HTTP.TrustProxy)

	str("SATVIEW_LOG_LEVEL", &c.Log.Level)
	str("SATVIEW_LOG_FORMAT", &c.Log.Format)
}

// NewLogger builds the process logger described by c.
func (c LogConfig) NewLogger() *slog.Logger {
	level, err := ParseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
