package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/penwyp/go-activity-monitor/internal/util"
)

// DefaultConfigPath is where LoadOrCreate looks when no path is given
const DefaultConfigPath = "~/.go-activity-monitor/config.yaml"

// Config holds all activity monitor configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Viewer   ViewerConfig   `yaml:"viewer"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type ViewerConfig struct {
	Timezone           string  `yaml:"timezone"`
	PixelsPerTick      float64 `yaml:"pixels_per_tick"`
	FetchLimit         int     `yaml:"fetch_limit"`
	ViewportDebounceMs int     `yaml:"viewport_debounce_ms"`
	HoverDebounceMs    int     `yaml:"hover_debounce_ms"`
	InitialSpan        string  `yaml:"initial_span"`
	GlueToNow          bool    `yaml:"glue_to_now"`
	ClickThresholdPx   float64 `yaml:"click_threshold_px"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
	Format string `yaml:"format"`
}

// ViewportDebounce returns the viewport debounce as a duration
func (v ViewerConfig) ViewportDebounce() time.Duration {
	return time.Duration(v.ViewportDebounceMs) * time.Millisecond
}

// HoverDebounce returns the hover debounce as a duration
func (v ViewerConfig) HoverDebounce() time.Duration {
	return time.Duration(v.HoverDebounceMs) * time.Millisecond
}

// Span parses InitialSpan. Validate guarantees it parses.
func (v ViewerConfig) Span() time.Duration {
	d, err := time.ParseDuration(v.InitialSpan)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// Validate fills unset values with defaults and rejects invalid ones
func (c *Config) Validate() error {
	def := DefaultConfig()

	if c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
	if c.Viewer.Timezone == "" {
		c.Viewer.Timezone = def.Viewer.Timezone
	}
	if _, err := util.LoadLocation(c.Viewer.Timezone); err != nil {
		return err
	}
	if c.Viewer.PixelsPerTick == 0 {
		c.Viewer.PixelsPerTick = def.Viewer.PixelsPerTick
	}
	if c.Viewer.PixelsPerTick < 0 {
		return fmt.Errorf("pixels_per_tick must be positive, got %v", c.Viewer.PixelsPerTick)
	}
	if c.Viewer.FetchLimit == 0 {
		c.Viewer.FetchLimit = def.Viewer.FetchLimit
	}
	if c.Viewer.FetchLimit < 0 {
		return fmt.Errorf("fetch_limit must be positive, got %d", c.Viewer.FetchLimit)
	}
	if c.Viewer.ViewportDebounceMs == 0 {
		c.Viewer.ViewportDebounceMs = def.Viewer.ViewportDebounceMs
	}
	if c.Viewer.HoverDebounceMs == 0 {
		c.Viewer.HoverDebounceMs = def.Viewer.HoverDebounceMs
	}
	if c.Viewer.ViewportDebounceMs < 0 || c.Viewer.HoverDebounceMs < 0 {
		return fmt.Errorf("debounce intervals must not be negative")
	}
	if c.Viewer.InitialSpan == "" {
		c.Viewer.InitialSpan = def.Viewer.InitialSpan
	}
	if d, err := time.ParseDuration(c.Viewer.InitialSpan); err != nil || d <= 0 {
		return fmt.Errorf("invalid initial_span '%s'", c.Viewer.InitialSpan)
	}
	if c.Viewer.ClickThresholdPx == 0 {
		c.Viewer.ClickThresholdPx = def.Viewer.ClickThresholdPx
	}
	if c.Viewer.ClickThresholdPx < 0 {
		return fmt.Errorf("click_threshold_px must be positive, got %v", c.Viewer.ClickThresholdPx)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if _, err := util.ParseLogFormat(c.Logging.Format); err != nil {
		return err
	}
	return nil
}

// Load reads a YAML config file at path and merges it over the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return cfg, nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path, writing defaults
// there first if the file does not exist.
func LoadOrCreate() (*Config, error) {
	path, err := ExpandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from path, writing defaults there first
// if the file does not exist.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
		return cfg, nil
	}
	return Load(path)
}
