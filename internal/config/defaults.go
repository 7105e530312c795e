package config

import "github.com/penwyp/go-activity-monitor/internal/core/constants"

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "~/.go-activity-monitor/data/activity.db",
		},
		Viewer: ViewerConfig{
			Timezone:           "Local",
			PixelsPerTick:      constants.DefaultPixelsPerTick,
			FetchLimit:         constants.DefaultFetchLimit,
			ViewportDebounceMs: int(constants.ViewportDebounce.Milliseconds()),
			HoverDebounceMs:    int(constants.HoverDebounce.Milliseconds()),
			InitialSpan:        "1h",
			GlueToNow:          true,
			ClickThresholdPx:   constants.ClickThresholdPx,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8742",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
