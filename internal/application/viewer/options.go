package viewer

import (
	"time"

	"github.com/penwyp/go-activity-monitor/internal/config"
	"github.com/penwyp/go-activity-monitor/internal/core/constants"
	"github.com/penwyp/go-activity-monitor/internal/util"
)

// Options configures a Session
type Options struct {
	// Initial viewport
	WidthPx   int
	Span      time.Duration
	GlueToNow bool

	// Axis
	PixelsPerTick float64
	Location      *time.Location

	// Fetching
	FetchLimit int

	// Timing
	ViewportDebounce time.Duration
	HoverDebounce    time.Duration

	// Interaction
	ClickThresholdPx float64

	// Now is the session clock; defaults to the global time provider
	Now func() time.Time
}

// OptionsFromConfig builds Options from the viewer configuration
func OptionsFromConfig(cfg config.ViewerConfig, widthPx int) (Options, error) {
	loc, err := util.LoadLocation(cfg.Timezone)
	if err != nil {
		return Options{}, err
	}
	return Options{
		WidthPx:          widthPx,
		Span:             cfg.Span(),
		GlueToNow:        cfg.GlueToNow,
		PixelsPerTick:    cfg.PixelsPerTick,
		Location:         loc,
		FetchLimit:       cfg.FetchLimit,
		ViewportDebounce: cfg.ViewportDebounce(),
		HoverDebounce:    cfg.HoverDebounce(),
		ClickThresholdPx: cfg.ClickThresholdPx,
	}, nil
}

// Validate fills unset values with defaults
func (o *Options) Validate() error {
	if o.WidthPx < 1 {
		o.WidthPx = 120
	}
	if o.Span <= 0 {
		o.Span = time.Hour
	}
	if o.PixelsPerTick <= 0 {
		o.PixelsPerTick = constants.DefaultPixelsPerTick
	}
	if o.Location == nil {
		o.Location = util.GetTimeProvider().Location()
	}
	if o.FetchLimit <= 0 {
		o.FetchLimit = constants.DefaultFetchLimit
	}
	if o.ViewportDebounce <= 0 {
		o.ViewportDebounce = constants.ViewportDebounce
	}
	if o.HoverDebounce <= 0 {
		o.HoverDebounce = constants.HoverDebounce
	}
	if o.ClickThresholdPx <= 0 {
		o.ClickThresholdPx = constants.ClickThresholdPx
	}
	if o.Now == nil {
		o.Now = util.GetTimeProvider().Now
	}
	return nil
}
