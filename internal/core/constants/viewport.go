package constants

import "time"

const (
	// Zoom clamps. Below 5ms per pixel is meaningless precision; above ~90 days
	// per pixel the whole history collapses into a few columns.
	MinMsPerPixel = 5.0
	MaxMsPerPixel = float64(90 * 24 * time.Hour / time.Millisecond)

	// DefaultPixelsPerTick is the target on-screen width of one major tick
	DefaultPixelsPerTick = 120.0

	// Minor subdivision density thresholds, in pixels of tick width
	QuarterSubdivisionPx = 160.0
	HalfSubdivisionPx    = 60.0
)

// TickStepsMinutes is the discrete step table used to pick the major tick spacing
var TickStepsMinutes = []int{
	1, 2, 5, 10, 15, 30, 60, 120, 180, 240, 360, 720,
	1440, 2880, 4320, 10080, 20160, 43200,
}

const (
	// ViewportDebounce coalesces pan/zoom/resize bursts into one fetch decision
	ViewportDebounce = 120 * time.Millisecond
	// HoverDebounce delays the screenshot lookup per pointer-move burst
	HoverDebounce = 200 * time.Millisecond
	// GlueTickInterval is the cadence of the glue-to-now clock
	GlueTickInterval = time.Second

	// DefaultFetchLimit caps the rows returned per fetch
	DefaultFetchLimit = 2000

	// ClickThresholdPx is the drag width below which a drag counts as a click
	ClickThresholdPx = 4.0
)
