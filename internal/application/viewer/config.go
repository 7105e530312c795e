package viewer

import "time"

// RunConfig contains configuration for the view command
type RunConfig struct {
	// DBPath is watched for collector writes; empty or ":memory:" disables watching
	DBPath string

	// RecordClose writes the application close marker on exit
	RecordClose bool

	// Display settings
	RedrawInterval time.Duration
	LayoutStyle    int
	MaxWindows     int
}

// Validate fills unset values with defaults
func (c *RunConfig) Validate() error {
	if c.RedrawInterval <= 0 {
		c.RedrawInterval = 250 * time.Millisecond
	}
	if c.LayoutStyle < 0 {
		c.LayoutStyle = 0
	}
	if c.MaxWindows <= 0 {
		c.MaxWindows = 10
	}
	return nil
}
