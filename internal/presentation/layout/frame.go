package layout

import (
	"time"

	"github.com/penwyp/go-activity-monitor/internal/core/model"
	"github.com/penwyp/go-activity-monitor/internal/core/ticks"
	"github.com/penwyp/go-activity-monitor/internal/core/viewport"
)

// Frame is everything one screen draw needs. Column i of the timeline is
// pixel i of the viewport.
type Frame struct {
	Viewport  viewport.Viewport
	Ticks     []model.Tick
	ZoomLabel ticks.ZoomLabel
	Intervals []model.Interval
	Apps      []model.AppUsage
	Windows   []model.WindowUsage
	Total     time.Duration

	// Selection is the normalized selected range, nil for none
	Selection *model.TimeRange
	Dragging  bool
	CursorPx  int

	Location   *time.Location
	SortField  string
	Loading    string
	Status     string
	Preview    string
	MaxWindows int
}
