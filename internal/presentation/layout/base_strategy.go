package layout

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-activity-monitor/internal/core/ticks"
	"github.com/penwyp/go-activity-monitor/internal/util"
)

// appGlyphs are the strip symbols, picked by app id so an app keeps its glyph across redraws
var appGlyphs = []string{"█", "▓", "▒", "░", "▚", "▞", "■", "▪"}

var appColors = []string{util.ColorBlue, util.ColorGreen, util.ColorYellow, util.ColorMagenta, util.ColorCyan, util.ColorRed}

// BaseStrategy provides common functionality for all layout strategies
type BaseStrategy struct {
	// Plain disables ANSI colors
	Plain bool
}

// Glyph returns the strip symbol of an app
func (b *BaseStrategy) Glyph(appID int64) string {
	i := int(appID % int64(len(appGlyphs)))
	if i < 0 {
		i = -i
	}
	return appGlyphs[i]
}

func (b *BaseStrategy) color(appID int64, text string) string {
	if b.Plain {
		return text
	}
	i := int(appID % int64(len(appColors)))
	if i < 0 {
		i = -i
	}
	return appColors[i] + text + util.ColorReset
}

// Ruler renders the tick labels. A label is placed at its tick's column and
// dropped when it would overlap the previous one.
func (b *BaseStrategy) Ruler(f Frame) (labels, marks string) {
	width := f.Viewport.WidthPx
	labelRow := []rune(strings.Repeat(" ", width))
	markRow := []rune(strings.Repeat("─", width))

	next := 0
	for _, tick := range f.Ticks {
		for _, frac := range tick.Subdivisions {
			col := int(f.Viewport.TimeToPixel(tick.Ms + frac*(tick.NextMs-tick.Ms)))
			if col >= 0 && col < width {
				markRow[col] = '┴'
			}
		}

		col := int(f.Viewport.TimeToPixel(tick.Ms))
		if col < 0 || col >= width {
			continue
		}
		markRow[col] = '┼'

		label := []rune(tick.Label)
		if col < next || col+len(label) > width {
			continue
		}
		copy(labelRow[col:], label)
		next = col + len(label) + 1
	}
	return string(labelRow), string(markRow)
}

// DominantApps returns, per column, the app holding focus for most of that
// column's time span, or -1 for idle columns
func (b *BaseStrategy) DominantApps(f Frame) []int64 {
	width := f.Viewport.WidthPx
	out := make([]int64, width)
	ivs := f.Intervals

	for col := 0; col < width; col++ {
		out[col] = -1
		t0 := f.Viewport.PixelToTime(float64(col))
		t1 := f.Viewport.PixelToTime(float64(col + 1))

		first := sort.Search(len(ivs), func(i int) bool { return ivs[i].EndMs() > t0 })
		best := 0.0
		for i := first; i < len(ivs) && ivs[i].StartMs() < t1; i++ {
			overlap := min(ivs[i].EndMs(), t1) - max(ivs[i].StartMs(), t0)
			if overlap > best {
				best = overlap
				out[col] = ivs[i].AppID
			}
		}
	}
	return out
}

// Strip renders one glyph per column for the dominant app
func (b *BaseStrategy) Strip(f Frame) string {
	var sb strings.Builder
	for _, appID := range b.DominantApps(f) {
		if appID < 0 {
			sb.WriteString(" ")
			continue
		}
		sb.WriteString(b.color(appID, b.Glyph(appID)))
	}
	return sb.String()
}

// SelectionBand marks the selected columns and the cursor
func (b *BaseStrategy) SelectionBand(f Frame) string {
	width := f.Viewport.WidthPx
	row := []rune(strings.Repeat(" ", width))

	if f.Selection != nil {
		from := int(f.Viewport.TimeToPixel(f.Selection.StartMs))
		to := int(f.Viewport.TimeToPixel(f.Selection.EndMs))
		for col := max(from, 0); col <= min(to, width-1); col++ {
			row[col] = '▔'
		}
		if f.Selection.IsPoint() && from >= 0 && from < width {
			row[from] = '│'
		}
	}
	if f.CursorPx >= 0 && f.CursorPx < width {
		row[f.CursorPx] = '▲'
	}
	return string(row)
}

// Header is the first line: visible span, zoom level and mode flags
func (b *BaseStrategy) Header(f Frame) string {
	start, end := f.Viewport.Range()
	parts := []string{
		"Activity " + formatMs(start, f.Location, "2006-01-02 15:04") + " → " + formatMs(end, f.Location, "2006-01-02 15:04"),
		"zoom: " + string(f.ZoomLabel),
	}
	if f.Viewport.GlueToNow {
		parts = append(parts, "● live")
	}
	if f.Dragging {
		parts = append(parts, "selecting")
	}
	if f.Loading != "" {
		parts = append(parts, f.Loading)
	}
	return strings.Join(parts, " | ")
}

// CursorLine describes the instant under the cursor and the selection
func (b *BaseStrategy) CursorLine(f Frame) string {
	at := f.Viewport.PixelToTime(float64(f.CursorPx))
	line := "cursor " + formatMs(at, f.Location, "Jan 02 15:04:05")
	if f.Selection != nil {
		line += fmt.Sprintf(" | selection %s → %s (%s)",
			formatMs(f.Selection.StartMs, f.Location, "Jan 02 15:04:05"),
			formatMs(f.Selection.EndMs, f.Location, "15:04:05"),
			util.FormatDuration(time.Duration(f.Selection.EndMs-f.Selection.StartMs)*time.Millisecond))
	}
	if f.Preview != "" {
		line += " | " + f.Preview
	}
	return line
}

// AppRows renders the numbered per-app usage table
func (b *BaseStrategy) AppRows(f Frame, limit int) []string {
	rows := []string{util.FormatDataTitle(fmt.Sprintf("Apps  total %s", util.FormatDuration(f.Total)))}
	if b.Plain {
		rows[0] = fmt.Sprintf("Apps  total %s", util.FormatDuration(f.Total))
	}
	if len(f.Apps) == 0 {
		return append(rows, "  no activity in scope")
	}
	for i, app := range f.Apps {
		if i >= limit {
			rows = append(rows, fmt.Sprintf("  ... %d more", len(f.Apps)-limit))
			break
		}
		rows = append(rows, fmt.Sprintf(" %d %s %s %s %8s %6s",
			i+1,
			b.color(app.AppID, b.Glyph(app.AppID)),
			util.PadToWidth(app.AppName, 24, true),
			util.CreateProgressBar(app.Percent, 22),
			util.FormatDuration(app.Duration),
			util.FormatPercent(app.Percent)))
	}
	return rows
}

// WindowRows renders the newest window spans
func (b *BaseStrategy) WindowRows(f Frame, limit int, titleWidth int) []string {
	title := "Windows"
	if f.SortField != "" {
		title += " by " + f.SortField
	}
	rows := []string{title}
	if !b.Plain {
		rows[0] = util.FormatDataTitle(title)
	}
	for i, win := range f.Windows {
		if i >= limit {
			break
		}
		rows = append(rows, fmt.Sprintf("  %s  %s  %s %8s",
			formatMs(float64(win.StartSec)*1000, f.Location, "15:04:05"),
			util.PadToWidth(win.AppName, 14, true),
			util.PadToWidth(win.WindowTitle, titleWidth, true),
			util.FormatDuration(win.Duration)))
	}
	return rows
}

func formatMs(ms float64, loc *time.Location, layout string) string {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(int64(ms)).In(loc).Format(layout)
}

// zoomLabel falls back to deriving the label from the tick spacing
func zoomLabel(f Frame) ticks.ZoomLabel {
	if f.ZoomLabel != "" || len(f.Ticks) == 0 {
		return f.ZoomLabel
	}
	return ticks.LabelForStep(int((f.Ticks[0].NextMs - f.Ticks[0].Ms) / 60_000))
}
