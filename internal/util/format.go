package util

import (
	"fmt"
	"time"
)

// FormatDuration renders an activity duration with the two most significant units
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// FormatPercent renders a percentage with one decimal
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// FormatSpan renders a [start, end] millisecond range in the configured timezone
func FormatSpan(startMs, endMs float64) string {
	tp := GetTimeProvider()
	start := tp.FromMillis(startMs)
	end := tp.FromMillis(endMs)

	if start.YearDay() == end.YearDay() && start.Year() == end.Year() {
		return fmt.Sprintf("%s %s - %s", start.Format("2006-01-02"), start.Format("15:04:05"), end.Format("15:04:05"))
	}
	return fmt.Sprintf("%s - %s", start.Format("2006-01-02 15:04"), end.Format("2006-01-02 15:04"))
}
