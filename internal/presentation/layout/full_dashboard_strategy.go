package layout

import (
	"fmt"
	"io"
)

// FullLayoutStrategy draws the timeline with the app table and window rows
type FullLayoutStrategy struct {
	BaseStrategy
}

func (s *FullLayoutStrategy) GetName() string {
	return "Full Dashboard"
}

func (s *FullLayoutStrategy) Render(w io.Writer, f Frame) {
	f.ZoomLabel = zoomLabel(f)
	labels, marks := s.Ruler(f)

	fmt.Fprintln(w, s.Header(f))
	fmt.Fprintln(w)
	fmt.Fprintln(w, " "+labels)
	fmt.Fprintln(w, " "+marks)
	fmt.Fprintln(w, " "+s.Strip(f))
	fmt.Fprintln(w, " "+s.Strip(f))
	fmt.Fprintln(w, " "+s.SelectionBand(f))
	fmt.Fprintln(w, s.CursorLine(f))
	fmt.Fprintln(w)

	for _, row := range s.AppRows(f, 9) {
		fmt.Fprintln(w, row)
	}
	fmt.Fprintln(w)

	limit := f.MaxWindows
	if limit <= 0 {
		limit = 8
	}
	titleWidth := f.Viewport.WidthPx - 40
	if titleWidth < 10 {
		titleWidth = 10
	}
	for _, row := range s.WindowRows(f, limit, titleWidth) {
		fmt.Fprintln(w, row)
	}

	if f.Status != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  "+f.Status)
	}
}
