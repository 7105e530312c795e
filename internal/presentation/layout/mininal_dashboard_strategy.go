package layout

import (
	"fmt"
	"io"

	"github.com/penwyp/go-activity-monitor/internal/util"
)

// MinimalLayoutStrategy draws the strip and a one-line summary
type MinimalLayoutStrategy struct {
	BaseStrategy
}

func (s *MinimalLayoutStrategy) GetName() string {
	return "Minimal Dashboard"
}

func (s *MinimalLayoutStrategy) Render(w io.Writer, f Frame) {
	f.ZoomLabel = zoomLabel(f)
	labels, _ := s.Ruler(f)

	top := "idle"
	if len(f.Apps) > 0 {
		top = fmt.Sprintf("%s %s", f.Apps[0].AppName, util.FormatPercent(f.Apps[0].Percent))
	}

	fmt.Fprintln(w, " "+labels)
	fmt.Fprintln(w, " "+s.Strip(f))
	fmt.Fprintln(w, " "+s.SelectionBand(f))
	fmt.Fprintf(w, "%s | active %s | top %s\n", s.Header(f), util.FormatDuration(f.Total), top)
}
