package commands

import (
	"fmt"
	"time"

	"github.com/penwyp/go-activity-monitor/internal/application/viewer"
	"github.com/penwyp/go-activity-monitor/internal/presentation/layout"
	"github.com/penwyp/go-activity-monitor/internal/util"
	"github.com/spf13/cobra"
)

var (
	viewSpan        time.Duration
	viewNoGlue      bool
	viewRecordClose bool
	viewLayout      int
	viewRefresh     time.Duration
	viewMaxWindows  int
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Interactive activity timeline in the terminal",
	Long: `Shows a zoomable timeline of application usage, similar to a trace viewer.

Each column of the activity strip is the application that dominated that slice
of time. Pan and zoom to move through history; select a range, an interval or
an application to narrow the usage tables. Press ? for key bindings.

By default the right edge follows the current time.`,
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)

	viewCmd.Flags().DurationVar(&viewSpan, "span", 0,
		"Initial visible span (e.g., 30m, 8h; default viewer.initial_span)")
	viewCmd.Flags().BoolVar(&viewNoGlue, "no-glue", false,
		"Start without following the current time")
	viewCmd.Flags().BoolVar(&viewRecordClose, "record-close", false,
		"Record an application close marker on exit")
	viewCmd.Flags().IntVar(&viewLayout, "layout", 0,
		"Layout style (0 = full, 1 = minimal)")
	viewCmd.Flags().DurationVar(&viewRefresh, "refresh", 250*time.Millisecond,
		"Display refresh interval")
	viewCmd.Flags().IntVar(&viewMaxWindows, "max-windows", 10,
		"Window rows shown in the full layout")
}

func runView(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	termWidth, _ := layout.NewSizer().GetSize()
	opts, err := viewer.OptionsFromConfig(cfg.Viewer, layout.TimelineWidth(termWidth))
	if err != nil {
		return err
	}
	if viewSpan > 0 {
		opts.Span = viewSpan
	}
	if viewNoGlue {
		opts.GlueToNow = false
	}

	session, err := viewer.NewSession(ctx, st, opts)
	if err != nil {
		return err
	}

	orchestrator, err := viewer.NewOrchestrator(session, viewer.RunConfig{
		DBPath:         storePath(),
		RecordClose:    viewRecordClose,
		RedrawInterval: viewRefresh,
		LayoutStyle:    viewLayout,
		MaxWindows:     viewMaxWindows,
	}, st)
	if err != nil {
		return err
	}

	util.LogInfo(fmt.Sprintf("Starting viewer over %s", storePath()))
	runErr := orchestrator.Run(ctx)
	if err := orchestrator.Close(); err != nil {
		util.LogWarn(fmt.Sprintf("Viewer shutdown: %v", err))
	}
	return runErr
}
