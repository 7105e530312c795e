package viewer

import (
	"context"
	"fmt"
	"time"

	"github.com/penwyp/go-activity-monitor/internal/core/constants"
	"github.com/penwyp/go-activity-monitor/internal/core/model"
	"github.com/penwyp/go-activity-monitor/internal/core/monitoring"
	"github.com/penwyp/go-activity-monitor/internal/core/selection"
	"github.com/penwyp/go-activity-monitor/internal/presentation/display"
	"github.com/penwyp/go-activity-monitor/internal/presentation/interaction"
	"github.com/penwyp/go-activity-monitor/internal/presentation/layout"
	"github.com/penwyp/go-activity-monitor/internal/util"
)

// CloseRecorder writes the application close marker
type CloseRecorder interface {
	RecordClose(ctx context.Context, atSec int64) error
}

// Orchestrator drives the interactive terminal viewer: keyboard input,
// database change notifications and redraws around one Session.
type Orchestrator struct {
	config  RunConfig
	session *Session
	marker  CloseRecorder

	display  *display.TerminalDisplay
	sizer    *layout.Sizer
	sorter   *interaction.WindowSorter
	keyboard *interaction.KeyboardReader
	watcher  *monitoring.FileWatcher

	cursorPx    int
	layoutStyle int
	showHelp    bool
	status      string
}

// NewOrchestrator creates a viewer around session. marker may be nil.
func NewOrchestrator(session *Session, config RunConfig, marker CloseRecorder) (*Orchestrator, error) {
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid viewer config: %w", err)
	}

	o := &Orchestrator{
		config:      config,
		session:     session,
		marker:      marker,
		display:     display.NewTerminalDisplay(),
		sizer:       layout.NewSizer(),
		sorter:      interaction.NewWindowSorter(),
		layoutStyle: config.LayoutStyle % layout.StyleCount,
	}
	o.cursorPx = session.Viewport().WidthPx - 1
	return o, nil
}

// Run starts the viewer and blocks until the user quits or ctx is done
func (o *Orchestrator) Run(ctx context.Context) error {
	keyboard, err := interaction.NewKeyboardReader()
	if err != nil {
		return fmt.Errorf("failed to initialize keyboard: %w", err)
	}
	o.keyboard = keyboard

	o.display.EnterAlternateScreen()
	defer o.display.ExitAlternateScreen()

	o.resize()
	o.session.Start()

	var fileEvents <-chan monitoring.FileEvent
	if err := o.startWatcher(); err != nil {
		util.LogWarn(fmt.Sprintf("Database watching disabled: %v", err))
	} else if o.watcher != nil {
		fileEvents = o.watcher.Events()
	}

	glueTicker := time.NewTicker(constants.GlueTickInterval)
	defer glueTicker.Stop()

	redrawTicker := time.NewTicker(o.config.RedrawInterval)
	defer redrawTicker.Stop()

	o.updateDisplay()

	for {
		select {
		case <-ctx.Done():
			util.LogInfo("Shutting down activity viewer...")
			return nil

		case <-glueTicker.C:
			o.session.Tick()
			o.updateDisplay()

		case <-redrawTicker.C:
			o.resize()
			o.updateDisplay()

		case event := <-fileEvents:
			o.handleFileChange(event)

		case keyEvent := <-o.keyboard.Events():
			if o.handleKeyboard(keyEvent) {
				return nil
			}
			o.updateDisplay()
		}
	}
}

func (o *Orchestrator) cursorX() float64 {
	return float64(o.cursorPx) + 0.5
}

func (o *Orchestrator) moveCursor(delta int) {
	width := o.session.Viewport().WidthPx
	o.cursorPx = min(max(o.cursorPx+delta, 0), width-1)
	if o.session.Dragging() {
		o.session.DragMove(o.cursorX())
	}
	o.session.Hover(o.cursorX())
}

// handleKeyboard applies one key and reports whether the user asked to quit
func (o *Orchestrator) handleKeyboard(event interaction.KeyEvent) bool {
	if o.showHelp {
		switch {
		case event.Type == interaction.KeyEscape,
			event.Type == interaction.KeyChar && (event.Key == '?' || event.Key == 'q'):
			o.showHelp = false
			return false
		case event.Type == interaction.KeyChar && event.Key == 3:
			return true
		}
		return false
	}

	width := o.session.Viewport().WidthPx
	panStep := float64(max(width/8, 1))

	switch event.Type {
	// panning drags the content, so looking later is a negative drag
	case interaction.KeyLeft:
		o.session.Pan(panStep)
	case interaction.KeyRight:
		o.session.Pan(-panStep)
	case interaction.KeyUp:
		o.session.ZoomAt(o.cursorX(), 0.5)
	case interaction.KeyDown:
		o.session.ZoomAt(o.cursorX(), 2)
	case interaction.KeyEnter:
		o.selectUnderCursor()
	case interaction.KeyEscape:
		o.session.ClearSelection()
		o.status = "Selection cleared"
	case interaction.KeyChar:
		return o.handleChar(event.Key, panStep)
	}
	return false
}

func (o *Orchestrator) handleChar(key rune, panStep float64) bool {
	switch key {
	case 'q', 'Q', 3:
		return true
	case 'h':
		o.session.Pan(panStep)
	case 'l':
		o.session.Pan(-panStep)
	case '+', '=':
		o.session.ZoomAt(o.cursorX(), 0.5)
	case '-', '_':
		o.session.ZoomAt(o.cursorX(), 2)
	case 'g', 'G':
		glue := !o.session.Viewport().GlueToNow
		o.session.SetGlueToNow(glue)
		if glue {
			o.status = "Following now"
		} else {
			o.status = "Stopped following now"
		}
	case ',':
		o.moveCursor(-1)
	case '.':
		o.moveCursor(1)
	case '<':
		o.moveCursor(-10)
	case '>':
		o.moveCursor(10)
	case ' ':
		if o.session.Dragging() {
			o.session.DragEnd(o.cursorX())
			o.status = ""
		} else {
			o.session.DragStart(o.cursorX())
			o.status = "Selecting: move the cursor, space to finish"
		}
	case 's', 'S':
		o.sorter.Next()
	case 't', 'T':
		o.layoutStyle = (o.layoutStyle + 1) % layout.StyleCount
	case 'r', 'R':
		o.session.RequestCoverage()
		o.status = "Refreshing"
	case '?':
		o.showHelp = true
	default:
		if key >= '1' && key <= '9' {
			o.selectAppRow(int(key - '1'))
		}
	}
	return false
}

func (o *Orchestrator) selectUnderCursor() {
	ms := o.session.Viewport().PixelToTime(o.cursorX())
	if o.session.SelectAt(ms).Kind == selection.KindNone {
		o.status = "No activity under cursor"
		return
	}
	o.status = ""
}

// selectAppRow toggles the app ranked index over all cached activity, so a
// key keeps naming the same app while it is selected
func (o *Orchestrator) selectAppRow(index int) {
	apps := o.session.RankedApps()
	if index >= len(apps) {
		return
	}
	app := apps[index]
	if o.session.SelectApp(app.AppID).Kind == selection.KindNone {
		o.status = fmt.Sprintf("Deselected %s", app.AppName)
		return
	}
	o.status = fmt.Sprintf("Selected %s", app.AppName)
}

func (o *Orchestrator) resize() {
	width, _ := o.sizer.GetSize()
	timeline := layout.TimelineWidth(width)
	if timeline != o.session.Viewport().WidthPx {
		o.session.Resize(timeline)
	}
	o.cursorPx = min(o.cursorPx, timeline-1)
}

// buildFrame snapshots the session into one drawable frame
func (o *Orchestrator) buildFrame() layout.Frame {
	data := o.session.Aggregated()
	windows := append([]model.WindowUsage(nil), data.Windows...)
	o.sorter.Sort(windows)

	_, label := o.session.TickStep()
	frame := layout.Frame{
		Viewport:   o.session.Viewport(),
		Ticks:      o.session.Ticks(),
		ZoomLabel:  label,
		Intervals:  o.session.Intervals(),
		Apps:       data.Apps,
		Windows:    windows,
		Total:      data.Total,
		Selection:  o.session.SelectionRange(),
		Dragging:   o.session.Dragging(),
		CursorPx:   o.cursorPx,
		Location:   o.session.opts.Location,
		SortField:  o.sorter.Field().String(),
		Status:     o.status,
		Preview:    describePreview(o.session.Preview(), o.session.opts.Location),
		MaxWindows: o.config.MaxWindows,
	}
	if loading, message := o.session.Loading(); loading {
		frame.Loading = message
	}
	return frame
}

func describePreview(p *Preview, loc *time.Location) string {
	if p == nil {
		return ""
	}
	if p.Screenshot == nil {
		return "no screenshot near cursor"
	}
	at := time.Unix(p.Screenshot.CreatedAtSec, 0).In(loc)
	return fmt.Sprintf("screenshot #%d (app %d) at %s, %s",
		p.Screenshot.ID, p.Screenshot.AppID, at.Format("2006-01-02 15:04:05"), formatBytes(len(p.Screenshot.PNG)))
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// updateDisplay redraws the terminal
func (o *Orchestrator) updateDisplay() {
	loading, message := o.session.Loading()
	state := display.State{
		LayoutStyle: o.layoutStyle,
		ShowHelp:    o.showHelp,
		// the full-screen loading page only covers the first load
		IsLoading:      loading && o.session.CachedEvents() == 0,
		LoadingMessage: message,
	}
	o.display.Render(o.buildFrame(), state)
}

// startWatcher watches the database file for collector writes
func (o *Orchestrator) startWatcher() error {
	if o.config.DBPath == "" || o.config.DBPath == ":memory:" {
		return nil
	}
	watcher, err := monitoring.NewFileWatcher([]string{o.config.DBPath})
	if err != nil {
		return err
	}
	o.watcher = watcher
	return nil
}

// handleFileChange re-runs the fetch decision after the store was written
func (o *Orchestrator) handleFileChange(event monitoring.FileEvent) {
	util.LogDebug(fmt.Sprintf("Database changed: %s (%s)", event.Path, event.Operation))
	o.session.RequestCoverage()
}

// Close records the close marker when enabled and releases resources
func (o *Orchestrator) Close() error {
	if o.config.RecordClose && o.marker != nil {
		atSec := o.session.opts.Now().Unix()
		if err := o.marker.RecordClose(context.Background(), atSec); err != nil {
			util.LogError(fmt.Sprintf("Failed to record close marker: %v", err))
		}
	}

	if o.keyboard != nil {
		if err := o.keyboard.Close(); err != nil {
			util.LogWarn(fmt.Sprintf("Failed to restore terminal: %v", err))
		}
	}

	o.session.Close()

	if o.watcher != nil {
		if err := o.watcher.Close(); err != nil {
			return fmt.Errorf("failed to close file watcher: %w", err)
		}
	}
	return nil
}
