package display

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/penwyp/go-activity-monitor/internal/presentation/layout"
	"github.com/penwyp/go-activity-monitor/internal/util"
)

// DisplayMode is what the screen currently shows
type DisplayMode int

const (
	ModeNormal DisplayMode = iota
	ModeHelp
	ModeLoading
)

// State is the interaction state that picks what to draw
type State struct {
	LayoutStyle    int
	ShowHelp       bool
	IsLoading      bool
	LoadingMessage string
}

type TerminalDisplay struct {
	out               io.Writer
	inAlternateScreen bool
	lastLayoutStyle   int
	isFirstRender     bool
	currentMode       DisplayMode
	lastDraw          time.Time
}

// NewTerminalDisplay renders to stdout
func NewTerminalDisplay() *TerminalDisplay {
	return NewTerminalDisplayTo(os.Stdout)
}

// NewTerminalDisplayTo renders to w
func NewTerminalDisplayTo(w io.Writer) *TerminalDisplay {
	return &TerminalDisplay{
		out:           w,
		isFirstRender: true,
		currentMode:   ModeNormal,
	}
}

// EnterAlternateScreen switches to alternate screen buffer
func (td *TerminalDisplay) EnterAlternateScreen() {
	if td.inAlternateScreen {
		return
	}
	fmt.Fprint(td.out, util.EnterAltScreen, util.ClearScreen, util.ClearScrollback,
		util.ResetScrollRegion, util.HideCursor, util.MoveCursorHome)
	td.inAlternateScreen = true
	td.isFirstRender = true
}

// ExitAlternateScreen returns to normal screen buffer
func (td *TerminalDisplay) ExitAlternateScreen() {
	if !td.inAlternateScreen {
		return
	}
	fmt.Fprint(td.out, util.ClearScreen, util.MoveCursorHome, util.ShowCursor, util.ExitAltScreen)
	td.inAlternateScreen = false
}

func (td *TerminalDisplay) determineDisplayMode(state State) DisplayMode {
	// Priority order: Help > Loading > Normal
	if state.ShowHelp {
		return ModeHelp
	}
	if state.IsLoading {
		return ModeLoading
	}
	return ModeNormal
}

// Render draws one frame. The whole screen is composed in memory and written
// at once, each line cleared to its end so shorter redraws leave no residue.
func (td *TerminalDisplay) Render(frame layout.Frame, state State) {
	mode := td.determineDisplayMode(state)

	var body bytes.Buffer
	switch mode {
	case ModeHelp:
		td.renderHelp(&body)
	case ModeLoading:
		td.renderLoadingScreen(&body, state.LoadingMessage)
	default:
		layout.GetLayoutStrategy(state.LayoutStyle).Render(&body, frame)
	}

	var screen bytes.Buffer
	if td.isFirstRender || mode != td.currentMode || state.LayoutStyle != td.lastLayoutStyle {
		screen.WriteString(util.ClearScreen)
		td.isFirstRender = false
		td.currentMode = mode
		td.lastLayoutStyle = state.LayoutStyle
	}
	screen.WriteString(util.MoveCursorHome)

	scanner := bufio.NewScanner(&body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		screen.WriteString(scanner.Text())
		screen.WriteString(clearToLineEnd)
		screen.WriteString("\n")
	}
	screen.WriteString(clearToScreenEnd)

	if _, err := td.out.Write(screen.Bytes()); err != nil {
		util.LogDebug(fmt.Sprintf("Render write failed: %v", err))
	}
	td.lastDraw = time.Now()
}

const (
	clearToLineEnd   = "\033[K"
	clearToScreenEnd = "\033[J"
)

func (td *TerminalDisplay) renderHelp(w io.Writer) {
	lines := []string{
		"Activity Monitor - Help",
		strings.Repeat("═", 60),
		"",
		"Navigation:",
		"  ←/→ or h/l   Pan the timeline",
		"  +/- or ↑/↓   Zoom in/out at the cursor",
		"  ,/.          Move the cursor (shift with </> for big steps)",
		"  g            Toggle follow-now (glue to the current time)",
		"",
		"Selection:",
		"  space        Start or finish a drag selection at the cursor",
		"  enter        Select the span under the cursor",
		"  1-9          Toggle selection of an app row",
		"  Esc          Clear the selection",
		"",
		"View:",
		"  s            Cycle window sort (time, duration, app)",
		"  t            Change layout style (Full → Minimal)",
		"  r            Re-check the database for new events",
		"  ?            Show this help",
		"  q/Ctrl+C     Quit",
		"",
		strings.Repeat("═", 60),
		"Press '?' to return...",
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

func (td *TerminalDisplay) renderLoadingScreen(w io.Writer, message string) {
	if message == "" {
		message = "Loading activity..."
	}

	boxWidth := 50
	loadingChars := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	animIndex := int(time.Now().Unix()) % len(loadingChars)

	fmt.Fprintf(w, "╔%s╗\n", strings.Repeat("═", boxWidth-2))
	fmt.Fprintf(w, "║%s║\n", util.PadToWidth(" Activity Monitor", boxWidth-2, true))
	fmt.Fprintf(w, "╠%s╣\n", strings.Repeat("═", boxWidth-2))
	fmt.Fprintf(w, "║%s║\n", util.PadToWidth(" "+loadingChars[animIndex]+" "+message, boxWidth-2, true))
	fmt.Fprintf(w, "║%s║\n", util.PadToWidth(" Press 'q' to quit", boxWidth-2, true))
	fmt.Fprintf(w, "╚%s╝\n", strings.Repeat("═", boxWidth-2))
}
