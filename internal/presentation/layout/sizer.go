package layout

import (
	"os"

	"golang.org/x/term"
)

const (
	fallbackWidth  = 80
	fallbackHeight = 24
	minWidth       = 40
)

// Sizer reports the usable terminal area
type Sizer struct {
	fd int
}

// NewSizer measures the terminal attached to stdout
func NewSizer() *Sizer {
	return &Sizer{fd: int(os.Stdout.Fd())}
}

// GetSize returns the terminal size, falling back to 80x24 when stdout is
// not a terminal
func (s *Sizer) GetSize() (width, height int) {
	w, h, err := term.GetSize(s.fd)
	if err != nil || w <= 0 || h <= 0 {
		return fallbackWidth, fallbackHeight
	}
	return w, h
}

// TimelineWidth is the number of timeline columns for a terminal width
func TimelineWidth(termWidth int) int {
	if termWidth < minWidth {
		termWidth = minWidth
	}
	return termWidth - 2
}
