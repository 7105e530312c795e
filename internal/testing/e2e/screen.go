// Package e2e replays terminal output onto a virtual screen so tests can
// assert what a user would actually see after several redraws.
package e2e

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[?0-9;]*[a-zA-Z]`)

// StripANSI removes CSI escape sequences from s
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// Screen is a fixed-size grid of cells
type Screen struct {
	rows, cols int
	cells      [][]rune
	row, col   int
}

func NewScreen(rows, cols int) *Screen {
	s := &Screen{rows: rows, cols: cols, cells: make([][]rune, rows)}
	for i := range s.cells {
		s.cells[i] = make([]rune, cols)
	}
	s.clearFrom(0, 0)
	return s
}

// Write applies output to the screen. Newlines return to column zero.
func (s *Screen) Write(p []byte) (int, error) {
	runes := []rune(string(p))
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; {
		case r == 0x1b && i+1 < len(runes) && runes[i+1] == '[':
			i = s.escape(runes, i+2)
		case r == '\n':
			s.newline()
		case r == '\r':
			s.col = 0
		default:
			s.put(r)
		}
	}
	return len(p), nil
}

// escape handles one CSI sequence starting at params and returns the index
// of its final byte
func (s *Screen) escape(runes []rune, params int) int {
	end := params
	for end < len(runes) && !isFinal(runes[end]) {
		end++
	}
	if end >= len(runes) {
		return len(runes) - 1
	}
	raw := string(runes[params:end])
	if strings.HasPrefix(raw, "?") {
		return end
	}

	var args []int
	for _, part := range strings.Split(raw, ";") {
		n, _ := strconv.Atoi(part)
		args = append(args, n)
	}
	arg := func(i, def int) int {
		if i < len(args) && args[i] > 0 {
			return args[i]
		}
		return def
	}

	switch runes[end] {
	case 'H', 'f':
		s.row = min(arg(0, 1)-1, s.rows-1)
		s.col = min(arg(1, 1)-1, s.cols-1)
	case 'J':
		if arg(0, 0) == 2 {
			s.clearFrom(0, 0)
		} else {
			s.clearFrom(s.row, s.col)
		}
	case 'K':
		for c := s.col; c < s.cols; c++ {
			s.cells[s.row][c] = ' '
		}
	}
	return end
}

func isFinal(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func (s *Screen) put(r rune) {
	w := runewidth.RuneWidth(r)
	if w == 0 {
		return
	}
	if s.col+w > s.cols {
		s.newline()
	}
	s.cells[s.row][s.col] = r
	for i := 1; i < w; i++ {
		s.cells[s.row][s.col+i] = 0
	}
	s.col += w
}

func (s *Screen) newline() {
	s.col = 0
	if s.row < s.rows-1 {
		s.row++
		return
	}
	copy(s.cells, s.cells[1:])
	s.cells[s.rows-1] = make([]rune, s.cols)
	for c := range s.cells[s.rows-1] {
		s.cells[s.rows-1][c] = ' '
	}
}

func (s *Screen) clearFrom(row, col int) {
	for r := row; r < s.rows; r++ {
		start := 0
		if r == row {
			start = col
		}
		for c := start; c < s.cols; c++ {
			s.cells[r][c] = ' '
		}
	}
}

// Line returns row i without trailing blanks
func (s *Screen) Line(i int) string {
	if i < 0 || i >= s.rows {
		return ""
	}
	var b strings.Builder
	for _, r := range s.cells[i] {
		if r != 0 {
			b.WriteRune(r)
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Text renders the visible screen, one line per row
func (s *Screen) Text() string {
	lines := make([]string, s.rows)
	for i := range lines {
		lines[i] = s.Line(i)
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func (s *Screen) Contains(text string) bool {
	return strings.Contains(s.Text(), text)
}
