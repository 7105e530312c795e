// Package selection tracks the user's current selection on the time axis.
package selection

import (
	"math"
	"sort"

	"github.com/penwyp/go-activity-monitor/internal/core/constants"
	"github.com/penwyp/go-activity-monitor/internal/core/model"
	"github.com/penwyp/go-activity-monitor/internal/core/viewport"
)

// Kind tags the active selection variant
type Kind int

const (
	KindNone Kind = iota
	KindRange
	KindIDSet
)

func (k Kind) String() string {
	switch k {
	case KindRange:
		return "range"
	case KindIDSet:
		return "ids"
	default:
		return "none"
	}
}

// Selection is a tagged variant. Only the fields of the active Kind are set.
// For ranges, Start is the drag origin and may be greater than End.
type Selection struct {
	Kind  Kind     `json:"kind"`
	Start float64  `json:"startMs,omitempty"`
	End   float64  `json:"endMs,omitempty"`
	IDs   []string `json:"ids,omitempty"`
}

// None is the empty selection
var None = Selection{Kind: KindNone}

// Range builds a range selection with start kept as given
func Range(startMs, endMs float64) Selection {
	return Selection{Kind: KindRange, Start: startMs, End: endMs}
}

// IDSet builds an id selection; ids are deduplicated and sorted
func IDSet(ids []string) Selection {
	return Selection{Kind: KindIDSet, IDs: normalizeIDs(ids)}
}

// TimeRange returns the range with start and end ordered. ok is false for other kinds.
func (s Selection) TimeRange() (model.TimeRange, bool) {
	if s.Kind != KindRange {
		return model.TimeRange{}, false
	}
	return model.TimeRange{StartMs: math.Min(s.Start, s.End), EndMs: math.Max(s.Start, s.End)}, true
}

// Contains reports whether id is part of an id selection
func (s Selection) Contains(id string) bool {
	if s.Kind != KindIDSet {
		return false
	}
	i := sort.SearchStrings(s.IDs, id)
	return i < len(s.IDs) && s.IDs[i] == id
}

// SpanResolver returns the min/max time span covered by a set of interval ids
type SpanResolver func(ids []string) (model.TimeRange, bool)

// Machine owns the selection state. It is not safe for concurrent use; the
// owning session serializes access.
type Machine struct {
	current  Selection
	dragging bool

	clickThresholdPx float64
	resolve          SpanResolver
	onChange         func(*model.TimeRange)
}

// NewMachine creates a state machine starting at None. A non-positive
// threshold uses the default click threshold.
func NewMachine(clickThresholdPx float64, resolve SpanResolver) *Machine {
	if clickThresholdPx <= 0 {
		clickThresholdPx = constants.ClickThresholdPx
	}
	return &Machine{current: None, clickThresholdPx: clickThresholdPx, resolve: resolve}
}

// OnChange registers the callback fired after every transition
func (m *Machine) OnChange(fn func(*model.TimeRange)) {
	m.onChange = fn
}

// Current returns a copy of the active selection
func (m *Machine) Current() Selection {
	s := m.current
	if s.IDs != nil {
		s.IDs = append([]string(nil), s.IDs...)
	}
	return s
}

// Dragging reports whether a drag is in progress
func (m *Machine) Dragging() bool {
	return m.dragging
}

// DragStart begins a range at the time under px
func (m *Machine) DragStart(v viewport.Viewport, px float64) {
	t := v.PixelToTime(px)
	m.dragging = true
	m.set(Range(t, t))
}

// DragMove updates the range end; the origin stays fixed
func (m *Machine) DragMove(v viewport.Viewport, px float64) {
	if !m.dragging {
		return
	}
	m.set(Range(m.current.Start, v.PixelToTime(px)))
}

// DragEnd finalizes the drag. Drags narrower than the click threshold on
// screen collapse to a point at the origin.
func (m *Machine) DragEnd(v viewport.Viewport, px float64) Selection {
	if !m.dragging {
		return m.Current()
	}
	m.dragging = false

	origin := m.current.Start
	end := v.PixelToTime(px)
	if math.Abs(end-origin)/v.MsPerPixel < m.clickThresholdPx {
		end = origin
	}
	m.set(Range(origin, end))
	return m.Current()
}

// SetRange replaces the selection with an externally supplied range
func (m *Machine) SetRange(startMs, endMs float64) {
	m.dragging = false
	m.set(Range(startMs, endMs))
}

// ToggleIDs selects the given interval ids, or clears when they are already
// the whole selection. An empty set clears.
func (m *Machine) ToggleIDs(ids []string) {
	m.dragging = false
	next := IDSet(ids)
	if len(next.IDs) == 0 || (m.current.Kind == KindIDSet && equalIDs(m.current.IDs, next.IDs)) {
		m.set(None)
		return
	}
	m.set(next)
}

// Clear returns to None from any state
func (m *Machine) Clear() {
	m.dragging = false
	m.set(None)
}

// Normalized returns the ordered time span of the selection, or nil for None.
// Id selections resolve to the span of their intervals.
func (m *Machine) Normalized() *model.TimeRange {
	switch m.current.Kind {
	case KindRange:
		r, _ := m.current.TimeRange()
		return &r
	case KindIDSet:
		if m.resolve == nil {
			return nil
		}
		if r, ok := m.resolve(m.current.IDs); ok {
			return &r
		}
	}
	return nil
}

func (m *Machine) set(next Selection) {
	m.current = next
	if m.onChange != nil {
		m.onChange(m.Normalized())
	}
}

func normalizeIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := append([]string(nil), ids...)
	sort.Strings(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
