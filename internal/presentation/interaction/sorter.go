package interaction

import (
	"sort"

	"github.com/penwyp/go-activity-monitor/internal/core/model"
)

// SortField represents the field to sort window rows by
type SortField int

const (
	SortByTime SortField = iota
	SortByDuration
	SortByApp
)

func (f SortField) String() string {
	switch f {
	case SortByDuration:
		return "duration"
	case SortByApp:
		return "app"
	default:
		return "time"
	}
}

// SortOrder represents the sort order
type SortOrder int

const (
	SortAscending SortOrder = iota
	SortDescending
)

// WindowSorter orders window rows for display
type WindowSorter struct {
	field SortField
	order SortOrder
}

// NewWindowSorter creates a sorter matching the aggregation order, newest first
func NewWindowSorter() *WindowSorter {
	return &WindowSorter{
		field: SortByTime,
		order: SortDescending,
	}
}

// Field returns the current sort field
func (s *WindowSorter) Field() SortField {
	return s.field
}

// Next cycles to the next field. App sorts ascending, the others descending.
func (s *WindowSorter) Next() {
	s.field = (s.field + 1) % 3
	if s.field == SortByApp {
		s.order = SortAscending
	} else {
		s.order = SortDescending
	}
}

// Sort sorts rows in place; ties keep their incoming order
func (s *WindowSorter) Sort(rows []model.WindowUsage) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		var less, equal bool

		switch s.field {
		case SortByTime:
			less, equal = a.StartSec < b.StartSec, a.StartSec == b.StartSec
		case SortByDuration:
			less, equal = a.Duration < b.Duration, a.Duration == b.Duration
		case SortByApp:
			less, equal = a.AppName < b.AppName, a.AppName == b.AppName
		}

		if equal {
			return false
		}
		if s.order == SortDescending {
			return !less
		}
		return less
	})
}
