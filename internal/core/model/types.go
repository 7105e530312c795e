package model

import (
	"fmt"
	"hash/fnv"
	"time"
)

// RawEvent is a focus change recorded by the collector. Events are immutable once observed.
type RawEvent struct {
	AppID         int64  `json:"appId"`
	AppName       string `json:"appName"`
	WindowTitle   string `json:"windowTitle"`
	EventType     string `json:"eventType"`
	OccurredAtSec int64  `json:"occurredAtSec"`
}

// EventKey identifies a unique RawEvent
type EventKey struct {
	AppID         int64
	WindowTitle   string
	OccurredAtSec int64
}

// Key returns the dedup key of the event
func (e RawEvent) Key() EventKey {
	return EventKey{AppID: e.AppID, WindowTitle: e.WindowTitle, OccurredAtSec: e.OccurredAtSec}
}

// FetchOrder chooses which end of a window a row-limited fetch keeps
type FetchOrder int

const (
	// OldestFirst keeps the earliest rows of the window
	OldestFirst FetchOrder = iota
	// NewestFirst keeps the latest rows of the window
	NewestFirst
)

func (o FetchOrder) String() string {
	if o == NewestFirst {
		return "newest-first"
	}
	return "oldest-first"
}

// ID derives a stable interval identifier from the dedup key, so ids survive
// backfills that shift positions in the cache.
func (k EventKey) ID() string {
	h := fnv.New32a()
	h.Write([]byte(k.WindowTitle))
	return fmt.Sprintf("%d-%d-%08x", k.OccurredAtSec, k.AppID, h.Sum32())
}

// Interval is a derived span during which one app/window held focus
type Interval struct {
	ID          string `json:"id"`
	AppID       int64  `json:"appId"`
	AppName     string `json:"appName"`
	WindowTitle string `json:"windowTitle"`
	StartSec    int64  `json:"startSec"`
	EndSec      int64  `json:"endSec"`
}

// Duration returns the length of the interval
func (i Interval) Duration() time.Duration {
	return time.Duration(i.EndSec-i.StartSec) * time.Second
}

// StartMs returns the interval start in epoch milliseconds
func (i Interval) StartMs() float64 { return float64(i.StartSec) * 1000 }

// EndMs returns the interval end in epoch milliseconds
func (i Interval) EndMs() float64 { return float64(i.EndSec) * 1000 }

// Tick is one axis step; NextMs is always greater than Ms
type Tick struct {
	Ms           float64   `json:"ms"`
	NextMs       float64   `json:"nextMs"`
	Label        string    `json:"label"`
	Subdivisions []float64 `json:"subdivisions,omitempty"`
}

// TimeRange is a normalized [StartMs, EndMs] span
type TimeRange struct {
	StartMs float64 `json:"startMs"`
	EndMs   float64 `json:"endMs"`
}

// IsPoint reports whether the range has zero length
func (r TimeRange) IsPoint() bool {
	return r.StartMs == r.EndMs
}

// AppUsage is the aggregate active time of one application within a scope
type AppUsage struct {
	AppID    int64         `json:"appId"`
	AppName  string        `json:"appName"`
	Duration time.Duration `json:"duration"`
	Percent  float64       `json:"percent"`
	// IntervalIDs lists the intervals contributing to this app, for row selection.
	IntervalIDs []string `json:"intervalIds"`
}

// WindowUsage is one interval within a scope, with its clipped duration
type WindowUsage struct {
	IntervalID  string        `json:"intervalId"`
	AppID       int64         `json:"appId"`
	AppName     string        `json:"appName"`
	WindowTitle string        `json:"windowTitle"`
	StartSec    int64         `json:"startSec"`
	EndSec      int64         `json:"endSec"`
	Duration    time.Duration `json:"duration"`
	Percent     float64       `json:"percent"`
}

// Screenshot is the image nearest to a requested instant
type Screenshot struct {
	ID           int64  `json:"id"`
	AppID        int64  `json:"appId"`
	CreatedAtSec int64  `json:"createdAtSec"`
	PNG          []byte `json:"-"`
}
