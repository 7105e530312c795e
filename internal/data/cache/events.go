package cache

import (
	"math"
	"sort"
	"sync"

	"github.com/penwyp/go-activity-monitor/internal/core/model"
)

// EventCache is an ordered, duplicate-free store of raw events with the
// bounds of the time window they cover. It only grows.
type EventCache struct {
	mu     sync.RWMutex
	events []model.RawEvent
	keys   map[model.EventKey]struct{}

	minSec    int64
	maxSec    int64
	hasBounds bool
}

// NewEventCache creates an empty cache
func NewEventCache() *EventCache {
	return &EventCache{keys: make(map[model.EventKey]struct{})}
}

// Merge adds the events not already cached and returns how many were added.
// Merging is idempotent and commutative: the resulting order does not depend
// on batch arrival order.
func (c *EventCache) Merge(batch []model.RawEvent) int {
	if len(batch) == 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0
	for _, e := range batch {
		key := e.Key()
		if _, exists := c.keys[key]; exists {
			continue
		}
		c.keys[key] = struct{}{}
		c.events = append(c.events, e)
		added++
	}
	if added == 0 {
		return 0
	}

	sort.SliceStable(c.events, func(i, j int) bool {
		return lessEvent(c.events[i], c.events[j])
	})

	first, last := c.events[0].OccurredAtSec, c.events[len(c.events)-1].OccurredAtSec
	if !c.hasBounds || first < c.minSec {
		c.minSec = first
	}
	if !c.hasBounds || last > c.maxSec {
		c.maxSec = last
	}
	c.hasBounds = true

	return added
}

// lessEvent orders by time, then by the rest of the dedup key so events sharing
// a second sort the same way regardless of merge order
func lessEvent(a, b model.RawEvent) bool {
	if a.OccurredAtSec != b.OccurredAtSec {
		return a.OccurredAtSec < b.OccurredAtSec
	}
	if a.AppID != b.AppID {
		return a.AppID < b.AppID
	}
	return a.WindowTitle < b.WindowTitle
}

// Events returns a snapshot of the cached events in order
func (c *EventCache) Events() []model.RawEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.RawEvent, len(c.events))
	copy(out, c.events)
	return out
}

// Len returns the number of cached events
func (c *EventCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}

// Bounds returns the cached coverage in seconds; ok is false while empty
func (c *EventCache) Bounds() (minSec, maxSec int64, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.minSec, c.maxSec, c.hasBounds
}

// FetchKind names the reason a fetch was planned
type FetchKind int

const (
	FetchInitial FetchKind = iota
	FetchBackfill
	FetchForward
)

func (k FetchKind) String() string {
	switch k {
	case FetchBackfill:
		return "backfill"
	case FetchForward:
		return "forward"
	default:
		return "initial"
	}
}

// FetchRequest is a planned fetch over [StartMs, EndMs]
type FetchRequest struct {
	Kind    FetchKind
	StartMs int64
	EndMs   int64
}

// Order is the end of the window a row-limited fetch keeps: the end that
// touches the cached window, or for an initial fetch the visible right edge
func (r FetchRequest) Order() model.FetchOrder {
	if r.Kind == FetchForward {
		return model.OldestFirst
	}
	return model.NewestFirst
}

// Plan decides which single fetch, if any, is needed to cover the buffered
// range [bufStartMs, bufEndMs]. Covered ranges are never planned again.
func (c *EventCache) Plan(bufStartMs, bufEndMs float64) (FetchRequest, bool) {
	if bufEndMs < bufStartMs {
		bufStartMs, bufEndMs = bufEndMs, bufStartMs
	}
	start := int64(math.Floor(bufStartMs))
	end := int64(math.Ceil(bufEndMs))

	minSec, maxSec, ok := c.Bounds()
	if !ok {
		return FetchRequest{Kind: FetchInitial, StartMs: start, EndMs: end}, true
	}

	if minMs := minSec * 1000; start < minMs {
		return FetchRequest{Kind: FetchBackfill, StartMs: start, EndMs: min(end, minMs-1)}, true
	}
	if forwardMs := (maxSec + 1) * 1000; end >= forwardMs {
		return FetchRequest{Kind: FetchForward, StartMs: forwardMs, EndMs: end}, true
	}
	return FetchRequest{}, false
}
