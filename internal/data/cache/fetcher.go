package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/penwyp/go-activity-monitor/internal/core/constants"
	"github.com/penwyp/go-activity-monitor/internal/core/model"
	"github.com/penwyp/go-activity-monitor/internal/util"
)

// EventSource supplies raw events whose occurrence falls within
// [startMs/1000, endMs/1000]. When more than limit rows match, order names
// the end of the window whose rows are returned.
type EventSource interface {
	FetchWindowEvents(ctx context.Context, startMs, endMs int64, limit int, order model.FetchOrder) ([]model.RawEvent, error)
}

// FetchResult describes a fetch once it has been merged
type FetchResult struct {
	Request FetchRequest
	Rows    int
	Added   int
	// Truncated is set when the source hit the row limit, so part of the
	// requested window is still unfetched
	Truncated bool
}

// MergeFunc is called after a fetch has been merged into the cache
type MergeFunc func(res FetchResult)

// Fetcher plans fetches against an EventCache and merges their results.
// Fetches run in the background and may overlap; identical requests already
// in flight are not issued twice.
type Fetcher struct {
	cache  *EventCache
	source EventSource
	limit  int

	mu       sync.Mutex
	inflight map[FetchRequest]struct{}
	onMerged MergeFunc
	wg       sync.WaitGroup
}

// NewFetcher creates a fetcher. A non-positive limit uses the default row cap.
func NewFetcher(cache *EventCache, source EventSource, limit int) *Fetcher {
	if limit <= 0 {
		limit = constants.DefaultFetchLimit
	}
	return &Fetcher{
		cache:    cache,
		source:   source,
		limit:    limit,
		inflight: make(map[FetchRequest]struct{}),
	}
}

// OnMerged registers the completion callback
func (f *Fetcher) OnMerged(fn MergeFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onMerged = fn
}

// Fetch runs req synchronously. Source errors are logged and count as zero rows.
// A truncated result keeps the rows adjacent to the cached window and drops
// its partial boundary second, so the cache stays contiguous and the rest of
// the window is planned again.
func (f *Fetcher) Fetch(ctx context.Context, req FetchRequest) int {
	start := time.Now()
	order := req.Order()
	events, err := f.source.FetchWindowEvents(ctx, req.StartMs, req.EndMs, f.limit, order)
	if err != nil {
		util.LogWarn(fmt.Sprintf("Fetch %s [%d, %d] failed: %v", req.Kind, req.StartMs, req.EndMs, err))
		events = nil
	}

	res := FetchResult{Request: req, Rows: len(events)}
	if len(events) >= f.limit {
		res.Truncated = true
		events = trimBoundarySecond(events, order)
		util.LogWarn(fmt.Sprintf("Fetch %s [%d, %d] hit the row limit %d, keeping %d %s rows",
			req.Kind, req.StartMs, req.EndMs, f.limit, len(events), order))
	}

	res.Added = f.cache.Merge(events)
	util.LogDebug(fmt.Sprintf("Fetch %s [%d, %d]: %d rows, %d new, took %v",
		req.Kind, req.StartMs, req.EndMs, res.Rows, res.Added, time.Since(start)))

	f.notify(res)
	return res.Added
}

// trimBoundarySecond drops the rows of the second furthest from the cached
// window. Rows sharing that second may have been cut by the limit. When every
// row shares one second they are all kept.
func trimBoundarySecond(events []model.RawEvent, order model.FetchOrder) []model.RawEvent {
	if len(events) == 0 {
		return events
	}
	boundary := events[0].OccurredAtSec
	for _, e := range events[1:] {
		if order == model.NewestFirst {
			boundary = min(boundary, e.OccurredAtSec)
		} else {
			boundary = max(boundary, e.OccurredAtSec)
		}
	}

	kept := make([]model.RawEvent, 0, len(events))
	for _, e := range events {
		if e.OccurredAtSec != boundary {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		return events
	}
	return kept
}

func (f *Fetcher) notify(res FetchResult) {
	f.mu.Lock()
	fn := f.onMerged
	f.mu.Unlock()
	if fn != nil {
		fn(res)
	}
}

// Ensure plans the fetch needed for the buffered range and starts it in the
// background. It returns the planned request, or false when the range is
// covered or the same request is already running.
func (f *Fetcher) Ensure(ctx context.Context, bufStartMs, bufEndMs float64) (FetchRequest, bool) {
	req, ok := f.cache.Plan(bufStartMs, bufEndMs)
	if !ok {
		return FetchRequest{}, false
	}

	f.mu.Lock()
	if _, running := f.inflight[req]; running {
		f.mu.Unlock()
		return FetchRequest{}, false
	}
	f.inflight[req] = struct{}{}
	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()
		defer func() {
			f.mu.Lock()
			delete(f.inflight, req)
			f.mu.Unlock()
		}()
		f.Fetch(ctx, req)
	}()
	return req, true
}

// FetchAll pages through [startMs, endMs] synchronously until a page comes
// back short of the row limit. Each page resumes at the second of the last
// row, so rows sharing that second are refetched and deduplicated by the cache.
func (f *Fetcher) FetchAll(ctx context.Context, startMs, endMs int64) int {
	total, rows := 0, 0
	cursor := startMs
	for cursor <= endMs && ctx.Err() == nil {
		events, err := f.source.FetchWindowEvents(ctx, cursor, endMs, f.limit, model.OldestFirst)
		if err != nil {
			util.LogWarn(fmt.Sprintf("Paged fetch [%d, %d] failed: %v", cursor, endMs, err))
			break
		}
		rows += len(events)
		total += f.cache.Merge(events)
		if len(events) < f.limit {
			break
		}

		next := events[len(events)-1].OccurredAtSec * 1000
		if next <= cursor {
			util.LogWarn(fmt.Sprintf("Paged fetch stalled at %d: more than %d rows share one second", cursor, f.limit))
			break
		}
		cursor = next
	}

	f.notify(FetchResult{Request: FetchRequest{Kind: FetchInitial, StartMs: startMs, EndMs: endMs}, Rows: rows, Added: total})
	return total
}

// Wait blocks until all background fetches have completed
func (f *Fetcher) Wait() {
	f.wg.Wait()
}

// InFlight returns the number of background fetches still running
func (f *Fetcher) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inflight)
}
