package viewer

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/penwyp/go-activity-monitor/internal/core/constants"
	"github.com/penwyp/go-activity-monitor/internal/core/model"
	"github.com/penwyp/go-activity-monitor/internal/core/selection"
	"github.com/penwyp/go-activity-monitor/internal/core/ticks"
	"github.com/penwyp/go-activity-monitor/internal/core/viewport"
	"github.com/penwyp/go-activity-monitor/internal/data/aggregator"
	"github.com/penwyp/go-activity-monitor/internal/data/cache"
	"github.com/penwyp/go-activity-monitor/internal/util"
)

// Source is the data service a session reads from
type Source interface {
	cache.EventSource
	GetNearestScreenshot(ctx context.Context, tsMs int64, appID *int64) (*model.Screenshot, error)
}

// ViewportListener receives the visible range after a debounced viewport change
type ViewportListener func(startMs, endMs float64)

// SelectionListener receives the normalized selection range, nil for none
type SelectionListener func(r *model.TimeRange)

// Session owns the viewport, event cache and selection of one viewer and
// keeps the derived intervals and aggregates consistent with them. All state
// mutation goes through Session methods.
type Session struct {
	ctx  context.Context
	opts Options

	source  Source
	cache   *cache.EventCache
	fetcher *cache.Fetcher
	ticks   *ticks.Generator
	state   *StateManager

	// serializes selection read through SetDerived; taken before mu
	deriveMu sync.Mutex

	mu        sync.Mutex
	view      viewport.Viewport
	selection *selection.Machine
	// selection transitions queued while mu is held
	pendingSelection []*model.TimeRange

	viewportDebounce *util.Debouncer
	hoverDebounce    *util.Debouncer

	listenerMu         sync.RWMutex
	viewportListeners  []ViewportListener
	selectionListeners []SelectionListener
}

// NewSession creates a session over source. Nothing is fetched until Start.
func NewSession(ctx context.Context, source Source, opts Options) (*Session, error) {
	if source == nil {
		return nil, fmt.Errorf("session source is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session options: %w", err)
	}

	s := &Session{
		ctx:              ctx,
		opts:             opts,
		source:           source,
		cache:            cache.NewEventCache(),
		ticks:            ticks.NewGenerator(opts.PixelsPerTick, opts.Location),
		state:            NewStateManager(),
		viewportDebounce: util.NewDebouncer(opts.ViewportDebounce),
		hoverDebounce:    util.NewDebouncer(opts.HoverDebounce),
	}

	nowMs := s.nowMs()
	spanMs := float64(opts.Span.Milliseconds())
	if opts.GlueToNow {
		s.view = viewport.NewGlued(nowMs, spanMs, opts.WidthPx)
	} else {
		s.view = viewport.New(nowMs-spanMs, nowMs, opts.WidthPx)
	}

	s.selection = selection.NewMachine(opts.ClickThresholdPx, func(ids []string) (model.TimeRange, bool) {
		return aggregator.Span(s.state.GetIntervals(), ids)
	})
	s.selection.OnChange(func(r *model.TimeRange) {
		s.pendingSelection = append(s.pendingSelection, r)
	})

	s.fetcher = cache.NewFetcher(s.cache, source, opts.FetchLimit)
	s.fetcher.OnMerged(func(res cache.FetchResult) {
		s.recompute()
		if res.Truncated {
			s.RequestCoverage()
		}
	})

	return s, nil
}

// Start fires the initial viewport change immediately, without debounce
func (s *Session) Start() {
	s.viewportDebounce.Trigger(s.viewportChanged)
	s.viewportDebounce.Flush()
}

// Run drives glue-to-now at the glue tick cadence until ctx is done
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(constants.GlueTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Close stops pending debounced work and waits for in-flight fetches
func (s *Session) Close() {
	s.viewportDebounce.Stop()
	s.hoverDebounce.Stop()
	s.fetcher.Wait()
}

func (s *Session) nowMs() float64 {
	return float64(s.opts.Now().UnixMilli())
}

// OnViewportChange registers a listener for debounced viewport changes
func (s *Session) OnViewportChange(fn ViewportListener) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.viewportListeners = append(s.viewportListeners, fn)
}

// OnSelectionChange registers a listener for selection transitions
func (s *Session) OnSelectionChange(fn SelectionListener) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.selectionListeners = append(s.selectionListeners, fn)
}

// --- Viewport ---

// updateView applies fn to the viewport and schedules the debounced change
func (s *Session) updateView(fn func(v viewport.Viewport, nowMs float64) viewport.Viewport) viewport.Viewport {
	s.mu.Lock()
	prev := s.view
	s.view = fn(s.view, s.nowMs())
	next := s.view
	s.mu.Unlock()

	if next != prev {
		s.viewportDebounce.Trigger(s.viewportChanged)
	}
	return next
}

// Pan moves the visible window by dx pixels; ignored while glued
func (s *Session) Pan(dx float64) viewport.Viewport {
	return s.updateView(func(v viewport.Viewport, _ float64) viewport.Viewport {
		return v.PanByPixels(dx)
	})
}

// ZoomAt scales the zoom level by factor around pixelX
func (s *Session) ZoomAt(pixelX, factor float64) viewport.Viewport {
	return s.updateView(func(v viewport.Viewport, _ float64) viewport.Viewport {
		return v.ZoomAt(pixelX, factor)
	})
}

// Resize changes the viewport width
func (s *Session) Resize(widthPx int) viewport.Viewport {
	return s.updateView(func(v viewport.Viewport, nowMs float64) viewport.Viewport {
		return v.Resize(widthPx, nowMs)
	})
}

// SetGlueToNow toggles pinning the right edge to now
func (s *Session) SetGlueToNow(glue bool) viewport.Viewport {
	return s.updateView(func(v viewport.Viewport, nowMs float64) viewport.Viewport {
		return v.SetGlueToNow(glue, nowMs)
	})
}

// Navigate shows [startMs, endMs] and releases glue-to-now
func (s *Session) Navigate(startMs, endMs float64) viewport.Viewport {
	return s.updateView(func(v viewport.Viewport, _ float64) viewport.Viewport {
		return v.Show(startMs, endMs)
	})
}

// Tick advances the clock. A glued viewport follows now and the open
// interval is re-derived.
func (s *Session) Tick() viewport.Viewport {
	s.mu.Lock()
	glued := s.view.GlueToNow
	s.mu.Unlock()
	if !glued {
		return s.Viewport()
	}

	v := s.updateView(func(v viewport.Viewport, nowMs float64) viewport.Viewport {
		return v.Tick(nowMs)
	})
	s.recompute()
	return v
}

// viewportChanged is the debounced handler: notify listeners, then make
// sure the buffered range is fetched
func (s *Session) viewportChanged() {
	v := s.Viewport()
	start, end := v.Range()

	s.listenerMu.RLock()
	listeners := append([]ViewportListener(nil), s.viewportListeners...)
	s.listenerMu.RUnlock()
	for _, fn := range listeners {
		fn(start, end)
	}

	s.requestCoverage(v)
}

// RequestCoverage re-runs the fetch decision for the current viewport
func (s *Session) RequestCoverage() {
	s.requestCoverage(s.Viewport())
}

func (s *Session) requestCoverage(v viewport.Viewport) {
	bufStart, bufEnd := v.BufferedRange()
	if req, ok := s.fetcher.Ensure(s.ctx, bufStart, bufEnd); ok {
		util.LogDebug(fmt.Sprintf("Planned %s fetch [%d, %d]", req.Kind, req.StartMs, req.EndMs))
	}
}

// EnsureCoverage synchronously loads every event in the buffered range of
// the current viewport, paging past the row limit
func (s *Session) EnsureCoverage(ctx context.Context) int {
	s.viewportDebounce.Stop()
	s.fetcher.Wait()

	bufStart, bufEnd := s.Viewport().BufferedRange()
	return s.fetcher.FetchAll(ctx, int64(math.Floor(bufStart)), int64(math.Ceil(bufEnd)))
}

// Settle runs any pending viewport change now and waits for its fetches
func (s *Session) Settle() {
	s.viewportDebounce.Flush()
	s.fetcher.Wait()
}

// --- Derived state ---

// recompute rebuilds intervals and aggregates from a cache snapshot and the
// current selection
func (s *Session) recompute() {
	s.deriveMu.Lock()
	defer s.deriveMu.Unlock()
	now := s.opts.Now()

	s.mu.Lock()
	sel := s.selection.Current()
	s.mu.Unlock()

	intervals := aggregator.BuildIntervals(s.cache.Events(), now.Unix())
	aggregated := aggregator.Aggregate(intervals, sel, float64(now.UnixMilli()))
	s.state.SetDerived(intervals, aggregated, now)
}

// reaggregate refreshes aggregates for a new selection without rebuilding intervals
func (s *Session) reaggregate() {
	s.deriveMu.Lock()
	defer s.deriveMu.Unlock()
	now := s.opts.Now()

	s.mu.Lock()
	sel := s.selection.Current()
	s.mu.Unlock()

	intervals := s.state.GetIntervals()
	s.state.SetDerived(intervals, aggregator.Aggregate(intervals, sel, float64(now.UnixMilli())), now)
}

// Viewport returns the current viewport
func (s *Session) Viewport() viewport.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Ticks derives the axis ticks for the current viewport
func (s *Session) Ticks() []model.Tick {
	return s.ticks.Generate(s.Viewport())
}

// TickStep returns the step and zoom label for the current viewport
func (s *Session) TickStep() (int, ticks.ZoomLabel) {
	return s.ticks.Step(s.Viewport())
}

// Intervals returns the display intervals, independent of selection
func (s *Session) Intervals() []model.Interval {
	return s.state.GetIntervals()
}

// Aggregated returns the usage breakdown for the current scope
func (s *Session) Aggregated() aggregator.AggregatedData {
	return s.state.GetAggregated()
}

// AppUsage returns per-app usage for the current scope
func (s *Session) AppUsage() []model.AppUsage {
	return s.state.GetAggregated().Apps
}

// RankedApps returns per-app usage over every cached interval, ignoring the
// selection. Its order does not change when an app is selected.
func (s *Session) RankedApps() []model.AppUsage {
	return aggregator.Aggregate(s.state.GetIntervals(), selection.None, s.nowMs()).Apps
}

// WindowUsage returns per-window rows for the current scope, newest first
func (s *Session) WindowUsage() []model.WindowUsage {
	return s.state.GetAggregated().Windows
}

// CacheBounds returns the cached coverage in seconds
func (s *Session) CacheBounds() (minSec, maxSec int64, ok bool) {
	return s.cache.Bounds()
}

// CachedEvents returns the number of cached events
func (s *Session) CachedEvents() int {
	return s.cache.Len()
}

// Loading reports whether background fetches are still running
func (s *Session) Loading() (bool, string) {
	if n := s.fetcher.InFlight(); n > 0 {
		return true, fmt.Sprintf("Loading activity (%d pending)...", n)
	}
	return false, ""
}

// LastUpdate returns when the derived state was last recomputed
func (s *Session) LastUpdate() time.Time {
	return s.state.GetLastUpdate()
}

// --- Selection ---

// Selection returns the active selection
func (s *Session) Selection() selection.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Current()
}

// SelectionRange returns the normalized selection range, nil for none
func (s *Session) SelectionRange() *model.TimeRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Normalized()
}

// Dragging reports whether a drag selection is in progress
func (s *Session) Dragging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Dragging()
}

// updateSelection applies fn under the lock, then re-aggregates and notifies
func (s *Session) updateSelection(fn func(m *selection.Machine, v viewport.Viewport)) selection.Selection {
	s.mu.Lock()
	fn(s.selection, s.view)
	current := s.selection.Current()
	pending := s.pendingSelection
	s.pendingSelection = nil
	s.mu.Unlock()

	if len(pending) == 0 {
		return current
	}

	s.reaggregate()

	s.listenerMu.RLock()
	listeners := append([]SelectionListener(nil), s.selectionListeners...)
	s.listenerMu.RUnlock()
	for _, r := range pending {
		for _, fn := range listeners {
			fn(r)
		}
	}
	return current
}

// DragStart begins a drag selection at pixel px
func (s *Session) DragStart(px float64) selection.Selection {
	return s.updateSelection(func(m *selection.Machine, v viewport.Viewport) { m.DragStart(v, px) })
}

// DragMove extends the drag selection to pixel px
func (s *Session) DragMove(px float64) selection.Selection {
	return s.updateSelection(func(m *selection.Machine, v viewport.Viewport) { m.DragMove(v, px) })
}

// DragEnd finalizes the drag at pixel px. A click-sized drag becomes a point.
func (s *Session) DragEnd(px float64) selection.Selection {
	return s.updateSelection(func(m *selection.Machine, v viewport.Viewport) { m.DragEnd(v, px) })
}

// SelectRange selects [startMs, endMs]; reversed input is kept and normalized by readers
func (s *Session) SelectRange(startMs, endMs float64) selection.Selection {
	return s.updateSelection(func(m *selection.Machine, _ viewport.Viewport) { m.SetRange(startMs, endMs) })
}

// SelectIDs toggles selection of the given interval ids
func (s *Session) SelectIDs(ids []string) selection.Selection {
	return s.updateSelection(func(m *selection.Machine, _ viewport.Viewport) { m.ToggleIDs(ids) })
}

// SelectApp toggles selection of every interval of appID
func (s *Session) SelectApp(appID int64) selection.Selection {
	return s.SelectIDs(aggregator.IDsForApp(s.state.GetIntervals(), appID))
}

// SelectRow toggles selection of one interval
func (s *Session) SelectRow(intervalID string) selection.Selection {
	return s.SelectIDs([]string{intervalID})
}

// SelectAt selects the interval covering ms. Clicking empty time clears.
func (s *Session) SelectAt(ms float64) selection.Selection {
	iv, ok := aggregator.Covering(s.state.GetIntervals(), ms)
	if !ok {
		return s.ClearSelection()
	}
	return s.SelectRow(iv.ID)
}

// ClearSelection returns to no selection
func (s *Session) ClearSelection() selection.Selection {
	return s.updateSelection(func(m *selection.Machine, _ viewport.Viewport) { m.Clear() })
}

// --- Hover preview ---

// Hover schedules a debounced preview lookup for the time under pixel px
func (s *Session) Hover(px float64) {
	ms := s.Viewport().PixelToTime(px)
	s.hoverDebounce.Trigger(func() { s.LoadPreview(s.ctx, ms) })
}

// LoadPreview fetches the screenshot nearest to ms for the app active then
func (s *Session) LoadPreview(ctx context.Context, ms float64) *Preview {
	preview := &Preview{AtMs: ms}
	if iv, ok := aggregator.Covering(s.state.GetIntervals(), ms); ok {
		appID := iv.AppID
		preview.AppID = &appID
	}

	shot, err := s.source.GetNearestScreenshot(ctx, int64(ms), preview.AppID)
	if err != nil {
		util.LogWarn(fmt.Sprintf("Screenshot lookup at %.0f failed: %v", ms, err))
	}
	preview.Screenshot = shot

	s.state.SetPreview(preview)
	return preview
}

// Preview returns the latest hover preview, or nil
func (s *Session) Preview() *Preview {
	return s.state.GetPreview()
}
