package viewer

import (
	"sync"
	"time"

	"github.com/penwyp/go-activity-monitor/internal/core/model"
	"github.com/penwyp/go-activity-monitor/internal/data/aggregator"
)

// Preview is the screenshot nearest to the hovered instant
type Preview struct {
	AtMs       float64           `json:"atMs"`
	AppID      *int64            `json:"appId,omitempty"`
	Screenshot *model.Screenshot `json:"screenshot,omitempty"`
}

// StateManager holds the derived view state in a thread-safe manner.
// Snapshots are replaced whole, so readers never see a partial recompute.
type StateManager struct {
	mu sync.RWMutex

	intervals  []model.Interval
	aggregated aggregator.AggregatedData
	preview    *Preview

	// Timestamp of the last recompute
	lastUpdate time.Time
}

// NewStateManager creates an empty StateManager
func NewStateManager() *StateManager {
	return &StateManager{
		aggregated: aggregator.AggregatedData{Apps: []model.AppUsage{}, Windows: []model.WindowUsage{}},
	}
}

// GetIntervals returns a copy of the current interval list
func (sm *StateManager) GetIntervals() []model.Interval {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	intervals := make([]model.Interval, len(sm.intervals))
	copy(intervals, sm.intervals)
	return intervals
}

// GetAggregated returns the current aggregation result
func (sm *StateManager) GetAggregated() aggregator.AggregatedData {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.aggregated
}

// SetDerived replaces intervals and aggregates together
func (sm *StateManager) SetDerived(intervals []model.Interval, aggregated aggregator.AggregatedData, at time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.intervals = intervals
	sm.aggregated = aggregated
	sm.lastUpdate = at
}

// GetPreview returns the latest hover preview, or nil
func (sm *StateManager) GetPreview() *Preview {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.preview
}

// SetPreview stores the latest hover preview
func (sm *StateManager) SetPreview(p *Preview) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.preview = p
}

// GetLastUpdate returns when the derived state was last recomputed
func (sm *StateManager) GetLastUpdate() time.Time {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.lastUpdate
}
