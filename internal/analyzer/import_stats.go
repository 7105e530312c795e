package analyzer

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/penwyp/go-activity-monitor/internal/util"
)

// ImportStats holds counters for an import run
type ImportStats struct {
	totalFiles int64
	imported   int64
	invalid    int64
	failures   int64
	mu         sync.Mutex
	failed     []FailureDetail
}

// FailureDetail records a file or record that could not be imported
type FailureDetail struct {
	FilePath string
	Err      error
}

// NewImportStats creates a new ImportStats instance
func NewImportStats() *ImportStats {
	return &ImportStats{
		failed: make([]FailureDetail, 0),
	}
}

// IncrementTotal increases the file count
func (s *ImportStats) IncrementTotal() {
	atomic.AddInt64(&s.totalFiles, 1)
}

// AddImported adds n stored events
func (s *ImportStats) AddImported(n int) {
	atomic.AddInt64(&s.imported, int64(n))
}

// AddInvalid adds n skipped lines
func (s *ImportStats) AddInvalid(n int) {
	atomic.AddInt64(&s.invalid, int64(n))
}

// IncrementFailure counts a failure and records its detail
func (s *ImportStats) IncrementFailure(filePath string, err error) {
	atomic.AddInt64(&s.failures, 1)

	s.mu.Lock()
	s.failed = append(s.failed, FailureDetail{FilePath: filePath, Err: err})
	s.mu.Unlock()
}

// GetStats returns the current counters
func (s *ImportStats) GetStats() (files, imported, invalid, failures int64) {
	return atomic.LoadInt64(&s.totalFiles),
		atomic.LoadInt64(&s.imported),
		atomic.LoadInt64(&s.invalid),
		atomic.LoadInt64(&s.failures)
}

// Failures returns a copy of the recorded failures
func (s *ImportStats) Failures() []FailureDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FailureDetail, len(s.failed))
	copy(out, s.failed)
	return out
}

// PrintProgress logs the import progress
func (s *ImportStats) PrintProgress(processed int64) {
	files, imported, invalid, failures := s.GetStats()
	util.LogInfo(fmt.Sprintf("Import progress: processed %d/%d files, %d events imported (%d invalid lines, %d failures)",
		processed, files, imported, invalid, failures))
}

// PrintFinalStats logs the totals and every failure
func (s *ImportStats) PrintFinalStats() {
	files, imported, invalid, failures := s.GetStats()

	util.LogInfo(fmt.Sprintf("Import complete: %d files, %d events imported, %d invalid lines, %d failures",
		files, imported, invalid, failures))

	for _, detail := range s.Failures() {
		util.LogWarn(fmt.Sprintf("  %s: %v", detail.FilePath, detail.Err))
	}
}
