package analyzer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storedEvent struct {
	appID int64
	title string
	sec   int64
}

type fakeSink struct {
	apps      map[string]int64
	saveCalls int
	events    []storedEvent
	insertErr error
}

func newFakeSink() *fakeSink {
	return &fakeSink{apps: make(map[string]int64)}
}

func (s *fakeSink) SaveApp(ctx context.Context, name, path string) (int64, error) {
	s.saveCalls++
	if id, ok := s.apps[name]; ok {
		return id, nil
	}
	id := int64(len(s.apps) + 1)
	s.apps[name] = id
	return id, nil
}

func (s *fakeSink) InsertWindowEvent(ctx context.Context, appID int64, title, eventType string, occurredAtSec int64) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.events = append(s.events, storedEvent{appID: appID, title: title, sec: occurredAtSec})
	return nil
}

func writeJSONL(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))
	return path
}

func TestImporterImport(t *testing.T) {
	dir := t.TempDir()
	good := writeJSONL(t, dir, "events.jsonl",
		`{"app_name":"editor","app_path":"/bin/editor","window_title":"main.go","occurred_at":1000}`,
		`{"app_name":"editor","window_title":"util.go","event_type":"focus","occurred_at":1010}`,
		`not json`,
		`{"window_title":"orphan","occurred_at":1020}`,
		`{"app_name":"browser","window_title":"docs","occurred_at":1030}`,
	)
	missing := filepath.Join(dir, "missing.jsonl")

	sink := newFakeSink()
	stats, err := NewImporter(sink, 2).Import(context.Background(), []string{good, missing})
	require.NoError(t, err)

	files, imported, invalid, failures := stats.GetStats()
	assert.Equal(t, int64(2), files)
	assert.Equal(t, int64(3), imported)
	assert.Equal(t, int64(2), invalid)
	assert.Equal(t, int64(1), failures)

	require.Len(t, stats.Failures(), 1)
	assert.Equal(t, missing, stats.Failures()[0].FilePath)

	assert.Equal(t, 2, sink.saveCalls, "apps are saved once per name")
	require.Len(t, sink.events, 3)
	assert.Equal(t, storedEvent{appID: 1, title: "main.go", sec: 1000}, sink.events[0])
	assert.Equal(t, int64(2), sink.events[2].appID)
}

func TestImporterRecordsInsertFailures(t *testing.T) {
	dir := t.TempDir()
	path := writeJSONL(t, dir, "events.jsonl",
		`{"app_name":"editor","window_title":"a","occurred_at":1000}`,
		`{"app_name":"editor","window_title":"b","occurred_at":1001}`,
	)

	sink := newFakeSink()
	sink.insertErr = errors.New("database is locked")
	stats, err := NewImporter(sink, 1).Import(context.Background(), []string{path})
	require.NoError(t, err)

	_, imported, _, failures := stats.GetStats()
	assert.Zero(t, imported)
	assert.Equal(t, int64(2), failures)
}

func TestImporterRequiresFiles(t *testing.T) {
	_, err := NewImporter(newFakeSink(), 0).Import(context.Background(), nil)
	assert.Error(t, err)
}

func TestImporterStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := writeJSONL(t, dir, "events.jsonl", `{"app_name":"editor","occurred_at":1000}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewImporter(newFakeSink(), 1).Import(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImportStatsConcurrentAccess(t *testing.T) {
	stats := NewImportStats()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats.IncrementTotal()
			stats.AddImported(2)
			stats.AddInvalid(1)
			stats.IncrementFailure("f.jsonl", errors.New("boom"))
		}()
	}
	wg.Wait()

	files, imported, invalid, failures := stats.GetStats()
	assert.Equal(t, int64(50), files)
	assert.Equal(t, int64(100), imported)
	assert.Equal(t, int64(50), invalid)
	assert.Equal(t, int64(50), failures)
	assert.Len(t, stats.Failures(), 50)

	// logging must not panic on populated stats
	stats.PrintProgress(50)
	stats.PrintFinalStats()
}
