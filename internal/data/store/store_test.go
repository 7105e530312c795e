package store

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/penwyp/go-activity-monitor/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore creates a migrated in-memory store
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *SQLiteStore) (editor, browser int64) {
	t.Helper()
	ctx := context.Background()

	editor, err := s.SaveApp(ctx, "editor", "/usr/bin/editor")
	require.NoError(t, err)
	browser, err = s.SaveApp(ctx, "browser", "/usr/bin/browser")
	require.NoError(t, err)

	require.NoError(t, s.InsertWindowEvent(ctx, editor, "main.go", "EVENT_SYSTEM_FOREGROUND", 1000))
	require.NoError(t, s.InsertWindowEvent(ctx, browser, "docs", "EVENT_SYSTEM_FOREGROUND", 1500))
	require.NoError(t, s.InsertWindowEvent(ctx, editor, "main.go", "EVENT_SYSTEM_FOREGROUND", 1800))
	return editor, browser
}

func TestMigrationsIdempotent(t *testing.T) {
	s := openTestStore(t)
	runner := NewMigrationRunner(s.db)

	require.NoError(t, runner.Run(context.Background()))
	version, err := runner.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "activity.db")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.FileExists(t, path)
}

func TestSaveAppGetOrCreate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.SaveApp(ctx, "editor", "/a")
	require.NoError(t, err)
	again, err := s.SaveApp(ctx, "editor", "/b")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	var path string
	require.NoError(t, s.db.QueryRow("SELECT path FROM app WHERE id = ?", id).Scan(&path))
	assert.Equal(t, "/b", path)
}

func TestFetchWindowEvents(t *testing.T) {
	s := openTestStore(t)
	editor, browser := seed(t, s)
	ctx := context.Background()

	t.Run("inclusive second range", func(t *testing.T) {
		events, err := s.FetchWindowEvents(ctx, 1_000_000, 1_500_999, 0, model.OldestFirst)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, editor, events[0].AppID)
		assert.Equal(t, "editor", events[0].AppName)
		assert.Equal(t, "main.go", events[0].WindowTitle)
		assert.Equal(t, int64(1000), events[0].OccurredAtSec)
		assert.Equal(t, browser, events[1].AppID)
	})

	t.Run("limit", func(t *testing.T) {
		events, err := s.FetchWindowEvents(ctx, 0, 10_000_000, 1, model.OldestFirst)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, int64(1000), events[0].OccurredAtSec)
	})

	t.Run("newest first keeps the latest rows", func(t *testing.T) {
		events, err := s.FetchWindowEvents(ctx, 0, 10_000_000, 2, model.NewestFirst)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, int64(1800), events[0].OccurredAtSec)
		assert.Equal(t, int64(1500), events[1].OccurredAtSec)
	})

	t.Run("empty range", func(t *testing.T) {
		events, err := s.FetchWindowEvents(ctx, 2_000_000, 3_000_000, 10, model.NewestFirst)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestGetNearestScreenshot(t *testing.T) {
	s := openTestStore(t)
	editor, browser := seed(t, s)
	ctx := context.Background()

	pngBytes := encodePNG(t)
	require.NoError(t, s.SaveScreenshot(ctx, editor, pngBytes, 1000))
	require.NoError(t, s.SaveScreenshot(ctx, browser, pngBytes, 1490))
	require.NoError(t, s.SaveScreenshot(ctx, editor, pngBytes, 1800))

	shot, err := s.GetNearestScreenshot(ctx, 1_520_000, nil)
	require.NoError(t, err)
	require.NotNil(t, shot)
	assert.Equal(t, int64(1490), shot.CreatedAtSec)
	assert.Equal(t, browser, shot.AppID)
	assert.Equal(t, pngBytes, shot.PNG)

	shot, err = s.GetNearestScreenshot(ctx, 1_520_000, &editor)
	require.NoError(t, err)
	require.NotNil(t, shot)
	assert.Equal(t, int64(1800), shot.CreatedAtSec)

	missing := int64(999)
	shot, err = s.GetNearestScreenshot(ctx, 1_520_000, &missing)
	require.NoError(t, err)
	assert.Nil(t, shot)
}

func TestGetNearestScreenshotReencodesJPEG(t *testing.T) {
	s := openTestStore(t)
	editor, _ := seed(t, s)
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), nil))
	require.NoError(t, s.SaveScreenshot(ctx, editor, buf.Bytes(), 1000))

	shot, err := s.GetNearestScreenshot(ctx, 1_000_000, nil)
	require.NoError(t, err)
	require.NotNil(t, shot)
	assert.True(t, bytes.HasPrefix(shot.PNG, pngSignature))

	_, err = png.Decode(bytes.NewReader(shot.PNG))
	assert.NoError(t, err)
}

func TestNormalizePNGKeepsUndecodable(t *testing.T) {
	garbage := []byte("not an image")
	assert.Equal(t, garbage, NormalizePNG(garbage))
	assert.Nil(t, NormalizePNG(nil))
}

func TestRecordClose(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.RecordClose(ctx, 1900))
	require.NoError(t, s.RecordClose(ctx, 1950))

	events, err := s.FetchWindowEvents(ctx, 1_900_000, 1_950_000, 0, model.OldestFirst)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, SystemAppName, events[0].AppName)
	assert.Equal(t, CloseEventTitle, events[0].WindowTitle)
	assert.Equal(t, CloseEventType, events[0].EventType)
	assert.Equal(t, events[0].AppID, events[1].AppID)
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, *st)

	seed(t, s)
	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Apps)
	assert.Equal(t, 3, st.Events)
	assert.Equal(t, int64(1000), st.FirstSec)
	assert.Equal(t, int64(1800), st.LastSec)
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 90, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}
