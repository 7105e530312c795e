package monitoring

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWatcherReportsDatabaseWrites(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "activity.db")
	require.NoError(t, os.WriteFile(db, nil, 0o644))

	fw, err := NewFileWatcher([]string{db})
	require.NoError(t, err)
	defer fw.Close()

	require.NoError(t, os.WriteFile(db+"-wal", []byte("wal"), 0o644))

	select {
	case ev := <-fw.Events():
		assert.Equal(t, db+"-wal", ev.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("no event for WAL write")
	}
}

func TestFileWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "activity.db")

	fw, err := NewFileWatcher([]string{db})
	require.NoError(t, err)
	defer fw.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case ev := <-fw.Events():
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFileWatcherMissingDirectory(t *testing.T) {
	_, err := NewFileWatcher([]string{filepath.Join(t.TempDir(), "missing", "activity.db")})
	assert.Error(t, err)
}

func TestMatches(t *testing.T) {
	fw := &FileWatcher{files: map[string]struct{}{"/data/activity.db": {}}}
	assert.True(t, fw.matches("/data/activity.db"))
	assert.True(t, fw.matches("/data/activity.db-wal"))
	assert.True(t, fw.matches("/data/activity.db-journal"))
	assert.False(t, fw.matches("/data/activity.db-shm"))
	assert.False(t, fw.matches("/data/other.db"))
}
