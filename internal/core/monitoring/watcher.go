package monitoring

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/penwyp/go-activity-monitor/internal/util"
)

// FileEvent reports a write to a watched database file
type FileEvent struct {
	Path      string
	Operation string
}

// FileWatcher watches database files and reports writes to them, including
// writes to their SQLite -wal and -journal companions.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]struct{}
	events  chan FileEvent
	done    chan struct{}
}

// NewFileWatcher watches the directories holding the given files
func NewFileWatcher(files []string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &FileWatcher{
		watcher: watcher,
		files:   make(map[string]struct{}, len(files)),
		events:  make(chan FileEvent, 100),
		done:    make(chan struct{}),
	}

	dirs := make(map[string]struct{})
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		fw.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	for dir := range dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			watcher.Close()
			if err == nil {
				err = os.ErrNotExist
			}
			return nil, err
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	go fw.processEvents()

	return fw, nil
}

// matches reports whether name is a watched file or one of its companions
func (fw *FileWatcher) matches(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	abs = strings.TrimSuffix(strings.TrimSuffix(abs, "-wal"), "-journal")
	_, ok := fw.files[abs]
	return ok
}

func (fw *FileWatcher) processEvents() {
	defer close(fw.done)
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !fw.matches(event.Name) {
				continue
			}

			// Coalesce bursts: a full buffer already guarantees a refresh
			select {
			case fw.events <- FileEvent{Path: event.Name, Operation: event.Op.String()}:
			default:
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			util.LogError("File monitoring error: " + err.Error())
		}
	}
}

// Events returns the change notification channel
func (fw *FileWatcher) Events() <-chan FileEvent {
	return fw.events
}

// Close stops watching
func (fw *FileWatcher) Close() error {
	err := fw.watcher.Close()
	<-fw.done
	return err
}
