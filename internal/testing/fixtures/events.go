package fixtures

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-activity-monitor/internal/core/model"
)

// EventLine is one line of a window event export
type EventLine struct {
	AppName     string `json:"app_name"`
	AppPath     string `json:"app_path,omitempty"`
	WindowTitle string `json:"window_title"`
	EventType   string `json:"event_type,omitempty"`
	OccurredAt  int64  `json:"occurred_at"`
}

// Focus is an app/window pair the generator cycles through
type Focus struct {
	App   string
	Title string
}

// TestDataGenerator writes export files below a base directory
type TestDataGenerator struct {
	baseDir string
}

func NewTestDataGenerator(baseDir string) *TestDataGenerator {
	return &TestDataGenerator{baseDir: baseDir}
}

func (g *TestDataGenerator) GetBaseDir() string {
	return g.baseDir
}

// GenerateSession writes n focus changes spaced by step, cycling through
// focus, and returns the file path
func (g *TestDataGenerator) GenerateSession(name string, start time.Time, step time.Duration, n int, focus []Focus) (string, error) {
	events := make([]EventLine, 0, n)
	for i := 0; i < n; i++ {
		f := focus[i%len(focus)]
		events = append(events, EventLine{
			AppName:     f.App,
			AppPath:     "/usr/bin/" + f.App,
			WindowTitle: f.Title,
			OccurredAt:  start.Add(time.Duration(i) * step).Unix(),
		})
	}
	return g.WriteEvents(name, events)
}

// WriteEvents writes events to name, creating parent directories
func (g *TestDataGenerator) WriteEvents(name string, events []EventLine) (string, error) {
	var buf bytes.Buffer
	for _, e := range events {
		b, err := sonic.Marshal(e)
		if err != nil {
			return "", err
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}
	return g.write(name, buf.Bytes())
}

// WriteRaw writes lines verbatim, for malformed input
func (g *TestDataGenerator) WriteRaw(name string, lines ...string) (string, error) {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	return g.write(name, buf.Bytes())
}

func (g *TestDataGenerator) write(name string, data []byte) (string, error) {
	path := filepath.Join(g.baseDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// Window returns the events whose second falls within [startMs/1000, endMs/1000],
// keeping at most limit rows from the end order names, in that order
func Window(events []model.RawEvent, startMs, endMs int64, limit int, order model.FetchOrder) []model.RawEvent {
	var out []model.RawEvent
	for _, e := range events {
		if e.OccurredAtSec >= startMs/1000 && e.OccurredAtSec <= endMs/1000 {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if order == model.NewestFirst {
			return out[i].OccurredAtSec > out[j].OccurredAtSec
		}
		return out[i].OccurredAtSec < out[j].OccurredAtSec
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
