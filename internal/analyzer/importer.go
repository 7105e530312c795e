package analyzer

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/penwyp/go-activity-monitor/internal/data/parser"
	"github.com/penwyp/go-activity-monitor/internal/util"
)

// EventSink is the write side of the event store
type EventSink interface {
	SaveApp(ctx context.Context, name, path string) (int64, error)
	InsertWindowEvent(ctx context.Context, appID int64, title, eventType string, occurredAtSec int64) error
}

// Importer loads JSONL event exports into the store
type Importer struct {
	sink   EventSink
	parser *parser.Parser
	stats  *ImportStats
	apps   map[string]int64
}

// NewImporter creates an importer parsing up to concurrency files at once
func NewImporter(sink EventSink, concurrency int) *Importer {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &Importer{
		sink:   sink,
		parser: parser.NewParser(concurrency),
		stats:  NewImportStats(),
		apps:   make(map[string]int64),
	}
}

// Stats returns the counters of the import
func (im *Importer) Stats() *ImportStats {
	return im.stats
}

// Import parses files concurrently and writes their records sequentially.
// A failing file is counted and skipped.
func (im *Importer) Import(ctx context.Context, files []string) (*ImportStats, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to import")
	}
	start := time.Now()

	var processed int64
	for result := range im.parser.ParseFiles(files) {
		im.stats.IncrementTotal()
		processed++

		if result.Error != nil {
			im.stats.IncrementFailure(result.File, result.Error)
			continue
		}
		im.stats.AddInvalid(result.Invalid)

		for _, rec := range result.Records {
			if err := ctx.Err(); err != nil {
				return im.stats, err
			}
			if err := im.store(ctx, rec); err != nil {
				im.stats.IncrementFailure(result.File, err)
				continue
			}
			im.stats.AddImported(1)
		}

		if processed%10 == 0 {
			im.stats.PrintProgress(processed)
		}
	}

	util.LogDebug(fmt.Sprintf("Import duration: %v", time.Since(start)))
	im.stats.PrintFinalStats()
	return im.stats, nil
}

func (im *Importer) store(ctx context.Context, rec parser.Record) error {
	appID, ok := im.apps[rec.AppName]
	if !ok {
		id, err := im.sink.SaveApp(ctx, rec.AppName, rec.AppPath)
		if err != nil {
			return fmt.Errorf("save app %s: %w", rec.AppName, err)
		}
		im.apps[rec.AppName] = id
		appID = id
	}

	if err := im.sink.InsertWindowEvent(ctx, appID, rec.WindowTitle, rec.EventType, rec.OccurredAt); err != nil {
		return fmt.Errorf("insert event at %d: %w", rec.OccurredAt, err)
	}
	return nil
}
