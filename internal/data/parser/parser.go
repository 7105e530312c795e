package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-activity-monitor/internal/util"
)

// DefaultEventType is assigned to records that omit event_type
const DefaultEventType = "EVENT_SYSTEM_FOREGROUND"

// Record is one line of an event export.
type Record struct {
	AppName     string `json:"app_name"`
	AppPath     string `json:"app_path"`
	WindowTitle string `json:"window_title"`
	EventType   string `json:"event_type"`
	OccurredAt  int64  `json:"occurred_at"` // unix seconds
}

// Validate checks the required fields and fills defaults
func (r *Record) Validate() error {
	r.AppName = strings.TrimSpace(r.AppName)
	if r.AppName == "" {
		return fmt.Errorf("app_name is required")
	}
	if r.OccurredAt <= 0 {
		return fmt.Errorf("occurred_at must be a positive unix timestamp")
	}
	if r.EventType == "" {
		r.EventType = DefaultEventType
	}
	return nil
}

// ParseResult is the outcome of parsing one file.
type ParseResult struct {
	File    string
	Records []Record
	Invalid int
	Error   error
}

// Parser reads JSONL event exports.
type Parser struct {
	concurrency int
}

// NewParser creates a Parser that parses up to concurrency files at once.
func NewParser(concurrency int) *Parser {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Parser{concurrency: concurrency}
}

// Parse reads records from r. Invalid lines are skipped and counted.
func (p *Parser) Parse(r io.Reader, name string) ([]Record, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var records []Record
	lineCount, invalid := 0, 0
	for scanner.Scan() {
		lineCount++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var rec Record
		if err := sonic.Unmarshal(line, &rec); err != nil {
			util.LogDebug(fmt.Sprintf("Skip invalid JSON line %s:%d - %v", name, lineCount, err))
			invalid++
			continue
		}
		if err := rec.Validate(); err != nil {
			util.LogDebug(fmt.Sprintf("Skip invalid record %s:%d - %v", name, lineCount, err))
			invalid++
			continue
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, invalid, fmt.Errorf("scan %s: %w", name, err)
	}
	return records, invalid, nil
}

// ParseFile parses the JSONL file at path.
func (p *Parser) ParseFile(path string) ([]Record, int, error) {
	util.LogDebug(fmt.Sprintf("Start parsing file: %s", path))

	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	return p.Parse(file, path)
}

// ParseFiles parses multiple files concurrently. The channel is closed when all are done.
func (p *Parser) ParseFiles(files []string) <-chan ParseResult {
	start := time.Now()
	results := make(chan ParseResult, len(files))
	var wg sync.WaitGroup

	util.LogDebug(fmt.Sprintf("Start concurrent parsing of %d files, concurrency: %d", len(files), p.concurrency))

	semaphore := make(chan struct{}, p.concurrency)
	for _, file := range files {
		wg.Add(1)
		go func(f string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			records, invalid, err := p.ParseFile(f)
			if err != nil {
				util.LogDebug(fmt.Sprintf("File parsing failed: %s - %v", f, err))
			}
			results <- ParseResult{File: f, Records: records, Invalid: invalid, Error: err}
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
		util.LogDebug(fmt.Sprintf("Concurrent parsing finished, total duration: %v", time.Since(start)))
	}()

	return results
}
