package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-activity-monitor/internal/util"
)

// FileScanner expands import arguments into event export files
type FileScanner struct {
	extension string
}

func NewFileScanner() *FileScanner {
	return &FileScanner{extension: ".jsonl"}
}

// Resolve returns every file named in paths. Files are taken as given,
// directories are walked for exports. The result is sorted and unique.
func (s *FileScanner) Resolve(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		found, err := s.Scan(path)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}

	sort.Strings(files)
	return files, nil
}

// Scan walks dir and returns the export files below it
func (s *FileScanner) Scan(dir string) ([]string, error) {
	start := time.Now()
	var files []string
	dirCount := 0
	totalCount := 0

	util.LogDebug(fmt.Sprintf("Start scanning directory: %s", dir))

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			util.LogDebug(fmt.Sprintf("Skip path (error): %s - %v", path, err))
			return nil
		}
		if d.IsDir() {
			dirCount++
			return nil
		}

		totalCount++
		if strings.HasSuffix(strings.ToLower(path), s.extension) {
			files = append(files, path)
		}
		return nil
	})

	util.LogDebug(fmt.Sprintf("File scan completed: duration %v, scanned %d directories, %d files, found %d exports",
		time.Since(start), dirCount, totalCount, len(files)))
	return files, err
}
