package commands

import (
	"fmt"
	"runtime"

	"github.com/penwyp/go-activity-monitor/internal/analyzer"
	"github.com/penwyp/go-activity-monitor/internal/data/scanner"
	"github.com/spf13/cobra"
)

var importConcurrency int

var importCmd = &cobra.Command{
	Use:   "import <file.jsonl|dir>...",
	Short: "Import JSONL window events into the database",
	Long: `Loads exported window focus events into the activity database.

Each line is one JSON object:
  {"app_name":"editor","app_path":"/usr/bin/editor","window_title":"main.go",
   "event_type":"EVENT_SYSTEM_FOREGROUND","occurred_at":1704153600}

occurred_at is in unix seconds. Invalid lines are skipped and counted.
Directories are searched recursively for .jsonl files.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().IntVar(&importConcurrency, "concurrency", runtime.NumCPU(),
		"Files parsed in parallel")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	paths := make([]string, 0, len(args))
	for _, arg := range args {
		paths = append(paths, expandPath(arg))
	}
	files, err := scanner.NewFileScanner().Resolve(paths)
	if err != nil {
		return err
	}

	stats, err := analyzer.NewImporter(st, importConcurrency).Import(ctx, files)
	if err != nil {
		return err
	}

	total, imported, invalid, failures := stats.GetStats()
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d events from %d files (%d invalid lines, %d failures)\n",
		imported, total, invalid, failures)
	for _, failure := range stats.Failures() {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %v\n", failure.FilePath, failure.Err)
	}
	return nil
}
