package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/penwyp/go-activity-monitor/internal/config"
	"github.com/penwyp/go-activity-monitor/internal/data/store"
	"github.com/penwyp/go-activity-monitor/internal/util"
	"github.com/spf13/cobra"
)

var (
	// Configuration
	configPath string
	dbPath     string
	timezone   string

	// Logging related
	debug    bool
	logLevel string
	logFile  string

	// cfg is loaded once per invocation before any subcommand runs
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "go-activity-monitor [command]",
		Short: "Activity timeline viewer and usage reports",
		Long: `go-activity-monitor reads the window focus events recorded by an activity
collector and shows where your time went.

It keeps a zoomable timeline of application usage, aggregates active time per
application and window, and can select any time range or set of intervals to
narrow the breakdown.

Examples:
  go-activity-monitor view                              # Interactive terminal timeline
  go-activity-monitor report --duration 7d              # Per-app usage over the last week
  go-activity-monitor report --group-by day -o csv      # Daily totals as CSV
  go-activity-monitor serve --addr 127.0.0.1:8742       # HTTP API for a UI front end
  go-activity-monitor import events.jsonl               # Load an event export into the store`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

const defaultLogFile = "~/.go-activity-monitor/logs/app.log"

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (default ~/.go-activity-monitor/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "",
		"Activity database path (overrides database.path)")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "",
		"Timezone setting (e.g., Asia/Shanghai, UTC, Local)")

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"Log file path (default "+defaultLogFile+")")
}

// setup loads the configuration, applies flag overrides and starts logging
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg = loaded

	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}

	path := cfg.Logging.File
	if path == "" {
		path = defaultLogFile
	}
	path = expandPath(path)
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := util.InitLogger(util.LoggerOptions{
		Level:   level,
		File:    path,
		Console: debug,
		Format:  util.LogFormat(cfg.Logging.Format),
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := util.InitializeTimeProvider(cfg.Viewer.Timezone); err != nil {
		return fmt.Errorf("failed to initialize timezone: %w", err)
	}
	util.LogDebug(fmt.Sprintf("Config loaded: db=%s timezone=%s", cfg.Database.Path, cfg.Viewer.Timezone))
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		loaded *config.Config
		err    error
	)
	if configPath != "" {
		loaded, err = config.LoadOrCreateAt(expandPath(configPath))
	} else {
		loaded, err = config.LoadOrCreate()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		loaded.Database.Path = dbPath
	}
	if flags.Changed("timezone") {
		loaded.Viewer.Timezone = timezone
	}
	if flags.Changed("log-level") {
		loaded.Logging.Level = logLevel
	}
	if flags.Changed("log-file") {
		loaded.Logging.File = logFile
	}
	if err := loaded.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return loaded, nil
}

// storePath is the configured database path with ~ expanded
func storePath() string {
	if cfg.Database.Path == ":memory:" {
		return cfg.Database.Path
	}
	return expandPath(cfg.Database.Path)
}

// openStore opens the configured activity database
func openStore(ctx context.Context) (*store.SQLiteStore, error) {
	path := storePath()
	st, err := store.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	return st, nil
}

// signalContext is cancelled on interrupt or terminate
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func Execute() error {
	return rootCmd.Execute()
}

// Helper functions

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
