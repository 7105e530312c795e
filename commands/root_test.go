package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-activity-monitor/internal/testing/fixtures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected func(string) string
	}{
		{
			name:  "home directory expansion",
			input: "~/test/path",
			expected: func(home string) string {
				return filepath.Join(home, "test/path")
			},
		},
		{
			name:  "absolute path unchanged",
			input: "/absolute/path",
			expected: func(home string) string {
				return "/absolute/path"
			},
		},
		{
			name:  "relative path converted to absolute",
			input: "relative/path",
			expected: func(home string) string {
				abs, _ := filepath.Abs("relative/path")
				return abs
			},
		},
	}

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)
			expected := tt.expected(home)
			assert.Equal(t, expected, result)
		})
	}
}

func TestEnsureDir(t *testing.T) {
	tempDir := t.TempDir()
	testDir := filepath.Join(tempDir, "test", "nested", "dir")

	err := ensureDir(testDir)
	assert.NoError(t, err)

	// Verify directory was created
	info, err := os.Stat(testDir)
	assert.NoError(t, err)
	assert.True(t, info.IsDir())

	// Test idempotency
	err = ensureDir(testDir)
	assert.NoError(t, err)
}

func TestSubcommandsRegistered(t *testing.T) {
	for _, name := range []string{"view", "report", "serve", "import", "stats"} {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, cmd.Name())
		})
	}
}

func TestPersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "db", "timezone", "debug", "log-level", "log-file"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestReportCommandFlags(t *testing.T) {
	tests := []struct {
		flag         string
		defaultValue string
		shorthand    string
	}{
		{"duration", "", "d"},
		{"group-by", "app", ""},
		{"output", "table", "o"},
		{"limit", "0", ""},
		{"from", "", ""},
		{"select-from", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			flag := reportCmd.Flags().Lookup(tt.flag)
			require.NotNil(t, flag)
			assert.Equal(t, tt.defaultValue, flag.DefValue)
			if tt.shorthand != "" {
				assert.Equal(t, tt.shorthand, flag.Shorthand)
			}
		})
	}
}

func TestViewAndServeFlags(t *testing.T) {
	assert.Equal(t, "false", viewCmd.Flags().Lookup("record-close").DefValue)
	assert.Equal(t, "false", viewCmd.Flags().Lookup("no-glue").DefValue)
	assert.NotNil(t, serveCmd.Flags().Lookup("addr"))
	assert.Equal(t, "1200", serveCmd.Flags().Lookup("width").DefValue)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestImportThenReport(t *testing.T) {
	dir := t.TempDir()
	gen := fixtures.NewTestDataGenerator(filepath.Join(dir, "exports"))
	_, err := gen.WriteRaw("monday/events.jsonl",
		`{"app_name":"editor","app_path":"/bin/editor","window_title":"main.go","occurred_at":1704153600}`,
		`{"app_name":"browser","window_title":"docs","occurred_at":1704155400}`,
		`garbage`,
		`{"app_name":"editor","window_title":"main.go","occurred_at":1704157200}`,
	)
	require.NoError(t, err)

	common := []string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--db", filepath.Join(dir, "activity.db"),
		"--log-file", filepath.Join(dir, "app.log"),
		"--timezone", "UTC",
	}

	out, err := execute(t, append([]string{"import", gen.GetBaseDir()}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3 events from 1 files (1 invalid lines, 0 failures)")
	assert.FileExists(t, filepath.Join(dir, "config.yaml"))

	out, err = execute(t, append([]string{"report",
		"--from", "2024-01-02T00:00:00Z", "--to", "2024-01-02T02:00:00Z",
		"--output", "json"}, common...)...)
	require.NoError(t, err)

	var report struct {
		TotalSeconds float64 `json:"totalSeconds"`
		Rows         []struct {
			Key     string  `json:"key"`
			Seconds float64 `json:"seconds"`
			Percent float64 `json:"percent"`
		} `json:"rows"`
	}
	require.NoError(t, sonic.UnmarshalString(out, &report))
	assert.Equal(t, 7200.0, report.TotalSeconds)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, "editor", report.Rows[0].Key)
	assert.Equal(t, 5400.0, report.Rows[0].Seconds)
	assert.InDelta(t, 75.0, report.Rows[0].Percent, 1e-9)

	out, err = execute(t, append([]string{"stats", "--json"}, common...)...)
	require.NoError(t, err)
	var stats map[string]any
	require.NoError(t, sonic.UnmarshalString(out, &stats))
	assert.EqualValues(t, 2, stats["apps"])
	assert.EqualValues(t, 3, stats["events"])
}

func TestImportRequiresFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "import",
		"--config", filepath.Join(dir, "config.yaml"),
		"--log-file", filepath.Join(dir, "app.log"))
	assert.Error(t, err)
}
