package commands

import (
	"github.com/penwyp/go-activity-monitor/internal/analyzer"
	"github.com/spf13/cobra"
)

var (
	// Output related
	outputFormat string

	// Scope
	duration   string
	fromTime   string
	toTime     string
	selectFrom string
	selectTo   string

	// Grouping
	groupBy string
	limit   int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Aggregate active time over a range",
	Long: `Builds the intervals of a time range and reports active time grouped by
application, window, day or hour.

The range is either --from/--to or a --duration lookback from now. A narrower
--select-from/--select-to range limits the breakdown to that selection.

Examples:
  go-activity-monitor report                                  # Last day, per app
  go-activity-monitor report --duration 2w3d --group-by day   # Last 17 days, per day
  go-activity-monitor report --from 2024-01-02 --to 2024-01-03 --group-by window
  go-activity-monitor report --duration 1d --select-from "2024-01-02 09:00" --select-to "2024-01-02 12:00"
  go-activity-monitor report -o json --limit 5`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&duration, "duration", "d", "",
		"Time duration to look back (e.g., 12h, 7d, 2w, 1m, 1d12h; default 1d)")
	reportCmd.Flags().StringVar(&fromTime, "from", "",
		"Range start (RFC3339 or local 2006-01-02[ 15:04])")
	reportCmd.Flags().StringVar(&toTime, "to", "",
		"Range end (default now)")
	reportCmd.Flags().StringVar(&selectFrom, "select-from", "",
		"Selection start inside the range")
	reportCmd.Flags().StringVar(&selectTo, "select-to", "",
		"Selection end inside the range")

	reportCmd.Flags().StringVar(&groupBy, "group-by", analyzer.GroupByApp,
		"Group by field (app, window, day, hour)")
	reportCmd.Flags().IntVar(&limit, "limit", 0,
		"Limit result count (0 = unlimited)")

	reportCmd.Flags().StringVarP(&outputFormat, "output", "o", "table",
		"Output format (table, json, csv, summary)")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	config := &analyzer.Config{
		OutputFormat: outputFormat,
		Timezone:     cfg.Viewer.Timezone,
		Duration:     duration,
		From:         fromTime,
		To:           toTime,
		SelectFrom:   selectFrom,
		SelectTo:     selectTo,
		GroupBy:      groupBy,
		Limit:        limit,
		FetchLimit:   cfg.Viewer.FetchLimit,
	}

	a, err := analyzer.New(config, st)
	if err != nil {
		return err
	}
	return a.Run(ctx, cmd.OutOrStdout())
}
