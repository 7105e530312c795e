package commands

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-activity-monitor/internal/util"
	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what the activity database holds",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statsJSON {
		b, err := sonic.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("encode stats: %w", err)
		}
		fmt.Fprintln(out, string(b))
		return nil
	}

	loc := util.GetTimeProvider().Location()
	fmt.Fprintf(out, "Apps:        %d\n", stats.Apps)
	fmt.Fprintf(out, "Events:      %d\n", stats.Events)
	fmt.Fprintf(out, "Screenshots: %d\n", stats.Screenshots)
	if stats.Events > 0 {
		first := time.Unix(stats.FirstSec, 0).In(loc)
		last := time.Unix(stats.LastSec, 0).In(loc)
		fmt.Fprintf(out, "Range:       %s → %s (%s)\n",
			first.Format("2006-01-02 15:04:05"), last.Format("2006-01-02 15:04:05"),
			util.FormatDuration(last.Sub(first)))
	}
	return nil
}
