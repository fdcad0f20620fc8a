package cli

import (
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store, tracker and budget statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	runner, closer, err := getRunner(ctx)
	if err != nil {
		return err
	}
	defer closer()

	stats, err := runner.Stats(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Documents:        %d\n", stats.Store.Documents)
	cmd.Printf("Vectors:          %d\n", stats.Store.Vectors)
	cmd.Printf("Avg vectors/doc:  %.1f\n", stats.Store.AvgVectorsPerDoc)
	cmd.Printf("Tracked files:    %d\n", stats.TrackedFiles)
	if stats.DailyCostCap > 0 {
		cmd.Printf("Daily cost:       $%.4f of $%.2f\n", stats.DailyCostUSD, stats.DailyCostCap)
		cmd.Printf("Requests today:   %d\n", stats.RequestsUsed)
	}
	return nil
}
