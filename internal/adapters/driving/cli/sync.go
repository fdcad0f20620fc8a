package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one synchronisation cycle",
	Long: `Lists the configured Drive folder, selects new and changed files,
and processes each one: extract, chunk, embed, store.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	runner, closer, err := getRunner(ctx)
	if err != nil {
		return err
	}
	defer closer()

	if err := runner.Initialize(ctx); err != nil {
		return fmt.Errorf("initialise: %w", err)
	}

	result, err := runner.RunSyncCycle(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	cmd.Printf("Found %d file(s) to process: %d succeeded, %d failed.\n",
		result.Found, result.Processed, result.Failed)
	if result.Stopped {
		cmd.Println("Cycle stopped early.")
	}
	if result.BudgetExhausted {
		cmd.Println("Budget exhausted; remaining files are picked up once the limits clear.")
	}
	return nil
}
