package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Synchronise continuously",
	Long: `Runs sync cycles on an interval until interrupted. The first
interrupt stops after the file currently being processed; a second
interrupt exits immediately.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "poll interval (overrides config, e.g. 5m)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	runner, closer, err := getRunner(ctx)
	if err != nil {
		return err
	}
	defer closer()

	if err := runner.Initialize(ctx); err != nil {
		return fmt.Errorf("initialise: %w", err)
	}

	interval := watchInterval
	if interval <= 0 {
		interval = 300 * time.Second
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		<-sigCh
		cmd.Println("\nStopping after current file... (interrupt again to force quit)")
		runner.RequestStop()
		close(done)
		<-sigCh
		os.Exit(1)
	}()

	cmd.Printf("Watching every %s. Press Ctrl+C to stop.\n", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := runner.RunSyncCycle(ctx)
		if err != nil {
			cmd.PrintErrf("cycle failed: %v\n", err)
		} else {
			cmd.Printf("[%s] found %d, processed %d, failed %d\n",
				time.Now().Format(time.TimeOnly), result.Found, result.Processed, result.Failed)
			if result.Stopped {
				return nil
			}
			// A budget denial only ends the cycle; keep polling so work
			// resumes once the windows slide or the day rolls over.
			if result.BudgetExhausted {
				cmd.Println("Budget exhausted; cycles resume when the limits clear.")
			}
		}

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
