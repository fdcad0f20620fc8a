package cli

import (
	"github.com/spf13/cobra"
)

var reprocessCmd = &cobra.Command{
	Use:   "reprocess [file-id]",
	Short: "Force files through the pipeline on the next cycle",
	Long: `Forgets the tracked state for a file so the next sync cycle selects
it again even though its modification timestamp is unchanged. With no
file ID, all tracked state is forgotten and every file is reprocessed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReprocess,
}

func init() {
	rootCmd.AddCommand(reprocessCmd)
}

func runReprocess(cmd *cobra.Command, args []string) error {
	runner, closer, err := getRunner(cmd.Context())
	if err != nil {
		return err
	}
	defer closer()

	if len(args) == 0 {
		if err := runner.ReprocessAll(); err != nil {
			return err
		}
		cmd.Println("All files will be reprocessed on the next cycle.")
		return nil
	}

	fileID := args[0]
	if err := runner.Reprocess(fileID); err != nil {
		return err
	}
	cmd.Printf("File %s will be reprocessed on the next cycle.\n", fileID)
	return nil
}
