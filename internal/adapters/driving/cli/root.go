// Package cli wires the cobra command tree over the sync services.
package cli

import (
	"github.com/spf13/cobra"
)

// version is set by Execute from build information.
var version = "dev"

// Flags shared across commands.
var (
	cfgPath        string
	folderOverride string
)

var rootCmd = &cobra.Command{
	Use:   "drivesync",
	Short: "Sync a Google Drive folder into a local vector store",
	Long: `drivesync watches a Google Drive folder, extracts text from new and
changed files, and stores embedded chunks in a local SQLite vector
store for similarity search.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (TOML)")
	rootCmd.PersistentFlags().StringVar(&folderOverride, "folder", "", "Drive folder ID (overrides config)")
}

// Execute runs the root command.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.Execute()
}
