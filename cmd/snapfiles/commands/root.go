// Package commands implements the CLI commands for the SnapFiles server.
package commands

import (
	"github.com/marmos91/snapfiles/cmd/snapfiles/commands/config"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "snapfiles",
	Short: "SnapFiles - text file access for Snap! projects",
	Long: `SnapFiles serves per-user text files over a local HTTP interface so that
Snap! programs can open, read, write, seek, and manage files on this machine.

Files live under <storage root>/<user>/<file>. Each file keeps a cursor between
requests until it is closed.

Use "snapfiles [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/snapfiles/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(config.Cmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
