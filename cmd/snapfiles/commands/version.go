package commands

import (
	"fmt"
	"runtime"

	"github.com/marmos91/snapfiles/pkg/command"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "snapfiles %s (commit: %s, built: %s)\n", Version, Commit, Date)
		fmt.Fprintf(cmd.OutOrStdout(), "protocol %s, %s %s/%s\n", command.DefaultVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}
