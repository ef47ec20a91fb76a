package config

import (
	"fmt"

	"github.com/marmos91/snapfiles/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the SnapFiles configuration file.

Checks for syntax errors and invalid values.

Examples:
  # Validate default config
  snapfiles config validate

  # Validate specific config file
  snapfiles config validate --config /etc/snapfiles/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	fmt.Fprintln(out, "Validation: OK")

	if cfg.Storage.Type == "memory" {
		fmt.Fprintln(out, "\nWarnings:")
		fmt.Fprintln(out, "  - memory storage is not persistent")
	}
	return nil
}
