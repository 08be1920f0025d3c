package cmd

import (
	"github.com/spf13/cobra"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "config inspects the configuration",
}

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "print writes the effective configuration as YAML",
	Long: `print writes the configuration after defaults were applied, environment overrides were
read and every path was resolved.`,
	Example: "GQLC_LOGLEVEL=debug gqlc config print",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cfg.Print(cmd.OutOrStdout())
	},
}

func init() {
	configCmd.AddCommand(configPrintCmd)
	rootCmd.AddCommand(configCmd)
}
