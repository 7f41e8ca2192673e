package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/reportcheck/internal/output"
	"github.com/jackzampolin/reportcheck/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "reportcheck",
	Short: "Check crowdsourced bug reports against their screenshots",
	Long: `reportcheck decides whether the text of a crowdsourced bug report is
consistent with the screenshot attached to it.

Each report walks a decision graph of LLM judgments:
  - Would the issue be visible on screen at all?
  - Is the visible part textual, so OCR text can confirm it?
  - Otherwise, does the screenshot itself show it?
  - If invisible, does the described app state match the screen?

Runs are logged in a format the stats command can score against ground truth.`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return output.SetFormat(outputFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.reportcheck/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "reportcheck home directory (default: ~/.reportcheck)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	rootCmd.AddCommand(versionCmd)
}
