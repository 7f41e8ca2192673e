package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/reportcheck/internal/output"
	"github.com/jackzampolin/reportcheck/internal/svcctx"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect and override oracle prompts",
	Long: `Oracle prompts are embedded in the binary. A file <prompt_dir>/<key>.tmpl
overrides the embedded text for that key; export writes every embedded
prompt there as a starting point for editing.`,
}

// promptInfo is the printed form of one prompt.
type promptInfo struct {
	Key         string   `json:"key" yaml:"key"`
	Description string   `json:"description" yaml:"description"`
	Variables   []string `json:"variables,omitempty" yaml:"variables,omitempty"`
	Hash        string   `json:"hash" yaml:"hash"`
	Override    bool     `json:"override" yaml:"override"`
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompts and whether they are overridden",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := setup(cmd, setupOptions{})
		if err != nil {
			return err
		}
		defer cleanup()
		resolver := svcctx.PromptsFrom(ctx)

		var out []promptInfo
		for _, p := range resolver.AllEmbedded() {
			resolved, err := resolver.Resolve(p.Key)
			if err != nil {
				return err
			}
			out = append(out, promptInfo{
				Key:         p.Key,
				Description: p.Description,
				Variables:   resolved.Variables,
				Hash:        resolved.Hash,
				Override:    resolved.IsOverride,
			})
		}
		return output.Print(out)
	},
}

var promptsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write embedded prompts to the prompt directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := setup(cmd, setupOptions{})
		if err != nil {
			return err
		}
		defer cleanup()

		n, err := svcctx.PromptsFrom(ctx).Export()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d prompts\n", n)
		return nil
	},
}

func init() {
	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsExportCmd)
	rootCmd.AddCommand(promptsCmd)
}
