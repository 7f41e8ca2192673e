package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/reportcheck/internal/analysis"
	"github.com/jackzampolin/reportcheck/internal/home"
	"github.com/jackzampolin/reportcheck/internal/output"
	"github.com/jackzampolin/reportcheck/internal/report"
)

var statsLabels string

// statsResult is the printed form of a log analysis.
type statsResult struct {
	Log            string                   `json:"log" yaml:"log"`
	Costs          analysis.CostStats       `json:"costs" yaml:"costs"`
	Classification *analysis.Classification `json:"classification,omitempty" yaml:"classification,omitempty"`
	Chains         []analysis.ChainCount    `json:"chains" yaml:"chains"`
}

var statsCmd = &cobra.Command{
	Use:   "stats [log-file]",
	Short: "Score a run log: cost, accuracy and verdict chains",
	Long: `Parse a run log and report mean cost per report, how often each chain of
oracle verdicts occurred, and, given ground-truth labels, accuracy,
precision, recall and F1 with "consistent" as the positive class.

Labels are a JSON object {"<index>": true|false} or a CSV with an
index,consistent header.

Examples:
  reportcheck stats
  reportcheck stats run.log --labels labels.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := statsLogPath(args)
		if err != nil {
			return err
		}
		l, err := analysis.ParseFile(path)
		if err != nil {
			return err
		}

		res := statsResult{Log: path, Costs: l.Costs(), Chains: l.LogicChains()}
		if statsLabels != "" {
			truth, err := report.LoadLabels(statsLabels)
			if err != nil {
				return err
			}
			c := analysis.Classify(l.Predictions, truth)
			res.Classification = &c
		}
		return output.Print(res)
	},
}

// statsLogPath defaults to the configured log file in the home directory.
func statsLogPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	h, err := home.New(homeDir)
	if err != nil {
		return "", err
	}
	mgr, err := newConfigManager(h)
	if err != nil {
		return "", err
	}
	return h.Resolve(mgr.Get().Storage.LogFile), nil
}

func init() {
	statsCmd.Flags().StringVar(&statsLabels, "labels", "", "ground-truth labels (JSON or CSV)")
	rootCmd.AddCommand(statsCmd)
}
