package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/reportcheck/internal/llmcall"
	"github.com/jackzampolin/reportcheck/internal/metrics"
	"github.com/jackzampolin/reportcheck/internal/output"
	"github.com/jackzampolin/reportcheck/internal/store"
	"github.com/jackzampolin/reportcheck/internal/svcctx"
)

var (
	resultsStrategy string
	resultsRunID    string
	resultsCosts    bool
)

// costReport is the printed form of results --costs.
type costReport struct {
	Summary     *metrics.Summary                  `json:"summary" yaml:"summary"`
	ByOperation map[string]*metrics.DetailedStats `json:"by_operation" yaml:"by_operation"`
	ByModel     map[string]float64                `json:"by_model" yaml:"by_model"`
	ByReport    []store.ReportCost                `json:"by_report" yaml:"by_report"`
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List stored decisions or their oracle spend",
	Long: `List decisions stored by run and check, or with --costs, summarize the
recorded LLM calls by operation, model and report.

Examples:
  reportcheck results --strategy full
  reportcheck results --costs --run-id 3f1c...`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := setup(cmd, setupOptions{store: true})
		if err != nil {
			return err
		}
		defer cleanup()
		st := svcctx.StoreFrom(ctx)

		if !resultsCosts {
			records, err := st.ListDecisions(ctx, resultsStrategy)
			if err != nil {
				return err
			}
			return output.Print(records)
		}

		calls, err := st.ListCalls(ctx, llmcall.QueryFilter{RunID: resultsRunID})
		if err != nil {
			return err
		}
		perReport, err := st.CostByReport(ctx, resultsRunID)
		if err != nil {
			return err
		}
		return output.Print(costReport{
			Summary:     metrics.Summarize(calls),
			ByOperation: metrics.DetailedByOperation(calls),
			ByModel:     metrics.CostByModel(calls),
			ByReport:    perReport,
		})
	},
}

func init() {
	resultsCmd.Flags().StringVarP(&resultsStrategy, "strategy", "s", "", "only decisions made with this strategy")
	resultsCmd.Flags().StringVar(&resultsRunID, "run-id", "", "only calls from this run (with --costs)")
	resultsCmd.Flags().BoolVar(&resultsCosts, "costs", false, "summarize recorded LLM calls instead")
	rootCmd.AddCommand(resultsCmd)
}
