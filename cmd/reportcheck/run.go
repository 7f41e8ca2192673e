package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/reportcheck/internal/batch"
	"github.com/jackzampolin/reportcheck/internal/metrics"
	"github.com/jackzampolin/reportcheck/internal/output"
	"github.com/jackzampolin/reportcheck/internal/report"
	"github.com/jackzampolin/reportcheck/internal/svcctx"
)

var (
	runStrategy    string
	runImageDir    string
	runConcurrency int
	runResume      bool
	runFetch       bool
	runMetricsAddr string
	runID          string
)

var runCmd = &cobra.Command{
	Use:   "run <reports.json|reports.csv>",
	Short: "Decide every report in a dataset",
	Long: `Run the decision engine over a dataset of reports.

Each report needs a screenshot at <image-dir>/<index>.jpg; pass --fetch to
download missing screenshots from image_url first. Decisions and LLM calls
are stored in the SQLite database and logged to the log file, which the
stats command reads.

Strategies:
  full                            every check (default)
  skip-visibility-check           assume the issue is visible
  skip-ocr                        compare visible issues against the image only
  skip-invisibility-verification  describe the app state for invisible issues directly
  bare-oracle                     one multimodal question per report

Examples:
  reportcheck run reports.json
  reportcheck run reports.csv --strategy skip-ocr --concurrency 4
  reportcheck run reports.json --resume --metrics-addr :9090`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := setup(cmd, setupOptions{logFile: true, store: true, watch: true})
		if err != nil {
			return err
		}
		defer cleanup()
		svc := svcctx.ServicesFrom(ctx)
		cfg := svc.Config.Get()

		reports, err := report.Load(args[0])
		if err != nil {
			return err
		}
		imageDir := runImageDir
		if imageDir == "" {
			imageDir = svc.Home.Resolve(cfg.Storage.ImageDir)
		}
		if runFetch {
			fetcher := report.NewFetcher(report.FetcherConfig{Dir: imageDir, Logger: svc.Logger})
			var failed int
			reports, failed = fetcher.DownloadAll(ctx, reports)
			if failed > 0 {
				svc.Logger.Warn("some screenshots could not be downloaded", "failed", failed)
			}
		} else {
			reports = report.WithImages(reports, imageDir)
		}

		if runMetricsAddr != "" {
			stop := serveMetrics(runMetricsAddr, svc)
			defer stop()
		}

		if runID == "" {
			runID = uuid.NewString()
		}
		e, err := newEngine(ctx, runStrategy, runID)
		if err != nil {
			return err
		}

		concurrency := runConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.Concurrency
		}
		runner, err := batch.NewRunner(batch.Config{
			Engine:      e,
			Store:       svc.Store,
			RunID:       runID,
			Concurrency: concurrency,
			Resume:      runResume || cfg.Batch.Resume,
			Logger:      svc.Logger,
		})
		if err != nil {
			return err
		}

		summary, runErr := runner.Run(ctx, reports)

		flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := svc.Recorder.Flush(flushCtx); err != nil {
			svc.Logger.Warn("failed to flush LLM call log", "error", err)
		}

		if summary != nil {
			if err := output.Print(summary); err != nil {
				return err
			}
		}
		return runErr
	},
}

// serveMetrics exposes Prometheus metrics on addr until the returned func is
// called.
func serveMetrics(addr string, svc *svcctx.Services) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(prometheus.DefaultGatherer))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		svc.Logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			svc.Logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			svc.Logger.Warn("metrics server shutdown", "error", err)
		}
	}
}

var (
	checkStrategy    string
	checkDescription string
	checkImage       string
	checkReports     string
	checkImageDir    string
)

var checkCmd = &cobra.Command{
	Use:   "check [index]",
	Short: "Decide a single report",
	Long: `Decide one report and print the path it took through the decision graph.

Either name a report from a dataset, or give the description and screenshot
directly.

Examples:
  reportcheck check 42 --reports reports.json
  reportcheck check --description "Tapping Share does nothing" --image share.jpg`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := setup(cmd, setupOptions{logFile: true, store: true})
		if err != nil {
			return err
		}
		defer cleanup()
		svc := svcctx.ServicesFrom(ctx)

		r, err := checkTarget(args, svc)
		if err != nil {
			return err
		}

		id := uuid.NewString()
		e, err := newEngine(ctx, checkStrategy, id)
		if err != nil {
			return err
		}
		d, err := e.Decide(ctx, r)
		if err != nil {
			return err
		}
		if err := svc.Store.SaveDecision(ctx, id, d); err != nil {
			svc.Logger.Warn("failed to store decision", "error", err)
		}
		return output.Print(d)
	},
}

func checkTarget(args []string, svc *svcctx.Services) (report.Report, error) {
	if checkDescription != "" {
		if checkImage == "" {
			return report.Report{}, fmt.Errorf("--description requires --image")
		}
		index := "adhoc"
		if len(args) == 1 {
			index = args[0]
		}
		return report.Report{Index: index, Description: checkDescription, ImagePath: checkImage}, nil
	}

	if len(args) != 1 || checkReports == "" {
		return report.Report{}, fmt.Errorf("give a report index with --reports, or --description and --image")
	}
	reports, err := report.Load(checkReports)
	if err != nil {
		return report.Report{}, err
	}
	dir := checkImageDir
	if dir == "" {
		dir = svc.Home.Resolve(svc.Config.Get().Storage.ImageDir)
	}
	for _, r := range report.WithImages(reports, dir) {
		if r.Index == args[0] {
			return r, nil
		}
	}
	return report.Report{}, fmt.Errorf("report %s not found in %s", args[0], checkReports)
}

func init() {
	runCmd.Flags().StringVarP(&runStrategy, "strategy", "s", "", "decision strategy (default: engine.strategy from config)")
	runCmd.Flags().StringVar(&runImageDir, "image-dir", "", "screenshot directory (default: storage.image_dir)")
	runCmd.Flags().IntVarP(&runConcurrency, "concurrency", "c", 0, "reports decided at once (default: batch.concurrency)")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "skip reports already decided with this strategy")
	runCmd.Flags().BoolVar(&runFetch, "fetch", false, "download missing screenshots before deciding")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	runCmd.Flags().StringVar(&runID, "run-id", "", "identifier for stored decisions and calls (default: random)")

	checkCmd.Flags().StringVarP(&checkStrategy, "strategy", "s", "", "decision strategy (default: engine.strategy from config)")
	checkCmd.Flags().StringVar(&checkDescription, "description", "", "report description")
	checkCmd.Flags().StringVar(&checkImage, "image", "", "screenshot path")
	checkCmd.Flags().StringVar(&checkReports, "reports", "", "dataset to look the index up in")
	checkCmd.Flags().StringVar(&checkImageDir, "image-dir", "", "screenshot directory (default: storage.image_dir)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
}
