// Package batch runs the decision engine over a dataset of reports.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/reportcheck/internal/engine"
	"github.com/jackzampolin/reportcheck/internal/oracle"
	"github.com/jackzampolin/reportcheck/internal/report"
)

// Decider decides single reports. *engine.Engine implements it.
type Decider interface {
	Decide(ctx context.Context, r report.Report) (*engine.Decision, error)
	Strategy() engine.Strategy
}

// DecisionStore persists decisions. *store.Store implements it.
type DecisionStore interface {
	SaveDecision(ctx context.Context, runID string, d *engine.Decision) error
	HasDecision(ctx context.Context, strategy, reportID string) (bool, error)
}

// Config configures a Runner.
type Config struct {
	Engine Decider
	Store  DecisionStore // optional

	// RunID tags stored decisions and recorded calls. Default: a new UUID.
	RunID string

	// Concurrency bounds the reports decided at once. Default 1.
	Concurrency int

	// Resume skips reports that already have a stored decision for the
	// engine's strategy. Requires Store.
	Resume bool

	Logger *slog.Logger
}

// Runner drives an engine across many reports.
type Runner struct {
	engine      Decider
	store       DecisionStore
	runID       string
	concurrency int
	resume      bool
	logger      *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("batch runner requires an engine")
	}
	if cfg.Resume && cfg.Store == nil {
		return nil, fmt.Errorf("resume requires a decision store")
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{
		engine:      cfg.Engine,
		store:       cfg.Store,
		runID:       cfg.RunID,
		concurrency: cfg.Concurrency,
		resume:      cfg.Resume,
		logger:      cfg.Logger,
	}, nil
}

// RunID returns the identifier of this runner's run.
func (r *Runner) RunID() string {
	return r.runID
}

// Failure is a report that produced no verdict.
type Failure struct {
	ReportID string `json:"report_id" yaml:"report_id"`
	Error    string `json:"error" yaml:"error"`
}

// Summary aggregates one run.
type Summary struct {
	RunID        string          `json:"run_id" yaml:"run_id"`
	Strategy     engine.Strategy `json:"strategy" yaml:"strategy"`
	Total        int             `json:"total" yaml:"total"`
	Decided      int             `json:"decided" yaml:"decided"`
	Skipped      int             `json:"skipped" yaml:"skipped"`
	Failed       int             `json:"failed" yaml:"failed"`
	Consistent   int             `json:"consistent" yaml:"consistent"`
	Inconsistent int             `json:"inconsistent" yaml:"inconsistent"`
	Usage        oracle.Usage    `json:"usage" yaml:"usage"`
	Failures     []Failure       `json:"failures,omitempty" yaml:"failures,omitempty"`
	Duration     time.Duration   `json:"duration" yaml:"duration"`

	// Verdicts maps report index to verdict for decided reports.
	Verdicts map[string]bool `json:"verdicts" yaml:"verdicts"`
}

// MeanCost is the average USD spent per decided report.
func (s *Summary) MeanCost() float64 {
	if s.Decided == 0 {
		return 0
	}
	return s.Usage.Cost() / float64(s.Decided)
}

// MeanTokens is the average token count per decided report.
func (s *Summary) MeanTokens() float64 {
	if s.Decided == 0 {
		return 0
	}
	return float64(s.Usage.Tokens()) / float64(s.Decided)
}

// Run decides every report. A failing report is logged and counted; it
// never aborts the run. Run returns an error only when ctx is cancelled, in
// which case the partial summary is still returned.
func (r *Runner) Run(ctx context.Context, reports []report.Report) (*Summary, error) {
	start := time.Now()
	sum := &Summary{
		RunID:    r.runID,
		Strategy: r.engine.Strategy(),
		Total:    len(reports),
		Verdicts: make(map[string]bool),
	}
	var mu sync.Mutex

	r.logger.Info("starting batch run",
		"run_id", r.runID,
		"strategy", sum.Strategy,
		"reports", len(reports),
		"concurrency", r.concurrency,
		"resume", r.resume)

	parent := ctx
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, rep := range reports {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if r.resume {
				done, err := r.store.HasDecision(ctx, string(sum.Strategy), rep.Index)
				if err != nil {
					r.logger.Warn("resume lookup failed, deciding again", "report", rep.Index, "error", err)
				} else if done {
					mu.Lock()
					sum.Skipped++
					mu.Unlock()
					return nil
				}
			}

			d, err := r.engine.Decide(ctx, rep)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.Warn(fmt.Sprintf("Analysis for Report #%s failed -- %v", rep.Index, err))
				mu.Lock()
				sum.Failed++
				sum.Failures = append(sum.Failures, Failure{ReportID: rep.Index, Error: err.Error()})
				mu.Unlock()
				return nil
			}

			if r.store != nil {
				if err := r.store.SaveDecision(ctx, r.runID, d); err != nil {
					r.logger.Warn("failed to store decision", "report", rep.Index, "error", err)
				}
			}

			mu.Lock()
			defer mu.Unlock()
			sum.Decided++
			if d.Consistent {
				sum.Consistent++
			} else {
				sum.Inconsistent++
			}
			sum.Usage.Add(d.Usage)
			sum.Verdicts[rep.Index] = d.Consistent
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = parent.Err()
	}
	sum.Duration = time.Since(start)
	sort.Slice(sum.Failures, func(i, j int) bool {
		return sum.Failures[i].ReportID < sum.Failures[j].ReportID
	})

	r.logger.Info("batch run complete",
		"run_id", r.runID,
		"decided", sum.Decided,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
		"cost_usd", sum.Usage.Cost(),
		"duration", sum.Duration)

	if err != nil {
		return sum, fmt.Errorf("batch run %s interrupted: %w", r.runID, err)
	}
	return sum, nil
}
