// Package engine decides whether a bug report is consistent with its
// screenshot by walking a decision graph of oracle judgments.
//
// One graph serves every Strategy; strategies differ only in their Routing.
// Per-report state lives in a single Decide call, so an Engine is safe for
// concurrent use across reports.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackzampolin/reportcheck/internal/metrics"
	"github.com/jackzampolin/reportcheck/internal/ocr"
	"github.com/jackzampolin/reportcheck/internal/oracle"
	"github.com/jackzampolin/reportcheck/internal/report"
)

// Judgments are the oracle questions the graph asks. *oracle.Judge
// implements it.
type Judgments interface {
	Visible(ctx context.Context, reportID, text string) (*oracle.Verdict, error)
	TextReflected(ctx context.Context, reportID, text string) (*oracle.Verdict, error)
	MatchesOCRText(ctx context.Context, reportID, text string, snippets []string) (*oracle.Verdict, error)
	MatchesVision(ctx context.Context, reportID, text string, image []byte) (*oracle.Verdict, error)
	ConfirmedByText(ctx context.Context, reportID, text string, snippets []string) (*oracle.Verdict, error)
	DescribeState(ctx context.Context, reportID string, snippets []string) (*oracle.Description, error)
	AlignsWithVisualState(ctx context.Context, reportID, text string, image []byte) (*oracle.Verdict, error)
	AlignsWithTextualState(ctx context.Context, reportID, text, state string) (*oracle.Verdict, error)
	Bare(ctx context.Context, reportID, text string, image []byte) (*oracle.Verdict, error)
}

// TextExtractor turns a screenshot into OCR text snippets. Failures must
// degrade to an empty list. *ocr.Pipeline implements it.
type TextExtractor interface {
	Extract(ctx context.Context, image []byte) []string
}

// Config configures an Engine.
type Config struct {
	Judge    Judgments
	OCR      TextExtractor // nil yields no OCR text
	Strategy Strategy      // default StrategyFull

	// LoadImage reads a report's screenshot. Default: Report.ReadImage.
	LoadImage func(report.Report) ([]byte, error)

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Engine runs one strategy over reports.
type Engine struct {
	judge     Judgments
	ocr       TextExtractor
	strategy  Strategy
	routing   Routing
	loadImage func(report.Report) ([]byte, error)
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Judge == nil {
		return nil, fmt.Errorf("engine requires a judge")
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyFull
	}
	routing, err := RoutingFor(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.OCR == nil {
		cfg.OCR = ocr.NewPipeline(ocr.PipelineConfig{Logger: cfg.Logger})
	}
	if cfg.LoadImage == nil {
		cfg.LoadImage = report.Report.ReadImage
	}
	return &Engine{
		judge:     cfg.Judge,
		ocr:       cfg.OCR,
		strategy:  cfg.Strategy,
		routing:   routing,
		loadImage: cfg.LoadImage,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}, nil
}

// Strategy returns the engine's strategy.
func (e *Engine) Strategy() Strategy {
	return e.strategy
}

// Step is one visited state and what the oracle said there.
type Step struct {
	State       State  `json:"state" yaml:"state"`
	Result      *bool  `json:"result,omitempty" yaml:"result,omitempty"`
	Reason      string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Decision is the final verdict for one report.
type Decision struct {
	ReportID   string        `json:"report_id" yaml:"report_id"`
	Strategy   Strategy      `json:"strategy" yaml:"strategy"`
	Consistent bool          `json:"consistent" yaml:"consistent"`
	Path       []Step        `json:"path" yaml:"path"`
	Snippets   []string      `json:"ocr_text,omitempty" yaml:"ocr_text,omitempty"`
	Usage      oracle.Usage  `json:"usage" yaml:"usage"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// States returns the visited states in order.
func (d *Decision) States() []State {
	states := make([]State, len(d.Path))
	for i, s := range d.Path {
		states[i] = s.State
	}
	return states
}

// Chain renders the sequence of boolean oracle answers, e.g. "true-false".
func (d *Decision) Chain() string {
	var parts []string
	for _, s := range d.Path {
		if s.Result != nil {
			parts = append(parts, strconv.FormatBool(*s.Result))
		}
	}
	return strings.Join(parts, "-")
}

// Decide walks the graph for r and returns its verdict. Any oracle or image
// error aborts the decision; no partial verdict is returned.
func (e *Engine) Decide(ctx context.Context, r report.Report) (*Decision, error) {
	start := time.Now()
	run := &decision{
		engine: e,
		report: r,
		out:    &Decision{ReportID: r.Index, Strategy: e.strategy},
	}

	consistent, err := run.walk(ctx)
	run.out.Duration = time.Since(start)
	if err != nil {
		e.metrics.IncDecisionFailure(string(e.strategy))
		return nil, fmt.Errorf("decide report %s: %w", r.Index, err)
	}

	run.out.Consistent = consistent
	e.metrics.ObserveDecision(string(e.strategy), consistent, run.out.Duration)
	e.logger.Info(fmt.Sprintf("Report #%s Consistent? %t", r.Index, consistent),
		"strategy", e.strategy,
		"chain", run.out.Chain(),
		"cost_usd", run.out.Usage.Cost())
	return run.out, nil
}

// decision holds the per-report state of one walk.
type decision struct {
	engine *Engine
	report report.Report
	out    *Decision

	image    []byte
	snippets []string
	ocrDone  bool
}

func (d *decision) walk(ctx context.Context) (bool, error) {
	e := d.engine
	id, text := d.report.Index, d.report.Description
	state := e.routing.Start

	for {
		switch state {
		case CheckVisibility:
			v, err := e.judge.Visible(ctx, id, text)
			if err != nil {
				return false, err
			}
			d.verdict(state, v)
			if v.Result {
				state = e.routing.Visible
			} else {
				state = e.routing.NotVisible
			}

		case CheckTextReflection:
			v, err := e.judge.TextReflected(ctx, id, text)
			if err != nil {
				return false, err
			}
			d.verdict(state, v)
			if v.Result {
				state = CompareAgainstOCRText
			} else {
				state = CompareAgainstVision
			}

		case CompareAgainstOCRText:
			snippets, err := d.text(ctx)
			if err != nil {
				return false, err
			}
			v, err := e.judge.MatchesOCRText(ctx, id, text, snippets)
			if err != nil {
				return false, err
			}
			d.verdict(state, v)
			return v.Result, nil

		case CompareAgainstVision:
			img, err := d.screenshot()
			if err != nil {
				return false, err
			}
			v, err := e.judge.MatchesVision(ctx, id, text, img)
			if err != nil {
				return false, err
			}
			d.verdict(state, v)
			return v.Result, nil

		case VerifyInvisibility:
			snippets, err := d.text(ctx)
			if err != nil {
				return false, err
			}
			v, err := e.judge.ConfirmedByText(ctx, id, text, snippets)
			if err != nil {
				return false, err
			}
			d.verdict(state, v)
			// The oracle answers whether the text confirms the issue, which
			// disconfirms invisibility.
			if invisible := !v.Result; !invisible {
				return true, nil
			}
			state = DescribeState

		case DescribeState:
			snippets, err := d.text(ctx)
			if err != nil {
				return false, err
			}
			desc, err := e.judge.DescribeState(ctx, id, snippets)
			if err != nil {
				return false, err
			}
			d.out.Usage.Add(desc.Usage)
			d.out.Path = append(d.out.Path, Step{State: state, Description: desc.Text})

			v, err := e.judge.AlignsWithTextualState(ctx, id, text, desc.Text)
			if err != nil {
				return false, err
			}
			d.verdict(CompareTextualState, v)
			if v.Result {
				return true, nil
			}
			state = CompareVisualState

		case CompareVisualState:
			img, err := d.screenshot()
			if err != nil {
				return false, err
			}
			v, err := e.judge.AlignsWithVisualState(ctx, id, text, img)
			if err != nil {
				return false, err
			}
			d.verdict(state, v)
			return v.Result, nil

		case BareJudgment:
			img, err := d.screenshot()
			if err != nil {
				return false, err
			}
			v, err := e.judge.Bare(ctx, id, text, img)
			if err != nil {
				return false, err
			}
			d.verdict(state, v)
			return v.Result, nil

		default:
			return false, fmt.Errorf("unroutable state %q for strategy %s", state, e.strategy)
		}
	}
}

func (d *decision) verdict(state State, v *oracle.Verdict) {
	result := v.Result
	d.out.Usage.Add(v.Usage)
	d.out.Path = append(d.out.Path, Step{State: state, Result: &result, Reason: v.Reason})
}

// screenshot loads the report image once per decision.
func (d *decision) screenshot() ([]byte, error) {
	if d.image != nil {
		return d.image, nil
	}
	img, err := d.engine.loadImage(d.report)
	if err != nil {
		return nil, err
	}
	d.image = img
	return img, nil
}

// text runs OCR at most once per decision.
func (d *decision) text(ctx context.Context) ([]string, error) {
	if d.ocrDone {
		return d.snippets, nil
	}
	img, err := d.screenshot()
	if err != nil {
		return nil, err
	}
	d.snippets = d.engine.ocr.Extract(ctx, img)
	if d.snippets == nil {
		d.snippets = []string{}
	}
	d.ocrDone = true
	d.out.Snippets = d.snippets
	return d.snippets, nil
}
