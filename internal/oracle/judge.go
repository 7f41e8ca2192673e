package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackzampolin/reportcheck/internal/prompts"
	"github.com/jackzampolin/reportcheck/internal/prompts/consistency"
)

// Verdict is a boolean judgment with its explanation and cost.
type Verdict struct {
	Result bool   `json:"result" yaml:"result"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Usage  Usage  `json:"usage" yaml:"usage"`
}

// Description is a one-sentence app state description with its cost.
type Description struct {
	Text  string `json:"description" yaml:"description"`
	Usage Usage  `json:"usage" yaml:"usage"`
}

// tiers maps each judgment to the model class it needs.
var tiers = map[string]Tier{
	consistency.OpVisibility:     TierText,
	consistency.OpTextReflection: TierText,
	consistency.OpOCRText:        TierText,
	consistency.OpVision:         TierVision,
	consistency.OpInvisibility:   TierText,
	consistency.OpDescribeState:  TierText,
	consistency.OpVisualState:    TierVision,
	consistency.OpTextualState:   TierText,
	consistency.OpBare:           TierVision,
}

// TierFor returns the tier used for a judgment operation.
func TierFor(op string) Tier {
	if t, ok := tiers[op]; ok {
		return t
	}
	return TierText
}

// JudgeConfig configures a Judge.
type JudgeConfig struct {
	Oracle  Oracle
	Prompts *prompts.Resolver // nil uses the embedded prompts
	Logger  *slog.Logger
}

// Judge asks the consistency questions of a report through an Oracle.
type Judge struct {
	oracle  Oracle
	prompts *prompts.Resolver
	logger  *slog.Logger
}

// NewJudge creates a judge.
func NewJudge(cfg JudgeConfig) *Judge {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Prompts == nil {
		cfg.Prompts = prompts.NewResolver(nil, cfg.Logger)
		consistency.RegisterPrompts(cfg.Prompts)
	}
	return &Judge{oracle: cfg.Oracle, prompts: cfg.Prompts, logger: cfg.Logger}
}

// Visible asks whether the issue's manifestation should be visible in a
// screenshot, given enough context.
func (j *Judge) Visible(ctx context.Context, reportID, text string) (*Verdict, error) {
	return j.verdict(ctx, consistency.OpVisibility, reportID, consistency.UserData{Text: text}, nil)
}

// TextReflected asks whether the issue is stated directly by on-screen text.
func (j *Judge) TextReflected(ctx context.Context, reportID, text string) (*Verdict, error) {
	return j.verdict(ctx, consistency.OpTextReflection, reportID, consistency.UserData{Text: text}, nil)
}

// MatchesOCRText asks whether the OCR snippets align with the issue.
func (j *Judge) MatchesOCRText(ctx context.Context, reportID, text string, snippets []string) (*Verdict, error) {
	return j.verdict(ctx, consistency.OpOCRText, reportID, consistency.UserData{Text: text, Snippets: snippets}, nil)
}

// MatchesVision asks whether the screenshot visually reflects the issue.
func (j *Judge) MatchesVision(ctx context.Context, reportID, text string, image []byte) (*Verdict, error) {
	return j.verdict(ctx, consistency.OpVision, reportID, consistency.UserData{Text: text}, image)
}

// ConfirmedByText asks whether the OCR snippets directly confirm the issue.
// A true result disconfirms that the issue is invisible.
func (j *Judge) ConfirmedByText(ctx context.Context, reportID, text string, snippets []string) (*Verdict, error) {
	return j.verdict(ctx, consistency.OpInvisibility, reportID, consistency.UserData{Text: text, Snippets: snippets}, nil)
}

// AlignsWithVisualState asks whether the issue can follow from the
// screenshot's app state in exactly one action.
func (j *Judge) AlignsWithVisualState(ctx context.Context, reportID, text string, image []byte) (*Verdict, error) {
	return j.verdict(ctx, consistency.OpVisualState, reportID, consistency.UserData{Text: text}, image)
}

// AlignsWithTextualState asks whether the issue can follow from the
// described app state in exactly one action.
func (j *Judge) AlignsWithTextualState(ctx context.Context, reportID, text, state string) (*Verdict, error) {
	return j.verdict(ctx, consistency.OpTextualState, reportID, consistency.UserData{Text: text, State: state}, nil)
}

// Bare asks the single-shot question "is this screenshot consistent with
// this issue?".
func (j *Judge) Bare(ctx context.Context, reportID, text string, image []byte) (*Verdict, error) {
	return j.verdict(ctx, consistency.OpBare, reportID, consistency.UserData{Text: text}, image)
}

// DescribeState produces a one-sentence description of the app state shown
// by the OCR snippets. An empty snippet list is still sent.
func (j *Judge) DescribeState(ctx context.Context, reportID string, snippets []string) (*Description, error) {
	op := consistency.OpDescribeState
	answer, err := j.ask(ctx, op, reportID, consistency.UserData{Snippets: snippets}, nil)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Description *string `json:"description"`
	}
	if err := json.Unmarshal(answer.Payload, &parsed); err != nil || parsed.Description == nil {
		return nil, &Error{Op: op, Model: answer.Model, Raw: string(answer.Payload), Err: fmt.Errorf("%w: missing description", ErrMalformed)}
	}

	j.logger.Info("oracle description", "report", reportID, "operation", op, "description", *parsed.Description)
	j.logger.Info(answer.Usage.String())
	return &Description{Text: *parsed.Description, Usage: answer.Usage}, nil
}

func (j *Judge) verdict(ctx context.Context, op, reportID string, data consistency.UserData, image []byte) (*Verdict, error) {
	answer, err := j.ask(ctx, op, reportID, data, image)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Result *bool  `json:"result"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(answer.Payload, &parsed); err != nil || parsed.Result == nil {
		return nil, &Error{Op: op, Model: answer.Model, Raw: string(answer.Payload), Err: fmt.Errorf("%w: missing boolean result", ErrMalformed)}
	}

	j.logger.Info("oracle verdict", "report", reportID, "operation", op, "result", *parsed.Result, "reason", parsed.Reason)
	j.logger.Info(answer.Usage.String())
	return &Verdict{Result: *parsed.Result, Reason: parsed.Reason, Usage: answer.Usage}, nil
}

func (j *Judge) ask(ctx context.Context, op, reportID string, data consistency.UserData, image []byte) (*Answer, error) {
	system, err := j.prompts.Resolve(consistency.SystemKey(op))
	if err != nil {
		return nil, fmt.Errorf("resolve %s prompt: %w", op, err)
	}

	var userTmpl string
	if _, ok := consistency.UserTemplate(op); ok {
		resolved, err := j.prompts.Resolve(consistency.UserKey(op))
		if err != nil {
			return nil, fmt.Errorf("resolve %s user prompt: %w", op, err)
		}
		userTmpl = resolved.Text
	}
	user, err := consistency.UserPrompt(userTmpl, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return j.oracle.Query(ctx, Query{
		Operation:    op,
		Instructions: system.Text,
		Text:         user,
		Image:        image,
		Tier:         TierFor(op),
		ReportID:     reportID,
		Schema:       consistency.SchemaFor(op),
		PromptKey:    system.Key,
		PromptHash:   system.Hash,
	})
}
