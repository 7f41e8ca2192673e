package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/reportcheck/internal/llmcall"
	"github.com/jackzampolin/reportcheck/internal/metrics"
	"github.com/jackzampolin/reportcheck/internal/providers"
)

// Model binds a tier to a client and model name.
type Model struct {
	Client providers.LLMClient
	Name   string // empty uses the client default
}

// LLMConfig configures an LLMOracle.
type LLMConfig struct {
	Text   Model
	Vision Model

	Temperature float64
	MaxTokens   int
	Timeout     time.Duration // per round-trip, 0 = none

	RunID    string
	Recorder *llmcall.Recorder
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// LLMOracle answers queries with chat-completion models in JSON mode.
type LLMOracle struct {
	tiers       map[Tier]Model
	temperature float64
	maxTokens   int
	timeout     time.Duration
	runID       string
	recorder    *llmcall.Recorder
	metrics     *metrics.Metrics
	logger      *slog.Logger

	schemas sync.Map // operation -> *jsonschema.Schema
}

// NewLLMOracle creates an oracle over the configured tiers. A tier without a
// client falls back to the other tier's client.
func NewLLMOracle(cfg LLMConfig) (*LLMOracle, error) {
	if cfg.Text.Client == nil && cfg.Vision.Client == nil {
		return nil, fmt.Errorf("oracle requires at least one LLM client")
	}
	if cfg.Text.Client == nil {
		cfg.Text.Client = cfg.Vision.Client
	}
	if cfg.Vision.Client == nil {
		cfg.Vision.Client = cfg.Text.Client
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &LLMOracle{
		tiers: map[Tier]Model{
			TierText:   cfg.Text,
			TierVision: cfg.Vision,
		},
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		runID:       cfg.RunID,
		recorder:    cfg.Recorder,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}, nil
}

// Query sends q to the tier's model and returns the parsed JSON answer.
func (o *LLMOracle) Query(ctx context.Context, q Query) (*Answer, error) {
	model, ok := o.tiers[q.Tier]
	if !ok {
		return nil, &Error{Op: q.Operation, Err: fmt.Errorf("unknown tier %q", q.Tier)}
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	user := providers.Message{Role: "user", Content: q.Text}
	if len(q.Image) > 0 {
		user.Images = [][]byte{q.Image}
	}
	messages := make([]providers.Message, 0, 2)
	if q.Instructions != "" {
		messages = append(messages, providers.Message{Role: "system", Content: q.Instructions})
	}
	messages = append(messages, user)

	req := &providers.ChatRequest{
		Messages:       messages,
		Model:          model.Name,
		Temperature:    o.temperature,
		MaxTokens:      o.maxTokens,
		ResponseFormat: providers.JSONObject,
		RequestID:      uuid.New().String(),
	}

	start := time.Now()
	result, err := model.Client.Chat(ctx, req)
	elapsed := time.Since(start)

	if result == nil {
		result = &providers.ChatResult{
			Provider:     model.Client.Name(),
			ModelUsed:    model.Name,
			ErrorMessage: fmt.Sprint(err),
		}
	}
	answer := &Answer{
		Payload:  result.ParsedJSON,
		Model:    result.ModelUsed,
		Provider: result.Provider,
		Usage: Usage{
			InputTokens:  result.PromptTokens,
			OutputTokens: result.CompletionTokens,
			InputCost:    result.InputCostUSD,
			OutputCost:   result.OutputCostUSD,
		},
	}

	if err == nil {
		err = o.validate(q, result)
	}

	o.record(q, result, err)
	o.metrics.ObserveOracleCall(q.Operation, string(q.Tier), answer.Usage.InputTokens, answer.Usage.OutputTokens, answer.Usage.Cost(), elapsed, err)

	if err != nil {
		if oe, ok := err.(*Error); ok {
			return nil, oe
		}
		return nil, &Error{Op: q.Operation, Model: answer.Model, Raw: result.Content, Err: err}
	}
	return answer, nil
}

func (o *LLMOracle) validate(q Query, result *providers.ChatResult) error {
	if len(result.ParsedJSON) == 0 {
		cause := ErrMalformed
		if result.ErrorMessage != "" {
			cause = fmt.Errorf("%w: %s", ErrMalformed, result.ErrorMessage)
		}
		return &Error{Op: q.Operation, Model: result.ModelUsed, Raw: result.Content, Err: cause}
	}
	if q.Schema == nil {
		return nil
	}
	schema, err := o.compiled(q)
	if err != nil {
		return &Error{Op: q.Operation, Model: result.ModelUsed, Err: err}
	}
	if err := providers.ValidateAgainst(schema, result.ParsedJSON); err != nil {
		return &Error{Op: q.Operation, Model: result.ModelUsed, Raw: result.Content, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return nil
}

func (o *LLMOracle) compiled(q Query) (*jsonschema.Schema, error) {
	if s, ok := o.schemas.Load(q.Operation); ok {
		return s.(*jsonschema.Schema), nil
	}
	raw, err := json.Marshal(q.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}
	schema, err := providers.CompileSchema(raw)
	if err != nil {
		return nil, err
	}
	o.schemas.Store(q.Operation, schema)
	return schema, nil
}

func (o *LLMOracle) record(q Query, result *providers.ChatResult, err error) {
	if o.recorder == nil {
		return
	}
	temp := o.temperature
	call := llmcall.FromChatResult(result, llmcall.RecordOptions{
		RunID:       o.runID,
		ReportID:    q.ReportID,
		Operation:   q.Operation,
		PromptKey:   q.PromptKey,
		PromptHash:  q.PromptHash,
		Temperature: &temp,
	})
	if err != nil {
		call.Success = false
		call.Error = err.Error()
	}
	o.recorder.Record(call)
}

var _ Oracle = (*LLMOracle)(nil)
