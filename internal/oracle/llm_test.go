package oracle

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/jackzampolin/reportcheck/internal/llmcall"
	"github.com/jackzampolin/reportcheck/internal/prompts/consistency"
	"github.com/jackzampolin/reportcheck/internal/providers"
)

type memWriter struct {
	mu    sync.Mutex
	calls []*llmcall.Call
}

func (w *memWriter) SaveCalls(ctx context.Context, calls []*llmcall.Call) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, calls...)
	return nil
}

func newTestOracle(t *testing.T, text, vision *providers.MockClient) *LLMOracle {
	t.Helper()
	o, err := NewLLMOracle(LLMConfig{
		Text:   Model{Client: text, Name: "gpt-4o-mini"},
		Vision: Model{Client: vision, Name: "gpt-4o"},
	})
	if err != nil {
		t.Fatalf("NewLLMOracle() error = %v", err)
	}
	return o
}

func TestLLMOracle_Query(t *testing.T) {
	t.Run("text tier", func(t *testing.T) {
		text, vision := providers.NewMockClient(), providers.NewMockClient()
		text.PromptTokens, text.CompletionTokens = 1000, 100
		o := newTestOracle(t, text, vision)

		answer, err := o.Query(context.Background(), Query{
			Operation:    "visibility",
			Instructions: "judge",
			Text:         "Crash on save",
			Tier:         TierText,
			Schema:       consistency.VerdictSchema,
		})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if string(answer.Payload) != `{"reason":"mock response","result":true}` {
			t.Errorf("Payload = %s", answer.Payload)
		}
		if answer.Usage.InputTokens != 1000 || answer.Usage.OutputTokens != 100 {
			t.Errorf("Usage = %+v", answer.Usage)
		}
		if math.Abs(answer.Usage.InputCost-0.00015) > 1e-12 || math.Abs(answer.Usage.OutputCost-0.00006) > 1e-12 {
			t.Errorf("costs = %v/%v", answer.Usage.InputCost, answer.Usage.OutputCost)
		}
		if text.RequestCount() != 1 || vision.RequestCount() != 0 {
			t.Errorf("requests text=%d vision=%d", text.RequestCount(), vision.RequestCount())
		}

		req := text.Requests()[0]
		if req.Model != "gpt-4o-mini" || req.ResponseFormat != providers.JSONObject || req.Temperature != 0 {
			t.Errorf("request = %+v", req)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "Crash on save" {
			t.Errorf("messages = %+v", req.Messages)
		}
	})

	t.Run("vision tier attaches image", func(t *testing.T) {
		text, vision := providers.NewMockClient(), providers.NewMockClient()
		o := newTestOracle(t, text, vision)

		_, err := o.Query(context.Background(), Query{
			Operation: "vision",
			Text:      "Layout broken",
			Image:     []byte("jpeg"),
			Tier:      TierVision,
		})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		req := vision.Requests()[0]
		if req.Model != "gpt-4o" {
			t.Errorf("Model = %q", req.Model)
		}
		if len(req.Messages) != 1 || len(req.Messages[0].Images) != 1 {
			t.Errorf("messages = %+v", req.Messages)
		}
	})

	t.Run("malformed response", func(t *testing.T) {
		text := providers.NewMockClient()
		text.ResponseText = "I think the answer is yes"
		o := newTestOracle(t, text, nil)

		_, err := o.Query(context.Background(), Query{Operation: "visibility", Tier: TierText})
		var oe *Error
		if !errors.As(err, &oe) {
			t.Fatalf("error = %v, want *Error", err)
		}
		if !IsMalformed(err) || oe.Op != "visibility" || oe.Raw != "I think the answer is yes" {
			t.Errorf("error = %+v", oe)
		}
	})

	t.Run("schema violation", func(t *testing.T) {
		text := providers.NewMockClient()
		text.ResponseText = `{"result": "yes"}`
		o := newTestOracle(t, text, nil)

		_, err := o.Query(context.Background(), Query{Operation: "visibility", Tier: TierText, Schema: consistency.VerdictSchema})
		if !IsMalformed(err) {
			t.Errorf("error = %v, want malformed", err)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		text := providers.NewMockClient()
		text.ShouldFail = true
		o := newTestOracle(t, text, nil)

		_, err := o.Query(context.Background(), Query{Operation: "describe_state", Tier: TierText})
		var oe *Error
		if !errors.As(err, &oe) {
			t.Fatalf("error = %v, want *Error", err)
		}
		if IsMalformed(err) {
			t.Error("transport failure reported as malformed")
		}
	})

	t.Run("unknown tier", func(t *testing.T) {
		o := newTestOracle(t, providers.NewMockClient(), nil)
		if _, err := o.Query(context.Background(), Query{Operation: "x", Tier: "audio"}); err == nil {
			t.Error("expected error for unknown tier")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		o := newTestOracle(t, providers.NewMockClient(), nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := o.Query(ctx, Query{Operation: "x", Tier: TierText}); !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

func TestLLMOracle_Records(t *testing.T) {
	w := &memWriter{}
	rec := llmcall.NewRecorder(llmcall.RecorderConfig{Writer: w})
	defer rec.Stop()

	text := providers.NewMockClient()
	o, err := NewLLMOracle(LLMConfig{Text: Model{Client: text, Name: "gpt-4o-mini"}, RunID: "run-1", Recorder: rec})
	if err != nil {
		t.Fatal(err)
	}

	o.Query(context.Background(), Query{Operation: "visibility", Tier: TierText, ReportID: "7", PromptKey: "k", PromptHash: "h"})
	text.ResponseText = "garbage"
	o.Query(context.Background(), Query{Operation: "text_reflection", Tier: TierText, ReportID: "7"})

	if err := rec.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(w.calls) != 2 {
		t.Fatalf("recorded %d calls, want 2", len(w.calls))
	}
	first, second := w.calls[0], w.calls[1]
	if first.RunID != "run-1" || first.ReportID != "7" || first.PromptKey != "k" || !first.Success {
		t.Errorf("first call = %+v", first)
	}
	if second.Success || second.Error == "" {
		t.Errorf("malformed call recorded as success: %+v", second)
	}
}

func TestNewLLMOracle(t *testing.T) {
	if _, err := NewLLMOracle(LLMConfig{}); err == nil {
		t.Error("expected error without clients")
	}

	vision := providers.NewMockClient()
	o, err := NewLLMOracle(LLMConfig{Vision: Model{Client: vision}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.Query(context.Background(), Query{Operation: "x", Tier: TierText}); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if vision.RequestCount() != 1 {
		t.Error("text tier should fall back to the vision client")
	}
}

func TestUsage(t *testing.T) {
	var u Usage
	u.Add(Usage{InputTokens: 1000, OutputTokens: 50, InputCost: 0.00015, OutputCost: 0.00003})
	u.Add(Usage{InputTokens: 10, OutputTokens: 5})
	if u.Tokens() != 1065 {
		t.Errorf("Tokens() = %d", u.Tokens())
	}
	want := "Input token: 1010 ($0.000150); Output token: 55 ($0.000030)"
	if u.String() != want {
		t.Errorf("String() = %q, want %q", u.String(), want)
	}
}
