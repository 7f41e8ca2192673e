package llmcall

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackzampolin/reportcheck/internal/providers"
)

type memWriter struct {
	mu      sync.Mutex
	calls   []*Call
	batches int
	err     error
}

func (w *memWriter) SaveCalls(ctx context.Context, calls []*Call) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches++
	if w.err != nil {
		return w.err
	}
	w.calls = append(w.calls, calls...)
	return nil
}

func (w *memWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.calls)
}

func TestFromChatResult(t *testing.T) {
	if FromChatResult(nil, RecordOptions{}) != nil {
		t.Error("expected nil for nil result")
	}

	temp := 0.0
	call := FromChatResult(&providers.ChatResult{
		Content:          `{"result": true}`,
		PromptTokens:     1000,
		CompletionTokens: 20,
		InputCostUSD:     0.00015,
		OutputCostUSD:    0.000012,
		ExecutionTime:    1500 * time.Millisecond,
		Provider:         "openai",
		ModelUsed:        "gpt-4o-mini",
		Success:          true,
	}, RecordOptions{
		ReportID:    "42",
		Operation:   "visibility",
		PromptKey:   "consistency.visibility.system",
		PromptHash:  "abc",
		Temperature: &temp,
	})

	if call.ID == "" {
		t.Error("expected generated ID")
	}
	if call.LatencyMs != 1500 || call.ReportID != "42" || call.Operation != "visibility" {
		t.Errorf("call = %+v", call)
	}
	if call.Cost() != 0.00015+0.000012 {
		t.Errorf("Cost() = %v", call.Cost())
	}
	if call.Error != "" {
		t.Errorf("Error = %q on success", call.Error)
	}

	failed := FromChatResult(&providers.ChatResult{Success: false, ErrorMessage: "boom"}, RecordOptions{})
	if failed.Error != "boom" {
		t.Errorf("Error = %q, want boom", failed.Error)
	}
}

func TestRecorder(t *testing.T) {
	t.Run("flush writes queued calls", func(t *testing.T) {
		w := &memWriter{}
		r := NewRecorder(RecorderConfig{Writer: w, BatchSize: 100, FlushInterval: time.Hour})
		defer r.Stop()

		for i := 0; i < 3; i++ {
			r.Record(&Call{Operation: "visibility"})
		}
		if err := r.Flush(context.Background()); err != nil {
			t.Fatalf("Flush() error = %v", err)
		}
		if w.count() != 3 {
			t.Errorf("written = %d, want 3", w.count())
		}
	})

	t.Run("batch size triggers write", func(t *testing.T) {
		w := &memWriter{}
		r := NewRecorder(RecorderConfig{Writer: w, BatchSize: 2, FlushInterval: time.Hour})
		r.Record(&Call{})
		r.Record(&Call{})
		r.Record(&Call{})
		r.Stop()

		if w.count() != 3 {
			t.Errorf("written = %d, want 3", w.count())
		}
		if w.batches != 2 {
			t.Errorf("batches = %d, want 2", w.batches)
		}
	})

	t.Run("record after stop is dropped", func(t *testing.T) {
		w := &memWriter{}
		r := NewRecorder(RecorderConfig{Writer: w})
		r.Stop()
		r.Stop()
		r.Record(&Call{})
		if w.count() != 0 {
			t.Errorf("written = %d, want 0", w.count())
		}
	})

	t.Run("writer errors are logged not returned", func(t *testing.T) {
		w := &memWriter{err: errors.New("disk full")}
		r := NewRecorder(RecorderConfig{Writer: w})
		r.Record(&Call{})
		if err := r.Flush(context.Background()); err != nil {
			t.Errorf("Flush() error = %v", err)
		}
		r.Stop()
	})

	t.Run("nil writer and nil recorder are no-ops", func(t *testing.T) {
		r := NewRecorder(RecorderConfig{})
		r.Record(&Call{})
		r.Stop()

		var nilRec *Recorder
		nilRec.Record(&Call{})
		if err := nilRec.Flush(context.Background()); err != nil {
			t.Error(err)
		}
	})
}
