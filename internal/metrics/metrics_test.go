package metrics

import (
	"errors"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jackzampolin/reportcheck/internal/llmcall"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNew(reg)

	m.ObserveOracleCall("visibility", "text", 1000, 20, 0.0002, time.Second, nil)
	m.ObserveOracleCall("vision", "vision", 2000, 30, 0.005, time.Second, errors.New("boom"))
	m.ObserveDecision("full", true, 3*time.Second)
	m.IncDecisionFailure("full")
	m.ObserveDetection("paddle", nil)

	if got := testutil.ToFloat64(m.oracleCalls.WithLabelValues("visibility", "text", "ok")); got != 1 {
		t.Errorf("ok calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.oracleCalls.WithLabelValues("vision", "vision", "error")); got != 1 {
		t.Errorf("error calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.oracleTokens.WithLabelValues("text", "input")); got != 1000 {
		t.Errorf("input tokens = %v, want 1000", got)
	}
	if got := testutil.ToFloat64(m.decisions.WithLabelValues("full", "true")); got != 1 {
		t.Errorf("decisions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.decisionFailures.WithLabelValues("full")); got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}

	t.Run("re-registration reuses collectors", func(t *testing.T) {
		again := MustNew(reg)
		again.IncDecisionFailure("full")
		if got := testutil.ToFloat64(m.decisionFailures.WithLabelValues("full")); got != 2 {
			t.Errorf("failures = %v, want 2", got)
		}
	})

	t.Run("handler", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		if !strings.Contains(rec.Body.String(), "reportcheck_oracle_calls_total") {
			t.Error("handler output missing oracle counter")
		}
	})

	t.Run("nil metrics are no-ops", func(t *testing.T) {
		var nilMetrics *Metrics
		nilMetrics.ObserveOracleCall("x", "text", 1, 1, 1, time.Second, nil)
		nilMetrics.ObserveDecision("full", false, time.Second)
		nilMetrics.IncDecisionFailure("full")
		nilMetrics.ObserveDetection("x", nil)
	})
}

func TestAggregation(t *testing.T) {
	calls := []*llmcall.Call{
		{ReportID: "1", Operation: "visibility", Model: "gpt-4o-mini", InputTokens: 100, OutputTokens: 10, InputCost: 0.1, OutputCost: 0.01, LatencyMs: 1000, Success: true},
		{ReportID: "1", Operation: "vision", Model: "gpt-4o", InputTokens: 200, OutputTokens: 20, InputCost: 0.2, OutputCost: 0.02, LatencyMs: 3000, Success: true},
		{ReportID: "2", Operation: "visibility", Model: "gpt-4o-mini", InputTokens: 100, OutputTokens: 10, InputCost: 0.1, OutputCost: 0.01, LatencyMs: 2000, Success: false},
	}

	s := Summarize(calls)
	if s.Count != 3 || s.SuccessCount != 2 || s.ErrorCount != 1 || s.TotalTokens != 440 {
		t.Errorf("Summarize() = %+v", s)
	}
	if math.Abs(s.TotalCostUSD-0.44) > 1e-9 {
		t.Errorf("TotalCostUSD = %v", s.TotalCostUSD)
	}
	if s.AvgTimeSeconds != 2 {
		t.Errorf("AvgTimeSeconds = %v", s.AvgTimeSeconds)
	}

	d := Detailed(calls)
	if d.LatencyMin != 1 || d.LatencyMax != 3 || d.LatencyP50 != 2 {
		t.Errorf("latency = min %v max %v p50 %v", d.LatencyMin, d.LatencyMax, d.LatencyP50)
	}
	if d.TotalInputTokens != 400 || d.TotalOutputTokens != 40 {
		t.Errorf("tokens = %d/%d", d.TotalInputTokens, d.TotalOutputTokens)
	}

	byOp := DetailedByOperation(calls)
	if byOp["visibility"].Count != 2 || byOp["vision"].Count != 1 {
		t.Errorf("DetailedByOperation() = %+v", byOp)
	}

	byReport := CostByReport(calls)
	if math.Abs(byReport["1"]-0.33) > 1e-9 || math.Abs(byReport["2"]-0.11) > 1e-9 {
		t.Errorf("CostByReport() = %v", byReport)
	}
	if byModel := CostByModel(calls); len(byModel) != 2 {
		t.Errorf("CostByModel() = %v", byModel)
	}
	if Detailed(nil).Count != 0 || Summarize(nil).AvgCostUSD != 0 {
		t.Error("empty input should yield zero stats")
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		values []float64
		p      float64
		want   float64
	}{
		{nil, 50, 0},
		{[]float64{5}, 99, 5},
		{[]float64{1, 2, 3, 4, 5}, 50, 3},
		{[]float64{1, 2}, 50, 1.5},
		{[]float64{1, 2, 3}, 100, 3},
	}
	for _, tt := range tests {
		if got := percentile(tt.values, tt.p); got != tt.want {
			t.Errorf("percentile(%v, %v) = %v, want %v", tt.values, tt.p, got, tt.want)
		}
	}
}
