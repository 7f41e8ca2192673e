package metrics

import (
	"sort"
	"time"

	"github.com/jackzampolin/reportcheck/internal/llmcall"
)

// Summary provides a summary of a set of recorded calls.
type Summary struct {
	Count          int           `json:"count" yaml:"count"`
	TotalCostUSD   float64       `json:"total_cost_usd" yaml:"total_cost_usd"`
	TotalTokens    int           `json:"total_tokens" yaml:"total_tokens"`
	TotalTime      time.Duration `json:"total_time" yaml:"total_time"`
	SuccessCount   int           `json:"success_count" yaml:"success_count"`
	ErrorCount     int           `json:"error_count" yaml:"error_count"`
	AvgCostUSD     float64       `json:"avg_cost_usd" yaml:"avg_cost_usd"`
	AvgTokens      float64       `json:"avg_tokens" yaml:"avg_tokens"`
	AvgTimeSeconds float64       `json:"avg_time_seconds" yaml:"avg_time_seconds"`
}

// Summarize returns a summary of calls.
func Summarize(calls []*llmcall.Call) *Summary {
	s := &Summary{Count: len(calls)}
	for _, c := range calls {
		s.TotalCostUSD += c.Cost()
		s.TotalTokens += c.InputTokens + c.OutputTokens
		s.TotalTime += time.Duration(c.LatencyMs) * time.Millisecond
		if c.Success {
			s.SuccessCount++
		} else {
			s.ErrorCount++
		}
	}

	if s.Count > 0 {
		s.AvgCostUSD = s.TotalCostUSD / float64(s.Count)
		s.AvgTokens = float64(s.TotalTokens) / float64(s.Count)
		s.AvgTimeSeconds = s.TotalTime.Seconds() / float64(s.Count)
	}
	return s
}

// DetailedStats provides comprehensive statistics including percentiles and token breakdowns.
type DetailedStats struct {
	// Basic counts
	Count        int `json:"count" yaml:"count"`
	SuccessCount int `json:"success_count" yaml:"success_count"`
	ErrorCount   int `json:"error_count" yaml:"error_count"`

	// Cost
	TotalCostUSD float64 `json:"total_cost_usd" yaml:"total_cost_usd"`
	AvgCostUSD   float64 `json:"avg_cost_usd" yaml:"avg_cost_usd"`

	// Latency percentiles (seconds)
	LatencyP50 float64 `json:"latency_p50" yaml:"latency_p50"`
	LatencyP95 float64 `json:"latency_p95" yaml:"latency_p95"`
	LatencyP99 float64 `json:"latency_p99" yaml:"latency_p99"`
	LatencyAvg float64 `json:"latency_avg" yaml:"latency_avg"`
	LatencyMin float64 `json:"latency_min" yaml:"latency_min"`
	LatencyMax float64 `json:"latency_max" yaml:"latency_max"`

	// Token stats
	TotalInputTokens  int     `json:"total_input_tokens" yaml:"total_input_tokens"`
	TotalOutputTokens int     `json:"total_output_tokens" yaml:"total_output_tokens"`
	AvgInputTokens    float64 `json:"avg_input_tokens" yaml:"avg_input_tokens"`
	AvgOutputTokens   float64 `json:"avg_output_tokens" yaml:"avg_output_tokens"`
}

// Detailed returns detailed statistics including latency percentiles and token breakdowns.
func Detailed(calls []*llmcall.Call) *DetailedStats {
	stats := &DetailedStats{Count: len(calls)}
	if len(calls) == 0 {
		return stats
	}

	var latencies []float64
	for _, c := range calls {
		stats.TotalCostUSD += c.Cost()
		if c.Success {
			stats.SuccessCount++
		} else {
			stats.ErrorCount++
		}
		stats.TotalInputTokens += c.InputTokens
		stats.TotalOutputTokens += c.OutputTokens
		if c.LatencyMs > 0 {
			latencies = append(latencies, float64(c.LatencyMs)/1000)
		}
	}

	count := float64(stats.Count)
	stats.AvgCostUSD = stats.TotalCostUSD / count
	stats.AvgInputTokens = float64(stats.TotalInputTokens) / count
	stats.AvgOutputTokens = float64(stats.TotalOutputTokens) / count

	if len(latencies) > 0 {
		sort.Float64s(latencies)
		stats.LatencyMin = latencies[0]
		stats.LatencyMax = latencies[len(latencies)-1]
		var sum float64
		for _, l := range latencies {
			sum += l
		}
		stats.LatencyAvg = sum / float64(len(latencies))
		stats.LatencyP50 = percentile(latencies, 50)
		stats.LatencyP95 = percentile(latencies, 95)
		stats.LatencyP99 = percentile(latencies, 99)
	}

	return stats
}

// DetailedByOperation returns detailed stats grouped by oracle operation.
func DetailedByOperation(calls []*llmcall.Call) map[string]*DetailedStats {
	byOp := make(map[string][]*llmcall.Call)
	for _, c := range calls {
		byOp[c.Operation] = append(byOp[c.Operation], c)
	}
	result := make(map[string]*DetailedStats, len(byOp))
	for op, opCalls := range byOp {
		result[op] = Detailed(opCalls)
	}
	return result
}

// percentile calculates the p-th percentile from a sorted slice of values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	n := float64(len(sorted))
	idx := (p / 100.0) * (n - 1)

	// Interpolate between floor and ceil indices
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// CostBy groups total cost by the key returned for each call.
func CostBy(calls []*llmcall.Call, key func(*llmcall.Call) string) map[string]float64 {
	breakdown := make(map[string]float64)
	for _, c := range calls {
		breakdown[key(c)] += c.Cost()
	}
	return breakdown
}

// CostByOperation returns cost breakdown by oracle operation.
func CostByOperation(calls []*llmcall.Call) map[string]float64 {
	return CostBy(calls, func(c *llmcall.Call) string { return c.Operation })
}

// CostByModel returns cost breakdown by model.
func CostByModel(calls []*llmcall.Call) map[string]float64 {
	return CostBy(calls, func(c *llmcall.Call) string { return c.Model })
}

// CostByReport returns cost breakdown by report.
func CostByReport(calls []*llmcall.Call) map[string]float64 {
	return CostBy(calls, func(c *llmcall.Call) string { return c.ReportID })
}
