// Package metrics provides Prometheus collectors for oracle and decision
// activity, and cost and usage aggregation over recorded LLM calls.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reportcheck"

// Metrics exposes Prometheus collectors that report decision activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	oracleCalls      *prometheus.CounterVec
	oracleTokens     *prometheus.CounterVec
	oracleCost       *prometheus.CounterVec
	oracleDuration   *prometheus.HistogramVec
	decisions        *prometheus.CounterVec
	decisionFailures *prometheus.CounterVec
	decisionDuration *prometheus.HistogramVec
	detections       *prometheus.CounterVec
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the package-level metrics registered with the global
// Prometheus registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew constructs Metrics using the provided registerer. Collectors that
// are already registered with a matching type are reused; any other
// registration error panics.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		oracleCalls: mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "calls_total",
			Help:      "Oracle round-trips by operation, tier and status.",
		}, []string{"operation", "tier", "status"})),
		oracleTokens: mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "tokens_total",
			Help:      "Tokens consumed by the oracle by tier and direction.",
		}, []string{"tier", "direction"})),
		oracleCost: mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "cost_usd_total",
			Help:      "USD spent on oracle calls by tier.",
		}, []string{"tier"})),
		oracleDuration: mustRegister(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "call_duration_seconds",
			Help:      "Oracle round-trip latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"})),
		decisions: mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "decisions_total",
			Help:      "Completed decisions by strategy and verdict.",
		}, []string{"strategy", "consistent"})),
		decisionFailures: mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "decision_failures_total",
			Help:      "Reports that produced no verdict, by strategy.",
		}, []string{"strategy"})),
		decisionDuration: mustRegister(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "decision_duration_seconds",
			Help:      "Wall time to decide one report, by strategy.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"strategy"})),
		detections: mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ocr",
			Name:      "detections_total",
			Help:      "OCR detector invocations by detector and status.",
		}, []string{"detector", "status"})),
	}
}

func mustRegister[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveOracleCall records one oracle round-trip.
func (m *Metrics) ObserveOracleCall(operation, tier string, inputTokens, outputTokens int, costUSD float64, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.oracleCalls.WithLabelValues(operation, tier, status(err)).Inc()
	m.oracleDuration.WithLabelValues(operation).Observe(d.Seconds())
	m.oracleTokens.WithLabelValues(tier, "input").Add(float64(inputTokens))
	m.oracleTokens.WithLabelValues(tier, "output").Add(float64(outputTokens))
	m.oracleCost.WithLabelValues(tier).Add(costUSD)
}

// ObserveDecision records a completed decision.
func (m *Metrics) ObserveDecision(strategy string, consistent bool, d time.Duration) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(strategy, strconv.FormatBool(consistent)).Inc()
	m.decisionDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

// IncDecisionFailure counts a report that produced no verdict.
func (m *Metrics) IncDecisionFailure(strategy string) {
	if m == nil {
		return
	}
	m.decisionFailures.WithLabelValues(strategy).Inc()
}

// ObserveDetection records one OCR detector invocation.
func (m *Metrics) ObserveDetection(detector string, err error) {
	if m == nil {
		return
	}
	m.detections.WithLabelValues(detector, status(err)).Inc()
}

// Handler serves the metrics gathered by g. A nil gatherer serves the
// global registry.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
