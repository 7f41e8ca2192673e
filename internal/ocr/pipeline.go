package ocr

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackzampolin/reportcheck/internal/geometry"
	"github.com/jackzampolin/reportcheck/internal/metrics"
)

// DefaultConfidenceThreshold drops detections the engine is unsure about.
const DefaultConfidenceThreshold = 0.8

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	Detector  Detector
	Threshold float64 // default DefaultConfidenceThreshold
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Pipeline normalizes detector output into readable word lists.
type Pipeline struct {
	detector  Detector
	threshold float64
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewPipeline creates a pipeline. A nil detector yields no text for every image.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultConfidenceThreshold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		detector:  cfg.Detector,
		threshold: cfg.Threshold,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// Extract runs the detector on image and normalizes the result.
// Detector failures are logged and produce an empty list.
func (p *Pipeline) Extract(ctx context.Context, image []byte) []string {
	tokens, err := p.detectTokens(ctx, image)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			p.logger.Warn("text detection cancelled", "error", err)
		} else {
			p.logger.Warn("text detection failed, continuing without OCR text", "error", err)
		}
		return []string{}
	}
	return Words(tokens)
}

// Tokens runs the detector and returns merged tokens before word splitting.
func (p *Pipeline) Tokens(ctx context.Context, image []byte) ([]Token, error) {
	return p.detectTokens(ctx, image)
}

func (p *Pipeline) detectTokens(ctx context.Context, image []byte) ([]Token, error) {
	if p.detector == nil {
		return nil, ErrDetectionUnavailable
	}
	detections, err := p.detector.Detect(ctx, image)
	p.metrics.ObserveDetection(p.detector.Name(), err)
	if err != nil {
		return nil, err
	}
	return p.Merge(detections), nil
}

// Normalize filters, merges and splits detections into words.
func (p *Pipeline) Normalize(detections []Detection) []string {
	return Words(p.Merge(detections))
}

// Merge filters detections below the threshold, boxes them, and applies the
// intersect merge followed by the same-line merge.
func (p *Pipeline) Merge(detections []Detection) []Token {
	tokens := make([]Token, 0, len(detections))
	for _, d := range detections {
		if d.Confidence < p.threshold {
			continue
		}
		box, ok := geometry.Bound(d.Points)
		if !ok {
			continue
		}
		tokens = append(tokens, Token{ID: len(tokens), Content: d.Content, Box: box})
	}
	if len(tokens) == 0 {
		return tokens
	}
	tokens = MergeIntersected(tokens)
	return MergeSentences(tokens)
}

// Words splits each token's content on whitespace runs, keeping token order.
func Words(tokens []Token) []string {
	words := make([]string, 0, len(tokens))
	for _, t := range tokens {
		words = append(words, strings.Fields(t.Content)...)
	}
	return words
}
