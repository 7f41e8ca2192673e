package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/reportcheck/internal/config"
	"github.com/jackzampolin/reportcheck/internal/engine"
	"github.com/jackzampolin/reportcheck/internal/home"
	"github.com/jackzampolin/reportcheck/internal/llmcall"
	"github.com/jackzampolin/reportcheck/internal/metrics"
	"github.com/jackzampolin/reportcheck/internal/ocr"
	"github.com/jackzampolin/reportcheck/internal/oracle"
	"github.com/jackzampolin/reportcheck/internal/prompts"
	"github.com/jackzampolin/reportcheck/internal/prompts/consistency"
	"github.com/jackzampolin/reportcheck/internal/providers"
	"github.com/jackzampolin/reportcheck/internal/store"
	"github.com/jackzampolin/reportcheck/internal/svcctx"
)

// setupOptions selects which services a command needs.
type setupOptions struct {
	logFile bool // tee logs into storage.log_file for later stats
	store   bool // open the SQLite store and record LLM calls into it
	watch   bool // hot-reload config and providers
}

// setup builds the shared services, attaches them to the command context
// and returns a cleanup func that flushes and closes them.
func setup(cmd *cobra.Command, opts setupOptions) (context.Context, func(), error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, nil, err
	}

	mgr, err := newConfigManager(h)
	if err != nil {
		return nil, nil, err
	}
	cfg := mgr.Get()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var w io.Writer = os.Stdout
	if opts.logFile && cfg.Storage.LogFile != "" {
		path := h.Resolve(cfg.Storage.LogFile)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		closers = append(closers, func() { f.Close() })
		w = io.MultiWriter(os.Stdout, f)
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	mgr.SetLogger(logger)

	registry := providers.NewRegistry()
	registry.SetLogger(logger)
	registry.Reload(cfg.ToProviderRegistryConfig())
	if opts.watch && mgr.File() != "" {
		mgr.OnChange(func(c *config.Config) {
			registry.Reload(c.ToProviderRegistryConfig())
		})
		mgr.WatchConfig()
	}

	promptDir := cfg.Oracle.PromptDir
	if promptDir == "" {
		promptDir = h.PromptsPath()
	}
	resolver := prompts.NewResolver(prompts.NewStore(h.Resolve(promptDir)), logger)
	consistency.RegisterPrompts(resolver)

	svc := &svcctx.Services{
		Config:   mgr,
		Registry: registry,
		Prompts:  resolver,
		Metrics:  metrics.Default(),
		Logger:   logger,
		Home:     h,
	}

	if opts.store {
		st, err := store.Open(h.Resolve(cfg.Storage.Database))
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { st.Close() })
		svc.Store = st

		rec := llmcall.NewRecorder(llmcall.RecorderConfig{Writer: st, Logger: logger})
		closers = append(closers, rec.Stop)
		svc.Recorder = rec
	}

	return svcctx.WithServices(cmd.Context(), svc), cleanup, nil
}

// newEngine wires an engine for strategy from the services in ctx. An empty
// strategy uses engine.strategy from config.
func newEngine(ctx context.Context, strategy, runID string) (*engine.Engine, error) {
	svc := svcctx.ServicesFrom(ctx)
	cfg := svc.Config.Get()

	if strategy == "" {
		strategy = cfg.Engine.Strategy
	}
	s, err := engine.ParseStrategy(strategy)
	if err != nil {
		return nil, err
	}

	o, err := newOracle(svc, cfg, runID)
	if err != nil {
		return nil, err
	}
	var text engine.TextExtractor
	if s.UsesOCR() {
		pipeline, err := newPipeline(svc, cfg)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", s, err)
		}
		text = pipeline
	}

	return engine.New(engine.Config{
		Judge:    oracle.NewJudge(oracle.JudgeConfig{Oracle: o, Prompts: svc.Prompts, Logger: svc.Logger}),
		OCR:      text,
		Strategy: s,
		Metrics:  svc.Metrics,
		Logger:   svc.Logger,
	})
}

func newOracle(svc *svcctx.Services, cfg *config.Config, runID string) (*oracle.LLMOracle, error) {
	tier := func(provider, model string) oracle.Model {
		if provider == "" {
			return oracle.Model{}
		}
		if !svc.Registry.HasLLM(provider) {
			svc.Logger.Warn("oracle provider not available", "provider", provider)
			return oracle.Model{}
		}
		return oracle.Model{Client: svc.Registry.Client(provider), Name: model}
	}

	o, err := oracle.NewLLMOracle(oracle.LLMConfig{
		Text:        tier(cfg.Oracle.TextProvider, cfg.Oracle.TextModel),
		Vision:      tier(cfg.Oracle.VisionProvider, cfg.Oracle.VisionModel),
		Temperature: cfg.Oracle.Temperature,
		MaxTokens:   cfg.Oracle.MaxTokens,
		Timeout:     cfg.OracleTimeout(),
		RunID:       runID,
		Recorder:    svc.Recorder,
		Metrics:     svc.Metrics,
		Logger:      svc.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (registered providers: %v; check API keys)", err, svc.Registry.ListLLM())
	}
	return o, nil
}

func newPipeline(svc *svcctx.Services, cfg *config.Config) (*ocr.Pipeline, error) {
	detector, err := ocr.NewDetector(cfg.ToDetectorConfig())
	if err != nil {
		return nil, err
	}
	return ocr.NewPipeline(ocr.PipelineConfig{
		Detector:  detector,
		Threshold: cfg.OCR.Threshold,
		Metrics:   svc.Metrics,
		Logger:    svc.Logger,
	}), nil
}
