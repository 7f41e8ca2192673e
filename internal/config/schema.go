package config

import (
	"time"

	"github.com/jackzampolin/reportcheck/internal/ocr"
	"github.com/jackzampolin/reportcheck/internal/providers"
)

// Config holds reportcheck configuration.
// Stored at: {home}/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Oracle       OracleCfg                 `mapstructure:"oracle" yaml:"oracle"`
	OCR          OCRCfg                    `mapstructure:"ocr" yaml:"ocr"`
	Engine       EngineCfg                 `mapstructure:"engine" yaml:"engine"`
	Batch        BatchCfg                  `mapstructure:"batch" yaml:"batch"`
	Storage      StorageCfg                `mapstructure:"storage" yaml:"storage"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type           string `mapstructure:"type" yaml:"type"`             // "openai", "anthropic", "gemini", "deepseek", "openrouter", "openai-compatible"
	Model          string `mapstructure:"model" yaml:"model"`           // Default model name
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`     // Optional endpoint override
	RateLimit      int    `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per minute, 0 = unlimited
	MaxRetries     int    `mapstructure:"max_retries" yaml:"max_retries"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
}

// OracleCfg selects the provider and model for each oracle tier.
type OracleCfg struct {
	TextProvider   string  `mapstructure:"text_provider" yaml:"text_provider"`
	TextModel      string  `mapstructure:"text_model" yaml:"text_model"`
	VisionProvider string  `mapstructure:"vision_provider" yaml:"vision_provider"`
	VisionModel    string  `mapstructure:"vision_model" yaml:"vision_model"`
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"` // per round-trip
	PromptDir      string  `mapstructure:"prompt_dir" yaml:"prompt_dir"`           // prompt overrides, empty = {home}/prompts
}

// OCRCfg configures the text detector and normalization.
type OCRCfg struct {
	Detector       string   `mapstructure:"detector" yaml:"detector"` // "tesseract" (needs -tags tesseract), "google-vision", "paddle", "none"
	APIKey         string   `mapstructure:"api_key" yaml:"api_key"`   // google-vision only (supports ${ENV_VAR} syntax)
	Endpoint       string   `mapstructure:"endpoint" yaml:"endpoint"`
	Languages      []string `mapstructure:"languages" yaml:"languages"`
	Threshold      float64  `mapstructure:"threshold" yaml:"threshold"` // minimum detection confidence
	CacheSize      int      `mapstructure:"cache_size" yaml:"cache_size"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// EngineCfg configures the decision engine.
type EngineCfg struct {
	Strategy string `mapstructure:"strategy" yaml:"strategy"`
}

// BatchCfg configures batch runs.
type BatchCfg struct {
	Concurrency int  `mapstructure:"concurrency" yaml:"concurrency"`
	Resume      bool `mapstructure:"resume" yaml:"resume"`
}

// StorageCfg locates persistent files. Relative paths resolve against the
// home directory.
type StorageCfg struct {
	Database string `mapstructure:"database" yaml:"database"`
	ImageDir string `mapstructure:"image_dir" yaml:"image_dir"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file"` // empty disables the log file
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openai": {
				Type:           providers.OpenAIName,
				Model:          "gpt-4o-mini",
				APIKey:         "${OPENAI_API_KEY}",
				RateLimit:      500,
				MaxRetries:     3,
				TimeoutSeconds: 120,
				Enabled:        true,
			},
			"anthropic": {
				Type:           providers.AnthropicName,
				Model:          "claude-3-5-haiku-latest",
				APIKey:         "${ANTHROPIC_API_KEY}",
				RateLimit:      50,
				MaxRetries:     3,
				TimeoutSeconds: 120,
				Enabled:        true,
			},
			"gemini": {
				Type:           providers.GeminiName,
				Model:          "gemini-2.0-flash",
				APIKey:         "${GEMINI_API_KEY}",
				RateLimit:      60,
				TimeoutSeconds: 120,
				Enabled:        true,
			},
			"deepseek": {
				Type:           providers.DeepSeekName,
				Model:          "deepseek-chat",
				APIKey:         "${DEEPSEEK_API_KEY}",
				TimeoutSeconds: 120,
				Enabled:        true,
			},
			"openrouter": {
				Type:           providers.OpenRouterName,
				Model:          "openai/gpt-4o",
				APIKey:         "${OPENROUTER_API_KEY}",
				MaxRetries:     3,
				TimeoutSeconds: 120,
				Enabled:        true,
			},
		},
		Oracle: OracleCfg{
			TextProvider:   "openai",
			TextModel:      "gpt-4o-mini",
			VisionProvider: "openai",
			VisionModel:    "gpt-4o",
			Temperature:    0,
			MaxTokens:      1024,
			TimeoutSeconds: 120,
		},
		OCR: OCRCfg{
			Detector:       ocr.TesseractName,
			APIKey:         "${GOOGLE_VISION_API_KEY}",
			Languages:      []string{"eng"},
			Threshold:      ocr.DefaultConfidenceThreshold,
			CacheSize:      256,
			TimeoutSeconds: 60,
		},
		Engine: EngineCfg{
			Strategy: "full",
		},
		Batch: BatchCfg{
			Concurrency: 1,
		},
		Storage: StorageCfg{
			Database: "reportcheck.db",
			ImageDir: "images",
			LogFile:  "reportcheck.log",
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// ToDetectorConfig converts the OCR section for ocr.NewDetector.
func (c *Config) ToDetectorConfig() ocr.DetectorConfig {
	return ocr.DetectorConfig{
		Type:      c.OCR.Detector,
		APIKey:    ResolveEnvVars(c.OCR.APIKey),
		Endpoint:  c.OCR.Endpoint,
		Languages: c.OCR.Languages,
		Timeout:   seconds(c.OCR.TimeoutSeconds),
		CacheSize: c.OCR.CacheSize,
	}
}

// OracleTimeout is the per round-trip oracle timeout.
func (c *Config) OracleTimeout() time.Duration {
	return seconds(c.Oracle.TimeoutSeconds)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
