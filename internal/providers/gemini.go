package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

const (
	GeminiName         = "gemini"
	geminiDefaultModel = "gemini-2.0-flash"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// GeminiClient implements LLMClient with the google.golang.org/genai SDK.
type GeminiClient struct {
	client       *genai.Client
	apiKey       string
	defaultModel string
	initErr      error // reported on first use
}

// NewGeminiClient creates a Gemini client. Initialization errors are deferred
// to the first Chat call so the registry can still list the provider.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = geminiDefaultModel
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		err = fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	return &GeminiClient{
		client:       client,
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		initErr:      err,
	}
}

// Name returns the client identifier.
func (c *GeminiClient) Name() string {
	return GeminiName
}

// Chat sends a generateContent request.
func (c *GeminiClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  GeminiName,
		ModelUsed: model,
	}
	if c.initErr != nil {
		result.ErrorType = "init_error"
		result.ErrorMessage = c.initErr.Error()
		return result, c.initErr
	}

	system, rest := splitSystem(req.Messages)
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.ResponseFormat != nil {
		config.ResponseMIMEType = "application/json"
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	response, err := c.client.Models.GenerateContent(ctx, model, toGeminiContents(rest), config)
	if err != nil {
		result.ErrorType = "api_error"
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("gemini generate content failed: %w", err)
	}

	content := response.Text()
	if content == "" {
		result.ErrorType = "empty_response"
		result.ErrorMessage = "empty response from Gemini"
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("empty response from Gemini")
	}

	result.Success = true
	result.Content = content
	if response.UsageMetadata != nil {
		result.PromptTokens = int(response.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(response.UsageMetadata.CandidatesTokenCount)
		result.TotalTokens = int(response.UsageMetadata.TotalTokenCount)
	}
	result.ExecutionTime = time.Since(start)
	result.applyPricing(model)
	result.parseIfRequested(req)
	return result, nil
}

func toGeminiContents(msgs []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == "assistant" {
			out = append(out, genai.NewContentFromText(m.Content, genai.RoleModel))
			continue
		}
		parts := []*genai.Part{genai.NewPartFromText(m.Content)}
		for _, img := range m.Images {
			parts = append(parts, genai.NewPartFromBytes(img, imageMediaType(img)))
		}
		out = append(out, genai.NewContentFromParts(parts, genai.RoleUser))
	}
	return out
}

var _ LLMClient = (*GeminiClient)(nil)
