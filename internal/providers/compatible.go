package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goopenai "github.com/sashabaranov/go-openai"
)

const (
	DeepSeekName    = "deepseek"
	CompatibleName  = "openai-compatible"
	deepseekBaseURL = "https://api.deepseek.com/v1"
)

// CompatibleConfig configures a client for any OpenAI-compatible endpoint.
type CompatibleConfig struct {
	Name         string // reported provider name; defaults to "deepseek"
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// CompatibleClient speaks the OpenAI chat protocol to third-party endpoints
// (DeepSeek, vLLM, Ollama) through go-openai.
type CompatibleClient struct {
	client       *goopenai.Client
	name         string
	apiKey       string
	baseURL      string
	defaultModel string
}

// NewCompatibleClient creates an OpenAI-compatible client. With no BaseURL it
// targets DeepSeek.
func NewCompatibleClient(cfg CompatibleConfig) *CompatibleClient {
	if cfg.Name == "" {
		cfg.Name = DeepSeekName
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = deepseekBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "deepseek-chat"
	}

	config := goopenai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL

	return &CompatibleClient{
		client:       goopenai.NewClientWithConfig(config),
		name:         cfg.Name,
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
	}
}

// Name returns the client identifier.
func (c *CompatibleClient) Name() string {
	return c.name
}

// Chat sends a chat completion request.
func (c *CompatibleClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
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
		Provider:  c.name,
		ModelUsed: model,
	}

	creq := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    toCompatibleMessages(req.Messages),
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}
	if req.ResponseFormat != nil {
		creq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		result.ErrorType = "api_error"
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("%s chat completion failed: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		result.ErrorType = "empty_response"
		result.ErrorMessage = "no choices in response"
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("no choices in response")
	}

	result.Success = true
	result.Content = resp.Choices[0].Message.Content
	if resp.Model != "" {
		result.ModelUsed = resp.Model
	}
	result.PromptTokens = resp.Usage.PromptTokens
	result.CompletionTokens = resp.Usage.CompletionTokens
	result.TotalTokens = resp.Usage.TotalTokens
	result.ExecutionTime = time.Since(start)
	result.applyPricing(model)
	result.parseIfRequested(req)
	return result, nil
}

func toCompatibleMessages(msgs []Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		if len(m.Images) == 0 {
			out = append(out, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
			continue
		}
		parts := []goopenai.ChatMessagePart{{Type: goopenai.ChatMessagePartTypeText, Text: m.Content}}
		for _, img := range m.Images {
			parts = append(parts, goopenai.ChatMessagePart{
				Type: goopenai.ChatMessagePartTypeImageURL,
				ImageURL: &goopenai.ChatMessageImageURL{
					URL:    imageDataURL(img),
					Detail: goopenai.ImageURLDetailHigh,
				},
			})
		}
		out = append(out, goopenai.ChatCompletionMessage{Role: m.Role, MultiContent: parts})
	}
	return out
}

var _ LLMClient = (*CompatibleClient)(nil)
