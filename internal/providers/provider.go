package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"
)

// LLMClient is the interface every chat backend implements.
type LLMClient interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g., "openai").
	Name() string
}

// Message represents a chat message.
type Message struct {
	Role    string   `json:"role"` // "system", "user", "assistant"
	Content string   `json:"content"`
	Images  [][]byte `json:"-"` // JPEG/PNG bytes for vision models
}

// ResponseFormat requests structured output.
type ResponseFormat struct {
	Type       string          `json:"type"` // "json_object" or "json_schema"
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

// JSONObject is the plain JSON-mode response format.
var JSONObject = &ResponseFormat{Type: "json_object"}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	// Required
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	// Generation parameters
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// Structured output
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// ChatResult is the complete response from an LLM call.
type ChatResult struct {
	// Response content
	Content    string          `json:"content"`
	ParsedJSON json.RawMessage `json:"parsed_json,omitempty"` // set when ResponseFormat was requested and parsing succeeded

	// Token counts
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// Cost and timing
	InputCostUSD  float64       `json:"input_cost_usd"`
	OutputCostUSD float64       `json:"output_cost_usd"`
	CostUSD       float64       `json:"cost_usd"`
	ExecutionTime time.Duration `json:"execution_time"`

	// Provider info
	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	// Request tracking
	RequestID string `json:"request_id"`

	// Success/error
	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// applyPricing fills the cost fields from the token counts.
func (r *ChatResult) applyPricing(model string) {
	r.InputCostUSD, r.OutputCostUSD = DefaultPricing.Cost(model, r.PromptTokens, r.CompletionTokens)
	r.CostUSD = r.InputCostUSD + r.OutputCostUSD
}

// parseIfRequested fills ParsedJSON when structured output was requested.
func (r *ChatResult) parseIfRequested(req *ChatRequest) {
	if req.ResponseFormat == nil || r.Content == "" {
		return
	}
	parsed, err := ParseStructuredJSON(r.Content)
	if err != nil {
		r.ErrorType = "json_parse"
		r.ErrorMessage = err.Error()
		return
	}
	r.ParsedJSON = parsed
}

// imageDataURL encodes an image as a base64 data URL.
func imageDataURL(img []byte) string {
	return "data:" + imageMediaType(img) + ";base64," + base64.StdEncoding.EncodeToString(img)
}

// imageMediaType sniffs PNG; everything else is sent as JPEG.
func imageMediaType(img []byte) string {
	if len(img) >= 8 && string(img[:8]) == "\x89PNG\r\n\x1a\n" {
		return "image/png"
	}
	return "image/jpeg"
}

// splitSystem separates system prompts from the conversation.
func splitSystem(msgs []Message) (system string, rest []Message) {
	for _, m := range msgs {
		if m.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
