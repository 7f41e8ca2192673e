// Package oracle is the judgment capability the decision engine consults.
//
// An Oracle answers one structured question per Query: given instructions,
// a user message and optionally a screenshot, it returns a JSON payload and
// the token usage and cost of producing it. Judge layers the typed
// consistency judgments on top of any Oracle.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Tier selects the model class used for a query.
type Tier string

const (
	// TierText is the cheaper text-only model.
	TierText Tier = "text"
	// TierVision is the multimodal model used when an image is attached.
	TierVision Tier = "vision"
)

// Query is one request to the oracle.
type Query struct {
	Operation    string // judgment name, used for logging and recording
	Instructions string // system prompt
	Text         string // user message
	Image        []byte // optional screenshot
	Tier         Tier
	ReportID     string

	// Schema, if set, is the JSON schema the answer must satisfy.
	Schema map[string]any

	// Prompt traceability
	PromptKey  string
	PromptHash string
}

// Usage is the metered cost of one answer.
type Usage struct {
	InputTokens  int     `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int     `json:"output_tokens" yaml:"output_tokens"`
	InputCost    float64 `json:"input_cost_usd" yaml:"input_cost_usd"`
	OutputCost   float64 `json:"output_cost_usd" yaml:"output_cost_usd"`
}

// Cost is the total USD cost.
func (u Usage) Cost() float64 {
	return u.InputCost + u.OutputCost
}

// Tokens is the total token count.
func (u Usage) Tokens() int {
	return u.InputTokens + u.OutputTokens
}

// Add accumulates o into u.
func (u *Usage) Add(o Usage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.InputCost += o.InputCost
	u.OutputCost += o.OutputCost
}

// String renders the usage in the log format the stats command parses.
func (u Usage) String() string {
	return fmt.Sprintf("Input token: %d ($%.6f); Output token: %d ($%.6f)",
		u.InputTokens, u.InputCost, u.OutputTokens, u.OutputCost)
}

// Answer is a structured oracle response.
type Answer struct {
	Payload  json.RawMessage
	Usage    Usage
	Model    string
	Provider string
}

// Oracle answers structured judgment queries.
type Oracle interface {
	Query(ctx context.Context, q Query) (*Answer, error)
}

// ErrMalformed is wrapped by Error when the response is not the expected
// structured shape.
var ErrMalformed = errors.New("malformed oracle response")

// Error is returned when the oracle cannot produce a well-formed answer,
// whether from a transport failure or an unparseable response.
type Error struct {
	Op    string // judgment operation
	Model string
	Raw   string // raw response content, if any
	Err   error
}

func (e *Error) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("oracle %s (%s): %v", e.Op, e.Model, e.Err)
	}
	return fmt.Sprintf("oracle %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsMalformed reports whether err is an oracle error caused by an
// unparseable response.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}
