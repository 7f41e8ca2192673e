package providers

import (
	"strings"
	"sync"
)

// Price is the USD cost of one token.
type Price struct {
	Input  float64 `json:"input" yaml:"input"`
	Output float64 `json:"output" yaml:"output"`
}

// Pricing maps model names to per-token prices.
type Pricing struct {
	mu     sync.RWMutex
	models map[string]Price
}

// DefaultPricing is seeded with list prices for the models the oracle tiers
// use out of the box. Override entries from config with Set.
var DefaultPricing = NewPricing(map[string]Price{
	"gpt-4o-mini":               {Input: 0.00000015, Output: 0.0000006},
	"gpt-4o":                    {Input: 0.0000025, Output: 0.00001},
	"gpt-4.1-mini":              {Input: 0.0000004, Output: 0.0000016},
	"gpt-4.1":                   {Input: 0.000002, Output: 0.000008},
	"claude-3-5-haiku-latest":   {Input: 0.0000008, Output: 0.000004},
	"claude-sonnet-4-5":         {Input: 0.000003, Output: 0.000015},
	"gemini-2.0-flash":          {Input: 0.0000001, Output: 0.0000004},
	"gemini-2.5-pro":            {Input: 0.00000125, Output: 0.00001},
	"deepseek-chat":             {Input: 0.00000027, Output: 0.0000011},
	"openai/gpt-4o-mini":        {Input: 0.00000015, Output: 0.0000006},
	"openai/gpt-4o":             {Input: 0.0000025, Output: 0.00001},
	"anthropic/claude-sonnet-4": {Input: 0.000003, Output: 0.000015},
})

// NewPricing creates a pricing table.
func NewPricing(models map[string]Price) *Pricing {
	p := &Pricing{models: make(map[string]Price, len(models))}
	for k, v := range models {
		p.models[k] = v
	}
	return p
}

// Set overrides the price of one model.
func (p *Pricing) Set(model string, price Price) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.models[model] = price
}

// Lookup returns the price for model. Dated snapshots ("gpt-4o-2024-08-06")
// fall back to the longest known prefix.
func (p *Pricing) Lookup(model string) (Price, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if price, ok := p.models[model]; ok {
		return price, true
	}
	best := ""
	for name := range p.models {
		if strings.HasPrefix(model, name+"-") && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return Price{}, false
	}
	return p.models[best], true
}

// Cost returns the input and output cost in USD. Unknown models cost zero.
func (p *Pricing) Cost(model string, inputTokens, outputTokens int) (in, out float64) {
	price, ok := p.Lookup(model)
	if !ok {
		return 0, 0
	}
	return float64(inputTokens) * price.Input, float64(outputTokens) * price.Output
}
