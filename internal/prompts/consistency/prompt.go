// Package consistency holds the instruction prompts and answer schemas for
// the report consistency judgments.
package consistency

import (
	"embed"
	"fmt"
	"strings"

	"github.com/jackzampolin/reportcheck/internal/prompts"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Judgment operations. Each has a system prompt; the ones whose user message
// is more than the raw report text also have a user template.
const (
	OpVisibility     = "visibility"
	OpTextReflection = "text_reflection"
	OpOCRText        = "ocr_text"
	OpVision         = "vision"
	OpInvisibility   = "invisibility"
	OpDescribeState  = "describe_state"
	OpVisualState    = "visual_state"
	OpTextualState   = "textual_state"
	OpBare           = "bare"
)

// Operations lists every judgment in decision-tree order.
var Operations = []string{
	OpVisibility,
	OpTextReflection,
	OpOCRText,
	OpVision,
	OpInvisibility,
	OpDescribeState,
	OpVisualState,
	OpTextualState,
	OpBare,
}

var descriptions = map[string]string{
	OpVisibility:     "Whether the issue's symptom can be observed in a screenshot",
	OpTextReflection: "Whether the issue is stated by on-screen text alone",
	OpOCRText:        "Compare the issue against OCR text of the screenshot",
	OpVision:         "Compare the issue against the screenshot image",
	OpInvisibility:   "Whether OCR text directly confirms the issue",
	OpDescribeState:  "One-sentence app state description from OCR text",
	OpVisualState:    "Contextual alignment of the issue with the screenshot state",
	OpTextualState:   "Contextual alignment of the issue with a described state",
	OpBare:           "Single-shot screenshot consistency judgment",
}

// SystemKey returns the prompt key for an operation's system prompt.
func SystemKey(op string) string {
	return "consistency." + op + ".system"
}

// UserKey returns the prompt key for an operation's user template.
func UserKey(op string) string {
	return "consistency." + op + ".user"
}

// SystemPrompt returns the embedded system prompt for op.
func SystemPrompt(op string) string {
	text, _ := readTemplate(op + ".system.tmpl")
	return text
}

// UserTemplate returns the embedded user template for op, if it has one.
func UserTemplate(op string) (string, bool) {
	return readTemplate(op + ".user.tmpl")
}

func readTemplate(name string) (string, bool) {
	data, err := templates.ReadFile("templates/" + name)
	if err != nil {
		return "", false
	}
	return strings.TrimRight(string(data), "\n"), true
}

// UserData is the data every user template is rendered with.
type UserData struct {
	Text     string   // report description
	Snippets []string // OCR text snippets
	State    string   // app state description
}

// UserPrompt renders the user message for op from tmpl. An empty template
// means the message is the report text itself.
func UserPrompt(tmpl string, data UserData) (string, error) {
	if tmpl == "" {
		return data.Text, nil
	}
	out, err := prompts.Render(tmpl, data)
	if err != nil {
		return "", fmt.Errorf("user prompt: %w", err)
	}
	return out, nil
}

// RegisterPrompts registers every consistency prompt with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	for _, op := range Operations {
		r.Register(prompts.EmbeddedPrompt{
			Key:         SystemKey(op),
			Text:        SystemPrompt(op),
			Description: descriptions[op] + " - system prompt",
		})
		if tmpl, ok := UserTemplate(op); ok {
			r.Register(prompts.EmbeddedPrompt{
				Key:         UserKey(op),
				Text:        tmpl,
				Description: descriptions[op] + " - user template",
			})
		}
	}
}
