// Package prompts provides prompt management with embedded defaults and
// file-based overrides.
//
// Embedded .tmpl files in code are the source of truth for defaults. An
// override directory may shadow any prompt by key: the file
// <dir>/<key>.tmpl replaces the embedded text for every report.
//
// Resolution order:
//  1. Override file (if the directory is configured and the file exists)
//  2. Embedded default
//
// Every resolved prompt carries a hash of its text so recorded oracle calls
// can be traced back to the exact prompt version that produced them.
package prompts

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: consistency.visibility.system
	Text        string   // The prompt text (Go template for user prompts)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 hash of the text for change detection
}

// ResolvedPrompt is the result of resolving a prompt.
type ResolvedPrompt struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Variables  []string `json:"variables,omitempty"`
	IsOverride bool     `json:"is_override"` // true if read from the override directory
	Hash       string   `json:"hash"`
}
