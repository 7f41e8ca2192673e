package consistency

import (
	"strings"
	"testing"

	"github.com/jackzampolin/reportcheck/internal/prompts"
)

func TestSystemPrompts(t *testing.T) {
	for _, op := range Operations {
		t.Run(op, func(t *testing.T) {
			text := SystemPrompt(op)
			if !strings.HasPrefix(text, "You are a professional assistant reviewing crowdsourced test reports.") {
				t.Errorf("unexpected prompt start: %.60q", text)
			}
			if strings.HasSuffix(text, "\n") {
				t.Error("prompt has trailing newline")
			}
			if !strings.Contains(text, "Return a brief JSON response") {
				t.Error("prompt does not request JSON")
			}
		})
	}
}

func TestUserPrompt(t *testing.T) {
	tests := []struct {
		op   string
		data UserData
		want string
	}{
		{OpVisibility, UserData{Text: "Crash on save"}, "Crash on save"},
		{OpOCRText, UserData{Text: "Typo", Snippets: []string{"Hello", "Wrold"}}, "Description: Typo\nOCR Result: [Hello,Wrold]"},
		{OpInvisibility, UserData{Text: "Crash", Snippets: []string{"stopped"}}, "Description: Crash\nText Snippets: [stopped]"},
		{OpDescribeState, UserData{Snippets: []string{"Settings", "Save"}}, "[Settings,Save]"},
		{OpDescribeState, UserData{}, "[]"},
		{OpTextualState, UserData{Text: "Share fails", State: "A sharing dialog."}, "Test Issue: Share fails\nApp State: A sharing dialog."},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			tmpl, _ := UserTemplate(tt.op)
			got, err := UserPrompt(tmpl, tt.data)
			if err != nil {
				t.Fatalf("UserPrompt() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("UserPrompt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegisterPrompts(t *testing.T) {
	r := prompts.NewResolver(nil, nil)
	RegisterPrompts(r)

	// nine system prompts plus four user templates
	if n := len(r.AllEmbedded()); n != 13 {
		t.Errorf("registered %d prompts, want 13", n)
	}
	p, ok := r.GetEmbedded(UserKey(OpTextualState))
	if !ok {
		t.Fatal("textual state user template not registered")
	}
	if len(p.Variables) != 2 || p.Variables[0] != "State" || p.Variables[1] != "Text" {
		t.Errorf("Variables = %v", p.Variables)
	}
}
