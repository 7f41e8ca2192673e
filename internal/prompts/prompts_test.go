package prompts

import (
	"testing"
)

func TestExtractVariables(t *testing.T) {
	got := ExtractVariables("Description: {{.Text}}\nOCR Result: [{{join .Snippets}}] {{ .Text }}")
	if len(got) != 2 || got[0] != "Snippets" || got[1] != "Text" {
		t.Errorf("ExtractVariables() = %v", got)
	}
}

func TestRender(t *testing.T) {
	out, err := Render("[{{join .Items}}]", struct{ Items []string }{[]string{"a", "b"}})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "[a,b]" {
		t.Errorf("Render() = %q", out)
	}

	if _, err := Render("{{.Missing}}", map[string]string{}); err == nil {
		t.Error("expected error for missing key")
	}
}

func TestResolver(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	r := NewResolver(store, nil)
	r.Register(EmbeddedPrompt{Key: "test.system", Text: "default"})

	t.Run("embedded default", func(t *testing.T) {
		p, err := r.Resolve("test.system")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if p.Text != "default" || p.IsOverride || p.Hash != HashText("default") {
			t.Errorf("Resolve() = %+v", p)
		}
	})

	t.Run("override wins", func(t *testing.T) {
		if err := store.Set("test.system", "custom"); err != nil {
			t.Fatal(err)
		}
		p, err := r.Resolve("test.system")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if p.Text != "custom" || !p.IsOverride {
			t.Errorf("Resolve() = %+v", p)
		}
		keys, _ := store.List()
		if len(keys) != 1 || keys[0] != "test.system" {
			t.Errorf("List() = %v", keys)
		}
		if err := store.Clear("test.system"); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		if _, err := r.Resolve("nope"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("invalid key", func(t *testing.T) {
		if _, _, err := store.Get("../etc/passwd"); err == nil {
			t.Error("expected error for invalid key")
		}
	})

	t.Run("export", func(t *testing.T) {
		n, err := r.Export()
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if n != 1 {
			t.Errorf("Export() = %d, want 1", n)
		}
		if n, _ := r.Export(); n != 0 {
			t.Errorf("second Export() = %d, want 0", n)
		}
	})
}
