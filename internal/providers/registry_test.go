package providers

import (
	"context"
	"sync"
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get LLM", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMockClient()

		r.RegisterLLM("test-llm", mock)

		client, err := r.GetLLM("test-llm")
		if err != nil {
			t.Fatalf("GetLLM() error = %v", err)
		}
		if client != LLMClient(mock) {
			t.Error("got different client than registered")
		}
	})

	t.Run("get nonexistent LLM", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.GetLLM("nonexistent"); err == nil {
			t.Error("expected error for nonexistent LLM")
		}
	})

	t.Run("list is sorted", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterLLM("b", NewMockClient())
		r.RegisterLLM("a", NewMockClient())

		got := r.ListLLM()
		if len(got) != 2 || got[0] != "a" || got[1] != "b" {
			t.Errorf("ListLLM() = %v", got)
		}
	})

	t.Run("unregister", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterLLM("x", NewMockClient())
		r.UnregisterLLM("x")
		if r.HasLLM("x") {
			t.Error("HasLLM() = true after unregister")
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		r := NewRegistry()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				r.RegisterLLM("concurrent-llm", NewMockClient())
			}()
			go func() {
				defer wg.Done()
				r.GetLLM("concurrent-llm") // may miss, that's ok
			}()
		}
		wg.Wait()
	})
}

func TestNewRegistryFromConfig(t *testing.T) {
	t.Run("registers every provider type", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"openai":     {Type: "openai", Model: "gpt-4o-mini", APIKey: "k1", Enabled: true},
				"anthropic":  {Type: "anthropic", APIKey: "k2", Enabled: true},
				"deepseek":   {Type: "deepseek", APIKey: "k3", Enabled: true},
				"local":      {Type: "openai-compatible", BaseURL: "http://localhost:8000/v1", APIKey: "none", Enabled: true},
				"openrouter": {Type: "openrouter", APIKey: "k4", Enabled: true, RateLimit: 60},
			},
		})

		for _, name := range []string{"openai", "anthropic", "deepseek", "local", "openrouter"} {
			if !r.HasLLM(name) {
				t.Errorf("expected %s to be registered", name)
			}
		}

		client, _ := r.GetLLM("openrouter")
		if _, ok := client.(*RateLimitedClient); !ok {
			t.Errorf("openrouter client %T should be rate limited", client)
		}
		local, _ := r.GetLLM("local")
		if local.Name() != "local" {
			t.Errorf("compatible client Name() = %q, want %q", local.Name(), "local")
		}
	})

	t.Run("skips disabled providers and missing keys", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"disabled": {Type: "openai", APIKey: "k", Enabled: false},
				"nokey":    {Type: "openai", APIKey: "", Enabled: true},
			},
		})
		if r.HasLLM("disabled") || r.HasLLM("nokey") {
			t.Errorf("ListLLM() = %v, want empty", r.ListLLM())
		}
	})

	t.Run("skips unknown types", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"weird": {Type: "carrier-pigeon", APIKey: "k", Enabled: true},
			},
		})
		if r.HasLLM("weird") {
			t.Error("unknown provider type should not be registered")
		}
	})
}

func TestRegistryReload(t *testing.T) {
	cfg := RegistryConfig{LLMProviders: map[string]LLMProviderConfig{
		"openai": {Type: "openai", Model: "gpt-4o-mini", APIKey: "k1", Enabled: true},
		"gemini": {Type: "gemini", APIKey: "k2", Enabled: true},
	}}
	r := NewRegistryFromConfig(cfg)
	r.RegisterLLM("manual", NewMockClient())
	before, _ := r.GetLLM("openai")

	t.Run("unchanged config keeps clients", func(t *testing.T) {
		r.Reload(cfg)
		after, _ := r.GetLLM("openai")
		if after != before {
			t.Error("client recreated without config change")
		}
	})

	t.Run("changed config rebuilds and removed config unregisters", func(t *testing.T) {
		r.Reload(RegistryConfig{LLMProviders: map[string]LLMProviderConfig{
			"openai": {Type: "openai", Model: "gpt-4o", APIKey: "k1", Enabled: true},
		}})
		after, _ := r.GetLLM("openai")
		if after == before {
			t.Error("client not recreated after model change")
		}
		if r.HasLLM("gemini") {
			t.Error("gemini should be unregistered")
		}
		if !r.HasLLM("manual") {
			t.Error("manually registered client should survive reload")
		}
	})
}

func TestRegistryClient(t *testing.T) {
	r := NewRegistry()
	client := r.Client("vision")
	req := &ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}

	if _, err := client.Chat(context.Background(), req); err == nil {
		t.Error("expected error before the provider is registered")
	}

	first := NewMockClient()
	r.RegisterLLM("vision", first)
	if _, err := client.Chat(context.Background(), req); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	second := NewMockClient()
	r.RegisterLLM("vision", second)
	if _, err := client.Chat(context.Background(), req); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if first.RequestCount() != 1 || second.RequestCount() != 1 {
		t.Errorf("requests = %d/%d, want 1/1", first.RequestCount(), second.RequestCount())
	}
	if client.Name() != "vision" {
		t.Errorf("Name() = %s", client.Name())
	}
}
