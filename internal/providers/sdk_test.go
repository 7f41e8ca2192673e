package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIClient_Chat(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"result\": false, \"reason\": \"no dialog\"}"}}],
			"usage":{"prompt_tokens":1000,"completion_tokens":100,"total_tokens":1100}
		}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	result, err := client.Chat(context.Background(), &ChatRequest{
		Model: "gpt-4o",
		Messages: []Message{
			{Role: "system", Content: "judge"},
			{Role: "user", Content: "Description: x", Images: [][]byte{[]byte("img")}},
		},
		ResponseFormat: JSONObject,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !result.Success || result.Provider != OpenAIName {
		t.Errorf("result = %+v", result)
	}
	if string(result.ParsedJSON) != `{"reason":"no dialog","result":false}` {
		t.Errorf("ParsedJSON = %s", result.ParsedJSON)
	}
	if result.InputCostUSD != 1000*0.0000025 {
		t.Errorf("InputCostUSD = %v", result.InputCostUSD)
	}

	rf, _ := body["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("response_format = %v", body["response_format"])
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", body["messages"])
	}
	user := msgs[1].(map[string]any)
	parts, ok := user["content"].([]any)
	if !ok || len(parts) != 2 {
		t.Fatalf("user content = %v", user["content"])
	}
}

func TestAnthropicClient_Chat(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5",
			"content":[{"type":"text","text":"{\"description\": \"settings page\"}"}],
			"stop_reason":"end_turn",
			"usage":{"input_tokens":20,"output_tokens":8}
		}`))
	}))
	defer server.Close()

	client := NewAnthropicClient(AnthropicConfig{APIKey: "test-key", BaseURL: server.URL})
	result, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			{Role: "system", Content: "describe"},
			{Role: "user", Content: "[Settings, Save]"},
		},
		ResponseFormat: JSONObject,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if result.PromptTokens != 20 || result.CompletionTokens != 8 || result.TotalTokens != 28 {
		t.Errorf("tokens = %d/%d/%d", result.PromptTokens, result.CompletionTokens, result.TotalTokens)
	}
	if string(result.ParsedJSON) != `{"description":"settings page"}` {
		t.Errorf("ParsedJSON = %s", result.ParsedJSON)
	}
	if _, ok := body["system"]; !ok {
		t.Error("system prompt not sent as top-level system field")
	}
}

func TestCompatibleClient_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected authorization: %s", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id":"c1","object":"chat.completion","created":1,"model":"deepseek-chat",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"result\": true}"}}],
			"usage":{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12}
		}`))
	}))
	defer server.Close()

	client := NewCompatibleClient(CompatibleConfig{APIKey: "test-key", BaseURL: server.URL})
	if client.Name() != DeepSeekName {
		t.Errorf("Name() = %q", client.Name())
	}
	result, err := client.Chat(context.Background(), &ChatRequest{
		Messages:       []Message{{Role: "user", Content: "x"}},
		ResponseFormat: JSONObject,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if result.TotalTokens != 12 || string(result.ParsedJSON) != `{"result":true}` {
		t.Errorf("result = %+v", result)
	}
}
