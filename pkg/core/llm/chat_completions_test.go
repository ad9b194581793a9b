package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestChatCompletionsProvider(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Bad request body: %v", err)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"headline\":\"ok\"}"}}]}`))
	}))
	defer srv.Close()

	p := NewDeepSeekProvider()
	p.URL = srv.URL

	out, err := p.GenerateResponse(context.Background(), "user text", "system text", map[string]interface{}{
		OptAPIKey:         "test-key",
		OptResponseFormat: map[string]interface{}{"type": "json_object"},
	})
	if err != nil {
		t.Fatalf("GenerateResponse failed: %v", err)
	}
	if out != `{"headline":"ok"}` {
		t.Errorf("Unexpected content %q", out)
	}

	if got.Model != "deepseek-chat" {
		t.Errorf("Expected default model, got %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "user text" {
		t.Errorf("Unexpected messages %+v", got.Messages)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Errorf("Expected json_object response format, got %+v", got.ResponseFormat)
	}
}

func TestChatCompletionsProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewQwenProvider()
	p.URL = srv.URL
	p.APIKeyEnv = []string{"SAAS_TEST_UNSET_KEY"}

	_, err := p.GenerateResponse(context.Background(), "x", "", nil)
	if err == nil || !strings.HasPrefix(err.Error(), "QWEN_API_KEY_MISSING") {
		t.Errorf("Expected missing key error, got %v", err)
	}

	_, err = p.GenerateResponse(context.Background(), "x", "", map[string]interface{}{OptAPIKey: "k"})
	if err == nil || !strings.Contains(err.Error(), "status=503") {
		t.Errorf("Expected 503 error, got %v", err)
	}
}
