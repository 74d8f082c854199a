package openai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vango-go/vocaiyze/pkg/core"
)

func TestGenerate_SendsSystemPromptAndSettings(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Happy to help."}}],
			"usage":{"prompt_tokens":12,"completion_tokens":4}
		}`)
	}))
	defer server.Close()

	temp := 0.7
	p := New("test-key", WithBaseURL(server.URL))
	resp, err := p.Generate(t.Context(), &core.GenerateRequest{
		Model:       "gpt-4o-mini",
		System:      core.DefaultSystemPrompt,
		Prompt:      "User (English): hi",
		MaxTokens:   500,
		Temperature: &temp,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if gotPath != "/chat/completions" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotBody["max_tokens"] != float64(500) || gotBody["temperature"] != 0.7 {
		t.Fatalf("body = %#v", gotBody)
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %#v, want system + user", gotBody["messages"])
	}
	first, _ := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != core.DefaultSystemPrompt {
		t.Fatalf("system message = %#v", first)
	}

	if resp.Text != "Happy to help." || resp.Model != "openai/gpt-4o-mini" {
		t.Fatalf("response = %#v", resp)
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 4 {
		t.Fatalf("usage = %d/%d", resp.InputTokens, resp.OutputTokens)
	}
}

func TestGenerate_AppliesPathAuthAndExtraHeaders(t *testing.T) {
	var gotPath, gotKey, gotReferer string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		gotReferer = r.Header.Get("HTTP-Referer")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer server.Close()

	p := New(
		"test-key",
		WithName("groq"),
		WithBaseURL(server.URL),
		WithChatCompletionsPath("custom/chat/completions"),
		WithAuth(AuthConfig{Header: "X-API-Key"}),
		WithExtraHeader("HTTP-Referer", "https://example.com"),
		WithMaxTokensField(MaxTokensFieldMaxCompletionTokens),
	)
	resp, err := p.Generate(t.Context(), &core.GenerateRequest{Model: "groq/llama-3.1-8b", Prompt: "hello", MaxTokens: 50})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if gotPath != "/custom/chat/completions" || gotKey != "test-key" || gotReferer != "https://example.com" {
		t.Fatalf("path/key/referer = %q/%q/%q", gotPath, gotKey, gotReferer)
	}
	if gotBody["model"] != "llama-3.1-8b" {
		t.Fatalf("model = %v, want provider prefix stripped", gotBody["model"])
	}
	if _, ok := gotBody["max_tokens"]; ok {
		t.Fatal("max_tokens should not be sent")
	}
	if gotBody["max_completion_tokens"] != float64(50) {
		t.Fatalf("max_completion_tokens = %v", gotBody["max_completion_tokens"])
	}
	if resp.Model != "groq/llama-3.1-8b" {
		t.Fatalf("model = %q", resp.Model)
	}
	if p.Name() != "groq" {
		t.Fatalf("Name() = %q", p.Name())
	}
}

func TestGenerate_MapsHTTPErrors(t *testing.T) {
	tests := []struct {
		status int
		want   core.ErrorType
	}{
		{http.StatusTooManyRequests, core.ErrRateLimited},
		{http.StatusUnauthorized, core.ErrAuthentication},
		{http.StatusServiceUnavailable, core.ErrServiceUnavailable},
		{http.StatusBadRequest, core.ErrInvalidRequest},
	}
	for _, tc := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			fmt.Fprint(w, `{"error":{"message":"nope","type":"x"}}`)
		}))
		p := New("k", WithBaseURL(server.URL))
		_, err := p.Generate(t.Context(), &core.GenerateRequest{Prompt: "x"})
		server.Close()

		if !core.IsType(err, tc.want) {
			t.Fatalf("status %d: error = %v, want %s", tc.status, err, tc.want)
		}
	}
}

func TestGenerate_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer server.Close()

	_, err := New("k", WithBaseURL(server.URL)).Generate(t.Context(), &core.GenerateRequest{Prompt: "x"})
	if !core.IsType(err, core.ErrServiceUnavailable) {
		t.Fatalf("error = %v, want service_unavailable", err)
	}
}

func TestErrorMessage(t *testing.T) {
	if got := string(errorMessage([]byte(`{"error":{"message":"bad key"}}`))); got != "bad key" {
		t.Fatalf("errorMessage = %q", got)
	}
	if got := string(errorMessage([]byte(" plain text \n"))); got != "plain text" {
		t.Fatalf("errorMessage = %q", got)
	}
}
