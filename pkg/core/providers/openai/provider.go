// Package openai implements text generation over the OpenAI Chat Completions API.
// Any OpenAI-compatible endpoint can be targeted with WithBaseURL.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/vango-go/vocaiyze/pkg/core"
)

const (
	// DefaultBaseURL is the default OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when a request names no model.
	DefaultModel = "gpt-4o-mini"
)

// Provider implements core.Provider for chat completions.
type Provider struct {
	name                string
	apiKey              string
	baseURL             string
	chatCompletionsPath string
	httpClient          *http.Client
	auth                AuthConfig
	extraHeaders        map[string]string
	maxTokensField      MaxTokensField
}

// New creates a new OpenAI provider.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		name:                "openai",
		apiKey:              apiKey,
		baseURL:             DefaultBaseURL,
		chatCompletionsPath: "/chat/completions",
		httpClient:          &http.Client{},
		auth:                AuthConfig{Header: "Authorization", Prefix: "Bearer "},
		maxTokensField:      MaxTokensFieldMaxTokens,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	MaxTokens           int           `json:"max_tokens,omitempty"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
	Temperature         *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate sends a non-streaming chat completion request.
func (p *Provider) Generate(ctx context.Context, req *core.GenerateRequest) (*core.GenerateResponse, error) {
	creq := p.buildRequest(req)

	body, err := p.doRequest(ctx, creq)
	if err != nil {
		return nil, err
	}

	var cresp chatResponse
	if err := json.Unmarshal(body, &cresp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(cresp.Choices) == 0 {
		return nil, core.NewServiceUnavailableError(p.name, fmt.Errorf("response has no choices"))
	}
	model := cresp.Model
	if model == "" {
		model = creq.Model
	}
	return &core.GenerateResponse{
		Text:         cresp.Choices[0].Message.Content,
		Model:        p.name + "/" + model,
		InputTokens:  cresp.Usage.PromptTokens,
		OutputTokens: cresp.Usage.CompletionTokens,
	}, nil
}

func (p *Provider) buildRequest(req *core.GenerateRequest) *chatRequest {
	model := strings.TrimPrefix(req.Model, p.name+"/")
	if model == "" {
		model = DefaultModel
	}
	creq := &chatRequest{Model: model, Temperature: req.Temperature}
	if req.System != "" {
		creq.Messages = append(creq.Messages, chatMessage{Role: "system", Content: req.System})
	}
	creq.Messages = append(creq.Messages, chatMessage{Role: "user", Content: req.Prompt})
	if req.MaxTokens > 0 {
		if p.maxTokensField == MaxTokensFieldMaxCompletionTokens {
			creq.MaxCompletionTokens = req.MaxTokens
		} else {
			creq.MaxTokens = req.MaxTokens
		}
	}
	return creq
}
