// Package anthropic implements text generation over the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/vango-go/vocaiyze/pkg/core"
)

const (
	// DefaultBaseURL is the default Anthropic API endpoint.
	DefaultBaseURL = "https://api.anthropic.com"

	// APIVersion is the required Anthropic API version header.
	APIVersion = "2023-06-01"

	// DefaultMaxTokens is sent when a request sets no limit. The API
	// requires one.
	DefaultMaxTokens = 1024

	// DefaultModel is used when a request names no model.
	DefaultModel = "claude-3-5-haiku-latest"
)

// Option configures the Anthropic provider.
type Option func(*Provider)

// WithBaseURL sets a custom base URL (for testing or proxying).
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// Provider implements core.Provider for the Messages API.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a new Anthropic provider.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "anthropic"
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate sends a single user message and joins the text blocks of the reply.
func (p *Provider) Generate(ctx context.Context, req *core.GenerateRequest) (*core.GenerateResponse, error) {
	model := strings.TrimPrefix(req.Model, "anthropic/")
	if model == "" {
		model = DefaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	areq := &messagesRequest{
		Model:       model,
		System:      req.System,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}

	body, err := p.doRequest(ctx, areq)
	if err != nil {
		return nil, err
	}

	var aresp messagesResponse
	if err := json.Unmarshal(body, &aresp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	var text strings.Builder
	for _, block := range aresp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if aresp.Model == "" {
		aresp.Model = model
	}
	return &core.GenerateResponse{
		Text:         text.String(),
		Model:        "anthropic/" + aresp.Model,
		InputTokens:  aresp.Usage.InputTokens,
		OutputTokens: aresp.Usage.OutputTokens,
	}, nil
}
