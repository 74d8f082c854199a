// Package cerebras implements text generation over the Cerebras
// OpenAI-compatible API.
package cerebras

import (
	"context"
	"net/http"

	"github.com/vango-go/vocaiyze/pkg/core"
	"github.com/vango-go/vocaiyze/pkg/core/providers/openai"
)

const (
	// DefaultBaseURL is the Cerebras API endpoint.
	DefaultBaseURL = "https://api.cerebras.ai/v1"
)

// Option configures the Cerebras provider.
type Option func(*Provider)

// WithBaseURL sets a custom base URL (for testing or proxying).
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// Provider wraps the OpenAI provider with the Cerebras endpoint. Cerebras
// takes max_completion_tokens rather than max_tokens.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	inner      *openai.Provider
}

// New creates a new Cerebras provider.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.inner = openai.New(apiKey,
		openai.WithName("cerebras"),
		openai.WithBaseURL(p.baseURL),
		openai.WithHTTPClient(p.httpClient),
		openai.WithMaxTokensField(openai.MaxTokensFieldMaxCompletionTokens),
	)
	return p
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "cerebras"
}

// Generate sends a chat completion request to Cerebras.
func (p *Provider) Generate(ctx context.Context, req *core.GenerateRequest) (*core.GenerateResponse, error) {
	return p.inner.Generate(ctx, req)
}
