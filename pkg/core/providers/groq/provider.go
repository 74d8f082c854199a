// Package groq implements text generation over Groq's OpenAI-compatible API.
package groq

import (
	"context"
	"net/http"

	"github.com/vango-go/vocaiyze/pkg/core"
	"github.com/vango-go/vocaiyze/pkg/core/providers/openai"
)

const (
	// DefaultBaseURL is the Groq API endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"
)

// Option configures the Groq provider.
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

// Provider wraps the OpenAI provider with Groq's endpoint.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	inner      *openai.Provider
}

// New creates a new Groq provider.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.inner = openai.New(apiKey,
		openai.WithName("groq"),
		openai.WithBaseURL(p.baseURL),
		openai.WithHTTPClient(p.httpClient),
	)
	return p
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "groq"
}

// Generate sends a chat completion request to Groq.
func (p *Provider) Generate(ctx context.Context, req *core.GenerateRequest) (*core.GenerateResponse, error) {
	return p.inner.Generate(ctx, req)
}
