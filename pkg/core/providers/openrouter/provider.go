// Package openrouter implements text generation over OpenRouter, an
// OpenAI-compatible API that routes across many model vendors.
package openrouter

import (
	"context"
	"net/http"
	"strings"

	"github.com/vango-go/vocaiyze/pkg/core"
	"github.com/vango-go/vocaiyze/pkg/core/providers/openai"
)

// DefaultBaseURL is the OpenRouter API endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Option configures the OpenRouter provider.
type Option func(*Provider)

// WithBaseURL overrides DefaultBaseURL. Empty keeps the default.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		if url = strings.TrimSpace(url); url != "" {
			p.baseURL = url
		}
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

// WithAttribution sets the app URL and title OpenRouter shows in its
// rankings. Empty values are not sent.
func WithAttribution(siteURL, title string) Option {
	return func(p *Provider) {
		p.siteURL = strings.TrimSpace(siteURL)
		p.title = strings.TrimSpace(title)
	}
}

// Provider wraps the OpenAI provider with OpenRouter's endpoint and
// attribution headers.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	siteURL    string
	title      string
	inner      *openai.Provider
}

// New creates a new OpenRouter provider.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(p)
	}

	openaiOpts := []openai.Option{
		openai.WithName("openrouter"),
		openai.WithBaseURL(p.baseURL),
		openai.WithHTTPClient(p.httpClient),
	}
	if p.siteURL != "" {
		openaiOpts = append(openaiOpts, openai.WithExtraHeader("HTTP-Referer", p.siteURL))
	}
	if p.title != "" {
		openaiOpts = append(openaiOpts, openai.WithExtraHeader("X-Title", p.title))
	}
	p.inner = openai.New(apiKey, openaiOpts...)
	return p
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "openrouter"
}

// Generate sends a chat completion request through OpenRouter. Model names
// keep their vendor segment, as in "meta-llama/llama-3.1-8b-instruct".
func (p *Provider) Generate(ctx context.Context, req *core.GenerateRequest) (*core.GenerateResponse, error) {
	return p.inner.Generate(ctx, req)
}
