package openai

import (
	"net/http"
	"strings"
)

// Option configures the OpenAI provider.
type Option func(*Provider)

// MaxTokensField controls which max tokens field is sent for chat completions.
type MaxTokensField string

const (
	// MaxTokensFieldMaxTokens uses "max_tokens".
	MaxTokensFieldMaxTokens MaxTokensField = "max_tokens"
	// MaxTokensFieldMaxCompletionTokens uses "max_completion_tokens".
	MaxTokensFieldMaxCompletionTokens MaxTokensField = "max_completion_tokens"
)

// AuthConfig configures authentication header behavior.
type AuthConfig struct {
	Header string
	Prefix string
	Value  string
}

// WithName overrides the provider identifier, for OpenAI-compatible services.
func WithName(name string) Option {
	return func(p *Provider) {
		if name != "" {
			p.name = name
		}
	}
}

// WithBaseURL sets a custom base URL (for testing or proxying).
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// WithChatCompletionsPath sets a custom chat completions path.
func WithChatCompletionsPath(path string) Option {
	return func(p *Provider) {
		if path == "" {
			return
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		p.chatCompletionsPath = path
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

// WithMaxTokensField sets which max tokens field name to emit.
func WithMaxTokensField(field MaxTokensField) Option {
	return func(p *Provider) {
		if field != MaxTokensFieldMaxTokens && field != MaxTokensFieldMaxCompletionTokens {
			return
		}
		p.maxTokensField = field
	}
}

// WithAuth sets custom auth header behavior.
func WithAuth(auth AuthConfig) Option {
	return func(p *Provider) {
		if auth.Header == "" {
			auth.Header = p.auth.Header
		}
		// Authorization-like headers keep the bearer prefix; other headers
		// carry the raw key.
		if auth.Value == "" && auth.Prefix == "" {
			if strings.EqualFold(auth.Header, p.auth.Header) {
				auth.Prefix = p.auth.Prefix
			}
		}
		p.auth = auth
	}
}

// WithExtraHeader sets one additional request header.
func WithExtraHeader(key, value string) Option {
	return func(p *Provider) {
		if key == "" {
			return
		}
		if p.extraHeaders == nil {
			p.extraHeaders = make(map[string]string)
		}
		p.extraHeaders[key] = value
	}
}
