// Package gemini implements text generation over the Gemini API using the
// google.golang.org/genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/vango-go/vocaiyze/pkg/core"
)

// DefaultModel is used when a request names no model.
const DefaultModel = "gemini-2.0-flash"

// Provider implements core.Provider for Gemini.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	mu     sync.Mutex
	client *genai.Client
}

// New creates a new Gemini provider. The SDK client is created on first use.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{apiKey: apiKey}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) sdk(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	if p.apiKey == "" {
		return nil, core.NewAuthenticationError("gemini", "GEMINI_API_KEY is not set")
	}
	cc := &genai.ClientConfig{
		APIKey:     p.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.httpClient,
	}
	if p.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	p.client = client
	return client, nil
}

// Generate sends a single-prompt generateContent request.
func (p *Provider) Generate(ctx context.Context, req *core.GenerateRequest) (*core.GenerateResponse, error) {
	client, err := p.sdk(ctx)
	if err != nil {
		return nil, err
	}

	model := strings.TrimPrefix(req.Model, "gemini/")
	if model == "" {
		model = DefaultModel
	}
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, mapError(err)
	}

	out := &core.GenerateResponse{Text: resp.Text(), Model: "gemini/" + model}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if strings.TrimSpace(out.Text) == "" {
		return nil, core.NewServiceUnavailableError("gemini", errors.New("response has no text"))
	}
	return out, nil
}

// mapError converts SDK API errors to core errors.
func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fromAPIError(apiErr.Code, apiErr.Message, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return fromAPIError(apiErrPtr.Code, apiErrPtr.Message, err)
	}
	return core.NewServiceUnavailableError("gemini", err)
}

func fromAPIError(code int, message string, err error) error {
	if message == "" {
		message = "status " + strconv.Itoa(code)
	}
	e := core.FromHTTPStatus("gemini", code, nil, []byte(message))
	e.Err = err
	return e
}
