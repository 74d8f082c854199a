package core

import (
	"context"
	"fmt"
	"os"
	"strings"
)

const (
	// DefaultSystemPrompt frames the assistant's replies.
	DefaultSystemPrompt = "You are an AI assistant for business professionals. Provide helpful, accurate, and concise responses."
	// DefaultMaxTokens caps each reply.
	DefaultMaxTokens = 500
	// DefaultTemperature is the sampling temperature for replies.
	DefaultTemperature = 0.7
)

// Engine routes generation requests to registered providers.
type Engine struct {
	registry     ProviderRegistry
	providerKeys map[string]string
}

// NewEngine creates a new Engine with the given provider keys.
// If providerKeys is nil, environment variables will be used.
func NewEngine(providerKeys map[string]string) *Engine {
	if providerKeys == nil {
		providerKeys = make(map[string]string)
	}
	return &Engine{
		registry:     NewProviderRegistry(),
		providerKeys: providerKeys,
	}
}

// RegisterProvider adds a provider to the engine.
func (e *Engine) RegisterProvider(provider Provider) {
	e.registry.Register(provider)
}

// GetProvider returns a provider by name.
func (e *Engine) GetProvider(name string) (Provider, bool) {
	return e.registry.Get(name)
}

// ProviderNames returns the list of registered provider names.
func (e *Engine) ProviderNames() []string {
	return e.registry.List()
}

// Generate routes the request to the provider named in req.Model.
func (e *Engine) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	providerName, modelName, err := ParseModelString(req.Model)
	if err != nil {
		return nil, err
	}

	provider, ok := e.registry.Get(providerName)
	if !ok {
		return nil, NewInvalidRequestError(fmt.Sprintf("provider %q not registered", providerName))
	}

	reqCopy := *req
	reqCopy.Model = modelName
	return provider.Generate(ctx, &reqCopy)
}

// GetAPIKey returns the API key for a provider.
// It first checks the explicit keys, then environment variables.
func (e *Engine) GetAPIKey(provider string) string {
	if key, ok := e.providerKeys[provider]; ok {
		return key
	}
	envKey := strings.ToUpper(provider) + "_API_KEY"
	return os.Getenv(envKey)
}

// ParseModelString parses a model string in the format "provider/model-name".
func ParseModelString(model string) (provider string, modelName string, err error) {
	parts := strings.SplitN(model, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", NewInvalidRequestError(
			fmt.Sprintf("invalid model format: %q, expected 'provider/model-name'", model),
		)
	}
	return parts[0], parts[1], nil
}

// Generator binds an Engine to one model and system prompt so it can answer
// plain prompts.
type Generator struct {
	Engine      *Engine
	Model       string
	System      string
	MaxTokens   int
	Temperature float64
}

// NewGenerator creates a Generator with the default reply settings.
func NewGenerator(engine *Engine, model string) *Generator {
	return &Generator{
		Engine:      engine,
		Model:       model,
		System:      DefaultSystemPrompt,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}
}

// Generate returns the completion text for prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	temp := g.Temperature
	resp, err := g.Engine.Generate(ctx, &GenerateRequest{
		Model:       g.Model,
		System:      g.System,
		Prompt:      prompt,
		MaxTokens:   g.MaxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}
