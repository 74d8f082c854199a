package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	// GroqBaseURL serves Whisper models over the same API shape.
	GroqBaseURL = "https://api.groq.com/openai/v1"
)

// OpenAIProvider implements the STT Provider interface using the Whisper
// transcription endpoint. Any OpenAI-compatible endpoint works.
type OpenAIProvider struct {
	name       string
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOpenAI creates a Whisper STT provider.
func NewOpenAI(apiKey string) *OpenAIProvider {
	return NewOpenAIWithClient(apiKey, &http.Client{})
}

// NewOpenAIWithClient creates a Whisper STT provider with a custom HTTP client.
func NewOpenAIWithClient(apiKey string, client *http.Client) *OpenAIProvider {
	return &OpenAIProvider{
		name:       "openai",
		apiKey:     apiKey,
		baseURL:    openAIBaseURL,
		model:      "whisper-1",
		httpClient: client,
	}
}

// NewGroq creates a provider for Groq's hosted Whisper.
func NewGroq(apiKey string, client *http.Client) *OpenAIProvider {
	p := NewOpenAIWithClient(apiKey, client)
	p.name = "groq"
	p.baseURL = GroqBaseURL
	p.model = "whisper-large-v3-turbo"
	return p
}

// WithBaseURL points the provider at another endpoint.
func (p *OpenAIProvider) WithBaseURL(u string) *OpenAIProvider {
	p.baseURL = strings.TrimRight(u, "/")
	return p
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return p.name
}

type whisperResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Words    []Word  `json:"words"`
}

// Transcribe uploads audio and returns the verbose transcription.
func (p *OpenAIProvider) Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (*Transcript, error) {
	model := opts.Model
	if model == "" {
		model = p.model
	}
	fields := []formField{
		{name: "model", value: model},
		{name: "response_format", value: "verbose_json"},
		{name: "language", value: languageCode(opts.Language)},
	}
	if opts.Timestamps {
		fields = append(fields, formField{name: "timestamp_granularities[]", value: "word"})
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.apiKey)

	body, err := postAudioForm(ctx, p.httpClient, p.name, p.baseURL+"/audio/transcriptions", header, audio, "audio."+getExtension(opts.Format), fields)
	if err != nil {
		return nil, err
	}

	var resp whisperResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &Transcript{
		Text:     resp.Text,
		Language: LanguageName(resp.Language),
		Duration: resp.Duration,
		Words:    resp.Words,
	}, nil
}
