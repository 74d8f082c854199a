package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vango-go/vocaiyze/pkg/core"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"

	// OpenAIMaxInput is the longest input the speech endpoint accepts.
	OpenAIMaxInput = 4096
)

// OpenAIProvider implements the TTS Provider interface using the OpenAI
// speech endpoint.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOpenAI creates a new OpenAI TTS provider.
func NewOpenAI(apiKey string) *OpenAIProvider {
	return NewOpenAIWithClient(apiKey, &http.Client{Timeout: 30 * time.Second})
}

// NewOpenAIWithClient creates a new OpenAI TTS provider with a custom HTTP client.
func NewOpenAIWithClient(apiKey string, client *http.Client) *OpenAIProvider {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &OpenAIProvider{
		apiKey:     apiKey,
		baseURL:    openAIBaseURL,
		model:      "tts-1",
		httpClient: client,
	}
}

// WithBaseURL points the provider at another endpoint.
func (p *OpenAIProvider) WithBaseURL(u string) *OpenAIProvider {
	p.baseURL = strings.TrimRight(u, "/")
	return p
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Voices returns the catalogue voices.
func (p *OpenAIProvider) Voices() []string {
	return Catalogue()
}

type openAISpeechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format,omitempty"`
	Speed          float64 `json:"speed,omitempty"`
}

// Synthesize converts text to audio.
func (p *OpenAIProvider) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	if err := checkLength(text, OpenAIMaxInput); err != nil {
		return nil, err
	}
	voice := strings.ToLower(strings.TrimSpace(opts.Voice))
	if voice == "" {
		voice = VoiceAlloy
	}
	model := opts.Model
	if model == "" {
		model = p.model
	}
	format := getFormat(opts.Format)

	body, err := json.Marshal(openAISpeechRequest{
		Model:          model,
		Input:          text,
		Voice:          voice,
		ResponseFormat: format,
		Speed:          opts.Speed,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	audio, err := doAudioRequest(ctx, p.httpClient, p.Name(), req)
	if err != nil {
		return nil, err
	}

	// pcm and wav responses are 24kHz mono 16-bit.
	out := &Synthesis{Audio: audio, Format: format}
	if format != "mp3" {
		out.SampleRate = 24000
	}
	return out, nil
}

// doAudioRequest executes req and returns the audio body, mapping
// failures to core errors.
func doAudioRequest(ctx context.Context, client *http.Client, provider string, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.NewServiceUnavailableError(provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if resp.StatusCode == http.StatusNoContent {
		return []byte{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.FromHTTPStatus(provider, resp.StatusCode, resp.Header, bytes.TrimSpace(body))
	}
	return body, nil
}
