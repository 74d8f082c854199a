package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	cartesiaBaseURL = "https://api.cartesia.ai"
	cartesiaVersion = "2025-04-16"

	// CartesiaMaxInput bounds a single /tts/bytes transcript.
	CartesiaMaxInput = 5000
)

// Default voice ID, used when no Cartesia voice ID is configured.
const defaultVoiceID = "a0e99841-438c-4a64-b679-ae501e7d6091"

// CartesiaProvider implements the TTS Provider interface using Cartesia's API.
type CartesiaProvider struct {
	apiKey       string
	baseURL      string
	defaultVoice string
	httpClient   *http.Client
}

// NewCartesia creates a new Cartesia TTS provider.
func NewCartesia(apiKey string) *CartesiaProvider {
	return NewCartesiaWithClient(apiKey, &http.Client{Timeout: 30 * time.Second})
}

// NewCartesiaWithClient creates a new Cartesia TTS provider with a custom HTTP client.
func NewCartesiaWithClient(apiKey string, client *http.Client) *CartesiaProvider {
	return &CartesiaProvider{
		apiKey:       apiKey,
		baseURL:      cartesiaBaseURL,
		defaultVoice: defaultVoiceID,
		httpClient:   client,
	}
}

// WithBaseURL points the provider at another endpoint.
func (c *CartesiaProvider) WithBaseURL(u string) *CartesiaProvider {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// WithDefaultVoice sets the voice ID used when a request names no Cartesia
// voice.
func (c *CartesiaProvider) WithDefaultVoice(id string) *CartesiaProvider {
	if id = strings.TrimSpace(id); id != "" {
		c.defaultVoice = id
	}
	return c
}

// Name returns the provider identifier.
func (c *CartesiaProvider) Name() string {
	return "cartesia"
}

// Synthesize converts text to audio using Cartesia's TTS API.
func (c *CartesiaProvider) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	if err := checkLength(text, CartesiaMaxInput); err != nil {
		return nil, err
	}
	model := opts.Model
	if model == "" {
		model = "sonic-3"
	}
	outputFormat := c.buildOutputFormat(opts)
	reqBody := cartesiaTTSRequest{
		ModelID:    model,
		Transcript: text,
		Voice: cartesiaVoiceSpec{
			Mode: "id",
			ID:   resolveVoice(opts.Voice, c.defaultVoice),
		},
		OutputFormat: outputFormat,
	}
	if opts.Speed != 0 {
		reqBody.GenerationConfig = &cartesiaGenerationConfig{Speed: opts.Speed}
	}
	if opts.Language != "" {
		reqBody.Language = &opts.Language
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tts/bytes", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)
	req.Header.Set("Content-Type", "application/json")

	audio, err := doAudioRequest(ctx, c.httpClient, c.Name(), req)
	if err != nil {
		return nil, err
	}
	out := &Synthesis{Audio: audio, Format: getFormat(opts.Format)}
	if out.Format != "mp3" {
		out.SampleRate = outputFormat.SampleRate
	}
	return out, nil
}

type cartesiaTTSRequest struct {
	ModelID          string                    `json:"model_id"`
	Transcript       string                    `json:"transcript"`
	Voice            cartesiaVoiceSpec         `json:"voice"`
	OutputFormat     cartesiaOutputFormat      `json:"output_format"`
	Language         *string                   `json:"language,omitempty"`
	GenerationConfig *cartesiaGenerationConfig `json:"generation_config,omitempty"`
}

type cartesiaVoiceSpec struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	BitRate    int    `json:"bit_rate,omitempty"`
}

type cartesiaGenerationConfig struct {
	Speed float64 `json:"speed,omitempty"`
}

func (c *CartesiaProvider) buildOutputFormat(opts SynthesizeOptions) cartesiaOutputFormat {
	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = 24000
	}
	switch getFormat(opts.Format) {
	case "pcm":
		return cartesiaOutputFormat{Container: "raw", Encoding: "pcm_s16le", SampleRate: sampleRate}
	case "wav":
		return cartesiaOutputFormat{Container: "wav", Encoding: "pcm_s16le", SampleRate: sampleRate}
	default:
		return cartesiaOutputFormat{Container: "mp3", SampleRate: sampleRate, BitRate: 128000}
	}
}

// resolveVoice returns voice unless it is empty or a catalogue name, which
// only OpenAI-compatible services understand.
func resolveVoice(voice, fallback string) string {
	voice = strings.TrimSpace(voice)
	if voice == "" || IsCatalogueVoice(voice) {
		return fallback
	}
	return voice
}
