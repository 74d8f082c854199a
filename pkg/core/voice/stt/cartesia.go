package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	cartesiaBaseURL = "https://api.cartesia.ai"
	cartesiaVersion = "2025-04-16"
)

// CartesiaProvider implements the STT Provider interface using Cartesia's API.
type CartesiaProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewCartesia creates a new Cartesia STT provider.
func NewCartesia(apiKey string) *CartesiaProvider {
	return NewCartesiaWithClient(apiKey, &http.Client{})
}

// NewCartesiaWithClient creates a new Cartesia STT provider with a custom HTTP client.
func NewCartesiaWithClient(apiKey string, client *http.Client) *CartesiaProvider {
	return &CartesiaProvider{
		apiKey:     apiKey,
		baseURL:    cartesiaBaseURL,
		httpClient: client,
	}
}

// WithBaseURL points the provider at another endpoint.
func (c *CartesiaProvider) WithBaseURL(u string) *CartesiaProvider {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// Name returns the provider identifier.
func (c *CartesiaProvider) Name() string {
	return "cartesia"
}

// Transcribe converts audio to text using Cartesia's batch STT endpoint.
func (c *CartesiaProvider) Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (*Transcript, error) {
	model := opts.Model
	if model == "" {
		model = "ink-whisper"
	}
	fields := []formField{
		{name: "model", value: model},
		{name: "language", value: languageCode(opts.Language)},
	}
	if opts.Timestamps {
		fields = append(fields, formField{name: "timestamp_granularities[]", value: "word"})
	}

	reqURL := c.baseURL + "/stt"
	if encoding := getEncoding(opts.Format); encoding != "" || opts.SampleRate > 0 {
		q := url.Values{}
		if encoding != "" {
			q.Set("encoding", encoding)
		}
		if opts.SampleRate > 0 {
			q.Set("sample_rate", strconv.Itoa(opts.SampleRate))
		}
		reqURL += "?" + q.Encode()
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.apiKey)
	header.Set("Cartesia-Version", cartesiaVersion)

	body, err := postAudioForm(ctx, c.httpClient, c.Name(), reqURL, header, audio, "audio."+getExtension(opts.Format), fields)
	if err != nil {
		return nil, err
	}

	var resp cartesiaTranscriptionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return c.convertResponse(resp), nil
}

type cartesiaWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type cartesiaTranscriptionResponse struct {
	Text     string         `json:"text"`
	Language *string        `json:"language,omitempty"`
	Duration *float64       `json:"duration,omitempty"`
	Words    []cartesiaWord `json:"words,omitempty"`
}

func (c *CartesiaProvider) convertResponse(resp cartesiaTranscriptionResponse) *Transcript {
	t := &Transcript{Text: resp.Text}
	if resp.Language != nil {
		t.Language = LanguageName(*resp.Language)
	}
	if resp.Duration != nil {
		t.Duration = *resp.Duration
	}
	for _, w := range resp.Words {
		t.Words = append(t.Words, Word(w))
	}
	return t
}

// getEncoding returns the PCM encoding for raw audio formats.
func getEncoding(format string) string {
	switch format {
	case "pcm_s16le", "pcm_s32le", "pcm_f16le", "pcm_f32le", "pcm_mulaw", "pcm_alaw":
		return format
	default:
		return ""
	}
}
