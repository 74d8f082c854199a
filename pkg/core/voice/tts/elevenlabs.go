package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-go/vocaiyze/pkg/core"
)

const (
	elevenLabsDefaultWSBase = "wss://api.elevenlabs.io/v1/text-to-speech/{voice_id}/stream-input"

	// Rachel, the ElevenLabs stock voice.
	elevenLabsDefaultVoice = "21m00Tcm4TlvDq8ikWAM"
)

// ElevenLabsProvider synthesizes over the ElevenLabs stream-input
// websocket, collecting audio chunks as they arrive.
type ElevenLabsProvider struct {
	apiKey       string
	wsBaseURL    string
	defaultVoice string
	dialer       *websocket.Dialer
}

// NewElevenLabs creates a new ElevenLabs TTS provider.
func NewElevenLabs(apiKey string) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		apiKey:       strings.TrimSpace(apiKey),
		wsBaseURL:    elevenLabsDefaultWSBase,
		defaultVoice: elevenLabsDefaultVoice,
		dialer:       &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// WithWSBaseURL overrides the websocket endpoint. "{voice_id}" is replaced
// with the request voice.
func (e *ElevenLabsProvider) WithWSBaseURL(base string) *ElevenLabsProvider {
	if base = strings.TrimSpace(base); base != "" {
		e.wsBaseURL = base
	}
	return e
}

// WithDefaultVoice sets the voice ID used when a request names no
// ElevenLabs voice.
func (e *ElevenLabsProvider) WithDefaultVoice(id string) *ElevenLabsProvider {
	if id = strings.TrimSpace(id); id != "" {
		e.defaultVoice = id
	}
	return e
}

// Name returns the provider identifier.
func (e *ElevenLabsProvider) Name() string {
	return "elevenlabs"
}

// Synthesize converts text to audio, buffering the whole stream.
func (e *ElevenLabsProvider) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	format, rate := elevenLabsFormat(opts)
	var out []byte
	err := e.SynthesizeStream(ctx, text, opts, func(chunk []byte) error {
		out = append(out, chunk...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s := &Synthesis{Audio: out, Format: format}
	if format == "pcm" {
		s.SampleRate = rate
	}
	return s, nil
}

type elevenLabsMessage struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SynthesizeStream sends text over the websocket and calls onChunk for each
// decoded audio chunk until the service reports the final one.
func (e *ElevenLabsProvider) SynthesizeStream(ctx context.Context, text string, opts SynthesizeOptions, onChunk func([]byte) error) error {
	if e.apiKey == "" {
		return core.NewAuthenticationError(e.Name(), "elevenlabs api key is required")
	}
	voiceID := resolveVoice(opts.Voice, e.defaultVoice)
	wsURL, err := e.buildWSURL(voiceID, opts)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("xi-api-key", e.apiKey)
	conn, resp, err := e.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if resp != nil && resp.StatusCode >= 400 {
			return core.FromHTTPStatus(e.Name(), resp.StatusCode, resp.Header, nil)
		}
		return core.NewServiceUnavailableError(e.Name(), err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	text = strings.TrimSpace(text) + " "
	messages := []map[string]any{
		{"text": " ", "xi_api_key": e.apiKey},
		{"text": text, "try_trigger_generation": true},
		{"text": ""},
	}
	for _, m := range messages {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(m); err != nil {
			return e.streamError(ctx, fmt.Errorf("send text: %w", err))
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return e.streamError(ctx, err)
		}
		var msg elevenLabsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Error != "" {
			return core.NewServiceUnavailableError(e.Name(), errors.New(firstNonEmpty(msg.Message, msg.Error)))
		}
		if msg.Audio != "" {
			audio, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err != nil {
				return fmt.Errorf("decode audio: %w", err)
			}
			if err := onChunk(audio); err != nil {
				return err
			}
		}
		if msg.IsFinal {
			return nil
		}
	}
}

func (e *ElevenLabsProvider) streamError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return core.NewServiceUnavailableError(e.Name(), err)
}

func (e *ElevenLabsProvider) buildWSURL(voiceID string, opts SynthesizeOptions) (string, error) {
	base := strings.ReplaceAll(e.wsBaseURL, "{voice_id}", url.PathEscape(voiceID))
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid elevenlabs ws url: %w", err)
	}
	q := u.Query()
	model := opts.Model
	if model == "" {
		model = "eleven_flash_v2_5"
	}
	q.Set("model_id", model)
	format, rate := elevenLabsFormat(opts)
	if format == "pcm" {
		q.Set("output_format", fmt.Sprintf("pcm_%d", rate))
	} else {
		q.Set("output_format", "mp3_44100_128")
	}
	if opts.Language != "" {
		q.Set("language_code", opts.Language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// elevenLabsFormat returns "pcm" or "mp3"; wav requests are served as pcm.
func elevenLabsFormat(opts SynthesizeOptions) (string, int) {
	if getFormat(opts.Format) == "mp3" {
		return "mp3", 0
	}
	rate := opts.SampleRate
	switch rate {
	case 16000, 22050, 24000, 44100:
	default:
		rate = 24000
	}
	return "pcm", rate
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
