// Package voice adapts speech-to-text and text-to-speech providers to the
// dialog collaborators.
package voice

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vango-go/vocaiyze/pkg/core/dialog"
	"github.com/vango-go/vocaiyze/pkg/core/media"
	"github.com/vango-go/vocaiyze/pkg/core/voice/stt"
	"github.com/vango-go/vocaiyze/pkg/core/voice/tts"
)

// Pipeline handles STT and TTS for dialog turns.
type Pipeline struct {
	sttProvider stt.Provider
	ttsProvider tts.Provider

	// STT holds request defaults for every transcription.
	STT stt.TranscribeOptions
	// TTS holds request defaults for every synthesis. Voice is overridden
	// per call.
	TTS tts.SynthesizeOptions
}

// NewPipelineWithProviders creates a new voice pipeline with custom providers.
func NewPipelineWithProviders(sttProvider stt.Provider, ttsProvider tts.Provider) *Pipeline {
	return &Pipeline{
		sttProvider: sttProvider,
		ttsProvider: ttsProvider,
		TTS:         tts.SynthesizeOptions{Format: "mp3"},
	}
}

// STTProvider returns the current STT provider.
func (p *Pipeline) STTProvider() stt.Provider {
	return p.sttProvider
}

// TTSProvider returns the current TTS provider.
func (p *Pipeline) TTSProvider() tts.Provider {
	return p.ttsProvider
}

// Transcribe uploads clip to the STT provider. Raw PCM is wrapped in a WAV
// container first.
func (p *Pipeline) Transcribe(ctx context.Context, clip *media.Clip) (*dialog.Transcript, error) {
	if p.sttProvider == nil {
		return nil, fmt.Errorf("no stt provider configured")
	}
	if clip.Empty() {
		return &dialog.Transcript{}, nil
	}
	wav, err := clip.ToWAV()
	if err != nil {
		return nil, fmt.Errorf("encode audio: %w", err)
	}

	opts := p.STT
	opts.Format = wav.Format
	if wav.SampleRate > 0 {
		opts.SampleRate = wav.SampleRate
	}
	trans, err := p.sttProvider.Transcribe(ctx, bytes.NewReader(wav.Data), opts)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	return &dialog.Transcript{
		Text:     strings.TrimSpace(trans.Text),
		Language: trans.Language,
		Duration: time.Duration(trans.Duration * float64(time.Second)),
	}, nil
}

// Synthesize converts text to a playable clip with the given voice.
func (p *Pipeline) Synthesize(ctx context.Context, text, voice string) (*media.Clip, error) {
	if p.ttsProvider == nil {
		return nil, fmt.Errorf("no tts provider configured")
	}
	if strings.TrimSpace(text) == "" {
		return &media.Clip{}, nil
	}
	opts := p.TTS
	opts.Voice = voice
	synth, err := p.ttsProvider.Synthesize(ctx, text, opts)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	clip := &media.Clip{Data: synth.Audio, Format: synth.Format, SampleRate: synth.SampleRate}
	if clip.Format == "pcm" {
		clip.Channels = 1
		if clip.SampleRate > 0 {
			clip.Duration = time.Duration(len(clip.Data)/2) * time.Second / time.Duration(clip.SampleRate)
		}
	}
	return clip, nil
}

// Voices returns the TTS provider's voice catalogue, or nil when the
// provider accepts arbitrary voice IDs.
func (p *Pipeline) Voices() []string {
	if lister, ok := p.ttsProvider.(tts.VoiceLister); ok {
		return lister.Voices()
	}
	return nil
}

var (
	_ dialog.Transcriber = (*Pipeline)(nil)
	_ dialog.Synthesizer = (*Pipeline)(nil)
	_ dialog.VoiceLister = (*Pipeline)(nil)
)
