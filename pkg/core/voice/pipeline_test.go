package voice

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/vango-go/vocaiyze/pkg/core/media"
	"github.com/vango-go/vocaiyze/pkg/core/voice/stt"
	"github.com/vango-go/vocaiyze/pkg/core/voice/tts"
)

type fakeSTTProvider struct {
	transcript *stt.Transcript
	err        error
	lastAudio  []byte
	lastOpts   stt.TranscribeOptions
	calls      int
}

func (f *fakeSTTProvider) Name() string { return "fake-stt" }

func (f *fakeSTTProvider) Transcribe(_ context.Context, audio io.Reader, opts stt.TranscribeOptions) (*stt.Transcript, error) {
	f.calls++
	f.lastOpts = opts
	f.lastAudio, _ = io.ReadAll(audio)
	if f.err != nil {
		return nil, f.err
	}
	return f.transcript, nil
}

type fakeTTSProvider struct {
	synthesis *tts.Synthesis
	err       error
	lastText  string
	lastOpts  tts.SynthesizeOptions
}

func (f *fakeTTSProvider) Name() string { return "fake-tts" }

func (f *fakeTTSProvider) Synthesize(_ context.Context, text string, opts tts.SynthesizeOptions) (*tts.Synthesis, error) {
	f.lastText = text
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.synthesis, nil
}

type listingTTSProvider struct {
	fakeTTSProvider
}

func (l *listingTTSProvider) Voices() []string { return []string{"alloy", "nova"} }

func TestTranscribe_WrapsPCMInWAV(t *testing.T) {
	sttP := &fakeSTTProvider{transcript: &stt.Transcript{Text: "  hola  ", Language: "Spanish", Duration: 1.25}}
	p := NewPipelineWithProviders(sttP, &fakeTTSProvider{})
	p.STT.Model = "whisper-1"

	clip := media.NewPCMClip([]int16{1, 2, 3, 4}, 16000)
	got, err := p.Transcribe(t.Context(), clip)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got.Text != "hola" || got.Language != "Spanish" || got.Duration != 1250*time.Millisecond {
		t.Fatalf("transcript = %#v", got)
	}
	if string(sttP.lastAudio[:4]) != "RIFF" || len(sttP.lastAudio) != 44+8 {
		t.Fatalf("uploaded %d bytes, want WAV header + 8 bytes PCM", len(sttP.lastAudio))
	}
	if sttP.lastOpts.Format != "wav" || sttP.lastOpts.SampleRate != 16000 || sttP.lastOpts.Model != "whisper-1" {
		t.Fatalf("opts = %#v", sttP.lastOpts)
	}
}

func TestTranscribe_EncodedClipPassesThrough(t *testing.T) {
	sttP := &fakeSTTProvider{transcript: &stt.Transcript{Text: "hi"}}
	p := NewPipelineWithProviders(sttP, &fakeTTSProvider{})

	if _, err := p.Transcribe(t.Context(), &media.Clip{Data: []byte("ID3"), Format: "mp3"}); err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if string(sttP.lastAudio) != "ID3" || sttP.lastOpts.Format != "mp3" {
		t.Fatalf("audio/format = %q/%q", sttP.lastAudio, sttP.lastOpts.Format)
	}
}

func TestTranscribe_EmptyClipSkipsProvider(t *testing.T) {
	sttP := &fakeSTTProvider{}
	p := NewPipelineWithProviders(sttP, &fakeTTSProvider{})

	got, err := p.Transcribe(t.Context(), &media.Clip{})
	if err != nil || got.Text != "" {
		t.Fatalf("Transcribe() = %#v, %v", got, err)
	}
	if sttP.calls != 0 {
		t.Fatalf("provider called %d times", sttP.calls)
	}
}

func TestTranscribe_WrapsProviderError(t *testing.T) {
	boom := errors.New("boom")
	p := NewPipelineWithProviders(&fakeSTTProvider{err: boom}, &fakeTTSProvider{})
	_, err := p.Transcribe(t.Context(), &media.Clip{Data: []byte("x"), Format: "wav"})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped boom", err)
	}
}

func TestSynthesize_UsesVoiceAndDefaults(t *testing.T) {
	ttsP := &fakeTTSProvider{synthesis: &tts.Synthesis{Audio: make([]byte, 48000), Format: "pcm", SampleRate: 24000}}
	p := NewPipelineWithProviders(&fakeSTTProvider{}, ttsP)
	p.TTS.Format = "pcm"
	p.TTS.Speed = 1.1

	clip, err := p.Synthesize(t.Context(), "Good morning.", "nova")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if ttsP.lastText != "Good morning." || ttsP.lastOpts.Voice != "nova" || ttsP.lastOpts.Speed != 1.1 {
		t.Fatalf("text/opts = %q/%#v", ttsP.lastText, ttsP.lastOpts)
	}
	if clip.Format != "pcm" || clip.Channels != 1 || clip.Duration != time.Second {
		t.Fatalf("clip = %#v", clip)
	}
	if p.TTS.Voice != "" {
		t.Fatal("per-call voice must not leak into defaults")
	}
}

func TestSynthesize_BlankTextSkipsProvider(t *testing.T) {
	ttsP := &fakeTTSProvider{}
	p := NewPipelineWithProviders(&fakeSTTProvider{}, ttsP)
	clip, err := p.Synthesize(t.Context(), "   ", "alloy")
	if err != nil || !clip.Empty() {
		t.Fatalf("Synthesize() = %#v, %v", clip, err)
	}
	if ttsP.lastText != "" {
		t.Fatal("provider should not be called")
	}
}

func TestVoices(t *testing.T) {
	if got := NewPipelineWithProviders(nil, &fakeTTSProvider{}).Voices(); got != nil {
		t.Fatalf("Voices() = %v, want nil", got)
	}
	got := NewPipelineWithProviders(nil, &listingTTSProvider{}).Voices()
	if !reflect.DeepEqual(got, []string{"alloy", "nova"}) {
		t.Fatalf("Voices() = %v", got)
	}
}
