package dialog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vango-go/vocaiyze/pkg/core/media"
)

type fakeCapturer struct {
	mu    sync.Mutex
	calls int
	err   error
	block bool // wait for ctx cancellation
}

func (f *fakeCapturer) Capture(ctx context.Context, _ time.Duration) (*media.Clip, error) {
	f.mu.Lock()
	f.calls++
	err, block := f.err, f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &media.Clip{Data: []byte{1, 2, 3, 4}, Format: "wav"}, nil
}

func (f *fakeCapturer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeTranscriber returns transcripts in order, then empty text.
type fakeTranscriber struct {
	mu          sync.Mutex
	transcripts []Transcript
	calls       int
	err         error
}

func (f *fakeTranscriber) Transcribe(context.Context, *media.Clip) (*Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.transcripts) {
		f.calls++
		return &Transcript{}, nil
	}
	tr := f.transcripts[f.calls]
	f.calls++
	return &tr, nil
}

// fakeGenerator answers translation prompts from translations, and any other
// prompt with reply.
type fakeGenerator struct {
	mu           sync.Mutex
	reply        string
	err          error
	translateErr error
	translations map[string]string // target language -> output
	prompts      []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if strings.HasPrefix(prompt, "Translate this to ") {
		if f.translateErr != nil {
			return "", f.translateErr
		}
		rest := strings.TrimPrefix(prompt, "Translate this to ")
		lang := rest[:strings.Index(rest, ":")]
		if out, ok := f.translations[lang]; ok {
			return out, nil
		}
		return "[" + lang + "] " + rest[len(lang)+2:], nil
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeGenerator) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *fakeGenerator) translationCalls() int {
	n := 0
	for _, p := range f.Prompts() {
		if strings.HasPrefix(p, "Translate this to ") {
			n++
		}
	}
	return n
}

func (f *fakeGenerator) generationCalls() int {
	return len(f.Prompts()) - f.translationCalls()
}

type synthCall struct {
	text  string
	voice string
}

type fakeSynthesizer struct {
	mu     sync.Mutex
	calls  []synthCall
	err    error
	voices []string
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, text, voice string) (*media.Clip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, synthCall{text: text, voice: voice})
	if f.err != nil {
		return nil, f.err
	}
	return &media.Clip{Data: []byte(text), Format: "mp3"}, nil
}

func (f *fakeSynthesizer) Voices() []string { return f.voices }

func (f *fakeSynthesizer) Calls() []synthCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]synthCall(nil), f.calls...)
}

type fakePlayer struct {
	mu     sync.Mutex
	played int
}

func (f *fakePlayer) Play(context.Context, *media.Clip) error {
	f.mu.Lock()
	f.played++
	f.mu.Unlock()
	return nil
}

func (f *fakePlayer) Played() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.played
}

type fakeReviewer struct {
	edit   func(string) string
	err    error
	seen   []string
	during func()
}

func (f *fakeReviewer) Review(_ context.Context, text, _ string) (string, error) {
	f.seen = append(f.seen, text)
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return "", f.err
	}
	if f.edit != nil {
		return f.edit(text), nil
	}
	return text, nil
}
