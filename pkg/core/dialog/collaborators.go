// Package dialog runs a spoken conversation: it captures a turn, transcribes
// it, generates a reply from the bounded history, optionally translates and
// reviews it, and speaks it back.
package dialog

import (
	"context"
	"time"

	"github.com/vango-go/vocaiyze/pkg/core/media"
)

// Transcript is the text recognized in one captured clip.
type Transcript struct {
	Text     string
	Language string // detected language, empty when the service reports none
	Duration time.Duration
}

// Capturer records one utterance from the input device. Implementations must
// return promptly once ctx is cancelled.
type Capturer interface {
	Capture(ctx context.Context, duration time.Duration) (*media.Clip, error)
}

// Transcriber converts speech to text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip *media.Clip) (*Transcript, error)
}

// Generator produces a completion for a prompt. It is used both for replies
// and for translations.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Synthesizer converts text to speech using the named voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (*media.Clip, error)
}

// Player plays a clip to completion.
type Player interface {
	Play(ctx context.Context, clip *media.Clip) error
}

// Reviewer lets a person edit text before it is spoken. It blocks until the
// edit is confirmed and returns the possibly unchanged text.
type Reviewer interface {
	Review(ctx context.Context, text, language string) (string, error)
}

// VoiceLister is implemented by synthesizers that can enumerate their voices.
type VoiceLister interface {
	Voices() []string
}

// Response is text with the language it is written in.
type Response struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}
