// Package tts provides text-to-speech functionality.
package tts

import (
	"context"
	"unicode/utf8"

	"github.com/vango-go/vocaiyze/pkg/core"
)

// Provider is the interface for text-to-speech services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Synthesize converts text to audio.
	Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error)
}

// VoiceLister is implemented by providers with a fixed voice catalogue.
type VoiceLister interface {
	Voices() []string
}

// SynthesizeOptions configures synthesis.
type SynthesizeOptions struct {
	Voice      string  // Voice name or provider voice ID
	Model      string  // Provider-specific model
	Speed      float64 // Speed multiplier, 0 for the provider default
	Language   string  // Language code
	Format     string  // Output format: "mp3", "wav", or "pcm"
	SampleRate int     // Sample rate for pcm and wav output
}

// Synthesis is the result of synthesis.
type Synthesis struct {
	Audio      []byte // Audio data
	Format     string // Audio format
	SampleRate int    // Sample rate in Hz, 0 if unknown
}

// checkLength rejects text longer than limit characters.
func checkLength(text string, limit int) error {
	if n := utf8.RuneCountInString(text); limit > 0 && n > limit {
		return core.NewTextTooLongError(n, limit)
	}
	return nil
}

// getFormat normalizes a requested output format.
func getFormat(format string) string {
	switch format {
	case "mp3", "wav", "pcm":
		return format
	case "raw":
		return "pcm"
	default:
		return "mp3"
	}
}
