// Package stt provides speech-to-text functionality.
package stt

import (
	"context"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Provider is the interface for speech-to-text services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Transcribe converts audio to text.
	Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (*Transcript, error)
}

// TranscribeOptions configures transcription.
type TranscribeOptions struct {
	Model      string // Provider-specific model
	Language   string // ISO language code hint; empty lets the service detect it
	Format     string // Audio format hint (wav, mp3, webm, etc.)
	SampleRate int    // Audio sample rate in Hz
	Timestamps bool   // Include word-level timestamps
}

// Transcript is the result of transcription.
type Transcript struct {
	Text     string  // Full transcribed text
	Language string  // Detected or specified language, as an English name
	Duration float64 // Audio duration in seconds
	Words    []Word  // Word-level details (if timestamps requested)
}

// Word represents a single transcribed word with timing.
type Word struct {
	Word  string  // The word
	Start float64 // Start time in seconds
	End   float64 // End time in seconds
}

// LanguageName turns a language reported by a service ("en", "pt-BR",
// "english") into its English display name ("English", "Brazilian
// Portuguese", "English").
func LanguageName(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	if looksLikeTag(lang) {
		if tag, err := language.Parse(lang); err == nil {
			if name := display.English.Tags().Name(tag); name != "" {
				return name
			}
		}
	}
	r := []rune(strings.ToLower(lang))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func looksLikeTag(s string) bool {
	primary, _, _ := strings.Cut(strings.ReplaceAll(s, "_", "-"), "-")
	return len(primary) == 2 || len(primary) == 3
}

// languageCode returns the ISO 639-1 code for a language name or tag, or ""
// when it is not recognised.
func languageCode(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	if looksLikeTag(lang) {
		if tag, err := language.Parse(lang); err == nil {
			base, _ := tag.Base()
			return base.String()
		}
	}
	namer := display.English.Languages()
	for _, tag := range commonLanguages {
		if strings.EqualFold(namer.Name(tag), lang) {
			base, _ := tag.Base()
			return base.String()
		}
	}
	return ""
}

var commonLanguages = []language.Tag{
	language.English, language.Spanish, language.French, language.German,
	language.Italian, language.Portuguese, language.Dutch, language.Russian,
	language.Japanese, language.Korean, language.Chinese, language.Arabic,
	language.Hindi, language.Turkish, language.Polish, language.Swedish,
	language.Ukrainian, language.Vietnamese, language.Indonesian,
}
