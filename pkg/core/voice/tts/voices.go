package tts

import "strings"

// Catalogue voices served by OpenAI-compatible speech endpoints.
const (
	VoiceAlloy   = "alloy"
	VoiceEcho    = "echo"
	VoiceFable   = "fable"
	VoiceOnyx    = "onyx"
	VoiceNova    = "nova"
	VoiceShimmer = "shimmer"
)

var catalogue = []string{VoiceAlloy, VoiceEcho, VoiceFable, VoiceOnyx, VoiceNova, VoiceShimmer}

var personalities = map[string]string{
	"formal_male":   VoiceOnyx,
	"formal_female": VoiceNova,
	"casual_male":   VoiceEcho,
	"casual_female": VoiceAlloy,
	"friendly":      VoiceShimmer,
	"storytelling":  VoiceFable,
}

// Catalogue returns the named voices in display order.
func Catalogue() []string {
	return append([]string(nil), catalogue...)
}

// IsCatalogueVoice reports whether name is one of the catalogue voices,
// ignoring case.
func IsCatalogueVoice(name string) bool {
	for _, v := range catalogue {
		if strings.EqualFold(v, strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// VoiceForPersonality maps a personality such as "formal_female" or
// "storytelling" to a catalogue voice.
func VoiceForPersonality(personality string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(personality))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	v, ok := personalities[key]
	return v, ok
}

// contextLanguages are the languages the catalogue voices are known to
// speak well.
var contextLanguages = []string{"English", "Spanish", "French", "German", "Chinese", "Japanese"}

// VoiceForContext suggests a catalogue voice for a reply in language with
// the given sentiment ("positive", "negative", "neutral") and style
// ("formal", "casual"). Negative formal replies get a male voice and other
// formal replies a female one; casual replies are the reverse. current is
// returned for languages outside contextLanguages.
func VoiceForContext(language, sentiment, style, current string) string {
	supported := false
	for _, l := range contextLanguages {
		if strings.EqualFold(l, strings.TrimSpace(language)) {
			supported = true
			break
		}
	}
	if !supported {
		return current
	}

	style = strings.ToLower(strings.TrimSpace(style))
	if style != "casual" {
		style = "formal"
	}
	negative := strings.EqualFold(strings.TrimSpace(sentiment), "negative")
	gender := "female"
	if negative == (style == "formal") {
		gender = "male"
	}
	v, _ := VoiceForPersonality(style + "_" + gender)
	return v
}
