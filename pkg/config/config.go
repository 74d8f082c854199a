// Package config loads vocaiyze settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ReviewMode selects how replies are reviewed before they are spoken.
type ReviewMode string

const (
	ReviewOff      ReviewMode = "off"
	ReviewTerminal ReviewMode = "terminal"
	ReviewDialog   ReviewMode = "dialog"
)

// Speaker configures one side of the conversation.
type Speaker struct {
	Label string `yaml:"label"`
	// Language the speaker talks in; empty means detected, then the
	// working language.
	Language string `yaml:"language"`
	// TargetLanguage is the language replies to this speaker are spoken
	// in; empty means the working language.
	TargetLanguage string `yaml:"target_language"`
}

// Config holds every runtime setting.
type Config struct {
	// Model is the generation model as provider/model.
	Model       string `yaml:"model"`
	STTProvider string `yaml:"stt_provider"`
	STTModel    string `yaml:"stt_model"`
	TTSProvider string `yaml:"tts_provider"`
	TTSModel    string `yaml:"tts_model"`

	Voice             string `yaml:"voice"`
	VoicePersonality  string `yaml:"voice_personality"`
	CartesiaVoiceID   string `yaml:"cartesia_voice_id"`
	ElevenLabsVoiceID string `yaml:"elevenlabs_voice_id"`

	OpenAIAPIKey     string `yaml:"-"`
	GeminiAPIKey     string `yaml:"-"`
	GroqAPIKey       string `yaml:"-"`
	AnthropicAPIKey  string `yaml:"-"`
	OpenRouterAPIKey string `yaml:"-"`
	CerebrasAPIKey   string `yaml:"-"`
	CartesiaAPIKey   string `yaml:"-"`
	ElevenLabsAPIKey string `yaml:"-"`
	OllamaBaseURL    string `yaml:"ollama_base_url"`

	// OpenRouterBaseURL overrides the public endpoint, for self-hosted
	// gateways. OpenRouterSiteURL is sent as attribution.
	OpenRouterBaseURL string `yaml:"openrouter_base_url"`
	OpenRouterSiteURL string `yaml:"openrouter_site_url"`

	CaptureDuration time.Duration `yaml:"capture_duration"`
	MaxTurns        int           `yaml:"max_turns"`
	MaxTokens       int           `yaml:"max_tokens"`
	WorkingLanguage string        `yaml:"working_language"`
	Self            Speaker       `yaml:"self"`
	Other           Speaker       `yaml:"other"`

	Review        ReviewMode `yaml:"review"`
	Greeting      bool       `yaml:"greeting"`
	Notifications bool       `yaml:"notifications"`
	StoreDSN      string     `yaml:"store_dsn"`

	// KnowledgeBase is the JSON file behind /kb. It is created with the
	// built-in categories when missing; empty keeps them in memory only.
	KnowledgeBase string `yaml:"knowledge_base"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Model:           "openai/gpt-4o-mini",
		STTProvider:     "openai",
		TTSProvider:     "openai",
		Voice:           "alloy",
		OllamaBaseURL:   "http://localhost:11434",
		CaptureDuration: 7 * time.Second,
		MaxTurns:        5,
		MaxTokens:       2000,
		WorkingLanguage: "English",
		Self:            Speaker{Label: "User"},
		Other:           Speaker{Label: "Assistant"},
		Review:          ReviewOff,
		Greeting:        true,
		Notifications:   true,
		KnowledgeBase:   "knowledge_base.json",
	}
}

// Load applies the YAML file at path (if non-empty) over the defaults, then
// the environment over that, and validates the result. A missing file is an
// error only when path was given explicitly.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromEnv is Load with the file named by VOCAIYZE_CONFIG.
func LoadFromEnv() (Config, error) {
	return Load(strings.TrimSpace(os.Getenv("VOCAIYZE_CONFIG")))
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Model = envOr("VOCAIYZE_MODEL", c.Model)
	c.STTProvider = strings.ToLower(envOr("VOCAIYZE_STT_PROVIDER", c.STTProvider))
	c.STTModel = envOr("VOCAIYZE_STT_MODEL", c.STTModel)
	c.TTSProvider = strings.ToLower(envOr("VOCAIYZE_TTS_PROVIDER", c.TTSProvider))
	c.TTSModel = envOr("VOCAIYZE_TTS_MODEL", c.TTSModel)

	c.Voice = envOr("DEFAULT_VOICE", c.Voice)
	c.VoicePersonality = envOr("VOCAIYZE_VOICE_PERSONALITY", c.VoicePersonality)
	c.CartesiaVoiceID = envOr("CARTESIA_VOICE_ID", c.CartesiaVoiceID)
	c.ElevenLabsVoiceID = envOr("ELEVENLABS_VOICE_ID", c.ElevenLabsVoiceID)

	c.OpenAIAPIKey = envOr("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.GeminiAPIKey = envOr("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GroqAPIKey = envOr("GROQ_API_KEY", c.GroqAPIKey)
	c.AnthropicAPIKey = envOr("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.OpenRouterAPIKey = envOr("OPENROUTER_API_KEY", c.OpenRouterAPIKey)
	c.CerebrasAPIKey = envOr("CEREBRAS_API_KEY", c.CerebrasAPIKey)
	c.CartesiaAPIKey = envOr("CARTESIA_API_KEY", c.CartesiaAPIKey)
	c.ElevenLabsAPIKey = envOr("ELEVENLABS_API_KEY", c.ElevenLabsAPIKey)
	c.OllamaBaseURL = envOr("OLLAMA_BASE_URL", c.OllamaBaseURL)
	c.OpenRouterBaseURL = envOr("OPENROUTER_BASE_URL", c.OpenRouterBaseURL)
	c.OpenRouterSiteURL = envOr("OPENROUTER_SITE_URL", c.OpenRouterSiteURL)

	c.CaptureDuration = envDurationOr("VOCAIYZE_CAPTURE_DURATION", c.CaptureDuration)
	c.MaxTurns = envIntOr("VOCAIYZE_MAX_TURNS", c.MaxTurns)
	c.MaxTokens = envIntOr("VOCAIYZE_MAX_TOKENS", c.MaxTokens)
	c.WorkingLanguage = envOr("VOCAIYZE_WORKING_LANGUAGE", c.WorkingLanguage)

	c.Self.Label = envOr("VOCAIYZE_SELF_LABEL", c.Self.Label)
	c.Self.Language = envOr("VOCAIYZE_SELF_LANGUAGE", c.Self.Language)
	c.Self.TargetLanguage = envOr("VOCAIYZE_SELF_TARGET_LANGUAGE", c.Self.TargetLanguage)
	c.Other.Label = envOr("VOCAIYZE_OTHER_LABEL", c.Other.Label)
	c.Other.Language = envOr("VOCAIYZE_OTHER_LANGUAGE", c.Other.Language)
	c.Other.TargetLanguage = envOr("VOCAIYZE_OTHER_TARGET_LANGUAGE", c.Other.TargetLanguage)

	c.Review = ReviewMode(strings.ToLower(envOr("VOCAIYZE_REVIEW", string(c.Review))))
	c.Greeting = envBoolOr("VOCAIYZE_GREETING", c.Greeting)
	c.Notifications = envBoolOr("VOCAIYZE_NOTIFICATIONS", c.Notifications)
	c.StoreDSN = envOr("VOCAIYZE_STORE_DSN", c.StoreDSN)
	c.KnowledgeBase = envOr("VOCAIYZE_KNOWLEDGE_BASE", c.KnowledgeBase)
}

// Validate reports the first invalid setting, naming its variable.
func (c Config) Validate() error {
	if provider, model, ok := strings.Cut(c.Model, "/"); !ok || provider == "" || model == "" {
		return fmt.Errorf("VOCAIYZE_MODEL must be provider/model, got %q", c.Model)
	}
	switch c.STTProvider {
	case "openai", "groq", "cartesia":
	default:
		return fmt.Errorf("VOCAIYZE_STT_PROVIDER must be openai, groq or cartesia, got %q", c.STTProvider)
	}
	switch c.TTSProvider {
	case "openai", "cartesia", "elevenlabs":
	default:
		return fmt.Errorf("VOCAIYZE_TTS_PROVIDER must be openai, cartesia or elevenlabs, got %q", c.TTSProvider)
	}
	if c.CaptureDuration <= 0 {
		return fmt.Errorf("VOCAIYZE_CAPTURE_DURATION must be > 0")
	}
	if c.MaxTurns <= 0 {
		return fmt.Errorf("VOCAIYZE_MAX_TURNS must be > 0")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("VOCAIYZE_MAX_TOKENS must be > 0")
	}
	if strings.TrimSpace(c.WorkingLanguage) == "" {
		return fmt.Errorf("VOCAIYZE_WORKING_LANGUAGE must not be empty")
	}
	if strings.TrimSpace(c.Self.Label) == "" || strings.TrimSpace(c.Other.Label) == "" {
		return fmt.Errorf("VOCAIYZE_SELF_LABEL and VOCAIYZE_OTHER_LABEL must not be empty")
	}
	if strings.EqualFold(c.Self.Label, c.Other.Label) {
		return fmt.Errorf("VOCAIYZE_SELF_LABEL and VOCAIYZE_OTHER_LABEL must differ")
	}
	switch c.Review {
	case ReviewOff, ReviewTerminal, ReviewDialog:
	default:
		return fmt.Errorf("VOCAIYZE_REVIEW must be off, terminal or dialog, got %q", c.Review)
	}
	return nil
}

// APIKey returns the key configured for a provider name.
func (c Config) APIKey(provider string) string {
	switch provider {
	case "openai":
		return c.OpenAIAPIKey
	case "gemini":
		return c.GeminiAPIKey
	case "groq":
		return c.GroqAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	case "openrouter":
		return c.OpenRouterAPIKey
	case "cerebras":
		return c.CerebrasAPIKey
	case "cartesia":
		return c.CartesiaAPIKey
	case "elevenlabs":
		return c.ElevenLabsAPIKey
	default:
		return ""
	}
}

// RequireKey returns an error naming the variable when provider needs a
// key that is not set.
func (c Config) RequireKey(provider string) error {
	if provider == "ollama" {
		return nil
	}
	if c.APIKey(provider) == "" {
		return errors.New(strings.ToUpper(provider) + "_API_KEY must be set")
	}
	return nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

// envDurationOr accepts Go durations ("7s") or plain seconds ("7").
func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
