package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vango-go/vocaiyze/pkg/config"
	"github.com/vango-go/vocaiyze/pkg/core"
	"github.com/vango-go/vocaiyze/pkg/core/dialog"
	"github.com/vango-go/vocaiyze/pkg/core/providers/anthropic"
	"github.com/vango-go/vocaiyze/pkg/core/providers/cerebras"
	"github.com/vango-go/vocaiyze/pkg/core/providers/gemini"
	"github.com/vango-go/vocaiyze/pkg/core/providers/groq"
	"github.com/vango-go/vocaiyze/pkg/core/providers/ollama"
	"github.com/vango-go/vocaiyze/pkg/core/providers/openai"
	"github.com/vango-go/vocaiyze/pkg/core/providers/openrouter"
	"github.com/vango-go/vocaiyze/pkg/core/voice"
	"github.com/vango-go/vocaiyze/pkg/core/voice/stt"
	"github.com/vango-go/vocaiyze/pkg/core/voice/tts"
	"github.com/vango-go/vocaiyze/pkg/store"
)

const providerTimeout = 60 * time.Second

// buildGenerator registers every provider that has credentials and binds
// the configured model.
func buildGenerator(cfg config.Config) (*core.Generator, error) {
	providerName, _, err := core.ParseModelString(cfg.Model)
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireKey(providerName); err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: providerTimeout}
	engine := core.NewEngine(map[string]string{
		"openai":     cfg.OpenAIAPIKey,
		"gemini":     cfg.GeminiAPIKey,
		"groq":       cfg.GroqAPIKey,
		"anthropic":  cfg.AnthropicAPIKey,
		"openrouter": cfg.OpenRouterAPIKey,
		"cerebras":   cfg.CerebrasAPIKey,
	})
	if key := engine.GetAPIKey("openai"); key != "" {
		engine.RegisterProvider(openai.New(key, openai.WithHTTPClient(client)))
	}
	if key := engine.GetAPIKey("gemini"); key != "" {
		engine.RegisterProvider(gemini.New(key, gemini.WithHTTPClient(client)))
	}
	if key := engine.GetAPIKey("groq"); key != "" {
		engine.RegisterProvider(groq.New(key, groq.WithHTTPClient(client)))
	}
	if key := engine.GetAPIKey("anthropic"); key != "" {
		engine.RegisterProvider(anthropic.New(key, anthropic.WithHTTPClient(client)))
	}
	if key := engine.GetAPIKey("openrouter"); key != "" {
		engine.RegisterProvider(openrouter.New(key,
			openrouter.WithHTTPClient(client),
			openrouter.WithBaseURL(cfg.OpenRouterBaseURL),
			openrouter.WithAttribution(cfg.OpenRouterSiteURL, "vocAIyze"),
		))
	}
	if key := engine.GetAPIKey("cerebras"); key != "" {
		engine.RegisterProvider(cerebras.New(key, cerebras.WithHTTPClient(client)))
	}
	engine.RegisterProvider(ollama.New(ollama.WithBaseURL(cfg.OllamaBaseURL)))

	if _, ok := engine.GetProvider(providerName); !ok {
		return nil, fmt.Errorf("unsupported generation provider %q (available: %v)", providerName, engine.ProviderNames())
	}
	return core.NewGenerator(engine, cfg.Model), nil
}

// buildVoice creates the STT/TTS adapter for the configured providers.
func buildVoice(cfg config.Config) (*voice.Pipeline, error) {
	client := &http.Client{Timeout: providerTimeout}

	var sttProvider stt.Provider
	switch cfg.STTProvider {
	case "openai":
		if err := cfg.RequireKey("openai"); err != nil {
			return nil, err
		}
		sttProvider = stt.NewOpenAIWithClient(cfg.OpenAIAPIKey, client)
	case "groq":
		if err := cfg.RequireKey("groq"); err != nil {
			return nil, err
		}
		sttProvider = stt.NewGroq(cfg.GroqAPIKey, client)
	case "cartesia":
		if err := cfg.RequireKey("cartesia"); err != nil {
			return nil, err
		}
		sttProvider = stt.NewCartesiaWithClient(cfg.CartesiaAPIKey, client)
	default:
		return nil, fmt.Errorf("unsupported stt provider %q", cfg.STTProvider)
	}

	var ttsProvider tts.Provider
	switch cfg.TTSProvider {
	case "openai":
		if err := cfg.RequireKey("openai"); err != nil {
			return nil, err
		}
		ttsProvider = tts.NewOpenAIWithClient(cfg.OpenAIAPIKey, client)
	case "cartesia":
		if err := cfg.RequireKey("cartesia"); err != nil {
			return nil, err
		}
		ttsProvider = tts.NewCartesiaWithClient(cfg.CartesiaAPIKey, client).WithDefaultVoice(cfg.CartesiaVoiceID)
	case "elevenlabs":
		if err := cfg.RequireKey("elevenlabs"); err != nil {
			return nil, err
		}
		ttsProvider = tts.NewElevenLabs(cfg.ElevenLabsAPIKey).WithDefaultVoice(cfg.ElevenLabsVoiceID)
	default:
		return nil, fmt.Errorf("unsupported tts provider %q", cfg.TTSProvider)
	}

	p := voice.NewPipelineWithProviders(sttProvider, ttsProvider)
	p.STT.Model = cfg.STTModel
	p.TTS.Model = cfg.TTSModel
	p.TTS.Format = "mp3"
	return p, nil
}

// resolveVoice picks the starting voice: an explicit voice wins over a
// personality.
func resolveVoice(cfg config.Config, logger *slog.Logger) string {
	if cfg.VoicePersonality != "" && (cfg.Voice == "" || cfg.Voice == dialog.DefaultVoice) {
		if v, ok := tts.VoiceForPersonality(cfg.VoicePersonality); ok {
			return v
		}
		logger.Warn("unknown voice personality", "personality", cfg.VoicePersonality)
	}
	return cfg.Voice
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*store.Store, error) {
	if cfg.StoreDSN == "" {
		return nil, nil
	}
	s, err := store.Open(ctx, cfg.StoreDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("open transcript store: %w", err)
	}
	return s, nil
}

func profiles(cfg config.Config) (dialog.SpeakerProfile, dialog.SpeakerProfile) {
	self := dialog.SpeakerProfile{
		Label:          cfg.Self.Label,
		SourceLanguage: cfg.Self.Language,
		TargetLanguage: cfg.Self.TargetLanguage,
	}
	other := dialog.SpeakerProfile{
		Label:          cfg.Other.Label,
		SourceLanguage: cfg.Other.Language,
		TargetLanguage: cfg.Other.TargetLanguage,
	}
	return self, other
}
