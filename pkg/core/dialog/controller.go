package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"
)

// MaxSpeechChars bounds the text handed to the synthesizer.
const MaxSpeechChars = 4000

// DefaultVoice is used when no voice is configured.
const DefaultVoice = "alloy"

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	Synthesizer Synthesizer
	Player      Player
	Reviewer    Reviewer // optional; without it review is a no-op

	Voice         string
	Voices        []string // allowed voices; defaults to the synthesizer's VoiceLister
	ReviewEnabled bool
	Logger        *slog.Logger
}

// Controller owns the session flags the operator can change while a
// conversation runs: pause, edit-before-speak, the active voice and the last
// spoken response. It is safe for concurrent use.
type Controller struct {
	synth    Synthesizer
	player   Player
	reviewer Reviewer
	logger   *slog.Logger

	mu      sync.RWMutex
	paused  bool
	review  bool
	voice   string
	voices  []string
	last    *Response
	pending *Response
}

// NewController creates a Controller.
func NewController(cfg ControllerConfig) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	voices := cfg.Voices
	if len(voices) == 0 {
		if vl, ok := cfg.Synthesizer.(VoiceLister); ok {
			voices = vl.Voices()
		}
	}
	voice := strings.TrimSpace(cfg.Voice)
	if voice == "" {
		voice = DefaultVoice
	}
	c := &Controller{
		synth:    cfg.Synthesizer,
		player:   cfg.Player,
		reviewer: cfg.Reviewer,
		logger:   logger,
		review:   cfg.ReviewEnabled,
		voices:   append([]string(nil), voices...),
	}
	if v, ok := c.lookupVoice(voice); ok {
		c.voice = v
	} else {
		c.voice = voice
		logger.Warn("configured voice is not in the voice list", "voice", voice)
	}
	return c
}

// Pause stops new turns from being captured. Idempotent.
func (c *Controller) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume allows turns to be captured again. Idempotent.
func (c *Controller) Resume() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
}

// Paused reports whether the conversation is paused.
func (c *Controller) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// SetReviewEnabled toggles edit-before-speak.
func (c *Controller) SetReviewEnabled(enabled bool) {
	c.mu.Lock()
	c.review = enabled
	c.mu.Unlock()
}

// ReviewEnabled reports whether edit-before-speak is on.
func (c *Controller) ReviewEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.review
}

// Voice returns the active voice.
func (c *Controller) Voice() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.voice
}

// Voices returns the allowed voices, nil when any voice is accepted.
func (c *Controller) Voices() []string {
	return append([]string(nil), c.voices...)
}

// SetVoice changes the active voice. Names are matched case-insensitively;
// an unknown name leaves the current voice unchanged.
func (c *Controller) SetVoice(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return c.Voice(), errors.New("voice name is empty")
	}
	v, ok := c.lookupVoice(name)
	if !ok {
		return c.Voice(), fmt.Errorf("unknown voice %q (available: %s)", name, strings.Join(c.voices, ", "))
	}
	c.mu.Lock()
	c.voice = v
	c.mu.Unlock()
	return v, nil
}

func (c *Controller) lookupVoice(name string) (string, bool) {
	if len(c.voices) == 0 {
		return name, true
	}
	for _, v := range c.voices {
		if strings.EqualFold(v, name) {
			return v, true
		}
	}
	return "", false
}

// LastResponse returns the most recently spoken response, or nil.
func (c *Controller) LastResponse() *Response {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return nil
	}
	r := *c.last
	return &r
}

// SetLastResponse records text as the response Repeat will replay.
func (c *Controller) SetLastResponse(text, language string) {
	c.mu.Lock()
	c.last = &Response{Text: text, Language: language}
	c.mu.Unlock()
}

// Pending returns the response waiting for review, or nil.
func (c *Controller) Pending() *Response {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pending == nil {
		return nil
	}
	r := *c.pending
	return &r
}

// Reset forgets the last and pending responses.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.last = nil
	c.pending = nil
	c.mu.Unlock()
}

// Repeat re-speaks the last response. It reports false, without calling the
// synthesizer, when nothing has been spoken yet.
func (c *Controller) Repeat(ctx context.Context) (bool, error) {
	last := c.LastResponse()
	if last == nil {
		return false, nil
	}
	return true, c.say(ctx, last.Text)
}

// EditBeforeSpeak hands text to the reviewer and returns the edited text.
// Without a reviewer the text is returned unchanged. An edit that clears the
// text keeps the original.
func (c *Controller) EditBeforeSpeak(ctx context.Context, text, language string) (string, error) {
	if c.reviewer == nil {
		return text, nil
	}
	c.mu.Lock()
	c.pending = &Response{Text: text, Language: language}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.pending = nil
		c.mu.Unlock()
	}()

	edited, err := c.reviewer.Review(ctx, text, language)
	if err != nil {
		return text, err
	}
	if strings.TrimSpace(edited) == "" {
		return text, nil
	}
	return edited, nil
}

// Speak records text as the last response, then synthesizes and plays it.
func (c *Controller) Speak(ctx context.Context, text, language string) error {
	c.SetLastResponse(text, language)
	return c.say(ctx, text)
}

// Announce speaks text without recording it as the last response.
func (c *Controller) Announce(ctx context.Context, text string) error {
	return c.say(ctx, text)
}

func (c *Controller) say(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		c.logger.Warn("nothing to speak")
		return nil
	}
	if c.synth == nil {
		return errors.New("no synthesizer configured")
	}
	text = TruncateSpeech(text)

	voice := c.Voice()
	clip, err := c.synth.Synthesize(ctx, text, voice)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	if c.player == nil {
		return nil
	}
	if err := c.player.Play(ctx, clip); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	return nil
}

// TruncateSpeech cuts text to MaxSpeechChars characters.
func TruncateSpeech(text string) string {
	if utf8.RuneCountInString(text) <= MaxSpeechChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxSpeechChars])
}
