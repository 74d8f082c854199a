package dialog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func newTestController(synth *fakeSynthesizer, reviewer Reviewer) *Controller {
	cfg := ControllerConfig{Synthesizer: synth, Player: &fakePlayer{}}
	if reviewer != nil {
		cfg.Reviewer = reviewer
	}
	return NewController(cfg)
}

func TestController_RepeatWithoutLastResponseIsNoop(t *testing.T) {
	synth := &fakeSynthesizer{}
	c := newTestController(synth, nil)

	repeated, err := c.Repeat(context.Background())
	if err != nil {
		t.Fatalf("Repeat() error = %v", err)
	}
	if repeated {
		t.Fatal("Repeat() reported true with no last response")
	}
	if len(synth.Calls()) != 0 {
		t.Fatalf("synthesize calls = %d, want 0", len(synth.Calls()))
	}
}

func TestController_RepeatSynthesizesLastResponseOnce(t *testing.T) {
	synth := &fakeSynthesizer{}
	c := newTestController(synth, nil)
	c.SetLastResponse("The meeting is at noon.", "English")

	repeated, err := c.Repeat(context.Background())
	if err != nil || !repeated {
		t.Fatalf("Repeat() = %v, %v; want true, nil", repeated, err)
	}
	calls := synth.Calls()
	if len(calls) != 1 {
		t.Fatalf("synthesize calls = %d, want 1", len(calls))
	}
	if calls[0].text != "The meeting is at noon." {
		t.Fatalf("synthesized %q", calls[0].text)
	}
}

func TestController_PauseResumeIdempotent(t *testing.T) {
	c := newTestController(&fakeSynthesizer{}, nil)
	c.Pause()
	c.Pause()
	if !c.Paused() {
		t.Fatal("expected paused")
	}
	c.Resume()
	c.Resume()
	if c.Paused() {
		t.Fatal("expected resumed")
	}
}

func TestController_SetVoice(t *testing.T) {
	synth := &fakeSynthesizer{voices: []string{"alloy", "echo", "nova"}}
	c := newTestController(synth, nil)

	if c.Voice() != "alloy" {
		t.Fatalf("default voice = %q, want alloy", c.Voice())
	}
	got, err := c.SetVoice("NOVA")
	if err != nil || got != "nova" {
		t.Fatalf("SetVoice(NOVA) = %q, %v", got, err)
	}
	if _, err := c.SetVoice("robot"); err == nil {
		t.Fatal("expected error for unknown voice")
	}
	if c.Voice() != "nova" {
		t.Fatalf("voice after rejected change = %q, want nova", c.Voice())
	}

	if err := c.Speak(context.Background(), "hi", "English"); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if calls := synth.Calls(); calls[len(calls)-1].voice != "nova" {
		t.Fatalf("synthesized with voice %q", calls[len(calls)-1].voice)
	}
}

func TestController_SetVoiceWithoutCatalogueAcceptsAnyName(t *testing.T) {
	c := NewController(ControllerConfig{Synthesizer: &fakeSynthesizer{}, Voice: "custom-1"})
	if c.Voice() != "custom-1" {
		t.Fatalf("voice = %q", c.Voice())
	}
	if got, err := c.SetVoice("custom-2"); err != nil || got != "custom-2" {
		t.Fatalf("SetVoice() = %q, %v", got, err)
	}
	if _, err := c.SetVoice("  "); err == nil {
		t.Fatal("expected error for empty voice")
	}
}

func TestController_SpeakTruncatesLongText(t *testing.T) {
	synth := &fakeSynthesizer{}
	c := newTestController(synth, nil)
	long := strings.Repeat("é", MaxSpeechChars+50)

	if err := c.Speak(context.Background(), long, "French"); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	calls := synth.Calls()
	if n := utf8.RuneCountInString(calls[0].text); n != MaxSpeechChars {
		t.Fatalf("synthesized %d chars, want %d", n, MaxSpeechChars)
	}
	if last := c.LastResponse(); last == nil || last.Text != long {
		t.Fatal("last response should keep the full text")
	}
}

func TestController_SpeakRecordsLastResponseEvenOnFailure(t *testing.T) {
	synth := &fakeSynthesizer{err: errors.New("tts down")}
	c := newTestController(synth, nil)

	if err := c.Speak(context.Background(), "hello", "English"); err == nil {
		t.Fatal("expected synthesis error")
	}
	if last := c.LastResponse(); last == nil || last.Text != "hello" {
		t.Fatalf("last response = %#v", last)
	}
}

func TestController_SpeakEmptyTextSkipsSynthesis(t *testing.T) {
	synth := &fakeSynthesizer{}
	c := newTestController(synth, nil)
	if err := c.Speak(context.Background(), "   ", "English"); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if len(synth.Calls()) != 0 {
		t.Fatal("empty text should not be synthesized")
	}
}

func TestController_AnnounceDoesNotRecordLastResponse(t *testing.T) {
	synth := &fakeSynthesizer{}
	c := newTestController(synth, nil)
	if err := c.Announce(context.Background(), DefaultGreeting); err != nil {
		t.Fatalf("Announce() error = %v", err)
	}
	if c.LastResponse() != nil {
		t.Fatal("Announce should not set the last response")
	}
	if len(synth.Calls()) != 1 {
		t.Fatalf("synthesize calls = %d, want 1", len(synth.Calls()))
	}
}

func TestController_EditBeforeSpeak(t *testing.T) {
	var c *Controller
	var pendingDuring *Response
	reviewer := &fakeReviewer{
		edit:   func(s string) string { return s + " (edited)" },
		during: func() { pendingDuring = c.Pending() },
	}
	c = newTestController(&fakeSynthesizer{}, reviewer)

	got, err := c.EditBeforeSpeak(context.Background(), "Bonjour", "French")
	if err != nil {
		t.Fatalf("EditBeforeSpeak() error = %v", err)
	}
	if got != "Bonjour (edited)" {
		t.Fatalf("edited = %q", got)
	}
	if pendingDuring == nil || pendingDuring.Text != "Bonjour" || pendingDuring.Language != "French" {
		t.Fatalf("pending during review = %#v", pendingDuring)
	}
	if c.Pending() != nil {
		t.Fatal("pending should be cleared after review")
	}
}

func TestController_EditBeforeSpeakKeepsTextWhenCleared(t *testing.T) {
	reviewer := &fakeReviewer{edit: func(string) string { return "  " }}
	c := newTestController(&fakeSynthesizer{}, reviewer)
	got, err := c.EditBeforeSpeak(context.Background(), "original", "English")
	if err != nil || got != "original" {
		t.Fatalf("EditBeforeSpeak() = %q, %v", got, err)
	}
}

func TestController_EditBeforeSpeakWithoutReviewer(t *testing.T) {
	c := newTestController(&fakeSynthesizer{}, nil)
	got, err := c.EditBeforeSpeak(context.Background(), "as is", "English")
	if err != nil || got != "as is" {
		t.Fatalf("EditBeforeSpeak() = %q, %v", got, err)
	}
}

func TestTruncateSpeech(t *testing.T) {
	short := "short text"
	if TruncateSpeech(short) != short {
		t.Fatal("short text should be unchanged")
	}
	long := strings.Repeat("a", MaxSpeechChars+1)
	if got := TruncateSpeech(long); len(got) != MaxSpeechChars {
		t.Fatalf("len = %d, want %d", len(got), MaxSpeechChars)
	}
}
