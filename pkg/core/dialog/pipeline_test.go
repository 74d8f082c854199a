package dialog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vango-go/vocaiyze/pkg/core/conversation"
)

type pipelineFixture struct {
	capturer    *fakeCapturer
	transcriber *fakeTranscriber
	generator   *fakeGenerator
	synth       *fakeSynthesizer
	controller  *Controller
	buffer      *conversation.Buffer
	events      []Event
	appended    []conversation.Message
	pipeline    *Pipeline
}

func newPipelineFixture(t *testing.T, transcripts ...Transcript) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		capturer:    &fakeCapturer{},
		transcriber: &fakeTranscriber{transcripts: transcripts},
		generator:   &fakeGenerator{reply: "Sure, I can help with that."},
		synth:       &fakeSynthesizer{},
		buffer:      conversation.NewBuffer(conversation.WithSpeakerLabels("User", "Assistant")),
	}
	f.controller = NewController(ControllerConfig{Synthesizer: f.synth, Player: &fakePlayer{}})
	p, err := NewPipeline(PipelineConfig{
		Capturer:    f.capturer,
		Transcriber: f.transcriber,
		Generator:   f.generator,
		Controller:  f.controller,
		Buffer:      f.buffer,
		ExitPhrases: DefaultExitPhrases,
		OnEvent:     func(ev Event) { f.events = append(f.events, ev) },
		OnAppend:    func(m conversation.Message) { f.appended = append(f.appended, m) },
	})
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	f.pipeline = p
	return f
}

func (f *pipelineFixture) states() []State {
	var out []State
	for _, ev := range f.events {
		if sc, ok := ev.(*StateChangedEvent); ok {
			out = append(out, sc.To)
		}
	}
	return out
}

func TestNewPipeline_RequiresCollaborators(t *testing.T) {
	c := NewController(ControllerConfig{})
	if _, err := NewPipeline(PipelineConfig{Transcriber: &fakeTranscriber{}, Generator: &fakeGenerator{}, Controller: c}); err == nil {
		t.Fatal("expected error without capturer")
	}
	if _, err := NewPipeline(PipelineConfig{Capturer: &fakeCapturer{}, Generator: &fakeGenerator{}, Controller: c}); err == nil {
		t.Fatal("expected error without transcriber")
	}
	if _, err := NewPipeline(PipelineConfig{Capturer: &fakeCapturer{}, Transcriber: &fakeTranscriber{}, Controller: c}); err == nil {
		t.Fatal("expected error without generator")
	}
	if _, err := NewPipeline(PipelineConfig{Capturer: &fakeCapturer{}, Transcriber: &fakeTranscriber{}, Generator: &fakeGenerator{}}); err == nil {
		t.Fatal("expected error without controller")
	}
}

func TestRunTurn_SameLanguageSkipsTranslation(t *testing.T) {
	f := newPipelineFixture(t, Transcript{Text: "What time is the meeting?"})

	res, err := f.pipeline.RunTurn(context.Background(), conversation.SpeakerSelf, SpeakerProfile{SourceLanguage: "english", TargetLanguage: "ENGLISH"})
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if n := f.generator.translationCalls(); n != 0 {
		t.Fatalf("translation calls = %d, want 0", n)
	}
	if n := f.generator.generationCalls(); n != 1 {
		t.Fatalf("generation calls = %d, want 1", n)
	}
	if !res.Spoken || res.Final != "Sure, I can help with that." {
		t.Fatalf("result = %#v", res)
	}
	for _, s := range f.states() {
		if s == StateTranslatingIn || s == StateTranslatingOut {
			t.Fatalf("entered %s for same-language turn", s)
		}
	}
}

func TestRunTurn_TranslatesSpanishInputToWorkingLanguage(t *testing.T) {
	f := newPipelineFixture(t, Transcript{Text: "hola"})
	f.generator.translations = map[string]string{"English": "hello"}

	res, err := f.pipeline.RunTurn(context.Background(), conversation.SpeakerSelf, SpeakerProfile{SourceLanguage: "Spanish"})
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	prompts := f.generator.Prompts()
	if len(prompts) != 2 {
		t.Fatalf("prompts = %q, want translate + generate", prompts)
	}
	if prompts[0] != "Translate this to English: hola" {
		t.Fatalf("translate prompt = %q", prompts[0])
	}
	if n := f.generator.generationCalls(); n != 1 {
		t.Fatalf("generation calls = %d, want 1", n)
	}
	if prompts[1] != "User (English): hello" {
		t.Fatalf("generation prompt = %q", prompts[1])
	}
	if res.Input != "hello" || res.InputLanguage != "English" {
		t.Fatalf("input = %q/%q", res.Input, res.InputLanguage)
	}

	msgs := f.buffer.Messages()
	if len(msgs) != 2 {
		t.Fatalf("buffer len = %d, want 2", len(msgs))
	}
	if msgs[0].Speaker != conversation.SpeakerSelf || msgs[0].Text != "hello" {
		t.Fatalf("first message = %#v", msgs[0])
	}
	if msgs[1].Speaker != conversation.SpeakerOther || msgs[1].Text != res.Final {
		t.Fatalf("second message = %#v", msgs[1])
	}
	if len(f.appended) != 2 {
		t.Fatalf("appended = %d, want 2", len(f.appended))
	}
}

func TestRunTurn_TranslatesReplyToTargetLanguage(t *testing.T) {
	f := newPipelineFixture(t, Transcript{Text: "Where is the office?"})
	f.generator.translations = map[string]string{"German": "Das Büro ist im dritten Stock."}
	f.generator.reply = "The office is on the third floor."

	res, err := f.pipeline.RunTurn(context.Background(), conversation.SpeakerSelf, SpeakerProfile{TargetLanguage: "German"})
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if res.Reply != "The office is on the third floor." {
		t.Fatalf("reply = %q", res.Reply)
	}
	if res.Final != "Das Büro ist im dritten Stock." || res.FinalLanguage != "German" {
		t.Fatalf("final = %q/%q", res.Final, res.FinalLanguage)
	}
	calls := f.synth.Calls()
	if len(calls) != 1 || calls[0].text != res.Final {
		t.Fatalf("synth calls = %#v", calls)
	}
	last := f.controller.LastResponse()
	if last == nil || last.Text != res.Final || last.Language != "German" {
		t.Fatalf("last response = %#v", last)
	}
	msgs := f.buffer.Messages()
	if msgs[1].Language != "German" {
		t.Fatalf("reply language in buffer = %q", msgs[1].Language)
	}
}

func TestRunTurn_EmptyTranscriptMutatesNothing(t *testing.T) {
	f := newPipelineFixture(t, Transcript{Text: "   \n"})

	_, err := f.pipeline.RunTurn(context.Background(), conversation.SpeakerSelf, SpeakerProfile{})
	if !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("RunTurn() error = %v, want ErrNoSpeech", err)
	}
	if f.buffer.Len() != 0 {
		t.Fatalf("buffer len = %d, want 0", f.buffer.Len())
	}
	if len(f.generator.Prompts()) != 0 {
		t.Fatal("generator should not be called")
	}
	if f.pipeline.State() != StateIdle {
		t.Fatalf("state = %s, want idle", f.pipeline.State())
	}
}

func TestRunTurn_ExitPhrase(t *testing.T) {
	f := newPipelineFixture(t, Transcript{Text: "Goodbye."})

	res, err := f.pipeline.RunTurn(context.Background(), conversation.SpeakerSelf, SpeakerProfile{})
	if !errors.Is(err, ErrExitRequested) {
		t.Fatalf("RunTurn() error = %v, want ErrExitRequested", err)
	}
	if res == nil || res.Transcript != "Goodbye." {
		t.Fatalf("result = %#v", res)
	}
	if f.buffer.Len() != 0 || len(f.generator.Prompts()) != 0 {
		t.Fatal("exit phrase should not reach the buffer or generator")
	}
}

func TestRunTurn_ExitWordInsideSentenceIsNotExit(t *testing.T) {
	f := newPipelineFixture(t, Transcript{Text: "How do I exit the building?"})
	if _, err := f.pipeline.RunTurn(context.Background(), conversation.SpeakerSelf, SpeakerProfile{}); err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
}

func TestRunTurn_CaptureErrorLeavesBufferUntouched(t *testing.T) {
	f := newPipelineFixture(t)
	f.capturer.err = errors.New("no input device")

	_, err := f.pipeline.RunTurn(context.Background(), conversation.SpeakerSelf, SpeakerProfile{})
	step, ok := FailedStep(err)
	if !ok || step != StateCapturing {
		t.Fatalf("error = %v, want capture step error", err)
	}
	var se *StepError
	if !errors.As(err, &se) || se.Kind() != "capture error" {
		t.Fatalf("kind = %v", err)
	}
	if f.buffer.Len() != 0 {
		t.Fatal("buffer should be untouched")
	}
}

func TestRunTurn_TranscriptionError(t *testing.T) {
	f := newPipelineFixture(t)
	f.transcriber.err = errors.New("stt unavailable")

	_, err := f.pipeline.RunTurn(context.Background(), conversation.SpeakerSelf, SpeakerProfile{})
	if step, _ := FailedStep(err); step != StateTranscribing {
		t.Fatalf("error = %v, want transcription step", err)
	}
	if f.buffer.Len() != 0 {
		t.Fatal("buffer should be untouched")
	}
}

func TestRunTurn_GenerationErrorAbortsTurn(t *testing.T) {
	f := newPipelineFixture(t, Transcript{Text: "hello"})
	f.generator.err = errors.New("rate limited")

	_, err := f.pipeline.RunTurn(context.Background(), conversation.SpeakerSelf, SpeakerProfile{})
	if step, _ := FailedStep(err); step != StateGenerating {
		t.Fatalf("error = %v, want generation step", err)
	}
	if len(f.synth.Calls()) != 0 {
		t.Fatal("nothing should be spoken")
	}
	if f.buffer.Len() != 1 {
		t.Fatalf("buffer len = %d, want the input only", f.buffer.Len())
	}
}

func TestRunTurn_TranslationFailureFallsBackToOriginal(t *testing.T) {
	f := newPipelineFixture(t, Transcript{Text: "bonjour"})
	f.generator.translateErr = errors.New("translation service down")

	res, err := f.pipeline.RunTurn(context.Background(), conversation.SpeakerSelf, SpeakerProfile{SourceLanguage: "French"})
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if !res.TranslationLost {
		t.Fatal("expected TranslationLost")
	}
	msgs := f.buffer.Messages()
	if msgs[0].Text != "bonjour" || msgs[0].Language != "French" {
		t.Fatalf("first message = %#v", msgs[0])
	}
	warned := false
	for _, ev := range f.events {
		if w, ok := ev.(*WarningEvent); ok && w.Step == StateTranslatingIn {
			warned = true
		}
	}
	if !warned {
		t.Fatal("expected a translation warning event")
	}
}

func TestRunTurn_SynthesisErrorKeepsReplyRecorded(t *testing.T) {
	f := newPipelineFixture(t, Transcript{Text: "hello"})
	f.synth.err = errors.New("tts down")

	res, err := f.pipeline.RunTurn(context.Background(), conversation.SpeakerSelf, SpeakerProfile{})
	if step, _ := FailedStep(err); step != StateSpeaking {
		t.Fatalf("error = %v, want speaking step", err)
	}
	if res == nil || res.Spoken {
		t.Fatalf("result = %#v", res)
	}
	if f.buffer.Len() != 2 {
		t.Fatalf("buffer len = %d, want 2", f.buffer.Len())
	}
	if last := f.controller.LastResponse(); last == nil || last.Text != res.Final {
		t.Fatal("reply should be recorded as last response")
	}
}

func TestRunTurn_ReviewEditsReplyBeforeSpeaking(t *testing.T) {
	f := newPipelineFixture(t, Transcript{Text: "draft an email"})
	reviewer := &fakeReviewer{edit: func(s string) string { return strings.ToUpper(s) }}
	f.controller = NewController(ControllerConfig{Synthesizer: f.synth, Player: &fakePlayer{}, Reviewer: reviewer, ReviewEnabled: true})
	f.pipeline.controller = f.controller

	res, err := f.pipeline.RunTurn(context.Background(), conversation.SpeakerSelf, SpeakerProfile{})
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	want := strings.ToUpper(f.generator.reply)
	if res.Final != want {
		t.Fatalf("final = %q, want %q", res.Final, want)
	}
	if calls := f.synth.Calls(); calls[0].text != want {
		t.Fatalf("spoke %q", calls[0].text)
	}
	if f.buffer.Messages()[1].Text != want {
		t.Fatal("edited reply should be appended")
	}

	sawReview := false
	for _, s := range f.states() {
		if s == StateReviewing {
			sawReview = true
		}
	}
	if !sawReview {
		t.Fatal("expected reviewing state")
	}
}

func TestRunTurn_StateOrder(t *testing.T) {
	f := newPipelineFixture(t, Transcript{Text: "hola"})
	_, err := f.pipeline.RunTurn(context.Background(), conversation.SpeakerSelf, SpeakerProfile{SourceLanguage: "Spanish", TargetLanguage: "Spanish"})
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	want := []State{StateCapturing, StateTranscribing, StateTranslatingIn, StateGenerating, StateTranslatingOut, StateSpeaking, StateIdle}
	got := f.states()
	if len(got) != len(want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("states = %v, want %v", got, want)
		}
	}
}

func TestRunTurn_OtherSpeakerRepliesAsSelf(t *testing.T) {
	f := newPipelineFixture(t, Transcript{Text: "I'd like a coffee"})
	if _, err := f.pipeline.RunTurn(context.Background(), conversation.SpeakerOther, SpeakerProfile{}); err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	msgs := f.buffer.Messages()
	if msgs[0].Speaker != conversation.SpeakerOther || msgs[1].Speaker != conversation.SpeakerSelf {
		t.Fatalf("speakers = %v, %v", msgs[0].Speaker, msgs[1].Speaker)
	}
}

func TestRunTurn_UsesDetectedLanguageWhenUnconfigured(t *testing.T) {
	f := newPipelineFixture(t, Transcript{Text: "ciao", Language: "Italian"})
	res, err := f.pipeline.RunTurn(context.Background(), conversation.SpeakerSelf, SpeakerProfile{})
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if res.SourceLanguage != "Italian" {
		t.Fatalf("source language = %q", res.SourceLanguage)
	}
	if f.generator.translationCalls() != 1 {
		t.Fatalf("translation calls = %d, want 1", f.generator.translationCalls())
	}
}

func TestRunTurn_CancelCaptureAbortsCapture(t *testing.T) {
	f := newPipelineFixture(t)
	f.capturer.block = true

	done := make(chan error, 1)
	go func() {
		_, err := f.pipeline.RunTurn(context.Background(), conversation.SpeakerSelf, SpeakerProfile{})
		done <- err
	}()
	for f.capturer.Calls() == 0 {
		time.Sleep(time.Millisecond)
	}
	f.pipeline.CancelCapture()
	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestRunTurn_CancelOnCapturingStateIsHonored(t *testing.T) {
	f := newPipelineFixture(t, Transcript{Text: "hello"})
	f.pipeline.onEvent = func(ev Event) {
		if sc, ok := ev.(*StateChangedEvent); ok && sc.To == StateCapturing {
			f.pipeline.CancelCapture()
		}
	}

	_, err := f.pipeline.RunTurn(context.Background(), conversation.SpeakerSelf, SpeakerProfile{})
	if step, _ := FailedStep(err); step != StateCapturing || !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want cancelled capture", err)
	}
	if f.buffer.Len() != 0 || len(f.synth.Calls()) != 0 {
		t.Fatal("cancelled capture should not continue the turn")
	}
}

func TestRunTurn_CaptureParentCancelledBeforeStart(t *testing.T) {
	f := newPipelineFixture(t, Transcript{Text: "hello"})
	f.capturer.block = true
	captureCtx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.pipeline.runTurn(context.Background(), captureCtx, conversation.SpeakerSelf, SpeakerProfile{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestSameLanguage(t *testing.T) {
	if !SameLanguage("English", " english ") {
		t.Fatal("expected case-insensitive match")
	}
	if SameLanguage("English", "Spanish") {
		t.Fatal("different languages matched")
	}
}
