package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/vango-go/vocaiyze/pkg/core/conversation"
)

const (
	// DefaultWorkingLanguage is the language replies are generated in.
	DefaultWorkingLanguage = "English"
	// DefaultCaptureDuration is how long one turn records for.
	DefaultCaptureDuration = 7 * time.Second
)

// SpeakerProfile describes the languages of one side of the conversation.
type SpeakerProfile struct {
	Label string
	// SourceLanguage is what the speaker talks in. Empty means use the
	// language the transcriber detected, then the working language.
	SourceLanguage string
	// TargetLanguage is what the reply to this speaker's turn is spoken in.
	// Empty means the working language.
	TargetLanguage string
}

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	Capturer    Capturer
	Transcriber Transcriber
	Generator   Generator
	Controller  *Controller
	Buffer      *conversation.Buffer

	WorkingLanguage string
	CaptureDuration time.Duration
	ExitPhrases     []string // matched case-insensitively, ignoring punctuation

	// OnEvent receives state, transcript and warning events.
	OnEvent func(Event)
	// OnAppend is called after every message appended to the buffer.
	OnAppend func(conversation.Message)
	Logger   *slog.Logger
}

// TurnResult describes one completed turn.
type TurnResult struct {
	Speaker         conversation.Speaker
	Transcript      string
	SourceLanguage  string
	Input           string // text appended for the speaker, translated when needed
	InputLanguage   string
	Reply           string // generator output in the working language
	Final           string // text spoken, after translation and review
	FinalLanguage   string
	Spoken          bool
	TranslationLost bool // a translation failed and untranslated text was used
}

// Pipeline runs one capture-to-playback turn at a time.
type Pipeline struct {
	capturer    Capturer
	transcriber Transcriber
	generator   Generator
	controller  *Controller
	buffer      *conversation.Buffer

	working  string
	duration time.Duration
	exits    map[string]struct{}
	onEvent  func(Event)
	onAppend func(conversation.Message)
	logger   *slog.Logger

	mu            sync.Mutex
	state         State
	cancelCapture context.CancelFunc
}

// NewPipeline creates a Pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Capturer == nil {
		return nil, errors.New("capturer is required")
	}
	if cfg.Transcriber == nil {
		return nil, errors.New("transcriber is required")
	}
	if cfg.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if cfg.Controller == nil {
		return nil, errors.New("controller is required")
	}
	if cfg.Buffer == nil {
		cfg.Buffer = conversation.NewBuffer()
	}
	if strings.TrimSpace(cfg.WorkingLanguage) == "" {
		cfg.WorkingLanguage = DefaultWorkingLanguage
	}
	if cfg.CaptureDuration <= 0 {
		cfg.CaptureDuration = DefaultCaptureDuration
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	exits := make(map[string]struct{}, len(cfg.ExitPhrases))
	for _, p := range cfg.ExitPhrases {
		if n := normalizePhrase(p); n != "" {
			exits[n] = struct{}{}
		}
	}
	return &Pipeline{
		capturer:    cfg.Capturer,
		transcriber: cfg.Transcriber,
		generator:   cfg.Generator,
		controller:  cfg.Controller,
		buffer:      cfg.Buffer,
		working:     cfg.WorkingLanguage,
		duration:    cfg.CaptureDuration,
		exits:       exits,
		onEvent:     cfg.OnEvent,
		onAppend:    cfg.OnAppend,
		logger:      cfg.Logger,
	}, nil
}

// State returns the current step.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Buffer returns the conversation history the pipeline appends to.
func (p *Pipeline) Buffer() *conversation.Buffer { return p.buffer }

// WorkingLanguage returns the language replies are generated in.
func (p *Pipeline) WorkingLanguage() string { return p.working }

// CancelCapture aborts an in-progress capture. Later steps are unaffected.
func (p *Pipeline) CancelCapture() {
	p.mu.Lock()
	cancel := p.cancelCapture
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	prev := p.state
	p.state = s
	p.mu.Unlock()
	if prev != s {
		p.emit(&StateChangedEvent{From: prev, To: s})
	}
}

func (p *Pipeline) emit(ev Event) {
	if p.onEvent != nil {
		p.onEvent(ev)
	}
}

// RunTurn captures, transcribes and answers one utterance from speaker.
//
// An empty transcript returns ErrNoSpeech and an exit phrase returns
// ErrExitRequested; neither touches the buffer. Failures are returned as a
// *StepError. A failed translation degrades to the untranslated text.
func (p *Pipeline) RunTurn(ctx context.Context, speaker conversation.Speaker, profile SpeakerProfile) (*TurnResult, error) {
	return p.runTurn(ctx, ctx, speaker, profile)
}

// runTurn records under captureParent, which can be cancelled without
// affecting the later steps run under ctx. A cancelled capture ends the turn
// even if the capturer returned audio.
func (p *Pipeline) runTurn(ctx, captureParent context.Context, speaker conversation.Speaker, profile SpeakerProfile) (*TurnResult, error) {
	defer p.setState(StateIdle)

	captureCtx, cancel := context.WithCancel(captureParent)
	defer cancel()
	p.mu.Lock()
	p.cancelCapture = cancel
	p.mu.Unlock()

	p.setState(StateCapturing)
	clip, err := p.capturer.Capture(captureCtx, p.duration)
	p.mu.Lock()
	p.cancelCapture = nil
	p.mu.Unlock()
	if err == nil {
		err = captureCtx.Err()
	}
	if err != nil {
		return nil, &StepError{Step: StateCapturing, Err: err}
	}

	p.setState(StateTranscribing)
	tr, err := p.transcriber.Transcribe(ctx, clip)
	if err != nil {
		return nil, &StepError{Step: StateTranscribing, Err: err}
	}
	text := ""
	detected := ""
	if tr != nil {
		text = strings.TrimSpace(tr.Text)
		detected = strings.TrimSpace(tr.Language)
	}
	if text == "" {
		return nil, ErrNoSpeech
	}

	source := firstNonEmpty(profile.SourceLanguage, detected, p.working)
	p.emit(&TranscriptEvent{Speaker: speaker, Label: p.buffer.Label(speaker), Text: text, Language: source})

	if p.isExitPhrase(text) {
		return &TurnResult{Speaker: speaker, Transcript: text, SourceLanguage: source}, ErrExitRequested
	}
	return p.Respond(ctx, speaker, profile, text, source)
}

// Respond runs the turn from an already recognized utterance: translate in,
// append, generate, translate out, review, append and speak.
func (p *Pipeline) Respond(ctx context.Context, speaker conversation.Speaker, profile SpeakerProfile, text, language string) (*TurnResult, error) {
	defer p.setState(StateIdle)

	language = firstNonEmpty(language, profile.SourceLanguage, p.working)
	res := &TurnResult{
		Speaker:        speaker,
		Transcript:     text,
		SourceLanguage: language,
		Input:          text,
		InputLanguage:  language,
	}

	if !SameLanguage(language, p.working) {
		p.setState(StateTranslatingIn)
		translated, err := Translate(ctx, p.generator, text, p.working)
		if err != nil {
			p.warn(StateTranslatingIn, err, "using untranslated input")
			res.TranslationLost = true
		} else {
			res.Input = translated
			res.InputLanguage = p.working
		}
	}
	p.append(speaker, res.Input, res.InputLanguage)

	p.setState(StateGenerating)
	reply, err := p.generator.Generate(ctx, p.buffer.Render())
	if err != nil {
		return res, &StepError{Step: StateGenerating, Err: err}
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return res, &StepError{Step: StateGenerating, Err: errors.New("empty reply")}
	}
	res.Reply = reply
	res.Final = reply
	res.FinalLanguage = p.working

	target := firstNonEmpty(profile.TargetLanguage, p.working)
	if !SameLanguage(target, p.working) {
		p.setState(StateTranslatingOut)
		translated, err := Translate(ctx, p.generator, reply, target)
		if err != nil {
			p.warn(StateTranslatingOut, err, "speaking untranslated reply")
			res.TranslationLost = true
		} else {
			res.Final = translated
			res.FinalLanguage = target
		}
	}

	if p.controller.ReviewEnabled() {
		p.setState(StateReviewing)
		edited, err := p.controller.EditBeforeSpeak(ctx, res.Final, res.FinalLanguage)
		if err != nil {
			p.warn(StateReviewing, err, "speaking unreviewed reply")
		} else {
			res.Final = edited
		}
	}

	responder := speaker.Opposite()
	p.append(responder, res.Final, res.FinalLanguage)

	p.setState(StateSpeaking)
	p.emit(&TranscriptEvent{Speaker: responder, Label: p.buffer.Label(responder), Text: res.Final, Language: res.FinalLanguage})
	if err := p.controller.Speak(ctx, res.Final, res.FinalLanguage); err != nil {
		return res, &StepError{Step: StateSpeaking, Err: err}
	}
	res.Spoken = true
	return res, nil
}

func (p *Pipeline) append(speaker conversation.Speaker, text, language string) {
	msg := p.buffer.Add(speaker, text, language)
	if p.onAppend != nil {
		p.onAppend(msg)
	}
}

func (p *Pipeline) warn(step State, err error, msg string) {
	p.logger.Warn(msg, "step", step.String(), "error", err)
	p.emit(&WarningEvent{Step: step, Message: fmt.Sprintf("%s: %v", msg, err)})
}

func (p *Pipeline) isExitPhrase(text string) bool {
	if len(p.exits) == 0 {
		return false
	}
	_, ok := p.exits[normalizePhrase(text)]
	return ok
}

// Translate asks gen to translate text into language.
func Translate(ctx context.Context, gen Generator, text, language string) (string, error) {
	out, err := gen.Generate(ctx, fmt.Sprintf("Translate this to %s: %s", language, text))
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("empty translation")
	}
	return out, nil
}

// SameLanguage compares language names case-insensitively.
func SameLanguage(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func normalizePhrase(s string) string {
	s = strings.TrimFunc(strings.ToLower(s), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
