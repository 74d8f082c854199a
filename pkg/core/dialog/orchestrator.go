package dialog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vango-go/vocaiyze/pkg/core"
	"github.com/vango-go/vocaiyze/pkg/core/conversation"
)

const (
	DefaultNoSpeechBackoff   = 1 * time.Second
	DefaultErrorBackoff      = 2 * time.Second
	DefaultPausePollInterval = 1 * time.Second
	// MaxRetryAfter caps a service's Retry-After hint.
	MaxRetryAfter = 30 * time.Second

	DefaultGreeting = "Hello, I'm vocAIyze. How can I assist you today?"
	DefaultFarewell = "Thank you for using vocAIyze. Goodbye!"
)

// DefaultExitPhrases end a session when spoken as a whole utterance.
var DefaultExitPhrases = []string{"exit", "quit", "goodbye", "bye"}

// TranscriptSink persists appended messages.
type TranscriptSink interface {
	Record(ctx context.Context, sessionID string, msg conversation.Message) error
}

// Config configures an Orchestrator.
type Config struct {
	Capturer    Capturer
	Transcriber Transcriber
	Generator   Generator
	Synthesizer Synthesizer
	Player      Player
	Reviewer    Reviewer
	Sink        TranscriptSink

	// Buffer is created from MaxTurns, MaxTokens and the profile labels when nil.
	Buffer    *conversation.Buffer
	MaxTurns  int
	MaxTokens int

	Self  SpeakerProfile
	Other SpeakerProfile

	WorkingLanguage string
	CaptureDuration time.Duration
	Voice           string
	Voices          []string
	ReviewEnabled   bool

	Greeting    string
	Farewell    string
	ExitPhrases []string

	NoSpeechBackoff   time.Duration
	ErrorBackoff      time.Duration
	PausePollInterval time.Duration

	EventBuffer int
	Logger      *slog.Logger
}

// SessionState is a snapshot of the running session.
type SessionState struct {
	ID             string
	StartedAt      time.Time
	CurrentSpeaker conversation.Speaker
	Active         bool
	Paused         bool
	ReviewEnabled  bool
	Voice          string
	Turns          int
	LastResponse   *Response
	Pending        *Response
}

// Orchestrator runs the conversation loop of one session on its own goroutine
// and accepts operator commands while it runs.
type Orchestrator struct {
	cfg        Config
	controller *Controller
	pipeline   *Pipeline
	buffer     *conversation.Buffer
	sink       TranscriptSink
	logger     *slog.Logger
	events     chan Event
	newID      func() string

	mu        sync.Mutex
	id        string
	startedAt time.Time
	speaker   conversation.Speaker
	active    bool
	turns     int
	stopCh    chan struct{}
	done      chan struct{}
	recordCtx context.Context
	// stopCapture cancels the capture context of the running session.
	stopCapture context.CancelFunc
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NoSpeechBackoff <= 0 {
		cfg.NoSpeechBackoff = DefaultNoSpeechBackoff
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = DefaultErrorBackoff
	}
	if cfg.PausePollInterval <= 0 {
		cfg.PausePollInterval = DefaultPausePollInterval
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 256
	}
	if cfg.WorkingLanguage == "" {
		cfg.WorkingLanguage = DefaultWorkingLanguage
	}
	if cfg.ExitPhrases == nil {
		cfg.ExitPhrases = DefaultExitPhrases
	}
	if cfg.Self.Label == "" {
		cfg.Self.Label = "User"
	}
	if cfg.Other.Label == "" {
		cfg.Other.Label = "Assistant"
	}

	buffer := cfg.Buffer
	if buffer == nil {
		buffer = conversation.NewBuffer(
			conversation.WithMaxTurns(cfg.MaxTurns),
			conversation.WithMaxTokens(cfg.MaxTokens),
			conversation.WithSpeakerLabels(cfg.Self.Label, cfg.Other.Label),
		)
	}

	o := &Orchestrator{
		cfg:    cfg,
		buffer: buffer,
		sink:   cfg.Sink,
		logger: cfg.Logger,
		events: make(chan Event, cfg.EventBuffer),
		newID:  uuid.NewString,
	}
	o.controller = NewController(ControllerConfig{
		Synthesizer:   cfg.Synthesizer,
		Player:        cfg.Player,
		Reviewer:      cfg.Reviewer,
		Voice:         cfg.Voice,
		Voices:        cfg.Voices,
		ReviewEnabled: cfg.ReviewEnabled,
		Logger:        cfg.Logger,
	})
	pipeline, err := NewPipeline(PipelineConfig{
		Capturer:        cfg.Capturer,
		Transcriber:     cfg.Transcriber,
		Generator:       cfg.Generator,
		Controller:      o.controller,
		Buffer:          buffer,
		WorkingLanguage: cfg.WorkingLanguage,
		CaptureDuration: cfg.CaptureDuration,
		ExitPhrases:     cfg.ExitPhrases,
		OnEvent:         o.onPipelineEvent,
		OnAppend:        o.record,
		Logger:          cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	o.pipeline = pipeline
	return o, nil
}

// Events returns the event channel. Events are dropped when it is full.
func (o *Orchestrator) Events() <-chan Event { return o.events }

// Controller returns the session controller.
func (o *Orchestrator) Controller() *Controller { return o.controller }

// Buffer returns the conversation history.
func (o *Orchestrator) Buffer() *conversation.Buffer { return o.buffer }

// Generator returns the generator used for replies.
func (o *Orchestrator) Generator() Generator { return o.cfg.Generator }

// Start clears the history, opens a new session and starts the loop.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.active {
		o.mu.Unlock()
		return errors.New("session already running")
	}
	if o.done != nil {
		select {
		case <-o.done:
		default:
			o.mu.Unlock()
			return errors.New("previous session still stopping")
		}
	}
	o.buffer.Clear()
	o.controller.Reset()
	o.id = o.newID()
	o.startedAt = time.Now()
	o.speaker = conversation.SpeakerSelf
	o.active = true
	o.turns = 0
	o.stopCh = make(chan struct{})
	o.done = make(chan struct{})
	o.recordCtx = context.WithoutCancel(ctx)
	captureCtx, stopCapture := context.WithCancel(ctx)
	o.stopCapture = stopCapture
	id, startedAt, stopCh, done := o.id, o.startedAt, o.stopCh, o.done
	o.mu.Unlock()

	o.logger.Info("session started", "session_id", id)
	o.emit(&SessionStartedEvent{SessionID: id, StartedAt: startedAt})
	go o.run(ctx, captureCtx, id, stopCh, done)
	return nil
}

// Stop lets the in-flight turn finish and arms no new turn. A capture in
// progress, or one about to start, is aborted.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.active {
		o.mu.Unlock()
		return
	}
	o.active = false
	close(o.stopCh)
	stopCapture := o.stopCapture
	o.mu.Unlock()
	stopCapture()
}

// Wait blocks until the loop has exited.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Done is closed when the current loop exits.
func (o *Orchestrator) Done() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return o.done
}

// Pause stops new turns from starting. The current turn completes.
func (o *Orchestrator) Pause() {
	o.controller.Pause()
	o.status(StatusPaused)
}

// Resume lets turns start again.
func (o *Orchestrator) Resume() {
	o.controller.Resume()
}

// Repeat re-speaks the last response.
func (o *Orchestrator) Repeat(ctx context.Context) (bool, error) {
	return o.controller.Repeat(ctx)
}

// SetReviewEnabled toggles edit-before-speak.
func (o *Orchestrator) SetReviewEnabled(enabled bool) {
	o.controller.SetReviewEnabled(enabled)
}

// SetVoice changes the synthesis voice.
func (o *Orchestrator) SetVoice(name string) (string, error) {
	return o.controller.SetVoice(name)
}

// SwitchSpeaker toggles the active speaker for the next turn.
func (o *Orchestrator) SwitchSpeaker() conversation.Speaker {
	o.mu.Lock()
	o.speaker = o.speaker.Opposite()
	s := o.speaker
	o.mu.Unlock()
	o.emit(&SpeakerSwitchedEvent{Speaker: s, Label: o.profile(s).Label})
	return s
}

// Clear empties the history and forgets the last response.
func (o *Orchestrator) Clear() {
	o.buffer.Clear()
	o.controller.Reset()
}

// State returns a snapshot of the session.
func (o *Orchestrator) State() SessionState {
	o.mu.Lock()
	st := SessionState{
		ID:             o.id,
		StartedAt:      o.startedAt,
		CurrentSpeaker: o.speaker,
		Active:         o.active,
		Turns:          o.turns,
	}
	o.mu.Unlock()
	st.Paused = o.controller.Paused()
	st.ReviewEnabled = o.controller.ReviewEnabled()
	st.Voice = o.controller.Voice()
	st.LastResponse = o.controller.LastResponse()
	st.Pending = o.controller.Pending()
	return st
}

// ReportLevel emits an input level reading.
func (o *Orchestrator) ReportLevel(level float64) {
	o.emit(&AudioLevelEvent{Level: level})
}

func (o *Orchestrator) run(ctx, captureCtx context.Context, id string, stopCh, done chan struct{}) {
	defer close(done)
	defer func() {
		o.mu.Lock()
		if o.active && o.id == id {
			o.active = false
			close(o.stopCh)
			o.stopCapture()
		}
		turns := o.turns
		o.mu.Unlock()
		o.status(StatusStopped)
		o.emit(&SessionStoppedEvent{SessionID: id, Turns: turns})
		o.logger.Info("session stopped", "session_id", id, "turns", turns)
	}()

	if o.cfg.Greeting != "" {
		o.status(StatusSpeaking)
		if err := o.controller.Announce(ctx, o.cfg.Greeting); err != nil {
			o.logger.Warn("greeting failed", "session_id", id, "error", err)
			_, retryable := o.errorBackoff(err)
			o.emit(&ErrorEvent{Step: StateSpeaking, Message: err.Error(), Retryable: retryable})
		}
	}

	pausedShown := false
	for o.running(ctx, stopCh) {
		if o.controller.Paused() {
			if !pausedShown {
				o.status(StatusPaused)
				pausedShown = true
			}
			if !o.sleep(ctx, stopCh, o.cfg.PausePollInterval) {
				return
			}
			continue
		}
		pausedShown = false

		speaker := o.currentSpeaker()
		res, err := o.pipeline.runTurn(ctx, captureCtx, speaker, o.profile(speaker))
		if errors.Is(err, ErrExitRequested) {
			o.logger.Info("exit phrase heard", "session_id", id, "text", res.Transcript)
			if o.cfg.Farewell != "" {
				o.status(StatusSpeaking)
				if err := o.controller.Announce(ctx, o.cfg.Farewell); err != nil {
					o.logger.Warn("farewell failed", "session_id", id, "error", err)
				}
			}
			return
		}
		if wait := o.afterTurn(ctx, stopCh, id, err); wait > 0 {
			if !o.sleep(ctx, stopCh, wait) {
				return
			}
		}
	}
}

// afterTurn accounts for a finished turn and returns the backoff before the
// next one.
func (o *Orchestrator) afterTurn(ctx context.Context, stopCh chan struct{}, id string, err error) time.Duration {
	if err == nil {
		o.countTurn()
		return 0
	}
	if errors.Is(err, ErrNoSpeech) {
		o.logger.Debug("no speech detected", "session_id", id)
		return o.cfg.NoSpeechBackoff
	}
	if !o.running(ctx, stopCh) {
		return 0
	}

	step, _ := FailedStep(err)
	backoff, retryable := o.errorBackoff(err)
	o.logger.Error("turn failed", "session_id", id, "step", step.String(), "retryable", retryable, "error", err)
	o.emit(&ErrorEvent{Step: step, Message: err.Error(), Retryable: retryable})
	o.status(StatusError)
	if step == StateSpeaking {
		// The reply is already in the history.
		o.countTurn()
		return 0
	}
	return backoff
}

// errorBackoff returns the wait after a failed turn. A rate limit with a
// Retry-After hint waits at least that long, up to MaxRetryAfter.
func (o *Orchestrator) errorBackoff(err error) (time.Duration, bool) {
	backoff := o.cfg.ErrorBackoff
	var ce *core.Error
	if !errors.As(err, &ce) {
		return backoff, true
	}
	if ce.Type == core.ErrRateLimited && ce.RetryAfter != nil {
		hint := min(time.Duration(*ce.RetryAfter)*time.Second, MaxRetryAfter)
		backoff = max(backoff, hint)
	}
	return backoff, ce.IsRetryable()
}

func (o *Orchestrator) countTurn() {
	o.mu.Lock()
	o.turns++
	o.mu.Unlock()
}

func (o *Orchestrator) running(ctx context.Context, stopCh chan struct{}) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-stopCh:
		return false
	default:
		return true
	}
}

func (o *Orchestrator) sleep(ctx context.Context, stopCh chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-stopCh:
		return false
	case <-t.C:
		return true
	}
}

func (o *Orchestrator) currentSpeaker() conversation.Speaker {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.speaker
}

func (o *Orchestrator) profile(s conversation.Speaker) SpeakerProfile {
	if s == conversation.SpeakerOther {
		return o.cfg.Other
	}
	return o.cfg.Self
}

func (o *Orchestrator) record(msg conversation.Message) {
	if o.sink == nil {
		return
	}
	o.mu.Lock()
	id, ctx := o.id, o.recordCtx
	o.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := o.sink.Record(ctx, id, msg); err != nil {
		o.logger.Warn("transcript sink failed", "session_id", id, "error", err)
	}
}

func (o *Orchestrator) onPipelineEvent(ev Event) {
	o.emit(ev)
	if sc, ok := ev.(*StateChangedEvent); ok {
		if s := statusFor(sc.To); s != "" {
			o.status(s)
		}
	}
}

func (o *Orchestrator) status(s string) {
	o.emit(&StatusEvent{Status: s})
}

func (o *Orchestrator) emit(ev Event) {
	select {
	case o.events <- ev:
	default:
	}
}
