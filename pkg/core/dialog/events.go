package dialog

import (
	"time"

	"github.com/vango-go/vocaiyze/pkg/core/conversation"
)

// Event is emitted on the orchestrator's event channel.
type Event interface {
	EventType() string
}

// SessionStartedEvent is emitted once a session is armed.
type SessionStartedEvent struct {
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
}

func (e *SessionStartedEvent) EventType() string { return "session_started" }

// SessionStoppedEvent is emitted when the conversation loop exits.
type SessionStoppedEvent struct {
	SessionID string `json:"session_id"`
	Turns     int    `json:"turns"`
}

func (e *SessionStoppedEvent) EventType() string { return "session_stopped" }

// StatusEvent carries the operator-facing status text.
type StatusEvent struct {
	Status string `json:"status"`
}

func (e *StatusEvent) EventType() string { return "status" }

// StateChangedEvent is emitted on every pipeline step transition.
type StateChangedEvent struct {
	From State `json:"from"`
	To   State `json:"to"`
}

func (e *StateChangedEvent) EventType() string { return "state_changed" }

// TranscriptEvent is emitted for each utterance as it is recognized or spoken.
type TranscriptEvent struct {
	Speaker  conversation.Speaker `json:"speaker"`
	Label    string               `json:"label"`
	Text     string               `json:"text"`
	Language string               `json:"language"`
}

func (e *TranscriptEvent) EventType() string { return "transcript" }

// AudioLevelEvent reports the input level while capturing, normalized to 0..1.
type AudioLevelEvent struct {
	Level float64 `json:"level"`
}

func (e *AudioLevelEvent) EventType() string { return "audio_level" }

// SpeakerSwitchedEvent is emitted when the active speaker changes.
type SpeakerSwitchedEvent struct {
	Speaker conversation.Speaker `json:"speaker"`
	Label   string               `json:"label"`
}

func (e *SpeakerSwitchedEvent) EventType() string { return "speaker_switched" }

// ErrorEvent reports a turn failure.
type ErrorEvent struct {
	Step    State  `json:"step"`
	Message string `json:"message"`
	// Retryable is false for failures another attempt will not fix, such as
	// a rejected API key.
	Retryable bool `json:"retryable"`
}

func (e *ErrorEvent) EventType() string { return "error" }

// WarningEvent reports a degraded but recovered step.
type WarningEvent struct {
	Step    State  `json:"step"`
	Message string `json:"message"`
}

func (e *WarningEvent) EventType() string { return "warning" }
