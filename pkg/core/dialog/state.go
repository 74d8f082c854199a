package dialog

// State is the step a turn is currently in.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateTranscribing
	StateTranslatingIn
	StateGenerating
	StateTranslatingOut
	StateReviewing
	StateSpeaking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateTranscribing:
		return "transcribing"
	case StateTranslatingIn:
		return "translating_in"
	case StateGenerating:
		return "generating"
	case StateTranslatingOut:
		return "translating_out"
	case StateReviewing:
		return "reviewing"
	case StateSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// Status texts shown to the operator.
const (
	StatusListening  = "Listening…"
	StatusProcessing = "Processing…"
	StatusSpeaking   = "Speaking…"
	StatusPaused     = "Paused"
	StatusError      = "Error occurred"
	StatusStopped    = "Stopped"
)

// statusFor maps a pipeline state to the status shown for it. The empty
// string means the status does not change.
func statusFor(s State) string {
	switch s {
	case StateCapturing:
		return StatusListening
	case StateTranscribing:
		return StatusProcessing
	case StateSpeaking:
		return StatusSpeaking
	default:
		return ""
	}
}
