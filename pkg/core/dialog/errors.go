package dialog

import (
	"errors"
	"fmt"
)

// ErrNoSpeech is returned when a captured clip transcribes to nothing.
var ErrNoSpeech = errors.New("no speech detected")

// ErrExitRequested is returned when the speaker said an exit phrase.
var ErrExitRequested = errors.New("exit requested")

// StepError attributes a failure to the pipeline step that produced it.
type StepError struct {
	Step State
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind(), e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Kind returns the error category of the step.
func (e *StepError) Kind() string {
	switch e.Step {
	case StateCapturing:
		return "capture error"
	case StateTranscribing:
		return "transcription error"
	case StateTranslatingIn, StateTranslatingOut:
		return "translation error"
	case StateGenerating:
		return "generation error"
	case StateReviewing:
		return "review error"
	case StateSpeaking:
		return "synthesis error"
	default:
		return "pipeline error"
	}
}

// FailedStep returns the step that produced err, if any.
func FailedStep(err error) (State, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step, true
	}
	return StateIdle, false
}
