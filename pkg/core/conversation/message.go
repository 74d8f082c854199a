// Package conversation holds the bounded turn history a dialogue is generated from.
package conversation

import (
	"strings"
	"time"
)

// Speaker identifies which side of the conversation produced a message.
type Speaker int

const (
	// SpeakerSelf is the local operator, the one holding the microphone.
	SpeakerSelf Speaker = iota
	// SpeakerOther is the remote party, or the assistant in single-speaker mode.
	SpeakerOther
)

// Opposite returns the other speaker.
func (s Speaker) Opposite() Speaker {
	if s == SpeakerSelf {
		return SpeakerOther
	}
	return SpeakerSelf
}

// String returns a human-readable speaker name.
func (s Speaker) String() string {
	switch s {
	case SpeakerSelf:
		return "Self"
	case SpeakerOther:
		return "Other"
	default:
		return "Unknown"
	}
}

// messageTokenOverhead approximates the role/formatting tokens a message adds
// on top of its words.
const messageTokenOverhead = 5

// Message is one utterance. It is never modified after creation.
type Message struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Language  string    `json:"language"`
	Timestamp time.Time `json:"timestamp"`
}

// Tokens returns the approximate token cost of the message.
func (m Message) Tokens() int {
	return EstimateTokens(m.Text)
}

// EstimateTokens approximates the token count of text as its word count plus
// a fixed per-message overhead.
func EstimateTokens(text string) int {
	return len(strings.Fields(text)) + messageTokenOverhead
}
