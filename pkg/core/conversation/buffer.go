package conversation

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMaxTurns is the default number of messages retained.
	DefaultMaxTurns = 5
	// DefaultMaxTokens is the default approximate token budget.
	DefaultMaxTokens = 2000
)

// Buffer is an ordered, bounded conversation history, oldest message first.
//
// After every Add the buffer holds at most MaxTurns messages and at most
// MaxTokens estimated tokens, except that token trimming never evicts the
// last remaining message. Writes are expected from a single turn pipeline;
// reads may happen concurrently.
type Buffer struct {
	mu         sync.RWMutex
	maxTurns   int
	maxTokens  int
	messages   []Message
	tokenTotal int
	labels     map[Speaker]string
	now        func() time.Time
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithMaxTurns sets the message count limit. Values below 1 are ignored.
func WithMaxTurns(n int) Option {
	return func(b *Buffer) {
		if n > 0 {
			b.maxTurns = n
		}
	}
}

// WithMaxTokens sets the approximate token budget. Values below 1 are ignored.
func WithMaxTokens(n int) Option {
	return func(b *Buffer) {
		if n > 0 {
			b.maxTokens = n
		}
	}
}

// WithSpeakerLabels sets the labels used by Render.
func WithSpeakerLabels(self, other string) Option {
	return func(b *Buffer) {
		if self = strings.TrimSpace(self); self != "" {
			b.labels[SpeakerSelf] = self
		}
		if other = strings.TrimSpace(other); other != "" {
			b.labels[SpeakerOther] = other
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Buffer) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBuffer creates an empty buffer.
func NewBuffer(opts ...Option) *Buffer {
	b := &Buffer{
		maxTurns:  DefaultMaxTurns,
		maxTokens: DefaultMaxTokens,
		labels: map[Speaker]string{
			SpeakerSelf:  SpeakerSelf.String(),
			SpeakerOther: SpeakerOther.String(),
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add appends a message stamped with the current time and trims the buffer.
// Empty text is accepted; validation belongs to the capture layer.
func (b *Buffer) Add(speaker Speaker, text, language string) Message {
	msg := Message{
		Speaker:   speaker,
		Text:      text,
		Language:  language,
		Timestamp: b.now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg)
	b.tokenTotal += msg.Tokens()
	b.trimLocked()
	return msg
}

// Trim evicts the oldest messages until the turn limit holds, then keeps
// evicting while over the token budget and more than one message remains.
func (b *Buffer) Trim() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trimLocked()
}

func (b *Buffer) trimLocked() {
	for len(b.messages) > b.maxTurns {
		b.popLocked()
	}
	for b.tokenTotal > b.maxTokens && len(b.messages) > 1 {
		b.popLocked()
	}
}

func (b *Buffer) popLocked() {
	b.tokenTotal -= b.messages[0].Tokens()
	b.messages[0] = Message{}
	b.messages = b.messages[1:]
}

// Render formats the buffer as the generation prompt, one
// "<label> (<language>): <text>" line per message, oldest first.
func (b *Buffer) Render() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	lines := make([]string, 0, len(b.messages))
	for _, m := range b.messages {
		lines = append(lines, fmt.Sprintf("%s (%s): %s", b.labelLocked(m.Speaker), m.Language, m.Text))
	}
	return strings.Join(lines, "\n")
}

func (b *Buffer) labelLocked(s Speaker) string {
	if l, ok := b.labels[s]; ok {
		return l
	}
	return s.String()
}

// Label returns the render label of a speaker.
func (b *Buffer) Label(s Speaker) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.labelLocked(s)
}

// Clear removes every message.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = nil
	b.tokenTotal = 0
}

// Len returns the number of retained messages.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.messages)
}

// Tokens returns the running token estimate of retained messages.
func (b *Buffer) Tokens() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tokenTotal
}

// Messages returns a copy of the retained messages, oldest first.
func (b *Buffer) Messages() []Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// MaxTurns returns the configured message limit.
func (b *Buffer) MaxTurns() int { return b.maxTurns }

// MaxTokens returns the configured token budget.
func (b *Buffer) MaxTokens() int { return b.maxTokens }
