// Package review lets the operator correct a reply before it is spoken.
package review

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ncruces/zenity"
)

// Dialog shows the reply in a desktop entry dialog.
type Dialog struct {
	Title string
}

// NewDialog returns a zenity-backed reviewer.
func NewDialog() *Dialog {
	return &Dialog{Title: "vocAIyze: review before speaking"}
}

// Review shows text for editing. Cancelling the dialog keeps text unchanged.
func (d *Dialog) Review(ctx context.Context, text, language string) (string, error) {
	edited, err := zenity.Entry(
		fmt.Sprintf("Edit the %s reply if needed:", language),
		zenity.Title(d.Title),
		zenity.EntryText(text),
		zenity.Context(ctx),
	)
	if errors.Is(err, zenity.ErrCanceled) {
		return text, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("review dialog: %w", err)
	}
	return edited, nil
}

// Terminal reads operator input line by line. A line arriving while a
// review is pending answers the review, unless it starts with "/". Every
// other line is delivered on Lines.
type Terminal struct {
	out   io.Writer
	lines chan string

	mu     sync.Mutex
	waiter chan string
}

// NewTerminal creates a terminal reviewer that prompts on out.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out, lines: make(chan string)}
}

// Lines returns input lines that were not consumed by a review. It is
// closed when Run returns.
func (t *Terminal) Lines() <-chan string {
	return t.lines
}

// Run reads in until EOF or ctx is done.
func (t *Terminal) Run(ctx context.Context, in io.Reader) error {
	defer close(t.lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if t.answer(line) {
			continue
		}
		select {
		case t.lines <- line:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}

// answer hands line to the pending review, if any. Commands are never
// taken as an edit.
func (t *Terminal) answer(line string) bool {
	if strings.HasPrefix(strings.TrimSpace(line), "/") {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.waiter == nil {
		return false
	}
	// The waiter is buffered, so this never blocks while holding mu.
	t.waiter <- line
	t.waiter = nil
	return true
}

func (t *Terminal) pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.waiter != nil
}

// Review prints text and waits for the next input line. An empty line
// keeps text unchanged.
func (t *Terminal) Review(ctx context.Context, text, language string) (string, error) {
	w := make(chan string, 1)
	t.mu.Lock()
	if t.waiter != nil {
		t.mu.Unlock()
		return "", errors.New("review already pending")
	}
	t.waiter = w
	t.mu.Unlock()

	fmt.Fprintf(t.out, "\nReview (%s): %s\nEdit and press Enter, or press Enter to keep: ", language, text)

	select {
	case line := <-w:
		return edited(text, line), nil
	case <-ctx.Done():
		t.mu.Lock()
		if t.waiter == w {
			t.waiter = nil
			t.mu.Unlock()
			return "", ctx.Err()
		}
		t.mu.Unlock()
		// A line was handed over before the cancellation.
		return edited(text, <-w), nil
	}
}

func edited(text, line string) string {
	if line = strings.TrimSpace(line); line != "" {
		return line
	}
	return text
}
