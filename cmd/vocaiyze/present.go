package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vango-go/vocaiyze/pkg/core/conversation"
	"github.com/vango-go/vocaiyze/pkg/core/dialog"
)

var (
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	selfStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	otherStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	meterOnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

const meterWidth = 10

type alerter interface {
	Error(msg string)
}

// presenter renders orchestrator events for the operator.
type presenter struct {
	out    io.Writer
	alerts alerter
	peak   float64
}

func newPresenter(out io.Writer, alerts alerter) *presenter {
	return &presenter{out: out, alerts: alerts}
}

// drain renders events until the channel closes or done fires.
func (p *presenter) drain(events <-chan dialog.Event, done <-chan struct{}) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			p.render(ev)
		case <-done:
			// Flush what is already queued.
			for {
				select {
				case ev := <-events:
					p.render(ev)
				default:
					return
				}
			}
		}
	}
}

func (p *presenter) render(ev dialog.Event) {
	switch e := ev.(type) {
	case *dialog.SessionStartedEvent:
		p.line(infoStyle.Render(fmt.Sprintf("session %s started", e.SessionID)))
	case *dialog.SessionStoppedEvent:
		p.line(infoStyle.Render(fmt.Sprintf("session %s ended after %d turns", e.SessionID, e.Turns)))
	case *dialog.StatusEvent:
		p.line(statusStyle.Render(e.Status))
	case *dialog.StateChangedEvent:
		if e.From == dialog.StateCapturing && p.peak > 0 {
			p.line(statusStyle.Render("input ") + meter(p.peak))
		}
		if e.To == dialog.StateCapturing {
			p.peak = 0
		}
	case *dialog.AudioLevelEvent:
		if e.Level > p.peak {
			p.peak = e.Level
		}
	case *dialog.TranscriptEvent:
		style := selfStyle
		if e.Speaker == conversation.SpeakerOther {
			style = otherStyle
		}
		label := e.Label
		if e.Language != "" {
			label += " (" + e.Language + ")"
		}
		p.line(style.Render(label+":") + " " + e.Text)
	case *dialog.SpeakerSwitchedEvent:
		p.line(infoStyle.Render("now listening to " + e.Label))
	case *dialog.WarningEvent:
		p.line(warnStyle.Render(fmt.Sprintf("warning [%s]: %s", e.Step, e.Message)))
	case *dialog.ErrorEvent:
		msg := fmt.Sprintf("error [%s]: %s", e.Step, e.Message)
		if !e.Retryable {
			msg += " (check configuration)"
		}
		p.line(errorStyle.Render(msg))
		if p.alerts != nil {
			p.alerts.Error(e.Message)
		}
	}
}

func (p *presenter) line(s string) {
	fmt.Fprintln(p.out, s)
}

// meter draws a level in 0..1 as a fixed-width bar.
func meter(level float64) string {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	on := int(level*meterWidth + 0.5)
	return meterOnStyle.Render(strings.Repeat("█", on)) + strings.Repeat("░", meterWidth-on)
}
