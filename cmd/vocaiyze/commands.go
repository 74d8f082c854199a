package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/vango-go/vocaiyze/pkg/core/conversation"
	"github.com/vango-go/vocaiyze/pkg/core/dialog"
	"github.com/vango-go/vocaiyze/pkg/core/voice/tts"
	"github.com/vango-go/vocaiyze/pkg/knowledge"
)

// session is the part of the orchestrator the command prompt drives.
type session interface {
	Pause()
	Resume()
	Repeat(ctx context.Context) (bool, error)
	SetReviewEnabled(enabled bool)
	SetVoice(name string) (string, error)
	SwitchSpeaker() conversation.Speaker
	Clear()
	State() dialog.SessionState
	Buffer() *conversation.Buffer
	Generator() dialog.Generator
}

const helpText = `commands:
  /pause           stop starting new turns
  /resume          start turns again
  /repeat          speak the last response again
  /edit [on|off]   toggle review before speaking
  /switch          change the active speaker
  /voice [name]    show or change the voice
  /clear           forget the conversation so far
  /todos           list action items from the conversation
  /analyze         topics, sentiment and red flags in the conversation
  /kb [scenario]   advice from the knowledge base, or list its categories
  /script [Lang:] goal
                   draft a call script, e.g. /script Spanish: renew the contract
  /status          show the session state
  /exit            end the session`

type commander struct {
	s      session
	voices func() []string
	kb     *knowledge.Base
	// language is the working language, used for scripts and voice
	// suggestions.
	language string
	out      io.Writer
}

// handle runs one input line and reports whether the session should end.
func (c *commander) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "/exit", "/quit":
		return true
	case "/help", "/?":
		c.println(helpText)
	case "/pause":
		c.s.Pause()
	case "/resume":
		c.s.Resume()
		c.println(infoStyle.Render("resumed"))
	case "/repeat":
		ok, err := c.s.Repeat(ctx)
		switch {
		case err != nil:
			c.println(errorStyle.Render("repeat failed: " + err.Error()))
		case !ok:
			c.println(warnStyle.Render("nothing to repeat yet"))
		}
	case "/edit":
		c.edit(arg)
	case "/switch":
		c.s.SwitchSpeaker()
	case "/voice":
		c.voice(arg)
	case "/clear":
		c.s.Clear()
		c.println(infoStyle.Render("conversation cleared"))
	case "/todos":
		c.todos(ctx)
	case "/analyze":
		c.analyze(ctx)
	case "/kb":
		c.lookup(ctx, arg)
	case "/script":
		c.script(ctx, arg)
	case "/status":
		c.status()
	default:
		if strings.HasPrefix(name, "/") {
			c.println(warnStyle.Render("unknown command " + name + ", try /help"))
		} else {
			c.println(statusStyle.Render("type /help for commands"))
		}
	}
	return false
}

func (c *commander) edit(arg string) {
	enabled := !c.s.State().ReviewEnabled
	switch strings.ToLower(arg) {
	case "":
	case "on", "true", "1":
		enabled = true
	case "off", "false", "0":
		enabled = false
	default:
		c.println(warnStyle.Render("usage: /edit [on|off]"))
		return
	}
	c.s.SetReviewEnabled(enabled)
	state := "off"
	if enabled {
		state = "on"
	}
	c.println(infoStyle.Render("review before speaking " + state))
}

func (c *commander) voice(arg string) {
	if arg == "" {
		current := c.s.State().Voice
		var list []string
		if c.voices != nil {
			list = c.voices()
		}
		if len(list) == 0 {
			c.println(infoStyle.Render("voice: " + current))
			return
		}
		c.println(infoStyle.Render(fmt.Sprintf("voice: %s (available: %s)", current, strings.Join(list, ", "))))
		return
	}
	v, err := c.s.SetVoice(arg)
	if err != nil {
		c.println(errorStyle.Render(err.Error()))
		return
	}
	c.println(infoStyle.Render("voice set to " + v))
}

func (c *commander) todos(ctx context.Context) {
	buf := c.s.Buffer()
	if buf.Len() == 0 {
		c.println(warnStyle.Render("no conversation yet"))
		return
	}
	items, err := dialog.SummarizeTodos(ctx, c.s.Generator(), buf.Render())
	if err != nil {
		c.println(errorStyle.Render("todos failed: " + err.Error()))
		return
	}
	if len(items) == 0 {
		c.println(infoStyle.Render("no action items"))
		return
	}
	for i, item := range items {
		c.println(fmt.Sprintf("%d. %s", i+1, item))
	}
}

func (c *commander) analyze(ctx context.Context) {
	buf := c.s.Buffer()
	if buf.Len() == 0 {
		c.println(warnStyle.Render("no conversation yet"))
		return
	}
	text := buf.Render()
	gen := c.s.Generator()
	a, err := dialog.AnalyzeText(ctx, gen, text)
	if err != nil {
		c.println(errorStyle.Render("analysis failed: " + err.Error()))
		return
	}
	c.println("topics: " + strings.Join(a.Topics, ", "))
	c.println("sentiment: " + a.Sentiment)
	for i, item := range a.ActionItems {
		c.println(fmt.Sprintf("action %d. %s", i+1, item))
	}

	checks := []struct {
		label string
		run   func(context.Context, dialog.Generator, string) (bool, error)
	}{
		{"unreliable promises", dialog.DetectUnreliablePromises},
		{"exaggerations", dialog.DetectExaggerations},
	}
	for _, chk := range checks {
		found, err := chk.run(ctx, gen, text)
		switch {
		case err != nil:
			c.println(warnStyle.Render(chk.label + ": check failed: " + err.Error()))
		case found:
			c.println(warnStyle.Render(chk.label + ": yes"))
		default:
			c.println(chk.label + ": no")
		}
	}

	current := c.s.State().Voice
	if v := tts.VoiceForContext(c.workingLanguage(), a.Sentiment, "formal", current); v != "" && !strings.EqualFold(v, current) {
		c.println(infoStyle.Render(fmt.Sprintf("suggested voice: %s (use /voice %s)", v, v)))
	}
}

func (c *commander) lookup(ctx context.Context, scenario string) {
	if c.kb == nil {
		c.println(warnStyle.Render("knowledge base unavailable"))
		return
	}
	if scenario == "" {
		c.println(infoStyle.Render("categories: " + strings.Join(c.kb.Categories(), ", ")))
		return
	}
	advice, err := c.kb.Query(ctx, c.s.Generator(), scenario)
	if err != nil {
		c.println(errorStyle.Render("knowledge base query failed: " + err.Error()))
		return
	}
	c.println(advice)
}

func (c *commander) script(ctx context.Context, arg string) {
	language, goal := c.workingLanguage(), arg
	if first, rest, ok := strings.Cut(arg, ":"); ok && !strings.Contains(strings.TrimSpace(first), " ") && strings.TrimSpace(first) != "" {
		language, goal = strings.TrimSpace(first), strings.TrimSpace(rest)
	}
	if goal == "" {
		c.println(warnStyle.Render("usage: /script [Language:] goal of the call"))
		return
	}
	script, err := dialog.GenerateCallScript(ctx, c.s.Generator(), goal, language)
	if err != nil {
		c.println(errorStyle.Render("script failed: " + err.Error()))
		return
	}
	c.println(statusStyle.Render(fmt.Sprintf("call script (%s):", language)))
	c.println(script)
}

func (c *commander) workingLanguage() string {
	if c.language != "" {
		return c.language
	}
	return dialog.DefaultWorkingLanguage
}

func (c *commander) status() {
	st := c.s.State()
	speaker := c.s.Buffer().Label(st.CurrentSpeaker)
	c.println(fmt.Sprintf("session %s  speaker %s  turns %d  paused %t  review %t  voice %s",
		st.ID, speaker, st.Turns, st.Paused, st.ReviewEnabled, st.Voice))
}

func (c *commander) println(s string) {
	fmt.Fprintln(c.out, s)
}
