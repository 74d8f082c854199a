package dialog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const todoPrompt = `Extract the action items and to-dos from this conversation.
Respond with a JSON array of strings and nothing else. Respond with [] if there are none.

Conversation:
%s`

// SummarizeTodos asks gen for the action items in a rendered conversation.
// A reply that is not a JSON array is split into lines instead.
func SummarizeTodos(ctx context.Context, gen Generator, conversation string) ([]string, error) {
	if strings.TrimSpace(conversation) == "" {
		return nil, nil
	}
	out, err := gen.Generate(ctx, fmt.Sprintf(todoPrompt, conversation))
	if err != nil {
		return nil, fmt.Errorf("summarize todos: %w", err)
	}
	return parseTodos(out), nil
}

func parseTodos(out string) []string {
	out = stripFence(out)

	var items []string
	if err := json.Unmarshal([]byte(out), &items); err == nil {
		return compact(items)
	}

	items = nil
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•")
		line = trimNumbering(line)
		items = append(items, line)
	}
	return compact(items)
}

// stripFence removes a markdown code fence around a model reply.
func stripFence(out string) string {
	out = strings.TrimSpace(out)
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}

// trimNumbering strips a leading "1." or "1)" list marker.
func trimNumbering(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		return s[i+1:]
	}
	return s
}

func compact(items []string) []string {
	out := items[:0]
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
