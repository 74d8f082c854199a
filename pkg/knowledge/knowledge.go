// Package knowledge answers sales and communication questions from a small
// category-keyed knowledge base stored as JSON.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// NoMatch is returned by Query when no category fits the scenario.
const NoMatch = "I don't have specific information about this scenario in my knowledge base."

// Defaults seeds a new knowledge base.
var Defaults = map[string]string{
	"finding_leads":             "Use LinkedIn and industry events to find potential leads.",
	"communicating_effectively": "Listen actively and address customer needs.",
	"converting_leads":          "Follow up promptly and provide clear value propositions.",
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Base maps categories to advice.
type Base struct {
	entries map[string]string
}

// New returns a Base over entries. Nil means Defaults.
func New(entries map[string]string) *Base {
	if entries == nil {
		entries = Defaults
	}
	b := &Base{entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		if k = strings.TrimSpace(k); k != "" {
			b.entries[k] = strings.TrimSpace(v)
		}
	}
	return b
}

// Load reads a knowledge base from a JSON object file. A missing file is
// created with Defaults. An empty path returns Defaults without touching
// the disk.
func Load(path string, logger *slog.Logger) (*Base, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(path) == "" {
		return New(nil), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		b := New(nil)
		if err := b.Save(path); err != nil {
			return nil, err
		}
		logger.Info("knowledge base created", "path", path, "categories", len(b.entries))
		return b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read knowledge base %q: %w", path, err)
	}
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse knowledge base %q: %w", path, err)
	}
	if entries == nil {
		entries = map[string]string{}
	}
	return New(entries), nil
}

// Save writes the knowledge base to path as indented JSON.
func (b *Base) Save(path string) error {
	data, err := json.MarshalIndent(b.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode knowledge base: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create knowledge base dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write knowledge base %q: %w", path, err)
	}
	return nil
}

// Categories returns the category names in sorted order.
func (b *Base) Categories() []string {
	out := make([]string, 0, len(b.entries))
	for k := range b.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the advice for category, ignoring case.
func (b *Base) Lookup(category string) (string, bool) {
	for k, v := range b.entries {
		if strings.EqualFold(k, strings.TrimSpace(category)) {
			return v, true
		}
	}
	return "", false
}

const queryPrompt = `Given the following scenario, which of these knowledge categories is most relevant?

Scenario: %s

Categories:
%s

Return only the category name, nothing else.`

// Query asks gen which category fits scenario and returns its advice, or
// NoMatch when the reply names none of them.
func (b *Base) Query(ctx context.Context, gen Generator, scenario string) (string, error) {
	scenario = strings.TrimSpace(scenario)
	if scenario == "" {
		return "", errors.New("scenario is required")
	}
	cats := b.Categories()
	if len(cats) == 0 {
		return NoMatch, nil
	}
	out, err := gen.Generate(ctx, fmt.Sprintf(queryPrompt, scenario, strings.Join(cats, ", ")))
	if err != nil {
		return "", fmt.Errorf("query knowledge base: %w", err)
	}
	if cat, ok := b.match(out); ok {
		return b.entries[cat], nil
	}
	return NoMatch, nil
}

// match finds the category named in reply. Longer names are tried first so
// "converting_leads" wins over a "leads" category.
func (b *Base) match(reply string) (string, bool) {
	reply = strings.ToLower(reply)
	cats := b.Categories()
	sort.SliceStable(cats, func(i, j int) bool { return len(cats[i]) > len(cats[j]) })
	for _, c := range cats {
		name := strings.ToLower(c)
		if strings.Contains(reply, name) || strings.Contains(reply, strings.ReplaceAll(name, "_", " ")) {
			return c, true
		}
	}
	return "", false
}
