package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SentimentUnknown is reported when the analysis reply could not be parsed.
const SentimentUnknown = "unknown"

// Analysis summarizes a stretch of conversation.
type Analysis struct {
	Topics      []string `json:"topics"`
	Sentiment   string   `json:"sentiment"`
	ActionItems []string `json:"action_items"`
}

const analysisPrompt = `Analyze the following text and report:
1. Main topics
2. Sentiment (positive, negative or neutral)
3. Key action items, if any

Respond with a JSON object with the keys "topics", "sentiment" and "action_items" and nothing else.

Text:
%s`

// AnalyzeText asks gen for the topics, sentiment and action items of text. A
// reply that is not the expected JSON object becomes a single topic with
// unknown sentiment.
func AnalyzeText(ctx context.Context, gen Generator, text string) (*Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("nothing to analyze")
	}
	out, err := gen.Generate(ctx, fmt.Sprintf(analysisPrompt, text))
	if err != nil {
		return nil, fmt.Errorf("analyze text: %w", err)
	}
	return parseAnalysis(out), nil
}

func parseAnalysis(out string) *Analysis {
	out = stripFence(out)
	var a Analysis
	if err := json.Unmarshal([]byte(out), &a); err != nil || (a.Topics == nil && a.Sentiment == "" && a.ActionItems == nil) {
		a = Analysis{Sentiment: SentimentUnknown}
		if out != "" {
			a.Topics = []string{out}
		}
		return &a
	}
	a.Topics = compact(a.Topics)
	a.ActionItems = compact(a.ActionItems)
	a.Sentiment = strings.ToLower(strings.TrimSpace(a.Sentiment))
	if a.Sentiment == "" {
		a.Sentiment = SentimentUnknown
	}
	return &a
}

// DetectUnreliablePromises reports whether text makes promises that are
// unrealistic or unlikely to be kept.
func DetectUnreliablePromises(ctx context.Context, gen Generator, text string) (bool, error) {
	return askYesNo(ctx, gen, "Does the following text contain unrealistic or unreliable promises?", text)
}

// DetectExaggerations reports whether text contains exaggeration or
// hyperbole.
func DetectExaggerations(ctx context.Context, gen Generator, text string) (bool, error) {
	return askYesNo(ctx, gen, "Does the following text contain exaggerations or hyperbole?", text)
}

func askYesNo(ctx context.Context, gen Generator, question, text string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, nil
	}
	prompt := question + " Answer with 'yes' or 'no' only.\n\nText: " + text
	out, err := gen.Generate(ctx, prompt)
	if err != nil {
		return false, fmt.Errorf("yes/no check: %w", err)
	}
	return isYes(out), nil
}

// isYes looks for "yes" at the start of a reply, tolerating quotes and
// punctuation.
func isYes(out string) bool {
	out = strings.ToLower(strings.TrimSpace(out))
	if len(out) > 5 {
		out = out[:5]
	}
	return strings.Contains(out, "yes")
}

const callScriptPrompt = `Write a short script for a business phone call in %s.
The goal of the call: %s

Include an opening, the key points to cover, answers to likely objections and a closing.
Respond with the script only.`

// GenerateCallScript drafts a script for a call with the given goal, written
// in language. An empty language means DefaultWorkingLanguage.
func GenerateCallScript(ctx context.Context, gen Generator, goal, language string) (string, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return "", errors.New("call goal is required")
	}
	language = firstNonEmpty(strings.TrimSpace(language), DefaultWorkingLanguage)
	out, err := gen.Generate(ctx, fmt.Sprintf(callScriptPrompt, language, goal))
	if err != nil {
		return "", fmt.Errorf("generate call script: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("generate call script: empty reply")
	}
	return out, nil
}
