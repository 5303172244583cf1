package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kirvlasenkov/subreddit-insights/internal/types"
)

// ErrMalformedResponse means the model's reply could not be parsed as JSON
var ErrMalformedResponse = errors.New("malformed LLM response")

var (
	fenceOpen  = regexp.MustCompile("^```[A-Za-z0-9_-]*[ \t]*\r?\n?")
	fenceClose = regexp.MustCompile("\r?\n?```$")
)

// StripFence removes a surrounding markdown code fence, with or without a
// language tag.
func StripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = fenceOpen.ReplaceAllString(text, "")
	text = fenceClose.ReplaceAllString(strings.TrimSpace(text), "")
	return strings.TrimSpace(text)
}

// ParseResponse decodes a model reply into an AnalysisResult. Text that is
// not a JSON object is an ErrMalformedResponse. Missing or wrongly typed
// fields fall back to empty values.
func ParseResponse(text string) (*types.AnalysisResult, error) {
	cleaned := StripFence(text)

	var raw map[string]any
	err := json.Unmarshal([]byte(cleaned), &raw)
	if err != nil {
		// Tolerate prose around the object
		start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}")
		if start >= 0 && end > start && json.Unmarshal([]byte(cleaned[start:end+1]), &raw) == nil {
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v (response was: %.500s)", ErrMalformedResponse, err, text)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: expected a JSON object (response was: %.500s)", ErrMalformedResponse, text)
	}

	return decodeResult(raw), nil
}

func decodeResult(raw map[string]any) *types.AnalysisResult {
	res := &types.AnalysisResult{
		TLDR:     stringField(raw, "tldr"),
		Pains:    decodeInsights(raw, "pains"),
		Desires:  decodeInsights(raw, "desires"),
		Patterns: []types.Pattern{},
		Quotes:   []types.Quote{},
		UserLanguage: types.UserLanguage{
			CommonTerms:       []string{},
			EmotionalPatterns: []string{},
		},
		Hypotheses: []types.Hypothesis{},
	}

	for _, m := range objectList(raw, "patterns") {
		name := stringField(m, "name")
		if name == "" {
			continue
		}
		res.Patterns = append(res.Patterns, types.Pattern{
			Name:        name,
			Description: stringField(m, "description"),
			Occurrences: max(intField(m, "occurrences"), 1),
		})
	}

	for _, m := range objectList(raw, "quotes") {
		text := stringField(m, "text")
		if text == "" {
			continue
		}
		res.Quotes = append(res.Quotes, types.Quote{
			Text:    text,
			Context: stringField(m, "context"),
			Author:  stringField(m, "author"),
			Score:   intField(m, "score"),
		})
	}

	if ul, ok := raw["userLanguage"].(map[string]any); ok {
		res.UserLanguage = types.UserLanguage{
			CommonTerms:       stringList(ul, "commonTerms"),
			Tone:              stringField(ul, "tone"),
			EmotionalPatterns: stringList(ul, "emotionalPatterns"),
		}
	}

	for _, m := range objectList(raw, "hypotheses") {
		statement := stringField(m, "statement")
		if statement == "" {
			continue
		}
		res.Hypotheses = append(res.Hypotheses, types.Hypothesis{
			Statement:          statement,
			Confidence:         types.ParseLevel(stringField(m, "confidence")),
			SupportingEvidence: stringList(m, "supportingEvidence"),
		})
	}

	return res
}

func decodeInsights(raw map[string]any, key string) []types.Insight {
	insights := []types.Insight{}
	for _, m := range objectList(raw, key) {
		description := stringField(m, "description")
		if description == "" {
			continue
		}
		evidence := stringList(m, "evidence")
		insights = append(insights, types.Insight{
			Description:  description,
			Frequency:    types.ParseLevel(stringField(m, "frequency")),
			MentionCount: max(intField(m, "mentionCount"), len(evidence), 1),
			Evidence:     evidence,
		})
	}
	return insights
}

func objectList(m map[string]any, key string) []map[string]any {
	items, _ := m[key].([]any)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func stringList(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	}
	return []string{}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	}
	return 0
}
