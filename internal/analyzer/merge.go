package analyzer

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/kirvlasenkov/subreddit-insights/internal/types"
)

const (
	maxInsights          = 10
	maxPatterns          = 10
	maxQuotes            = 10
	maxCommonTerms       = 10
	maxEmotionalPatterns = 5
	maxHypotheses        = 5
	hypothesisKeyRunes   = 100
)

// Merge combines per-chunk results, given in chunk order, into one result.
// Counts and severities do not depend on the order of the inputs; only the
// order of equally ranked entries and first-seen text do.
func Merge(results []types.AnalysisResult) types.AnalysisResult {
	merged := types.AnalysisResult{
		Pains:      mergeInsights(lo.Map(results, func(r types.AnalysisResult, _ int) []types.Insight { return r.Pains })),
		Desires:    mergeInsights(lo.Map(results, func(r types.AnalysisResult, _ int) []types.Insight { return r.Desires })),
		Patterns:   mergePatterns(results),
		Quotes:     mergeQuotes(results),
		Hypotheses: mergeHypotheses(results),
	}

	var terms, emotions []string
	for _, r := range results {
		if merged.TLDR == "" {
			merged.TLDR = r.TLDR
		}
		// Tone is not merged: the first chunk that reports one wins
		if merged.UserLanguage.Tone == "" {
			merged.UserLanguage.Tone = r.UserLanguage.Tone
		}
		terms = append(terms, r.UserLanguage.CommonTerms...)
		emotions = append(emotions, r.UserLanguage.EmotionalPatterns...)
	}
	merged.UserLanguage.CommonTerms = capped(unionFold(terms), maxCommonTerms)
	merged.UserLanguage.EmotionalPatterns = capped(unionFold(emotions), maxEmotionalPatterns)

	return merged
}

func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func mergeInsights(lists [][]types.Insight) []types.Insight {
	var merged []types.Insight
	index := make(map[string]int)

	for _, list := range lists {
		for _, in := range list {
			key := foldKey(in.Description)
			i, ok := index[key]
			if !ok {
				index[key] = len(merged)
				in.Evidence = lo.Uniq(in.Evidence)
				merged = append(merged, in)
				continue
			}
			m := &merged[i]
			m.MentionCount += in.MentionCount
			m.Frequency = m.Frequency.Max(in.Frequency)
			m.Evidence = lo.Uniq(append(m.Evidence, in.Evidence...))
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Frequency.Rank() != b.Frequency.Rank() {
			return a.Frequency.Rank() > b.Frequency.Rank()
		}
		if a.MentionCount != b.MentionCount {
			return a.MentionCount > b.MentionCount
		}
		return foldKey(a.Description) < foldKey(b.Description)
	})

	return capped(merged, maxInsights)
}

func mergePatterns(results []types.AnalysisResult) []types.Pattern {
	var merged []types.Pattern
	index := make(map[string]int)

	for _, r := range results {
		for _, p := range r.Patterns {
			key := foldKey(p.Name)
			i, ok := index[key]
			if !ok {
				index[key] = len(merged)
				merged = append(merged, p)
				continue
			}
			merged[i].Occurrences += p.Occurrences
			if merged[i].Description == "" {
				merged[i].Description = p.Description
			}
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Occurrences != merged[j].Occurrences {
			return merged[i].Occurrences > merged[j].Occurrences
		}
		return foldKey(merged[i].Name) < foldKey(merged[j].Name)
	})

	return capped(merged, maxPatterns)
}

func mergeQuotes(results []types.AnalysisResult) []types.Quote {
	quotes := lo.FlatMap(results, func(r types.AnalysisResult, _ int) []types.Quote { return r.Quotes })
	sort.SliceStable(quotes, func(i, j int) bool { return quotes[i].Score > quotes[j].Score })
	return capped(quotes, maxQuotes)
}

// hypothesisKey folds a statement to its first hypothesisKeyRunes runes
func hypothesisKey(statement string) string {
	runes := []rune(foldKey(statement))
	if len(runes) > hypothesisKeyRunes {
		runes = runes[:hypothesisKeyRunes]
	}
	return string(runes)
}

func mergeHypotheses(results []types.AnalysisResult) []types.Hypothesis {
	var merged []types.Hypothesis
	index := make(map[string]int)

	for _, r := range results {
		for _, h := range r.Hypotheses {
			key := hypothesisKey(h.Statement)
			i, ok := index[key]
			if !ok {
				index[key] = len(merged)
				h.SupportingEvidence = lo.Uniq(h.SupportingEvidence)
				merged = append(merged, h)
				continue
			}
			merged[i].Confidence = merged[i].Confidence.Max(h.Confidence)
			merged[i].SupportingEvidence = lo.Uniq(append(merged[i].SupportingEvidence, h.SupportingEvidence...))
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence.Rank() > merged[j].Confidence.Rank()
	})

	return capped(merged, maxHypotheses)
}

// unionFold keeps the first spelling of each case-insensitively distinct value
func unionFold(values []string) []string {
	return lo.UniqBy(lo.Filter(values, func(v string, _ int) bool { return strings.TrimSpace(v) != "" }), foldKey)
}

// capped truncates s to n entries, returning an empty, non-nil slice for no entries
func capped[T any](s []T, n int) []T {
	if len(s) > n {
		s = s[:n]
	}
	if s == nil {
		return []T{}
	}
	return s
}
