// Package report renders an analysis and its corpus statistics as markdown.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/kirvlasenkov/subreddit-insights/internal/types"
)

// maxEvidence is how many quotes are shown per pain, desire or hypothesis
const maxEvidence = 3

// Builder creates markdown reports from analysis results
type Builder struct {
	topPosts int
	template *template.Template
}

// New creates a new report builder showing up to topPosts top posts
func New(topPosts int) (*Builder, error) {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"inc":      func(i int) int { return i + 1 },
		"evidence": func(s []string) []string { return limit(s, maxEvidence) },
		"quote":    blockquote,
		"oneline":  oneline,
		"truncate": truncate,
		"join":     strings.Join,
	}).Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &Builder{
		topPosts: topPosts,
		template: tmpl,
	}, nil
}

// Input is everything a report is built from
type Input struct {
	Subreddit string
	Period    string
	Stats     types.CorpusStats
	Result    types.AnalysisResult
	Chunks    int
}

// Report is a rendered report
type Report struct {
	Title     string
	Markdown  string
	CreatedAt time.Time
}

// Data is the template data structure
type Data struct {
	Title     string
	Date      string
	Period    string
	Stats     types.CorpusStats
	Result    types.AnalysisResult
	Chunks    int
	TopPosts  []types.Post
	Generator string
}

// Build renders the report
func (b *Builder) Build(in Input) (*Report, error) {
	now := time.Now()

	top := in.Stats.TopPosts
	if b.topPosts > 0 && len(top) > b.topPosts {
		top = top[:b.topPosts]
	}

	data := Data{
		Title:     fmt.Sprintf("r/%s: Product Research Insights", in.Subreddit),
		Date:      now.Format("January 2, 2006 15:04"),
		Period:    in.Period,
		Stats:     in.Stats,
		Result:    in.Result,
		Chunks:    in.Chunks,
		TopPosts:  top,
		Generator: "subreddit-insights",
	}

	var buf bytes.Buffer
	if err := b.template.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Report{
		Title:     data.Title,
		Markdown:  buf.String(),
		CreatedAt: now,
	}, nil
}

func limit(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// blockquote prefixes every line of s so multi-line quotes stay quoted
func blockquote(s string) string {
	return "> " + strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n> ")
}

func oneline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(maxLen int, s string) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

const defaultTemplate = `# {{.Title}}

_Last {{.Period}} · {{.Stats.PostCount}} posts · {{.Stats.CommentCount}} comments · generated {{.Date}}_
{{- with .Result.TLDR}}

## TL;DR

{{.}}
{{- end}}

## Overview

| Posts analyzed | Comments analyzed | Average post score |
|---|---|---|
| {{.Stats.PostCount}} | {{.Stats.CommentCount}} | {{printf "%.1f" .Stats.AverageScore}} |

## Pain Points
{{range $i, $p := .Result.Pains}}
### {{inc $i}}. {{$p.Description}}

**Frequency:** {{$p.Frequency}} · **Mentions:** {{$p.MentionCount}}
{{range evidence $p.Evidence}}
{{quote .}}
{{end}}
{{- else}}
_No pain points identified._
{{end}}
{{- if .Result.Desires}}
## Desires
{{range $i, $d := .Result.Desires}}
### {{inc $i}}. {{$d.Description}}

**Frequency:** {{$d.Frequency}} · **Mentions:** {{$d.MentionCount}}
{{range evidence $d.Evidence}}
{{quote .}}
{{end}}
{{- end}}
{{end}}
## Patterns
{{range .Result.Patterns}}
- **{{.Name}}** ({{.Occurrences}}){{with .Description}}: {{.}}{{end}}
{{- else}}
_No recurring patterns identified._
{{- end}}

## Notable Quotes
{{range .Result.Quotes}}
{{quote .Text}}
>
> u/{{.Author}} · score {{.Score}}{{with .Context}} · {{oneline .}}{{end}}
{{else}}
_No quotes extracted._
{{end}}
## User Language

- **Tone:** {{with .Result.UserLanguage.Tone}}{{.}}{{else}}n/a{{end}}
- **Common terms:** {{with .Result.UserLanguage.CommonTerms}}{{join . ", "}}{{else}}n/a{{end}}
- **Emotional patterns:** {{with .Result.UserLanguage.EmotionalPatterns}}{{join . ", "}}{{else}}n/a{{end}}

## Hypotheses
{{range $i, $h := .Result.Hypotheses}}
{{inc $i}}. **{{$h.Statement}}** (confidence: {{$h.Confidence}})
{{- range evidence $h.SupportingEvidence}}
   - "{{oneline .}}"
{{- end}}
{{else}}
_No hypotheses proposed._
{{end}}
## Top Posts
{{range .TopPosts}}
- [{{oneline .Title | truncate 120}}]({{.Permalink}}) · score {{.Score}} · {{.CommentCount}} comments
{{- end}}

---
_Generated by {{.Generator}}{{if gt .Chunks 1}} · analyzed in {{.Chunks}} chunks{{end}}_
`
