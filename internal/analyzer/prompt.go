package analyzer

import (
	"fmt"
	"strings"

	"github.com/kirvlasenkov/subreddit-insights/internal/corpus"
	"github.com/kirvlasenkov/subreddit-insights/internal/types"
)

// BuildPrompt constructs the extraction prompt for one chunk of the corpus.
// chunk is 1-based; the chunk note is only added when total > 1.
func BuildPrompt(c *types.Corpus, chunk, total int, extended bool) string {
	var sb strings.Builder

	sb.WriteString("You are a product researcher analyzing discussions from a subreddit to understand what its users struggle with and want.\n\n")

	if total > 1 {
		sb.WriteString(fmt.Sprintf("This is chunk %d of %d of the collected data. Analyze only the discussions below; the results of all chunks will be combined.\n\n", chunk, total))
	}

	sb.WriteString("## Discussions\n\n")
	sb.WriteString(corpus.Flatten(c))

	sb.WriteString("## Task\n\n")
	sb.WriteString("Extract product research insights from these discussions:\n")
	if extended {
		sb.WriteString("- tldr (string): Two or three sentences summarizing the most important findings\n")
	}
	sb.WriteString("- pains (array, max 10): Problems and frustrations users describe\n")
	if extended {
		sb.WriteString("- desires (array, max 10): Things users wish existed or ask for\n")
	}
	sb.WriteString("- patterns (array, max 10): Recurring behaviours, workarounds or discussion themes\n")
	sb.WriteString("- quotes (array, max 10): The most telling verbatim quotes\n")
	sb.WriteString("- userLanguage (object): The words and tone users use\n")
	sb.WriteString("- hypotheses (array, max 5): Product hypotheses worth testing\n\n")

	sb.WriteString("Rules:\n")
	sb.WriteString("- evidence, supportingEvidence and quote text must be copied verbatim from the discussions, never paraphrased\n")
	sb.WriteString("- frequency and confidence are one of \"high\", \"medium\" or \"low\"\n")
	sb.WriteString("- mentionCount and occurrences count how many posts or comments express the item\n\n")

	sb.WriteString("Respond with only a JSON object in this exact format:\n")
	sb.WriteString("```json\n")
	sb.WriteString("{\n")
	if extended {
		sb.WriteString("  \"tldr\": \"Users mostly struggle with...\",\n")
	}
	sb.WriteString("  \"pains\": [\n")
	sb.WriteString("    {\"description\": \"...\", \"frequency\": \"high\", \"mentionCount\": 4, \"evidence\": [\"exact quote\"]}\n")
	sb.WriteString("  ],\n")
	if extended {
		sb.WriteString("  \"desires\": [\n")
		sb.WriteString("    {\"description\": \"...\", \"frequency\": \"medium\", \"mentionCount\": 2, \"evidence\": [\"exact quote\"]}\n")
		sb.WriteString("  ],\n")
	}
	sb.WriteString("  \"patterns\": [\n")
	sb.WriteString("    {\"name\": \"...\", \"description\": \"...\", \"occurrences\": 3}\n")
	sb.WriteString("  ],\n")
	sb.WriteString("  \"quotes\": [\n")
	sb.WriteString("    {\"text\": \"exact quote\", \"context\": \"what the thread was about\", \"author\": \"username\", \"score\": 42}\n")
	sb.WriteString("  ],\n")
	sb.WriteString("  \"userLanguage\": {\"commonTerms\": [\"...\"], \"tone\": \"...\", \"emotionalPatterns\": [\"...\"]},\n")
	sb.WriteString("  \"hypotheses\": [\n")
	sb.WriteString("    {\"statement\": \"...\", \"confidence\": \"medium\", \"supportingEvidence\": [\"exact quote\"]}\n")
	sb.WriteString("  ]\n")
	sb.WriteString("}\n")
	sb.WriteString("```\n")

	return sb.String()
}
