// Package corpus turns fetched subreddit data into the text the LLM reads
// and splits it into chunks that fit the model's context.
package corpus

import (
	"fmt"
	"strings"

	"github.com/kirvlasenkov/subreddit-insights/internal/types"
)

// Walk visits comments depth-first in pre-order, parents before replies and
// siblings in server order. It uses an explicit stack so deep threads cannot
// exhaust the goroutine stack.
func Walk(comments []types.Comment, visit func(c *types.Comment)) {
	stack := make([]*types.Comment, 0, len(comments))
	for i := len(comments) - 1; i >= 0; i-- {
		stack = append(stack, &comments[i])
	}

	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		visit(c)

		for i := len(c.Replies) - 1; i >= 0; i-- {
			stack = append(stack, &c.Replies[i])
		}
	}
}

// Removed reports whether a body is a removal or deletion placeholder
func Removed(body string) bool {
	switch t := strings.TrimSpace(body); {
	case t == "", t == "[removed]", t == "[deleted]":
		return true
	case strings.HasPrefix(t, "[removed by "):
		return true
	}
	return false
}

// Flatten renders the whole corpus as prompt text. The output depends only
// on the corpus, so flattening twice yields identical text.
func Flatten(c *types.Corpus) string {
	var sb strings.Builder
	sb.WriteString(header(c))
	for _, p := range c.Posts {
		sb.WriteString(FlattenPost(p, c.Comments[p.ID]))
	}
	return sb.String()
}

func header(c *types.Corpus) string {
	return fmt.Sprintf("# r/%s (%d posts)\n\n", c.Subreddit, len(c.Posts))
}

// FlattenPost renders one post followed by every surviving comment under it
// as a flat list annotated with author and score.
func FlattenPost(p types.Post, comments []types.Comment) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Post: %s\n", p.Title)
	fmt.Fprintf(&sb, "Author: u/%s | Score: %d | Comments: %d", p.Author, p.Score, p.CommentCount)
	if !p.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, " | Posted: %s", p.CreatedAt.Format("2006-01-02"))
	}
	sb.WriteString("\n")
	if p.Permalink != "" {
		fmt.Fprintf(&sb, "Link: %s\n", p.Permalink)
	}
	if !Removed(p.Body) {
		fmt.Fprintf(&sb, "\n%s\n", strings.TrimSpace(p.Body))
	}

	first := true
	Walk(comments, func(c *types.Comment) {
		if Removed(c.Body) {
			return
		}
		if first {
			sb.WriteString("\n### Comments\n")
			first = false
		}
		fmt.Fprintf(&sb, "- [u/%s, score %d] %s\n", c.Author, c.Score, strings.TrimSpace(c.Body))
	})

	sb.WriteString("\n")
	return sb.String()
}
