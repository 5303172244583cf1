package corpus

import (
	"github.com/kirvlasenkov/subreddit-insights/internal/types"
)

// Chunk splits c into corpora whose flattened text stays within maxChars.
// A corpus that already fits is returned as is. Otherwise whole posts with
// their comment trees are packed greedily in order; a post that alone
// exceeds the budget gets a chunk of its own rather than being cut.
// The result is never empty.
func Chunk(c *types.Corpus, maxChars int) []*types.Corpus {
	if maxChars <= 0 || len(Flatten(c)) <= maxChars {
		return []*types.Corpus{c}
	}

	var chunks []*types.Corpus
	overhead := len(header(c))

	current := newChunk(c)
	size := overhead

	for _, p := range c.Posts {
		comments := c.Comments[p.ID]
		if comments == nil {
			comments = []types.Comment{}
		}
		postSize := len(FlattenPost(p, comments))

		if len(current.Posts) > 0 && size+postSize > maxChars {
			chunks = append(chunks, current)
			current = newChunk(c)
			size = overhead
		}

		current.Posts = append(current.Posts, p)
		current.Comments[p.ID] = comments
		size += postSize
	}

	if len(current.Posts) > 0 || len(chunks) == 0 {
		chunks = append(chunks, current)
	}

	return chunks
}

func newChunk(c *types.Corpus) *types.Corpus {
	return types.NewCorpus(c.Subreddit)
}
