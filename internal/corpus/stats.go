package corpus

import (
	"sort"

	"github.com/samber/lo"

	"github.com/kirvlasenkov/subreddit-insights/internal/types"
)

// Stats summarizes c for the report. Comment counts include nested replies
// and exclude removed or deleted comments.
func Stats(c *types.Corpus, topN int) types.CorpusStats {
	stats := types.CorpusStats{
		PostCount: len(c.Posts),
		TopPosts:  []types.Post{},
	}

	for _, p := range c.Posts {
		Walk(c.Comments[p.ID], func(cm *types.Comment) {
			if !Removed(cm.Body) {
				stats.CommentCount++
			}
		})
	}

	if len(c.Posts) == 0 {
		return stats
	}

	total := lo.SumBy(c.Posts, func(p types.Post) int { return p.Score })
	stats.AverageScore = float64(total) / float64(len(c.Posts))

	top := append([]types.Post(nil), c.Posts...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Score > top[j].Score })
	if topN > 0 && len(top) > topN {
		top = top[:topN]
	}
	stats.TopPosts = top

	return stats
}
