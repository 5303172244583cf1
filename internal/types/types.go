package types

import (
	"strings"
	"time"
)

// Post represents a fetched subreddit submission
type Post struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Author       string    `json:"author"`
	Score        int       `json:"score"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
	URL          string    `json:"url"`
	Permalink    string    `json:"permalink"`
}

// Comment is a node in a post's comment tree. Root comments carry the
// post's fullname ("t3_<id>") as ParentID.
type Comment struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	PostID    string    `json:"post_id"`
	ParentID  string    `json:"parent_id"`
	Replies   []Comment `json:"replies"`
}

// Corpus is everything fetched for one analysis run.
// Every post has an entry in Comments, empty when nothing was fetched.
type Corpus struct {
	Subreddit string               `json:"subreddit"`
	Posts     []Post               `json:"posts"`
	Comments  map[string][]Comment `json:"comments"`
}

// NewCorpus returns an empty corpus for the subreddit
func NewCorpus(subreddit string) *Corpus {
	return &Corpus{
		Subreddit: subreddit,
		Posts:     []Post{},
		Comments:  make(map[string][]Comment),
	}
}

// Level grades frequency and confidence values reported by the LLM
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// ParseLevel normalizes s, treating anything unrecognized as low
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelHigh:
		return LevelHigh
	case LevelMedium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Rank orders levels: high > medium > low
func (l Level) Rank() int {
	switch l {
	case LevelHigh:
		return 3
	case LevelMedium:
		return 2
	case LevelLow:
		return 1
	}
	return 0
}

// Max returns the more severe of two levels
func (l Level) Max(other Level) Level {
	if other.Rank() > l.Rank() {
		return other
	}
	return l
}

// Insight is an evidence-bearing pain or desire. Evidence holds verbatim quotes.
type Insight struct {
	Description  string   `json:"description"`
	Frequency    Level    `json:"frequency"`
	MentionCount int      `json:"mentionCount"`
	Evidence     []string `json:"evidence"`
}

type Pattern struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Occurrences int    `json:"occurrences"`
}

// Quote must trace back to a real post or comment in the corpus
type Quote struct {
	Text    string `json:"text"`
	Context string `json:"context"`
	Author  string `json:"author"`
	Score   int    `json:"score"`
}

type UserLanguage struct {
	CommonTerms       []string `json:"commonTerms"`
	Tone              string   `json:"tone"`
	EmotionalPatterns []string `json:"emotionalPatterns"`
}

type Hypothesis struct {
	Statement          string   `json:"statement"`
	Confidence         Level    `json:"confidence"`
	SupportingEvidence []string `json:"supportingEvidence"`
}

// AnalysisResult is produced once per chunk and merged into one final result
type AnalysisResult struct {
	TLDR         string       `json:"tldr,omitempty"`
	Pains        []Insight    `json:"pains"`
	Desires      []Insight    `json:"desires,omitempty"`
	Patterns     []Pattern    `json:"patterns"`
	Quotes       []Quote      `json:"quotes"`
	UserLanguage UserLanguage `json:"userLanguage"`
	Hypotheses   []Hypothesis `json:"hypotheses"`
}

// CorpusStats summarizes a corpus for the report
type CorpusStats struct {
	PostCount    int     `json:"post_count"`
	CommentCount int     `json:"comment_count"`
	AverageScore float64 `json:"average_score"`
	TopPosts     []Post  `json:"top_posts"`
}
