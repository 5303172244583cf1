package reddit

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/kirvlasenkov/subreddit-insights/internal/types"
)

const (
	kindComment = "t1"
	kindPost    = "t3"

	siteURL = "https://www.reddit.com"
)

// listing is the envelope Reddit wraps every collection in
type listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string  `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

// thing is a listing child; Data is decoded according to Kind
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type postData struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
}

type commentData struct {
	ID         string          `json:"id"`
	Body       string          `json:"body"`
	Author     string          `json:"author"`
	Score      int             `json:"score"`
	CreatedUTC float64         `json:"created_utc"`
	LinkID     string          `json:"link_id"`
	ParentID   string          `json:"parent_id"`
	Replies    json.RawMessage `json:"replies"` // "" when there are none, otherwise a listing
}

func (d postData) toPost(subreddit string) types.Post {
	permalink := d.Permalink
	if permalink == "" {
		permalink = "/r/" + subreddit + "/comments/" + d.ID + "/"
	}
	if strings.HasPrefix(permalink, "/") {
		permalink = siteURL + permalink
	}

	return types.Post{
		ID:           d.ID,
		Title:        d.Title,
		Body:         d.Selftext,
		Author:       d.Author,
		Score:        d.Score,
		CommentCount: d.NumComments,
		CreatedAt:    unixTime(d.CreatedUTC),
		URL:          d.URL,
		Permalink:    permalink,
	}
}

// parseComments converts the comment listing of a comments response.
// "more" stubs and malformed children are skipped.
func parseComments(l listing, postID string) []types.Comment {
	comments := make([]types.Comment, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != kindComment {
			continue
		}
		var d commentData
		if err := json.Unmarshal(child.Data, &d); err != nil {
			continue
		}
		comments = append(comments, d.toComment(postID))
	}
	return comments
}

func (d commentData) toComment(postID string) types.Comment {
	if id := strings.TrimPrefix(d.LinkID, kindPost+"_"); id != "" {
		postID = id
	}

	c := types.Comment{
		ID:        d.ID,
		Body:      d.Body,
		Author:    d.Author,
		Score:     d.Score,
		CreatedAt: unixTime(d.CreatedUTC),
		PostID:    postID,
		ParentID:  d.ParentID,
		Replies:   []types.Comment{},
	}
	if c.ParentID == "" {
		c.ParentID = kindPost + "_" + postID
	}

	raw := bytes.TrimSpace(d.Replies)
	if len(raw) > 0 && raw[0] == '{' {
		var replies listing
		if err := json.Unmarshal(raw, &replies); err == nil {
			c.Replies = parseComments(replies, postID)
		}
	}

	return c
}

func unixTime(sec float64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), 0).UTC()
}
