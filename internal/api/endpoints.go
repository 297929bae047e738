package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// FeedQuery selects one page of posts. GameID scopes to a game feed.
type FeedQuery struct {
	GameID string
	Cursor string
	Limit  int
	Sort   string
}

// Posts fetches GET /posts?game_id=&sort=&limit=&cursor=.
func (c *Client) Posts(ctx context.Context, q FeedQuery) (Page[RawItem], error) {
	v := url.Values{}
	if q.GameID != "" {
		v.Set("game_id", q.GameID)
	}
	setPaging(v, q)
	var page Page[RawItem]
	err := c.do(ctx, http.MethodGet, "/posts", v, nil, &page)
	return page, err
}

// UserPosts fetches GET /users/{id}/posts, the profile grid source.
func (c *Client) UserPosts(ctx context.Context, userID string, q FeedQuery) (Page[RawItem], error) {
	v := url.Values{}
	setPaging(v, q)
	var page Page[RawItem]
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/posts", v, nil, &page)
	return page, err
}

func setPaging(v url.Values, q FeedQuery) {
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Cursor != "" {
		v.Set("cursor", q.Cursor)
	}
}

// HighlightsQuery selects the trending pool. Lat and Lng are sent only as a
// pair.
type HighlightsQuery struct {
	Country string
	Lat     *float64
	Lng     *float64
	Limit   int
}

// Highlights fetches GET /highlights?v2=1.
func (c *Client) Highlights(ctx context.Context, q HighlightsQuery) (Highlights, error) {
	v := url.Values{}
	v.Set("v2", "1")
	if q.Country != "" {
		v.Set("country", strings.ToUpper(q.Country))
	}
	if q.Lat != nil && q.Lng != nil {
		v.Set("lat", strconv.FormatFloat(*q.Lat, 'f', -1, 64))
		v.Set("lng", strconv.FormatFloat(*q.Lng, 'f', -1, 64))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	var h Highlights
	err := c.do(ctx, http.MethodGet, "/highlights", v, nil, &h)
	return h, err
}

// ToggleUpvote flips the viewer's upvote on a post.
func (c *Client) ToggleUpvote(ctx context.Context, postID string) (UpvoteResult, error) {
	var r UpvoteResult
	if err := c.requireAuth(); err != nil {
		return r, err
	}
	err := c.do(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/upvote", nil, struct{}{}, &r)
	return r, err
}

// ToggleBookmark flips the viewer's bookmark on a post.
func (c *Client) ToggleBookmark(ctx context.Context, postID string) (BookmarkResult, error) {
	var r BookmarkResult
	if err := c.requireAuth(); err != nil {
		return r, err
	}
	err := c.do(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/bookmark", nil, struct{}{}, &r)
	return r, err
}

// Follow sends POST /users/{id}/follow.
func (c *Client) Follow(ctx context.Context, userID string) (FollowResult, error) {
	var r FollowResult
	if err := c.requireAuth(); err != nil {
		return r, err
	}
	err := c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/follow", nil, struct{}{}, &r)
	return r, err
}

// Unfollow sends DELETE /users/{id}/follow.
func (c *Client) Unfollow(ctx context.Context, userID string) (FollowResult, error) {
	var r FollowResult
	if err := c.requireAuth(); err != nil {
		return r, err
	}
	err := c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(userID)+"/follow", nil, nil, &r)
	return r, err
}

// Comments fetches one page of GET /posts/{id}/comments.
func (c *Client) Comments(ctx context.Context, postID, cursor string) (Page[RawComment], error) {
	v := url.Values{}
	if cursor != "" {
		v.Set("cursor", cursor)
	}
	var page Page[RawComment]
	err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(postID)+"/comments", v, nil, &page)
	return page, err
}

// AddComment posts {content} and returns the created comment.
func (c *Client) AddComment(ctx context.Context, postID, content string) (RawComment, error) {
	var rc RawComment
	if err := c.requireAuth(); err != nil {
		return rc, err
	}
	body := struct {
		Content string `json:"content"`
	}{content}
	err := c.do(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/comments", nil, body, &rc)
	return rc, err
}

// DeletePost removes one of the viewer's own posts.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/posts/"+url.PathEscape(postID), nil, nil, nil)
}

// UpdatePost replaces the caption of one of the viewer's own posts.
func (c *Client) UpdatePost(ctx context.Context, postID, content string) (RawItem, error) {
	var item RawItem
	if err := c.requireAuth(); err != nil {
		return item, err
	}
	body := struct {
		Content string `json:"content"`
	}{content}
	err := c.do(ctx, http.MethodPatch, "/posts/"+url.PathEscape(postID), nil, body, &item)
	return item, err
}

// GameSummary fetches GET /games/{id}/summary.
func (c *Client) GameSummary(ctx context.Context, gameID string) (GameSummary, error) {
	var s GameSummary
	err := c.do(ctx, http.MethodGet, "/games/"+url.PathEscape(gameID)+"/summary", nil, nil, &s)
	return s, err
}

// Me fetches the signed-in viewer. When /me omits the id, the token subject
// is used.
func (c *Client) Me(ctx context.Context) (Viewer, error) {
	var v Viewer
	if err := c.requireAuth(); err != nil {
		return v, err
	}
	if err := c.do(ctx, http.MethodGet, "/me", nil, nil, &v); err != nil {
		return v, err
	}
	if v.ID == "" {
		v.ID = ID(c.creds.Subject)
	}
	return v, nil
}
