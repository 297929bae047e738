package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ID is an identifier the backend may send as a JSON string or number.
type ID string

// UnmarshalJSON accepts "abc", 123 and 1.5e3 forms.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("api: id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MaxCount caps decoded counters.
const MaxCount = math.MaxInt32

// Count is a tolerant non-negative counter. Whole numbers decode in plain,
// string or exponent form and clamp at MaxCount; anything else, fractions
// included, decodes as zero rather than failing the page.
type Count int

func (c *Count) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		b = bytes.Trim(b, `"`)
	}
	f, err := strconv.ParseFloat(string(b), 64)
	switch {
	case math.IsInf(f, 1), err == nil && f > MaxCount && f == math.Trunc(f):
		*c = MaxCount
	case err != nil || f < 0 || f != math.Trunc(f):
		*c = 0
	default:
		*c = Count(f)
	}
	return nil
}

// RawItem is any post-like payload the backend returns: a direct post, a
// wrapped highlight, or a collage post. Every field is optional; see
// feed.Normalize for the resolution order.
type RawItem struct {
	ID          *ID `json:"id"`
	PostID      *ID `json:"post_id"`
	HighlightID *ID `json:"highlight_id"`

	Type       *string         `json:"type"`
	Collage    json.RawMessage `json:"collage"`
	PreviewURL *string         `json:"preview_url"`
	MediaURL   *string         `json:"media_url"`
	Media      *RawMedia       `json:"media"`
	MediaType  *string         `json:"media_type"`

	Caption *string `json:"caption"`
	Title   *string `json:"title"`
	Content *string `json:"content"`

	UpvotesCount   *Count     `json:"upvotes_count"`
	Likes          *Count     `json:"likes"`
	CommentsCount  *Count     `json:"comments_count"`
	Counts         *RawCounts `json:"_count"`
	BookmarksCount *Count     `json:"bookmarks_count"`

	CreatedAt      *string `json:"created_at"`
	CreatedAtCamel *string `json:"createdAt"`

	Author *RawAuthor `json:"author"`

	HasUpvoted        *bool `json:"has_upvoted"`
	Upvoted           *bool `json:"upvoted"`
	Liked             *bool `json:"liked"`
	HasBookmarked     *bool `json:"has_bookmarked"`
	Bookmarked        *bool `json:"bookmarked"`
	IsFollowingAuthor *bool `json:"is_following_author"`
	IsFollowing       *bool `json:"is_following"`
}

// RawMedia is the nested media object some community endpoints return.
type RawMedia struct {
	URL  *string `json:"url"`
	Type *string `json:"type"`
}

// RawCounts is the aggregate container ("_count") returned by list endpoints.
type RawCounts struct {
	Comments *Count `json:"comments"`
	Upvotes  *Count `json:"upvotes"`
}

// RawAuthor is the author sub-object of posts and comments.
type RawAuthor struct {
	ID             *ID     `json:"id"`
	UserID         *ID     `json:"user_id"`
	DisplayName    *string `json:"display_name"`
	Name           *string `json:"name"`
	Username       *string `json:"username"`
	AvatarURL      *string `json:"avatar_url"`
	AvatarURLCamel *string `json:"avatarUrl"`
}

// RawComment is a single comment on a post.
type RawComment struct {
	ID             *ID        `json:"id"`
	Content        *string    `json:"content"`
	Author         *RawAuthor `json:"author"`
	CreatedAt      *string    `json:"created_at"`
	CreatedAtCamel *string    `json:"createdAt"`
}

// Page is one cursor page. NextCursor is empty when the list is exhausted.
type Page[T any] struct {
	Items      []T
	NextCursor string
}

// UnmarshalJSON accepts {items, nextCursor} objects and bare arrays (a single,
// final page). A non-string nextCursor is treated as absent.
func (p *Page[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '[' {
		return json.Unmarshal(b, &p.Items)
	}
	var wire struct {
		Items      []T             `json:"items"`
		NextCursor json.RawMessage `json:"nextCursor"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	p.Items = wire.Items
	p.NextCursor = ""
	var s string
	if len(wire.NextCursor) > 0 && json.Unmarshal(wire.NextCursor, &s) == nil {
		p.NextCursor = s
	}
	return nil
}

// Highlights is the trending pool response. Both pools may overlap.
type Highlights struct {
	NationalTop []RawItem `json:"nationalTop"`
	Ranked      []RawItem `json:"ranked"`
}

// UpvoteResult is the authoritative state after an upvote toggle.
type UpvoteResult struct {
	HasUpvoted   *bool  `json:"has_upvoted"`
	Upvoted      *bool  `json:"upvoted"`
	UpvotesCount *Count `json:"upvotes_count"`
	Count        *Count `json:"count"`
}

// State returns the server's upvote flag and count, each with a presence bit.
func (r UpvoteResult) State() (upvoted bool, hasFlag bool, count int, hasCount bool) {
	switch {
	case r.HasUpvoted != nil:
		upvoted, hasFlag = *r.HasUpvoted, true
	case r.Upvoted != nil:
		upvoted, hasFlag = *r.Upvoted, true
	}
	switch {
	case r.UpvotesCount != nil:
		count, hasCount = int(*r.UpvotesCount), true
	case r.Count != nil:
		count, hasCount = int(*r.Count), true
	}
	return
}

// BookmarkResult is the authoritative state after a bookmark toggle.
type BookmarkResult struct {
	HasBookmarked  *bool  `json:"has_bookmarked"`
	Bookmarked     *bool  `json:"bookmarked"`
	BookmarksCount *Count `json:"bookmarks_count"`
}

// State mirrors UpvoteResult.State.
func (r BookmarkResult) State() (bookmarked bool, hasFlag bool, count int, hasCount bool) {
	switch {
	case r.HasBookmarked != nil:
		bookmarked, hasFlag = *r.HasBookmarked, true
	case r.Bookmarked != nil:
		bookmarked, hasFlag = *r.Bookmarked, true
	}
	if r.BookmarksCount != nil {
		count, hasCount = int(*r.BookmarksCount), true
	}
	return
}

// FollowResult is returned by follow and unfollow. IsFollowingAuthor may be
// absent.
type FollowResult struct {
	IsFollowingAuthor *bool `json:"is_following_author"`
}

// Viewer is the signed-in user as returned by /me.
type Viewer struct {
	ID          ID     `json:"id"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
	AvatarURL   string `json:"avatar_url"`
}

// Label is the name shown on the viewer's own optimistic comments.
func (v *Viewer) Label() string {
	switch {
	case v == nil:
		return "You"
	case v.DisplayName != "":
		return v.DisplayName
	case v.Username != "":
		return v.Username
	}
	return "You"
}

// GameSummary is the subset of /games/{id}/summary the feed header uses.
type GameSummary struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
}
