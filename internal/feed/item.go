// Package feed is the vertical media feed engine: item normalization, cursor
// pagination, video playback arbitration, optimistic social mutations and the
// per-item comments thread, orchestrated by Session.
//
// Session is not goroutine-safe. Every method and Update must be called from
// the Bubble Tea event loop; network calls run inside the returned tea.Cmd and
// come back as messages that are discarded when they no longer belong to the
// current session generation.
package feed

import "time"

// MediaType is the playback class of an item's representative media.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Kind describes how an item renders.
type Kind string

const (
	KindMedia    Kind = "media"
	KindCollage  Kind = "collage"
	KindTextOnly Kind = "text-only"
)

// Author is the canonical post author.
type Author struct {
	ID          string
	DisplayName string
	AvatarURL   string
}

// Item is the canonical unit rendered in the feed.
type Item struct {
	ID        string
	MediaURL  string // empty when the post carries no media
	MediaType MediaType
	Caption   string

	UpvotesCount   int
	CommentsCount  int
	BookmarksCount int

	CreatedAt *time.Time
	Author    *Author

	HasUpvoted        bool
	HasBookmarked     bool
	IsFollowingAuthor bool

	Collage bool
}

// Kind derives the render kind: text-only when there is no media URL and the
// item is not a collage.
func (it Item) Kind() Kind {
	switch {
	case it.Collage:
		return KindCollage
	case it.MediaURL == "":
		return KindTextOnly
	}
	return KindMedia
}

// AuthorID returns the author's id or "".
func (it Item) AuthorID() string {
	if it.Author == nil {
		return ""
	}
	return it.Author.ID
}

// CommentAuthor is the display-only author of a comment.
type CommentAuthor struct {
	DisplayName string
}

// Comment is one entry of a comments thread. Optimistic comments are local
// placeholders awaiting the server's copy.
type Comment struct {
	ID         string
	Content    string
	Author     *CommentAuthor
	CreatedAt  *time.Time
	Optimistic bool
}
