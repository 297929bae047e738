package feed

import (
	"bytes"
	"path"
	"strings"
	"time"

	"github.com/abelbrown/sideline/internal/api"
)

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".m4v":  true,
	".avi":  true,
}

// Normalize maps any post-like payload to an Item. It reports false when no
// id can be derived; every other field is optional.
//
// Field priority (first present wins):
//
//	id          id, post_id, highlight_id
//	media url   collage: preview_url, media_url, media.url
//	            other:   media_url, media.url
//	media type  media_type, media.type, URL extension, image
//	caption     caption, title, content
//	upvotes     upvotes_count, likes, _count.upvotes
//	comments    comments_count, _count.comments
//	created     created_at, createdAt
func Normalize(raw api.RawItem) (Item, bool) {
	id := firstID(raw.ID, raw.PostID, raw.HighlightID)
	if id == "" {
		return Item{}, false
	}

	var mediaNested, mediaTypeNested *string
	if raw.Media != nil {
		mediaNested, mediaTypeNested = raw.Media.URL, raw.Media.Type
	}

	it := Item{
		ID:      id,
		Collage: isCollage(raw),
	}
	if it.Collage {
		it.MediaURL = firstNonEmpty(raw.PreviewURL, raw.MediaURL, mediaNested)
	} else {
		it.MediaURL = firstNonEmpty(raw.MediaURL, mediaNested)
	}
	it.MediaType = resolveMediaType(firstNonEmpty(raw.MediaType, mediaTypeNested), it.MediaURL)
	it.Caption = firstPresent(raw.Caption, raw.Title, raw.Content)

	var nestedComments, nestedUpvotes *api.Count
	if raw.Counts != nil {
		nestedComments, nestedUpvotes = raw.Counts.Comments, raw.Counts.Upvotes
	}
	it.UpvotesCount = firstCount(raw.UpvotesCount, raw.Likes, nestedUpvotes)
	it.CommentsCount = firstCount(raw.CommentsCount, nestedComments)
	it.BookmarksCount = firstCount(raw.BookmarksCount)

	it.CreatedAt = parseTime(firstNonEmpty(raw.CreatedAt, raw.CreatedAtCamel))
	it.Author = normalizeAuthor(raw.Author)

	it.HasUpvoted = firstBool(raw.HasUpvoted, raw.Upvoted, raw.Liked)
	it.HasBookmarked = firstBool(raw.HasBookmarked, raw.Bookmarked)
	it.IsFollowingAuthor = firstBool(raw.IsFollowingAuthor, raw.IsFollowing)
	return it, true
}

// NormalizeComment maps a raw comment. It reports false without an id.
func NormalizeComment(raw api.RawComment) (Comment, bool) {
	id := firstID(raw.ID)
	if id == "" {
		return Comment{}, false
	}
	c := Comment{
		ID:        id,
		Content:   firstPresent(raw.Content),
		CreatedAt: parseTime(firstNonEmpty(raw.CreatedAt, raw.CreatedAtCamel)),
	}
	if raw.Author != nil {
		if name := firstNonEmpty(raw.Author.DisplayName, raw.Author.Name, raw.Author.Username); name != "" {
			c.Author = &CommentAuthor{DisplayName: name}
		}
	}
	return c, true
}

// NormalizeItems maps a page, dropping unusable entries and ids already seen.
// seen may be nil.
func NormalizeItems(raws []api.RawItem, seen map[string]bool) []Item {
	if seen == nil {
		seen = make(map[string]bool, len(raws))
	}
	out := make([]Item, 0, len(raws))
	for _, raw := range raws {
		it, ok := Normalize(raw)
		if !ok || seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}

func normalizeAuthor(a *api.RawAuthor) *Author {
	if a == nil {
		return nil
	}
	id := firstID(a.ID, a.UserID)
	if id == "" {
		return nil
	}
	return &Author{
		ID:          id,
		DisplayName: firstNonEmpty(a.DisplayName, a.Name, a.Username),
		AvatarURL:   firstNonEmpty(a.AvatarURL, a.AvatarURLCamel),
	}
}

func isCollage(raw api.RawItem) bool {
	if raw.Type != nil && strings.EqualFold(*raw.Type, "collage") {
		return true
	}
	c := bytes.TrimSpace(raw.Collage)
	return len(c) > 0 && !bytes.Equal(c, []byte("null"))
}

// resolveMediaType honors an explicit video/image value, then the URL
// extension. Unknown explicit values fall through to inference.
func resolveMediaType(explicit, mediaURL string) MediaType {
	switch MediaType(strings.ToLower(strings.TrimSpace(explicit))) {
	case MediaVideo:
		return MediaVideo
	case MediaImage:
		return MediaImage
	}
	return inferMediaType(mediaURL)
}

func inferMediaType(mediaURL string) MediaType {
	u := mediaURL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if videoExtensions[strings.ToLower(path.Ext(u))] {
		return MediaVideo
	}
	return MediaImage
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func firstID(ids ...*api.ID) string {
	for _, id := range ids {
		if id != nil && strings.TrimSpace(string(*id)) != "" {
			return strings.TrimSpace(string(*id))
		}
	}
	return ""
}

// firstNonEmpty treats "" as absent.
func firstNonEmpty(vals ...*string) string {
	for _, v := range vals {
		if v != nil && strings.TrimSpace(*v) != "" {
			return strings.TrimSpace(*v)
		}
	}
	return ""
}

// firstPresent treats only null as absent, so an explicit "" wins.
func firstPresent(vals ...*string) string {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return ""
}

func firstCount(vals ...*api.Count) int {
	for _, v := range vals {
		if v != nil {
			return max(0, int(*v))
		}
	}
	return 0
}

func firstBool(vals ...*bool) bool {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return false
}

// NormalizeMediaURL canonicalizes a media URL for exclusion matching:
// trimmed, without fragment, query, scheme or trailing slashes, lower-cased.
func NormalizeMediaURL(u string) string {
	s := strings.TrimSpace(u)
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "https://"):
		s = s[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		s = s[len("http://"):]
	}
	return strings.ToLower(strings.TrimRight(s, "/"))
}

// ExcludeSet holds normalized media URLs the host does not want shown.
type ExcludeSet map[string]struct{}

// NewExcludeSet builds a set from raw URLs, ignoring blanks.
func NewExcludeSet(urls []string) ExcludeSet {
	s := make(ExcludeSet, len(urls))
	for _, u := range urls {
		if n := NormalizeMediaURL(u); n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// Excludes reports whether the item's media is in the set. Items without media are
// never excluded.
func (s ExcludeSet) Excludes(it Item) bool {
	if len(s) == 0 || it.MediaURL == "" {
		return false
	}
	_, ok := s[NormalizeMediaURL(it.MediaURL)]
	return ok
}

// Filter returns items not excluded, preserving order.
func (s ExcludeSet) Filter(items []Item) []Item {
	if len(s) == 0 {
		return items
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if !s.Excludes(it) {
			out = append(out, it)
		}
	}
	return out
}
