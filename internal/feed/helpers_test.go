package feed

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/sideline/internal/api"
)

func ptr[T any](v T) *T { return &v }

func rawItem(id, mediaURL string) api.RawItem {
	r := api.RawItem{ID: ptr(api.ID(id))}
	if mediaURL != "" {
		r.MediaURL = ptr(mediaURL)
	}
	return r
}

func rawByAuthor(id, authorID string) api.RawItem {
	r := rawItem(id, "https://cdn.example.com/"+id+".mp4")
	r.Author = &api.RawAuthor{ID: ptr(api.ID(authorID)), DisplayName: ptr("Author " + authorID)}
	return r
}

func rawComment(id, content string) api.RawComment {
	return api.RawComment{ID: ptr(api.ID(id)), Content: ptr(content)}
}

func rawPage(next string, ids ...string) api.Page[api.RawItem] {
	p := api.Page[api.RawItem]{NextCursor: next}
	for _, id := range ids {
		p.Items = append(p.Items, rawItem(id, "https://cdn.example.com/"+id+".mp4"))
	}
	return p
}

var errBoom = errors.New("boom")

// fakeBackend is an in-memory Backend. Page responses are keyed by cursor
// ("" for the first page).
type fakeBackend struct {
	mu sync.Mutex

	pages      map[string]api.Page[api.RawItem]
	postsErr   error
	postsCalls []api.FeedQuery

	highlights      api.Highlights
	highlightsErr   error
	highlightsCalls int

	upvoteResult api.UpvoteResult
	upvoteErr    error
	upvoteCalls  int

	bookmarkResult api.BookmarkResult
	bookmarkErr    error

	followResult  api.FollowResult
	followErr     error
	followCalls   []string
	unfollowCalls []string

	comments      map[string]api.Page[api.RawComment]
	commentsErr   error
	commentsCalls []string

	addResult api.RawComment
	addErr    error
	addCalls  []string

	deleteErr error
	updateRaw api.RawItem
	updateErr error

	summary    api.GameSummary
	summaryErr error
	viewer     api.Viewer
	meErr      error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		pages:    make(map[string]api.Page[api.RawItem]),
		comments: make(map[string]api.Page[api.RawComment]),
		meErr:    api.ErrUnauthorized,
	}
}

func (f *fakeBackend) Posts(_ context.Context, q api.FeedQuery) (api.Page[api.RawItem], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postsCalls = append(f.postsCalls, q)
	if f.postsErr != nil {
		return api.Page[api.RawItem]{}, f.postsErr
	}
	return f.pages[q.Cursor], nil
}

func (f *fakeBackend) Highlights(context.Context, api.HighlightsQuery) (api.Highlights, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.highlightsCalls++
	return f.highlights, f.highlightsErr
}

func (f *fakeBackend) ToggleUpvote(context.Context, string) (api.UpvoteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upvoteCalls++
	return f.upvoteResult, f.upvoteErr
}

func (f *fakeBackend) ToggleBookmark(context.Context, string) (api.BookmarkResult, error) {
	return f.bookmarkResult, f.bookmarkErr
}

func (f *fakeBackend) Follow(_ context.Context, userID string) (api.FollowResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followCalls = append(f.followCalls, userID)
	return f.followResult, f.followErr
}

func (f *fakeBackend) Unfollow(_ context.Context, userID string) (api.FollowResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unfollowCalls = append(f.unfollowCalls, userID)
	return f.followResult, f.followErr
}

func (f *fakeBackend) Comments(_ context.Context, postID, cursor string) (api.Page[api.RawComment], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commentsCalls = append(f.commentsCalls, postID+"@"+cursor)
	if f.commentsErr != nil {
		return api.Page[api.RawComment]{}, f.commentsErr
	}
	return f.comments[cursor], nil
}

func (f *fakeBackend) AddComment(_ context.Context, postID, content string) (api.RawComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls = append(f.addCalls, postID+":"+content)
	return f.addResult, f.addErr
}

func (f *fakeBackend) DeletePost(context.Context, string) error { return f.deleteErr }

func (f *fakeBackend) UpdatePost(context.Context, string, string) (api.RawItem, error) {
	return f.updateRaw, f.updateErr
}

func (f *fakeBackend) GameSummary(context.Context, string) (api.GameSummary, error) {
	return f.summary, f.summaryErr
}

func (f *fakeBackend) Me(context.Context) (api.Viewer, error) { return f.viewer, f.meErr }

// run executes cmd and everything it batches, feeding each result back
// through s.Update until no commands remain. Messages meant for the host
// are returned in arrival order.
func run(t *testing.T, s *Session, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	var host []tea.Msg
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 1000 {
			t.Fatal("command loop did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		switch m := msg.(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, m...)
		case SignInRequired, CommentCreated:
			host = append(host, m)
		default:
			queue = append(queue, s.Update(m))
		}
	}
	return host
}

// runOnce runs a single command without feeding the result back.
func runOnce(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command, got nil")
	}
	return cmd()
}

type fakeHandle struct {
	playing bool
	plays   int
	pauses  int
}

func (h *fakeHandle) Play()  { h.playing = true; h.plays++ }
func (h *fakeHandle) Pause() { h.playing = false; h.pauses++ }

func playingCount(hs map[string]*fakeHandle) (int, string) {
	n, id := 0, ""
	for k, h := range hs {
		if h.playing {
			n++
			id = k
		}
	}
	return n, id
}
