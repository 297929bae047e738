package ui

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/sideline/internal/api"
	"github.com/abelbrown/sideline/internal/feed"
)

// stubBackend answers every call from fixed fields.
type stubBackend struct {
	mu          sync.Mutex
	viewer      *api.Viewer
	upvoteErr   error
	upvoteCalls int
	comments    api.Page[api.RawComment]
	added       api.RawComment
	deleted     []string
}

func (b *stubBackend) Posts(context.Context, api.FeedQuery) (api.Page[api.RawItem], error) {
	return api.Page[api.RawItem]{}, nil
}

func (b *stubBackend) Highlights(context.Context, api.HighlightsQuery) (api.Highlights, error) {
	return api.Highlights{}, nil
}

func (b *stubBackend) ToggleUpvote(context.Context, string) (api.UpvoteResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.upvoteCalls++
	return api.UpvoteResult{}, b.upvoteErr
}

func (b *stubBackend) ToggleBookmark(context.Context, string) (api.BookmarkResult, error) {
	return api.BookmarkResult{}, nil
}

func (b *stubBackend) Follow(context.Context, string) (api.FollowResult, error) {
	return api.FollowResult{}, nil
}

func (b *stubBackend) Unfollow(context.Context, string) (api.FollowResult, error) {
	return api.FollowResult{}, nil
}

func (b *stubBackend) Comments(context.Context, string, string) (api.Page[api.RawComment], error) {
	return b.comments, nil
}

func (b *stubBackend) AddComment(context.Context, string, string) (api.RawComment, error) {
	return b.added, nil
}

func (b *stubBackend) DeletePost(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, id)
	return nil
}

func (b *stubBackend) UpdatePost(context.Context, string, string) (api.RawItem, error) {
	return api.RawItem{}, nil
}

func (b *stubBackend) GameSummary(context.Context, string) (api.GameSummary, error) {
	return api.GameSummary{}, nil
}

func (b *stubBackend) Me(context.Context) (api.Viewer, error) {
	if b.viewer == nil {
		return api.Viewer{}, api.ErrUnauthorized
	}
	return *b.viewer, nil
}

func videos(ids ...string) []feed.Item {
	items := make([]feed.Item, len(ids))
	for i, id := range ids {
		items[i] = feed.Item{
			ID:        id,
			MediaURL:  "https://cdn.example.com/" + id + ".mp4",
			MediaType: feed.MediaVideo,
			Caption:   "caption " + id,
			Author:    &feed.Author{ID: "u-" + id, DisplayName: "Author " + id},
		}
	}
	return items
}

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

// newTestApp builds an App over a static session and runs its Init.
func newTestApp(t *testing.T, b *stubBackend, start int, items []feed.Item, d Deps) (*App, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)}
	d.Session = feed.NewSession(b, feed.Options{StaticItems: items, StartIndex: start})
	if d.Now == nil {
		d.Now = clock.Now
	}
	if d.Copy == nil {
		d.Copy = func(string) error { return nil }
	}
	a := NewApp(d)
	drive(t, a, a.Init())
	a.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return a, clock
}

// drive executes cmd and everything it produces, feeding messages back
// through a.Update. Clock ticks are dropped so loops terminate.
func drive(t *testing.T, a *App, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 500 {
			t.Fatal("command loop did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch m := c().(type) {
		case nil, spinner.TickMsg, playbackTick:
		case tea.BatchMsg:
			queue = append(queue, m...)
		default:
			_, next := a.Update(m)
			queue = append(queue, next)
		}
	}
}

func press(a *App, k string) tea.Cmd {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "space":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	_, cmd := a.Update(msg)
	return cmd
}

func typeText(a *App, s string) {
	for _, r := range s {
		a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}
