package feed

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/sideline/internal/api"
	"github.com/abelbrown/sideline/internal/otel"
)

// Mutation is one optimistic action. Apply runs immediately on the loop.
// Call runs inside the returned tea.Cmd. Exactly one of Reconcile (success)
// or Rollback (failure) runs later on the loop, and only if the session that
// issued the mutation is still current. If the items were reloaded meanwhile
// their item writes are dropped; other state they touch is still settled.
// Done, when set, may return a message
// for the host once the outcome is applied.
type Mutation[R any] struct {
	Kind   string
	ItemID string

	Apply     func()
	Call      func(ctx context.Context) (R, error)
	Reconcile func(R)
	Rollback  func()
	Done      func(err error) tea.Msg
}

// mutationDone carries a finished Call back to the loop. finish applies the
// outcome; it closes over the typed result so the message stays untyped.
type mutationDone struct {
	gen    uint64
	epoch  uint64
	kind   string
	itemID string
	err    error
	dur    time.Duration
	finish func() tea.Msg
}

// optimistic applies m and returns the Cmd that performs its network call.
func optimistic[R any](s *Session, m Mutation[R]) tea.Cmd {
	if m.Apply != nil {
		m.Apply()
	}
	s.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindMutationApply, ItemID: m.ItemID, Msg: m.Kind})

	gen, epoch := s.gen, s.epoch
	return func() tea.Msg {
		start := time.Now()
		r, err := m.Call(context.Background())
		return mutationDone{
			gen:    gen,
			epoch:  epoch,
			kind:   m.Kind,
			itemID: m.ItemID,
			err:    err,
			dur:    time.Since(start),
			finish: func() tea.Msg {
				if err != nil {
					if m.Rollback != nil {
						m.Rollback()
					}
				} else if m.Reconcile != nil {
					m.Reconcile(r)
				}
				if m.Done != nil {
					return m.Done(err)
				}
				return nil
			},
		}
	}
}

// SignInRequired is sent to the host when an action failed because the
// viewer is signed out or the token expired. The local change has already
// been rolled back.
type SignInRequired struct {
	Action string
	ItemID string
}

func (s *Session) handleMutationDone(msg mutationDone) tea.Cmd {
	if msg.gen != s.gen {
		return nil
	}
	s.staleWrites = msg.epoch != s.epoch
	out := msg.finish()
	s.staleWrites = false

	if msg.err != nil {
		s.emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindMutationRollback, ItemID: msg.itemID, Msg: msg.kind, Err: msg.err.Error(), Dur: msg.dur})
	} else {
		s.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindMutationCommit, ItemID: msg.itemID, Msg: msg.kind, Dur: msg.dur})
	}

	var cmds []tea.Cmd
	if out != nil {
		cmds = append(cmds, msgCmd(out))
	}
	if errors.Is(msg.err, api.ErrUnauthorized) {
		s.emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindAuthRequired, ItemID: msg.itemID, Msg: msg.kind})
		cmds = append(cmds, msgCmd(SignInRequired{Action: msg.kind, ItemID: msg.itemID}))
	}
	return tea.Batch(cmds...)
}

func msgCmd(m tea.Msg) tea.Cmd {
	return func() tea.Msg { return m }
}

// ToggleUpvote flips the viewer's upvote on id.
func (s *Session) ToggleUpvote(id string) tea.Cmd {
	it, ok := s.Item(id)
	if !ok {
		return nil
	}
	prevFlag, prevCount := it.HasUpvoted, it.UpvotesCount
	delta := 1
	if prevFlag {
		delta = -1
	}
	return optimistic(s, Mutation[api.UpvoteResult]{
		Kind:   "upvote",
		ItemID: id,
		Apply: func() {
			s.update(id, func(it *Item) {
				it.HasUpvoted = !prevFlag
				it.UpvotesCount = max(0, prevCount+delta)
			})
		},
		Call: func(ctx context.Context) (api.UpvoteResult, error) {
			return s.backend.ToggleUpvote(ctx, id)
		},
		Reconcile: func(r api.UpvoteResult) {
			flag, hasFlag, count, hasCount := r.State()
			s.update(id, func(it *Item) {
				if hasFlag {
					it.HasUpvoted = flag
				}
				if hasCount {
					it.UpvotesCount = max(0, count)
				}
			})
		},
		Rollback: func() {
			s.update(id, func(it *Item) {
				it.HasUpvoted = prevFlag
				it.UpvotesCount = prevCount
			})
		},
	})
}

// ToggleBookmark flips the viewer's bookmark on id.
func (s *Session) ToggleBookmark(id string) tea.Cmd {
	it, ok := s.Item(id)
	if !ok {
		return nil
	}
	prevFlag, prevCount := it.HasBookmarked, it.BookmarksCount
	delta := 1
	if prevFlag {
		delta = -1
	}
	return optimistic(s, Mutation[api.BookmarkResult]{
		Kind:   "bookmark",
		ItemID: id,
		Apply: func() {
			s.update(id, func(it *Item) {
				it.HasBookmarked = !prevFlag
				it.BookmarksCount = max(0, prevCount+delta)
			})
		},
		Call: func(ctx context.Context) (api.BookmarkResult, error) {
			return s.backend.ToggleBookmark(ctx, id)
		},
		Reconcile: func(r api.BookmarkResult) {
			flag, hasFlag, count, hasCount := r.State()
			s.update(id, func(it *Item) {
				if hasFlag {
					it.HasBookmarked = flag
				}
				if hasCount {
					it.BookmarksCount = max(0, count)
				}
			})
		},
		Rollback: func() {
			s.update(id, func(it *Item) {
				it.HasBookmarked = prevFlag
				it.BookmarksCount = prevCount
			})
		},
	})
}

// ToggleFollow follows or unfollows the author of id. The new state is
// applied to every loaded item by the same author, and rollback restores each
// of those items to its own captured value.
func (s *Session) ToggleFollow(id string) tea.Cmd {
	it, ok := s.Item(id)
	if !ok || it.AuthorID() == "" {
		return nil
	}
	authorID := it.AuthorID()
	if s.viewer != nil && string(s.viewer.ID) == authorID {
		return nil
	}
	target := !it.IsFollowingAuthor

	prev := make(map[string]bool)
	for _, other := range s.items {
		if other.AuthorID() == authorID {
			prev[other.ID] = other.IsFollowingAuthor
		}
	}

	return optimistic(s, Mutation[api.FollowResult]{
		Kind:   "follow",
		ItemID: id,
		Apply: func() {
			s.setFollowing(authorID, target)
		},
		Call: func(ctx context.Context) (api.FollowResult, error) {
			if target {
				return s.backend.Follow(ctx, authorID)
			}
			return s.backend.Unfollow(ctx, authorID)
		},
		Reconcile: func(r api.FollowResult) {
			if r.IsFollowingAuthor != nil {
				s.setFollowing(authorID, *r.IsFollowingAuthor)
			}
		},
		Rollback: func() {
			for itemID, v := range prev {
				s.update(itemID, func(it *Item) { it.IsFollowingAuthor = v })
			}
		},
	})
}

func (s *Session) setFollowing(authorID string, following bool) {
	if s.staleWrites {
		return
	}
	for i := range s.items {
		if s.items[i].AuthorID() == authorID {
			s.items[i].IsFollowingAuthor = following
		}
	}
}

// DoubleTap upvotes id unless the viewer already upvoted it. A double-tap
// never removes an upvote.
func (s *Session) DoubleTap(id string) tea.Cmd {
	it, ok := s.Item(id)
	if !ok || it.HasUpvoted {
		return nil
	}
	return s.ToggleUpvote(id)
}
