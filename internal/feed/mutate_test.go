package feed

import (
	"fmt"
	"testing"

	"github.com/abelbrown/sideline/internal/api"
)

func staticSession(t *testing.T, b *fakeBackend, items ...Item) *Session {
	t.Helper()
	s := NewSession(b, Options{StaticItems: items})
	run(t, s, s.Init())
	return s
}

func TestUpvoteRollbackRestoresState(t *testing.T) {
	b := newFakeBackend()
	b.upvoteErr = errBoom
	s := staticSession(t, b, Item{ID: "p", UpvotesCount: 5})

	cmd := s.ToggleUpvote("p")
	if it, _ := s.Item("p"); !it.HasUpvoted || it.UpvotesCount != 6 {
		t.Fatalf("optimistic state=%v/%d, want true/6", it.HasUpvoted, it.UpvotesCount)
	}
	host := run(t, s, cmd)
	if it, _ := s.Item("p"); it.HasUpvoted || it.UpvotesCount != 5 {
		t.Errorf("after rollback=%v/%d, want false/5", it.HasUpvoted, it.UpvotesCount)
	}
	if len(host) != 0 {
		t.Errorf("plain failure should not prompt sign-in: %v", host)
	}
	if b.upvoteCalls != 1 {
		t.Errorf("upvote calls=%d", b.upvoteCalls)
	}
}

func TestUpvoteReconcilesWithServer(t *testing.T) {
	tests := []struct {
		name      string
		result    api.UpvoteResult
		wantFlag  bool
		wantCount int
	}{
		{"empty body keeps optimistic", api.UpvoteResult{}, true, 6},
		{"server count", api.UpvoteResult{UpvotesCount: ptr(api.Count(40))}, true, 40},
		{"server disagrees", api.UpvoteResult{HasUpvoted: ptr(false), Count: ptr(api.Count(5))}, false, 5},
		{"legacy flag", api.UpvoteResult{Upvoted: ptr(true)}, true, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			b.upvoteResult = tt.result
			s := staticSession(t, b, Item{ID: "p", UpvotesCount: 5})
			run(t, s, s.ToggleUpvote("p"))
			it, _ := s.Item("p")
			if it.HasUpvoted != tt.wantFlag || it.UpvotesCount != tt.wantCount {
				t.Errorf("got %v/%d, want %v/%d", it.HasUpvoted, it.UpvotesCount, tt.wantFlag, tt.wantCount)
			}
		})
	}
}

func TestUndoUpvoteClampsAtZero(t *testing.T) {
	s := staticSession(t, newFakeBackend(), Item{ID: "p", HasUpvoted: true, UpvotesCount: 0})
	cmd := s.ToggleUpvote("p")
	if it, _ := s.Item("p"); it.HasUpvoted || it.UpvotesCount != 0 {
		t.Errorf("got %v/%d, want false/0", it.HasUpvoted, it.UpvotesCount)
	}
	run(t, s, cmd)
}

func TestUnknownItemIsNoop(t *testing.T) {
	s := staticSession(t, newFakeBackend(), Item{ID: "p"})
	if s.ToggleUpvote("nope") != nil || s.ToggleBookmark("nope") != nil || s.ToggleFollow("nope") != nil || s.DoubleTap("nope") != nil {
		t.Error("mutations on unknown ids should return nil")
	}
}

func TestBookmarkRoundTrip(t *testing.T) {
	b := newFakeBackend()
	b.bookmarkResult = api.BookmarkResult{Bookmarked: ptr(true), BookmarksCount: ptr(api.Count(9))}
	s := staticSession(t, b, Item{ID: "p", BookmarksCount: 2})

	run(t, s, s.ToggleBookmark("p"))
	if it, _ := s.Item("p"); !it.HasBookmarked || it.BookmarksCount != 9 {
		t.Errorf("after reconcile=%v/%d, want true/9", it.HasBookmarked, it.BookmarksCount)
	}

	b.bookmarkErr = errBoom
	cmd := s.ToggleBookmark("p")
	if it, _ := s.Item("p"); it.HasBookmarked || it.BookmarksCount != 8 {
		t.Errorf("optimistic unbookmark=%v/%d", it.HasBookmarked, it.BookmarksCount)
	}
	run(t, s, cmd)
	if it, _ := s.Item("p"); !it.HasBookmarked || it.BookmarksCount != 9 {
		t.Errorf("after rollback=%v/%d, want true/9", it.HasBookmarked, it.BookmarksCount)
	}
}

func authoredItems() []Item {
	u1 := &Author{ID: "u1", DisplayName: "One"}
	u2 := &Author{ID: "u2", DisplayName: "Two"}
	return []Item{
		{ID: "a", Author: u1},
		{ID: "b", Author: u2},
		{ID: "c", Author: u1, IsFollowingAuthor: true},
		{ID: "d"},
	}
}

func followState(s *Session) string {
	var out string
	for _, it := range s.Items() {
		out += fmt.Sprintf("%s=%v ", it.ID, it.IsFollowingAuthor)
	}
	return out
}

func TestFollowPropagatesAndRollsBack(t *testing.T) {
	b := newFakeBackend()
	b.followErr = errBoom
	s := staticSession(t, b, authoredItems()...)

	cmd := s.ToggleFollow("a")
	if got := followState(s); got != "a=true b=false c=true d=false " {
		t.Errorf("optimistic follow: %s", got)
	}
	run(t, s, cmd)
	if got := followState(s); got != "a=false b=false c=true d=false " {
		t.Errorf("rollback must restore each item's own value: %s", got)
	}
	if len(b.followCalls) != 1 || b.followCalls[0] != "u1" {
		t.Errorf("follow calls=%v", b.followCalls)
	}
}

func TestUnfollowFromFollowedItem(t *testing.T) {
	b := newFakeBackend()
	s := staticSession(t, b, authoredItems()...)

	run(t, s, s.ToggleFollow("c"))
	if got := followState(s); got != "a=false b=false c=false d=false " {
		t.Errorf("after unfollow: %s", got)
	}
	if len(b.unfollowCalls) != 1 || len(b.followCalls) != 0 {
		t.Errorf("follow=%v unfollow=%v", b.followCalls, b.unfollowCalls)
	}

	b.followResult = api.FollowResult{IsFollowingAuthor: ptr(false)}
	run(t, s, s.ToggleFollow("a"))
	if got := followState(s); got != "a=false b=false c=false d=false " {
		t.Errorf("server state should win: %s", got)
	}
}

func TestFollowSkipsSelfAndAuthorless(t *testing.T) {
	b := newFakeBackend()
	b.meErr = nil
	b.viewer = api.Viewer{ID: "u2"}
	s := staticSession(t, b, authoredItems()...)

	if s.ToggleFollow("b") != nil {
		t.Error("following yourself should be a no-op")
	}
	if s.ToggleFollow("d") != nil {
		t.Error("an item without an author cannot be followed")
	}
}

func TestUnauthorizedPromptsSignIn(t *testing.T) {
	b := newFakeBackend()
	b.upvoteErr = fmt.Errorf("upvote: %w", api.ErrUnauthorized)
	s := staticSession(t, b, Item{ID: "p", UpvotesCount: 1})

	host := run(t, s, s.ToggleUpvote("p"))
	if len(host) != 1 {
		t.Fatalf("host messages=%v, want one SignInRequired", host)
	}
	sig, ok := host[0].(SignInRequired)
	if !ok || sig.Action != "upvote" || sig.ItemID != "p" {
		t.Errorf("got %#v", host[0])
	}
	if it, _ := s.Item("p"); it.HasUpvoted || it.UpvotesCount != 1 {
		t.Errorf("unauthorized upvote not rolled back: %v/%d", it.HasUpvoted, it.UpvotesCount)
	}
}

func TestDoubleTapOnlyAdds(t *testing.T) {
	b := newFakeBackend()
	s := staticSession(t, b, Item{ID: "p"}, Item{ID: "q", HasUpvoted: true, UpvotesCount: 3})

	run(t, s, s.DoubleTap("p"))
	if it, _ := s.Item("p"); !it.HasUpvoted || it.UpvotesCount != 1 {
		t.Errorf("double-tap: %v/%d", it.HasUpvoted, it.UpvotesCount)
	}
	if s.DoubleTap("p") != nil || s.DoubleTap("q") != nil {
		t.Error("double-tap on an upvoted item must not toggle it off")
	}
	if b.upvoteCalls != 1 {
		t.Errorf("upvote calls=%d", b.upvoteCalls)
	}
}

func TestMutationAfterResetIsDiscarded(t *testing.T) {
	b := newFakeBackend()
	b.upvoteErr = errBoom
	s := staticSession(t, b, Item{ID: "p", UpvotesCount: 2})

	cmd := s.ToggleUpvote("p")
	run(t, s, s.Reset(Options{StaticItems: []Item{{ID: "p", UpvotesCount: 10}}}))
	run(t, s, cmd)

	if it, _ := s.Item("p"); it.UpvotesCount != 10 || it.HasUpvoted {
		t.Errorf("stale rollback touched the new session: %v/%d", it.HasUpvoted, it.UpvotesCount)
	}
}

func TestMutationAcrossRefreshLeavesFreshItems(t *testing.T) {
	b := newFakeBackend()
	b.pages[""] = rawPage("", "p")
	s := NewSession(b, Options{ScopeID: "g"})
	run(t, s, s.Init())

	b.upvoteErr = errBoom
	upvote := s.ToggleUpvote("p")

	fresh := rawPage("", "p")
	fresh.Items[0].HasUpvoted = ptr(true)
	fresh.Items[0].UpvotesCount = ptr(api.Count(10))
	b.pages[""] = fresh
	run(t, s, s.Refresh())
	if it, _ := s.Item("p"); !it.HasUpvoted || it.UpvotesCount != 10 {
		t.Fatalf("after refresh=%v/%d, want true/10", it.HasUpvoted, it.UpvotesCount)
	}

	run(t, s, upvote)
	if it, _ := s.Item("p"); !it.HasUpvoted || it.UpvotesCount != 10 {
		t.Errorf("stale rollback overwrote refreshed item: %v/%d", it.HasUpvoted, it.UpvotesCount)
	}

	// A mutation issued after the refresh still rolls back.
	run(t, s, s.ToggleUpvote("p"))
	if it, _ := s.Item("p"); !it.HasUpvoted || it.UpvotesCount != 10 {
		t.Errorf("current rollback=%v/%d, want true/10", it.HasUpvoted, it.UpvotesCount)
	}
}

func TestReconcileAcrossRefreshIsDropped(t *testing.T) {
	b := newFakeBackend()
	b.pages[""] = rawPage("", "p")
	s := NewSession(b, Options{ScopeID: "g"})
	run(t, s, s.Init())

	b.upvoteResult = api.UpvoteResult{HasUpvoted: ptr(true), UpvotesCount: ptr(api.Count(1))}
	upvote := s.ToggleUpvote("p")

	fresh := rawPage("", "p")
	fresh.Items[0].UpvotesCount = ptr(api.Count(7))
	b.pages[""] = fresh
	run(t, s, s.Refresh())
	run(t, s, upvote)

	if it, _ := s.Item("p"); it.UpvotesCount != 7 {
		t.Errorf("count=%d, want refreshed 7", it.UpvotesCount)
	}
}
