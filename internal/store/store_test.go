package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/abelbrown/sideline/internal/feed"
)

func openTest(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return clock }
	return st, &clock
}

func TestOpen(t *testing.T) {
	st, _ := openTest(t)

	var name string
	err := st.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='views'").Scan(&name)
	if err != nil {
		t.Fatalf("views table not created: %v", err)
	}
	if name != "views" {
		t.Errorf("expected table name 'views', got %q", name)
	}
}

func TestRecordViewRoundTrip(t *testing.T) {
	st, _ := openTest(t)

	it := feed.Item{
		ID:        "p1",
		MediaURL:  "https://cdn.example.com/p1.mp4",
		MediaType: feed.MediaVideo,
		Caption:   "Buzzer beater",
		Author:    &feed.Author{ID: "u1", DisplayName: "Coach"},
	}
	if err := st.RecordView("game-9", it); err != nil {
		t.Fatalf("RecordView: %v", err)
	}

	views, err := st.RecentViews(10)
	if err != nil {
		t.Fatalf("RecentViews: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}
	v := views[0]
	if v.Scope != "game-9" || v.Count != 1 {
		t.Errorf("scope=%q count=%d", v.Scope, v.Count)
	}
	if v.Item.ID != "p1" || v.Item.MediaType != feed.MediaVideo || v.Item.Caption != "Buzzer beater" {
		t.Errorf("item=%+v", v.Item)
	}
	if v.Item.Author == nil || v.Item.Author.ID != "u1" || v.Item.Author.DisplayName != "Coach" {
		t.Errorf("author=%+v", v.Item.Author)
	}
}

func TestRecordViewRepeat(t *testing.T) {
	st, clock := openTest(t)
	first := *clock

	st.RecordView("", feed.Item{ID: "p1", Caption: "old"})
	*clock = clock.Add(time.Hour)
	if err := st.RecordView("g2", feed.Item{ID: "p1", Caption: "new"}); err != nil {
		t.Fatalf("RecordView: %v", err)
	}

	views, _ := st.RecentViews(10)
	if len(views) != 1 {
		t.Fatalf("repeat view created a second row: %d", len(views))
	}
	v := views[0]
	if v.Count != 2 || v.Item.Caption != "new" || v.Scope != "g2" {
		t.Errorf("count=%d caption=%q scope=%q", v.Count, v.Item.Caption, v.Scope)
	}
	if !v.FirstSeen.Equal(first) || !v.LastSeen.Equal(first.Add(time.Hour)) {
		t.Errorf("first=%v last=%v", v.FirstSeen, v.LastSeen)
	}
	if v.Item.Author != nil {
		t.Errorf("author-less item got author %+v", v.Item.Author)
	}
}

func TestRecordViewEmptyID(t *testing.T) {
	st, _ := openTest(t)
	if err := st.RecordView("", feed.Item{}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestRecentViewsOrderAndLimit(t *testing.T) {
	st, clock := openTest(t)
	for _, id := range []string{"a", "b", "c", "d"} {
		st.RecordView("", feed.Item{ID: id})
		*clock = clock.Add(time.Minute)
	}
	st.RecordView("", feed.Item{ID: "b"})

	views, err := st.RecentViews(3)
	if err != nil {
		t.Fatalf("RecentViews: %v", err)
	}
	var got []string
	for _, v := range views {
		got = append(got, v.Item.ID)
	}
	if fmt.Sprint(got) != "[b d c]" {
		t.Errorf("order=%v, want [b d c]", got)
	}

	if views, _ := st.RecentViews(0); len(views) != 0 {
		t.Errorf("limit 0 returned %d views", len(views))
	}
}

func TestItems(t *testing.T) {
	views := []View{{Item: feed.Item{ID: "x"}}, {Item: feed.Item{ID: "y"}}}
	items := Items(views)
	if len(items) != 2 || items[0].ID != "x" || items[1].ID != "y" {
		t.Errorf("Items=%+v", items)
	}
}

func TestPruneBefore(t *testing.T) {
	st, clock := openTest(t)
	start := *clock
	st.RecordView("", feed.Item{ID: "old"})
	*clock = clock.Add(48 * time.Hour)
	st.RecordView("", feed.Item{ID: "new"})

	n, err := st.PruneBefore(start.Add(24 * time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}
	views, _ := st.RecentViews(10)
	if len(views) != 1 || views[0].Item.ID != "new" {
		t.Errorf("remaining=%+v", views)
	}
}

func TestConcurrentAccess(t *testing.T) {
	st, _ := openTest(t)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if err := st.RecordView("", feed.Item{ID: fmt.Sprintf("p%d", i%5)}); err != nil {
				errs <- err
			}
		}(i)
		go func() {
			defer wg.Done()
			if _, err := st.RecentViews(5); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent op failed: %v", err)
	}

	views, _ := st.RecentViews(10)
	total := 0
	for _, v := range views {
		total += v.Count
	}
	if len(views) != 5 || total != 20 {
		t.Errorf("views=%d total=%d, want 5/20", len(views), total)
	}
}

func TestCreateTablesIdempotent(t *testing.T) {
	st, _ := openTest(t)
	st.RecordView("", feed.Item{ID: "keep"})
	if err := st.createTables(); err != nil {
		t.Fatalf("second createTables: %v", err)
	}
	if views, _ := st.RecentViews(1); len(views) != 1 {
		t.Error("createTables dropped data")
	}
}

func TestRecordViewKeepsCollage(t *testing.T) {
	st, _ := openTest(t)

	it := feed.Item{ID: "c1", MediaURL: "https://cdn.example.com/c1.jpg", MediaType: feed.MediaImage, Collage: true}
	if err := st.RecordView("", it); err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	st.RecordView("", feed.Item{ID: "p1", MediaURL: "https://cdn.example.com/p1.jpg", MediaType: feed.MediaImage})

	views, err := st.RecentViews(10)
	if err != nil {
		t.Fatalf("RecentViews: %v", err)
	}
	got := map[string]feed.Item{}
	for _, v := range views {
		got[v.Item.ID] = v.Item
	}
	if !got["c1"].Collage || got["c1"].Kind() != feed.KindCollage {
		t.Errorf("collage lost: %+v", got["c1"])
	}
	if got["p1"].Collage {
		t.Errorf("plain image stored as collage: %+v", got["p1"])
	}
}

func TestOpenAddsCollageColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	old, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = old.Exec(`
		CREATE TABLE views (
			item_id TEXT PRIMARY KEY,
			scope TEXT NOT NULL DEFAULT '',
			media_url TEXT NOT NULL DEFAULT '',
			media_type TEXT NOT NULL DEFAULT '',
			caption TEXT NOT NULL DEFAULT '',
			author_id TEXT NOT NULL DEFAULT '',
			author_name TEXT NOT NULL DEFAULT '',
			first_seen DATETIME NOT NULL,
			last_seen DATETIME NOT NULL,
			view_count INTEGER NOT NULL DEFAULT 1
		)
	`)
	if err == nil {
		seen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		_, err = old.Exec("INSERT INTO views (item_id, first_seen, last_seen) VALUES ('legacy', ?, ?)", seen, seen)
	}
	old.Close()
	if err != nil {
		t.Fatalf("seed old schema: %v", err)
	}

	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open old database: %v", err)
	}
	defer st.Close()

	if err := st.RecordView("", feed.Item{ID: "new", Collage: true}); err != nil {
		t.Fatalf("RecordView after upgrade: %v", err)
	}
	views, err := st.RecentViews(10)
	if err != nil || len(views) != 2 {
		t.Fatalf("views=%d err=%v", len(views), err)
	}
	for _, v := range views {
		if v.Item.Collage != (v.Item.ID == "new") {
			t.Errorf("%s collage=%v", v.Item.ID, v.Item.Collage)
		}
	}
}
