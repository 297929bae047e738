package feed

import "testing"

func TestPagerFirstPageThenAppend(t *testing.T) {
	p := NewPager()
	if _, _, ok := p.BeginAppend(); ok {
		t.Fatal("append before first page should be refused")
	}

	seq, ok := p.BeginReset()
	if !ok {
		t.Fatal("BeginReset refused on idle pager")
	}
	if _, ok := p.BeginReset(); ok {
		t.Error("second BeginReset while loading should be refused")
	}
	if !p.Finish(seq, "abc", nil) {
		t.Fatal("Finish rejected in-flight seq")
	}
	if !p.HasMore() || p.Cursor() != "abc" {
		t.Errorf("after first page: HasMore=%v Cursor=%q", p.HasMore(), p.Cursor())
	}

	cursor, seq2, ok := p.BeginAppend()
	if !ok || cursor != "abc" {
		t.Fatalf("BeginAppend = %q, %v", cursor, ok)
	}
	if _, _, ok := p.BeginAppend(); ok {
		t.Error("concurrent BeginAppend should collapse onto the in-flight request")
	}
	p.Finish(seq2, "", nil)
	if p.HasMore() {
		t.Error("empty next cursor should end pagination")
	}
	if _, _, ok := p.BeginAppend(); ok {
		t.Error("append after the last page should be refused")
	}
}

func TestPagerStaleFinishIgnored(t *testing.T) {
	p := NewPager()
	seq, _ := p.BeginReset()
	p.Invalidate()

	if p.Finish(seq, "zzz", nil) {
		t.Error("Finish accepted a sequence from before Invalidate")
	}
	if p.Cursor() != "" || p.Busy() {
		t.Errorf("stale finish mutated state: cursor=%q busy=%v", p.Cursor(), p.Busy())
	}
}

func TestPagerFailureKeepsCursor(t *testing.T) {
	p := NewPager()
	seq, _ := p.BeginReset()
	p.Finish(seq, "c1", nil)

	_, seq, _ = p.BeginAppend()
	if !p.Finish(seq, "", errBoom) {
		t.Fatal("Finish rejected failing response")
	}
	if p.Busy() {
		t.Error("pager should be idle after a failure")
	}
	if !p.HasMore() || p.Cursor() != "c1" {
		t.Errorf("append failure changed pagination: HasMore=%v Cursor=%q", p.HasMore(), p.Cursor())
	}
	if p.Err() != errBoom {
		t.Errorf("Err()=%v, want errBoom", p.Err())
	}

	cursor, seq, ok := p.BeginAppend()
	if !ok || cursor != "c1" {
		t.Fatal("retry after failure should reuse the cursor")
	}
	p.Finish(seq, "c2", nil)
	if p.Err() != nil {
		t.Error("success should clear Err")
	}
}

func TestPagerDisable(t *testing.T) {
	p := NewPager()
	p.Disable()
	seq, ok := p.BeginReset()
	if !ok {
		t.Fatal("a disabled pager still allows reloading the first page")
	}
	p.Finish(seq, "ignored", nil)
	if p.HasMore() {
		t.Error("disabled pager must never report more pages")
	}
	if _, _, ok := p.BeginAppend(); ok {
		t.Error("disabled pager should refuse appends")
	}
}

func TestNearEnd(t *testing.T) {
	tests := []struct {
		index, n int
		want     bool
	}{
		{0, 0, false},
		{0, 1, true},
		{5, 10, false},
		{6, 10, true},
		{9, 10, true},
		{2, 6, false},
		{3, 6, true},
	}
	for _, tt := range tests {
		if got := NearEnd(tt.index, tt.n); got != tt.want {
			t.Errorf("NearEnd(%d, %d)=%v, want %v", tt.index, tt.n, got, tt.want)
		}
	}
}
