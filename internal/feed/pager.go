package feed

// PageState is the cursor manager's load state.
type PageState int

const (
	PageIdle PageState = iota
	PageLoadingReset
	PageLoadingAppend
)

func (s PageState) String() string {
	switch s {
	case PageLoadingReset:
		return "loading-reset"
	case PageLoadingAppend:
		return "loading-append"
	}
	return "idle"
}

// Pager owns the opaque cursor, the more-available flag and the single
// in-flight slot of one paginated list. Each Begin* hands out a sequence
// number; Finish only accepts the number of the request currently in flight,
// so a response that outlives Invalidate is dropped.
//
// Failures are recorded in Err and return the pager to idle without touching
// the cursor or HasMore, so the next threshold crossing retries.
type Pager struct {
	state    PageState
	cursor   string
	hasMore  bool
	disabled bool
	seq      uint64
	err      error
}

// NewPager returns an idle pager with nothing loaded.
func NewPager() *Pager {
	return &Pager{}
}

// BeginReset starts a first-page (or refresh) load. It refuses while any load
// is in flight.
func (p *Pager) BeginReset() (seq uint64, ok bool) {
	if p.state != PageIdle {
		return 0, false
	}
	p.seq++
	p.state = PageLoadingReset
	return p.seq, true
}

// BeginAppend starts a next-page load from the current cursor. It refuses
// when nothing more is available or a load is already in flight, so
// concurrent callers collapse onto one request.
func (p *Pager) BeginAppend() (cursor string, seq uint64, ok bool) {
	if p.state != PageIdle || !p.hasMore || p.disabled || p.cursor == "" {
		return "", 0, false
	}
	p.seq++
	p.state = PageLoadingAppend
	return p.cursor, p.seq, true
}

// Finish completes the in-flight load. It reports false, changing nothing,
// when seq is not the in-flight request.
func (p *Pager) Finish(seq uint64, next string, err error) bool {
	if p.state == PageIdle || seq != p.seq {
		return false
	}
	p.state = PageIdle
	if err != nil {
		p.err = err
		return true
	}
	p.err = nil
	p.cursor = next
	p.hasMore = next != "" && !p.disabled
	return true
}

// Disable turns off pagination for good (static and global-fallback lists).
func (p *Pager) Disable() {
	p.disabled = true
	p.hasMore = false
	p.cursor = ""
}

// Invalidate abandons any in-flight load and clears all state.
func (p *Pager) Invalidate() {
	p.seq++
	p.state = PageIdle
	p.cursor = ""
	p.hasMore = false
	p.disabled = false
	p.err = nil
}

func (p *Pager) State() PageState { return p.state }
func (p *Pager) Busy() bool { return p.state != PageIdle }
func (p *Pager) HasMore() bool { return p.hasMore }
func (p *Pager) Cursor() string { return p.cursor }
func (p *Pager) Disabled() bool { return p.disabled }

// Err is the most recent load failure, cleared by the next success.
func (p *Pager) Err() error { return p.err }

// NearEnd reports whether index falls in the trailing 40% of n loaded items,
// the point at which the next page is requested.
func NearEnd(index, n int) bool {
	if n <= 0 {
		return false
	}
	tail := (n*2 + 4) / 5 // ceil(0.4n)
	return index >= n-tail
}
