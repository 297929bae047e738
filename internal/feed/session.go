package feed

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/sideline/internal/api"
	"github.com/abelbrown/sideline/internal/otel"
)

// Backend is the slice of the REST API the feed consumes. *api.Client
// implements it; tests use an in-memory fake.
type Backend interface {
	Posts(ctx context.Context, q api.FeedQuery) (api.Page[api.RawItem], error)
	Highlights(ctx context.Context, q api.HighlightsQuery) (api.Highlights, error)
	ToggleUpvote(ctx context.Context, postID string) (api.UpvoteResult, error)
	ToggleBookmark(ctx context.Context, postID string) (api.BookmarkResult, error)
	Follow(ctx context.Context, userID string) (api.FollowResult, error)
	Unfollow(ctx context.Context, userID string) (api.FollowResult, error)
	Comments(ctx context.Context, postID, cursor string) (api.Page[api.RawComment], error)
	AddComment(ctx context.Context, postID, content string) (api.RawComment, error)
	DeletePost(ctx context.Context, postID string) error
	UpdatePost(ctx context.Context, postID, content string) (api.RawItem, error)
	GameSummary(ctx context.Context, gameID string) (api.GameSummary, error)
	Me(ctx context.Context) (api.Viewer, error)
}

var _ Backend = (*api.Client)(nil)

// Mode is the session's data source.
type Mode string

const (
	ModeServerPaginated Mode = "server-paginated"
	ModeStatic          Mode = "static"
	ModeGlobalFallback  Mode = "global-fallback"
)

// Phase is the session's coarse lifecycle state.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseLoading       Phase = "loading"
	PhaseReady         Phase = "ready"
	PhaseRefreshing    Phase = "refreshing"
	PhaseAppending     Phase = "appending"
)

const (
	DefaultPageSize        = 6
	DefaultSort            = "trending"
	DefaultHighlightsLimit = 40
	DefaultAppBaseURL      = "https://varsityhub.app"
	GlobalTitle            = "All Highlights"

	// VisibilityThreshold is the fraction of the viewport an item must fill
	// to become the active item.
	VisibilityThreshold = 0.8
)

// Options identify a feed. A non-nil StaticItems selects static mode; else a
// ScopeID (game id) selects the server-paginated feed; else the global
// highlights pool is shown.
type Options struct {
	ScopeID     string
	StaticItems []Item
	StartIndex  int
	Title       string

	Country string
	Lat     *float64
	Lng     *float64

	ExcludeMediaURLs []string

	PageSize        int
	Sort            string
	HighlightsLimit int
	AppBaseURL      string

	Logger *otel.Logger
	Now    func() time.Time
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.Sort == "" {
		o.Sort = DefaultSort
	}
	if o.HighlightsLimit <= 0 {
		o.HighlightsLimit = DefaultHighlightsLimit
	}
	if o.AppBaseURL == "" {
		o.AppBaseURL = DefaultAppBaseURL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Session is one instance of a feed. Items live in an ordered arena indexed
// by id; the video registry resolves media types through that index.
type Session struct {
	backend Backend
	opts    Options
	log     *otel.Logger
	now     func() time.Time

	gen         uint64
	// epoch counts item-set replacements within a generation. Item writes
	// from a mutation issued under an older epoch are dropped.
	epoch       uint64
	staleWrites bool
	mode        Mode
	initialized bool
	loadedOnce  bool
	closed      bool

	items   []Item
	index   map[string]int
	exclude ExcludeSet
	pager   *Pager
	active  int

	registry  *Registry
	thread    *Thread
	threadSeq uint64

	viewer *api.Viewer
	title  string
}

// NewSession creates a session for opts. Nothing is fetched until Init.
func NewSession(backend Backend, opts Options) *Session {
	s := &Session{backend: backend}
	s.registry = NewRegistry(s.mediaOf)
	s.start(opts)
	return s
}

func (s *Session) start(opts Options) {
	opts = opts.withDefaults()
	s.opts = opts
	s.log = opts.Logger
	s.now = opts.Now
	s.exclude = NewExcludeSet(opts.ExcludeMediaURLs)
	s.items = nil
	s.index = make(map[string]int)
	s.pager = NewPager()
	s.active = 0
	s.thread = nil
	s.initialized = false
	s.loadedOnce = false
	s.title = opts.Title

	switch {
	case opts.StaticItems != nil:
		s.mode = ModeStatic
		s.pager.Disable()
		s.seedStatic(opts.StaticItems, opts.StartIndex)
	case opts.ScopeID != "":
		s.mode = ModeServerPaginated
	default:
		s.mode = ModeGlobalFallback
		s.pager.Disable()
		if s.title == "" {
			s.title = GlobalTitle
		}
	}
}

// seedStatic loads caller items, dropping id-less, duplicate and excluded
// entries. The start index names the caller's item; if that item was
// filtered out the index is clamped to the surviving list.
func (s *Session) seedStatic(items []Item, start int) {
	var wantID string
	if len(items) > 0 {
		wantID = items[clamp(start, len(items))].ID
	}
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it.ID == "" || seen[it.ID] || s.exclude.Excludes(it) {
			continue
		}
		seen[it.ID] = true
		s.items = append(s.items, it)
	}
	s.reindex()
	s.loadedOnce = true
	if i, ok := s.index[wantID]; ok {
		s.active = i
	} else {
		s.active = clamp(start, len(s.items))
	}
}

func clamp(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (s *Session) reindex() {
	s.index = make(map[string]int, len(s.items))
	for i, it := range s.items {
		s.index[it.ID] = i
	}
}

func (s *Session) mediaOf(id string) (MediaType, bool) {
	i, ok := s.index[id]
	if !ok {
		return "", false
	}
	return s.items[i].MediaType, true
}

func (s *Session) update(id string, fn func(*Item)) {
	if s.staleWrites {
		return
	}
	if i, ok := s.index[id]; ok {
		fn(&s.items[i])
	}
}

func (s *Session) emit(e otel.Event) {
	if s.log == nil {
		return
	}
	if e.Comp == "" {
		e.Comp = "feed"
	}
	e.Gen = s.gen
	s.log.Emit(e)
}

// pageLoaded carries a finished primary-feed fetch.
type pageLoaded struct {
	gen   uint64
	seq   uint64
	reset bool
	items []Item
	next  string
	err   error
	dur   time.Duration
}

type viewerLoaded struct {
	gen    uint64
	viewer api.Viewer
	err    error
}

type titleLoaded struct {
	gen   uint64
	title string
}

type postDeleted struct {
	gen uint64
	id  string
	err error
}

type postEdited struct {
	gen     uint64
	id      string
	caption string
	err     error
}

// Init starts the first load for the current mode, plus the viewer profile
// and, for a scoped feed without a title, the game summary.
func (s *Session) Init() tea.Cmd {
	if s.initialized || s.closed {
		return nil
	}
	s.initialized = true
	s.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindFeedReset, Msg: string(s.mode), Scope: s.opts.ScopeID, Count: len(s.items)})

	cmds := []tea.Cmd{s.loadViewer()}
	switch s.mode {
	case ModeStatic:
		s.reassert()
	case ModeServerPaginated:
		cmds = append(cmds, s.loadFirst())
		if s.title == "" {
			cmds = append(cmds, s.loadTitle())
		}
	case ModeGlobalFallback:
		cmds = append(cmds, s.loadFirst())
	}
	return tea.Batch(cmds...)
}

// Update applies a message produced by one of the session's commands. Other
// messages are ignored.
func (s *Session) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case pageLoaded:
		return s.handlePage(msg)
	case mutationDone:
		return s.handleMutationDone(msg)
	case commentsLoaded:
		return s.handleComments(msg)
	case viewerLoaded:
		if msg.gen == s.gen && msg.err == nil {
			v := msg.viewer
			s.viewer = &v
		}
	case titleLoaded:
		if msg.gen == s.gen && s.title == "" && msg.title != "" {
			s.title = msg.title
		}
	case postDeleted:
		return s.handleDeleted(msg)
	case postEdited:
		return s.handleEdited(msg)
	}
	return nil
}

func (s *Session) loadViewer() tea.Cmd {
	gen, backend := s.gen, s.backend
	return func() tea.Msg {
		v, err := backend.Me(context.Background())
		return viewerLoaded{gen: gen, viewer: v, err: err}
	}
}

func (s *Session) loadTitle() tea.Cmd {
	gen, backend, scope := s.gen, s.backend, s.opts.ScopeID
	return func() tea.Msg {
		sum, err := backend.GameSummary(context.Background(), scope)
		if err != nil {
			return titleLoaded{gen: gen}
		}
		title := sum.Title
		if title == "" {
			title = "Game"
		}
		return titleLoaded{gen: gen, title: title}
	}
}

func (s *Session) loadFirst() tea.Cmd {
	seq, ok := s.pager.BeginReset()
	if !ok {
		return nil
	}
	s.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindPageStart, Scope: s.opts.ScopeID, Msg: "reset"})
	if s.mode == ModeGlobalFallback {
		return s.fetchHighlights(seq)
	}
	return s.fetchPage(seq, "", true)
}

func (s *Session) fetchPage(seq uint64, cursor string, reset bool) tea.Cmd {
	gen, backend, exclude := s.gen, s.backend, s.exclude
	q := api.FeedQuery{GameID: s.opts.ScopeID, Cursor: cursor, Limit: s.opts.PageSize, Sort: s.opts.Sort}
	return func() tea.Msg {
		start := time.Now()
		page, err := backend.Posts(context.Background(), q)
		msg := pageLoaded{gen: gen, seq: seq, reset: reset, err: err, dur: time.Since(start)}
		if err == nil {
			msg.items = exclude.Filter(NormalizeItems(page.Items, nil))
			msg.next = page.NextCursor
		}
		return msg
	}
}

// fetchHighlights merges both trending pools, national first, keeping the
// first occurrence of each id and only items that carry media.
func (s *Session) fetchHighlights(seq uint64) tea.Cmd {
	gen, backend, exclude := s.gen, s.backend, s.exclude
	q := api.HighlightsQuery{Country: s.opts.Country, Lat: s.opts.Lat, Lng: s.opts.Lng, Limit: s.opts.HighlightsLimit}
	return func() tea.Msg {
		start := time.Now()
		h, err := backend.Highlights(context.Background(), q)
		msg := pageLoaded{gen: gen, seq: seq, reset: true, err: err, dur: time.Since(start)}
		if err != nil {
			return msg
		}
		pool := append(append([]api.RawItem{}, h.NationalTop...), h.Ranked...)
		for _, it := range NormalizeItems(pool, nil) {
			if it.MediaURL == "" || exclude.Excludes(it) {
				continue
			}
			msg.items = append(msg.items, it)
		}
		return msg
	}
}

func (s *Session) handlePage(msg pageLoaded) tea.Cmd {
	if msg.gen != s.gen {
		return nil
	}
	if !s.pager.Finish(msg.seq, msg.next, msg.err) {
		return nil
	}
	if msg.err != nil {
		s.emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindPageError, Scope: s.opts.ScopeID, Err: msg.err.Error(), Dur: msg.dur})
		return nil
	}

	kind := otel.KindPageComplete
	if s.mode == ModeGlobalFallback {
		kind = otel.KindHighlights
	}
	if msg.reset {
		s.epoch++
		s.items = msg.items
		s.reindex()
		s.loadedOnce = true
		s.active = 0
		s.emit(otel.Event{Level: otel.LevelInfo, Kind: kind, Scope: s.opts.ScopeID, Count: len(msg.items), Cursor: msg.next, Dur: msg.dur})
		s.reassert()
		return s.continueShort()
	}

	added := 0
	for _, it := range msg.items {
		if _, dup := s.index[it.ID]; dup {
			continue
		}
		s.index[it.ID] = len(s.items)
		s.items = append(s.items, it)
		added++
	}
	s.emit(otel.Event{Level: otel.LevelInfo, Kind: kind, Scope: s.opts.ScopeID, Count: added, Cursor: msg.next, Dur: msg.dur, Msg: "append"})
	return s.continueShort()
}

// continueShort requests the next page when the loaded list still leaves the
// active item inside the threshold, including a page with nothing usable.
// The host never reports a scroll over an empty feed.
func (s *Session) continueShort() tea.Cmd {
	if s.mode != ModeServerPaginated || !s.pager.HasMore() {
		return nil
	}
	if len(s.items) == 0 || NearEnd(s.active, len(s.items)) {
		return s.LoadNextPage()
	}
	return nil
}

// LoadNextPage appends the next page of a server-paginated feed. It is a
// no-op without more pages or while any load is in flight.
func (s *Session) LoadNextPage() tea.Cmd {
	if s.closed || s.mode != ModeServerPaginated {
		return nil
	}
	cursor, seq, ok := s.pager.BeginAppend()
	if !ok {
		return nil
	}
	s.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindPageStart, Scope: s.opts.ScopeID, Cursor: cursor, Msg: "append"})
	return s.fetchPage(seq, cursor, false)
}

// Refresh reloads the first page, keeping the current items until the new
// page arrives. It is a no-op in static mode and while a load is in flight.
func (s *Session) Refresh() tea.Cmd {
	if s.closed || s.mode == ModeStatic || s.pager.Busy() {
		return nil
	}
	return s.loadFirst()
}

// Reset tears the session down and starts over with opts: items, cursor,
// active index and any open thread are cleared, and results still in flight
// for the previous parameters are discarded.
func (s *Session) Reset(opts Options) tea.Cmd {
	s.gen++
	s.registry.Clear()
	s.closed = false
	s.start(opts)
	return s.Init()
}

// Close pauses every handle and discards all in-flight results.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	s.registry.PauseAll()
	s.thread = nil
}

// Register attaches a rendered item's playback handle.
func (s *Session) Register(id string, h Handle) {
	s.registry.Register(id, h)
}

// Unregister detaches a handle when its item leaves the render window.
func (s *Session) Unregister(id string) {
	s.registry.Unregister(id)
}

// SetVisible makes index the active item and re-fires the registry. Near the
// end of a server-paginated feed it also returns the next-page load.
func (s *Session) SetVisible(index int) tea.Cmd {
	if s.closed || len(s.items) == 0 {
		return nil
	}
	s.active = clamp(index, len(s.items))
	s.reassert()
	if s.mode == ModeServerPaginated && NearEnd(s.active, len(s.items)) {
		return s.LoadNextPage()
	}
	return nil
}

// SetScreenFocused forwards the host's focus signal. Regaining focus
// re-asserts the active item, which resumes its video.
func (s *Session) SetScreenFocused(focused bool) {
	s.registry.SetScreenFocused(focused)
	if focused && !s.closed {
		s.reassert()
	} else {
		s.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindVideoPause, Msg: "blur"})
	}
}

// Reassert re-sends the active item to the registry, e.g. after the host
// registered handles for a new render window.
func (s *Session) Reassert() {
	if !s.closed {
		s.reassert()
	}
}

func (s *Session) reassert() {
	if len(s.items) == 0 {
		s.registry.SetActive("")
		return
	}
	s.active = clamp(s.active, len(s.items))
	id := s.items[s.active].ID
	before := s.registry.Playing()
	s.registry.SetActive(id)
	if p := s.registry.Playing(); p != "" && p != before {
		s.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindVideoPlay, ItemID: p})
	}
}

// Visibility is the fraction of the viewport occupied by an item.
type Visibility struct {
	Index    int
	Fraction float64
}

// DominantIndex returns the most visible index at or above threshold.
func DominantIndex(visible []Visibility, threshold float64) (int, bool) {
	best, bestFrac := -1, 0.0
	for _, v := range visible {
		if v.Fraction >= threshold && v.Fraction > bestFrac {
			best, bestFrac = v.Index, v.Fraction
		}
	}
	return best, best >= 0
}

// CanModify reports whether the viewer authored id.
func (s *Session) CanModify(id string) bool {
	it, ok := s.Item(id)
	return ok && s.viewer != nil && s.viewer.ID != "" && it.AuthorID() == string(s.viewer.ID)
}

// ErrNotAuthor is returned by DeletePost and EditCaption for others' posts.
var ErrNotAuthor = errors.New("feed: only the author can change this post")

// DeletePost deletes one of the viewer's posts. The item is removed once the
// server confirms.
func (s *Session) DeletePost(id string) (tea.Cmd, error) {
	if !s.CanModify(id) {
		return nil, ErrNotAuthor
	}
	gen, backend := s.gen, s.backend
	return func() tea.Msg {
		return postDeleted{gen: gen, id: id, err: backend.DeletePost(context.Background(), id)}
	}, nil
}

// EditCaption replaces the caption of one of the viewer's posts after the
// server confirms.
func (s *Session) EditCaption(id, caption string) (tea.Cmd, error) {
	if !s.CanModify(id) {
		return nil, ErrNotAuthor
	}
	gen, backend := s.gen, s.backend
	return func() tea.Msg {
		raw, err := backend.UpdatePost(context.Background(), id, caption)
		if err == nil {
			if it, ok := Normalize(raw); ok && it.ID == id && raw.Caption != nil {
				caption = it.Caption
			}
		}
		return postEdited{gen: gen, id: id, caption: caption, err: err}
	}, nil
}

func (s *Session) handleDeleted(msg postDeleted) tea.Cmd {
	if msg.gen != s.gen {
		return nil
	}
	if msg.err != nil {
		s.emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindMutationRollback, ItemID: msg.id, Msg: "delete", Err: msg.err.Error()})
		if errors.Is(msg.err, api.ErrUnauthorized) {
			return msgCmd(SignInRequired{Action: "delete", ItemID: msg.id})
		}
		return nil
	}
	i, ok := s.index[msg.id]
	if !ok {
		return nil
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.reindex()
	s.registry.Unregister(msg.id)
	if s.thread != nil && s.thread.itemID == msg.id {
		s.thread = nil
	}
	if i < s.active {
		s.active--
	}
	s.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindMutationCommit, ItemID: msg.id, Msg: "delete"})
	s.reassert()
	return nil
}

func (s *Session) handleEdited(msg postEdited) tea.Cmd {
	if msg.gen != s.gen {
		return nil
	}
	if msg.err != nil {
		s.emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindMutationRollback, ItemID: msg.id, Msg: "edit", Err: msg.err.Error()})
		if errors.Is(msg.err, api.ErrUnauthorized) {
			return msgCmd(SignInRequired{Action: "edit", ItemID: msg.id})
		}
		return nil
	}
	s.update(msg.id, func(it *Item) { it.Caption = msg.caption })
	s.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindMutationCommit, ItemID: msg.id, Msg: "edit"})
	return nil
}

// ShareLink is the deep link for id, preceded by its caption on its own
// line when there is one.
func (s *Session) ShareLink(id string) string {
	it, ok := s.Item(id)
	if !ok {
		return ""
	}
	link := strings.TrimRight(s.opts.AppBaseURL, "/") + "/posts/" + url.PathEscape(id)
	if it.Caption != "" {
		return it.Caption + "\n" + link
	}
	return link
}

// Accessors.

func (s *Session) Mode() Mode { return s.mode }
func (s *Session) Title() string { return s.title }
func (s *Session) Len() int { return len(s.items) }
func (s *Session) ActiveIndex() int { return s.active }
func (s *Session) HasMore() bool { return s.pager.HasMore() }
func (s *Session) Err() error { return s.pager.Err() }
func (s *Session) Closed() bool { return s.closed }
func (s *Session) Registry() *Registry { return s.registry }
func (s *Session) Viewer() *api.Viewer { return s.viewer }
func (s *Session) ScopeID() string { return s.opts.ScopeID }
func (s *Session) PageState() PageState { return s.pager.State() }
func (s *Session) Generation() uint64 { return s.gen }

// Items returns a copy of the loaded items in order.
func (s *Session) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Item returns a copy of the item with id.
func (s *Session) Item(id string) (Item, bool) {
	i, ok := s.index[id]
	if !ok {
		return Item{}, false
	}
	return s.items[i], true
}

// ItemAt returns a copy of the item at index.
func (s *Session) ItemAt(index int) (Item, bool) {
	if index < 0 || index >= len(s.items) {
		return Item{}, false
	}
	return s.items[index], true
}

// Active returns the active item.
func (s *Session) Active() (Item, bool) {
	return s.ItemAt(s.active)
}

// Phase derives the lifecycle state from the pager.
func (s *Session) Phase() Phase {
	switch {
	case !s.initialized:
		return PhaseUninitialized
	case s.pager.State() == PageLoadingAppend:
		return PhaseAppending
	case s.pager.State() == PageLoadingReset && s.loadedOnce:
		return PhaseRefreshing
	case s.pager.State() == PageLoadingReset:
		return PhaseLoading
	}
	return PhaseReady
}
