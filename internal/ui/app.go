package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/sideline/internal/feed"
	"github.com/abelbrown/sideline/internal/otel"
)

// Deps wires the host to its session and side effects. Only Session is
// required.
type Deps struct {
	Session *feed.Session
	Log     *otel.Logger
	Ring    *otel.RingBuffer

	// RecordView persists each newly active item. Runs off the event loop.
	RecordView func(scope string, it feed.Item) error
	// Copy puts a share link on the clipboard. Defaults to the system clipboard.
	Copy func(string) error

	Now       func() time.Time
	TapWindow time.Duration
}

type panel int

const (
	panelNone panel = iota
	panelComments
	panelEdit
	panelConfirmDelete
)

// App is the root Bubble Tea model. It owns no feed state: everything it
// shows comes from the session, and every session result is fed back
// through Session.Update.
type App struct {
	s          *feed.Session
	log        *otel.Logger
	ring       *otel.RingBuffer
	recordView func(string, feed.Item) error
	copy       func(string) error
	now        func() time.Time
	tapWindow  time.Duration

	// Render window: players exist for video items at active±1.
	players    map[string]*Player
	taps       map[string]*feed.TapGate
	expanded   map[string]bool
	lastViewed string

	panel    panel
	panelFor string
	composer textinput.Model
	editor   textinput.Model
	spinner  spinner.Model
	bar      progress.Model

	width     int
	height    int
	ready     bool
	showDebug bool
	notice    string
}

// NewApp creates the host for d.Session.
func NewApp(d Deps) *App {
	if d.Copy == nil {
		d.Copy = clipboard.WriteAll
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	composer := textinput.New()
	composer.Placeholder = "Add a comment…"
	composer.CharLimit = feed.MaxCommentLength
	composer.Cursor.SetMode(cursor.CursorStatic)

	editor := textinput.New()
	editor.Placeholder = "Caption"
	editor.CharLimit = feed.MaxCommentLength
	editor.Cursor.SetMode(cursor.CursorStatic)

	s := spinner.New()
	s.Spinner = spinner.Dot

	return &App{
		s:          d.Session,
		log:        d.Log,
		ring:       d.Ring,
		recordView: d.RecordView,
		copy:       d.Copy,
		now:        d.Now,
		tapWindow:  d.TapWindow,
		players:    make(map[string]*Player),
		taps:       make(map[string]*feed.TapGate),
		expanded:   make(map[string]bool),
		composer:   composer,
		editor:     editor,
		spinner:    s,
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

// Init starts the session and the spinner and playback clocks.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.s.Init(),
		a.sync(),
		a.spinner.Tick,
		tickPlayback(),
	)
}

func (a *App) emit(e otel.Event) {
	if a.log == nil {
		return
	}
	if e.Comp == "" {
		e.Comp = "ui"
	}
	a.log.Emit(e)
}

// Update handles messages and returns the updated model and any commands.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if otel.TraceEnabled() && (otel.TraceTicks() || !isTick(msg)) {
		a.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindMsgReceived, Msg: fmt.Sprintf("%T", msg)})
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.composer.Width = msg.Width - 8
		a.editor.Width = msg.Width - 8
		return a, nil

	case tea.FocusMsg:
		a.s.SetScreenFocused(true)
		return a, nil

	case tea.BlurMsg:
		a.s.SetScreenFocused(false)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case playbackTick:
		if p, ok := a.players[a.s.Registry().Playing()]; ok {
			p.Advance(PlaybackInterval)
		}
		return a, tickPlayback()

	case tapExpired:
		if g, ok := a.taps[msg.itemID]; ok && g.Expire(a.now()) {
			a.expanded[msg.itemID] = !a.expanded[msg.itemID]
		}
		return a, nil

	case shareDone:
		if msg.err != nil {
			a.notice = "Couldn't copy the link."
			a.emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindShare, ItemID: msg.itemID, Err: msg.err.Error()})
		} else {
			a.notice = "Link copied."
			a.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindShare, ItemID: msg.itemID})
		}
		return a, nil

	case viewRecorded:
		if msg.err != nil {
			a.emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindStoreError, Comp: "store", ItemID: msg.itemID, Err: msg.err.Error()})
		}
		return a, nil

	case feed.SignInRequired:
		a.notice = "Sign in to " + msg.Action + "."
		return a, nil

	case feed.CommentCreated:
		a.notice = "Comment posted."
		return a, nil

	case tea.KeyMsg:
		a.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindKeyPress, Msg: msg.String()})
		return a.handleKey(msg)
	}

	cmds := []tea.Cmd{a.s.Update(msg), a.sync()}
	switch a.panel {
	case panelComments:
		var cmd tea.Cmd
		a.composer, cmd = a.composer.Update(msg)
		cmds = append(cmds, cmd)
	case panelEdit:
		var cmd tea.Cmd
		a.editor, cmd = a.editor.Update(msg)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func isTick(msg tea.Msg) bool {
	switch msg.(type) {
	case spinner.TickMsg, playbackTick:
		return true
	}
	return false
}

// sync keeps players registered for video items at active±1, re-asserting
// the active item when a new player appears, and records the active item in
// the watch history when it changes.
func (a *App) sync() tea.Cmd {
	want := make(map[string]bool, 3)
	active := a.s.ActiveIndex()
	for i := active - 1; i <= active+1; i++ {
		if it, ok := a.s.ItemAt(i); ok && it.MediaType == feed.MediaVideo && it.Kind() == feed.KindMedia {
			want[it.ID] = true
		}
	}
	for id := range a.players {
		if !want[id] {
			a.s.Unregister(id)
			delete(a.players, id)
		}
	}
	added := false
	for id := range want {
		if _, ok := a.players[id]; !ok {
			p := NewPlayer(id)
			a.players[id] = p
			a.s.Register(id, p)
			added = true
		}
	}
	if added {
		a.s.Reassert()
	}

	it, ok := a.s.Active()
	if !ok || it.ID == a.lastViewed {
		return nil
	}
	a.lastViewed = it.ID
	return a.recordCmd(it)
}

func (a *App) recordCmd(it feed.Item) tea.Cmd {
	if a.recordView == nil {
		return nil
	}
	record, scope := a.recordView, a.s.ScopeID()
	return func() tea.Msg {
		return viewRecorded{itemID: it.ID, err: record(scope, it)}
	}
}

func (a *App) move(index int) tea.Cmd {
	a.notice = ""
	cmd := a.s.SetVisible(index)
	return tea.Batch(cmd, a.sync())
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.panel {
	case panelComments:
		return a, a.handleCommentsKey(msg)
	case panelEdit:
		return a, a.handleEditKey(msg)
	case panelConfirmDelete:
		return a, a.handleConfirmKey(msg)
	}

	if a.showDebug {
		if key.Matches(msg, keys.Debug) || key.Matches(msg, keys.Close) {
			a.showDebug = false
		}
		if key.Matches(msg, keys.Quit) {
			a.s.Close()
			return a, tea.Quit
		}
		return a, nil
	}

	it, hasItem := a.s.Active()
	switch {
	case key.Matches(msg, keys.Quit):
		a.s.Close()
		return a, tea.Quit
	case key.Matches(msg, keys.Down):
		return a, a.move(a.s.ActiveIndex() + 1)
	case key.Matches(msg, keys.Up):
		return a, a.move(a.s.ActiveIndex() - 1)
	case key.Matches(msg, keys.Home):
		return a, a.move(0)
	case key.Matches(msg, keys.End):
		return a, a.move(a.s.Len() - 1)
	case key.Matches(msg, keys.Refresh):
		a.notice = ""
		return a, a.s.Refresh()
	case key.Matches(msg, keys.Debug):
		a.showDebug = true
		return a, nil
	}

	if !hasItem {
		return a, nil
	}
	switch {
	case key.Matches(msg, keys.Tap):
		return a, a.tap(it.ID)
	case key.Matches(msg, keys.Upvote):
		return a, a.s.ToggleUpvote(it.ID)
	case key.Matches(msg, keys.Bookmark):
		return a, a.s.ToggleBookmark(it.ID)
	case key.Matches(msg, keys.Follow):
		return a, a.s.ToggleFollow(it.ID)
	case key.Matches(msg, keys.Share):
		return a, a.share(it.ID)
	case key.Matches(msg, keys.Comments):
		a.panel, a.panelFor = panelComments, it.ID
		a.composer.Reset()
		return a, tea.Batch(a.s.OpenComments(it.ID), a.composer.Focus())
	case key.Matches(msg, keys.Delete):
		if !a.s.CanModify(it.ID) {
			a.notice = "Only the author can delete this post."
			return a, nil
		}
		a.panel, a.panelFor = panelConfirmDelete, it.ID
		return a, nil
	case key.Matches(msg, keys.Edit):
		if !a.s.CanModify(it.ID) {
			a.notice = "Only the author can edit this post."
			return a, nil
		}
		a.panel, a.panelFor = panelEdit, it.ID
		a.editor.SetValue(it.Caption)
		return a, a.editor.Focus()
	}
	return a, nil
}

// tap feeds a media-surface tap into the item's gate. A double-tap upvotes;
// a single tap, once its window lapses, toggles the caption.
func (a *App) tap(id string) tea.Cmd {
	g, ok := a.taps[id]
	if !ok {
		g = feed.NewTapGate(a.tapWindow)
		a.taps[id] = g
	}
	now := a.now()
	switch g.Tap(now) {
	case feed.TapDouble:
		a.notice = "▲"
		return a.s.DoubleTap(id)
	case feed.TapSingleThenPending:
		a.expanded[id] = !a.expanded[id]
	}
	return tea.Tick(g.Deadline().Sub(now), func(time.Time) tea.Msg {
		return tapExpired{itemID: id}
	})
}

func (a *App) share(id string) tea.Cmd {
	link := a.s.ShareLink(id)
	if link == "" {
		return nil
	}
	copyFn := a.copy
	return func() tea.Msg {
		return shareDone{itemID: id, err: copyFn(link)}
	}
}

func (a *App) closePanel() {
	if a.panel == panelComments {
		a.s.CloseComments()
	}
	a.panel, a.panelFor = panelNone, ""
	a.composer.Blur()
	a.editor.Blur()
}

func (a *App) handleCommentsKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Close):
		a.closePanel()
		return nil
	case key.Matches(msg, keys.Submit):
		cmd := a.s.SendComment(a.composer.Value())
		if cmd != nil {
			a.composer.Reset()
		}
		return cmd
	case key.Matches(msg, keys.MoreRows):
		return a.s.LoadMoreComments()
	case msg.String() == "ctrl+c":
		a.s.Close()
		return tea.Quit
	}
	var cmd tea.Cmd
	a.composer, cmd = a.composer.Update(msg)
	return cmd
}

func (a *App) handleEditKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Close):
		a.closePanel()
		return nil
	case key.Matches(msg, keys.Submit):
		id, caption := a.panelFor, strings.TrimSpace(a.editor.Value())
		a.closePanel()
		cmd, err := a.s.EditCaption(id, caption)
		if err != nil {
			a.notice = noticeFor(err)
		}
		return cmd
	}
	var cmd tea.Cmd
	a.editor, cmd = a.editor.Update(msg)
	return cmd
}

func (a *App) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	id := a.panelFor
	a.closePanel()
	if !key.Matches(msg, keys.Confirm) {
		return nil
	}
	cmd, err := a.s.DeletePost(id)
	if err != nil {
		a.notice = noticeFor(err)
	}
	return cmd
}

func noticeFor(err error) string {
	if errors.Is(err, feed.ErrNotAuthor) {
		return "Only the author can change this post."
	}
	return err.Error()
}

// View renders the UI.
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.showDebug {
		active, _ := a.s.Active()
		return debugOverlay(a.ring, active.ID, a.now(), a.width, a.height-1) + "\n" + debugStatusBar(a.width)
	}

	var b strings.Builder
	b.WriteString(a.header())
	b.WriteString("\n")

	it, ok := a.s.Active()
	switch {
	case ok:
		b.WriteString(renderCard(cardView{
			item:     it,
			player:   a.players[it.ID],
			bar:      a.bar,
			expanded: a.expanded[it.ID],
			now:      a.now(),
			width:    a.width,
		}))
	case a.s.Phase() == feed.PhaseLoading || a.s.Phase() == feed.PhaseUninitialized:
		b.WriteString(HelpStyle.Render(a.spinner.View() + " Loading feed..."))
	case a.s.Err() != nil:
		b.WriteString(ErrorStyle.Render("Couldn't load the feed. Press r to retry."))
	default:
		b.WriteString(HelpStyle.Render("Nothing here yet."))
	}
	b.WriteString("\n")

	switch a.panel {
	case panelComments:
		if th := a.s.Thread(); th != nil {
			b.WriteString(renderComments(th, a.composer.View(), a.width, a.height/3))
			b.WriteString("\n")
		}
	case panelEdit:
		b.WriteString(PanelStyle.Render("Edit caption\n" + a.editor.View()))
		b.WriteString("\n")
	case panelConfirmDelete:
		b.WriteString(NoticeStyle.Render("Delete this post? y to confirm, any other key to cancel."))
		b.WriteString("\n")
	}

	if a.notice != "" {
		b.WriteString(NoticeStyle.Render(a.notice))
		b.WriteString("\n")
	}
	b.WriteString(a.statusBar())
	return b.String()
}

func (a *App) header() string {
	title := a.s.Title()
	if title == "" {
		title = "Sideline"
	}
	pos := ""
	if n := a.s.Len(); n > 0 {
		pos = fmt.Sprintf(" %d/%d", a.s.ActiveIndex()+1, n)
		if a.s.HasMore() {
			pos += "+"
		}
	}
	line := HeaderStyle.Render(truncate(title, a.width/2)) + StatusBarText.Render(pos)
	switch a.s.Phase() {
	case feed.PhaseRefreshing, feed.PhaseAppending:
		line += " " + a.spinner.View()
	}
	return line
}

func (a *App) statusBar() string {
	help := feedHelp()
	if a.panel == panelComments {
		help = commentsHelp()
	}
	return StatusBar.Width(a.width).Render(renderHelp(help))
}

// Accessors for tests.

func (a *App) Session() *feed.Session { return a.s }
func (a *App) Notice() string { return a.notice }
