package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit     key.Binding
	Down     key.Binding
	Up       key.Binding
	Home     key.Binding
	End      key.Binding
	Tap      key.Binding
	Upvote   key.Binding
	Bookmark key.Binding
	Follow   key.Binding
	Comments key.Binding
	Share    key.Binding
	Refresh  key.Binding
	Delete   key.Binding
	Edit     key.Binding
	Debug    key.Binding

	// Panels
	Close    key.Binding
	Submit   key.Binding
	MoreRows key.Binding
	Confirm  key.Binding
}

var keys = keyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/k", "scroll")),
	Up:       key.NewBinding(key.WithKeys("k", "up")),
	Home:     key.NewBinding(key.WithKeys("g", "home")),
	End:      key.NewBinding(key.WithKeys("G", "end")),
	Tap:      key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "tap")),
	Upvote:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upvote")),
	Bookmark: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "save")),
	Follow:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "follow")),
	Comments: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "comments")),
	Share:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "share")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Delete:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
	Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	Debug:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "debug")),

	Close:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	MoreRows: key.NewBinding(key.WithKeys("pgdown", "ctrl+n"), key.WithHelp("pgdn", "more")),
	Confirm:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
}

// feedHelp is the status bar order.
func feedHelp() []key.Binding {
	return []key.Binding{keys.Down, keys.Tap, keys.Upvote, keys.Bookmark, keys.Follow, keys.Comments, keys.Share, keys.Refresh, keys.Debug, keys.Quit}
}

func commentsHelp() []key.Binding {
	return []key.Binding{keys.Submit, keys.MoreRows, keys.Close}
}
