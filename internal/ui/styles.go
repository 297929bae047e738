package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorWarn      = lipgloss.Color("214") // Orange
)

// HeaderStyle is the feed title line.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// CardStyle frames the active item.
var CardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(1, 2)

// AuthorStyle for the author line.
var AuthorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)

// FollowingBadge marks authors the viewer follows.
var FollowingBadge = lipgloss.NewStyle().
	Foreground(colorSuccess).
	Padding(0, 1)

// MediaStyle for the media placeholder line.
var MediaStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// CaptionStyle for captions.
var CaptionStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("252"))

// CountStyle for the counters row; ActiveCount when the viewer has acted.
var (
	CountStyle  = lipgloss.NewStyle().Foreground(colorSecondary)
	ActiveCount = lipgloss.NewStyle().Foreground(colorHighlight).Bold(true)
)

// PanelStyle frames the comments panel and the editor.
var PanelStyle = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder()).
	BorderForeground(colorMuted).
	Padding(0, 1)

// PendingComment dims optimistic comments.
var PendingComment = lipgloss.NewStyle().
	Foreground(colorMuted).
	Italic(true)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// NoticeStyle for transient status messages.
var NoticeStyle = lipgloss.NewStyle().
	Foreground(colorWarn).
	Padding(0, 1)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true).
	Padding(0, 1)

// HelpStyle for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// DebugPanel frames the debug overlay.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorHighlight).
	Padding(1, 1)

// DebugHeaderStyle for section headers in the debug overlay.
var DebugHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)
