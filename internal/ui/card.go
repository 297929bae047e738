package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/abelbrown/sideline/internal/feed"
)

// collapsedCaptionLines is how many lines a caption shows until tapped.
const collapsedCaptionLines = 2

// cardView is everything renderCard needs for one item.
type cardView struct {
	item     feed.Item
	player   *Player // nil for non-video items
	bar      progress.Model
	expanded bool
	now      time.Time
	width    int
}

// renderCard renders the active item. Pure function.
func renderCard(c cardView) string {
	inner := c.width - CardStyle.GetHorizontalFrameSize()
	if inner < 20 {
		inner = 20
	}
	it := c.item
	var lines []string

	author := "Unknown"
	if it.Author != nil && it.Author.DisplayName != "" {
		author = it.Author.DisplayName
	}
	head := AuthorStyle.Render(truncate(author, inner/2))
	if it.IsFollowingAuthor {
		head += FollowingBadge.Render("following")
	}
	if it.CreatedAt != nil {
		head += CountStyle.Render("  " + timeAgo(*it.CreatedAt, c.now))
	}
	lines = append(lines, head, "")

	if media := renderMedia(c, inner); media != "" {
		lines = append(lines, media, "")
	}

	if it.Caption != "" {
		lines = append(lines, renderCaption(it.Caption, inner, c.expanded))
		lines = append(lines, "")
	}

	lines = append(lines, renderCounts(it))
	return CardStyle.Width(c.width - CardStyle.GetHorizontalBorderSize()).Render(strings.Join(lines, "\n"))
}

func renderMedia(c cardView, width int) string {
	it := c.item
	switch it.Kind() {
	case feed.KindTextOnly:
		return ""
	case feed.KindCollage:
		return MediaStyle.Render("▦ collage  " + truncate(it.MediaURL, width-14))
	}
	if it.MediaType != feed.MediaVideo {
		return MediaStyle.Render("▣ image  " + truncate(it.MediaURL, width-12))
	}
	state := "❚❚ paused"
	if c.player != nil && c.player.Playing() {
		state = "▶ playing"
	}
	line := MediaStyle.Render(state + "  " + truncate(it.MediaURL, width-16))
	if c.player == nil {
		return line
	}
	bar := c.bar
	bar.Width = width
	return line + "\n" + bar.ViewAs(c.player.Fraction())
}

// renderCaption shows the whole caption wrapped when expanded, else the
// first collapsedCaptionLines of it.
func renderCaption(caption string, width int, expanded bool) string {
	wrapped := lipgloss.NewStyle().Width(width).Render(caption)
	if expanded {
		return CaptionStyle.Render(wrapped)
	}
	rows := strings.Split(wrapped, "\n")
	if len(rows) > collapsedCaptionLines {
		rows = rows[:collapsedCaptionLines]
		const more = " …more"
		last := runewidth.Truncate(strings.TrimRight(rows[len(rows)-1], " "), width-runewidth.StringWidth(more), "")
		rows[len(rows)-1] = last + more
	}
	return CaptionStyle.Render(strings.Join(rows, "\n"))
}

func renderCounts(it feed.Item) string {
	count := func(symbol string, n int, on bool) string {
		s := fmt.Sprintf("%s %d", symbol, n)
		if on {
			return ActiveCount.Render(s)
		}
		return CountStyle.Render(s)
	}
	return strings.Join([]string{
		count("▲", it.UpvotesCount, it.HasUpvoted),
		count("✎", it.CommentsCount, false),
		count("★", it.BookmarksCount, it.HasBookmarked),
	}, "   ")
}

// renderComments draws the open thread and its composer.
func renderComments(th *feed.Thread, composer string, width, maxRows int) string {
	inner := width - PanelStyle.GetHorizontalFrameSize()
	if inner < 20 {
		inner = 20
	}
	lines := []string{DebugHeaderStyle.Render("Comments")}

	comments := th.Comments()
	if len(comments) == 0 && !th.Loading() {
		lines = append(lines, CountStyle.Render("No comments yet."))
	}
	for i, c := range comments {
		if maxRows > 0 && i >= maxRows {
			lines = append(lines, CountStyle.Render(fmt.Sprintf("… %d more", len(comments)-i)))
			break
		}
		name := "Someone"
		if c.Author != nil && c.Author.DisplayName != "" {
			name = c.Author.DisplayName
		}
		row := truncate(name+": "+c.Content, inner)
		if c.Optimistic {
			row = PendingComment.Render(row)
		}
		lines = append(lines, row)
	}

	switch {
	case th.Loading():
		lines = append(lines, CountStyle.Render("Loading…"))
	case th.HasMore():
		lines = append(lines, CountStyle.Render("pgdn for more"))
	}
	if err := th.Err(); err != nil {
		lines = append(lines, ErrorStyle.Render(err.Error()))
	}
	lines = append(lines, "", composer)
	return PanelStyle.Width(width - PanelStyle.GetHorizontalBorderSize()).Render(strings.Join(lines, "\n"))
}

// renderHelp joins key hints for the status bar.
func renderHelp(bindings []key.Binding) string {
	var parts []string
	for _, b := range bindings {
		h := b.Help()
		if h.Key == "" {
			continue
		}
		parts = append(parts, StatusBarKey.Render(h.Key)+StatusBarText.Render(":"+h.Desc))
	}
	return strings.Join(parts, " ")
}

// truncate shortens s to width terminal cells.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

func timeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
	return t.Format("Jan 2")
}
