package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/abelbrown/sideline/internal/feed"
	"github.com/abelbrown/sideline/internal/store"
)

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Number of recent posts")
	play := fs.Bool("play", false, "Open the posts as a feed")
	fs.Parse(os.Args[1:])

	st := openHistory()
	views, items := historyItems(st, *limit)

	if !*play {
		st.Close()
		if len(views) == 0 {
			fmt.Println("No watch history yet.")
			return
		}
		fmt.Printf("%-16s %5s  %-12s %-18s %s\n", "LAST SEEN", "VIEWS", "POST", "AUTHOR", "CAPTION")
		for _, v := range views {
			author := ""
			if v.Item.Author != nil {
				author = v.Item.Author.DisplayName
			}
			caption := strings.ReplaceAll(v.Item.Caption, "\n", " ")
			fmt.Printf("%-16s %5d  %-12s %s %s\n",
				v.LastSeen.Local().Format("Jan 02 15:04"),
				v.Count,
				runewidth.Truncate(v.Item.ID, 12, "…"),
				runewidth.FillRight(runewidth.Truncate(author, 18, "…"), 18),
				runewidth.Truncate(caption, 40, "…"),
			)
		}
		return
	}

	// runTUI reopens the store for recording.
	st.Close()
	if len(items) == 0 {
		fmt.Println("No watch history yet.")
		return
	}
	cfg := loadConfig()
	opts := feedOptions(cfg)
	opts.StaticItems = items
	opts.Title = "History"
	runTUI(cfg, newClient(cfg), opts)
}

// historyItems loads the most recent views as feed items.
func historyItems(st *store.Store, limit int) ([]store.View, []feed.Item) {
	views, err := st.RecentViews(limit)
	if err != nil {
		fatal("failed to read history: %v", err)
	}
	return views, store.Items(views)
}
