package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/sideline/internal/api"
	"github.com/abelbrown/sideline/internal/config"
	"github.com/abelbrown/sideline/internal/feed"
	"github.com/abelbrown/sideline/internal/logging"
	"github.com/abelbrown/sideline/internal/metrics"
	"github.com/abelbrown/sideline/internal/otel"
	"github.com/abelbrown/sideline/internal/ui"
)

// profileFetchLimit is how many of a user's posts the profile grid holds.
const profileFetchLimit = 50

func runDiscover() {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	country := fs.String("country", "", "ISO country code (overrides config)")
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	if *country != "" {
		cfg.Country = strings.ToUpper(*country)
	}
	runTUI(cfg, newClient(cfg), feedOptions(cfg))
}

func runGame() {
	fs := flag.NewFlagSet("game", flag.ExitOnError)
	title := fs.String("title", "", "Header title (default: fetched game summary)")
	id, rest := splitPositional(os.Args[1:])
	fs.Parse(rest)
	if id == "" {
		id = fs.Arg(0)
	}
	if id == "" {
		fatal("usage: sideline game <game-id> [--title T]")
	}

	cfg := loadConfig()
	opts := feedOptions(cfg)
	opts.ScopeID = id
	opts.Title = *title
	runTUI(cfg, newClient(cfg), opts)
}

func runProfile() {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	start := fs.Int("start", 0, "Index of the post to open first")
	id, rest := splitPositional(os.Args[1:])
	fs.Parse(rest)
	if id == "" {
		id = fs.Arg(0)
	}
	if id == "" {
		fatal("usage: sideline profile <user-id> [--start N]")
	}

	cfg := loadConfig()
	client := newClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	page, err := client.UserPosts(ctx, id, api.FeedQuery{Limit: profileFetchLimit})
	cancel()
	if err != nil {
		fatal("failed to load posts for %s: %v", id, err)
	}
	items := feed.NormalizeItems(page.Items, nil)
	if len(items) == 0 {
		fmt.Println("No posts yet.")
		return
	}

	opts := feedOptions(cfg)
	opts.StaticItems = items
	opts.StartIndex = *start
	if a := items[0].Author; a != nil && a.DisplayName != "" {
		opts.Title = a.DisplayName
	}
	runTUI(cfg, client, opts)
}

// splitPositional peels a leading non-flag argument so flags may follow it.
func splitPositional(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

// runTUI wires logging, metrics and history around one feed session and
// runs the program until quit.
func runTUI(cfg *config.Config, client *api.Client, opts feed.Options) {
	if err := logging.Init(dataDir(), version); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	defer logging.Close()

	events, err := otel.OpenFile(eventLogPath(), otel.DefaultMaxLogBytes)
	if err != nil {
		logging.Warn("Event log unavailable", "error", err)
		events = otel.NewNullLogger()
	}
	ring := otel.NewRingBuffer(512)
	events.SetRingBuffer(ring)

	m := metrics.New()
	events.AddSink(m.Observe)
	if cfg.MetricsAddr != "" {
		srv, addr, err := m.Serve(cfg.MetricsAddr, func(err error) {
			logging.Error("Metrics server stopped", "error", err)
		})
		if err != nil {
			logging.Warn("Failed to serve metrics", "addr", cfg.MetricsAddr, "error", err)
		} else {
			logging.Info("Serving metrics", "addr", addr.String())
			defer srv.Close()
		}
	}

	st := openHistory()
	defer st.Close()

	opts.Logger = events
	session := feed.NewSession(client, opts)
	app := ui.NewApp(ui.Deps{
		Session:    session,
		Log:        events,
		Ring:       ring,
		RecordView: st.RecordView,
	})

	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindStartup, Comp: "main", Msg: version, Scope: opts.ScopeID})
	logging.Info("Starting UI", "mode", session.Mode(), "scope", opts.ScopeID)

	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithReportFocus())
	_, runErr := program.Run()

	session.Close()
	events.Info(otel.KindShutdown, "main", "")
	events.Close()

	if runErr != nil {
		logging.Error("Application error", "error", runErr)
		fatal("Error: %v", runErr)
	}
	logging.Info("Sideline exiting normally")
}

var _ feed.Backend = (*api.Client)(nil)
