// Command sideline is a terminal client for the VarsityHub feed.
//
// Usage:
//
//	sideline                        Discover feed (global highlights)
//	sideline game <id>              A game's posts, newest pages loaded on demand
//	sideline profile <user-id>      A user's posts as a fixed list
//	sideline history [--play]       Recently watched posts
//	sideline events                 JSONL event log viewer
package main

import (
	"fmt"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const usage = `sideline: vertical highlights feed in your terminal

Usage:
  sideline <command> [flags]

Commands:
  discover    Global highlights feed (default)
  game        A game's posts: sideline game <game-id>
  profile     A user's posts: sideline profile <user-id> [--start N]
  history     Recently watched posts (--play to watch them again)
  events      JSONL event log viewer

Environment:
  SIDELINE_API_URL       Backend base URL (default http://localhost:4000)
  SIDELINE_TOKEN         Bearer token for personalized actions
  SIDELINE_COUNTRY       ISO country code for the discover feed
  SIDELINE_METRICS_ADDR  Serve Prometheus metrics on host:port

Config is read from ~/.sideline/config.json and a .env file in the
working directory. Run 'sideline <command> -h' for command-specific help.
`

func main() {
	cmd := "discover"
	if len(os.Args) >= 2 {
		cmd = os.Args[1]
		// Strip the program name + subcommand so flag sets see only their flags
		os.Args = os.Args[1:]
	}

	switch cmd {
	case "discover":
		runDiscover()
	case "game":
		runGame()
	case "profile":
		runProfile()
	case "history":
		runHistory()
	case "events":
		runEvents()
	case "-h", "--help", "help":
		fmt.Print(usage)
	case "version", "--version":
		fmt.Println("sideline", version)
	default:
		fmt.Fprintf(os.Stderr, "sideline: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
