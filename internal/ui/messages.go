// Package ui is the Bubble Tea host screen for a feed session: one card at a
// time, terminal player handles, the comments panel and the debug overlay.
package ui

import "time"

// tapExpired fires at a tap gate's deadline.
type tapExpired struct {
	itemID string
}

// playbackTick advances the playing terminal player.
type playbackTick time.Time

// shareDone reports the clipboard copy of a share link.
type shareDone struct {
	itemID string
	err    error
}

// viewRecorded reports a watch-history write.
type viewRecorded struct {
	itemID string
	err    error
}
