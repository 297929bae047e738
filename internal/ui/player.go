package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// PlaybackInterval is how often the playing player advances.
const PlaybackInterval = 250 * time.Millisecond

// defaultClipLength stands in for the clip duration, which the feed does not
// carry.
const defaultClipLength = 15 * time.Second

// Player is a terminal stand-in for a video surface. It implements
// feed.Handle; the registry decides when it plays. Clips loop.
type Player struct {
	id      string
	playing bool
	pos     time.Duration
	length  time.Duration
	plays   int
}

// NewPlayer returns a paused player at position zero.
func NewPlayer(id string) *Player {
	return &Player{id: id, length: defaultClipLength}
}

func (p *Player) Play() {
	if !p.playing {
		p.plays++
	}
	p.playing = true
}

func (p *Player) Pause() { p.playing = false }

func (p *Player) Playing() bool { return p.playing }

// Advance moves a playing player forward by d, wrapping at the clip end.
func (p *Player) Advance(d time.Duration) {
	if !p.playing || p.length <= 0 {
		return
	}
	p.pos = (p.pos + d) % p.length
}

// Fraction is the playback position in [0, 1).
func (p *Player) Fraction() float64 {
	if p.length <= 0 {
		return 0
	}
	return float64(p.pos) / float64(p.length)
}

func tickPlayback() tea.Cmd {
	return tea.Tick(PlaybackInterval, func(t time.Time) tea.Msg {
		return playbackTick(t)
	})
}
