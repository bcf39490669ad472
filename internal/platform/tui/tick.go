// Package tui provides the Bubble Tea match viewer, locally and over SSH.
// The viewer is a plain reader of a game: it asks for one turn at a time
// and blocks inside a command until that turn has been played.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TickMsg advances autoplay by one turn.
type TickMsg time.Time

// tickCmd returns a Bubble Tea command that sends one tick after interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
