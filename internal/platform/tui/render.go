package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/robot-arena/internal/config"
	"github.com/vovakirdan/robot-arena/internal/core"
	"github.com/vovakirdan/robot-arena/internal/game"
)

// cellWidth is the number of screen columns per board square.
const cellWidth = 3

// colorStyles maps core.Color to lipgloss styles.
var colorStyles = map[core.Color]lipgloss.Style{
	core.ColorDefault:     lipgloss.NewStyle(),
	core.ColorRed:         lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	core.ColorGreen:       lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	core.ColorYellow:      lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	core.ColorBlue:        lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	core.ColorGray:        lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	core.ColorBrightRed:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	core.ColorBrightBlue:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
	core.ColorBrightWhite: lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
}

// RenderScreen converts a Screen buffer to a styled string for display.
// Groups adjacent cells with the same color to minimize ANSI escape sequences.
func RenderScreen(s *core.Screen) string {
	var sb strings.Builder
	sb.Grow(s.Width()*s.Height()*2 + s.Height())

	for y := range s.Height() {
		if y > 0 {
			sb.WriteRune('\n')
		}

		x := 0
		for x < s.Width() {
			startColor := s.GetCell(x, y).Color

			var run strings.Builder
			for x < s.Width() {
				cell := s.GetCell(x, y)
				if cell.Color != startColor {
					break
				}
				run.WriteRune(cell.Rune)
				x++
			}

			style, ok := colorStyles[startColor]
			if !ok {
				style = colorStyles[core.ColorDefault]
			}
			sb.WriteString(style.Render(run.String()))
		}
	}
	return sb.String()
}

// newBoardScreen returns a screen sized for the map.
func newBoardScreen(m *config.Map) *core.Screen {
	return core.NewScreen(m.Size*cellWidth, m.Size)
}

// drawBoard draws the map and the robots as they stood at the start of
// the turn. Robots show their hp; robots that died during the turn are
// drawn bright. Spawn records describe robots of the next turn and are
// skipped.
func drawBoard(s *core.Screen, m *config.Map, records game.TurnRecords) {
	s.Clear()
	for y := range m.Size {
		for x := range m.Size {
			l := core.L(x, y)
			switch {
			case m.IsObstacle(l):
				s.DrawText(x*cellWidth, y, "░░░", core.ColorGray)
			case m.IsSpawn(l):
				s.DrawText(x*cellWidth, y, " + ", core.ColorYellow)
			default:
				s.DrawText(x*cellWidth, y, " · ", core.ColorGray)
			}
		}
	}
	for _, r := range records {
		if r.Name == game.RecordSpawn {
			continue
		}
		c := core.PlayerColor(r.Player)
		if !r.Survived() {
			c = dyingColor(r.Player)
		}
		s.DrawText(r.Loc.X*cellWidth, r.Loc.Y, fmt.Sprintf("%3d", min(r.HP, 999)), c)
	}
}

func dyingColor(p core.PlayerID) core.Color {
	if p == core.Player1 {
		return core.ColorBrightRed
	}
	return core.ColorBrightBlue
}

// countRobots returns the robots per player at the start of the turn.
func countRobots(records game.TurnRecords) [2]int {
	var n [2]int
	for _, r := range records {
		if r.Name != game.RecordSpawn && r.Player.Valid() {
			n[r.Player]++
		}
	}
	return n
}
