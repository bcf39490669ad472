package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/robot-arena/internal/config"
	"github.com/vovakirdan/robot-arena/internal/core"
	"github.com/vovakirdan/robot-arena/internal/game"
	"github.com/vovakirdan/robot-arena/internal/logging"
	"github.com/vovakirdan/robot-arena/internal/rules"
)

func testGame(t *testing.T, maxTurns int) *game.Game {
	t.Helper()
	settings := config.DefaultSettings()
	settings.MaxTurns = maxTurns
	settings.Seed = 11
	if err := settings.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	world := rules.New(settings)
	initial, err := world.InitialState()
	if err != nil {
		t.Fatal(err)
	}
	guard := game.AgentFunc(func(context.Context, game.RobotView, game.GameInfo) (game.Action, error) {
		return game.Guard(), nil
	})
	g, err := game.New(settings, world, initial, [2]game.Agent{guard, guard}, game.WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return g
}

// step runs cmd and feeds its message back, as the Bubble Tea runtime would.
func step(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	next, _ := m.Update(cmd())
	return next.(Model)
}

func press(s string) tea.KeyMsg {
	switch s {
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestViewerLoadsFirstTurn(t *testing.T) {
	g := testGame(t, 5)
	m := NewModel(g, [2]string{"guard", "guard"})

	m = step(t, m, m.Init())
	if m.Turn() != 0 {
		t.Fatalf("turn %d, expected 0", m.Turn())
	}
	view := m.View()
	if !strings.Contains(view, "turn 0/5") {
		t.Errorf("view does not show the turn:\n%s", view)
	}
	if !strings.Contains(view, "guard vs guard") {
		t.Errorf("view does not show the agents:\n%s", view)
	}
}

func TestViewerStepping(t *testing.T) {
	g := testGame(t, 5)
	m := NewModel(g, [2]string{"a", "b"})
	m = step(t, m, m.Init())

	next, cmd := m.Update(press("right"))
	m = step(t, next.(Model), cmd)
	if m.Turn() != 1 || !m.Paused() {
		t.Errorf("after right: turn %d paused %v, expected 1 true", m.Turn(), m.Paused())
	}

	next, cmd = m.Update(press("left"))
	m = step(t, next.(Model), cmd)
	if m.Turn() != 0 {
		t.Errorf("after left: turn %d, expected 0", m.Turn())
	}

	next, cmd = m.Update(press("left"))
	m = step(t, next.(Model), cmd)
	if m.Turn() != 0 {
		t.Errorf("stepping before the first turn: turn %d, expected 0", m.Turn())
	}

	next, cmd = m.Update(press("G"))
	m = step(t, next.(Model), cmd)
	if m.Turn() != 5 {
		t.Errorf("after G: turn %d, expected 5", m.Turn())
	}
	if !strings.Contains(m.View(), "match over") {
		t.Error("last turn should show the match as over")
	}
}

func TestViewerPauseAndTick(t *testing.T) {
	g := testGame(t, 5)
	m := NewModel(g, [2]string{"a", "b"})
	m = step(t, m, m.Init())

	next, _ := m.Update(press("space"))
	m = next.(Model)
	if !m.Paused() {
		t.Fatal("space should pause")
	}
	next, cmd := m.Update(TickMsg{})
	if cmd != nil || next.(Model).Turn() != 0 {
		t.Error("a paused viewer should ignore ticks")
	}

	next, cmd = m.Update(press("space"))
	m = next.(Model)
	if m.Paused() || cmd == nil {
		t.Fatal("space should resume and schedule a tick")
	}
	next, cmd = m.Update(TickMsg{})
	m = step(t, next.(Model), cmd)
	if m.Turn() != 1 {
		t.Errorf("tick advanced to turn %d, expected 1", m.Turn())
	}
}

func TestStaleLoadIgnored(t *testing.T) {
	g := testGame(t, 5)
	m := NewModel(g, [2]string{"a", "b"})
	m = step(t, m, m.Init())

	next, _ := m.Update(press("right"))
	m = next.(Model)
	next, _ = m.Update(turnLoadedMsg{turn: 3})
	if next.(Model).Turn() != 0 {
		t.Error("a reply for a turn no longer wanted should be dropped")
	}
}

func TestDrawBoard(t *testing.T) {
	m := config.Map{Size: 5, Spawn: []core.Loc{core.L(0, 2)}, Obstacle: []core.Loc{core.L(0, 0)}}
	if err := m.Prepare(); err != nil {
		t.Fatal(err)
	}
	records := game.TurnRecords{
		core.L(2, 2): {Name: "guard", HP: 50, HPEnd: 50, Loc: core.L(2, 2), LocEnd: core.L(2, 2), Player: core.Player1},
		core.L(0, 2): {Name: game.RecordSpawn, HP: 50, HPEnd: 50, Loc: core.L(0, 2), LocEnd: core.L(0, 2), Player: core.Player2},
	}
	s := newBoardScreen(&m)
	drawBoard(s, &m, records)

	row := []rune(strings.Split(s.String(), "\n")[2])
	if got := string(row[2*cellWidth : 3*cellWidth]); got != " 50" {
		t.Errorf("robot cell %q, expected %q", got, " 50")
	}
	if s.GetCell(0, 0).Color != core.ColorGray {
		t.Error("obstacle should be gray")
	}
	if s.GetCell(1, 2).Rune != '+' {
		t.Errorf("spawn cell shows %q, spawn records are drawn next turn", s.GetCell(1, 2).Rune)
	}
	if n := countRobots(records); n != [2]int{1, 0} {
		t.Errorf("countRobots() = %v, expected [1 0]", n)
	}
}
