package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/robot-arena/internal/config"
	"github.com/vovakirdan/robot-arena/internal/core"
	"github.com/vovakirdan/robot-arena/internal/game"
)

const (
	defaultInterval = 300 * time.Millisecond
	minInterval     = 25 * time.Millisecond
	maxInterval     = 2 * time.Second
)

// TurnSource is anything the viewer can read turns from. *game.Game is
// one; reads block until the turn has been played.
type TurnSource interface {
	ActionsOnTurn(ctx context.Context, turn int) (game.TurnRecords, error)
	Settings() *config.Settings
}

// turnLoadedMsg carries the result of a blocking turn read.
type turnLoadedMsg struct {
	turn    int
	records game.TurnRecords
	err     error
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boardStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238"))
)

// Model is the Bubble Tea model of the match viewer.
type Model struct {
	src      TurnSource
	settings *config.Settings
	names    [2]string
	screen   *core.Screen
	keys     ViewerKeyMap
	help     help.Model

	ctx    context.Context
	cancel context.CancelFunc

	turn     int // turn on screen
	want     int // turn being loaded, or -1
	records  game.TurnRecords
	paused   bool
	interval time.Duration
	err      error
	quitting bool
}

// NewModel creates a viewer over src. names label P1 and P2.
func NewModel(src TurnSource, names [2]string) Model {
	ctx, cancel := context.WithCancel(context.Background())
	settings := src.Settings()
	return Model{
		src:      src,
		settings: settings,
		names:    names,
		screen:   newBoardScreen(&settings.Map),
		keys:     DefaultViewerKeyMap(),
		help:     help.New(),
		ctx:      ctx,
		cancel:   cancel,
		turn:     -1,
		want:     0,
		interval: defaultInterval,
	}
}

// Init loads the first turn.
func (m Model) Init() tea.Cmd {
	return m.read(0)
}

// load requests turn, superseding any request in flight.
func (m *Model) load(turn int) tea.Cmd {
	turn = min(max(turn, 0), m.settings.MaxTurns)
	m.want = turn
	return m.read(turn)
}

// read is a command doing the blocking read of turn.
func (m Model) read(turn int) tea.Cmd {
	src, ctx := m.src, m.ctx
	return func() tea.Msg {
		records, err := src.ActionsOnTurn(ctx, turn)
		return turnLoadedMsg{turn: turn, records: records, err: err}
	}
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case turnLoadedMsg:
		return m.handleLoaded(msg)

	case TickMsg:
		if m.paused || m.want >= 0 || m.turn >= m.settings.MaxTurns {
			return m, nil
		}
		return m, m.load(m.turn + 1)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.cancel()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused
		if !m.paused {
			return m, tickCmd(m.interval)
		}
	case key.Matches(msg, m.keys.Next):
		m.paused = true
		return m, m.load(m.turn + 1)
	case key.Matches(msg, m.keys.Prev):
		m.paused = true
		return m, m.load(m.turn - 1)
	case key.Matches(msg, m.keys.First):
		m.paused = true
		return m, m.load(0)
	case key.Matches(msg, m.keys.Last):
		m.paused = true
		return m, m.load(m.settings.MaxTurns)
	case key.Matches(msg, m.keys.Faster):
		m.interval = max(m.interval/2, minInterval)
	case key.Matches(msg, m.keys.Slower):
		m.interval = min(m.interval*2, maxInterval)
	}
	return m, nil
}

func (m Model) handleLoaded(msg turnLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.turn != m.want {
		// superseded by a later request
		return m, nil
	}
	m.want = -1
	if msg.err != nil {
		if errors.Is(msg.err, context.Canceled) && m.quitting {
			return m, nil
		}
		m.err = msg.err
		return m, nil
	}
	m.err = nil
	m.turn = msg.turn
	m.records = msg.records
	if m.paused || m.turn >= m.settings.MaxTurns {
		return m, nil
	}
	return m, tickCmd(m.interval)
}

// Turn returns the turn on screen, or -1 before the first one arrived.
func (m Model) Turn() int {
	return m.turn
}

// Paused reports whether autoplay is paused.
func (m Model) Paused() bool {
	return m.paused
}

// View renders the current state to a string for display.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	title := fmt.Sprintf("%s vs %s", m.names[0], m.names[1])
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	if m.turn >= 0 {
		drawBoard(m.screen, &m.settings.Map, m.records)
	}
	b.WriteString(boardStyle.Render(RenderScreen(m.screen)))
	b.WriteString("\n")

	scores := countRobots(m.records)
	turn := fmt.Sprintf("turn %d/%d", max(m.turn, 0), m.settings.MaxTurns)
	p1 := colorStyles[core.PlayerColor(core.Player1)].Render(fmt.Sprintf("%s %d", core.Player1, scores[0]))
	p2 := colorStyles[core.PlayerColor(core.Player2)].Render(fmt.Sprintf("%s %d", core.Player2, scores[1]))
	b.WriteString(fmt.Sprintf("%s   %s   %s", turn, p1, p2))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
	case m.want >= 0:
		b.WriteString(statusStyle.Render(fmt.Sprintf("waiting for turn %d...", m.want)))
	case m.turn >= m.settings.MaxTurns:
		b.WriteString(statusStyle.Render("match over"))
	case m.paused:
		b.WriteString(statusStyle.Render("paused"))
	default:
		b.WriteString(statusStyle.Render(fmt.Sprintf("playing, %s per turn", m.interval)))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// Run starts the Bubble Tea program with a viewer over src.
func Run(src TurnSource, names [2]string) error {
	p := tea.NewProgram(NewModel(src, names), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
