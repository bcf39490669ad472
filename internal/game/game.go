package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/robot-arena/internal/config"
)

// ErrHistoryDisabled is returned by History when the game was created
// without WithHistory.
var ErrHistoryDisabled = errors.New("game: history recording is disabled")

// TurnEvent is published after every applied turn.
type TurnEvent struct {
	Turn    int         // turn whose actions were applied
	Records TurnRecords // outcome of that turn
	State   *State      // resulting state, numbered Turn+1
}

// Option configures a Game.
type Option func(*Game)

// WithLogger sets the logger used for agent and world faults.
func WithLogger(l *log.Logger) Option {
	return func(g *Game) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithHistory records per-player robot snapshots for every turn.
func WithHistory() Option {
	return func(g *Game) {
		g.history = NewTurnStore[[2][]HistoryEntry](g.settings.MaxTurns - 1)
	}
}

// WithTurnHook registers fn as if by OnTurn.
func WithTurnHook(fn func(TurnEvent)) Option {
	return func(g *Game) {
		g.hooks = append(g.hooks, fn)
	}
}

// Game runs one match. Turns can be driven synchronously by the caller
// (RunTurn, RunAll, ActionsOnTurn) or by a background run (Start). Either
// way only one goroutine advances the state at a time, and every turn is
// published to write-once stores that any number of readers can block on.
type Game struct {
	settings *config.Settings
	agents   [2]Agent
	logger   *log.Logger
	seed     int64

	collector *Collector
	engine    *Engine
	recorder  *Recorder

	// runSem is the exclusive run lock: whoever holds it advances turns.
	runSem  chan struct{}
	current atomic.Pointer[State]

	states  *TurnStore[*State]
	actions *TurnStore[TurnRecords]
	history *TurnStore[[2][]HistoryEntry]

	terminalOnce sync.Once

	hookMu sync.Mutex
	hooks  []func(TurnEvent)

	done     chan struct{}
	doneOnce sync.Once
	errMu    sync.Mutex
	err      error
}

// New creates a game starting from initial, which must be turn 0.
// settings must already be validated and are not copied.
func New(settings *config.Settings, world WorldModel, initial *State, agents [2]Agent, opts ...Option) (*Game, error) {
	if settings == nil || world == nil {
		return nil, errors.New("game: settings and world model are required")
	}
	if initial == nil || initial.Turn() != 0 {
		return nil, fmt.Errorf("%w: initial state must be turn 0", ErrTurnSequence)
	}

	seed := settings.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &Game{
		settings: settings,
		agents:   agents,
		logger:   log.New(io.Discard),
		seed:     seed,
		recorder: NewRecorder(settings),
		runSem:   make(chan struct{}, 1),
		states:   NewTurnStore[*State](settings.MaxTurns),
		actions:  NewTurnStore[TurnRecords](settings.MaxTurns),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.collector = NewCollector(settings, world, seed, g.logger)
	g.engine = NewEngine(world, seed)

	g.current.Store(initial)
	if err := g.states.Write(0, initial); err != nil {
		return nil, err
	}
	return g, nil
}

// Seed returns the seed the match was started with.
func (g *Game) Seed() int64 {
	return g.seed
}

// Settings returns the match settings.
func (g *Game) Settings() *config.Settings {
	return g.settings
}

// Current returns the latest state. It may be stale by the time it is used
// while a run is active; use State for a specific turn.
func (g *Game) Current() *State {
	return g.current.Load()
}

// Over reports whether the last turn has been played.
func (g *Game) Over() bool {
	return g.current.Load().Turn() >= g.settings.MaxTurns
}

// Faults returns the number of agent faults per player so far.
func (g *Game) Faults() [2]int {
	return g.collector.Faults()
}

// OnTurn registers fn to be called by the producer after each turn has
// been published. fn runs on the producing goroutine and must not block
// for long.
func (g *Game) OnTurn(fn func(TurnEvent)) {
	g.hookMu.Lock()
	defer g.hookMu.Unlock()
	g.hooks = append(g.hooks, fn)
}

// RunTurn plays a single turn. It refuses with ErrAlreadyRunning while
// another run holds the run lock, and does nothing once the game is over.
func (g *Game) RunTurn(ctx context.Context) error {
	select {
	case g.runSem <- struct{}{}:
	default:
		return ErrAlreadyRunning
	}
	defer func() { <-g.runSem }()
	return g.runUntil(ctx, g.current.Load().Turn(), false)
}

// RunAll plays every remaining turn, or waits for a background run to do
// so, and returns the run's outcome.
func (g *Game) RunAll(ctx context.Context) error {
	if err := g.ensure(ctx, g.settings.MaxTurns); err != nil {
		return err
	}
	return g.Err()
}

// Scores runs the game to the end and returns each player's robot count.
func (g *Game) Scores(ctx context.Context) ([2]int, error) {
	if err := g.RunAll(ctx); err != nil {
		return [2]int{}, err
	}
	return g.current.Load().Scores(), nil
}

// ActionsOnTurn returns the records of turn, blocking until it has been
// played. Turns outside [0, MaxTurns] are clamped. Turn MaxTurns is the
// idle turn after the last one. Without a background run the caller plays
// the missing turns itself.
func (g *Game) ActionsOnTurn(ctx context.Context, turn int) (TurnRecords, error) {
	turn = g.clamp(turn)
	if err := g.ensure(ctx, turn); err != nil {
		return nil, err
	}
	return g.actions.Read(ctx, turn)
}

// State returns the state at the start of turn, blocking like
// ActionsOnTurn.
func (g *Game) State(ctx context.Context, turn int) (*State, error) {
	turn = g.clamp(turn)
	if turn > 0 {
		if err := g.ensure(ctx, turn-1); err != nil {
			return nil, err
		}
	}
	return g.states.Read(ctx, turn)
}

// History returns both players' robot snapshots for turn, blocking like
// ActionsOnTurn. The last turn with history is MaxTurns-1.
func (g *Game) History(ctx context.Context, turn int) ([2][]HistoryEntry, error) {
	if g.history == nil {
		return [2][]HistoryEntry{}, ErrHistoryDisabled
	}
	turn = min(g.clamp(turn), g.history.MaxTurn())
	if err := g.ensure(ctx, turn); err != nil {
		return [2][]HistoryEntry{}, err
	}
	return g.history.Read(ctx, turn)
}

func (g *Game) clamp(turn int) int {
	return min(max(turn, 0), g.settings.MaxTurns)
}

// ensure makes sure the records of turn get produced: by waiting for the
// run that holds the lock, or by taking the lock and playing the turns.
func (g *Game) ensure(ctx context.Context, turn int) error {
	select {
	case <-g.actions.Done(turn):
		return nil
	case g.runSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-g.runSem }()
	if g.Err() != nil {
		// The store read reports the failure.
		return nil
	}
	return g.runUntil(ctx, turn, false)
}

func (g *Game) notify(ev TurnEvent) {
	g.hookMu.Lock()
	hooks := slices.Clone(g.hooks)
	g.hookMu.Unlock()
	for _, fn := range hooks {
		fn(ev)
	}
}
