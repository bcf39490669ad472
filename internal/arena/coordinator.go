package arena

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vovakirdan/robot-arena/internal/config"
	"github.com/vovakirdan/robot-arena/internal/game"
	"github.com/vovakirdan/robot-arena/internal/registry"
	"github.com/vovakirdan/robot-arena/internal/replay"
	"github.com/vovakirdan/robot-arena/internal/rules"
)

// ErrMatchNotFound is returned for unknown match IDs.
var ErrMatchNotFound = errors.New("arena: match not found")

// ErrStopped is returned by StartMatch after Stop.
var ErrStopped = errors.New("arena: coordinator stopped")

// CoordinatorConfig holds configuration for the coordinator.
type CoordinatorConfig struct {
	Retention     time.Duration // how long finished matches stay listed
	CleanupPeriod time.Duration // how often finished matches are pruned
	ReplayDir     string        // write a replay per match when set
	MaxActive     int           // limit on running matches, 0 for none
}

// DefaultCoordinatorConfig returns sensible defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		Retention:     10 * time.Minute,
		CleanupPeriod: 30 * time.Second,
		MaxActive:     32,
	}
}

// Coordinator starts and tracks matches.
type Coordinator struct {
	config   CoordinatorConfig
	settings *config.Settings
	logger   *log.Logger

	resultSaver MatchResultSaver // optional
	turnSaver   TurnSaver        // optional

	mu      sync.RWMutex
	matches map[MatchID]*Match
	stopped bool

	wg   sync.WaitGroup
	done chan struct{}
}

// NewCoordinator creates a coordinator whose matches start from base
// settings. base must already be validated.
func NewCoordinator(cfg CoordinatorConfig, base *config.Settings, logger *log.Logger) *Coordinator {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = DefaultCoordinatorConfig().CleanupPeriod
	}
	return &Coordinator{
		config:   cfg,
		settings: base,
		logger:   logger,
		matches:  make(map[MatchID]*Match),
		done:     make(chan struct{}),
	}
}

// SetResultSaver sets the optional match result saver.
func (c *Coordinator) SetResultSaver(saver MatchResultSaver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resultSaver = saver
}

// SetTurnSaver sets the optional per-turn saver.
func (c *Coordinator) SetTurnSaver(saver TurnSaver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turnSaver = saver
}

// Start begins pruning finished matches.
func (c *Coordinator) Start() {
	go c.cleanupLoop()
}

// Stop cancels every running match and waits for their results.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	close(c.done)
	for _, m := range c.matches {
		m.Stop()
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// StartMatch creates a match from req and starts playing it in the
// background.
func (c *Coordinator) StartMatch(req MatchRequest) (*Match, error) {
	agents, err := registry.CreatePair(req.Agent1, req.Agent2)
	if err != nil {
		return nil, fmt.Errorf("arena: %w", err)
	}

	settings := *c.settings
	if req.Seed != 0 {
		settings.Seed = req.Seed
	}
	if req.MaxTurns > 0 {
		settings.MaxTurns = req.MaxTurns
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("arena: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return nil, ErrStopped
	}
	if c.config.MaxActive > 0 && c.activeLocked() >= c.config.MaxActive {
		return nil, fmt.Errorf("arena: too many running matches (%d)", c.config.MaxActive)
	}

	id := MatchID(uuid.NewString())
	logger := c.logger.With("match", id)
	world := rules.New(&settings)
	initial, err := world.InitialState()
	if err != nil {
		return nil, fmt.Errorf("arena: %w", err)
	}

	opts := []game.Option{game.WithLogger(logger)}
	var rw *replay.Writer
	if c.config.ReplayDir != "" {
		rw, err = replay.Create(filepath.Join(c.config.ReplayDir, string(id)+".jsonl.zst"))
		if err != nil {
			return nil, fmt.Errorf("arena: %w", err)
		}
		opts = append(opts, game.WithTurnHook(rw.Hook(logger)))
	}

	g, err := game.New(&settings, world, initial, agents, opts...)
	if err != nil {
		closeReplay(rw)
		return nil, fmt.Errorf("arena: %w", err)
	}
	if rw != nil {
		err := rw.WriteHeader(replay.Header{
			MatchID:  string(id),
			Seed:     g.Seed(),
			MaxTurns: settings.MaxTurns,
			Agents:   [2]string{req.Agent1, req.Agent2},
		})
		if err != nil {
			closeReplay(rw)
			return nil, fmt.Errorf("arena: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := newMatch(id, [2]string{req.Agent1, req.Agent2}, g, cancel, logger)
	m.replay = rw
	if err := g.Start(ctx); err != nil {
		cancel()
		closeReplay(rw)
		return nil, fmt.Errorf("arena: %w", err)
	}

	c.matches[id] = m
	turns, results := c.turnSaver, c.resultSaver
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		m.run(turns, results)
	}()

	c.logger.Info("match started", "match", id, "p1", req.Agent1, "p2", req.Agent2, "seed", g.Seed())
	return m, nil
}

func closeReplay(rw *replay.Writer) {
	if rw != nil {
		_ = rw.Close()
	}
}

func (c *Coordinator) activeLocked() int {
	n := 0
	for _, m := range c.matches {
		if _, ok := m.finishedAt(); !ok {
			n++
		}
	}
	return n
}

// Subscribe attaches a session to a match.
func (c *Coordinator) Subscribe(id MatchID, s SessionHandle) error {
	m, ok := c.GetMatch(id)
	if !ok {
		return ErrMatchNotFound
	}
	m.Subscribe(s)
	return nil
}

// Unsubscribe detaches a session from a match.
func (c *Coordinator) Unsubscribe(id MatchID, sid SessionID) {
	if m, ok := c.GetMatch(id); ok {
		m.Unsubscribe(sid)
	}
}

// GetMatch returns a match by ID.
func (c *Coordinator) GetMatch(id MatchID) (*Match, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.matches[id]
	return m, ok
}

// List returns summaries of all tracked matches, newest first.
func (c *Coordinator) List() []MatchInfo {
	c.mu.RLock()
	matches := make([]*Match, 0, len(c.matches))
	for _, m := range c.matches {
		matches = append(matches, m)
	}
	c.mu.RUnlock()

	infos := make([]MatchInfo, 0, len(matches))
	for _, m := range matches {
		infos = append(infos, m.Info())
	}
	slices.SortFunc(infos, func(a, b MatchInfo) int {
		return b.Created.Compare(a.Created)
	})
	return infos
}

// MatchCount returns the number of tracked matches.
func (c *Coordinator) MatchCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.matches)
}

func (c *Coordinator) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.prune(time.Now())
		case <-c.done:
			return
		}
	}
}

// prune forgets matches that finished more than Retention ago.
func (c *Coordinator) prune(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for id, m := range c.matches {
		if at, ok := m.finishedAt(); ok && now.Sub(at) > c.config.Retention {
			delete(c.matches, id)
			n++
		}
	}
	return n
}
