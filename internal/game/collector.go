package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/robot-arena/internal/config"
)

// Collector asks the agents for one action per live robot.
type Collector struct {
	settings *config.Settings
	world    WorldModel
	seed     int64
	board    *board
	logger   *log.Logger

	faults [2]atomic.Int64
}

// NewCollector creates a collector. The per-robot decision seeds of a
// turn are derived from seed and the turn number only, so collecting the
// same state twice hands out the same seeds.
func NewCollector(settings *config.Settings, world WorldModel, seed int64, logger *log.Logger) *Collector {
	return &Collector{
		settings: settings,
		world:    world,
		seed:     seed,
		board:    newBoard(&settings.Map),
		logger:   logger,
	}
}

// Collect returns an action for every robot in state, keyed by location.
// Agent failures never fail the collection: the robot guards instead and
// the fault is logged. The only error is cancellation of ctx.
func (c *Collector) Collect(ctx context.Context, state *State, agents [2]Agent) (Actions, error) {
	rng := rand.New(rand.NewSource(turnSeed(c.seed, state.Turn(), streamDecisions)))
	actions := make(Actions, state.Len())
	for _, r := range state.Robots() {
		view := newRobotView(r, c.settings, rng.Int63())
		info := newGameInfo(state, r.Player, c.settings, c.board)

		a, err := c.decide(ctx, agents[r.Player], view, info)
		if err == nil && !(a.Valid() && c.world.IsValidAction(state, r.Loc, a)) {
			err = fmt.Errorf("%w: %v from %v", ErrInvalidAction, a, r.Loc)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.fault(&AgentFault{Turn: state.Turn(), Player: r.Player, Robot: r.ID, Loc: r.Loc, Err: err})
			a = Guard()
		}
		actions[r.Loc] = a
	}
	return actions, nil
}

// Faults returns how many decisions each player has lost to faults.
func (c *Collector) Faults() [2]int {
	return [2]int{int(c.faults[0].Load()), int(c.faults[1].Load())}
}

func (c *Collector) fault(f *AgentFault) {
	c.faults[f.Player].Add(1)
	c.logger.Error("agent fault, robot guards instead",
		"turn", f.Turn, "player", f.Player, "robot", f.Robot, "loc", f.Loc, "error", f.Err)
}

type decision struct {
	action Action
	err    error
}

// decide runs one agent call on its own goroutine so that a panic or a
// hang stays contained. On timeout the goroutine is abandoned; its result
// lands in a buffered channel nobody reads.
func (c *Collector) decide(ctx context.Context, agent Agent, view RobotView, info GameInfo) (Action, error) {
	if agent == nil {
		return Action{}, errors.New("no agent for player")
	}

	dctx, cancel := ctx, context.CancelFunc(func() {})
	if c.settings.DecisionTimeout > 0 {
		dctx, cancel = context.WithTimeout(ctx, c.settings.DecisionTimeout)
	}
	defer cancel()

	out := make(chan decision, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				out <- decision{err: fmt.Errorf("%w: %v", ErrAgentPanic, p)}
			}
		}()
		a, err := agent.Decide(dctx, view, info)
		out <- decision{action: a, err: err}
	}()

	select {
	case d := <-out:
		return d.action, d.err
	case <-dctx.Done():
		if err := ctx.Err(); err != nil {
			return Action{}, err
		}
		return Action{}, fmt.Errorf("%w after %s", ErrDecisionTimeout, c.settings.DecisionTimeout.Round(time.Millisecond))
	}
}
