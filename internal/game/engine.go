package game

import (
	"fmt"

	"github.com/vovakirdan/robot-arena/internal/core"
)

// WorldModel owns the physics of the arena: which actions are legal and
// what a full set of actions does to the board.
type WorldModel interface {
	// IsValidAction reports whether the robot at loc may perform a.
	IsValidAction(state *State, loc core.Loc, a Action) bool
	// Apply resolves all actions at once and returns the state for the
	// next turn. It must be deterministic for a given seed.
	Apply(state *State, actions Actions, seed int64) (*State, error)
}

// Engine applies one turn through the world model and checks the result.
// The game's run lock keeps turns of one game from being applied concurrently.
type Engine struct {
	world WorldModel
	seed  int64
}

// NewEngine creates an engine. The world seed of every turn is derived
// from seed and the turn number.
func NewEngine(world WorldModel, seed int64) *Engine {
	return &Engine{world: world, seed: seed}
}

// Apply produces the state following state. A mismatched action set is a
// caller defect; anything going wrong inside the world model comes back
// as a *WorldFault.
func (e *Engine) Apply(state *State, actions Actions) (next *State, err error) {
	if err := checkActionSet(state, actions); err != nil {
		return nil, err
	}
	seed := turnSeed(e.seed, state.Turn(), streamWorld)

	defer func() {
		if p := recover(); p != nil {
			next, err = nil, &WorldFault{Turn: state.Turn(), Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	next, err = e.world.Apply(state, actions, seed)
	if err != nil {
		return nil, &WorldFault{Turn: state.Turn(), Err: err}
	}
	if next == nil {
		return nil, &WorldFault{Turn: state.Turn(), Err: fmt.Errorf("%w: no state returned", ErrTurnSequence)}
	}
	if next.Turn() != state.Turn()+1 {
		return nil, &WorldFault{Turn: state.Turn(), Err: fmt.Errorf("%w: turn %d followed by %d", ErrTurnSequence, state.Turn(), next.Turn())}
	}
	return next, nil
}

func checkActionSet(state *State, actions Actions) error {
	if len(actions) != state.Len() {
		return fmt.Errorf("%w: %d actions for %d robots", ErrActionSet, len(actions), state.Len())
	}
	for l := range actions {
		if _, ok := state.RobotAt(l); !ok {
			return fmt.Errorf("%w: action for empty square %v", ErrActionSet, l)
		}
	}
	return nil
}
