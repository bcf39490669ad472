package game

import (
	"errors"
	"fmt"

	"github.com/vovakirdan/robot-arena/internal/core"
)

// Defects: these signal a bug in the caller, never a normal "not ready yet".
var (
	ErrAlreadyRunning    = errors.New("game: a run is already advancing this match")
	ErrDuplicateWrite    = errors.New("game: turn slot written twice")
	ErrOutOfRange        = errors.New("game: turn index beyond store capacity")
	ErrActionSet         = errors.New("game: action set does not match live robots")
	ErrTurnSequence      = errors.New("game: world model broke the turn sequence")
	ErrDuplicateLocation = errors.New("game: two robots on one location")
)

// Agent faults. Logged and replaced by Guard, never returned to callers.
var (
	ErrInvalidAction   = errors.New("game: invalid action")
	ErrDecisionTimeout = errors.New("game: agent decision timed out")
	ErrAgentPanic      = errors.New("game: agent panicked")
)

// AgentFault describes one agent misbehaving for one robot.
type AgentFault struct {
	Turn   int
	Player core.PlayerID
	Robot  int
	Loc    core.Loc
	Err    error
}

func (f *AgentFault) Error() string {
	return fmt.Sprintf("turn %d: %s robot %d at %v: %v", f.Turn, f.Player, f.Robot, f.Loc, f.Err)
}

func (f *AgentFault) Unwrap() error {
	return f.Err
}

// WorldFault is a failure of the world model while applying a turn.
// It is fatal to the run.
type WorldFault struct {
	Turn int
	Err  error
}

func (f *WorldFault) Error() string {
	return fmt.Sprintf("game: world model failed on turn %d: %v", f.Turn, f.Err)
}

func (f *WorldFault) Unwrap() error {
	return f.Err
}

// RunFailedError is returned to readers of turns the run will never produce.
type RunFailedError struct {
	Err error
}

func (e *RunFailedError) Error() string {
	return fmt.Sprintf("game: run failed: %v", e.Err)
}

func (e *RunFailedError) Unwrap() error {
	return e.Err
}
