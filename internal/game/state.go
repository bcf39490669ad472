// Package game implements the turn pipeline of a two-player robot match:
// collecting actions from agents, applying them through a world model,
// recording per-robot outcomes and publishing every turn to blocking,
// turn-indexed stores that readers can consume while the match runs.
package game

import (
	"fmt"
	"slices"

	"github.com/vovakirdan/robot-arena/internal/config"
	"github.com/vovakirdan/robot-arena/internal/core"
)

// Robot is the engine's view of one robot.
type Robot struct {
	ID     int           `json:"robot_id"`
	Player core.PlayerID `json:"player_id"`
	HP     int           `json:"hp"`
	Loc    core.Loc      `json:"location"`
}

// Attr returns the robot attribute with the given property name.
func (r Robot) Attr(name string) (any, bool) {
	switch name {
	case config.PropLocation:
		return r.Loc, true
	case config.PropHP:
		return r.HP, true
	case config.PropPlayerID:
		return r.Player, true
	case config.PropRobotID:
		return r.ID, true
	default:
		return nil, false
	}
}

// State is an immutable snapshot of the board at the start of a turn.
// The only way to get a new State is NewState; nothing mutates an existing
// one, so states can be shared freely between the producer and readers.
type State struct {
	turn   int
	robots map[core.Loc]Robot
	order  []core.Loc
	lastID int
}

// NewState builds a state for the given turn. Robot locations must be unique.
func NewState(turn int, robots []Robot) (*State, error) {
	s := &State{
		turn:   turn,
		robots: make(map[core.Loc]Robot, len(robots)),
		order:  make([]core.Loc, 0, len(robots)),
	}
	for _, r := range robots {
		if _, dup := s.robots[r.Loc]; dup {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateLocation, r.Loc)
		}
		s.robots[r.Loc] = r
		s.order = append(s.order, r.Loc)
		s.lastID = max(s.lastID, r.ID)
	}
	slices.SortFunc(s.order, compareLocs)
	return s, nil
}

// NextState builds the state of the turn after prev. The robot ID counter
// carries over, so IDs of dead robots are never handed out again.
func NextState(prev *State, robots []Robot) (*State, error) {
	s, err := NewState(prev.turn+1, robots)
	if err != nil {
		return nil, err
	}
	s.lastID = max(s.lastID, prev.lastID)
	return s, nil
}

// Turn returns the turn number, starting at 0.
func (s *State) Turn() int {
	return s.turn
}

// Len returns the number of robots on the board.
func (s *State) Len() int {
	return len(s.order)
}

// RobotAt returns the robot occupying l, if any.
func (s *State) RobotAt(l core.Loc) (Robot, bool) {
	r, ok := s.robots[l]
	return r, ok
}

// Robots returns a copy of all robots in row-major location order.
func (s *State) Robots() []Robot {
	out := make([]Robot, 0, len(s.order))
	for _, l := range s.order {
		out = append(out, s.robots[l])
	}
	return out
}

// Locs returns the occupied locations in row-major order.
func (s *State) Locs() []core.Loc {
	return slices.Clone(s.order)
}

// Count returns how many robots a player has on the board.
func (s *State) Count(p core.PlayerID) int {
	n := 0
	for _, r := range s.robots {
		if r.Player == p {
			n++
		}
	}
	return n
}

// Scores returns the robot count of each player; more robots wins.
func (s *State) Scores() [2]int {
	return [2]int{s.Count(core.Player1), s.Count(core.Player2)}
}

// LastID returns the highest robot ID issued so far in this match,
// including robots no longer on the board.
func (s *State) LastID() int {
	return s.lastID
}

func compareLocs(a, b core.Loc) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}
