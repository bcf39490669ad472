package game

import (
	"encoding/json"
	"fmt"

	"github.com/vovakirdan/robot-arena/internal/core"
)

// ActionKind is the closed set of things a robot can do in a turn.
type ActionKind int

const (
	ActionGuard ActionKind = iota
	ActionMove
	ActionAttack
	ActionSuicide
)

// String returns the wire name of the action kind.
func (k ActionKind) String() string {
	switch k {
	case ActionGuard:
		return "guard"
	case ActionMove:
		return "move"
	case ActionAttack:
		return "attack"
	case ActionSuicide:
		return "suicide"
	default:
		return "unknown"
	}
}

// Action is a robot's decision for one turn. Values can only be built
// through the constructors below, so a target is present exactly when the
// kind needs one. The zero value is Guard.
type Action struct {
	kind   ActionKind
	target core.Loc
}

// Guard keeps the robot in place; guarding robots take reduced damage.
func Guard() Action { return Action{kind: ActionGuard} }

// Move walks the robot to an adjacent square.
func Move(dest core.Loc) Action { return Action{kind: ActionMove, target: dest} }

// Attack damages whatever robot is on an adjacent square.
func Attack(target core.Loc) Action { return Action{kind: ActionAttack, target: target} }

// Suicide destroys the robot and damages all adjacent robots.
func Suicide() Action { return Action{kind: ActionSuicide} }

// Actions maps every live robot's location to its action for the turn.
type Actions map[core.Loc]Action

// Kind returns the action kind.
func (a Action) Kind() ActionKind {
	return a.kind
}

// Name returns the wire name ("guard", "move", "attack", "suicide").
func (a Action) Name() string {
	return a.kind.String()
}

// Target returns the destination of a move or attack.
func (a Action) Target() (core.Loc, bool) {
	if a.kind == ActionMove || a.kind == ActionAttack {
		return a.target, true
	}
	return core.Loc{}, false
}

// Valid reports whether the action is one of the known kinds.
func (a Action) Valid() bool {
	return a.kind >= ActionGuard && a.kind <= ActionSuicide
}

// String formats the action like "move(3,4)".
func (a Action) String() string {
	if t, ok := a.Target(); ok {
		return a.Name() + t.String()
	}
	return a.Name()
}

// ParseAction builds an action from its wire form. Move and attack need a
// target; guard and suicide must not have one.
func ParseAction(name string, target *core.Loc) (Action, error) {
	switch name {
	case "guard", "suicide":
		if target != nil {
			return Action{}, fmt.Errorf("%w: %s takes no target", ErrInvalidAction, name)
		}
		if name == "guard" {
			return Guard(), nil
		}
		return Suicide(), nil
	case "move", "attack":
		if target == nil {
			return Action{}, fmt.Errorf("%w: %s needs a target", ErrInvalidAction, name)
		}
		if name == "move" {
			return Move(*target), nil
		}
		return Attack(*target), nil
	default:
		return Action{}, fmt.Errorf("%w: unknown action %q", ErrInvalidAction, name)
	}
}

type actionJSON struct {
	Name   string    `json:"name"`
	Target *core.Loc `json:"target,omitempty"`
}

// MarshalJSON encodes the action as {"name": ..., "target": ...}.
func (a Action) MarshalJSON() ([]byte, error) {
	v := actionJSON{Name: a.Name()}
	if t, ok := a.Target(); ok {
		v.Target = &t
	}
	return json.Marshal(v)
}

// UnmarshalJSON decodes and validates an action.
func (a *Action) UnmarshalJSON(data []byte) error {
	var v actionJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := ParseAction(v.Name, v.Target)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
