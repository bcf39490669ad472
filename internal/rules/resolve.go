package rules

import (
	"github.com/vovakirdan/robot-arena/internal/core"
	"github.com/vovakirdan/robot-arena/internal/game"
)

// collision is one blocked move: mover tried to enter struck's square.
type collision struct {
	mover, struck int
}

// turn is the scratch space for resolving one turn. Robots are tracked by
// ID since their locations change during resolution.
type turn struct {
	order   []core.Loc
	robots  map[core.Loc]game.Robot
	actions game.Actions

	start map[int]core.Loc // robot ID -> location at the start of the turn
	hp    map[int]int
	final map[int]core.Loc
	byLoc map[core.Loc]int // end location -> robot ID

	collisions []collision
}

func newTurn(s *game.State, actions game.Actions) *turn {
	t := &turn{
		order:   s.Locs(),
		robots:  make(map[core.Loc]game.Robot, s.Len()),
		actions: actions,
		start:   make(map[int]core.Loc, s.Len()),
		hp:      make(map[int]int, s.Len()),
		final:   make(map[int]core.Loc, s.Len()),
	}
	for _, r := range s.Robots() {
		t.robots[r.Loc] = r
		t.start[r.ID] = r.Loc
		t.hp[r.ID] = r.HP
		t.final[r.ID] = r.Loc
	}
	return t
}

// resolveMoves decides every robot's end square. A move is blocked when
// another robot wants the same square, when two robots try to swap, or
// when the square stays occupied. Blocking can cascade, so resolution
// repeats until nothing changes.
func (t *turn) resolveMoves() {
	dest := make(map[core.Loc]core.Loc, len(t.order))
	for _, l := range t.order {
		dest[l] = l
		if target, ok := t.actions[l].Target(); ok && t.actions[l].Kind() == game.ActionMove {
			dest[l] = target
		}
	}

	for changed := true; changed; {
		changed = false
		claims := make(map[core.Loc][]core.Loc, len(dest))
		for _, l := range t.order {
			claims[dest[l]] = append(claims[dest[l]], l)
		}

		for _, l := range t.order {
			d := dest[l]
			if d == l {
				continue
			}
			var struck []core.Loc
			switch {
			case len(claims[d]) > 1:
				for _, other := range claims[d] {
					if other != l {
						struck = append(struck, other)
					}
				}
			case t.occupiedAfter(d, dest):
				struck = append(struck, d)
			case t.swapping(l, d, dest):
				struck = append(struck, d)
			default:
				continue
			}

			dest[l] = l
			changed = true
			for _, s := range struck {
				if t.robots[s].Player != t.robots[l].Player {
					t.collisions = append(t.collisions, collision{mover: t.robots[l].ID, struck: t.robots[s].ID})
				}
			}
		}
	}

	t.byLoc = make(map[core.Loc]int, len(t.order))
	for _, l := range t.order {
		id := t.robots[l].ID
		t.final[id] = dest[l]
		t.byLoc[dest[l]] = id
	}
}

// occupiedAfter reports whether the robot currently at d stays there.
func (t *turn) occupiedAfter(d core.Loc, dest map[core.Loc]core.Loc) bool {
	_, ok := t.robots[d]
	return ok && dest[d] == d
}

func (t *turn) swapping(l, d core.Loc, dest map[core.Loc]core.Loc) bool {
	_, ok := t.robots[d]
	return ok && dest[d] == l
}

// at returns the robot standing on l after movement.
func (t *turn) at(l core.Loc) (game.Robot, bool) {
	id, ok := t.byLoc[l]
	if !ok {
		return game.Robot{}, false
	}
	return t.robots[t.start[id]], true
}

func (t *turn) guarding(id int) bool {
	return t.actions[t.start[id]].Kind() == game.ActionGuard
}

func (t *turn) moving(id int) bool {
	return t.actions[t.start[id]].Kind() == game.ActionMove
}

func (t *turn) hurt(id, dmg int) {
	t.hp[id] -= dmg
}

// hit deals attack or blast damage, halved for a guarding robot.
func (t *turn) hit(id, dmg int) {
	if t.guarding(id) {
		dmg /= 2
	}
	t.hurt(id, dmg)
}
