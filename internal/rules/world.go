// Package rules is the default arena physics: movement with collisions,
// attacks, suicides and periodic spawning.
package rules

import (
	"fmt"
	"math/rand"

	"github.com/vovakirdan/robot-arena/internal/config"
	"github.com/vovakirdan/robot-arena/internal/core"
	"github.com/vovakirdan/robot-arena/internal/game"
)

// World resolves turns according to the match settings.
// It holds no per-match state and is safe for concurrent use.
type World struct {
	settings *config.Settings
}

// New creates a world for validated settings.
func New(settings *config.Settings) *World {
	return &World{settings: settings}
}

// InitialState places the start robots of the map on turn 0. Maps without
// start positions begin empty and fill up on the first spawn turn.
func (w *World) InitialState() (*game.State, error) {
	var robots []game.Robot
	id := 0
	place := func(p core.PlayerID, locs []core.Loc) {
		for _, l := range locs {
			id++
			robots = append(robots, game.Robot{ID: id, Player: p, HP: w.settings.RobotHP, Loc: l})
		}
	}
	place(core.Player1, w.settings.Map.Start1)
	place(core.Player2, w.settings.Map.Start2)

	s, err := game.NewState(0, robots)
	if err != nil {
		return nil, fmt.Errorf("rules: initial state: %w", err)
	}
	return s, nil
}

// IsValidAction reports whether a move or attack targets a walkable
// neighbouring square. Guard and suicide are always allowed.
func (w *World) IsValidAction(_ *game.State, loc core.Loc, a game.Action) bool {
	target, ok := a.Target()
	if !ok {
		return a.Valid()
	}
	return loc.WalkDist(target) == 1 && !w.settings.Map.IsObstacle(target)
}

// Scores returns each player's robot count.
func (w *World) Scores(s *game.State) [2]int {
	return s.Scores()
}

// Apply resolves a whole turn at once:
//  1. moves, where contested squares, swaps and occupied squares block the
//     mover; a blocked mover takes collision damage for every enemy it ran
//     into, and a standing enemy it ran into does too unless guarding;
//  2. attacks and suicides against positions after movement, with damage
//     halved for guarding targets and only ever hitting enemies;
//  3. removal of destroyed robots;
//  4. on spawn turns, clearing the spawn squares and placing new robots.
func (w *World) Apply(s *game.State, actions game.Actions, seed int64) (*game.State, error) {
	rng := rand.New(rand.NewSource(seed))
	t := newTurn(s, actions)

	t.resolveMoves()
	for _, c := range t.collisions {
		if w.settings.CollisionDamage > 0 {
			t.hurt(c.mover, w.settings.CollisionDamage)
			if !t.moving(c.struck) && !t.guarding(c.struck) {
				t.hurt(c.struck, w.settings.CollisionDamage)
			}
		}
	}

	for _, l := range t.order {
		r := t.robots[l]
		a := actions[l]
		switch a.Kind() {
		case game.ActionAttack:
			target, _ := a.Target()
			victim, ok := t.at(target)
			if !ok || victim.Player == r.Player {
				continue
			}
			dmg := w.settings.AttackDamage.Min
			if spread := w.settings.AttackDamage.Max - w.settings.AttackDamage.Min; spread > 0 {
				dmg += rng.Intn(spread + 1)
			}
			t.hit(victim.ID, dmg)
		case game.ActionSuicide:
			t.hp[r.ID] = 0
			for _, n := range t.final[r.ID].Around() {
				if victim, ok := t.at(n); ok && victim.Player != r.Player {
					t.hit(victim.ID, w.settings.SuicideDamage)
				}
			}
		}
	}

	next := make([]game.Robot, 0, len(t.order))
	for _, l := range t.order {
		r := t.robots[l]
		if t.hp[r.ID] <= 0 {
			continue
		}
		r.HP = t.hp[r.ID]
		r.Loc = t.final[r.ID]
		next = append(next, r)
	}

	if w.settings.IsSpawnTurn(s.Turn()) {
		next = w.spawn(next, s.LastID(), rng)
	}

	ns, err := game.NextState(s, next)
	if err != nil {
		return nil, fmt.Errorf("rules: turn %d: %w", s.Turn(), err)
	}
	return ns, nil
}

// spawn clears the spawn squares and drops SpawnPerPlayer fresh robots for
// each player onto randomly chosen ones.
func (w *World) spawn(robots []game.Robot, lastID int, rng *rand.Rand) []game.Robot {
	m := &w.settings.Map
	kept := robots[:0]
	for _, r := range robots {
		if !m.IsSpawn(r.Loc) {
			kept = append(kept, r)
		}
	}

	spots := append([]core.Loc(nil), m.Spawn...)
	rng.Shuffle(len(spots), func(i, j int) { spots[i], spots[j] = spots[j], spots[i] })

	id := lastID
	for i := 0; i < w.settings.SpawnPerPlayer; i++ {
		for _, p := range core.Players {
			if len(spots) == 0 {
				return kept
			}
			id++
			kept = append(kept, game.Robot{ID: id, Player: p, HP: w.settings.RobotHP, Loc: spots[0]})
			spots = spots[1:]
		}
	}
	return kept
}
