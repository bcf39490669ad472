package agents

import (
	"context"
	"math/rand"

	"github.com/vovakirdan/robot-arena/internal/game"
	"github.com/vovakirdan/robot-arena/internal/registry"
)

// Random picks uniformly among guarding, stepping to a free square and
// attacking an adjacent enemy. Its choices depend only on the robot's
// seed, so replays with the same match seed repeat exactly.
type Random struct{}

func (Random) Decide(_ context.Context, self game.RobotView, info game.GameInfo) (game.Action, error) {
	rng := rand.New(rand.NewSource(self.Seed))

	choices := []game.Action{game.Guard()}
	for _, n := range self.Location().Around() {
		if free(info, n) {
			choices = append(choices, game.Move(n))
		}
	}
	for _, e := range adjacentEnemies(info, self.Location()) {
		choices = append(choices, game.Attack(e.Location()))
	}
	return choices[rng.Intn(len(choices))], nil
}

func (Random) Description() string { return "moves and attacks at random" }

func init() {
	registry.Register("random", func() game.Agent { return Random{} })
}
