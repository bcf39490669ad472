package agents

import (
	"context"

	"github.com/vovakirdan/robot-arena/internal/game"
	"github.com/vovakirdan/robot-arena/internal/registry"
)

// lowHP is the hit point level below which a kamikaze blows up next to any
// enemy instead of trading blows.
const lowHP = 10

// Kamikaze hunts like Hunter but self-destructs when surrounded or
// nearly dead.
type Kamikaze struct{}

func (Kamikaze) Decide(_ context.Context, self game.RobotView, info game.GameInfo) (game.Action, error) {
	adj := adjacentEnemies(info, self.Location())
	hp, _ := self.HP()
	if len(adj) >= 2 || (len(adj) > 0 && hp < lowHP) {
		return game.Suicide(), nil
	}
	return hunt(self, info), nil
}

func (Kamikaze) Description() string { return "hunts, then explodes when surrounded" }

func init() {
	registry.Register("kamikaze", func() game.Agent { return Kamikaze{} })
}
