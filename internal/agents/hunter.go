package agents

import (
	"context"

	"github.com/vovakirdan/robot-arena/internal/game"
	"github.com/vovakirdan/robot-arena/internal/registry"
)

// Hunter attacks the weakest adjacent enemy, otherwise walks toward the
// nearest one. With no enemy in sight it heads for the center.
type Hunter struct{}

func (Hunter) Decide(_ context.Context, self game.RobotView, info game.GameInfo) (game.Action, error) {
	return hunt(self, info), nil
}

func (Hunter) Description() string { return "chases and attacks the nearest enemy" }

func hunt(self game.RobotView, info game.GameInfo) game.Action {
	loc := self.Location()
	if adj := adjacentEnemies(info, loc); len(adj) > 0 {
		return game.Attack(weakest(adj).Location())
	}
	if target, ok := nearest(info.Enemies(), loc); ok {
		return stepToward(info, loc, target.Location())
	}
	return stepToward(info, loc, info.Board.Center())
}

func init() {
	registry.Register("hunter", func() game.Agent { return Hunter{} })
}
