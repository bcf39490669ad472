package agents

import (
	"context"

	"github.com/vovakirdan/robot-arena/internal/game"
	"github.com/vovakirdan/robot-arena/internal/registry"
)

// Guard never moves and always guards.
type Guard struct{}

func (Guard) Decide(context.Context, game.RobotView, game.GameInfo) (game.Action, error) {
	return game.Guard(), nil
}

func (Guard) Description() string { return "always guards in place" }

func init() {
	registry.Register("guard", func() game.Agent { return Guard{} })
}
