package game

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/vovakirdan/robot-arena/internal/config"
	"github.com/vovakirdan/robot-arena/internal/core"
)

const testBoard = 9

// stepWorld is a small deterministic world: moves succeed into free,
// uncontested squares, attacks deal 1-3 damage, suicides just remove the
// robot.
type stepWorld struct {
	failAt  int
	panicAt int
}

func newStepWorld() *stepWorld {
	return &stepWorld{failAt: -1, panicAt: -1}
}

func (w *stepWorld) IsValidAction(_ *State, loc core.Loc, a Action) bool {
	t, ok := a.Target()
	if !ok {
		return true
	}
	return loc.WalkDist(t) == 1 && t.X >= 0 && t.Y >= 0 && t.X < testBoard && t.Y < testBoard
}

func (w *stepWorld) Apply(s *State, actions Actions, seed int64) (*State, error) {
	if s.Turn() == w.failAt {
		return nil, errors.New("world exploded")
	}
	if s.Turn() == w.panicAt {
		panic("world exploded")
	}

	rng := rand.New(rand.NewSource(seed))
	claims := make(map[core.Loc]int)
	damage := make(map[core.Loc]int)
	for _, l := range s.Locs() {
		a := actions[l]
		t, ok := a.Target()
		switch {
		case ok && a.Kind() == ActionMove:
			claims[t]++
		case ok && a.Kind() == ActionAttack:
			damage[t] += 1 + rng.Intn(3)
		}
	}

	var robots []Robot
	for _, r := range s.Robots() {
		a := actions[r.Loc]
		if a.Kind() == ActionSuicide {
			continue
		}
		r.HP -= damage[r.Loc]
		if r.HP <= 0 {
			continue
		}
		if t, ok := a.Target(); ok && a.Kind() == ActionMove {
			if _, occupied := s.RobotAt(t); !occupied && claims[t] == 1 {
				r.Loc = t
			}
		}
		robots = append(robots, r)
	}
	return NewState(s.Turn()+1, robots)
}

func testSettings(t *testing.T, maxTurns int) *config.Settings {
	t.Helper()
	s := config.DefaultSettings()
	s.MaxTurns = maxTurns
	s.Seed = 42
	s.DecisionTimeout = time.Second
	s.Map = config.Map{Size: testBoard}
	if err := s.Validate(); err != nil {
		t.Fatalf("test settings invalid: %v", err)
	}
	return s
}

func testState(t *testing.T) *State {
	t.Helper()
	s, err := NewState(0, []Robot{
		{ID: 1, Player: core.Player1, HP: 50, Loc: core.L(1, 1)},
		{ID: 2, Player: core.Player1, HP: 50, Loc: core.L(1, 3)},
		{ID: 3, Player: core.Player2, HP: 50, Loc: core.L(7, 1)},
		{ID: 4, Player: core.Player2, HP: 50, Loc: core.L(7, 3)},
	})
	if err != nil {
		t.Fatalf("NewState() failed: %v", err)
	}
	return s
}

func newTestGame(t *testing.T, settings *config.Settings, world WorldModel, agents [2]Agent, opts ...Option) *Game {
	t.Helper()
	g, err := New(settings, world, testState(t), agents, opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return g
}

var guardAgent = AgentFunc(func(context.Context, RobotView, GameInfo) (Action, error) {
	return Guard(), nil
})

// randomAgent picks guard, a move or an attack from the robot's seed.
var randomAgent = AgentFunc(func(_ context.Context, self RobotView, _ GameInfo) (Action, error) {
	rng := rand.New(rand.NewSource(self.Seed))
	around := self.Location().Around()
	target := around[rng.Intn(len(around))]
	switch rng.Intn(3) {
	case 0:
		return Move(target), nil
	case 1:
		return Attack(target), nil
	default:
		return Guard(), nil
	}
})

// gatedAgent guards, but blocks on turn until release is closed.
func gatedAgent(turn int, release <-chan struct{}) Agent {
	return AgentFunc(func(ctx context.Context, _ RobotView, info GameInfo) (Action, error) {
		if info.Turn == turn {
			select {
			case <-release:
			case <-ctx.Done():
				return Guard(), ctx.Err()
			}
		}
		return Guard(), nil
	})
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
