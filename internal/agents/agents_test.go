package agents

import (
	"context"
	"testing"

	"github.com/vovakirdan/robot-arena/internal/config"
	"github.com/vovakirdan/robot-arena/internal/core"
	"github.com/vovakirdan/robot-arena/internal/game"
	"github.com/vovakirdan/robot-arena/internal/registry"
	"github.com/vovakirdan/robot-arena/internal/rules"
)

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	s := config.DefaultSettings()
	s.Map = config.Map{Size: 9}
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	return s
}

// view returns the snapshot player 1 sees and the view of its robot at l.
func view(t *testing.T, settings *config.Settings, l core.Loc, robots ...game.Robot) (game.RobotView, game.GameInfo) {
	t.Helper()
	s, err := game.NewState(3, robots)
	if err != nil {
		t.Fatal(err)
	}
	info := game.NewGameInfo(s, core.Player1, settings)
	self, ok := info.At(l)
	if !ok {
		t.Fatalf("no robot at %v", l)
	}
	return game.RobotView{RobotInfo: self, Seed: 11}, info
}

func decide(t *testing.T, a game.Agent, self game.RobotView, info game.GameInfo) game.Action {
	t.Helper()
	act, err := a.Decide(context.Background(), self, info)
	if err != nil {
		t.Fatalf("Decide() failed: %v", err)
	}
	return act
}

func TestBuiltinsAreRegistered(t *testing.T) {
	for _, id := range []string{"guard", "random", "hunter", "kamikaze"} {
		if !registry.Exists(id) {
			t.Errorf("agent %q is not registered", id)
		}
	}
}

func TestHunterAttacksWeakestNeighbour(t *testing.T) {
	settings := testSettings(t)
	self, info := view(t, settings, core.L(4, 4),
		game.Robot{ID: 1, Player: core.Player1, HP: 50, Loc: core.L(4, 4)},
		game.Robot{ID: 2, Player: core.Player2, HP: 30, Loc: core.L(4, 3)},
		game.Robot{ID: 3, Player: core.Player2, HP: 12, Loc: core.L(5, 4)},
	)

	got := decide(t, Hunter{}, self, info)
	if target, _ := got.Target(); got.Kind() != game.ActionAttack || target != core.L(5, 4) {
		t.Errorf("Hunter chose %v, expected attack(5,4)", got)
	}
}

func TestHunterClosesIn(t *testing.T) {
	settings := testSettings(t)
	self, info := view(t, settings, core.L(1, 1),
		game.Robot{ID: 1, Player: core.Player1, HP: 50, Loc: core.L(1, 1)},
		game.Robot{ID: 2, Player: core.Player2, HP: 50, Loc: core.L(6, 1)},
		game.Robot{ID: 3, Player: core.Player2, HP: 50, Loc: core.L(1, 7)},
	)

	got := decide(t, Hunter{}, self, info)
	if target, _ := got.Target(); got.Kind() != game.ActionMove || target != core.L(2, 1) {
		t.Errorf("Hunter chose %v, expected move(2,1)", got)
	}
}

func TestHunterWithoutEnemiesGoesToCenter(t *testing.T) {
	settings := testSettings(t)
	self, info := view(t, settings, core.L(4, 1),
		game.Robot{ID: 1, Player: core.Player1, HP: 50, Loc: core.L(4, 1)},
	)

	got := decide(t, Hunter{}, self, info)
	if target, _ := got.Target(); got.Kind() != game.ActionMove || target != core.L(4, 2) {
		t.Errorf("Hunter chose %v, expected move(4,2)", got)
	}
}

func TestKamikazeExplodesWhenSurrounded(t *testing.T) {
	settings := testSettings(t)
	self, info := view(t, settings, core.L(4, 4),
		game.Robot{ID: 1, Player: core.Player1, HP: 50, Loc: core.L(4, 4)},
		game.Robot{ID: 2, Player: core.Player2, HP: 50, Loc: core.L(4, 3)},
		game.Robot{ID: 3, Player: core.Player2, HP: 50, Loc: core.L(3, 4)},
	)
	if got := decide(t, Kamikaze{}, self, info); got.Kind() != game.ActionSuicide {
		t.Errorf("Kamikaze chose %v, expected suicide", got)
	}

	self, info = view(t, settings, core.L(4, 4),
		game.Robot{ID: 1, Player: core.Player1, HP: 50, Loc: core.L(4, 4)},
		game.Robot{ID: 2, Player: core.Player2, HP: 50, Loc: core.L(4, 3)},
	)
	if got := decide(t, Kamikaze{}, self, info); got.Kind() != game.ActionAttack {
		t.Errorf("healthy Kamikaze with one neighbour chose %v, expected attack", got)
	}
}

func TestRandomOnlyPicksValidActions(t *testing.T) {
	settings := testSettings(t)
	world := rules.New(settings)
	robots := []game.Robot{
		{ID: 1, Player: core.Player1, HP: 50, Loc: core.L(0, 0)},
		{ID: 2, Player: core.Player2, HP: 50, Loc: core.L(1, 0)},
	}
	s, err := game.NewState(0, robots)
	if err != nil {
		t.Fatal(err)
	}
	info := game.NewGameInfo(s, core.Player1, settings)
	self, _ := info.At(core.L(0, 0))

	for seed := int64(0); seed < 50; seed++ {
		got := decide(t, Random{}, game.RobotView{RobotInfo: self, Seed: seed}, info)
		if !world.IsValidAction(s, core.L(0, 0), got) {
			t.Errorf("seed %d: invalid action %v", seed, got)
		}
	}
}

func TestBuiltinMatchesRunWithoutFaults(t *testing.T) {
	pairs := [][2]string{{"hunter", "kamikaze"}, {"random", "guard"}}
	for _, pair := range pairs {
		t.Run(pair[0]+"_vs_"+pair[1], func(t *testing.T) {
			settings := config.DefaultSettings()
			settings.MaxTurns = 25
			settings.Seed = 5
			world := rules.New(settings)
			initial, err := world.InitialState()
			if err != nil {
				t.Fatal(err)
			}
			agents, err := registry.CreatePair(pair[0], pair[1])
			if err != nil {
				t.Fatal(err)
			}

			g, err := game.New(settings, world, initial, agents)
			if err != nil {
				t.Fatal(err)
			}
			if err := g.RunAll(context.Background()); err != nil {
				t.Fatalf("RunAll() failed: %v", err)
			}
			if g.Faults() != [2]int{} {
				t.Errorf("built-in agents faulted: %v", g.Faults())
			}
		})
	}
}
