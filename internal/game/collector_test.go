package game

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/robot-arena/internal/config"
	"github.com/vovakirdan/robot-arena/internal/core"
)

func newTestCollector(t *testing.T, timeout time.Duration, w io.Writer) *Collector {
	t.Helper()
	s := testSettings(t, 10)
	s.DecisionTimeout = timeout
	return NewCollector(s, newStepWorld(), 1, log.New(w))
}

func TestCollectCoversEveryRobot(t *testing.T) {
	c := newTestCollector(t, time.Second, io.Discard)
	state := testState(t)

	actions, err := c.Collect(context.Background(), state, [2]Agent{randomAgent, randomAgent})
	if err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
	if len(actions) != state.Len() {
		t.Fatalf("got %d actions for %d robots", len(actions), state.Len())
	}
	for _, l := range state.Locs() {
		if _, ok := actions[l]; !ok {
			t.Errorf("no action for robot at %v", l)
		}
	}
}

func TestCollectSubstitutesGuardOnFaults(t *testing.T) {
	tests := []struct {
		name   string
		agent  Agent
		reason string
	}{
		{
			name: "error",
			agent: AgentFunc(func(context.Context, RobotView, GameInfo) (Action, error) {
				return Action{}, errors.New("no idea")
			}),
			reason: "no idea",
		},
		{
			name: "panic",
			agent: AgentFunc(func(context.Context, RobotView, GameInfo) (Action, error) {
				panic("bad robot")
			}),
			reason: "panicked",
		},
		{
			name: "timeout",
			agent: AgentFunc(func(ctx context.Context, self RobotView, _ GameInfo) (Action, error) {
				<-ctx.Done()
				time.Sleep(10 * time.Millisecond)
				return Suicide(), nil
			}),
			reason: "timed out",
		},
		{
			name: "invalid",
			agent: AgentFunc(func(_ context.Context, self RobotView, _ GameInfo) (Action, error) {
				return Move(self.Location().Add(3, 0)), nil
			}),
			reason: "invalid action",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := newTestCollector(t, 20*time.Millisecond, &buf)
			state := testState(t)

			actions, err := c.Collect(context.Background(), state, [2]Agent{tt.agent, AgentFunc(
				func(context.Context, RobotView, GameInfo) (Action, error) { return Suicide(), nil },
			)})
			if err != nil {
				t.Fatalf("Collect() failed: %v", err)
			}

			for _, r := range state.Robots() {
				expected := ActionSuicide
				if r.Player == core.Player1 {
					expected = ActionGuard
				}
				if got := actions[r.Loc].Kind(); got != expected {
					t.Errorf("robot at %v: action %v, expected %v", r.Loc, got, expected)
				}
			}
			if f := c.Faults(); f != [2]int{2, 0} {
				t.Errorf("Faults() = %v, expected [2 0]", f)
			}
			if !strings.Contains(buf.String(), tt.reason) {
				t.Errorf("log does not mention %q:\n%s", tt.reason, buf.String())
			}
		})
	}
}

func TestCollectIsolatesSnapshots(t *testing.T) {
	c := newTestCollector(t, time.Second, io.Discard)
	state := testState(t)

	var seen []int
	vandal := AgentFunc(func(_ context.Context, _ RobotView, info GameInfo) (Action, error) {
		seen = append(seen, len(info.Robots))
		for l := range info.Robots {
			delete(info.Robots, l)
		}
		info.Robots[core.L(0, 0)] = RobotInfo{}
		return Guard(), nil
	})

	if _, err := c.Collect(context.Background(), state, [2]Agent{vandal, vandal}); err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
	for i, n := range seen {
		if n != state.Len() {
			t.Errorf("decision %d saw %d robots, expected %d", i, n, state.Len())
		}
	}
	if state.Len() != 4 {
		t.Errorf("state changed by agent: %d robots", state.Len())
	}
}

func TestCollectHidesPlayerOnlyProperties(t *testing.T) {
	c := newTestCollector(t, time.Second, io.Discard)
	state := testState(t)

	check := AgentFunc(func(_ context.Context, self RobotView, info GameInfo) (Action, error) {
		if _, ok := self.RobotID(); !ok {
			t.Error("own robot view lacks robot_id")
		}
		for _, r := range info.Allies() {
			if _, ok := r.RobotID(); !ok {
				t.Errorf("ally at %v lacks robot_id", r.Location())
			}
		}
		for _, r := range info.Enemies() {
			if _, ok := r.RobotID(); ok {
				t.Errorf("enemy at %v exposes robot_id", r.Location())
			}
			if hp, ok := r.HP(); !ok || hp != 50 {
				t.Errorf("enemy at %v hp = %d, %v", r.Location(), hp, ok)
			}
		}
		return Guard(), nil
	})

	if _, err := c.Collect(context.Background(), state, [2]Agent{check, check}); err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
}

func TestCollectSeedsAreDeterministic(t *testing.T) {
	seeds := func() []int64 {
		c := newTestCollector(t, time.Second, io.Discard)
		var out []int64
		record := AgentFunc(func(_ context.Context, self RobotView, _ GameInfo) (Action, error) {
			out = append(out, self.Seed)
			return Guard(), nil
		})
		if _, err := c.Collect(context.Background(), testState(t), [2]Agent{record, record}); err != nil {
			t.Fatalf("Collect() failed: %v", err)
		}
		return out
	}

	a, b := seeds(), seeds()
	if len(a) != 4 {
		t.Fatalf("got %d seeds, expected 4", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("seed %d differs between runs: %d vs %d", i, a[i], b[i])
		}
	}
	if a[0] == a[1] {
		t.Error("robots share a seed")
	}
}

func TestCollectCancelled(t *testing.T) {
	c := newTestCollector(t, 0, io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Collect(ctx, testState(t), [2]Agent{gatedAgent(0, nil), guardAgent})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Collect() error = %v, expected context.Canceled", err)
	}
	if f := c.Faults(); f != [2]int{} {
		t.Errorf("cancellation counted as agent fault: %v", f)
	}
}

func TestCollectBoardIsReadOnly(t *testing.T) {
	settings := testSettings(t, 10)
	c := NewCollector(settings, newStepWorld(), 1, log.New(io.Discard))

	var reached bool
	vandal := AgentFunc(func(_ context.Context, _ RobotView, info GameInfo) (Action, error) {
		if m, ok := info.Board.(*config.Map); ok {
			reached = true
			m.Size = 1
			m.Obstacle = append(m.Obstacle, core.L(4, 4))
			_ = m.Prepare()
		}
		if !info.Board.InBounds(core.L(testBoard-1, testBoard-1)) {
			t.Error("board lost its far corner")
		}
		if got := info.Board.Center(); got != core.L(testBoard/2, testBoard/2) {
			t.Errorf("Center() = %v", got)
		}
		return Guard(), nil
	})

	if _, err := c.Collect(context.Background(), testState(t), [2]Agent{vandal, vandal}); err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
	if reached {
		t.Error("agent reached the settings map through its board")
	}
	if settings.Map.Size != testBoard || settings.Map.IsObstacle(core.L(4, 4)) {
		t.Errorf("settings map changed: size %d, obstacle at (4,4) = %v",
			settings.Map.Size, settings.Map.IsObstacle(core.L(4, 4)))
	}
}

func TestCollectTwiceGivesSameSeeds(t *testing.T) {
	c := newTestCollector(t, time.Second, io.Discard)
	state := testState(t)

	var seeds []int64
	record := AgentFunc(func(_ context.Context, self RobotView, _ GameInfo) (Action, error) {
		seeds = append(seeds, self.Seed)
		return Guard(), nil
	})
	for range 2 {
		if _, err := c.Collect(context.Background(), state, [2]Agent{record, record}); err != nil {
			t.Fatalf("Collect() failed: %v", err)
		}
	}
	if len(seeds) != 8 {
		t.Fatalf("got %d seeds, expected 8", len(seeds))
	}
	for i := range 4 {
		if seeds[i] != seeds[i+4] {
			t.Errorf("robot %d: seed %d then %d", i, seeds[i], seeds[i+4])
		}
	}
}
