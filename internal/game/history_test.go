package game

import (
	"testing"

	"github.com/vovakirdan/robot-arena/internal/config"
	"github.com/vovakirdan/robot-arena/internal/core"
)

func mustState(t *testing.T, turn int, robots ...Robot) *State {
	t.Helper()
	s, err := NewState(turn, robots)
	if err != nil {
		t.Fatalf("NewState() failed: %v", err)
	}
	return s
}

func TestCaptureMoveOutcome(t *testing.T) {
	settings := testSettings(t, 10)
	r := NewRecorder(settings)

	old := mustState(t, 1,
		Robot{ID: 1, Player: core.Player1, HP: 50, Loc: core.L(1, 1)}, // moves
		Robot{ID: 2, Player: core.Player1, HP: 50, Loc: core.L(3, 3)}, // blocked
		Robot{ID: 3, Player: core.Player2, HP: 5, Loc: core.L(5, 5)},  // dies
		Robot{ID: 4, Player: core.Player2, HP: 50, Loc: core.L(6, 6)}, // guards, hurt
	)
	actions := Actions{
		core.L(1, 1): Move(core.L(1, 2)),
		core.L(3, 3): Move(core.L(3, 4)),
		core.L(5, 5): Guard(),
		core.L(6, 6): Guard(),
	}
	next := mustState(t, 2,
		Robot{ID: 1, Player: core.Player1, HP: 50, Loc: core.L(1, 2)},
		Robot{ID: 2, Player: core.Player1, HP: 45, Loc: core.L(3, 3)},
		Robot{ID: 9, Player: core.Player2, HP: 50, Loc: core.L(3, 4)},
		Robot{ID: 4, Player: core.Player2, HP: 41, Loc: core.L(6, 6)},
	)

	records := r.Capture(old, actions, next)
	if len(records) != 4 {
		t.Fatalf("got %d records, expected 4", len(records))
	}

	tests := []struct {
		loc    core.Loc
		name   string
		locEnd core.Loc
		hpEnd  int
	}{
		{core.L(1, 1), "move", core.L(1, 2), 50},
		{core.L(3, 3), "move", core.L(3, 3), 45},
		{core.L(5, 5), "guard", core.L(5, 5), 0},
		{core.L(6, 6), "guard", core.L(6, 6), 41},
	}
	for _, tt := range tests {
		rec := records[tt.loc]
		if rec.Name != tt.name || rec.LocEnd != tt.locEnd || rec.HPEnd != tt.hpEnd {
			t.Errorf("record at %v = %+v, expected name=%s loc_end=%v hp_end=%d",
				tt.loc, rec, tt.name, tt.locEnd, tt.hpEnd)
		}
		if rec.Loc != tt.loc {
			t.Errorf("record at %v has loc %v", tt.loc, rec.Loc)
		}
	}
	if tgt := records[core.L(3, 3)].Target; tgt == nil || *tgt != core.L(3, 4) {
		t.Errorf("blocked move lost its target: %v", tgt)
	}
	if records[core.L(6, 6)].Target != nil {
		t.Error("guard record should have no target")
	}
}

func TestCaptureSpawnRecords(t *testing.T) {
	settings := testSettings(t, 10)
	settings.Map = config.Map{Size: testBoard, Spawn: []core.Loc{core.L(0, 4), core.L(8, 4)}}
	if err := settings.Map.Prepare(); err != nil {
		t.Fatal(err)
	}
	r := NewRecorder(settings)

	next := func(turn int) *State {
		return mustState(t, turn,
			Robot{ID: 1, Player: core.Player1, HP: 50, Loc: core.L(0, 4)},
			Robot{ID: 2, Player: core.Player2, HP: 50, Loc: core.L(8, 4)},
		)
	}

	records := r.Capture(mustState(t, 0), Actions{}, next(1))
	if len(records) != 2 {
		t.Fatalf("got %d records on spawn turn, expected 2", len(records))
	}
	rec := records[core.L(8, 4)]
	if rec.Name != RecordSpawn || rec.HP != rec.HPEnd || rec.Loc != rec.LocEnd || rec.Player != core.Player2 {
		t.Errorf("unexpected spawn record %+v", rec)
	}
	if rec.Target == nil || *rec.Target != core.L(8, 4) {
		t.Errorf("spawn target = %v, expected its location", rec.Target)
	}

	// Turn 1 is not a spawn turn with spawn_every 10.
	old := next(1)
	records = r.Capture(old, Actions{core.L(0, 4): Guard(), core.L(8, 4): Guard()}, next(2))
	for _, rec := range records {
		if rec.Name == RecordSpawn {
			t.Errorf("spawn record on a non-spawn turn: %+v", rec)
		}
	}
}

func TestTerminalFromLastTurn(t *testing.T) {
	last := TurnRecords{
		core.L(1, 1): {Name: "move", HP: 50, HPEnd: 48, Loc: core.L(1, 1), LocEnd: core.L(1, 2), Player: core.Player1},
		core.L(4, 4): {Name: "guard", HP: 3, HPEnd: 0, Loc: core.L(4, 4), LocEnd: core.L(4, 4), Player: core.Player2},
	}

	term := Terminal(last)
	if len(term) != 2 {
		t.Fatalf("got %d terminal records, expected 2", len(term))
	}
	rec, ok := term[core.L(1, 2)]
	if !ok {
		t.Fatal("terminal records must be keyed by end location")
	}
	if rec.Name != RecordIdle || rec.Target != nil || rec.HP != 48 || rec.HPEnd != 48 || rec.Loc != core.L(1, 2) {
		t.Errorf("unexpected terminal record %+v", rec)
	}
}

func TestHistorySplitsByPlayer(t *testing.T) {
	r := NewRecorder(testSettings(t, 10))
	state := testState(t)
	actions := Actions{}
	for _, l := range state.Locs() {
		actions[l] = Guard()
	}
	actions[core.L(7, 1)] = Attack(core.L(6, 1))

	h := r.History(state, actions)
	if len(h[0]) != 2 || len(h[1]) != 2 {
		t.Fatalf("history sizes = %d/%d, expected 2/2", len(h[0]), len(h[1]))
	}
	first := h[1][0]
	if first.Action.Kind() != ActionAttack {
		t.Errorf("P2's first robot action = %v, expected attack", first.Action)
	}
	if first.Attrs["robot_id"] != 3 || first.Attrs["hp"] != 50 {
		t.Errorf("history attrs = %v", first.Attrs)
	}
}
