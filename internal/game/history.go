package game

import (
	"maps"
	"slices"

	"github.com/vovakirdan/robot-arena/internal/config"
	"github.com/vovakirdan/robot-arena/internal/core"
)

// Record names that are not robot actions.
const (
	RecordSpawn = "spawn"
	RecordIdle  = ""
)

// TurnRecord is the outcome of one robot's turn.
type TurnRecord struct {
	Name   string        `json:"name"`
	Target *core.Loc     `json:"target"`
	HP     int           `json:"hp"`
	HPEnd  int           `json:"hp_end"`
	Loc    core.Loc      `json:"loc"`
	LocEnd core.Loc      `json:"loc_end"`
	Player core.PlayerID `json:"player"`
}

// Survived reports whether the robot was alive at the end of the turn.
func (r TurnRecord) Survived() bool {
	return r.HPEnd > 0
}

// TurnRecords holds every record of one turn, keyed by start location.
type TurnRecords map[core.Loc]TurnRecord

// Sorted returns the records in row-major order of their start location.
func (r TurnRecords) Sorted() []TurnRecord {
	out := make([]TurnRecord, 0, len(r))
	for _, l := range slices.SortedFunc(maps.Keys(r), compareLocs) {
		out = append(out, r[l])
	}
	return out
}

// RecordsOf indexes records by their start location.
func RecordsOf(records []TurnRecord) TurnRecords {
	out := make(TurnRecords, len(records))
	for _, rec := range records {
		out[rec.Loc] = rec
	}
	return out
}

// HistoryEntry is a robot as it was when it chose its action.
type HistoryEntry struct {
	Attrs  map[string]any `json:"attrs"`
	Action Action         `json:"action"`
}

// Recorder turns applied actions into turn records.
type Recorder struct {
	settings *config.Settings
}

// NewRecorder creates a recorder for the given settings.
func NewRecorder(settings *config.Settings) *Recorder {
	return &Recorder{settings: settings}
}

// Capture builds the records of the turn that led from old to next.
// A move only counts if the same robot is standing on the destination
// afterwards; a robot not found at its end location did not survive.
func (r *Recorder) Capture(old *State, actions Actions, next *State) TurnRecords {
	records := make(TurnRecords, old.Len())
	sameRobot := func(robot Robot, at core.Loc) (Robot, bool) {
		n, ok := next.RobotAt(at)
		return n, ok && n.ID == robot.ID
	}

	for _, robot := range old.Robots() {
		a := actions[robot.Loc]
		rec := TurnRecord{
			Name:   a.Name(),
			HP:     robot.HP,
			Loc:    robot.Loc,
			LocEnd: robot.Loc,
			Player: robot.Player,
		}
		if t, ok := a.Target(); ok {
			rec.Target = &t
		}
		if dest, ok := a.Target(); ok && a.Kind() == ActionMove {
			if _, moved := sameRobot(robot, dest); moved {
				rec.LocEnd = dest
			}
		}
		if n, ok := sameRobot(robot, rec.LocEnd); ok {
			rec.HPEnd = n.HP
		}
		records[robot.Loc] = rec
	}

	if r.settings.IsSpawnTurn(old.Turn()) {
		for _, robot := range next.Robots() {
			if !r.settings.Map.IsSpawn(robot.Loc) {
				continue
			}
			target := robot.Loc
			records[robot.Loc] = TurnRecord{
				Name:   RecordSpawn,
				Target: &target,
				HP:     robot.HP,
				HPEnd:  robot.HP,
				Loc:    robot.Loc,
				LocEnd: robot.Loc,
				Player: robot.Player,
			}
		}
	}
	return records
}

// History snapshots every robot of old with the action it took, split by
// player.
func (r *Recorder) History(old *State, actions Actions) [2][]HistoryEntry {
	var out [2][]HistoryEntry
	for _, robot := range old.Robots() {
		e := HistoryEntry{Attrs: make(map[string]any)}
		for _, name := range r.settings.AllProperties() {
			if v, ok := robot.Attr(name); ok {
				e.Attrs[name] = v
			}
		}
		e.Action = actions[robot.Loc]
		out[robot.Player] = append(out[robot.Player], e)
	}
	return out
}

// Terminal builds the idle records shown for the turn after the last one:
// every robot stays where the last turn left it. Records are keyed by end
// location; a survivor wins over a dead robot on the same square.
func Terminal(last TurnRecords) TurnRecords {
	out := make(TurnRecords, len(last))
	for _, rec := range last {
		if prev, ok := out[rec.LocEnd]; ok && prev.Survived() {
			continue
		}
		out[rec.LocEnd] = TurnRecord{
			Name:   RecordIdle,
			HP:     rec.HPEnd,
			HPEnd:  rec.HPEnd,
			Loc:    rec.LocEnd,
			LocEnd: rec.LocEnd,
			Player: rec.Player,
		}
	}
	return out
}
