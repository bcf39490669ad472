package game

import (
	"context"
	"maps"
	"slices"

	"github.com/vovakirdan/robot-arena/internal/config"
	"github.com/vovakirdan/robot-arena/internal/core"
)

// Agent decides actions for the robots of one player.
//
// Decide is called once per live robot per turn. Implementations may return
// an error, panic, return an action the world rejects, or block; the
// collector turns every such case into Guard for that robot. A decision
// abandoned on timeout may still be running when the next one starts, so
// stateful agents must guard their own fields.
type Agent interface {
	Decide(ctx context.Context, self RobotView, info GameInfo) (Action, error)
}

// AgentFunc adapts a plain function to the Agent interface.
type AgentFunc func(ctx context.Context, self RobotView, info GameInfo) (Action, error)

// Decide calls f.
func (f AgentFunc) Decide(ctx context.Context, self RobotView, info GameInfo) (Action, error) {
	return f(ctx, self, info)
}

// Board is the read-only map geometry agents may consult.
type Board interface {
	InBounds(l core.Loc) bool
	IsObstacle(l core.Loc) bool
	IsSpawn(l core.Loc) bool
	Center() core.Loc
}

// RobotInfo is what an agent can see of one robot. Which attributes are
// present depends on the exposure settings and on who owns the robot.
type RobotInfo struct {
	loc   core.Loc
	attrs map[string]any
}

// Location returns where the robot stands. Always known.
func (r RobotInfo) Location() core.Loc {
	return r.loc
}

// Attr returns a visible attribute by property name.
func (r RobotInfo) Attr(name string) (any, bool) {
	v, ok := r.attrs[name]
	return v, ok
}

// HP returns the robot's hit points if visible.
func (r RobotInfo) HP() (int, bool) {
	v, ok := r.attrs[config.PropHP].(int)
	return v, ok
}

// Player returns the owning player if visible.
func (r RobotInfo) Player() (core.PlayerID, bool) {
	v, ok := r.attrs[config.PropPlayerID].(core.PlayerID)
	return v, ok
}

// RobotID returns the robot ID if visible.
func (r RobotInfo) RobotID() (int, bool) {
	v, ok := r.attrs[config.PropRobotID].(int)
	return v, ok
}

// RobotView is the robot an agent is currently deciding for, with every
// exposed and player-only attribute, plus a seed for randomized agents.
type RobotView struct {
	RobotInfo
	Seed int64
}

// GameInfo is one player's snapshot of the board. Every decision gets its
// own copy, so an agent mutating it affects nothing else.
type GameInfo struct {
	Turn   int
	Player core.PlayerID
	Robots map[core.Loc]RobotInfo
	Board  Board
}

// At returns the robot at l, if visible.
func (g GameInfo) At(l core.Loc) (RobotInfo, bool) {
	r, ok := g.Robots[l]
	return r, ok
}

// Enemies returns the robots known to belong to the other player, in
// row-major order.
func (g GameInfo) Enemies() []RobotInfo {
	return g.filter(func(p core.PlayerID) bool { return p != g.Player })
}

// Allies returns the player's own robots, in row-major order.
func (g GameInfo) Allies() []RobotInfo {
	return g.filter(func(p core.PlayerID) bool { return p == g.Player })
}

func (g GameInfo) filter(keep func(core.PlayerID) bool) []RobotInfo {
	locs := slices.SortedFunc(maps.Keys(g.Robots), compareLocs)
	var out []RobotInfo
	for _, l := range locs {
		r := g.Robots[l]
		if p, ok := r.Player(); ok && keep(p) {
			out = append(out, r)
		}
	}
	return out
}

// board is a read-only copy of the map geometry. Agents only see it
// through the Board interface and cannot reach the settings it came from.
type board struct {
	size      int
	center    core.Loc
	obstacles map[core.Loc]bool
	spawns    map[core.Loc]bool
}

func newBoard(m *config.Map) *board {
	b := &board{
		size:      m.Size,
		center:    m.Center(),
		obstacles: make(map[core.Loc]bool, len(m.Obstacle)),
		spawns:    make(map[core.Loc]bool, len(m.Spawn)),
	}
	for _, l := range m.Obstacle {
		b.obstacles[l] = true
	}
	for _, l := range m.Spawn {
		b.spawns[l] = true
	}
	return b
}

func (b *board) InBounds(l core.Loc) bool {
	return l.X >= 0 && l.Y >= 0 && l.X < b.size && l.Y < b.size
}

func (b *board) IsObstacle(l core.Loc) bool {
	return !b.InBounds(l) || b.obstacles[l]
}

func (b *board) IsSpawn(l core.Loc) bool {
	return b.spawns[l]
}

func (b *board) Center() core.Loc {
	return b.center
}

// NewGameInfo builds a fresh snapshot of s as seen by player. Enemy robots
// carry only the exposed properties; the player's own robots also carry
// the player-only ones.
func NewGameInfo(s *State, player core.PlayerID, settings *config.Settings) GameInfo {
	return newGameInfo(s, player, settings, newBoard(&settings.Map))
}

func newGameInfo(s *State, player core.PlayerID, settings *config.Settings, b *board) GameInfo {
	info := GameInfo{
		Turn:   s.turn,
		Player: player,
		Robots: make(map[core.Loc]RobotInfo, len(s.robots)),
		Board:  b,
	}
	for l, r := range s.robots {
		info.Robots[l] = robotInfo(r, settings, r.Player == player)
	}
	return info
}

func newRobotView(r Robot, settings *config.Settings, seed int64) RobotView {
	return RobotView{RobotInfo: robotInfo(r, settings, true), Seed: seed}
}

func robotInfo(r Robot, settings *config.Settings, own bool) RobotInfo {
	info := RobotInfo{loc: r.Loc, attrs: make(map[string]any, 4)}
	for _, name := range settings.ExposedProperties {
		if v, ok := r.Attr(name); ok {
			info.attrs[name] = v
		}
	}
	if own {
		for _, name := range settings.PlayerOnlyProperties {
			if v, ok := r.Attr(name); ok {
				info.attrs[name] = v
			}
		}
	}
	return info
}
