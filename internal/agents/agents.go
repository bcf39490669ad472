// Package agents contains the built-in robot agents. Each registers itself
// with the registry on import.
package agents

import (
	"github.com/vovakirdan/robot-arena/internal/core"
	"github.com/vovakirdan/robot-arena/internal/game"
)

// adjacentEnemies returns the enemies next to l, in N, E, S, W order.
func adjacentEnemies(info game.GameInfo, l core.Loc) []game.RobotInfo {
	var out []game.RobotInfo
	for _, n := range l.Around() {
		r, ok := info.At(n)
		if !ok {
			continue
		}
		if p, ok := r.Player(); ok && p != info.Player {
			out = append(out, r)
		}
	}
	return out
}

// weakest returns the robot with the lowest known hp, first wins ties.
func weakest(robots []game.RobotInfo) game.RobotInfo {
	best := robots[0]
	bestHP, _ := best.HP()
	for _, r := range robots[1:] {
		if hp, ok := r.HP(); ok && hp < bestHP {
			best, bestHP = r, hp
		}
	}
	return best
}

// nearest returns the robot closest to l by walking distance.
func nearest(robots []game.RobotInfo, l core.Loc) (game.RobotInfo, bool) {
	if len(robots) == 0 {
		return game.RobotInfo{}, false
	}
	best := robots[0]
	for _, r := range robots[1:] {
		if l.WalkDist(r.Location()) < l.WalkDist(best.Location()) {
			best = r
		}
	}
	return best, true
}

// free reports whether a robot could step onto l.
func free(info game.GameInfo, l core.Loc) bool {
	if info.Board.IsObstacle(l) {
		return false
	}
	_, taken := info.At(l)
	return !taken
}

// stepToward returns a move that brings from closer to dest, preferring
// the direct step, or Guard when every closer square is blocked.
func stepToward(info game.GameInfo, from, dest core.Loc) game.Action {
	if from == dest {
		return game.Guard()
	}
	if next := from.Toward(dest); free(info, next) {
		return game.Move(next)
	}
	for _, n := range from.Around() {
		if n.WalkDist(dest) < from.WalkDist(dest) && free(info, n) {
			return game.Move(n)
		}
	}
	return game.Guard()
}
