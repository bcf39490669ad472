// Package core provides fundamental types shared by the arena packages:
// board coordinates, player identities and a character screen buffer.
// It has no external dependencies so rules and agents stay pure and testable.
package core

import (
	"fmt"
	"math"
)

// Loc is a board coordinate. X grows to the right, Y grows downwards.
type Loc struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// L is shorthand for Loc{X: x, Y: y}.
func L(x, y int) Loc {
	return Loc{X: x, Y: y}
}

// String returns the location as "(x,y)".
func (l Loc) String() string {
	return fmt.Sprintf("(%d,%d)", l.X, l.Y)
}

// Add returns the location offset by (dx, dy).
func (l Loc) Add(dx, dy int) Loc {
	return Loc{X: l.X + dx, Y: l.Y + dy}
}

// Dist returns the euclidean distance between two locations.
func (l Loc) Dist(other Loc) float64 {
	dx := float64(l.X - other.X)
	dy := float64(l.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// WalkDist returns the manhattan distance between two locations.
// Robots move one square per turn, so this is the number of turns a walk takes.
func (l Loc) WalkDist(other Loc) int {
	return Abs(l.X-other.X) + Abs(l.Y-other.Y)
}

// Around returns the four orthogonal neighbours in a fixed order (N, E, S, W).
func (l Loc) Around() []Loc {
	return []Loc{
		l.Add(0, -1),
		l.Add(1, 0),
		l.Add(0, 1),
		l.Add(-1, 0),
	}
}

// Toward returns the neighbour that brings l closest to dest.
// Ties prefer horizontal steps. Returns l when already at dest.
func (l Loc) Toward(dest Loc) Loc {
	if l == dest {
		return l
	}
	dx := dest.X - l.X
	dy := dest.Y - l.Y
	if Abs(dx) >= Abs(dy) {
		return l.Add(sign(dx), 0)
	}
	return l.Add(0, sign(dy))
}

// Less orders locations row-major (by Y, then X).
// Used wherever iteration order must be deterministic.
func (l Loc) Less(other Loc) bool {
	if l.Y != other.Y {
		return l.Y < other.Y
	}
	return l.X < other.X
}

// Clamp restricts a value to be within [min, max].
func Clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Abs returns the absolute value of an integer.
func Abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
