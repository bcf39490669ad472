package core

// PlayerID identifies one side of a match. Matches always have exactly two.
type PlayerID int

const (
	Player1 PlayerID = 0
	Player2 PlayerID = 1
)

// Players lists both sides in order, handy for range loops.
var Players = [2]PlayerID{Player1, Player2}

// Opponent returns the other side.
func (p PlayerID) Opponent() PlayerID {
	return 1 - p
}

// Valid reports whether p is one of the two sides.
func (p PlayerID) Valid() bool {
	return p == Player1 || p == Player2
}

// String returns "P1" or "P2".
func (p PlayerID) String() string {
	switch p {
	case Player1:
		return "P1"
	case Player2:
		return "P2"
	default:
		return "P?"
	}
}
