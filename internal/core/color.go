package core

// Color represents a foreground color for a screen cell.
// The TUI maps these to ANSI 256-color codes.
type Color uint8

const (
	ColorDefault Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorGray
	ColorBrightRed
	ColorBrightBlue
	ColorBrightWhite
)

// PlayerColor returns the color a player's robots are drawn with.
func PlayerColor(p PlayerID) Color {
	if p == Player1 {
		return ColorRed
	}
	return ColorBlue
}
