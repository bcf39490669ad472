// Package arena runs robot matches concurrently on behalf of spectators.
// A coordinator starts matches in the background, feeds every played turn
// to subscribed sessions and hands finished results to an optional saver.
package arena

import (
	"time"

	"github.com/vovakirdan/robot-arena/internal/core"
	"github.com/vovakirdan/robot-arena/internal/game"
)

// SessionID identifies a spectator (an SSH connection, a websocket).
type SessionID string

// MatchID uniquely identifies a match.
type MatchID string

// EndReason describes why a match ended.
type EndReason string

const (
	EndCompleted  EndReason = "completed"
	EndWorldFault EndReason = "world_fault"
	EndCancelled  EndReason = "cancelled"
)

// MatchRequest describes a match to start.
type MatchRequest struct {
	Agent1   string `json:"agent1"`
	Agent2   string `json:"agent2"`
	Seed     int64  `json:"seed,omitempty"`
	MaxTurns int    `json:"max_turns,omitempty"`
}

// MatchResult contains the outcome of a finished match.
type MatchResult struct {
	MatchID   MatchID       `json:"match_id"`
	Seed      int64         `json:"seed"`
	Agents    [2]string     `json:"agents"`
	Scores    [2]int        `json:"scores"`
	Winner    string        `json:"winner"`
	Turns     int           `json:"turns"`
	EndReason EndReason     `json:"end_reason"`
	Error     string        `json:"error,omitempty"`
	Faults    [2]int        `json:"faults"`
	Duration  time.Duration `json:"duration"`
}

// WinnerOf names the player with more robots, or "" on a tie.
func WinnerOf(scores [2]int) string {
	switch {
	case scores[0] > scores[1]:
		return core.Player1.String()
	case scores[1] > scores[0]:
		return core.Player2.String()
	default:
		return ""
	}
}

// MatchResultSaver persists finished matches.
// This allows the coordinator to save results without depending on the storage package.
type MatchResultSaver interface {
	SaveMatchResult(result MatchResult) error
}

// TurnSaver persists the records of every played turn.
type TurnSaver interface {
	SaveTurn(matchID string, turn int, records game.TurnRecords) error
}

// MatchInfo is a point-in-time summary of a match.
type MatchInfo struct {
	ID      MatchID      `json:"id"`
	Agents  [2]string    `json:"agents"`
	Seed    int64        `json:"seed"`
	Turn    int          `json:"turn"`
	Scores  [2]int       `json:"scores"`
	Over    bool         `json:"over"`
	Created time.Time    `json:"created_at"`
	Result  *MatchResult `json:"result,omitempty"`
}
