package arena

import "github.com/vovakirdan/robot-arena/internal/game"

// SessionEvent represents an event sent from a match to a session.
type SessionEvent interface {
	sessionEvent()
}

// MatchStartedEvent is sent when a session subscribes to a match.
type MatchStartedEvent struct {
	MatchID  MatchID   `json:"match_id"`
	Agents   [2]string `json:"agents"`
	Seed     int64     `json:"seed"`
	MaxTurns int       `json:"max_turns"`
}

func (MatchStartedEvent) sessionEvent() {}

// TurnPlayedEvent carries one played turn.
type TurnPlayedEvent struct {
	MatchID MatchID           `json:"match_id"`
	Turn    int               `json:"turn"`
	Scores  [2]int            `json:"scores"`
	Records []game.TurnRecord `json:"records"`
}

func (TurnPlayedEvent) sessionEvent() {}

// MatchEndedEvent is sent when the match ends.
type MatchEndedEvent struct {
	Result MatchResult `json:"result"`
}

func (MatchEndedEvent) sessionEvent() {}

// EventType names an event for JSON transports.
func EventType(evt SessionEvent) string {
	switch evt.(type) {
	case MatchStartedEvent:
		return "match_started"
	case TurnPlayedEvent:
		return "turn"
	case MatchEndedEvent:
		return "match_ended"
	default:
		return "unknown"
	}
}
