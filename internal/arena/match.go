package arena

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/robot-arena/internal/game"
	"github.com/vovakirdan/robot-arena/internal/replay"
)

// Match is a game running in the background plus the spectators
// subscribed to it.
type Match struct {
	id      MatchID
	agents  [2]string
	game    *game.Game
	created time.Time
	logger  *log.Logger
	replay  *replay.Writer // optional

	mu       sync.RWMutex
	sessions map[SessionID]SessionHandle
	result   *MatchResult

	cancel   context.CancelFunc
	done     chan struct{}
	finished time.Time
}

func newMatch(id MatchID, agents [2]string, g *game.Game, cancel context.CancelFunc, logger *log.Logger) *Match {
	return &Match{
		id:       id,
		agents:   agents,
		game:     g,
		created:  time.Now(),
		logger:   logger,
		sessions: make(map[SessionID]SessionHandle),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// ID returns the match identifier.
func (m *Match) ID() MatchID {
	return m.id
}

// Agents returns the agent IDs playing P1 and P2.
func (m *Match) Agents() [2]string {
	return m.agents
}

// Game exposes the underlying game for blocking reads of any turn.
func (m *Match) Game() *game.Game {
	return m.game
}

// Done is closed once the result is available.
func (m *Match) Done() <-chan struct{} {
	return m.done
}

// Result returns the outcome once the match has ended.
func (m *Match) Result() (MatchResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.result == nil {
		return MatchResult{}, false
	}
	return *m.result, true
}

// Info returns a summary of the match as it is right now.
func (m *Match) Info() MatchInfo {
	cur := m.game.Current()
	info := MatchInfo{
		ID:      m.id,
		Agents:  m.agents,
		Seed:    m.game.Seed(),
		Turn:    cur.Turn(),
		Scores:  cur.Scores(),
		Over:    m.game.Over(),
		Created: m.created,
	}
	if r, ok := m.Result(); ok {
		info.Result = &r
	}
	return info
}

// Subscribe adds a spectator. It receives a MatchStartedEvent right away,
// then every turn played from now on. A spectator joining a finished
// match only gets the end event.
func (m *Match) Subscribe(s SessionHandle) {
	s.Send(MatchStartedEvent{
		MatchID:  m.id,
		Agents:   m.agents,
		Seed:     m.game.Seed(),
		MaxTurns: m.game.Settings().MaxTurns,
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.result != nil {
		s.Send(MatchEndedEvent{Result: *m.result})
		return
	}
	m.sessions[s.ID()] = s
}

// Unsubscribe removes a spectator.
func (m *Match) Unsubscribe(id SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// SessionCount returns the number of subscribed spectators.
func (m *Match) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Stop cancels the background run. Turns not yet played fail for every
// reader and the match ends as cancelled.
func (m *Match) Stop() {
	m.cancel()
}

func (m *Match) broadcast(evt SessionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		select {
		case <-s.Done():
			delete(m.sessions, id)
			continue
		default:
		}
		s.Send(evt)
	}
}

// Turn reads a played turn through the game's blocking reads. It waits
// for the turn if it has not been played yet.
func (m *Match) Turn(ctx context.Context, turn int) (TurnPlayedEvent, error) {
	records, err := m.game.ActionsOnTurn(ctx, turn)
	if err != nil {
		return TurnPlayedEvent{}, err
	}
	next, err := m.game.State(ctx, turn+1)
	if err != nil {
		return TurnPlayedEvent{}, err
	}
	return TurnPlayedEvent{
		MatchID: m.id,
		Turn:    turn,
		Scores:  next.Scores(),
		Records: records.Sorted(),
	}, nil
}

// feed reads every turn in order, fans it out to spectators and hands it
// to the saver. It returns when the last turn was read or the run failed.
func (m *Match) feed(turns TurnSaver) {
	ctx := context.Background()
	last := m.game.Settings().MaxTurns - 1
	for turn := 0; turn <= last; turn++ {
		evt, err := m.Turn(ctx, turn)
		if err != nil {
			return
		}
		if turns != nil {
			if err := turns.SaveTurn(string(m.id), turn, game.RecordsOf(evt.Records)); err != nil {
				m.logger.Warn("cannot save turn", "match", m.id, "turn", turn, "error", err)
			}
		}
		m.broadcast(evt)
	}
}

// run feeds spectators until the game ends, then publishes the result.
func (m *Match) run(turns TurnSaver, results MatchResultSaver) MatchResult {
	m.feed(turns)
	err := m.game.Wait(context.Background())
	m.cancel()

	if m.replay != nil {
		if cerr := m.replay.Close(); cerr != nil {
			m.logger.Warn("cannot close replay", "match", m.id, "error", cerr)
		}
	}

	cur := m.game.Current()
	result := MatchResult{
		MatchID:   m.id,
		Seed:      m.game.Seed(),
		Agents:    m.agents,
		Scores:    cur.Scores(),
		Winner:    WinnerOf(cur.Scores()),
		Turns:     cur.Turn(),
		EndReason: EndCompleted,
		Faults:    m.game.Faults(),
		Duration:  time.Since(m.created),
	}
	if err != nil {
		result.EndReason = EndWorldFault
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result.EndReason = EndCancelled
		}
		result.Error = err.Error()
	}

	if results != nil {
		if err := results.SaveMatchResult(result); err != nil {
			m.logger.Error("cannot save match result", "match", m.id, "error", err)
		}
	}

	m.mu.Lock()
	m.result = &result
	m.finished = time.Now()
	m.mu.Unlock()

	m.broadcast(MatchEndedEvent{Result: result})
	close(m.done)

	m.logger.Info("match ended", "match", m.id, "reason", result.EndReason,
		"scores", result.Scores, "winner", result.Winner, "faults", result.Faults)
	return result
}

func (m *Match) finishedAt() (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.finished, m.result != nil
}
