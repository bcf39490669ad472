package arena

import (
	"context"
	"errors"
	"sync"
)

// ErrSessionClosed is returned by Next once the session was closed.
var ErrSessionClosed = errors.New("arena: session closed")

// SessionHandle is the transport-neutral interface for communicating with a session.
// It allows matches to send events without depending on Wish, Bubble Tea or websockets.
type SessionHandle interface {
	// ID returns the unique session identifier.
	ID() SessionID

	// Send sends an event to the session asynchronously.
	// Must be non-blocking.
	Send(evt SessionEvent)

	// Done returns a channel that closes when the session ends.
	Done() <-chan struct{}
}

// TurnFetcher reads an already played turn again. Match implements it on
// top of the game's blocking reads.
type TurnFetcher interface {
	Turn(ctx context.Context, turn int) (TurnPlayedEvent, error)
}

// ChannelSession is a buffered SessionHandle for a single spectator.
//
// When the spectator falls behind and the buffer fills up, the session stops
// buffering turns and remembers where the gap starts. Next then fetches the
// missed turns one by one before handing out anything newer, so a slow
// spectator sees every turn exactly once and in order.
type ChannelSession struct {
	id       SessionID
	events   chan SessionEvent
	done     chan struct{}
	doneOnce sync.Once

	mu      sync.Mutex
	latest  int // highest turn sent
	lagFrom int // first turn not buffered, -1 while in sync
	ended   *MatchEndedEvent
}

// NewChannelSession creates a new channel-based session handle.
// eventBufferSize controls how many events are buffered before the session
// starts lagging.
func NewChannelSession(id SessionID, eventBufferSize int) *ChannelSession {
	if eventBufferSize < 1 {
		eventBufferSize = 64
	}
	return &ChannelSession{
		id:      id,
		events:  make(chan SessionEvent, eventBufferSize),
		done:    make(chan struct{}),
		latest:  -1,
		lagFrom: -1,
	}
}

// ID returns the session identifier.
func (s *ChannelSession) ID() SessionID {
	return s.id
}

// Send queues an event without blocking.
func (s *ChannelSession) Send(evt SessionEvent) {
	select {
	case <-s.done:
		return
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch e := evt.(type) {
	case TurnPlayedEvent:
		s.latest = max(s.latest, e.Turn)
		if s.lagFrom >= 0 {
			return
		}
		select {
		case s.events <- evt:
		default:
			s.lagFrom = e.Turn
		}
	case MatchEndedEvent:
		// The end goes out after every turn before it.
		if s.lagFrom >= 0 {
			s.ended = &e
			return
		}
		select {
		case s.events <- evt:
		default:
			s.ended = &e
		}
	default:
		select {
		case s.events <- evt:
		default:
		}
	}
}

// Next returns the next event for the spectator. Buffered events come
// first, then turns missed while lagging are fetched from turns, then a held
// back end event. Otherwise it blocks until an event arrives, the session is
// closed or ctx is done.
func (s *ChannelSession) Next(ctx context.Context, turns TurnFetcher) (SessionEvent, error) {
	for {
		select {
		case evt := <-s.events:
			return evt, nil
		default:
		}

		if turn, ok := s.lagging(); ok {
			evt, err := turns.Turn(ctx, turn)
			if err == nil {
				s.caughtUp(turn)
				return evt, nil
			}
			if ctx.Err() != nil {
				return nil, err
			}
			// The run failed before this turn; only the end is left.
			s.stopLagging()
			continue
		}

		if evt, ok := s.takeEnded(); ok {
			return evt, nil
		}

		select {
		case evt := <-s.events:
			return evt, nil
		case <-s.done:
			return nil, ErrSessionClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *ChannelSession) lagging() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lagFrom, s.lagFrom >= 0
}

func (s *ChannelSession) caughtUp(turn int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lagFrom = turn + 1
	if s.lagFrom > s.latest {
		s.lagFrom = -1
	}
}

func (s *ChannelSession) stopLagging() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lagFrom = -1
}

func (s *ChannelSession) takeEnded() (MatchEndedEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended == nil {
		return MatchEndedEvent{}, false
	}
	evt := *s.ended
	s.ended = nil
	return evt, true
}

// Done returns the done channel.
func (s *ChannelSession) Done() <-chan struct{} {
	return s.done
}

// Close marks the session as done.
// Safe to call multiple times.
func (s *ChannelSession) Close() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}
