package game

import (
	"context"
	"fmt"
	"sync"
)

// SlotStatus is the state of one turn slot.
type SlotStatus int

const (
	SlotPending SlotStatus = iota
	SlotReady
	SlotFailed
)

func (s SlotStatus) String() string {
	switch s {
	case SlotPending:
		return "pending"
	case SlotReady:
		return "ready"
	case SlotFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type slot[T any] struct {
	done   chan struct{}
	status SlotStatus
	value  T
}

// TurnStore is a fixed-size, write-once sequence of per-turn values.
// Readers block on a slot until the producer fills it or the run fails.
// Slot fields are only written before the slot's channel is closed, so a
// reader that saw the close can use them without locking.
type TurnStore[T any] struct {
	mu    sync.Mutex
	slots []slot[T]
	err   error
	ready int
}

// NewTurnStore creates a store for turns 0 through maxTurn inclusive.
func NewTurnStore[T any](maxTurn int) *TurnStore[T] {
	s := &TurnStore[T]{slots: make([]slot[T], max(maxTurn, 0)+1)}
	for i := range s.slots {
		s.slots[i].done = make(chan struct{})
	}
	return s
}

// MaxTurn returns the highest turn index the store holds.
func (s *TurnStore[T]) MaxTurn() int {
	return len(s.slots) - 1
}

// Write publishes the value for turn and wakes its readers.
func (s *TurnStore[T]) Write(turn int, v T) error {
	if turn < 0 || turn >= len(s.slots) {
		return fmt.Errorf("%w: write to turn %d, capacity %d", ErrOutOfRange, turn, len(s.slots))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sl := &s.slots[turn]
	switch sl.status {
	case SlotReady:
		return fmt.Errorf("%w: turn %d", ErrDuplicateWrite, turn)
	case SlotFailed:
		return &RunFailedError{Err: s.err}
	}
	sl.value = v
	sl.status = SlotReady
	s.ready++
	close(sl.done)
	return nil
}

// Fail marks every pending slot as failed with err and wakes all readers
// waiting on them. Slots already written stay readable.
func (s *TurnStore[T]) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return
	}
	s.err = err
	for i := range s.slots {
		if s.slots[i].status == SlotPending {
			s.slots[i].status = SlotFailed
			close(s.slots[i].done)
		}
	}
}

// Read blocks until turn is available. Out-of-range turns are clamped to
// the first and last slot. ctx only stops this reader from waiting.
func (s *TurnStore[T]) Read(ctx context.Context, turn int) (T, error) {
	return s.wait(ctx, min(max(turn, 0), len(s.slots)-1))
}

// ReadRaw is Read without clamping: a turn outside the store is an error
// instead of a wait.
func (s *TurnStore[T]) ReadRaw(ctx context.Context, turn int) (T, error) {
	if turn < 0 || turn >= len(s.slots) {
		var zero T
		return zero, fmt.Errorf("%w: read of turn %d, capacity %d", ErrOutOfRange, turn, len(s.slots))
	}
	return s.wait(ctx, turn)
}

func (s *TurnStore[T]) wait(ctx context.Context, turn int) (T, error) {
	sl := &s.slots[turn]
	select {
	case <-sl.done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	if sl.status == SlotFailed {
		var zero T
		s.mu.Lock()
		err := s.err
		s.mu.Unlock()
		return zero, &RunFailedError{Err: err}
	}
	return sl.value, nil
}

// Done returns a channel closed once turn is written or failed. Turns
// outside the store are clamped.
func (s *TurnStore[T]) Done(turn int) <-chan struct{} {
	return s.slots[min(max(turn, 0), len(s.slots)-1)].done
}

// Peek returns the slot without blocking.
func (s *TurnStore[T]) Peek(turn int) (T, SlotStatus) {
	var zero T
	if turn < 0 || turn >= len(s.slots) {
		return zero, SlotPending
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := &s.slots[turn]
	if sl.status != SlotReady {
		return zero, sl.status
	}
	return sl.value, SlotReady
}

// Ready returns how many slots have been written.
func (s *TurnStore[T]) Ready() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Err returns the failure passed to Fail, if any.
func (s *TurnStore[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
