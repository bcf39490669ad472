package game

import (
	"context"
	"errors"
	"fmt"
)

// Start plays the remaining turns on a background goroutine. Readers block
// on individual turns and wake as soon as each one is published. Starting
// while any run holds the run lock returns ErrAlreadyRunning; starting a
// finished game only returns its outcome.
//
// Cancelling ctx stops the run; readers of turns never played then get a
// *RunFailedError wrapping the cancellation.
func (g *Game) Start(ctx context.Context) error {
	select {
	case <-g.done:
		return g.Err()
	default:
	}
	select {
	case g.runSem <- struct{}{}:
	default:
		return ErrAlreadyRunning
	}

	g.logger.Info("match run started", "seed", g.seed, "max_turns", g.settings.MaxTurns)
	go func() {
		defer func() { <-g.runSem }()
		if err := g.runUntil(ctx, g.settings.MaxTurns, true); err != nil {
			return
		}
		g.logger.Info("match run finished", "scores", g.current.Load().Scores())
	}()
	return nil
}

// Done is closed when the game is over or its run has failed.
func (g *Game) Done() <-chan struct{} {
	return g.done
}

// Wait blocks until the game is over and returns the run's failure, if
// any. ctx only bounds the wait.
func (g *Game) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		return g.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the failure that stopped the run, or nil.
func (g *Game) Err() error {
	g.errMu.Lock()
	defer g.errMu.Unlock()
	return g.err
}

// runUntil plays turns until the records of turn exist or the game is
// over. The caller must hold the run lock. A synchronous caller whose ctx
// ends just stops; the game stays consistent and can be resumed. Any other
// error, or cancellation of a background run, fails the game for good.
func (g *Game) runUntil(ctx context.Context, turn int, background bool) error {
	if err := g.Err(); err != nil {
		return err
	}
	for cur := g.current.Load(); cur.Turn() < g.settings.MaxTurns && cur.Turn() <= turn; cur = g.current.Load() {
		err := ctx.Err()
		if err == nil {
			err = g.step(ctx)
		}
		if err == nil {
			continue
		}
		if isCancellation(err) && ctx.Err() != nil {
			if !background {
				return err
			}
			err = fmt.Errorf("run cancelled at turn %d: %w", cur.Turn(), err)
		}
		return g.fail(err)
	}
	if g.Over() {
		g.finish()
	}
	return nil
}

// step plays one turn and publishes it.
func (g *Game) step(ctx context.Context) error {
	old := g.current.Load()
	actions, err := g.collector.Collect(ctx, old, g.agents)
	if err != nil {
		return err
	}
	next, err := g.engine.Apply(old, actions)
	if err != nil {
		return err
	}
	records := g.recorder.Capture(old, actions, next)

	g.current.Store(next)
	if g.history != nil {
		if err := g.history.Write(old.Turn(), g.recorder.History(old, actions)); err != nil {
			return err
		}
	}
	if err := g.states.Write(next.Turn(), next); err != nil {
		return err
	}
	if err := g.actions.Write(old.Turn(), records); err != nil {
		return err
	}

	g.logger.Debug("turn played", "turn", old.Turn(), "robots", next.Len(), "scores", next.Scores())
	g.notify(TurnEvent{Turn: old.Turn(), Records: records, State: next})
	return nil
}

// finish publishes the idle turn after the last one and closes Done.
func (g *Game) finish() {
	g.terminalOnce.Do(func() {
		last, status := g.actions.Peek(g.settings.MaxTurns - 1)
		if status != SlotReady {
			return
		}
		if err := g.actions.Write(g.settings.MaxTurns, Terminal(last)); err != nil {
			g.logger.Error("cannot publish final turn", "error", err)
		}
	})
	g.doneOnce.Do(func() { close(g.done) })
}

// fail records err as the run's outcome and wakes every blocked reader.
func (g *Game) fail(err error) error {
	g.errMu.Lock()
	if g.err == nil {
		g.err = err
	}
	err = g.err
	g.errMu.Unlock()

	g.logger.Error("match run failed", "turn", g.current.Load().Turn(), "error", err)
	g.states.Fail(err)
	g.actions.Fail(err)
	if g.history != nil {
		g.history.Fail(err)
	}
	g.doneOnce.Do(func() { close(g.done) })
	return err
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
