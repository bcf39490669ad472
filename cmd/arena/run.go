package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/robot-arena/internal/arena"
	"github.com/vovakirdan/robot-arena/internal/config"
	"github.com/vovakirdan/robot-arena/internal/game"
	"github.com/vovakirdan/robot-arena/internal/registry"
	"github.com/vovakirdan/robot-arena/internal/replay"
	"github.com/vovakirdan/robot-arena/internal/rules"
	"github.com/vovakirdan/robot-arena/internal/storage"
)

const (
	modeSync      = "sync"
	modePipelined = "pipelined"
)

var (
	flagP1     string
	flagP2     string
	flagMode   string
	flagReplay string
	flagSave   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play a match headless",
	Long: `Play a match between two agents without a UI and print the result.

Modes:
  sync       - turns are played on demand while the result is read
  pipelined  - turns are played in the background while they are read

Both modes give identical matches for the same seed.

Examples:
  arena run --p1 hunter --p2 guard
  arena run --p1 random --p2 kamikaze --seed 7 --turns 50
  arena run --p1 hunter --p2 random --mode pipelined --replay match.jsonl.zst
  arena run --p1 hunter --p2 random --save`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	addMatchFlags(runCmd)
	runCmd.Flags().StringVar(&flagReplay, "replay", "", "Write a replay to this file")
	runCmd.Flags().BoolVar(&flagSave, "save", false, "Save the result to the database")
}

func addMatchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagP1, "p1", "hunter", "Agent playing P1")
	cmd.Flags().StringVar(&flagP2, "p2", "random", "Agent playing P2")
	cmd.Flags().StringVar(&flagMode, "mode", modeSync, "Execution mode: sync or pipelined")
}

// localMatch is a match played in this process.
type localMatch struct {
	id       string
	settings *config.Settings
	game     *game.Game
	names    [2]string
	replay   *replay.Writer
	started  time.Time
}

// newLocalMatch builds a match from the global and match flags. The game
// is started in the background in pipelined mode.
func newLocalMatch(ctx context.Context, logger *log.Logger, replayPath string) (*localMatch, error) {
	if flagMode != modeSync && flagMode != modePipelined {
		return nil, fmt.Errorf("unknown mode %q, expected %s or %s", flagMode, modeSync, modePipelined)
	}
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	agents, err := registry.CreatePair(flagP1, flagP2)
	if err != nil {
		return nil, fmt.Errorf("%w (run 'arena list' to see available agents)", err)
	}
	world := rules.New(settings)
	initial, err := world.InitialState()
	if err != nil {
		return nil, err
	}

	m := &localMatch{
		id:       uuid.NewString(),
		settings: settings,
		names:    [2]string{flagP1, flagP2},
		started:  time.Now(),
	}
	opts := []game.Option{game.WithLogger(logger)}
	if replayPath != "" {
		m.replay, err = replay.Create(replayPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, game.WithTurnHook(m.replay.Hook(logger)))
	}

	m.game, err = game.New(settings, world, initial, agents, opts...)
	if err != nil {
		m.close(logger)
		return nil, err
	}
	if m.replay != nil {
		err := m.replay.WriteHeader(replay.Header{
			MatchID:  m.id,
			Seed:     m.game.Seed(),
			MaxTurns: settings.MaxTurns,
			Agents:   m.names,
		})
		if err != nil {
			m.close(logger)
			return nil, err
		}
	}
	if flagMode == modePipelined {
		if err := m.game.Start(ctx); err != nil {
			m.close(logger)
			return nil, err
		}
	}
	return m, nil
}

func (m *localMatch) close(logger *log.Logger) {
	if m.replay == nil {
		return
	}
	if err := m.replay.Close(); err != nil {
		logger.Warn("cannot close replay", "error", err)
	}
	m.replay = nil
}

// result summarizes the match as it stands.
func (m *localMatch) result(runErr error) arena.MatchResult {
	cur := m.game.Current()
	r := arena.MatchResult{
		MatchID:   arena.MatchID(m.id),
		Seed:      m.game.Seed(),
		Agents:    m.names,
		Scores:    cur.Scores(),
		Winner:    arena.WinnerOf(cur.Scores()),
		Turns:     cur.Turn(),
		EndReason: arena.EndCompleted,
		Faults:    m.game.Faults(),
		Duration:  time.Since(m.started),
	}
	if runErr != nil {
		r.EndReason = arena.EndWorldFault
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			r.EndReason = arena.EndCancelled
		}
		r.Error = runErr.Error()
	}
	return r
}

func runRun(_ *cobra.Command, _ []string) error {
	logger, err := newLogger("arena")
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := newLocalMatch(ctx, logger, flagReplay)
	if err != nil {
		return err
	}
	defer m.close(logger)

	var store *storage.Store
	if flagSave {
		store, err = storage.Open(flagDBPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	logger.Info("match started", "p1", m.names[0], "p2", m.names[1], "seed", m.game.Seed(), "mode", flagMode)

	// The same reader loop serves both modes: in sync mode each read plays
	// the turn, in pipelined mode it waits for the background run.
	var runErr error
	for turn := 0; turn < m.settings.MaxTurns; turn++ {
		records, err := m.game.ActionsOnTurn(ctx, turn)
		if err != nil {
			runErr = err
			break
		}
		if store != nil {
			if err := store.SaveTurn(m.id, turn, records); err != nil {
				logger.Warn("cannot save turn", "turn", turn, "error", err)
			}
		}
		logger.Debug("turn read", "turn", turn, "records", len(records))
	}
	if runErr == nil {
		runErr = m.game.RunAll(ctx)
	}
	m.close(logger)

	r := m.result(runErr)
	printResult(r)
	if store != nil {
		if err := store.SaveMatchResult(r); err != nil {
			return err
		}
		fmt.Printf("\nSaved as %s\n", r.MatchID)
	}
	if runErr != nil {
		return fmt.Errorf("match stopped: %w", runErr)
	}
	return nil
}

func printResult(r arena.MatchResult) {
	fmt.Printf("Match %s\n", r.MatchID)
	fmt.Println()
	fmt.Printf("  %-6s  %-12s  %-6s  %s\n", "Side", "Agent", "Robots", "Faults")
	fmt.Printf("  %-6s  %-12s  %-6s  %s\n", "----", "-----", "------", "------")
	for i, side := range []string{"P1", "P2"} {
		fmt.Printf("  %-6s  %-12s  %-6d  %d\n", side, r.Agents[i], r.Scores[i], r.Faults[i])
	}
	fmt.Println()

	winner := "draw"
	if r.Winner != "" {
		winner = r.Winner
	}
	fmt.Printf("Winner: %s  (seed %d, %d turns, %s, %s)\n",
		winner, r.Seed, r.Turns, r.EndReason, r.Duration.Round(time.Millisecond))
	if r.Error != "" {
		fmt.Printf("Error: %s\n", r.Error)
	}
}
