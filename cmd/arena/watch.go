package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/robot-arena/internal/logging"
	"github.com/vovakirdan/robot-arena/internal/platform/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a match in the terminal",
	Long: `Play a match and watch it turn by turn.

Controls:
  Space      - Pause / resume
  Left/Right - Previous / next turn
  g / G      - First / last turn
  + / -      - Faster / slower
  Q/Ctrl+C   - Quit

In sync mode turns are played as the viewer asks for them; in pipelined
mode they are played in the background and the viewer waits for each.

Examples:
  arena watch --p1 hunter --p2 kamikaze
  arena watch --p1 random --p2 hunter --mode pipelined --seed 3`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	addMatchFlags(watchCmd)
}

func runWatch(_ *cobra.Command, _ []string) error {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("watch needs a terminal; use 'arena run' instead")
	}

	// Log lines would tear the alternate screen. They go to ARENA_WATCH_LOG
	// when set and are dropped otherwise.
	logger := logging.Discard()
	if path := os.Getenv("ARENA_WATCH_LOG"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if logger, err = logging.New(f, "arena", flagLogLevel); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, err := newLocalMatch(ctx, logger, "")
	if err != nil {
		return err
	}

	if w, h, err := term.GetSize(fd); err == nil {
		need := m.settings.Map.Size*3 + 2
		if w < need || h < m.settings.Map.Size+6 {
			return fmt.Errorf("terminal is %dx%d, the board needs at least %dx%d", w, h, need, m.settings.Map.Size+6)
		}
	}

	return tui.Run(m.game, m.names)
}
