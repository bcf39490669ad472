package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/robot-arena/internal/game"
	"github.com/vovakirdan/robot-arena/internal/replay"
)

var flagReplayTurn int

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Print a recorded replay",
	Long: `Print the header and a per-turn summary of a replay written by
'arena run --replay' or 'arena serve --replay-dir'.

Examples:
  arena replay out.jsonl.zst
  arena replay out.jsonl.zst --turn 10`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().IntVar(&flagReplayTurn, "turn", -1, "Print the records of one turn")
}

func runReplay(_ *cobra.Command, args []string) error {
	r, err := replay.ReadFile(args[0])
	if err != nil {
		return err
	}
	h := r.Header

	if flagReplayTurn >= 0 {
		records, ok := r.Records(flagReplayTurn)
		if !ok {
			return fmt.Errorf("turn %d is not in the replay (%d turns recorded)", flagReplayTurn, len(r.Turns))
		}
		printRecords(flagReplayTurn, records)
		return nil
	}

	fmt.Printf("Replay %s\n", h.MatchID)
	fmt.Println()
	fmt.Printf("  Agents:  %s (P1) vs %s (P2)\n", h.Agents[0], h.Agents[1])
	fmt.Printf("  Seed:    %d\n", h.Seed)
	fmt.Printf("  Turns:   %d of %d\n", len(r.Turns), h.MaxTurns)
	fmt.Printf("  Created: %s\n", h.Created.Format("2006-01-02 15:04:05"))
	fmt.Println()

	fmt.Printf("  %-5s  %-7s  %5s  %4s  %6s  %7s  %5s  %6s\n", "Turn", "Score", "Spawn", "Move", "Attack", "Suicide", "Guard", "Deaths")
	for _, t := range r.Turns {
		counts := make(map[string]int)
		deaths := 0
		for _, rec := range t.Records {
			counts[rec.Name]++
			if rec.Name != game.RecordSpawn && !rec.Survived() {
				deaths++
			}
		}
		fmt.Printf("  %-5d  %-7s  %5d  %4d  %6d  %7d  %5d  %6d\n",
			t.Turn, fmt.Sprintf("%d:%d", t.Scores[0], t.Scores[1]),
			counts[game.RecordSpawn], counts["move"], counts["attack"], counts["suicide"], counts["guard"], deaths)
	}

	if n := len(r.Turns); n > 0 {
		last := r.Turns[n-1].Scores
		fmt.Println()
		switch {
		case last[0] > last[1]:
			fmt.Printf("Winner: %s (P1) %d:%d\n", h.Agents[0], last[0], last[1])
		case last[1] > last[0]:
			fmt.Printf("Winner: %s (P2) %d:%d\n", h.Agents[1], last[0], last[1])
		default:
			fmt.Printf("Draw %d:%d\n", last[0], last[1])
		}
	}
	return nil
}
