package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/robot-arena/internal/game"
	"github.com/vovakirdan/robot-arena/internal/storage"
)

var (
	flagLimit     int
	flagStats     bool
	flagShowTurn  int
	errNoSuchTurn = errors.New("no records stored for that turn")
)

var matchesCmd = &cobra.Command{
	Use:   "matches [match-id]",
	Short: "Show stored match results",
	Long: `Show the most recent stored matches, one match in detail, or
per-agent statistics.

Examples:
  arena matches
  arena matches --limit 50
  arena matches --stats
  arena matches 1f0c... --turn 12`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMatches,
}

func init() {
	matchesCmd.Flags().IntVar(&flagLimit, "limit", 10, "Number of matches to list")
	matchesCmd.Flags().BoolVar(&flagStats, "stats", false, "Show per-agent statistics")
	matchesCmd.Flags().IntVar(&flagShowTurn, "turn", -1, "Print the records of one turn (with a match id)")
}

func runMatches(_ *cobra.Command, args []string) error {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		return fmt.Errorf("opening results database: %w", err)
	}
	defer store.Close()

	switch {
	case flagStats:
		return printStats(store)
	case len(args) == 1:
		return printMatch(store, args[0])
	}

	matches, err := store.RecentMatches(flagLimit)
	if err != nil {
		return err
	}

	fmt.Println("Recent Matches")
	fmt.Println()
	if len(matches) == 0 {
		fmt.Println("No matches recorded yet.")
		fmt.Println()
		fmt.Println("Play 'arena run --save' to record the first one!")
		return nil
	}

	fmt.Printf("  %-36s  %-22s  %-7s  %-6s  %-11s  %s\n", "Match", "Agents", "Score", "Winner", "End", "Date")
	fmt.Printf("  %-36s  %-22s  %-7s  %-6s  %-11s  %s\n", "-----", "------", "-----", "------", "---", "----")
	for _, m := range matches {
		winner := m.Winner
		if winner == "" {
			winner = "draw"
		}
		fmt.Printf("  %-36s  %-22s  %-7s  %-6s  %-11s  %s\n",
			m.MatchID,
			m.Player1Agent+" vs "+m.Player2Agent,
			fmt.Sprintf("%d:%d", m.Score1, m.Score2),
			winner,
			m.EndReason,
			m.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return nil
}

func printMatch(store *storage.Store, matchID string) error {
	m, err := store.MatchByID(matchID)
	if err != nil {
		return err
	}
	if m == nil {
		fmt.Fprintf(os.Stderr, "Error: unknown match %q\n", matchID)
		fmt.Fprintln(os.Stderr, "Run 'arena matches' to see stored matches.")
		os.Exit(1)
	}

	winner := m.Winner
	if winner == "" {
		winner = "draw"
	}
	fmt.Printf("Match %s\n", m.MatchID)
	fmt.Println()
	fmt.Printf("  Agents:   %s (P1) vs %s (P2)\n", m.Player1Agent, m.Player2Agent)
	fmt.Printf("  Seed:     %d\n", m.Seed)
	fmt.Printf("  Turns:    %d\n", m.Turns)
	fmt.Printf("  Score:    %d:%d (%s)\n", m.Score1, m.Score2, winner)
	fmt.Printf("  End:      %s\n", m.EndReason)
	fmt.Printf("  Faults:   %d / %d\n", m.Faults1, m.Faults2)
	fmt.Printf("  Duration: %s\n", m.Duration.Round(time.Millisecond))
	fmt.Printf("  Played:   %s\n", m.CreatedAt.Format("2006-01-02 15:04:05"))

	if flagShowTurn < 0 {
		return nil
	}
	records, err := store.TurnRecords(matchID, flagShowTurn)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("turn %d: %w", flagShowTurn, errNoSuchTurn)
	}
	fmt.Println()
	printRecords(flagShowTurn, records)
	return nil
}

func printStats(store *storage.Store) error {
	stats, err := store.AgentStats()
	if err != nil {
		return err
	}

	fmt.Println("Agent Statistics")
	fmt.Println()
	if len(stats) == 0 {
		fmt.Println("No completed matches recorded yet.")
		return nil
	}

	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("  %-12s  %7s  %4s  %6s  %5s  %10s  %s\n", "Agent", "Matches", "Wins", "Losses", "Draws", "Avg robots", "Last played")
	fmt.Printf("  %-12s  %7s  %4s  %6s  %5s  %10s  %s\n", "-----", "-------", "----", "------", "-----", "----------", "-----------")
	for _, name := range names {
		st := stats[name]
		fmt.Printf("  %-12s  %7d  %4d  %6d  %5d  %10.1f  %s\n",
			st.Agent, st.Matches, st.Wins, st.Losses, st.Draws, st.AvgScore,
			st.LastPlayed.Format("2006-01-02 15:04"))
	}
	return nil
}

// printRecords prints one turn's records in location order.
func printRecords(turn int, records game.TurnRecords) {
	fmt.Printf("Turn %d\n", turn)
	fmt.Printf("  %-3s  %-9s  %-8s  %-9s  %-9s  %s\n", "P", "Loc", "Action", "Target", "End", "HP")
	for _, r := range records.Sorted() {
		name := r.Name
		if name == "" {
			name = "-"
		}
		target := "-"
		if r.Target != nil {
			target = r.Target.String()
		}
		hp := fmt.Sprintf("%d->%d", r.HP, r.HPEnd)
		if !r.Survived() {
			hp += " (dead)"
		}
		fmt.Printf("  %-3s  %-9s  %-8s  %-9s  %-9s  %s\n", r.Player, r.Loc, name, target, r.LocEnd, hp)
	}
}
