// arena runs robot battles between built-in agents on a square board.
//
// Usage:
//
//	arena list                      - List available agents
//	arena run --p1 a --p2 b         - Play a match headless and print the result
//	arena watch --p1 a --p2 b       - Watch a match in the terminal
//	arena serve                     - Start the HTTP API and SSH viewer
//	arena matches [id]              - Show stored match results
//	arena replay <file>             - Print a recorded replay
//
// Global flags:
//
//	--seed <value>     - RNG seed for a reproducible match (0 = time based)
//	--turns <n>        - Override the number of turns
//	--config <path>    - Settings YAML
//	--map <path>       - Map YAML, replaces the settings' map
//	--db <path>        - Results database (default: ~/.arena/arena.db)
//	--log-level <lvl>  - debug, info, warn or error
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	// Import agents to register them
	_ "github.com/vovakirdan/robot-arena/internal/agents"
	"github.com/vovakirdan/robot-arena/internal/config"
	"github.com/vovakirdan/robot-arena/internal/logging"
)

var (
	// Global flags
	flagSeed     int64
	flagTurns    int
	flagConfig   string
	flagMap      string
	flagDBPath   string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "arena",
	Short: "Robot Arena - turn-based robot battles",
	Long: `Robot Arena plays turn-based battles between two robot agents on a
square board. Every turn each robot guards, moves, attacks or
self-destructs; robots spawn in waves and the side with more robots
after the last turn wins.

Available commands:
  list     - Show all available agents
  run      - Play a match headless
  watch    - Watch a match in the terminal
  serve    - Start the HTTP API and SSH viewer
  matches  - Show stored match results
  replay   - Print a recorded replay

Examples:
  arena list
  arena run --p1 hunter --p2 kamikaze --seed 42
  arena run --p1 random --p2 guard --mode pipelined --replay out.jsonl.zst
  arena watch --p1 hunter --p2 random
  arena serve --http :8080 --ssh :23234`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
	rootCmd.PersistentFlags().IntVar(&flagTurns, "turns", 0, "Number of turns (0 = from settings)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to settings YAML")
	rootCmd.PersistentFlags().StringVar(&flagMap, "map", "", "Path to map YAML")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "~/.arena/arena.db", "Path to results database")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(matchesCmd)
	rootCmd.AddCommand(replayCmd)
}

// loadSettings builds the match settings from the config file, the map
// file and the global flags.
func loadSettings() (*config.Settings, error) {
	s, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagMap != "" {
		if err := config.LoadMap(s, flagMap); err != nil {
			return nil, err
		}
	}
	if flagSeed != 0 {
		s.Seed = flagSeed
	}
	if flagTurns > 0 {
		s.MaxTurns = flagTurns
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func newLogger(prefix string) (*log.Logger, error) {
	return logging.New(os.Stderr, prefix, flagLogLevel)
}
