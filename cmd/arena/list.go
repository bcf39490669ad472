package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/robot-arena/internal/registry"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available agents",
	Long:  `Shows a list of all agents registered in the arena.`,
	Run:   runList,
}

func runList(_ *cobra.Command, _ []string) {
	agents := registry.List()

	if len(agents) == 0 {
		fmt.Println("No agents available.")
		return
	}

	fmt.Println("Available agents:")
	fmt.Println()

	maxIDLen := 2 // "ID" header
	for _, a := range agents {
		maxIDLen = max(maxIDLen, len(a.ID))
	}

	fmt.Printf("  %-*s  %s\n", maxIDLen, "ID", "Description")
	fmt.Printf("  %-*s  %s\n", maxIDLen, "--", "-----------")

	for _, a := range agents {
		fmt.Printf("  %-*s  %s\n", maxIDLen, a.ID, a.Description)
	}

	fmt.Println()
	fmt.Println("Run 'arena run --p1 <id> --p2 <id>' to play a match.")
}
