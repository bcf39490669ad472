// Package registry holds the built-in agents by name. Agents register
// themselves in init() functions, so the CLI and servers can list and
// create them without importing each implementation directly.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vovakirdan/robot-arena/internal/game"
)

// Described is implemented by agents that provide a one-line description
// for listings.
type Described interface {
	Description() string
}

// AgentInfo contains metadata about a registered agent.
type AgentInfo struct {
	ID          string
	Description string
}

// Factory creates a fresh agent for one player of one match.
type Factory func() game.Agent

var (
	factories    = make(map[string]Factory)
	descriptions = make(map[string]string)
	mu           sync.RWMutex
)

// Register adds an agent factory to the registry.
// Panics if an agent with the same ID is already registered.
func Register(id string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[id]; exists {
		panic(fmt.Sprintf("registry: agent %q already registered", id))
	}

	factories[id] = f
	if d, ok := f().(Described); ok {
		descriptions[id] = d.Description()
	}
}

// List returns all registered agents, sorted by ID.
func List() []AgentInfo {
	mu.RLock()
	defer mu.RUnlock()

	result := make([]AgentInfo, 0, len(factories))
	for id := range factories {
		result = append(result, AgentInfo{ID: id, Description: descriptions[id]})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// Create instantiates an agent by its ID.
func Create(id string) (game.Agent, error) {
	mu.RLock()
	defer mu.RUnlock()

	f, ok := factories[id]
	if !ok {
		return nil, fmt.Errorf("registry: unknown agent %q", id)
	}
	return f(), nil
}

// CreatePair instantiates the agents for both players.
func CreatePair(p1, p2 string) ([2]game.Agent, error) {
	a1, err := Create(p1)
	if err != nil {
		return [2]game.Agent{}, err
	}
	a2, err := Create(p2)
	if err != nil {
		return [2]game.Agent{}, err
	}
	return [2]game.Agent{a1, a2}, nil
}

// Exists checks if an agent with the given ID is registered.
func Exists(id string) bool {
	mu.RLock()
	defer mu.RUnlock()

	_, ok := factories[id]
	return ok
}
