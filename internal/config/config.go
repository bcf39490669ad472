// Package config provides YAML-based match settings and map loading for the
// arena. A Settings value is built once and passed by pointer to every
// component that needs it; nothing reads settings from package globals.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/robot-arena/internal/core"
)

// Robot attribute names that can be exposed to agents.
const (
	PropLocation = "location"
	PropHP       = "hp"
	PropPlayerID = "player_id"
	PropRobotID  = "robot_id"
)

var knownProps = map[string]bool{
	PropLocation: true,
	PropHP:       true,
	PropPlayerID: true,
	PropRobotID:  true,
}

// Settings contains everything a match needs besides the agents.
type Settings struct {
	MaxTurns        int           `yaml:"max_turns" env:"ARENA_MAX_TURNS"`
	SpawnEvery      int           `yaml:"spawn_every" env:"ARENA_SPAWN_EVERY"`
	SpawnPerPlayer  int           `yaml:"spawn_per_player"`
	RobotHP         int           `yaml:"robot_hp"`
	AttackDamage    DamageRange   `yaml:"attack_damage"`
	CollisionDamage int           `yaml:"collision_damage"`
	SuicideDamage   int           `yaml:"suicide_damage"`
	DecisionTimeout time.Duration `yaml:"decision_timeout" env:"ARENA_DECISION_TIMEOUT"`
	Seed            int64         `yaml:"seed" env:"ARENA_SEED"` // 0 = pick one at match start

	// ExposedProperties are visible to both players; PlayerOnlyProperties
	// only to the robot's owner.
	ExposedProperties    []string `yaml:"exposed_properties"`
	PlayerOnlyProperties []string `yaml:"player_only_properties"`

	Map Map `yaml:"map"`
}

// DamageRange is an inclusive [Min, Max] damage roll.
type DamageRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Validate checks settings for values the engine cannot run with.
// It also prepares the map lookups, so it must be called before use.
func (s *Settings) Validate() error {
	var errs []error
	if s.MaxTurns < 1 {
		errs = append(errs, fmt.Errorf("max_turns must be positive, got %d", s.MaxTurns))
	}
	if s.SpawnEvery < 1 {
		errs = append(errs, fmt.Errorf("spawn_every must be positive, got %d", s.SpawnEvery))
	}
	if s.RobotHP < 1 {
		errs = append(errs, fmt.Errorf("robot_hp must be positive, got %d", s.RobotHP))
	}
	if s.AttackDamage.Min < 0 || s.AttackDamage.Max < s.AttackDamage.Min {
		errs = append(errs, fmt.Errorf("attack_damage range [%d,%d] is invalid", s.AttackDamage.Min, s.AttackDamage.Max))
	}
	if s.DecisionTimeout < 0 {
		errs = append(errs, fmt.Errorf("decision_timeout must not be negative"))
	}
	for _, p := range s.AllProperties() {
		if !knownProps[p] {
			errs = append(errs, fmt.Errorf("unknown robot property %q", p))
		}
	}
	if err := s.Map.Prepare(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid settings: %w", err)
	}
	return nil
}

// AllProperties returns exposed then player-only property names.
func (s *Settings) AllProperties() []string {
	props := make([]string, 0, len(s.ExposedProperties)+len(s.PlayerOnlyProperties))
	props = append(props, s.ExposedProperties...)
	return append(props, s.PlayerOnlyProperties...)
}

// IsSpawnTurn reports whether robots spawn while applying the given turn.
func (s *Settings) IsSpawnTurn(turn int) bool {
	return s.SpawnEvery > 0 && turn%s.SpawnEvery == 0
}

// Map describes the board: its size, blocked squares and spawn points.
type Map struct {
	Size     int        `yaml:"size"`
	Radius   int        `yaml:"radius,omitempty"` // generate a round arena when obstacles are omitted
	Spawn    []core.Loc `yaml:"spawn"`
	Obstacle []core.Loc `yaml:"obstacle"`
	Start1   []core.Loc `yaml:"start1"`
	Start2   []core.Loc `yaml:"start2"`

	obstacles map[core.Loc]bool
	spawns    map[core.Loc]bool
}

// Prepare fills generated coordinates and builds lookup sets.
// Safe to call more than once.
func (m *Map) Prepare() error {
	if m.Size < 3 {
		return fmt.Errorf("map size must be at least 3, got %d", m.Size)
	}
	if len(m.Obstacle) == 0 && m.Radius > 0 {
		m.Obstacle, m.Spawn = roundArena(m.Size, m.Radius, m.Spawn)
	}

	m.obstacles = make(map[core.Loc]bool, len(m.Obstacle))
	for _, l := range m.Obstacle {
		m.obstacles[l] = true
	}
	m.spawns = make(map[core.Loc]bool, len(m.Spawn))
	for _, l := range m.Spawn {
		if m.obstacles[l] || !m.InBounds(l) {
			return fmt.Errorf("spawn point %v is blocked or off the board", l)
		}
		m.spawns[l] = true
	}
	for _, l := range append(append([]core.Loc{}, m.Start1...), m.Start2...) {
		if m.obstacles[l] || !m.InBounds(l) {
			return fmt.Errorf("start point %v is blocked or off the board", l)
		}
	}
	return nil
}

// InBounds reports whether l is on the board.
func (m *Map) InBounds(l core.Loc) bool {
	return l.X >= 0 && l.Y >= 0 && l.X < m.Size && l.Y < m.Size
}

// IsObstacle reports whether l is blocked. Off-board squares count as blocked.
func (m *Map) IsObstacle(l core.Loc) bool {
	return !m.InBounds(l) || m.obstacles[l]
}

// IsSpawn reports whether l is a spawn point.
func (m *Map) IsSpawn(l core.Loc) bool {
	return m.spawns[l]
}

// Center returns the middle square of the board.
func (m *Map) Center() core.Loc {
	return core.L(m.Size/2, m.Size/2)
}

// roundArena blocks every square outside a circle of the given radius and,
// unless spawn points were given, uses the circle's rim as spawn points.
func roundArena(size, radius int, spawn []core.Loc) (obstacles, spawns []core.Loc) {
	center := core.L(size/2, size/2)
	inside := func(l core.Loc) bool {
		return l.X > 0 && l.Y > 0 && l.X < size-1 && l.Y < size-1 &&
			l.Dist(center) <= float64(radius)+0.5
	}

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if l := core.L(x, y); !inside(l) {
				obstacles = append(obstacles, l)
			}
		}
	}
	if len(spawn) > 0 {
		return obstacles, spawn
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			l := core.L(x, y)
			if !inside(l) {
				continue
			}
			for _, n := range l.Around() {
				if !inside(n) {
					spawns = append(spawns, l)
					break
				}
			}
		}
	}
	return obstacles, spawns
}
