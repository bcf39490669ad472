package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/robot-arena/internal/core"
	"gopkg.in/yaml.v3"
)

func TestEmbeddedDefaultsMatchHardcoded(t *testing.T) {
	var s Settings
	if err := yaml.Unmarshal(DefaultYAML(), &s); err != nil {
		t.Fatalf("embedded default YAML does not parse: %v", err)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("embedded defaults are invalid: %v", err)
	}

	d := DefaultSettings()
	if s.MaxTurns != d.MaxTurns || s.SpawnEvery != d.SpawnEvery || s.RobotHP != d.RobotHP {
		t.Errorf("embedded and hardcoded defaults differ: %+v vs %+v", s, d)
	}
	if s.DecisionTimeout != 2*time.Second {
		t.Errorf("decision_timeout = %v, expected 2s", s.DecisionTimeout)
	}
	if len(s.Map.Spawn) == 0 {
		t.Error("round arena should generate spawn points")
	}
}

func TestLoadCustomPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	data := `
max_turns: 25
spawn_every: 5
map:
  size: 7
  obstacle: [{x: 0, y: 0}]
  spawn: [{x: 1, y: 1}, {x: 5, y: 5}]
  start1: [{x: 2, y: 3}]
  start2: [{x: 4, y: 3}]
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if s.MaxTurns != 25 || s.SpawnEvery != 5 {
		t.Errorf("file values not applied: max_turns=%d spawn_every=%d", s.MaxTurns, s.SpawnEvery)
	}
	// Keys missing from the file keep their defaults.
	if s.RobotHP != 50 {
		t.Errorf("robot_hp = %d, expected default 50", s.RobotHP)
	}
	if !s.Map.IsObstacle(core.L(0, 0)) || s.Map.IsObstacle(core.L(3, 3)) {
		t.Error("obstacle lookup does not match the file")
	}
	if !s.Map.IsSpawn(core.L(5, 5)) {
		t.Error("(5,5) should be a spawn point")
	}
	if !s.Map.IsObstacle(core.L(7, 3)) {
		t.Error("off-board squares should count as obstacles")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("max_turns: 25\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ARENA_MAX_TURNS", "7")
	t.Setenv("ARENA_SEED", "99")
	t.Setenv("ARENA_DECISION_TIMEOUT", "150ms")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if s.MaxTurns != 7 {
		t.Errorf("max_turns = %d, expected env override 7", s.MaxTurns)
	}
	if s.Seed != 99 {
		t.Errorf("seed = %d, expected 99", s.Seed)
	}
	if s.DecisionTimeout != 150*time.Millisecond {
		t.Errorf("decision_timeout = %v, expected 150ms", s.DecisionTimeout)
	}
}

func TestLoadMissingCustomPath(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing custom config")
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	s := DefaultSettings()
	s.MaxTurns = 0
	s.ExposedProperties = append(s.ExposedProperties, "secret")

	err := s.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "max_turns") || !strings.Contains(err.Error(), "secret") {
		t.Errorf("error should mention every problem, got: %v", err)
	}
}

func TestLoadMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.yaml")
	data := "size: 9\nradius: 3\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	s := DefaultSettings()
	if err := LoadMap(s, path); err != nil {
		t.Fatalf("LoadMap() failed: %v", err)
	}
	if s.Map.Size != 9 {
		t.Errorf("map size = %d, expected 9", s.Map.Size)
	}
	if s.Map.IsObstacle(s.Map.Center()) {
		t.Error("center of a round arena must be open")
	}
	for _, sp := range s.Map.Spawn {
		if s.Map.IsObstacle(sp) {
			t.Errorf("spawn point %v is blocked", sp)
		}
	}
}

func TestIsSpawnTurn(t *testing.T) {
	s := DefaultSettings()
	for turn, want := range map[int]bool{0: true, 1: false, 9: false, 10: true, 20: true} {
		if got := s.IsSpawnTurn(turn); got != want {
			t.Errorf("IsSpawnTurn(%d) = %v, expected %v", turn, got, want)
		}
	}
}
