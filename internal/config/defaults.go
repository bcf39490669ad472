package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/settings.yaml
var defaultSettingsYAML []byte

// DefaultSettings returns the built-in settings, used when the embedded
// YAML cannot be parsed.
func DefaultSettings() *Settings {
	s := &Settings{
		MaxTurns:             100,
		SpawnEvery:           10,
		SpawnPerPlayer:       5,
		RobotHP:              50,
		AttackDamage:         DamageRange{Min: 8, Max: 10},
		CollisionDamage:      5,
		SuicideDamage:        15,
		DecisionTimeout:      2 * time.Second,
		ExposedProperties:    []string{PropLocation, PropHP, PropPlayerID},
		PlayerOnlyProperties: []string{PropRobotID},
		Map: Map{
			Size:   19,
			Radius: 8,
		},
	}
	//nolint:errcheck // hardcoded defaults are valid
	s.Map.Prepare()
	return s
}

// DefaultYAML returns the embedded default settings file.
func DefaultYAML() []byte {
	return defaultSettingsYAML
}
