package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const settingsFile = "settings.yaml"

// Load loads match settings and applies ARENA_* environment overrides.
// Search order: customPath -> ~/.arena/configs/settings.yaml ->
// ./configs/settings.yaml -> embedded default.
func Load(customPath string) (*Settings, error) {
	s, err := loadFile(customPath)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func loadFile(customPath string) (*Settings, error) {
	if customPath != "" {
		s, err := readSettings(customPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	if userCfgPath := userConfigPath(settingsFile); userCfgPath != "" {
		if s, err := readSettings(userCfgPath); err == nil {
			return s, nil
		}
	}

	if s, err := readSettings(filepath.Join("configs", settingsFile)); err == nil {
		return s, nil
	}

	var s Settings
	if err := yaml.Unmarshal(defaultSettingsYAML, &s); err != nil {
		return DefaultSettings(), nil
	}
	return &s, nil
}

func readSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	// Files may omit keys; start from the defaults so they keep their values.
	s := DefaultSettings()
	s.Map = Map{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	if s.Map.Size == 0 {
		s.Map = DefaultSettings().Map
	}
	return s, nil
}

// LoadMap reads a standalone map file and replaces the settings' map with it.
func LoadMap(s *Settings, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: failed to read map %s: %w", path, err)
	}
	var m Map
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("config: failed to parse map %s: %w", path, err)
	}
	if err := m.Prepare(); err != nil {
		return fmt.Errorf("config: map %s: %w", path, err)
	}
	s.Map = m
	return nil
}

// ApplyEnv overrides settings from ARENA_* environment variables.
// Unset variables leave the current values untouched.
func ApplyEnv(s *Settings) error {
	if err := env.Parse(s); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	return nil
}

// userConfigPath returns the path to a user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".arena", "configs", filename)
}
