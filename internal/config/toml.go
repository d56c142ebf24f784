// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Display  DisplayConfig  `toml:"display"`
	Model    ModelConfig    `toml:"model"`
}

// DefaultsConfig maps the initial input values.
type DefaultsConfig struct {
	Wake   *string  `toml:"wake"`
	Sleep  *float64 `toml:"sleep"`
	Coffee *int     `toml:"coffee"`
}

// DisplayConfig maps output formatting settings.
type DisplayConfig struct {
	Clock *string `toml:"clock"`
}

// ModelConfig selects the sleep model.
type ModelConfig struct {
	Ref *string `toml:"ref"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
