// Package config loads shell configuration from an optional YAML file.
//
// Precedence is flags over file over defaults; the flag overlay happens in
// cmd/gosh after Load.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the user-tunable shell settings.
type Config struct {
	Prompt       string `yaml:"prompt"`
	HistoryFile  string `yaml:"history_file"`
	HistoryLimit int    `yaml:"history_limit"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		Prompt:       "gosh",
		HistoryFile:  filepath.Join(home, ".gosh_history"),
		HistoryLimit: 500,
	}
}

// Load reads the YAML config at path, layered over Default. A missing file
// yields the defaults; a malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path) //nolint:gosec // G304: Potential file inclusion via variable
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("cannot read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("cannot parse config %q: %w", path, err)
	}
	return cfg, nil
}
