package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const configName = ".stitch.toml"

// fileConfig holds options read from a .stitch.toml file. Pointer fields
// distinguish "unset" from a zero value so flags can override cleanly.
type fileConfig struct {
	ContextTolerance *int    `toml:"context_tolerance"`
	IgnoreWhitespace *bool   `toml:"ignore_whitespace"`
	Sandbox          *bool   `toml:"sandbox"`
	SnapshotDir      *string `toml:"snapshot_dir"`
}

// loadConfig walks from dir upward looking for a .stitch.toml. A missing
// file yields an empty config; a present but unreadable one is an error.
func loadConfig(dir string) (*fileConfig, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(abs, configName)
		if _, err := os.Stat(path); err == nil {
			var cfg fileConfig
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
			return &cfg, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return &fileConfig{}, nil
		}
		abs = parent
	}
}
