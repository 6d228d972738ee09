// Package config loads the server's YAML configuration file, grounded in
// the teacher's config.go/tools.go loadFromYAML pattern (gopkg.in/yaml.v3
// decoding straight into a struct via os.Open + yaml.NewDecoder).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the server's on-disk configuration: where it listens and where
// it keeps the database directory spec.md §6 anchors at "./database/".
type Config struct {
	SocketPath string `yaml:"socket_path"`
	DataDir    string `yaml:"data_dir"`

	// WatchDataDir turns on an fsnotify watch over DataDir that triggers a
	// catalog reload when an external process drops new .col/.idx files in
	// place; off by default, since the source has no equivalent and the
	// server's own load/insert path is the documented way to mutate state.
	WatchDataDir bool `yaml:"watch_data_dir"`
}

// Default returns the configuration used when no config file is given.
func Default() Config {
	return Config{
		SocketPath: "./coldb.sock",
		DataDir:    "./database",
	}
}

// Load reads and decodes a YAML config file at path.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}
