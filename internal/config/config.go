package config

import (
	"bytes"
	"errors"
	"os"

	"github.com/BurntSushi/toml"
)

// LoadFrom reads configuration from a specific file path. A missing file
// yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Save writes the config to path atomically.
func Save(path string, cfg *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
