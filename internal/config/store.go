// pattern: Imperative Shell
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

const lockFileName = fileName + ".lock"

// Update loads the config in configDir, applies fn and writes the result
// back. Concurrent updates are serialized with an exclusive file lock and
// the file is replaced atomically.
func Update(configDir string, fn func(*Config) error) (Config, error) {
	dir := Dir(configDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Config{}, fmt.Errorf("creating config directory: %w", err)
	}

	fl := flock.New(filepath.Join(dir, lockFileName))
	if err := fl.Lock(); err != nil {
		return Config{}, fmt.Errorf("failed to acquire config lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	cfg, err := LoadFromDir(dir)
	if err != nil {
		return Config{}, err
	}
	if err := fn(&cfg); err != nil {
		return Config{}, err
	}
	if err := write(filepath.Join(dir, fileName), cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), fileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}
