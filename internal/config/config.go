package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// EnvRoot overrides the configured worktrees root.
	EnvRoot = "FEATWT_ROOT"

	fileName           = "config.yaml"
	defaultCopyFile    = ".featwt_copy"
	defaultRootDirName = ".worktrees"
)

var (
	validFormats   = []string{"text", "json", "csv"}
	validThemes    = []string{"latte", "frappe", "macchiato", "mocha"}
	validLogLevels = []string{"debug", "info", "warn", "error"}
)

type Config struct {
	WorktreesRoot string `yaml:"worktrees_root,omitempty"`
	LogLevel      string `yaml:"log_level"`
	Theme         string `yaml:"theme"`
	CopyFile      string `yaml:"copy_file"`
	DefaultFormat string `yaml:"default_format"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel:      "info",
		Theme:         "mocha",
		CopyFile:      defaultCopyFile,
		DefaultFormat: "text",
	}
}

// Load reads the config file from the default directory.
func Load() (Config, error) {
	return LoadFrom(Path(""))
}

// LoadFromDir reads config.yaml from dir.
func LoadFromDir(dir string) (Config, error) {
	return LoadFrom(filepath.Join(dir, fileName))
}

// LoadFrom reads configPath. A missing file yields the defaults; empty
// keys fall back to their defaults.
func LoadFrom(configPath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing %s: %w", configPath, err)
	}

	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Theme == "" {
		c.Theme = def.Theme
	}
	if c.CopyFile == "" {
		c.CopyFile = def.CopyFile
	}
	if c.DefaultFormat == "" {
		c.DefaultFormat = def.DefaultFormat
	}
}

// Dir returns the config directory: configDir when set, otherwise
// $XDG_CONFIG_HOME/featwt, falling back to ~/.config/featwt.
func Dir(configDir string) string {
	if configDir != "" {
		return configDir
	}
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "featwt")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "featwt")
	}
	return filepath.Join(home, ".config", "featwt")
}

// Path returns the config file path inside Dir(configDir).
func Path(configDir string) string {
	return filepath.Join(Dir(configDir), fileName)
}

// ResolveRoot picks the worktrees root: flagValue, then the FEATWT_ROOT
// environment variable (read through getenv), then the config file, then
// ~/.worktrees. The result is absolute with ~ expanded.
func (c Config) ResolveRoot(flagValue string, getenv func(string) string) (string, error) {
	root := flagValue
	if root == "" && getenv != nil {
		root = getenv(EnvRoot)
	}
	if root == "" {
		root = c.WorktreesRoot
	}
	if root == "" {
		root = filepath.Join("~", defaultRootDirName)
	}

	root, err := ExpandHome(root)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving worktrees root %q: %w", root, err)
	}
	return abs, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expanding %q: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Keys returns the settable keys in display order.
func Keys() []string {
	return []string{"worktrees_root", "log_level", "theme", "copy_file", "default_format"}
}

// Get returns the value of key.
func (c Config) Get(key string) (string, error) {
	switch key {
	case "worktrees_root":
		return c.WorktreesRoot, nil
	case "log_level":
		return c.LogLevel, nil
	case "theme":
		return c.Theme, nil
	case "copy_file":
		return c.CopyFile, nil
	case "default_format":
		return c.DefaultFormat, nil
	}
	return "", unknownKey(key)
}

// Set validates value and assigns it to key.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "worktrees_root":
		c.WorktreesRoot = value
	case "log_level":
		if err := oneOf(key, value, validLogLevels); err != nil {
			return err
		}
		c.LogLevel = value
	case "theme":
		if err := oneOf(key, value, validThemes); err != nil {
			return err
		}
		c.Theme = value
	case "copy_file":
		if value == "" || filepath.IsAbs(value) || strings.Contains(filepath.ToSlash(value), "..") {
			return fmt.Errorf("copy_file must be a relative file name inside the repository")
		}
		c.CopyFile = value
	case "default_format":
		if err := oneOf(key, value, validFormats); err != nil {
			return err
		}
		c.DefaultFormat = value
	default:
		return unknownKey(key)
	}
	return nil
}

func oneOf(key, value string, allowed []string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("invalid %s %q: must be one of %s", key, value, strings.Join(allowed, ", "))
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(Keys(), ", "))
}
