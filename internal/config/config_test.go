package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestLoadFullConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	configContent := `
worktrees_root: /srv/worktrees
log_level: debug
theme: latte
copy_file: .worktree-files
default_format: json
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	want := Config{
		WorktreesRoot: "/srv/worktrees",
		LogLevel:      "debug",
		Theme:         "latte",
		CopyFile:      ".worktree-files",
		DefaultFormat: "json",
	}
	if cfg != want {
		t.Errorf("LoadFrom() = %+v, want %+v", cfg, want)
	}
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("LoadFrom() = %+v, want defaults", cfg)
	}
}

func TestLoadFrom_EmptyKeysUseDefaults(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("theme: frappe\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Theme != "frappe" {
		t.Errorf("Theme = %q, want frappe", cfg.Theme)
	}
	if cfg.LogLevel != "info" || cfg.CopyFile != ".featwt_copy" || cfg.DefaultFormat != "text" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("theme: [unclosed\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(configPath)
	if err == nil {
		t.Fatal("LoadFrom() should fail on invalid YAML")
	}
	if cfg != DefaultConfig() {
		t.Errorf("LoadFrom() on error = %+v, want defaults", cfg)
	}
}

func TestDir(t *testing.T) {
	if got := Dir("/explicit"); got != "/explicit" {
		t.Errorf("Dir(/explicit) = %q", got)
	}

	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := Dir(""); got != filepath.Join("/xdg", "featwt") {
		t.Errorf("Dir(\"\") with XDG_CONFIG_HOME = %q", got)
	}
	if got := Path(""); got != filepath.Join("/xdg", "featwt", "config.yaml") {
		t.Errorf("Path(\"\") = %q", got)
	}
}

func TestResolveRoot_Precedence(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir: %v", err)
	}
	env := func(v string) func(string) string {
		return func(key string) string {
			if key == EnvRoot {
				return v
			}
			return ""
		}
	}

	tests := []struct {
		name   string
		flag   string
		env    string
		config string
		want   string
	}{
		{"flag wins", "/flag", "/env", "/config", "/flag"},
		{"env over config", "", "/env", "/config", "/env"},
		{"config", "", "", "/config", "/config"},
		{"default", "", "", "", filepath.Join(home, ".worktrees")},
		{"tilde expanded", "~/wt", "", "", filepath.Join(home, "wt")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{WorktreesRoot: tt.config}
			got, err := cfg.ResolveRoot(tt.flag, env(tt.env))
			if err != nil {
				t.Fatalf("ResolveRoot() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveRoot() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveRoot_RelativeBecomesAbsolute(t *testing.T) {
	got, err := Config{}.ResolveRoot("relative/wt", nil)
	if err != nil {
		t.Fatalf("ResolveRoot() error = %v", err)
	}
	if !filepath.IsAbs(got) || !strings.HasSuffix(got, filepath.Join("relative", "wt")) {
		t.Errorf("ResolveRoot(relative) = %q", got)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir: %v", err)
	}
	tests := map[string]string{
		"":          "",
		"~":         home,
		"~/foo/bar": filepath.Join(home, "foo/bar"),
		"/abs/path": "/abs/path",
		"~user/x":   "~user/x",
	}
	for in, want := range tests {
		got, err := ExpandHome(in)
		if err != nil {
			t.Fatalf("ExpandHome(%q) error = %v", in, err)
		}
		if got != want {
			t.Errorf("ExpandHome(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConfig_GetSet(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		key     string
		value   string
		wantErr bool
	}{
		{"worktrees_root", "/srv/wt", false},
		{"log_level", "debug", false},
		{"log_level", "loud", true},
		{"theme", "macchiato", false},
		{"theme", "dracula", true},
		{"copy_file", ".files", false},
		{"copy_file", "../escape", true},
		{"copy_file", "/abs", true},
		{"default_format", "csv", false},
		{"default_format", "xml", true},
		{"nope", "x", true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			before, _ := cfg.Get(tt.key)
			err := cfg.Set(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set(%q, %q) error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
			}
			got, getErr := cfg.Get(tt.key)
			if tt.key == "nope" {
				if getErr == nil {
					t.Error("Get(nope) should fail")
				}
				return
			}
			if tt.wantErr && got != before {
				t.Errorf("failed Set changed %s from %q to %q", tt.key, before, got)
			}
			if !tt.wantErr && got != tt.value {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.value)
			}
		})
	}
}

func TestUpdate_WritesYAML(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "featwt")

	cfg, err := Update(dir, func(c *Config) error {
		return c.Set("theme", "latte")
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if cfg.Theme != "latte" {
		t.Errorf("Update() returned theme %q", cfg.Theme)
	}

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var onDisk Config
	if err := yaml.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if onDisk.Theme != "latte" || onDisk.LogLevel != "info" {
		t.Errorf("on-disk config = %+v", onDisk)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestUpdate_ErrorLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	if _, err := Update(dir, func(c *Config) error { return c.Set("theme", "latte") }); err != nil {
		t.Fatal(err)
	}

	if _, err := Update(dir, func(c *Config) error { return c.Set("theme", "neon") }); err == nil {
		t.Fatal("Update() should return the mutation error")
	}

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Theme != "latte" {
		t.Errorf("Theme = %q, want latte", cfg.Theme)
	}
}

func TestUpdate_Concurrent(t *testing.T) {
	dir := t.TempDir()
	keys := []struct{ key, value string }{
		{"theme", "frappe"},
		{"log_level", "warn"},
		{"default_format", "json"},
		{"copy_file", ".copyme"},
		{"worktrees_root", "/srv/wt"},
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(keys))
	for _, kv := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Update(dir, func(c *Config) error { return c.Set(kv.key, kv.value) })
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, kv := range keys {
		if got, _ := cfg.Get(kv.key); got != kv.value {
			t.Errorf("%s = %q, want %q (lost update)", kv.key, got, kv.value)
		}
	}
}
