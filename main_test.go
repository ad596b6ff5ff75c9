package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"featwt/internal/cli"
	"featwt/internal/logging"
)

func TestLogManagerInitialization(t *testing.T) {
	// Create temp dir for logs
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	lm, err := logging.NewManager(logging.Config{
		FilePath:   logPath,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
		Level:      "debug",
	})
	if err != nil {
		t.Fatalf("failed to create LogManager: %v", err)
	}
	defer lm.Close()

	logger := lm.For("app")
	logger.Info("test message")

	// Sync to flush
	lm.Sync()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file was not created: %v", err)
	}
	if !strings.Contains(string(data), `"logger":"app"`) || !strings.Contains(string(data), "test message") {
		t.Errorf("log file content = %s", data)
	}
}

func TestRun_Version(t *testing.T) {
	configDir := t.TempDir()
	var stdout, stderr bytes.Buffer

	code := run([]string{"--config-dir", configDir, "version"}, &stdout, &stderr)
	if code != cli.ExitOK {
		t.Fatalf("exit = %d, stderr = %s", code, stderr.String())
	}
	if stdout.String() != version+"\n" {
		t.Errorf("stdout = %q, want %q", stdout.String(), version+"\n")
	}
	if _, err := os.Stat(filepath.Join(configDir, "featwt.log")); err != nil {
		t.Errorf("log file not created in config dir: %v", err)
	}
}

func TestRun_ConfigPathHonorsConfigDir(t *testing.T) {
	configDir := t.TempDir()
	var stdout, stderr bytes.Buffer

	code := run([]string{"-c", configDir, "config", "path"}, &stdout, &stderr)
	if code != cli.ExitOK {
		t.Fatalf("exit = %d, stderr = %s", code, stderr.String())
	}
	if got := strings.TrimSpace(stdout.String()); got != filepath.Join(configDir, "config.yaml") {
		t.Errorf("config path = %q", got)
	}
}

func TestRun_UsageErrors(t *testing.T) {
	configDir := t.TempDir()
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no command", []string{"-c", configDir}, cli.ExitUsage},
		{"unknown global flag", []string{"--bogus", "list"}, cli.ExitUsage},
		{"unknown command", []string{"-c", configDir, "frobnicate"}, cli.ExitUsage},
		{"help", []string{"--help"}, cli.ExitOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != tt.want {
				t.Errorf("exit = %d, want %d (stderr %s)", code, tt.want, stderr.String())
			}
		})
	}
}

func TestRun_ConfigErrorWarnsAndContinues(t *testing.T) {
	configDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("theme: [broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer

	code := run([]string{"-c", configDir, "version"}, &stdout, &stderr)
	if code != cli.ExitOK {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(stderr.String(), "warning: failed to load config") {
		t.Errorf("stderr = %q", stderr.String())
	}
}
