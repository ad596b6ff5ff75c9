package git

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func TestCommandError(t *testing.T) {
	err := wrapError(errors.New("exit status 128"), "/src", "", "fatal: bad revision\n", []string{"--no-pager", "rev-parse", "HEAD"})

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatal("wrapError should return *CommandError")
	}
	if cmdErr.Command != "rev-parse" {
		t.Errorf("Command = %q, want rev-parse", cmdErr.Command)
	}
	if got := err.Error(); got != "git rev-parse: fatal: bad revision" {
		t.Errorf("Error() = %q", got)
	}
	if cmdErr.ExitCode() != -1 {
		t.Errorf("ExitCode() = %d, want -1 for a non-exec error", cmdErr.ExitCode())
	}
}

func TestRunner_ExitCode(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	r := &runner{binary: "git"}

	_, err := r.run(context.Background(), t.TempDir(), "definitely-not-a-git-command")
	if err == nil {
		t.Fatal("expected an error")
	}
	if code := exitCode(err); code <= 0 {
		t.Errorf("exitCode() = %d, want a positive exit code", code)
	}
	if !strings.Contains(err.Error(), "definitely-not-a-git-command") {
		t.Errorf("error should name the command: %v", err)
	}
}

func TestRunner_NoArgs(t *testing.T) {
	r := &runner{binary: "git"}
	if _, err := r.run(context.Background(), "."); err == nil {
		t.Error("run() without arguments should fail")
	}
}
