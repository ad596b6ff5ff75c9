// pattern: Imperative Shell

package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"featwt/internal/logging"
)

// CommandError is a failed git invocation.
type CommandError struct {
	Command string   // The git subcommand that failed (e.g., "worktree", "fetch")
	Args    []string // Full argument list
	Dir     string   // Directory the command ran in
	Stdout  string
	Stderr  string
	Err     error // Underlying error, usually *exec.ExitError
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git %s: %s", e.Command, e.Stderr)
	}
	return fmt.Sprintf("git %s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code, or -1 when git did not run.
func (e *CommandError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// exitCode returns the exit code carried by err, or -1.
func exitCode(err error) int {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode()
	}
	return -1
}

// runner executes the git binary. Arguments are built by this package,
// never passed through from users unchecked.
type runner struct {
	binary string
	logger *logging.ScopedLogger
}

// run executes git in dir and returns stdout with surrounding whitespace trimmed.
func (r *runner) run(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := r.runRaw(ctx, dir, args...)
	return strings.TrimSpace(out), err
}

// runRaw executes git in dir and returns stdout untouched.
func (r *runner) runRaw(ctx context.Context, dir string, args ...string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("git: no command specified")
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	r.logger.Debug("git command completed",
		"dir", dir,
		"args", args,
		"duration_ms", time.Since(start).Milliseconds(),
		"ok", err == nil)
	if err != nil {
		return "", wrapError(err, dir, stdout.String(), stderr.String(), args)
	}
	return stdout.String(), nil
}

func wrapError(err error, dir, stdout, stderr string, args []string) error {
	command := ""
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			command = arg
			break
		}
	}
	if command == "" {
		command = args[0]
	}
	return &CommandError{
		Command: command,
		Args:    args,
		Dir:     dir,
		Stdout:  strings.TrimSpace(stdout),
		Stderr:  strings.TrimSpace(stderr),
		Err:     err,
	}
}
