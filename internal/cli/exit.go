// pattern: Functional Core
package cli

import (
	"errors"
	"fmt"

	"featwt/internal/worktree"
)

// Process exit codes.
const (
	ExitOK           = 0
	ExitFailure      = 1 // VCS or filesystem failure
	ExitUsage        = 2 // Bad arguments or validation failure
	ExitUnsafe       = 3
	ExitNotFound     = 4
	ExitConflict     = 5
	ExitPrecondition = 6 // Not a repository, no default branch, missing ref, fetch failure
	ExitPartial      = 7 // Worktree removed, branch kept
)

// usageError is a command line mistake. Usage, when set, is printed after
// the message.
type usageError struct {
	msg   string
	usage string
}

func (e *usageError) Error() string {
	return e.msg
}

func usageErrorf(usage, format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...), usage: usage}
}

// partialError reports a command that did part of its work.
type partialError struct {
	msg string
}

func (e *partialError) Error() string {
	return e.msg
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var ue *usageError
	if errors.As(err, &ue) {
		return ExitUsage
	}
	var pe *partialError
	if errors.As(err, &pe) {
		return ExitPartial
	}

	var we *worktree.Error
	if !errors.As(err, &we) {
		return ExitFailure
	}
	switch kind := we.Kind; {
	case kind.IsValidation():
		return ExitUsage
	case kind.IsPrecondition():
		return ExitPrecondition
	case kind == worktree.KindUnsafe:
		return ExitUnsafe
	case kind == worktree.KindNotFound:
		return ExitNotFound
	case kind == worktree.KindConflict:
		return ExitConflict
	default:
		return ExitFailure
	}
}
