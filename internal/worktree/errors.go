// pattern: Functional Core

package worktree

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a core error so callers can map it to exit codes.
type Kind string

const (
	KindInvalidFormat   Kind = "invalid_format"
	KindReserved        Kind = "reserved"
	KindAlreadyExists   Kind = "already_exists"
	KindInvalidArgument Kind = "invalid_argument"
	KindNotARepository  Kind = "not_a_repository"
	KindNoDefaultBranch Kind = "no_default_branch"
	KindRefNotFound     Kind = "ref_not_found"
	KindFetchFailed     Kind = "fetch_failed"
	KindConflict        Kind = "conflict"
	KindNotFound        Kind = "not_found"
	KindUnsafe          Kind = "unsafe"
	KindFilesystem      Kind = "filesystem"
	KindVcs             Kind = "vcs_error"
)

// IsValidation reports whether k is a validation kind.
func (k Kind) IsValidation() bool {
	switch k {
	case KindInvalidFormat, KindReserved, KindAlreadyExists, KindInvalidArgument:
		return true
	}
	return false
}

// IsPrecondition reports whether k is a repository precondition failure.
func (k Kind) IsPrecondition() bool {
	switch k {
	case KindNotARepository, KindNoDefaultBranch, KindRefNotFound, KindFetchFailed:
		return true
	}
	return false
}

// Error is the typed error returned by every core operation.
type Error struct {
	Kind    Kind
	Op      string   // Operation that failed, e.g. "create"
	Name    string   // Worktree, branch or ref the error is about
	Reasons []string // Human-readable reasons; at least one for KindUnsafe
	Err     error    // Underlying cause, if any
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	if e.Name != "" {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%q", e.Name)
	}
	if sb.Len() > 0 {
		sb.WriteString(": ")
	}
	switch {
	case len(e.Reasons) > 0:
		sb.WriteString(strings.Join(e.Reasons, "; "))
		if e.Err != nil {
			fmt.Fprintf(&sb, ": %v", e.Err)
		}
	case e.Err != nil:
		sb.WriteString(e.Err.Error())
	default:
		sb.WriteString(strings.ReplaceAll(string(e.Kind), "_", " "))
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or KindVcs for errors that did not
// originate in this package. It returns "" for a nil error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindVcs
}

// ReasonsOf returns the reasons carried by err, falling back to its message.
func ReasonsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) && len(e.Reasons) > 0 {
		return e.Reasons
	}
	if err == nil {
		return nil
	}
	return []string{err.Error()}
}

func newError(kind Kind, op, name string, reasons ...string) *Error {
	return &Error{Kind: kind, Op: op, Name: name, Reasons: reasons}
}

// withOp adds operation context to err without changing its kind.
// Errors from outside the package are wrapped as KindVcs.
func withOp(err error, op, name string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Op != "" {
			return err
		}
		cp := *e
		cp.Op = op
		if cp.Name == "" {
			cp.Name = name
		}
		return &cp
	}
	return &Error{Kind: KindVcs, Op: op, Name: name, Err: err}
}
