// pattern: Functional Core

// Package vcs defines the version-control capabilities the worktree core
// consumes. The git package provides the real implementation; vcstest
// provides an in-memory one for tests.
package vcs

import (
	"context"
	"errors"
)

var (
	// ErrNotARepository is returned when the working location is outside any repository.
	ErrNotARepository = errors.New("not a repository")

	// ErrRefNotFound is returned when a branch, ref or revision does not resolve.
	ErrRefNotFound = errors.New("ref not found")
)

// Remote is a configured remote and its fetch URL.
type Remote struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Worktree is one entry of the live worktree list.
type Worktree struct {
	Path     string // Absolute path as reported by the VCS
	Branch   string // Short branch name, empty when detached
	Head     string // Commit hash HEAD points to
	Detached bool
	IsMain   bool // The repository's primary working copy
	Prunable bool // Registered but its directory is gone
}

// StatusEntry is one line of a porcelain status report.
type StatusEntry struct {
	Index    byte // Staged code: ' ', 'M', 'A', 'D', 'R', 'C', 'U', '?', '!'
	Worktree byte // Unstaged code, same alphabet
	Path     string
}

// IsUntracked reports whether the entry is an untracked file.
func (e StatusEntry) IsUntracked() bool {
	return e.Index == '?' && e.Worktree == '?'
}

// IsTrackedChange reports whether the staged or unstaged code is a
// modify, add, delete, rename or copy.
func (e StatusEntry) IsTrackedChange() bool {
	return isChangeCode(e.Index) || isChangeCode(e.Worktree)
}

func isChangeCode(c byte) bool {
	switch c {
	case 'M', 'A', 'D', 'R', 'C':
		return true
	}
	return false
}

// Markers reports which multi-step operations have state recorded in a
// worktree's git directory.
type Markers struct {
	Merge      bool
	Rebase     bool
	CherryPick bool
	Bisect     bool
}

// VCS is the command surface the worktree core issues queries and
// mutations against. Paths are absolute.
type VCS interface {
	// RepoRoot returns the top-level directory of the repository containing
	// the working location, or ErrNotARepository.
	RepoRoot(ctx context.Context) (string, error)

	// DefaultRemoteHead returns the branch the remote's symbolic HEAD points
	// to. ok is false when no remote HEAD is recorded.
	DefaultRemoteHead(ctx context.Context) (branch string, ok bool, err error)

	Remotes(ctx context.Context) ([]Remote, error)
	LocalBranches(ctx context.Context) ([]string, error)
	BranchExists(ctx context.Context, name string) (bool, error)
	RefExists(ctx context.Context, ref string) (bool, error)
	RemoteBranchExists(ctx context.Context, remote, branch string) (bool, error)
	Fetch(ctx context.Context, remote, ref string) error

	ListWorktrees(ctx context.Context) ([]Worktree, error)

	// AddWorktree creates a worktree at path. With reuseExisting the
	// existing branch is checked out; otherwise branch is created from baseRef.
	AddWorktree(ctx context.Context, path, branch, baseRef string, reuseExisting bool) error
	RemoveWorktree(ctx context.Context, path string, force bool) error
	// PruneWorktrees drops registrations whose directories no longer exist.
	PruneWorktrees(ctx context.Context) error
	DeleteBranch(ctx context.Context, name string) error

	PorcelainStatus(ctx context.Context, path string) ([]StatusEntry, error)

	// Upstream returns the remote-tracking ref for branch. ok is false when
	// none is configured or the configured ref no longer exists.
	Upstream(ctx context.Context, branch string) (upstream string, ok bool, err error)
	AheadCount(ctx context.Context, local, upstream string) (int, error)

	// IsAncestor reports whether every commit reachable from branch is
	// reachable from base. Returns ErrRefNotFound if either does not resolve.
	IsAncestor(ctx context.Context, branch, base string) (bool, error)
	InProgressMarkers(ctx context.Context, path string) (Markers, error)

	BranchBase(ctx context.Context, branch string) (string, error)
	SetBranchBase(ctx context.Context, branch, base string) error
}
