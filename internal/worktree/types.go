// pattern: Functional Core

package worktree

import "featwt/internal/vcs"

// Operation is a VCS multi-step operation that may be in progress.
type Operation string

const (
	OpNone       Operation = "none"
	OpMerge      Operation = "merge"
	OpRebase     Operation = "rebase"
	OpCherryPick Operation = "cherry-pick"
	OpBisect     Operation = "bisect"
)

// Repository describes the repository a command runs against.
// Computed once per command and read-only afterwards.
type Repository struct {
	Root          string       `json:"root"`
	DefaultBranch string       `json:"defaultBranch"`
	Remotes       []vcs.Remote `json:"remotes"`
}

// Status is the derived state of a worktree.
type Status struct {
	IsDirty            bool      `json:"isDirty"`
	HasUntracked       bool      `json:"hasUntracked"`
	HasUnpushedCommits bool      `json:"hasUnpushedCommits"`
	Upstream           string    `json:"upstream,omitempty"`
	OpInProgress       Operation `json:"opInProgress"`
	CheckedOut         bool      `json:"checkedOut"`
}

// HasUpstream reports whether a remote-tracking ref was found.
func (s Status) HasUpstream() bool {
	return s.Upstream != ""
}

// Record is one live feature worktree. Its identity is Path.
// Status is nil until resolved by a StatusResolver, and stays nil for a
// missing worktree.
type Record struct {
	Name       string  `json:"name"`
	Branch     string  `json:"branch"`
	BaseRef    string  `json:"baseRef"`
	Path       string  `json:"path"`
	IsActive   bool    `json:"isActive"`
	CheckedOut bool    `json:"checkedOut"`
	Missing    bool    `json:"missing,omitempty"` // Listed by the VCS but the directory is gone
	Status     *Status `json:"status,omitempty"`
}

// StatusResolved reports whether the derived status has been attached.
func (r Record) StatusResolved() bool {
	return r.Status != nil
}
