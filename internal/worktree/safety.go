// pattern: Functional Core

package worktree

import "fmt"

// Violation identifies one removal precondition that failed.
type Violation string

const (
	ViolationActive    Violation = "active"
	ViolationDirty     Violation = "dirty"
	ViolationOperation Violation = "operation_in_progress"
	ViolationUnpushed  Violation = "unpushed"
	ViolationUntracked Violation = "untracked"
	ViolationNotMerged Violation = "not_merged"
	ViolationNoBranch  Violation = "no_branch"
)

// Overridable reports whether force lifts the violation.
func (v Violation) Overridable() bool {
	return v == ViolationUntracked
}

// Decision is the result of a safety check.
type Decision struct {
	Allowed    bool        `json:"allowed"`
	Violations []Violation `json:"violations,omitempty"`
	Reasons    []string    `json:"reasons,omitempty"`
}

func (d *Decision) deny(v Violation, reason string) {
	d.Allowed = false
	d.Violations = append(d.Violations, v)
	d.Reasons = append(d.Reasons, reason)
}

// Err returns nil when allowed, otherwise a KindUnsafe error listing every reason.
func (d Decision) Err(op, name string) error {
	if d.Allowed {
		return nil
	}
	return newError(KindUnsafe, op, name, d.Reasons...)
}

// CheckRemoval decides whether the worktree may be removed. Every rule is
// evaluated so the caller can report all violations at once. Only
// untracked files can be overridden with force; a branch with no upstream
// is treated like one with unpushed commits.
func CheckRemoval(rec Record, st Status, force bool) Decision {
	d := Decision{Allowed: true}

	if rec.IsActive {
		d.deny(ViolationActive, "cannot remove the active worktree")
	}
	if st.IsDirty {
		d.deny(ViolationDirty, "tracked changes present")
	}
	if st.OpInProgress != "" && st.OpInProgress != OpNone {
		d.deny(ViolationOperation, fmt.Sprintf("%s in progress", st.OpInProgress))
	}
	if st.HasUnpushedCommits || !st.HasUpstream() {
		d.deny(ViolationUnpushed, "unpushed commits or no upstream")
	}
	if st.HasUntracked && !force {
		d.deny(ViolationUntracked, "untracked files present, use force")
	}

	return d
}

// CheckBranchDeletion allows deleting branch only when merged is true,
// i.e. every commit on branch is reachable from base.
func CheckBranchDeletion(branch, base string, merged bool) Decision {
	if branch == "" {
		d := Decision{}
		d.deny(ViolationNoBranch, "worktree has a detached HEAD, no branch to delete")
		return d
	}
	if merged {
		return Decision{Allowed: true}
	}
	d := Decision{}
	d.deny(ViolationNotMerged, fmt.Sprintf("branch %q has commits not contained in %q", branch, base))
	return d
}
