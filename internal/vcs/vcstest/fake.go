// pattern: Imperative Shell

// Package vcstest provides an in-memory vcs.VCS for tests.
package vcstest

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"featwt/internal/vcs"
)

var _ vcs.VCS = (*Fake)(nil)

// Branch is the state the Fake keeps for one local branch.
type Branch struct {
	Upstream   string          // Remote-tracking ref, empty when none
	Ahead      int             // Commits not on Upstream
	Base       string          // Recorded declared base
	MergedInto map[string]bool // Bases this branch is fully contained in
}

// Fake is an in-memory VCS for tests. Zero value is an empty repository
// with no branches; populate the exported fields before use.
// Worktree directories are created and removed on the real filesystem so
// that path checks behave as they do against git.
type Fake struct {
	Root       string
	NotRepo    bool
	RemoteList []vcs.Remote
	RemoteHead string

	Branches       map[string]*Branch
	Refs           map[string]bool            // Extra resolvable refs (tags, remote refs)
	RemoteBranches map[string]map[string]bool // remote -> branch set
	Worktrees      []vcs.Worktree
	Status         map[string][]vcs.StatusEntry
	MarkerState    map[string]vcs.Markers

	// Errs forces a method (by name, e.g. "Fetch") to fail.
	Errs map[string]error

	mu    sync.Mutex
	calls map[string]int
}

// NewFake returns a Fake rooted at root whose main worktree is on mainBranch.
func NewFake(root, mainBranch string) *Fake {
	return &Fake{
		Root:           root,
		Branches:       map[string]*Branch{mainBranch: {}},
		Refs:           map[string]bool{},
		RemoteBranches: map[string]map[string]bool{},
		Status:         map[string][]vcs.StatusEntry{},
		MarkerState:    map[string]vcs.Markers{},
		Errs:           map[string]error{},
		Worktrees: []vcs.Worktree{
			{Path: root, Branch: mainBranch, IsMain: true},
		},
	}
}

// Calls returns how many times method was invoked.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *Fake) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[method]++
	return f.Errs[method]
}

func (f *Fake) branch(name string) *Branch {
	if f.Branches == nil {
		f.Branches = make(map[string]*Branch)
	}
	b, ok := f.Branches[name]
	if !ok {
		return nil
	}
	return b
}

func (f *Fake) RepoRoot(ctx context.Context) (string, error) {
	if err := f.record("RepoRoot"); err != nil {
		return "", err
	}
	if f.NotRepo {
		return "", vcs.ErrNotARepository
	}
	return f.Root, nil
}

func (f *Fake) DefaultRemoteHead(ctx context.Context) (string, bool, error) {
	if err := f.record("DefaultRemoteHead"); err != nil {
		return "", false, err
	}
	return f.RemoteHead, f.RemoteHead != "", nil
}

func (f *Fake) Remotes(ctx context.Context) ([]vcs.Remote, error) {
	if err := f.record("Remotes"); err != nil {
		return nil, err
	}
	return slices.Clone(f.RemoteList), nil
}

func (f *Fake) LocalBranches(ctx context.Context) ([]string, error) {
	if err := f.record("LocalBranches"); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(f.Branches))
	for name := range f.Branches {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (f *Fake) BranchExists(ctx context.Context, name string) (bool, error) {
	if err := f.record("BranchExists"); err != nil {
		return false, err
	}
	return f.branch(name) != nil, nil
}

func (f *Fake) RefExists(ctx context.Context, ref string) (bool, error) {
	if err := f.record("RefExists"); err != nil {
		return false, err
	}
	return f.resolves(ref), nil
}

func (f *Fake) resolves(ref string) bool {
	return f.branch(ref) != nil || f.Refs[ref]
}

func (f *Fake) RemoteBranchExists(ctx context.Context, remote, branch string) (bool, error) {
	if err := f.record("RemoteBranchExists"); err != nil {
		return false, err
	}
	return f.RemoteBranches[remote][branch], nil
}

func (f *Fake) Fetch(ctx context.Context, remote, ref string) error {
	if err := f.record("Fetch"); err != nil {
		return err
	}
	if !f.RemoteBranches[remote][ref] {
		return fmt.Errorf("couldn't find remote ref %s", ref)
	}
	if f.Refs == nil {
		f.Refs = make(map[string]bool)
	}
	f.Refs[remote+"/"+ref] = true
	return nil
}

func (f *Fake) ListWorktrees(ctx context.Context) ([]vcs.Worktree, error) {
	if err := f.record("ListWorktrees"); err != nil {
		return nil, err
	}
	list := slices.Clone(f.Worktrees)
	for i := range list {
		if !list[i].IsMain && !exists(list[i].Path) {
			list[i].Prunable = true
		}
	}
	return list, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (f *Fake) AddWorktree(ctx context.Context, path, branch, baseRef string, reuseExisting bool) error {
	if err := f.record("AddWorktree"); err != nil {
		return err
	}
	for _, wt := range f.Worktrees {
		if wt.Path == path {
			return fmt.Errorf("'%s' already exists", path)
		}
		if wt.Branch == branch {
			return fmt.Errorf("'%s' is already checked out at '%s'", branch, wt.Path)
		}
	}
	if reuseExisting {
		if f.branch(branch) == nil {
			return fmt.Errorf("invalid reference: %s", branch)
		}
	} else {
		if f.branch(branch) != nil {
			return fmt.Errorf("a branch named '%s' already exists", branch)
		}
		if !f.resolves(baseRef) {
			return fmt.Errorf("invalid reference: %s", baseRef)
		}
		f.Branches[branch] = &Branch{}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}
	f.Worktrees = append(f.Worktrees, vcs.Worktree{Path: path, Branch: branch})
	return nil
}

func (f *Fake) RemoveWorktree(ctx context.Context, path string, force bool) error {
	if err := f.record("RemoveWorktree"); err != nil {
		return err
	}
	idx := slices.IndexFunc(f.Worktrees, func(wt vcs.Worktree) bool { return wt.Path == path })
	if idx < 0 {
		return fmt.Errorf("'%s' is not a working tree", path)
	}
	if !force {
		for _, e := range f.Status[path] {
			if e.IsUntracked() || e.IsTrackedChange() {
				return fmt.Errorf("'%s' contains modified or untracked files, use --force to delete it", path)
			}
		}
	}
	f.Worktrees = slices.Delete(f.Worktrees, idx, idx+1)
	delete(f.Status, path)
	return os.RemoveAll(path)
}

func (f *Fake) PruneWorktrees(ctx context.Context) error {
	if err := f.record("PruneWorktrees"); err != nil {
		return err
	}
	f.Worktrees = slices.DeleteFunc(f.Worktrees, func(wt vcs.Worktree) bool {
		return !wt.IsMain && !exists(wt.Path)
	})
	return nil
}

func (f *Fake) DeleteBranch(ctx context.Context, name string) error {
	if err := f.record("DeleteBranch"); err != nil {
		return err
	}
	if f.branch(name) == nil {
		return fmt.Errorf("branch '%s' not found", name)
	}
	for _, wt := range f.Worktrees {
		if wt.Branch == name {
			return fmt.Errorf("cannot delete branch '%s' checked out at '%s'", name, wt.Path)
		}
	}
	delete(f.Branches, name)
	return nil
}

func (f *Fake) PorcelainStatus(ctx context.Context, path string) ([]vcs.StatusEntry, error) {
	if err := f.record("PorcelainStatus"); err != nil {
		return nil, err
	}
	if !exists(path) {
		return nil, fmt.Errorf("chdir %s: no such file or directory", path)
	}
	return slices.Clone(f.Status[path]), nil
}

func (f *Fake) Upstream(ctx context.Context, branch string) (string, bool, error) {
	if err := f.record("Upstream"); err != nil {
		return "", false, err
	}
	b := f.branch(branch)
	if b == nil || b.Upstream == "" {
		return "", false, nil
	}
	return b.Upstream, true, nil
}

func (f *Fake) AheadCount(ctx context.Context, local, upstream string) (int, error) {
	if err := f.record("AheadCount"); err != nil {
		return 0, err
	}
	b := f.branch(local)
	if b == nil {
		return 0, vcs.ErrRefNotFound
	}
	return b.Ahead, nil
}

func (f *Fake) IsAncestor(ctx context.Context, branch, base string) (bool, error) {
	if err := f.record("IsAncestor"); err != nil {
		return false, err
	}
	if !f.resolves(branch) || !f.resolves(base) {
		return false, vcs.ErrRefNotFound
	}
	if branch == base {
		return true, nil
	}
	b := f.branch(branch)
	return b != nil && b.MergedInto[base], nil
}

func (f *Fake) InProgressMarkers(ctx context.Context, path string) (vcs.Markers, error) {
	if err := f.record("InProgressMarkers"); err != nil {
		return vcs.Markers{}, err
	}
	return f.MarkerState[path], nil
}

func (f *Fake) BranchBase(ctx context.Context, branch string) (string, error) {
	if err := f.record("BranchBase"); err != nil {
		return "", err
	}
	if b := f.branch(branch); b != nil {
		return b.Base, nil
	}
	return "", nil
}

func (f *Fake) SetBranchBase(ctx context.Context, branch, base string) error {
	if err := f.record("SetBranchBase"); err != nil {
		return err
	}
	b := f.branch(branch)
	if b == nil {
		return fmt.Errorf("branch '%s' not found", branch)
	}
	b.Base = strings.TrimSpace(base)
	return nil
}
