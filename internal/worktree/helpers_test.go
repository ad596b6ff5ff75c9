package worktree

import (
	"os"
	"path/filepath"
	"testing"

	"featwt/internal/vcs"
	"featwt/internal/vcs/vcstest"
)

// testRepo is a fake repository with real directories on disk so that path
// resolution behaves as it does against git.
type testRepo struct {
	fake   *vcstest.Fake
	root   string // Repository root
	wtRoot string // Worktrees root passed to the Manager
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	base := t.TempDir()
	if resolved, err := filepath.EvalSymlinks(base); err == nil {
		base = resolved
	}
	root := filepath.Join(base, "repo")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	return &testRepo{
		fake:   vcstest.NewFake(root, "main"),
		root:   root,
		wtRoot: filepath.Join(base, "worktrees"),
	}
}

// path returns where a worktree named name lives under the worktrees root.
func (r *testRepo) path(name string) string {
	return filepath.Join(r.wtRoot, "repo", name)
}

// addWorktree registers an existing worktree on branch with the given
// upstream ("" for none) and creates its directory.
func (r *testRepo) addWorktree(t *testing.T, name, branch, upstream string) string {
	t.Helper()
	p := r.path(name)
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	r.fake.Worktrees = append(r.fake.Worktrees, vcs.Worktree{Path: p, Branch: branch, Detached: branch == ""})
	if branch != "" {
		r.fake.Branches[branch] = &vcstest.Branch{Upstream: upstream, MergedInto: map[string]bool{}}
	}
	return p
}

func (r *testRepo) manager(cwd string) *Manager {
	if cwd == "" {
		cwd = r.root
	}
	return NewManager(r.fake, Options{Root: r.wtRoot, Cwd: cwd})
}

func untracked(path string) vcs.StatusEntry {
	return vcs.StatusEntry{Index: '?', Worktree: '?', Path: path}
}

func modified(path string) vcs.StatusEntry {
	return vcs.StatusEntry{Index: ' ', Worktree: 'M', Path: path}
}

func wantKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("KindOf(%v) = %s, want %s", err, got, want)
	}
}
