// pattern: Imperative Shell

package worktree

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"featwt/internal/vcs"
)

// Registry turns the VCS worktree list into feature worktree records.
type Registry struct {
	vcs         vcs.VCS
	cwd         string
	defaultBase string
}

// NewRegistry creates a registry. cwd is the caller's current directory,
// used for active detection; defaultBase is reported as BaseRef for
// branches with no recorded base.
func NewRegistry(v vcs.VCS, cwd, defaultBase string) *Registry {
	return &Registry{vcs: v, cwd: cwd, defaultBase: defaultBase}
}

// Snapshot is one consistent view of the live worktrees.
type Snapshot struct {
	// Records holds feature worktrees sorted by name.
	Records []Record
	// All holds every worktree the VCS reported, including the main one and
	// directories that do not follow the naming rule.
	All []vcs.Worktree
}

// List returns the feature worktrees sorted by name.
func (r *Registry) List(ctx context.Context) ([]Record, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Records, nil
}

// Snapshot queries the VCS once and builds the records. Status fields are
// left unresolved.
func (r *Registry) Snapshot(ctx context.Context) (*Snapshot, error) {
	raw, err := r.vcs.ListWorktrees(ctx)
	if err != nil {
		return nil, withOp(err, "list", "")
	}

	cwd := realPath(r.cwd)
	snap := &Snapshot{All: raw}
	activeIdx, activeLen := -1, -1

	for _, wt := range raw {
		if wt.IsMain {
			continue
		}
		// Reserved names are not re-checked: a worktree may predate the rule.
		name := filepath.Base(wt.Path)
		if !matchesNameFormat(name) {
			continue
		}

		rec := Record{
			Name:       name,
			Branch:     wt.Branch,
			Path:       wt.Path,
			CheckedOut: !wt.Detached && wt.Branch != "",
			BaseRef:    r.defaultBase,
			Missing:    wt.Prunable || !dirExists(wt.Path),
		}
		if rec.CheckedOut {
			base, err := r.vcs.BranchBase(ctx, wt.Branch)
			if err != nil {
				return nil, withOp(err, "list", name)
			}
			if base != "" {
				rec.BaseRef = base
			}
		}

		if wtPath := realPath(wt.Path); cwd != "" && contains(wtPath, cwd) && len(wtPath) > activeLen {
			activeIdx, activeLen = len(snap.Records), len(wtPath)
		}
		snap.Records = append(snap.Records, rec)
	}

	if activeIdx >= 0 {
		snap.Records[activeIdx].IsActive = true
	}

	slices.SortFunc(snap.Records, func(a, b Record) int {
		return strings.Compare(a.Name, b.Name)
	})
	return snap, nil
}

// Find returns the record whose name matches name case-insensitively.
func (s *Snapshot) Find(name string) (Record, bool) {
	for _, rec := range s.Records {
		if strings.EqualFold(rec.Name, name) {
			return rec, true
		}
	}
	return Record{}, false
}

// Active returns the worktree containing the current directory, if any.
func (s *Snapshot) Active() (Record, bool) {
	for _, rec := range s.Records {
		if rec.IsActive {
			return rec, true
		}
	}
	return Record{}, false
}

// CheckedOutAt returns the path of the worktree that has branch checked
// out, searching every worktree including the main one.
func (s *Snapshot) CheckedOutAt(branch string) (string, bool) {
	for _, wt := range s.All {
		if !wt.Detached && wt.Branch == branch {
			return wt.Path, true
		}
	}
	return "", false
}

// realPath resolves symlinks so that a worktree entered through a symlinked
// path is still recognized. Falls back to the cleaned absolute path.
func realPath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	return filepath.Clean(p)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Missing returns the records whose directories are gone.
func (s *Snapshot) Missing() []Record {
	var out []Record
	for _, rec := range s.Records {
		if rec.Missing {
			out = append(out, rec)
		}
	}
	return out
}

// contains reports whether path is root or lies beneath it.
func contains(root, path string) bool {
	if root == path {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, string(os.PathSeparator))+string(os.PathSeparator))
}
