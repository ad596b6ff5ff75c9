// pattern: Imperative Shell

package worktree

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"featwt/internal/logging"
	"featwt/internal/vcs"
)

// maxSiblingSuffix bounds the search for a free sibling branch name.
const maxSiblingSuffix = 100

// Options configures a Manager.
type Options struct {
	// Root is the absolute worktrees root. Worktrees are created at
	// <Root>/<repository directory name>/<feature name>.
	Root string
	// Cwd is the current directory captured once at command start.
	Cwd string
	// CopyFile names the per-repository copy pattern file.
	// Empty selects DefaultCopyFile.
	CopyFile string
	Logger   *logging.ScopedLogger
}

// Manager implements create, switch and remove on top of the registry,
// status resolver and safety gate. A Manager serves one command
// invocation: the repository description and status results are cached.
type Manager struct {
	vcs      vcs.VCS
	root     string
	cwd      string
	copyFile string
	logger   *logging.ScopedLogger
	repo     *Repository
	resolver *StatusResolver
}

// NewManager creates a Manager.
func NewManager(v vcs.VCS, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	copyFile := opts.CopyFile
	if copyFile == "" {
		copyFile = DefaultCopyFile
	}
	return &Manager{
		vcs:      v,
		root:     opts.Root,
		cwd:      opts.Cwd,
		copyFile: copyFile,
		logger:   logger,
		resolver: NewStatusResolver(v),
	}
}

// Cwd returns the effective working directory. SwitchTo changes it.
func (m *Manager) Cwd() string {
	return m.cwd
}

// Repository returns the repository description, resolving it on first use.
func (m *Manager) Repository(ctx context.Context) (Repository, error) {
	if m.repo != nil {
		return *m.repo, nil
	}
	repo, err := ResolveRepository(ctx, m.vcs)
	if err != nil {
		return Repository{}, err
	}
	m.repo = &repo
	m.logger.Debug("repository resolved", "root", repo.Root, "default_branch", repo.DefaultBranch, "remotes", len(repo.Remotes))
	return repo, nil
}

func (m *Manager) snapshot(ctx context.Context) (Repository, *Snapshot, error) {
	repo, err := m.Repository(ctx)
	if err != nil {
		return Repository{}, nil, err
	}
	snap, err := NewRegistry(m.vcs, m.cwd, repo.DefaultBranch).Snapshot(ctx)
	if err != nil {
		return Repository{}, nil, err
	}
	m.logger.Debug("worktree snapshot", "feature_worktrees", len(snap.Records), "all_worktrees", len(snap.All))
	return repo, snap, nil
}

// WorktreePath returns where the worktree named name is created.
func (m *Manager) WorktreePath(repo Repository, name FeatureName) string {
	return filepath.Join(m.root, filepath.Base(repo.Root), name.String())
}

// CreateOptions controls branch selection and setup during Create.
type CreateOptions struct {
	// Sibling creates a suffixed branch when a branch with the feature name
	// is already checked out in another worktree.
	Sibling bool
	// NoCopy skips copying files listed in the copy pattern file.
	NoCopy bool
}

// Create validates rawName, picks or creates the branch and adds the
// worktree. baseRef defaults to the repository's default branch.
func (m *Manager) Create(ctx context.Context, rawName, baseRef string, opts CreateOptions) (Record, error) {
	name, err := ValidateName(rawName)
	if err != nil {
		return Record{}, withOp(err, "create", rawName)
	}

	repo, snap, err := m.snapshot(ctx)
	if err != nil {
		return Record{}, withOp(err, "create", name.String())
	}
	if existing, ok := snap.Find(name.String()); ok {
		reason := fmt.Sprintf("worktree already exists at %s", existing.Path)
		if existing.Missing {
			reason = fmt.Sprintf("worktree is registered at %s but its directory is missing; remove it first", existing.Path)
		}
		return Record{}, newError(KindAlreadyExists, "create", name.String(), reason)
	}

	base := baseRef
	if base == "" {
		base = repo.DefaultBranch
	}
	startPoint, err := m.ensureBase(ctx, repo, base)
	if err != nil {
		return Record{}, withOp(err, "create", name.String())
	}

	branch, reuse, err := m.chooseBranch(ctx, snap, name.String(), opts.Sibling)
	if err != nil {
		return Record{}, withOp(err, "create", name.String())
	}

	path := m.WorktreePath(repo, name)
	if err := prepareTarget(path); err != nil {
		return Record{}, withOp(err, "create", name.String())
	}

	log := m.logger.With("name", name.String(), "branch", branch)
	log.Debug("adding worktree", "path", path, "start_point", startPoint, "reuse_branch", reuse)
	if err := m.vcs.AddWorktree(ctx, path, branch, startPoint, reuse); err != nil {
		return Record{}, withOp(err, "create", name.String())
	}

	if recorded := m.recordedBase(ctx, branch, reuse, log); recorded != "" {
		base = recorded
	} else if err := m.vcs.SetBranchBase(ctx, branch, base); err != nil {
		log.Warn("failed to record base branch", "base", base, "error", err)
	}

	if !opts.NoCopy {
		m.copyIntoWorktree(repo.Root, path, log)
	}

	log.Info("worktree created", "path", path, "base", base)
	return Record{
		Name:       name.String(),
		Branch:     branch,
		BaseRef:    base,
		Path:       path,
		CheckedOut: true,
		Status:     &Status{CheckedOut: true, OpInProgress: OpNone},
	}, nil
}

// recordedBase returns the base a reused branch already carries. A branch
// keeps the base it was first created from.
func (m *Manager) recordedBase(ctx context.Context, branch string, reuse bool, log *logging.ScopedLogger) string {
	if !reuse {
		return ""
	}
	recorded, err := m.vcs.BranchBase(ctx, branch)
	if err != nil {
		log.Warn("failed to read recorded base", "error", err)
		return ""
	}
	return recorded
}

// ensureBase returns the start point for a new branch based on base,
// fetching it from a remote when it only exists there.
func (m *Manager) ensureBase(ctx context.Context, repo Repository, base string) (string, error) {
	exists, err := m.vcs.RefExists(ctx, base)
	if err != nil {
		return "", err
	}
	if exists {
		return base, nil
	}

	for _, remote := range repo.Remotes {
		onRemote, err := m.vcs.RemoteBranchExists(ctx, remote.Name, base)
		if err != nil {
			return "", err
		}
		if !onRemote {
			continue
		}
		m.logger.Info("fetching base from remote", "remote", remote.Name, "ref", base)
		if err := m.vcs.Fetch(ctx, remote.Name, base); err != nil {
			return "", &Error{Kind: KindFetchFailed, Name: base,
				Reasons: []string{fmt.Sprintf("fetching %q from remote %q failed", base, remote.Name)}, Err: err}
		}
		return remote.Name + "/" + base, nil
	}

	return "", newError(KindRefNotFound, "", base, fmt.Sprintf("base ref %q not found locally or on any remote", base))
}

// chooseBranch decides whether to reuse the branch named after the feature,
// create it, or create a suffixed sibling.
func (m *Manager) chooseBranch(ctx context.Context, snap *Snapshot, name string, sibling bool) (string, bool, error) {
	exists, err := m.vcs.BranchExists(ctx, name)
	if err != nil {
		return "", false, err
	}
	if !exists {
		return name, false, nil
	}

	at, checkedOut := snap.CheckedOutAt(name)
	if !checkedOut {
		return name, true, nil
	}
	if !sibling {
		return "", false, newError(KindConflict, "", name,
			fmt.Sprintf("branch %q is checked out at %s; use the sibling option to create a new branch", name, at))
	}

	for i := 2; i <= maxSiblingSuffix; i++ {
		candidate := fmt.Sprintf("%s-%d", name, i)
		taken, err := m.vcs.BranchExists(ctx, candidate)
		if err != nil {
			return "", false, err
		}
		if !taken {
			m.logger.Info("creating sibling branch", "name", name, "branch", candidate, "checked_out_at", at)
			return candidate, false, nil
		}
	}
	return "", false, newError(KindConflict, "", name,
		fmt.Sprintf("no free sibling branch name up to %s-%d", name, maxSiblingSuffix))
}

// prepareTarget ensures path is absent or an empty directory and that its
// parent exists.
func prepareTarget(path string) error {
	info, err := os.Stat(path)
	switch {
	case err == nil && !info.IsDir():
		return newError(KindFilesystem, "", path, "target path exists and is not a directory")
	case err == nil:
		entries, err := os.ReadDir(path)
		if err != nil {
			return &Error{Kind: KindFilesystem, Name: path, Reasons: []string{"cannot read target directory"}, Err: err}
		}
		if len(entries) > 0 {
			return newError(KindFilesystem, "", path, "target directory exists and is not empty")
		}
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return &Error{Kind: KindFilesystem, Name: path, Reasons: []string{"cannot access target path"}, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &Error{Kind: KindFilesystem, Name: path, Reasons: []string{"cannot create worktrees directory"}, Err: err}
	}
	return nil
}

func (m *Manager) copyIntoWorktree(repoRoot, path string, log *logging.ScopedLogger) {
	patterns, err := ReadCopyPatterns(repoRoot, m.copyFile)
	if err != nil {
		log.Warn("failed to read copy patterns", "file", m.copyFile, "error", err)
		return
	}
	copied, err := CopyMatchingFiles(repoRoot, path, patterns)
	if err != nil {
		log.Warn("failed to copy files into worktree", "error", err, "copied", len(copied))
		return
	}
	if len(copied) > 0 {
		log.Info("copied files into worktree", "files", copied)
	}
}

// SwitchResult describes a switch. Previous is nil when the command did
// not start inside a feature worktree.
type SwitchResult struct {
	Current  Record   `json:"current"`
	Previous *Record  `json:"previous"`
	Warnings []string `json:"warnings"`
}

// SwitchTo makes the named worktree the effective working directory.
// Pending changes in the previously active worktree produce warnings but
// never block the switch.
func (m *Manager) SwitchTo(ctx context.Context, name string) (SwitchResult, error) {
	_, snap, err := m.snapshot(ctx)
	if err != nil {
		return SwitchResult{}, withOp(err, "switch", name)
	}

	target, ok := snap.Find(name)
	if !ok {
		return SwitchResult{}, newError(KindNotFound, "switch", name, "no such worktree")
	}
	if target.Missing {
		return SwitchResult{}, newError(KindNotFound, "switch", target.Name,
			fmt.Sprintf("worktree directory %s is missing", target.Path))
	}

	result := SwitchResult{Warnings: []string{}}
	if prev, ok := snap.Active(); ok {
		st, err := m.resolver.Resolve(ctx, prev)
		if err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("could not read status of %s: %v", prev.Name, err))
		} else {
			prev.Status = &st
			if w := dirtyWarning(prev.Name, st); w != "" {
				result.Warnings = append(result.Warnings, w)
			}
		}
		result.Previous = &prev
	}

	target.IsActive = true
	result.Current = target
	m.cwd = target.Path
	m.logger.Debug("switched worktree", "name", target.Name, "path", target.Path, "warnings", len(result.Warnings))
	return result, nil
}

func dirtyWarning(name string, st Status) string {
	switch {
	case st.IsDirty && st.HasUntracked:
		return fmt.Sprintf("%s has uncommitted tracked changes and untracked files", name)
	case st.IsDirty:
		return fmt.Sprintf("%s has uncommitted tracked changes", name)
	case st.HasUntracked:
		return fmt.Sprintf("%s has untracked files", name)
	}
	return ""
}

// RemoveOptions controls Remove.
type RemoveOptions struct {
	// Force allows removal when untracked files are present.
	Force bool
	// DeleteBranch also deletes the worktree's branch once it is fully
	// contained in MergedInto.
	DeleteBranch bool
	// MergedInto is the base for the branch deletion check. Defaults to the
	// worktree's recorded base, then the repository's default branch.
	MergedInto string
}

// RemoveResult reports what Remove did. BranchReasons explains why a
// requested branch deletion did not happen.
type RemoveResult struct {
	Removed       bool     `json:"removed"`
	BranchDeleted bool     `json:"branchDeleted"`
	Branch        string   `json:"branch,omitempty"`
	Base          string   `json:"base,omitempty"`
	BranchReasons []string `json:"branchReasons,omitempty"`
	Record        Record   `json:"worktree"`
}

// Partial reports whether the worktree was removed but a requested branch
// deletion was not performed.
func (r RemoveResult) Partial() bool {
	return r.Removed && !r.BranchDeleted && len(r.BranchReasons) > 0
}

// Remove deletes the named worktree once the safety gate allows it, and
// optionally its branch. A branch deletion refused after the worktree was
// removed is reported in the result, not as an error.
func (m *Manager) Remove(ctx context.Context, name string, opts RemoveOptions) (RemoveResult, error) {
	repo, snap, err := m.snapshot(ctx)
	if err != nil {
		return RemoveResult{}, withOp(err, "remove", name)
	}

	rec, ok := snap.Find(name)
	if !ok {
		return RemoveResult{}, newError(KindNotFound, "remove", name, "no such worktree")
	}
	log := m.logger.With("name", rec.Name)

	base := opts.MergedInto
	if base == "" {
		base = rec.BaseRef
	}
	if base == "" {
		base = repo.DefaultBranch
	}
	if opts.DeleteBranch && rec.CheckedOut {
		exists, err := m.vcs.RefExists(ctx, base)
		if err != nil {
			return RemoveResult{}, withOp(err, "remove", rec.Name)
		}
		if !exists {
			return RemoveResult{}, newError(KindRefNotFound, "remove", base,
				fmt.Sprintf("base %q for the merge check does not exist", base))
		}
	}

	var result RemoveResult
	if rec.Missing {
		// The directory is already gone; only the registration is left.
		result.Record = rec
		if err := m.vcs.PruneWorktrees(ctx); err != nil {
			return result, withOp(err, "remove", rec.Name)
		}
		result.Removed = true
		log.Warn("pruned worktree with missing directory", "path", rec.Path)
	} else {
		rec, err = m.resolver.Attach(ctx, rec)
		if err != nil {
			return RemoveResult{}, withOp(err, "remove", rec.Name)
		}

		result.Record = rec
		decision := CheckRemoval(rec, *rec.Status, opts.Force)
		if !decision.Allowed {
			log.Debug("removal denied", "violations", decision.Violations)
			return result, decision.Err("remove", rec.Name)
		}

		if err := m.vcs.RemoveWorktree(ctx, rec.Path, opts.Force); err != nil {
			return result, withOp(err, "remove", rec.Name)
		}
		result.Removed = true
		log.Info("worktree removed", "path", rec.Path, "force", opts.Force)
	}

	if !opts.DeleteBranch {
		return result, nil
	}

	result.Branch = rec.Branch
	result.Base = base
	merged := false
	if rec.CheckedOut {
		merged, err = m.vcs.IsAncestor(ctx, rec.Branch, base)
		if err != nil {
			log.Warn("merge check failed, keeping branch", "base", base, "error", err)
			result.BranchReasons = []string{fmt.Sprintf("merge check against %q failed: %v", base, err)}
			return result, nil
		}
	}

	bd := CheckBranchDeletion(rec.Branch, base, merged)
	if !bd.Allowed {
		log.Warn("branch kept", "branch", rec.Branch, "reasons", bd.Reasons)
		result.BranchReasons = bd.Reasons
		return result, nil
	}

	if err := m.vcs.DeleteBranch(ctx, rec.Branch); err != nil {
		log.Warn("branch deletion failed", "branch", rec.Branch, "error", err)
		result.BranchReasons = []string{fmt.Sprintf("deleting branch %q failed: %v", rec.Branch, err)}
		return result, nil
	}
	result.BranchDeleted = true
	log.Info("branch deleted", "branch", rec.Branch, "base", base)
	return result, nil
}

// List returns one page of feature worktrees. With withStatus, status is
// resolved for the returned page only.
func (m *Manager) List(ctx context.Context, q ListQuery, withStatus bool) (ListPage, error) {
	_, snap, err := m.snapshot(ctx)
	if err != nil {
		return ListPage{}, withOp(err, "list", "")
	}
	page := q.Apply(snap.Records)
	for _, rec := range snap.Missing() {
		page.Warnings = append(page.Warnings,
			fmt.Sprintf("%s: directory %s is missing; remove it to prune the entry", rec.Name, rec.Path))
	}
	if withStatus {
		for i, rec := range page.Items {
			if rec.Missing {
				continue
			}
			resolved, err := m.resolver.Attach(ctx, rec)
			if err != nil {
				return ListPage{}, withOp(err, "list", rec.Name)
			}
			page.Items[i] = resolved
		}
	}
	return page, nil
}

// StatusReport is a resolved worktree plus what the safety gate would
// decide for a removal without force.
type StatusReport struct {
	Worktree Record   `json:"worktree"`
	Removal  Decision `json:"removal"`
}

// Status resolves one worktree. An empty name selects the active worktree.
func (m *Manager) Status(ctx context.Context, name string) (StatusReport, error) {
	_, snap, err := m.snapshot(ctx)
	if err != nil {
		return StatusReport{}, withOp(err, "status", name)
	}

	var rec Record
	var ok bool
	if name == "" {
		rec, ok = snap.Active()
		if !ok {
			return StatusReport{}, newError(KindNotFound, "status", "", "not inside a feature worktree")
		}
	} else if rec, ok = snap.Find(name); !ok {
		return StatusReport{}, newError(KindNotFound, "status", name, "no such worktree")
	}

	if rec.Missing {
		// Removal only prunes the registration, so the gate has nothing to check.
		return StatusReport{Worktree: rec, Removal: Decision{Allowed: true}}, nil
	}

	rec, err = m.resolver.Attach(ctx, rec)
	if err != nil {
		return StatusReport{}, withOp(err, "status", rec.Name)
	}
	return StatusReport{Worktree: rec, Removal: CheckRemoval(rec, *rec.Status, false)}, nil
}
