// pattern: Imperative Shell

// Package git implements vcs.VCS against a real repository. Mutations,
// status and network operations go through the git binary; reference,
// remote and configuration reads go through go-git.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"featwt/internal/logging"
	"featwt/internal/vcs"
)

// BaseConfigKey is the branch configuration key recording the declared
// base of a feature branch: branch.<name>.featwtbase.
const BaseConfigKey = "featwtbase"

var _ vcs.VCS = (*Client)(nil)

// Client is a vcs.VCS bound to the repository containing dir.
type Client struct {
	dir    string
	run    *runner
	logger *logging.ScopedLogger

	root string
	repo *gogit.Repository
}

// Option configures a Client.
type Option func(*Client)

// WithBinary overrides the git executable.
func WithBinary(path string) Option {
	return func(c *Client) { c.run.binary = path }
}

// New returns a Client for the repository containing dir. Nothing is read
// until the first call.
func New(dir string, logger *logging.ScopedLogger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.NopLogger()
	}
	c := &Client{
		dir:    dir,
		run:    &runner{binary: "git", logger: logger},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RepoRoot returns the main worktree of the repository, even when dir is
// inside a linked worktree.
func (c *Client) RepoRoot(ctx context.Context) (string, error) {
	if c.root != "" {
		return c.root, nil
	}
	out, err := c.run.run(ctx, c.dir, "rev-parse", "--path-format=absolute", "--git-common-dir")
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && strings.Contains(strings.ToLower(cmdErr.Stderr), "not a git repository") {
			return "", fmt.Errorf("%s: %w", c.dir, vcs.ErrNotARepository)
		}
		return "", err
	}

	commonDir := filepath.Clean(filepath.FromSlash(out))
	root := commonDir
	if filepath.Base(commonDir) == ".git" {
		root = filepath.Dir(commonDir)
	}
	c.root = root
	return root, nil
}

// open returns the go-git handle for the repository, opening it on first use.
func (c *Client) open(ctx context.Context) (*gogit.Repository, error) {
	if c.repo != nil {
		return c.repo, nil
	}
	root, err := c.RepoRoot(ctx)
	if err != nil {
		return nil, err
	}
	repo, err := gogit.PlainOpenWithOptions(root, &gogit.PlainOpenOptions{EnableDotGitCommonDir: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%s: %w", root, vcs.ErrNotARepository)
		}
		return nil, fmt.Errorf("opening repository %s: %w", root, err)
	}
	c.repo = repo
	return repo, nil
}

// DefaultRemoteHead returns the branch the remote's HEAD points to,
// preferring origin over other remotes.
func (c *Client) DefaultRemoteHead(ctx context.Context) (string, bool, error) {
	remotes, err := c.Remotes(ctx)
	if err != nil {
		return "", false, err
	}
	repo, err := c.open(ctx)
	if err != nil {
		return "", false, err
	}

	for _, remote := range remotes {
		ref, err := repo.Reference(plumbing.NewRemoteHEADReferenceName(remote.Name), false)
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			continue
		}
		if err != nil {
			return "", false, err
		}
		if ref.Type() != plumbing.SymbolicReference {
			continue
		}
		prefix := "refs/remotes/" + remote.Name + "/"
		if target := ref.Target().String(); strings.HasPrefix(target, prefix) {
			return strings.TrimPrefix(target, prefix), true, nil
		}
	}
	return "", false, nil
}

// Remotes returns the configured remotes, origin first, then by name.
func (c *Client) Remotes(ctx context.Context) ([]vcs.Remote, error) {
	repo, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	list, err := repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("reading remotes: %w", err)
	}

	remotes := make([]vcs.Remote, 0, len(list))
	for _, r := range list {
		cfg := r.Config()
		remote := vcs.Remote{Name: cfg.Name}
		if len(cfg.URLs) > 0 {
			remote.URL = cfg.URLs[0]
		}
		remotes = append(remotes, remote)
	}
	slices.SortFunc(remotes, func(a, b vcs.Remote) int {
		switch {
		case a.Name == b.Name:
			return 0
		case a.Name == "origin":
			return -1
		case b.Name == "origin":
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return remotes, nil
}

// LocalBranches returns local branch names sorted.
func (c *Client) LocalBranches(ctx context.Context) ([]string, error) {
	repo, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	iter, err := repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	defer iter.Close()

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	slices.Sort(names)
	return names, nil
}

func (c *Client) referenceExists(ctx context.Context, name plumbing.ReferenceName) (bool, error) {
	repo, err := c.open(ctx)
	if err != nil {
		return false, err
	}
	_, err = repo.Reference(name, false)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// BranchExists reports whether refs/heads/<name> exists.
func (c *Client) BranchExists(ctx context.Context, name string) (bool, error) {
	return c.referenceExists(ctx, plumbing.NewBranchReferenceName(name))
}

// RefExists reports whether ref resolves to a commit: a branch, tag,
// remote-tracking ref or hash.
func (c *Client) RefExists(ctx context.Context, ref string) (bool, error) {
	_, err := c.resolve(ctx, ref)
	if errors.Is(err, vcs.ErrRefNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (c *Client) resolve(ctx context.Context, ref string) (plumbing.Hash, error) {
	repo, err := c.open(ctx)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) || errors.Is(err, plumbing.ErrObjectNotFound) {
			return plumbing.ZeroHash, fmt.Errorf("%s: %w", ref, vcs.ErrRefNotFound)
		}
		return plumbing.ZeroHash, fmt.Errorf("resolving %s: %w", ref, err)
	}
	return *hash, nil
}

// RemoteBranchExists reports whether remote has branch. A local
// remote-tracking ref answers without network access; otherwise the remote
// is queried.
func (c *Client) RemoteBranchExists(ctx context.Context, remote, branch string) (bool, error) {
	local, err := c.referenceExists(ctx, plumbing.NewRemoteReferenceName(remote, branch))
	if err != nil || local {
		return local, err
	}

	root, err := c.RepoRoot(ctx)
	if err != nil {
		return false, err
	}
	// ls-remote --exit-code exits 2 when no ref matched.
	_, err = c.run.run(ctx, root, "ls-remote", "--exit-code", "--heads", remote, branch)
	if exitCode(err) == 2 {
		return false, nil
	}
	return err == nil, err
}

// Fetch updates the remote-tracking ref <remote>/<ref>.
func (c *Client) Fetch(ctx context.Context, remote, ref string) error {
	root, err := c.RepoRoot(ctx)
	if err != nil {
		return err
	}
	refspec := fmt.Sprintf("refs/heads/%s:refs/remotes/%s/%s", ref, remote, ref)
	_, err = c.run.run(ctx, root, "fetch", "--no-tags", remote, refspec)
	return err
}

// ListWorktrees returns every worktree, main first.
func (c *Client) ListWorktrees(ctx context.Context) ([]vcs.Worktree, error) {
	root, err := c.RepoRoot(ctx)
	if err != nil {
		return nil, err
	}
	out, err := c.run.runRaw(ctx, root, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parseWorktreeList(out), nil
}

// AddWorktree creates a worktree at path. With reuseExisting it checks out
// the existing branch; otherwise it creates branch from baseRef without
// tracking it.
func (c *Client) AddWorktree(ctx context.Context, path, branch, baseRef string, reuseExisting bool) error {
	root, err := c.RepoRoot(ctx)
	if err != nil {
		return err
	}
	args := []string{"worktree", "add"}
	if reuseExisting {
		args = append(args, path, branch)
	} else {
		args = append(args, "--no-track", "-b", branch, path, baseRef)
	}
	_, err = c.run.run(ctx, root, args...)
	return err
}

// RemoveWorktree removes the worktree at path. Without force git refuses
// when the worktree has modified or untracked files.
func (c *Client) RemoveWorktree(ctx context.Context, path string, force bool) error {
	root, err := c.RepoRoot(ctx)
	if err != nil {
		return err
	}
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	_, err = c.run.run(ctx, root, append(args, path)...)
	return err
}

// PruneWorktrees removes administrative data for worktrees whose
// directories were deleted outside git.
func (c *Client) PruneWorktrees(ctx context.Context) error {
	root, err := c.RepoRoot(ctx)
	if err != nil {
		return err
	}
	_, err = c.run.run(ctx, root, "worktree", "prune")
	return err
}

// DeleteBranch deletes the local branch. Callers check containment first,
// so git's own merge check is skipped.
func (c *Client) DeleteBranch(ctx context.Context, name string) error {
	root, err := c.RepoRoot(ctx)
	if err != nil {
		return err
	}
	_, err = c.run.run(ctx, root, "branch", "-D", name)
	return err
}

// PorcelainStatus returns the status entries of the worktree at path.
func (c *Client) PorcelainStatus(ctx context.Context, path string) ([]vcs.StatusEntry, error) {
	out, err := c.run.runRaw(ctx, path, "status", "--porcelain=v1", "-z", "--untracked-files=normal")
	if err != nil {
		return nil, err
	}
	return parseStatus(out), nil
}

// Upstream returns the remote-tracking ref branch is configured to
// follow. A configured upstream whose ref no longer exists counts as none.
func (c *Client) Upstream(ctx context.Context, branch string) (string, bool, error) {
	repo, err := c.open(ctx)
	if err != nil {
		return "", false, err
	}
	cfg, err := repo.Config()
	if err != nil {
		return "", false, fmt.Errorf("reading config: %w", err)
	}

	b, ok := cfg.Branches[branch]
	if !ok || b.Remote == "" || b.Merge == "" {
		return "", false, nil
	}

	var upstream plumbing.ReferenceName
	var short string
	if b.Remote == "." {
		upstream, short = b.Merge, b.Merge.Short()
	} else {
		name := b.Merge.Short()
		upstream = plumbing.NewRemoteReferenceName(b.Remote, name)
		short = b.Remote + "/" + name
	}

	exists, err := c.referenceExists(ctx, upstream)
	if err != nil || !exists {
		return "", false, err
	}
	return short, true, nil
}

// AheadCount counts commits reachable from local but not from upstream.
func (c *Client) AheadCount(ctx context.Context, local, upstream string) (int, error) {
	root, err := c.RepoRoot(ctx)
	if err != nil {
		return 0, err
	}
	out, err := c.run.run(ctx, root, "rev-list", "--count", upstream+".."+local)
	if err != nil {
		return 0, err
	}
	return parseCount(out)
}

// IsAncestor reports whether every commit on branch is reachable from base.
func (c *Client) IsAncestor(ctx context.Context, branch, base string) (bool, error) {
	repo, err := c.open(ctx)
	if err != nil {
		return false, err
	}
	branchHash, err := c.resolve(ctx, branch)
	if err != nil {
		return false, err
	}
	baseHash, err := c.resolve(ctx, base)
	if err != nil {
		return false, err
	}
	if branchHash == baseHash {
		return true, nil
	}

	branchCommit, err := repo.CommitObject(branchHash)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", branch, err)
	}
	baseCommit, err := repo.CommitObject(baseHash)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", base, err)
	}
	return branchCommit.IsAncestor(baseCommit)
}

// BranchBase returns the recorded declared base of branch, or "".
func (c *Client) BranchBase(ctx context.Context, branch string) (string, error) {
	repo, err := c.open(ctx)
	if err != nil {
		return "", err
	}
	cfg, err := repo.Config()
	if err != nil {
		return "", fmt.Errorf("reading config: %w", err)
	}
	if !cfg.Raw.HasSection("branch") {
		return "", nil
	}
	section := cfg.Raw.Section("branch")
	if !section.HasSubsection(branch) {
		return "", nil
	}
	return section.Subsection(branch).Option(BaseConfigKey), nil
}

// SetBranchBase records base as the declared base of branch.
func (c *Client) SetBranchBase(ctx context.Context, branch, base string) error {
	root, err := c.RepoRoot(ctx)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("branch.%s.%s", branch, BaseConfigKey)
	_, err = c.run.run(ctx, root, "config", key, base)
	return err
}
