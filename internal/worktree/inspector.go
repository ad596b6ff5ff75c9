// pattern: Imperative Shell

package worktree

import (
	"context"
	"errors"

	"featwt/internal/vcs"
)

// ResolveRepository reads the repository root, remotes and default branch.
//
// The default branch is, in order: the remote's symbolic HEAD, a local
// "main", a local "master", and when there are no remotes at all, the first
// local branch.
func ResolveRepository(ctx context.Context, v vcs.VCS) (Repository, error) {
	root, err := v.RepoRoot(ctx)
	if err != nil {
		if errors.Is(err, vcs.ErrNotARepository) {
			return Repository{}, &Error{Kind: KindNotARepository, Op: "inspect",
				Reasons: []string{"current directory is not inside a repository"}, Err: err}
		}
		return Repository{}, withOp(err, "inspect", "")
	}

	remotes, err := v.Remotes(ctx)
	if err != nil {
		return Repository{}, withOp(err, "inspect", "")
	}
	if remotes == nil {
		remotes = []vcs.Remote{}
	}

	def, err := defaultBranch(ctx, v, len(remotes) > 0)
	if err != nil {
		return Repository{}, err
	}

	return Repository{Root: root, DefaultBranch: def, Remotes: remotes}, nil
}

func defaultBranch(ctx context.Context, v vcs.VCS, hasRemotes bool) (string, error) {
	if hasRemotes {
		head, ok, err := v.DefaultRemoteHead(ctx)
		if err != nil {
			return "", withOp(err, "inspect", "")
		}
		if ok && head != "" {
			return head, nil
		}
	}

	for _, candidate := range []string{"main", "master"} {
		exists, err := v.BranchExists(ctx, candidate)
		if err != nil {
			return "", withOp(err, "inspect", candidate)
		}
		if exists {
			return candidate, nil
		}
	}

	if !hasRemotes {
		branches, err := v.LocalBranches(ctx)
		if err != nil {
			return "", withOp(err, "inspect", "")
		}
		if len(branches) > 0 {
			return branches[0], nil
		}
	}

	return "", newError(KindNoDefaultBranch, "inspect", "",
		"no remote HEAD and no local main or master branch")
}
