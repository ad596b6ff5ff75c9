// pattern: Imperative Shell

package worktree

import (
	"context"
	"strings"

	"featwt/internal/vcs"
)

// StatusResolver computes derived worktree status. Results are cached by
// worktree name for the lifetime of the resolver; create one per command.
type StatusResolver struct {
	vcs   vcs.VCS
	cache map[string]Status
}

// NewStatusResolver creates a resolver with an empty cache.
func NewStatusResolver(v vcs.VCS) *StatusResolver {
	return &StatusResolver{vcs: v, cache: make(map[string]Status)}
}

// Resolve returns the status of rec, querying the VCS on first use.
func (s *StatusResolver) Resolve(ctx context.Context, rec Record) (Status, error) {
	key := strings.ToLower(rec.Name)
	if st, ok := s.cache[key]; ok {
		return st, nil
	}

	st := Status{OpInProgress: OpNone}

	entries, err := s.vcs.PorcelainStatus(ctx, rec.Path)
	if err != nil {
		return Status{}, withOp(err, "status", rec.Name)
	}
	for _, e := range entries {
		if e.IsUntracked() {
			st.HasUntracked = true
		} else if e.IsTrackedChange() {
			st.IsDirty = true
		}
	}

	st.CheckedOut = rec.CheckedOut
	if st.CheckedOut {
		upstream, ok, err := s.vcs.Upstream(ctx, rec.Branch)
		if err != nil {
			return Status{}, withOp(err, "status", rec.Name)
		}
		if ok {
			st.Upstream = upstream
			ahead, err := s.vcs.AheadCount(ctx, rec.Branch, upstream)
			if err != nil {
				return Status{}, withOp(err, "status", rec.Name)
			}
			st.HasUnpushedCommits = ahead > 0
		}
	}

	markers, err := s.vcs.InProgressMarkers(ctx, rec.Path)
	if err != nil {
		return Status{}, withOp(err, "status", rec.Name)
	}
	st.OpInProgress = operationFromMarkers(markers)

	s.cache[key] = st
	return st, nil
}

// Attach resolves rec's status and returns a copy of rec carrying it.
func (s *StatusResolver) Attach(ctx context.Context, rec Record) (Record, error) {
	st, err := s.Resolve(ctx, rec)
	if err != nil {
		return rec, err
	}
	rec.Status = &st
	return rec, nil
}

// operationFromMarkers picks one operation when several markers are
// present: merge, rebase, cherry-pick, bisect.
func operationFromMarkers(m vcs.Markers) Operation {
	switch {
	case m.Merge:
		return OpMerge
	case m.Rebase:
		return OpRebase
	case m.CherryPick:
		return OpCherryPick
	case m.Bisect:
		return OpBisect
	}
	return OpNone
}
