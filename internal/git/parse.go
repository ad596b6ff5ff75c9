// pattern: Functional Core

package git

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"featwt/internal/vcs"
)

// parseWorktreeList parses `git worktree list --porcelain`. The first entry
// is the main worktree. Bare entries are dropped.
func parseWorktreeList(out string) []vcs.Worktree {
	var worktrees []vcs.Worktree
	var current vcs.Worktree
	inEntry, bare, isFirst := false, false, true

	flush := func() {
		if inEntry && !bare && current.Path != "" {
			worktrees = append(worktrees, current)
		}
		current, inEntry, bare = vcs.Worktree{}, false, false
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			current = vcs.Worktree{
				// git reports forward slashes on Windows.
				Path:   filepath.FromSlash(strings.TrimPrefix(line, "worktree ")),
				IsMain: isFirst,
			}
			inEntry, isFirst = true, false
		case strings.HasPrefix(line, "HEAD "):
			current.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			current.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		case line == "detached":
			current.Detached = true
		case line == "bare":
			bare = true
		case line == "prunable" || strings.HasPrefix(line, "prunable "):
			current.Prunable = true
		case line == "":
			flush()
		}
	}
	flush()
	return worktrees
}

// parseStatus parses `git status --porcelain=v1 -z`. Each record is
// "XY path" terminated by NUL; renames and copies are followed by one more
// NUL-terminated field holding the original path.
func parseStatus(out string) []vcs.StatusEntry {
	var entries []vcs.StatusEntry
	fields := strings.Split(out, "\x00")
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if len(f) < 4 {
			continue
		}
		e := vcs.StatusEntry{Index: f[0], Worktree: f[1], Path: f[3:]}
		entries = append(entries, e)
		if e.Index == 'R' || e.Index == 'C' || e.Worktree == 'R' || e.Worktree == 'C' {
			i++ // skip the original path
		}
	}
	return entries
}

// parseCount parses the output of `git rev-list --count`.
func parseCount(out string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("parsing commit count %q: %w", out, err)
	}
	return n, nil
}
