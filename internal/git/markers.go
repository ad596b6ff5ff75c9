// pattern: Imperative Shell

package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"featwt/internal/vcs"
)

// InProgressMarkers reads the state files git leaves in a worktree's git
// directory while a merge, rebase, cherry-pick or bisect is underway.
func (c *Client) InProgressMarkers(ctx context.Context, path string) (vcs.Markers, error) {
	gitDir, err := c.run.run(ctx, path, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return vcs.Markers{}, err
	}
	return readMarkers(osfs.New(filepath.FromSlash(gitDir)))
}

// readMarkers checks for marker files in a git directory.
func readMarkers(fs billy.Filesystem) (vcs.Markers, error) {
	var m vcs.Markers
	checks := []struct {
		names []string
		set   *bool
	}{
		{[]string{"MERGE_HEAD"}, &m.Merge},
		{[]string{"rebase-merge", "rebase-apply"}, &m.Rebase},
		{[]string{"CHERRY_PICK_HEAD"}, &m.CherryPick},
		{[]string{"BISECT_LOG"}, &m.Bisect},
	}

	for _, check := range checks {
		for _, name := range check.names {
			_, err := fs.Stat(name)
			if err == nil {
				*check.set = true
				break
			}
			if !errors.Is(err, os.ErrNotExist) {
				return vcs.Markers{}, fmt.Errorf("checking %s: %w", name, err)
			}
		}
	}
	return m, nil
}
