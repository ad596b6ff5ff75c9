// pattern: Imperative Shell

package worktree

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/gobwas/glob"
)

// DefaultCopyFile is the per-repository file listing glob patterns of
// untracked files to copy into new worktrees.
const DefaultCopyFile = ".featwt_copy"

// ReadCopyPatterns reads glob patterns from the copy file in repoRoot.
// Lines starting with # are comments, empty lines are skipped.
// A missing file yields no patterns.
func ReadCopyPatterns(repoRoot, copyFile string) ([]string, error) {
	f, err := os.Open(filepath.Join(repoRoot, copyFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", copyFile, err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", copyFile, err)
	}
	return patterns, nil
}

// CopyMatchingFiles copies regular files under srcRoot whose slash-separated
// relative path matches any pattern into dstRoot, keeping relative paths and
// modes. Files already present in dstRoot are left alone. The .git
// directory is never entered. Returns the relative paths copied.
func CopyMatchingFiles(srcRoot, dstRoot string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid copy pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}

	src := osfs.New(srcRoot)
	dst := osfs.New(dstRoot)

	var copied []string
	err := util.Walk(src, "/", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(filepath.ToSlash(path), "/")
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() || !matchesAny(globs, rel) {
			return nil
		}
		if _, err := dst.Stat(rel); err == nil {
			return nil
		}
		if err := copyFile(src, dst, rel, info.Mode().Perm()); err != nil {
			return err
		}
		copied = append(copied, rel)
		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("copying files into %s: %w", dstRoot, err)
	}
	return copied, nil
}

func matchesAny(globs []glob.Glob, rel string) bool {
	for _, g := range globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func copyFile(src, dst billy.Filesystem, rel string, perm os.FileMode) error {
	in, err := src.Open(rel)
	if err != nil {
		return err
	}
	defer in.Close()

	if dir := filepath.Dir(rel); dir != "." {
		if err := dst.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	out, err := dst.OpenFile(rel, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
