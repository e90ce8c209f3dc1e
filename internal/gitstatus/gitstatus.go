// Package gitstatus reads working tree status through go-git, without
// shelling out to the git binary.
package gitstatus

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrNotRepository indicates the directory is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Change is one entry of the working tree status.
type Change struct {
	Path     string
	Staging  git.StatusCode
	Worktree git.StatusCode
}

// Porcelain renders the change as a `git status --porcelain` line.
func (c Change) Porcelain() string {
	return fmt.Sprintf("%c%c %s", c.Staging, c.Worktree, c.Path)
}

// Status is a snapshot of the working tree.
type Status struct {
	Branch  string
	Changes []Change
	// Root is the work tree root that change paths are relative to.
	Root string

	repo *git.Repository
}

// Read opens the repository containing projectDir and collects its status.
func Read(projectDir string) (*Status, error) {
	repo, err := git.PlainOpenWithOptions(projectDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, projectDir)
		}
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}
	st, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to read status: %w", err)
	}

	s := &Status{Root: wt.Filesystem.Root(), repo: repo}
	if head, err := repo.Head(); err == nil && head.Name().IsBranch() {
		s.Branch = head.Name().Short()
	}

	for path, fs := range st {
		if fs.Staging == git.Unmodified && fs.Worktree == git.Unmodified {
			continue
		}
		s.Changes = append(s.Changes, Change{Path: path, Staging: fs.Staging, Worktree: fs.Worktree})
	}
	sort.Slice(s.Changes, func(i, j int) bool { return s.Changes[i].Path < s.Changes[j].Path })

	return s, nil
}

// Clean reports whether there is nothing to commit.
func (s *Status) Clean() bool {
	return len(s.Changes) == 0
}

// Without returns s minus the changes under dir. A relative dir resolves
// against the working directory; a dir outside Root leaves s as is.
func (s *Status) Without(dir string) *Status {
	if s.Root == "" || dir == "" {
		return s
	}
	rel, ok := relativeTo(s.Root, dir)
	if !ok {
		return s
	}
	out := *s
	out.Changes = nil
	for _, c := range s.Changes {
		if c.Path == rel || strings.HasPrefix(c.Path, rel+"/") {
			continue
		}
		out.Changes = append(out.Changes, c)
	}
	return &out
}

func relativeTo(root, dir string) (string, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// PorcelainLines returns at most limit porcelain lines; limit <= 0 means all.
func (s *Status) PorcelainLines(limit int) []string {
	n := len(s.Changes)
	if limit > 0 && n > limit {
		n = limit
	}
	lines := make([]string, 0, n)
	for _, c := range s.Changes[:n] {
		lines = append(lines, c.Porcelain())
	}
	return lines
}

// NewTopLevelDirs returns top-level directories that contain untracked files
// and do not exist in the HEAD commit. A repository without commits reports
// none, and so does a Status not produced by Read.
func (s *Status) NewTopLevelDirs() ([]string, error) {
	if s.repo == nil {
		return nil, nil
	}
	head, err := s.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	commit, err := s.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to load HEAD commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load HEAD tree: %w", err)
	}

	existing := make(map[string]bool, len(tree.Entries))
	for _, e := range tree.Entries {
		existing[e.Name] = true
	}

	seen := make(map[string]bool)
	var dirs []string
	for _, c := range s.Changes {
		if c.Worktree != git.Untracked {
			continue
		}
		top, rest, found := strings.Cut(c.Path, "/")
		if !found || rest == "" || existing[top] || seen[top] {
			continue
		}
		seen[top] = true
		dirs = append(dirs, top)
	}
	sort.Strings(dirs)
	return dirs, nil
}
