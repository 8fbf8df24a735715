package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hamza-m-farooqi/pygit/pkg/object"
)

// Sentinel errors for repository-level failures.
var (
	ErrNotARepository  = errors.New("not a pygit repository (no .git directory)")
	ErrDirtyWorktree   = errors.New("working tree has uncommitted changes")
	ErrPathOutsideRepo = errors.New("path is outside the repository")
	ErrCorruptIndex    = errors.New("corrupt index")
	ErrRefNotFound     = errors.New("ref not found")
	ErrInvalidRefName  = errors.New("invalid ref name")
)

// Repo represents an opened repository: a working tree root, its .git
// directory, and the loose-object store inside it.
type Repo struct {
	RootDir string
	GitDir  string
	Store   *object.Store
}

// Init creates a new repository at path: .git/ with HEAD pointing at
// refs/heads/master, an empty object store, refs/heads/, and a config
// seeded with the [core] section. Fails if .git already exists.
func Init(path string) (*Repo, error) {
	gitDir := filepath.Join(path, ".git")

	if _, err := os.Stat(gitDir); err == nil {
		return nil, fmt.Errorf("init: repository already exists at %s", gitDir)
	}

	dirs := []string{
		filepath.Join(gitDir, "objects"),
		filepath.Join(gitDir, "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	headPath := filepath.Join(gitDir, "HEAD")
	if err := os.WriteFile(headPath, []byte("ref: refs/heads/master\n"), 0o644); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}

	r := &Repo{
		RootDir: path,
		GitDir:  gitDir,
		Store:   object.NewStore(gitDir),
	}
	if err := r.writeInitialConfig(); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	return r, nil
}

// Open searches upward from path for a .git directory and opens the
// repository it belongs to.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		gitDir := filepath.Join(cur, ".git")
		info, err := os.Stat(gitDir)
		if err == nil && info.IsDir() {
			return &Repo{
				RootDir: cur,
				GitDir:  gitDir,
				Store:   object.NewStore(gitDir),
			}, nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("open %s: %w", path, ErrNotARepository)
		}
		cur = parent
	}
}

// RelPath converts a path (absolute, or relative to the current working
// directory) into a slash-separated path relative to the repository root.
// Paths escaping the root are rejected.
func (r *Repo) RelPath(p string) (string, error) {
	abs := p
	if !filepath.IsAbs(p) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve %q: %w", p, err)
		}
		abs = filepath.Join(cwd, p)
	}
	rel, err := filepath.Rel(r.RootDir, abs)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", p, ErrPathOutsideRepo)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("resolve %q: %w", p, ErrPathOutsideRepo)
	}
	return rel, nil
}
