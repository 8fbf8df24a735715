package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hamza-m-farooqi/pygit/pkg/object"
)

// ErrRefCASMismatch reports a compare-and-swap failure on a ref update.
var ErrRefCASMismatch = errors.New("ref compare-and-swap mismatch")

const (
	refLockRetryDelay = 5 * time.Millisecond
	refLockWaitLimit  = 2 * time.Second
)

// Head reads .git/HEAD. If the content starts with "ref: ", it returns the
// ref path (e.g. "refs/heads/master"). Otherwise it returns the raw content
// as a detached hash string.
func (r *Repo) Head() (string, error) {
	data, err := os.ReadFile(filepath.Join(r.GitDir, "HEAD"))
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	content := strings.TrimRight(string(data), "\n")

	if strings.HasPrefix(content, "ref: ") {
		return strings.TrimPrefix(content, "ref: "), nil
	}
	return content, nil
}

// CurrentBranch returns the branch name when HEAD is a symbolic ref under
// refs/heads, or "" when HEAD is detached.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("current branch: %w", err)
	}
	const prefix = "refs/heads/"
	if strings.HasPrefix(head, prefix) {
		return strings.TrimPrefix(head, prefix), nil
	}
	return "", nil
}

// ResolveRef resolves a ref name to an object hash.
//
// Resolution order:
//  1. "HEAD": read HEAD; if symbolic, resolve the target ref; if detached,
//     the value is the hash.
//  2. Names starting with "refs/": read .git/<name>.
//  3. Otherwise: try "refs/heads/<name>".
func (r *Repo) ResolveRef(name string) (object.Hash, error) {
	if name == "HEAD" {
		head, err := r.Head()
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(head, "refs/") {
			return r.ResolveRef(head)
		}
		if head == "" {
			return "", fmt.Errorf("resolve HEAD: %w", ErrRefNotFound)
		}
		return object.Hash(head), nil
	}

	var refPath string
	if strings.HasPrefix(name, "refs/") {
		refPath = filepath.Join(r.GitDir, filepath.FromSlash(name))
	} else {
		refPath = filepath.Join(r.GitDir, "refs", "heads", name)
	}

	data, err := os.ReadFile(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("resolve ref %q: %w", name, ErrRefNotFound)
		}
		return "", fmt.Errorf("resolve ref %q: %w", name, err)
	}
	h := object.Hash(strings.TrimSpace(string(data)))
	if !object.ValidHash(string(h)) {
		return "", fmt.Errorf("resolve ref %q: corrupt ref content %q", name, h)
	}
	return h, nil
}

// UpdateRef writes a hash to the named ref file under .git/ using lockfile
// + fsync + rename semantics. If expectedOld is provided, the update only
// succeeds when the current ref hash matches it.
func (r *Repo) UpdateRef(name string, h object.Hash, expectedOld ...object.Hash) error {
	if len(expectedOld) > 1 {
		return fmt.Errorf("update ref %q: expected at most one old hash", name)
	}

	refPath := filepath.Join(r.GitDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
		return fmt.Errorf("update ref %q: mkdir: %w", name, err)
	}

	lockPath := refPath + ".lock"
	lockFile, err := acquireRefLock(lockPath)
	if err != nil {
		return fmt.Errorf("update ref %q: lock: %w", name, err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = os.Remove(lockPath)
		}
	}()

	if len(expectedOld) == 1 {
		oldHash, err := readRefHash(refPath)
		if err != nil {
			return fmt.Errorf("update ref %q: read old hash: %w", name, err)
		}
		if oldHash != expectedOld[0] {
			return fmt.Errorf("update ref %q: %w (expected %s, found %s)",
				name, ErrRefCASMismatch, expectedOld[0], oldHash)
		}
	}

	if _, err := lockFile.WriteString(string(h) + "\n"); err != nil {
		return fmt.Errorf("update ref %q: write: %w", name, err)
	}
	if err := lockFile.Sync(); err != nil {
		return fmt.Errorf("update ref %q: sync: %w", name, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("update ref %q: close: %w", name, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, refPath); err != nil {
		return fmt.Errorf("update ref %q: rename: %w", name, err)
	}
	cleanupLock = false
	return nil
}

// UpdateHead moves the current position to the given commit: the pointed
// branch when HEAD is attached, HEAD itself when detached.
func (r *Repo) UpdateHead(h object.Hash) error {
	head, err := r.Head()
	if err != nil {
		return err
	}
	if strings.HasPrefix(head, "refs/") {
		return r.UpdateRef(head, h)
	}
	return r.writeHeadFile(string(h) + "\n")
}

// AttachHead points HEAD at the named branch; DetachHead points it at a raw
// commit id. Both rewrite the HEAD file atomically.
func (r *Repo) AttachHead(branch string) error {
	return r.writeHeadFile("ref: refs/heads/" + branch + "\n")
}

func (r *Repo) DetachHead(h object.Hash) error {
	return r.writeHeadFile(string(h) + "\n")
}

func (r *Repo) writeHeadFile(content string) error {
	headPath := filepath.Join(r.GitDir, "HEAD")
	tmp, err := os.CreateTemp(r.GitDir, ".HEAD-tmp-*")
	if err != nil {
		return fmt.Errorf("write HEAD: tmpfile: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write HEAD: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write HEAD: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write HEAD: close: %w", err)
	}
	if err := os.Rename(tmpName, headPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write HEAD: rename: %w", err)
	}
	return nil
}

// CreateBranch creates refs/heads/<name> pointing at target. Fails when the
// branch already exists or the name is invalid.
func (r *Repo) CreateBranch(name string, target object.Hash) error {
	if err := ValidateBranchName(name); err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	refPath := filepath.Join(r.GitDir, "refs", "heads", name)
	if _, err := os.Stat(refPath); err == nil {
		return fmt.Errorf("create branch: branch %q already exists", name)
	}
	return r.UpdateRef("refs/heads/"+name, target)
}

// ListBranches returns the branch names under refs/heads sorted
// alphabetically.
func (r *Repo) ListBranches() ([]string, error) {
	headsDir := filepath.Join(r.GitDir, "refs", "heads")

	var names []string
	err := filepath.WalkDir(headsDir, func(p string, e fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if e.IsDir() || strings.HasSuffix(e.Name(), ".lock") {
			return nil
		}
		rel, err := filepath.Rel(headsDir, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list branches: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// ValidateBranchName enforces the subset of Git's ref-name rules this
// system supports: non-empty, no leading dash, no whitespace or control
// characters, no "..", and no path segment starting with "." or ending
// with ".lock".
func ValidateBranchName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidRefName)
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("%w: %q starts with '-'", ErrInvalidRefName, name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q contains '..'", ErrInvalidRefName, name)
	}
	for _, c := range name {
		if c <= ' ' || c == 0x7f {
			return fmt.Errorf("%w: %q contains whitespace or control characters", ErrInvalidRefName, name)
		}
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "" {
			return fmt.Errorf("%w: %q has an empty path segment", ErrInvalidRefName, name)
		}
		if strings.HasPrefix(seg, ".") {
			return fmt.Errorf("%w: segment %q starts with '.'", ErrInvalidRefName, seg)
		}
		if strings.HasSuffix(seg, ".lock") {
			return fmt.Errorf("%w: segment %q ends with '.lock'", ErrInvalidRefName, seg)
		}
	}
	return nil
}

func acquireRefLock(lockPath string) (*os.File, error) {
	deadline := time.Now().Add(refLockWaitLimit)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for lock %q", lockPath)
			}
			time.Sleep(refLockRetryDelay)
			continue
		}
		return nil, err
	}
}

func readRefHash(refPath string) (object.Hash, error) {
	data, err := os.ReadFile(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return object.Hash(strings.TrimSpace(string(data))), nil
}
