package repo

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hamza-m-farooqi/pygit/pkg/object"
)

// Change is one path plus what happened to it.
type Change struct {
	Path string
	Kind string // "new", "modified", or "deleted"
}

// StatusReport partitions the repository into staged, unstaged, and
// untracked paths, each group sorted lexicographically.
type StatusReport struct {
	Branch    string // current branch name; empty when detached
	Detached  object.Hash
	Unborn    bool // no commits yet
	Staged    []Change
	Unstaged  []Change
	Untracked []string
}

// Clean reports whether there is nothing to commit.
func (s *StatusReport) Clean() bool {
	return len(s.Staged) == 0 && len(s.Unstaged) == 0 && len(s.Untracked) == 0
}

// Status computes the tri-state reconciliation between working tree, index,
// and HEAD tree.
//
//  1. Load the index and flatten the HEAD tree.
//  2. Walk the working tree, skipping .git and ignored paths (tracked paths
//     stay visible even when a rule matches them).
//  3. Working tree vs index: modified / deleted (unstaged), untracked.
//  4. Index vs HEAD: new / modified / deleted (staged).
func (r *Repo) Status() (*StatusReport, error) {
	report := &StatusReport{}

	branch, err := r.CurrentBranch()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	report.Branch = branch
	head, err := r.ResolveRef("HEAD")
	if err != nil {
		report.Unborn = true
	} else if branch == "" {
		report.Detached = head
	}

	idx, err := r.LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	headEntries, err := r.HeadTreeEntries()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	tracked := make(map[string]bool, idx.Len()+len(headEntries))
	for _, e := range idx.Entries() {
		tracked[e.Path] = true
	}
	for p := range headEntries {
		tracked[p] = true
	}

	workFiles, err := r.walkWorktree(tracked)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	// Working tree vs index.
	for _, e := range idx.Entries() {
		if !workFiles[e.Path] {
			report.Unstaged = append(report.Unstaged, Change{Path: e.Path, Kind: "deleted"})
			continue
		}
		differs, err := r.worktreeDiffers(e)
		if err != nil {
			return nil, fmt.Errorf("status: %w", err)
		}
		if differs {
			report.Unstaged = append(report.Unstaged, Change{Path: e.Path, Kind: "modified"})
		}
	}
	for p := range workFiles {
		if !idx.Contains(p) {
			report.Untracked = append(report.Untracked, p)
		}
	}

	// Index vs HEAD.
	for _, e := range idx.Entries() {
		he, inHead := headEntries[e.Path]
		switch {
		case !inHead:
			report.Staged = append(report.Staged, Change{Path: e.Path, Kind: "new"})
		case he.Hash != e.Hash || he.Mode != modeString(e.Mode):
			report.Staged = append(report.Staged, Change{Path: e.Path, Kind: "modified"})
		}
	}
	for p := range headEntries {
		if !idx.Contains(p) {
			report.Staged = append(report.Staged, Change{Path: p, Kind: "deleted"})
		}
	}

	sort.Slice(report.Staged, func(i, j int) bool { return report.Staged[i].Path < report.Staged[j].Path })
	sort.Slice(report.Unstaged, func(i, j int) bool { return report.Unstaged[i].Path < report.Unstaged[j].Path })
	sort.Strings(report.Untracked)
	return report, nil
}

// walkWorktree collects repo-relative regular-file paths, honoring the
// ignore rules. Tracked paths stay visible even when ignored, and ignored
// directories are only descended when tracked files live under them.
func (r *Repo) walkWorktree(tracked map[string]bool) (map[string]bool, error) {
	ic := NewIgnoreChecker(r.RootDir)

	trackedUnder := func(prefix string) bool {
		p := prefix + "/"
		for t := range tracked {
			if strings.HasPrefix(t, p) {
				return true
			}
		}
		return false
	}

	files := make(map[string]bool)
	err := filepath.WalkDir(r.RootDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(r.RootDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if rel == ".git" {
				return fs.SkipDir
			}
			if ic.IsIgnored(rel, true) && !trackedUnder(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		if ic.IsIgnored(rel, false) && !tracked[rel] {
			return nil
		}
		files[rel] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}
	return files, nil
}

// worktreeDiffers reports whether the working file content diverged from
// its index entry. When the cached stat (mtime, size, ino) still matches,
// the content is assumed equal; otherwise the file is rehashed.
func (r *Repo) worktreeDiffers(e *IndexEntry) (bool, error) {
	absPath := filepath.Join(r.RootDir, filepath.FromSlash(e.Path))
	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("stat %q: %w", e.Path, err)
	}

	workMode := ModeRegular
	if info.Mode()&0o111 != 0 {
		workMode = ModeExecutable
	}
	if modeString(uint32(workMode)) != modeString(e.Mode) {
		return true, nil
	}

	if statMatches(e, info) {
		return false, nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return false, fmt.Errorf("read %q: %w", e.Path, err)
	}
	return object.HashObject(object.TypeBlob, content) != e.Hash, nil
}

// statMatches implements the stat shortcut: mtime (sec+nsec), size, and
// inode must all agree with the cached entry. Entries with a zeroed cache
// (e.g. synthesized from a tree) never match and force a rehash.
func statMatches(e *IndexEntry, info os.FileInfo) bool {
	if e.MtimeSec == 0 && e.MtimeNano == 0 {
		return false
	}
	if e.MtimeSec != uint32(info.ModTime().Unix()) {
		return false
	}
	if e.MtimeNano != uint32(info.ModTime().Nanosecond()) {
		return false
	}
	if e.Size != uint32(info.Size()) {
		return false
	}
	var probe IndexEntry
	fillStat(&probe, info)
	if e.Ino != 0 && probe.Ino != 0 && e.Ino != probe.Ino {
		return false
	}
	return true
}
