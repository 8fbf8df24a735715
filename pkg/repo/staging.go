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

// Add stages the given files or directories. Directories expand
// recursively; ignored files found during expansion are skipped silently,
// while an explicitly named ignored file is refused unless it is already
// tracked. Each staged file is written to the object store as a blob and
// upserted into the index with its current stat.
func (r *Repo) Add(paths []string) error {
	idx, err := r.LoadIndex()
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	ic := NewIgnoreChecker(r.RootDir)

	var files []string
	for _, p := range paths {
		rel, err := r.RelPath(p)
		if err != nil {
			return fmt.Errorf("add: %w", err)
		}

		absPath := filepath.Join(r.RootDir, filepath.FromSlash(rel))
		info, err := os.Stat(absPath)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("add: pathspec %q did not match any files", p)
			}
			return fmt.Errorf("add: stat %q: %w", p, err)
		}

		if info.IsDir() {
			expanded, err := r.expandDir(rel, ic, idx)
			if err != nil {
				return fmt.Errorf("add: %w", err)
			}
			files = append(files, expanded...)
			continue
		}

		if rel == ".git" || strings.HasPrefix(rel, ".git/") {
			continue
		}
		if ic.IsIgnored(rel, false) && !idx.Contains(rel) {
			return fmt.Errorf("add: path %q is ignored (tracked files are exempt)", rel)
		}
		files = append(files, rel)
	}

	sort.Strings(files)
	for _, rel := range files {
		entry, err := r.buildIndexEntry(rel)
		if err != nil {
			return fmt.Errorf("add: %w", err)
		}
		if err := idx.Upsert(entry); err != nil {
			return fmt.Errorf("add: %w", err)
		}
	}

	if err := r.SaveIndex(idx); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	return nil
}

// expandDir walks a directory collecting stageable files. Ignored entries
// are skipped unless already tracked.
func (r *Repo) expandDir(rel string, ic *IgnoreChecker, idx *Index) ([]string, error) {
	root := filepath.Join(r.RootDir, filepath.FromSlash(rel))
	if rel == "." {
		root = r.RootDir
	}

	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		sub, err := filepath.Rel(r.RootDir, p)
		if err != nil {
			return err
		}
		sub = filepath.ToSlash(sub)
		if sub == "." {
			return nil
		}

		if d.IsDir() {
			if sub == ".git" {
				return fs.SkipDir
			}
			if ic.IsIgnored(sub, true) {
				for _, e := range idx.Entries() {
					if strings.HasPrefix(e.Path, sub+"/") {
						return nil // tracked files live below
					}
				}
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		if ic.IsIgnored(sub, false) && !idx.Contains(sub) {
			return nil
		}
		out = append(out, sub)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %q: %w", rel, err)
	}
	return out, nil
}

// buildIndexEntry hashes the file as a blob (writing it to the store) and
// assembles the index entry with the file's current stat.
func (r *Repo) buildIndexEntry(rel string) (*IndexEntry, error) {
	absPath := filepath.Join(r.RootDir, filepath.FromSlash(rel))
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", rel, err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", rel, err)
	}

	h, err := r.Store.WriteBlob(&object.Blob{Data: content})
	if err != nil {
		return nil, fmt.Errorf("write blob %q: %w", rel, err)
	}

	mode := uint32(ModeRegular)
	if info.Mode()&0o111 != 0 {
		mode = ModeExecutable
	}
	e := &IndexEntry{
		Mode:  mode,
		Hash:  h,
		Flags: entryFlags(rel),
		Path:  rel,
	}
	fillStat(e, info)
	return e, nil
}

// matchPathspecs expands user pathspecs against a candidate path set:
// exact matches plus everything under a spec treated as a directory.
func matchPathspecs(specs []string, candidates map[string]bool) []string {
	matched := make(map[string]bool)
	for _, spec := range specs {
		if candidates[spec] {
			matched[spec] = true
			continue
		}
		prefix := spec + "/"
		for c := range candidates {
			if strings.HasPrefix(c, prefix) {
				matched[c] = true
			}
		}
	}
	out := make([]string, 0, len(matched))
	for p := range matched {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Rm removes tracked files from the index and the working tree. For
// safety it refuses when a file's staged content differs from HEAD or its
// working copy differs from the index.
func (r *Repo) Rm(paths []string) error {
	idx, err := r.LoadIndex()
	if err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	if idx.Len() == 0 {
		return fmt.Errorf("rm: nothing to remove: index is empty")
	}

	candidates := make(map[string]bool, idx.Len())
	for _, e := range idx.Entries() {
		candidates[e.Path] = true
	}

	specs := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := r.RelPath(p)
		if err != nil {
			return fmt.Errorf("rm: %w", err)
		}
		specs = append(specs, rel)
	}

	targets := matchPathspecs(specs, candidates)
	if len(targets) == 0 {
		return fmt.Errorf("rm: pathspec did not match any tracked files")
	}

	headEntries, err := r.HeadTreeEntries()
	if err != nil {
		return fmt.Errorf("rm: %w", err)
	}

	for _, rel := range targets {
		e := idx.Get(rel)

		if he, inHead := headEntries[rel]; !inHead || he.Hash != e.Hash || he.Mode != modeString(e.Mode) {
			return fmt.Errorf("rm: %q has changes staged in the index", rel)
		}
		differs, err := r.worktreeDiffers(e)
		if err != nil {
			return fmt.Errorf("rm: %w", err)
		}
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(rel))
		if _, statErr := os.Stat(absPath); statErr == nil && differs {
			return fmt.Errorf("rm: %q has local modifications", rel)
		}
	}

	for _, rel := range targets {
		idx.Remove(rel)
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(rel))
		if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("rm: remove %q: %w", rel, err)
		}
		r.removeEmptyParents(filepath.Dir(absPath))
	}

	if err := r.SaveIndex(idx); err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	return nil
}

// RestoreStaged resets index entries to their HEAD state: present in HEAD
// restores id and mode (stat zeroed to force a rehash), absent removes the
// entry. The working tree is untouched.
func (r *Repo) RestoreStaged(paths []string) error {
	idx, err := r.LoadIndex()
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	headEntries, err := r.HeadTreeEntries()
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	candidates := make(map[string]bool, idx.Len()+len(headEntries))
	for _, e := range idx.Entries() {
		candidates[e.Path] = true
	}
	for p := range headEntries {
		candidates[p] = true
	}

	specs := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := r.RelPath(p)
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		specs = append(specs, rel)
	}

	targets := matchPathspecs(specs, candidates)
	if len(targets) == 0 {
		return fmt.Errorf("restore: pathspec did not match any staged entries")
	}

	for _, rel := range targets {
		he, inHead := headEntries[rel]
		if !inHead {
			idx.Remove(rel)
			continue
		}
		mode, err := modeBits(he.Mode)
		if err != nil {
			return fmt.Errorf("restore %q: %w", rel, err)
		}
		entry := &IndexEntry{
			Mode:  mode,
			Hash:  he.Hash,
			Flags: entryFlags(rel),
			Path:  rel,
		}
		if err := idx.Upsert(entry); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
	}

	if err := r.SaveIndex(idx); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return nil
}

// removeEmptyParents removes empty directories up to (but not including)
// the repository root.
func (r *Repo) removeEmptyParents(dir string) {
	for {
		if dir == r.RootDir || !strings.HasPrefix(dir, r.RootDir) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		os.Remove(dir)
		dir = filepath.Dir(dir)
	}
}
