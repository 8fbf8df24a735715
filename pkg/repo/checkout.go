package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hamza-m-farooqi/pygit/pkg/object"
)

// CheckoutResult reports how HEAD ended up after a checkout.
type CheckoutResult struct {
	Branch   string      // non-empty when HEAD attached to a branch
	Detached object.Hash // set when HEAD detached at a commit
}

// Checkout switches the working tree to the state of target, which is a
// branch name or a revision.
//
//  1. Resolve target (branch first, then revision).
//  2. Refuse when an uncommitted change would be overwritten: a staged
//     change at any path (the index is rebuilt from the target), a path
//     whose working content differs from HEAD and also differs in the
//     target, or an untracked file the target would clobber.
//  3. Delete files present in HEAD but not in the target; write the
//     target's files; prune emptied directories.
//  4. Rebuild the index from the target tree with fresh stat.
//  5. Update HEAD: attach for a branch, detach for a revision.
func (r *Repo) Checkout(target string) (*CheckoutResult, error) {
	isBranch := false
	var targetHash object.Hash

	branchHash, err := r.ResolveRef("refs/heads/" + target)
	if err == nil {
		targetHash = branchHash
		isBranch = true
	} else {
		targetHash, err = r.ResolveCommit(target)
		if err != nil {
			return nil, fmt.Errorf("checkout: %w", err)
		}
	}

	treeHash, err := r.CommitTree(targetHash)
	if err != nil {
		return nil, fmt.Errorf("checkout: cannot read commit %s: %w", targetHash, err)
	}
	targetFiles, err := r.FlattenTree(treeHash)
	if err != nil {
		return nil, fmt.Errorf("checkout: flatten target tree: %w", err)
	}
	targetMap := make(map[string]TreeFileEntry, len(targetFiles))
	for _, f := range targetFiles {
		targetMap[f.Path] = f
	}

	idx, err := r.LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}
	headEntries, err := r.HeadTreeEntries()
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}

	if err := r.checkoutSafe(idx, headEntries, targetMap); err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}

	// Delete files tracked by HEAD that the target no longer has.
	for p := range headEntries {
		if _, keep := targetMap[p]; keep {
			continue
		}
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(p))
		if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("checkout: remove %q: %w", p, err)
		}
		r.removeEmptyParents(filepath.Dir(absPath))
	}

	// Materialize the target tree. Paths where the target agrees with HEAD
	// are left alone so carried-over local modifications survive; their
	// index entries get a zeroed stat when the on-disk content diverges,
	// forcing the next status to rehash them.
	newIdx := &Index{}
	for _, f := range targetFiles {
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(f.Path))
		mode, err := modeBits(f.Mode)
		if err != nil {
			return nil, fmt.Errorf("checkout %q: %w", f.Path, err)
		}
		entry := &IndexEntry{
			Mode:  mode,
			Hash:  f.Hash,
			Flags: entryFlags(f.Path),
			Path:  f.Path,
		}

		he, inHead := headEntries[f.Path]
		unchanged := inHead && he.Hash == f.Hash && he.Mode == f.Mode
		if unchanged {
			if content, err := os.ReadFile(absPath); err == nil {
				if object.HashObject(object.TypeBlob, content) == f.Hash {
					if info, err := os.Stat(absPath); err == nil {
						fillStat(entry, info)
					}
				}
				if err := newIdx.Upsert(entry); err != nil {
					return nil, fmt.Errorf("checkout: %w", err)
				}
				continue
			}
			// File missing from the worktree: fall through and write it.
		}

		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return nil, fmt.Errorf("checkout: mkdir for %q: %w", f.Path, err)
		}
		blob, err := r.Store.ReadBlob(f.Hash)
		if err != nil {
			return nil, fmt.Errorf("checkout: read blob for %q: %w", f.Path, err)
		}
		perm := os.FileMode(0o644)
		if f.Mode == object.TreeModeExecutable {
			perm = 0o755
		}
		if err := os.WriteFile(absPath, blob.Data, perm); err != nil {
			return nil, fmt.Errorf("checkout: write %q: %w", f.Path, err)
		}
		if err := os.Chmod(absPath, perm); err != nil {
			return nil, fmt.Errorf("checkout: chmod %q: %w", f.Path, err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return nil, fmt.Errorf("checkout: stat %q: %w", f.Path, err)
		}
		fillStat(entry, info)
		if err := newIdx.Upsert(entry); err != nil {
			return nil, fmt.Errorf("checkout: %w", err)
		}
	}
	if err := r.SaveIndex(newIdx); err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}

	if isBranch {
		if err := r.AttachHead(target); err != nil {
			return nil, fmt.Errorf("checkout: %w", err)
		}
		return &CheckoutResult{Branch: target}, nil
	}
	if err := r.DetachHead(targetHash); err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}
	return &CheckoutResult{Detached: targetHash}, nil
}

// checkoutSafe refuses the switch when it would lose local state: any path
// whose index entry diverges from HEAD, any path whose working file diverges
// from HEAD and that the target also changes, or an untracked working file
// the target would overwrite.
func (r *Repo) checkoutSafe(idx *Index, headEntries map[string]TreeFileEntry, targetMap map[string]TreeFileEntry) error {
	sameAs := func(a TreeFileEntry, b TreeFileEntry, aOK, bOK bool) bool {
		if aOK != bOK {
			return false
		}
		if !aOK {
			return true
		}
		return a.Hash == b.Hash && a.Mode == b.Mode
	}

	paths := make(map[string]bool, idx.Len()+len(headEntries))
	for _, e := range idx.Entries() {
		paths[e.Path] = true
	}
	for p := range headEntries {
		paths[p] = true
	}

	for p := range paths {
		he, inHead := headEntries[p]
		te, inTarget := targetMap[p]

		// The index is rebuilt from the target, so a staged change is
		// refused even where the target agrees with HEAD.
		e := idx.Get(p)
		if e == nil {
			// Deleted from the index but present in HEAD: staged change.
			return fmt.Errorf("%w: %q has staged changes", ErrDirtyWorktree, p)
		}
		if !inHead || he.Hash != e.Hash || he.Mode != modeString(e.Mode) {
			return fmt.Errorf("%w: %q has staged changes", ErrDirtyWorktree, p)
		}
		if sameAs(he, te, inHead, inTarget) {
			continue // target agrees with HEAD; the working file is left as it is
		}
		differs, err := r.worktreeDiffers(e)
		if err != nil {
			return err
		}
		if differs {
			return fmt.Errorf("%w: %q has local modifications", ErrDirtyWorktree, p)
		}
	}

	// Untracked files the target would overwrite.
	for p, te := range targetMap {
		if paths[p] {
			continue
		}
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(p))
		content, err := os.ReadFile(absPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("read %q: %w", p, err)
		}
		if object.HashObject(object.TypeBlob, content) != te.Hash {
			return fmt.Errorf("%w: untracked file %q would be overwritten", ErrDirtyWorktree, p)
		}
	}
	return nil
}
