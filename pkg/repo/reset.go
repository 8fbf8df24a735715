package repo

import (
	"fmt"

	"github.com/hamza-m-farooqi/pygit/pkg/object"
)

// ResetMode selects how much state a reset rewinds.
type ResetMode int

const (
	ResetSoft  ResetMode = iota // move HEAD only
	ResetMixed                  // move HEAD and rebuild the index
)

// Reset moves the current branch (or a detached HEAD) to rev. Soft resets
// leave the index alone; mixed resets rebuild it from the target tree. The
// working tree is never touched.
func (r *Repo) Reset(rev string, mode ResetMode) (object.Hash, error) {
	target, err := r.ResolveCommit(rev)
	if err != nil {
		return "", fmt.Errorf("reset: %w", err)
	}

	if err := r.UpdateHead(target); err != nil {
		return "", fmt.Errorf("reset: %w", err)
	}

	if mode == ResetMixed {
		if err := r.rebuildIndexFrom(target); err != nil {
			return "", fmt.Errorf("reset: %w", err)
		}
	}
	return target, nil
}

// rebuildIndexFrom replaces the index with entries synthesized from the
// commit's tree. Entries whose id and mode already match the current index
// keep their cached stat, so resetting to the current commit leaves the
// index bytes unchanged; everything else gets a zeroed stat and will be
// rehashed by the next status.
func (r *Repo) rebuildIndexFrom(commitHash object.Hash) error {
	treeHash, err := r.CommitTree(commitHash)
	if err != nil {
		return err
	}
	files, err := r.FlattenTree(treeHash)
	if err != nil {
		return err
	}

	old, err := r.LoadIndex()
	if err != nil {
		return err
	}

	idx := &Index{}
	for _, f := range files {
		mode, err := modeBits(f.Mode)
		if err != nil {
			return fmt.Errorf("rebuild index %q: %w", f.Path, err)
		}
		entry := &IndexEntry{
			Mode:  mode,
			Hash:  f.Hash,
			Flags: entryFlags(f.Path),
			Path:  f.Path,
		}
		if prev := old.Get(f.Path); prev != nil && prev.Hash == f.Hash && prev.Mode == mode {
			*entry = *prev
		}
		if err := idx.Upsert(entry); err != nil {
			return err
		}
	}
	return r.SaveIndex(idx)
}
