package repo

import (
	"fmt"
	"strings"

	"github.com/hamza-m-farooqi/pygit/pkg/object"
)

// TreeFileEntry is a single file in a flattened tree: full slash path,
// canonical mode string, and blob id.
type TreeFileEntry struct {
	Path string
	Mode string
	Hash object.Hash
}

// modeString renders an index mode as Git's tree mode (octal, no leading
// zero). Anything with the executable bit set becomes 100755.
func modeString(mode uint32) string {
	if mode&0o111 != 0 {
		return object.TreeModeExecutable
	}
	return object.TreeModeFile
}

// modeBits parses a tree mode string back into index mode bits.
func modeBits(mode string) (uint32, error) {
	switch mode {
	case object.TreeModeFile:
		return ModeRegular, nil
	case object.TreeModeExecutable:
		return ModeExecutable, nil
	}
	return 0, fmt.Errorf("unsupported file mode %q", mode)
}

// WriteTree folds the flat index into nested tree objects, writing each
// directory's tree to the store, and returns the root tree id. Entries
// within a tree are emitted in canonical order (directory names compare
// with a trailing slash), which the object codec enforces.
func (r *Repo) WriteTree(idx *Index) (object.Hash, error) {
	return r.writeTreeDir(idx.Entries(), "")
}

// writeTreeDir builds the tree for one directory prefix from the index
// slice covering it. The index is sorted by path bytes, so all entries of
// a subdirectory are contiguous.
func (r *Repo) writeTreeDir(entries []*IndexEntry, prefix string) (object.Hash, error) {
	var out []object.TreeEntry

	i := 0
	for i < len(entries) {
		e := entries[i]
		rel := e.Path
		if prefix != "" {
			rel = strings.TrimPrefix(e.Path, prefix+"/")
		}

		slash := strings.IndexByte(rel, '/')
		if slash < 0 {
			// Direct child file.
			out = append(out, object.TreeEntry{
				Name: rel,
				Mode: modeString(e.Mode),
				Hash: e.Hash,
			})
			i++
			continue
		}

		// Child subdirectory: collect its contiguous span and recurse.
		dir := rel[:slash]
		childPrefix := dir
		if prefix != "" {
			childPrefix = prefix + "/" + dir
		}
		j := i
		for j < len(entries) && strings.HasPrefix(entries[j].Path, childPrefix+"/") {
			j++
		}
		subHash, err := r.writeTreeDir(entries[i:j], childPrefix)
		if err != nil {
			return "", err
		}
		out = append(out, object.TreeEntry{
			Name: dir,
			Mode: object.TreeModeDir,
			Hash: subHash,
		})
		i = j
	}

	h, err := r.Store.WriteTree(&object.TreeObj{Entries: out})
	if err != nil {
		return "", fmt.Errorf("write tree (prefix=%q): %w", prefix, err)
	}
	return h, nil
}

// FlattenTree walks a tree object recursively, returning all file entries
// with their full slash-separated paths in traversal order.
func (r *Repo) FlattenTree(h object.Hash) ([]TreeFileEntry, error) {
	return r.flattenTreeRec(h, "")
}

func (r *Repo) flattenTreeRec(h object.Hash, prefix string) ([]TreeFileEntry, error) {
	tree, err := r.Store.ReadTree(h)
	if err != nil {
		return nil, fmt.Errorf("flatten tree: read %s: %w", h, err)
	}

	var result []TreeFileEntry
	for _, entry := range tree.Entries {
		fullPath := entry.Name
		if prefix != "" {
			fullPath = prefix + "/" + entry.Name
		}

		if entry.IsDir() {
			sub, err := r.flattenTreeRec(entry.Hash, fullPath)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
		} else {
			result = append(result, TreeFileEntry{
				Path: fullPath,
				Mode: entry.Mode,
				Hash: entry.Hash,
			})
		}
	}
	return result, nil
}

// HeadTreeEntries flattens the HEAD commit's tree into a path-keyed map.
// An unborn branch yields an empty map.
func (r *Repo) HeadTreeEntries() (map[string]TreeFileEntry, error) {
	result := make(map[string]TreeFileEntry)

	headHash, err := r.ResolveRef("HEAD")
	if err != nil {
		return result, nil
	}
	commit, err := r.Store.ReadCommit(headHash)
	if err != nil {
		return nil, fmt.Errorf("read HEAD commit: %w", err)
	}
	entries, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		return nil, fmt.Errorf("flatten HEAD tree: %w", err)
	}
	for _, e := range entries {
		result[e.Path] = e
	}
	return result, nil
}

// CommitTree returns the root tree id of a commit.
func (r *Repo) CommitTree(commitHash object.Hash) (object.Hash, error) {
	commit, err := r.Store.ReadCommit(commitHash)
	if err != nil {
		return "", err
	}
	return commit.TreeHash, nil
}
