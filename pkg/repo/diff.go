package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// FileDiff holds one file's unstaged unified diff.
type FileDiff struct {
	Path string
	Text string
}

// DiffWorktree computes unified diffs for every path whose working tree
// content differs from the index. Output is line-based with 3 context
// lines per hunk and deterministic ordering (index order).
func (r *Repo) DiffWorktree() ([]FileDiff, error) {
	idx, err := r.LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}

	var out []FileDiff
	for _, e := range idx.Entries() {
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(e.Path))
		working, err := os.ReadFile(absPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("diff: read %q: %w", e.Path, err)
		}

		differs, err := r.worktreeDiffers(e)
		if err != nil {
			return nil, fmt.Errorf("diff: %w", err)
		}
		if !differs {
			continue
		}

		blob, err := r.Store.ReadBlob(e.Hash)
		if err != nil {
			return nil, fmt.Errorf("diff: read blob for %q: %w", e.Path, err)
		}

		text, err := unifiedDiff(e.Path, blob.Data, working)
		if err != nil {
			return nil, fmt.Errorf("diff %q: %w", e.Path, err)
		}
		if text != "" {
			out = append(out, FileDiff{Path: e.Path, Text: text})
		}
	}
	return out, nil
}

// unifiedDiff renders an index-vs-worktree diff with git-style a/ and b/
// labels and @@ hunk headers.
func unifiedDiff(path string, before, after []byte) (string, error) {
	// Split into lines that keep their "\n"; a final line without one gets
	// it appended, and no empty line follows a trailing newline.
	splitLines := func(b []byte) []string {
		lines := strings.SplitAfter(string(b), "\n")
		if lines[len(lines)-1] == "" {
			return lines[:len(lines)-1]
		}
		lines[len(lines)-1] += "\n"
		return lines
	}
	ud := difflib.UnifiedDiff{
		A:        splitLines(before),
		B:        splitLines(after),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", err
	}
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text, nil
}
