package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hamza-m-farooqi/pygit/pkg/object"
)

func TestCheckoutBranchRoundTrip(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "state.txt", "v1\n")
	writeFile(t, r, "dir/deep.txt", "d1\n")
	addPaths(t, r, ".")
	c1 := commitAll(t, r, "c1")

	if err := r.CreateBranch("feature", c1); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	writeFile(t, r, "state.txt", "v2\n")
	writeFile(t, r, "extra.txt", "only on master\n")
	addPaths(t, r, ".")
	c2 := commitAll(t, r, "c2")

	result, err := r.Checkout("feature")
	if err != nil {
		t.Fatalf("Checkout(feature): %v", err)
	}
	if result.Branch != "feature" {
		t.Errorf("result: %+v", result)
	}

	data, _ := os.ReadFile(filepath.Join(r.RootDir, "state.txt"))
	if string(data) != "v1\n" {
		t.Errorf("state.txt: %q", data)
	}
	if _, err := os.Stat(filepath.Join(r.RootDir, "extra.txt")); !os.IsNotExist(err) {
		t.Error("extra.txt should have been deleted")
	}
	head, _ := r.ResolveRef("HEAD")
	if head != c1 {
		t.Errorf("HEAD: %s, want %s", head, c1)
	}

	// Working tree matches the committed tree (property: checkout after
	// commit reproduces the tree, modulo stat).
	report, err := r.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !report.Clean() {
		t.Errorf("tree not clean after checkout: %+v", report)
	}

	// Back to master by revision: detached.
	result, err = r.Checkout(string(c2))
	if err != nil {
		t.Fatalf("Checkout(%s): %v", c2, err)
	}
	if result.Detached != c2 {
		t.Errorf("result: %+v", result)
	}
	data, _ = os.ReadFile(filepath.Join(r.RootDir, "state.txt"))
	if string(data) != "v2\n" {
		t.Errorf("state.txt after detach: %q", data)
	}
	if _, err := os.Stat(filepath.Join(r.RootDir, "extra.txt")); err != nil {
		t.Error("extra.txt should be back")
	}
}

func TestCheckoutRefusesDirtyWorktree(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "f.txt", "v1\n")
	addPaths(t, r, "f.txt")
	c1 := commitAll(t, r, "c1")

	if err := r.CreateBranch("other", c1); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	writeFile(t, r, "f.txt", "v2\n")
	addPaths(t, r, "f.txt")
	commitAll(t, r, "c2")

	// Modify the tracked file without staging.
	writeFile(t, r, "f.txt", "dirty\n")

	headBefore, _ := r.ResolveRef("HEAD")
	idxBefore, _ := os.ReadFile(r.indexPath())

	_, err := r.Checkout("other")
	if !errors.Is(err, ErrDirtyWorktree) {
		t.Fatalf("expected ErrDirtyWorktree, got %v", err)
	}

	// Nothing mutated: worktree, index, refs.
	data, _ := os.ReadFile(filepath.Join(r.RootDir, "f.txt"))
	if string(data) != "dirty\n" {
		t.Errorf("worktree mutated: %q", data)
	}
	headAfter, _ := r.ResolveRef("HEAD")
	if headAfter != headBefore {
		t.Errorf("HEAD mutated: %s -> %s", headBefore, headAfter)
	}
	idxAfter, _ := os.ReadFile(r.indexPath())
	if string(idxBefore) != string(idxAfter) {
		t.Error("index mutated")
	}
}

func TestCheckoutAllowsDirtyFileTargetDoesNotTouch(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "shared.txt", "same\n")
	writeFile(t, r, "branch-only.txt", "v1\n")
	addPaths(t, r, ".")
	c1 := commitAll(t, r, "c1")
	if err := r.CreateBranch("twin", c1); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	// Dirty a file that is identical in HEAD and target.
	writeFile(t, r, "shared.txt", "locally modified\n")
	if _, err := r.Checkout("twin"); err != nil {
		t.Fatalf("Checkout should carry over unaffected changes: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(r.RootDir, "shared.txt"))
	if string(data) != "locally modified\n" {
		t.Errorf("local modification lost: %q", data)
	}
}

func TestCheckoutRefusesOverwritingUntracked(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "base.txt", "b\n")
	addPaths(t, r, "base.txt")
	commitAll(t, r, "c1")

	log, _ := r.Log(mustHead(t, r), 1)
	c1 := log[0].Hash

	writeFile(t, r, "incoming.txt", "committed\n")
	addPaths(t, r, "incoming.txt")
	c2 := commitAll(t, r, "c2")

	// Go back to c1 (drops incoming.txt), then plant an untracked file
	// where the target wants a different one.
	if _, err := r.Checkout(string(c1)); err != nil {
		t.Fatalf("checkout c1: %v", err)
	}
	writeFile(t, r, "incoming.txt", "untracked clobber bait\n")

	_, err := r.Checkout(string(c2))
	if !errors.Is(err, ErrDirtyWorktree) {
		t.Fatalf("expected ErrDirtyWorktree for untracked overwrite, got %v", err)
	}
}

func mustHead(t *testing.T, r *Repo) object.Hash {
	t.Helper()
	h, err := r.ResolveRef("HEAD")
	if err != nil {
		t.Fatalf("resolve HEAD: %v", err)
	}
	return h
}

func TestCheckoutUnknownTarget(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "a", "1\n")
	addPaths(t, r, "a")
	commitAll(t, r, "c1")
	if _, err := r.Checkout("no-such-branch"); err == nil {
		t.Error("expected error for unknown target")
	}
}

func TestResetSoftMovesHeadOnly(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "f", "1\n")
	addPaths(t, r, "f")
	c1 := commitAll(t, r, "c1")

	writeFile(t, r, "f", "2\n")
	addPaths(t, r, "f")
	commitAll(t, r, "c2")

	idxBefore, _ := os.ReadFile(r.indexPath())

	target, err := r.Reset(string(c1), ResetSoft)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if target != c1 {
		t.Errorf("target: %s", target)
	}
	head, _ := r.ResolveRef("HEAD")
	if head != c1 {
		t.Errorf("HEAD: %s, want %s", head, c1)
	}

	// Index untouched: content of f is still the staged v2.
	idxAfter, _ := os.ReadFile(r.indexPath())
	if string(idxBefore) != string(idxAfter) {
		t.Error("soft reset touched the index")
	}
	// Worktree untouched.
	data, _ := os.ReadFile(filepath.Join(r.RootDir, "f"))
	if string(data) != "2\n" {
		t.Errorf("worktree mutated: %q", data)
	}
}

func TestResetMixedRebuildsIndex(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "f", "1\n")
	addPaths(t, r, "f")
	c1 := commitAll(t, r, "c1")

	writeFile(t, r, "f", "2\n")
	writeFile(t, r, "new.txt", "n\n")
	addPaths(t, r, ".")
	commitAll(t, r, "c2")

	if _, err := r.Reset(string(c1), ResetMixed); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	idx, _ := r.LoadIndex()
	e := idx.Get("f")
	if e == nil || e.Hash != object.HashObject(object.TypeBlob, []byte("1\n")) {
		t.Errorf("index f: %+v", e)
	}
	if idx.Contains("new.txt") {
		t.Error("new.txt should be gone from the index")
	}
	// Worktree untouched: files keep their c2 content.
	data, _ := os.ReadFile(filepath.Join(r.RootDir, "f"))
	if string(data) != "2\n" {
		t.Errorf("worktree mutated: %q", data)
	}
	if _, err := os.Stat(filepath.Join(r.RootDir, "new.txt")); err != nil {
		t.Error("worktree new.txt should survive")
	}
}

func TestResetMixedHeadIsNoOp(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "f", "1\n")
	addPaths(t, r, "f")
	commitAll(t, r, "c1")

	headBefore, _ := r.ResolveRef("HEAD")
	idxBefore, _ := os.ReadFile(r.indexPath())

	if _, err := r.Reset("HEAD", ResetMixed); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	headAfter, _ := r.ResolveRef("HEAD")
	idxAfter, _ := os.ReadFile(r.indexPath())
	if headAfter != headBefore {
		t.Error("reset --mixed HEAD moved HEAD")
	}
	if string(idxBefore) != string(idxAfter) {
		t.Error("reset --mixed HEAD changed the index bytes")
	}
}

func TestResetRejectsNonCommit(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "f", "1\n")
	addPaths(t, r, "f")
	commitAll(t, r, "c1")

	blobHash, err := r.Store.WriteBlob(&object.Blob{Data: []byte("just a blob")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if _, err := r.Reset(string(blobHash), ResetMixed); err == nil {
		t.Error("expected error resetting to a blob")
	}
}
