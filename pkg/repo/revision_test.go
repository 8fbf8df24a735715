package repo

import (
	"errors"
	"testing"

	"github.com/hamza-m-farooqi/pygit/pkg/object"
)

func TestResolveRevisionForms(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "f", "1\n")
	addPaths(t, r, "f")
	c1 := commitAll(t, r, "c1")

	cases := []string{
		"HEAD",
		"master",
		"refs/heads/master",
		string(c1),
		string(c1[:8]),
		string(c1[:4]),
	}
	for _, rev := range cases {
		got, err := r.ResolveRevision(rev)
		if err != nil {
			t.Errorf("ResolveRevision(%q): %v", rev, err)
			continue
		}
		if got != c1 {
			t.Errorf("ResolveRevision(%q): got %s, want %s", rev, got, c1)
		}
	}
}

func TestResolveRevisionUnbornHead(t *testing.T) {
	r := tempRepo(t)
	_, err := r.ResolveRevision("HEAD")
	if !errors.Is(err, ErrRefNotFound) {
		t.Errorf("expected ErrRefNotFound, got %v", err)
	}
}

func TestResolveRevisionUnknown(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "f", "1\n")
	addPaths(t, r, "f")
	commitAll(t, r, "c1")

	if _, err := r.ResolveRevision("nonexistent-branch"); err == nil {
		t.Error("expected error for unknown revision")
	}
	if _, err := r.ResolveRevision("deadbeef"); !errors.Is(err, object.ErrNotFound) {
		t.Errorf("expected object.ErrNotFound, got %v", err)
	}
}

func TestBranchCreateAndList(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "f", "1\n")
	addPaths(t, r, "f")
	c1 := commitAll(t, r, "c1")

	if err := r.CreateBranch("feature", c1); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := r.CreateBranch("feature", c1); err == nil {
		t.Error("duplicate branch creation should fail")
	}

	branches, err := r.ListBranches()
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	if len(branches) != 2 || branches[0] != "feature" || branches[1] != "master" {
		t.Errorf("branches: %v", branches)
	}

	got, err := r.ResolveRef("refs/heads/feature")
	if err != nil || got != c1 {
		t.Errorf("feature: %s, %v", got, err)
	}
}

func TestValidateBranchName(t *testing.T) {
	valid := []string{"main", "feature/login", "v1.2.3", "user-x_y"}
	for _, name := range valid {
		if err := ValidateBranchName(name); err != nil {
			t.Errorf("ValidateBranchName(%q): %v", name, err)
		}
	}

	invalid := []string{
		"", "-lead", "has space", "a..b", ".hidden", "nested/.hidden",
		"refs/heads.lock", "x.lock", "tab\tname", "ctrl\x01name",
	}
	for _, name := range invalid {
		if err := ValidateBranchName(name); !errors.Is(err, ErrInvalidRefName) {
			t.Errorf("ValidateBranchName(%q) should fail with ErrInvalidRefName, got %v", name, err)
		}
	}
}

func TestUpdateRefCAS(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "f", "1\n")
	addPaths(t, r, "f")
	c1 := commitAll(t, r, "c1")

	other := object.HashObject(object.TypeBlob, []byte("other"))
	if err := r.UpdateRef("refs/heads/master", other, c1); err != nil {
		t.Fatalf("CAS with matching old: %v", err)
	}
	if err := r.UpdateRef("refs/heads/master", c1, c1); !errors.Is(err, ErrRefCASMismatch) {
		t.Errorf("expected CAS mismatch, got %v", err)
	}
}
