package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hamza-m-farooqi/pygit/pkg/object"
)

func tempRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	// Pin identity so commit hashes only vary by content and clock.
	t.Setenv("GIT_AUTHOR_NAME", "Test Author")
	t.Setenv("GIT_AUTHOR_EMAIL", "author@test")
	t.Setenv("GIT_COMMITTER_NAME", "Test Committer")
	t.Setenv("GIT_COMMITTER_EMAIL", "committer@test")
	return r
}

func writeFile(t *testing.T, r *Repo, rel, content string) string {
	t.Helper()
	abs := filepath.Join(r.RootDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	return abs
}

func addPaths(t *testing.T, r *Repo, rels ...string) {
	t.Helper()
	abs := make([]string, len(rels))
	for i, rel := range rels {
		abs[i] = filepath.Join(r.RootDir, filepath.FromSlash(rel))
	}
	if err := r.Add(abs); err != nil {
		t.Fatalf("Add(%v): %v", rels, err)
	}
}

func chmodExec(abs string) error {
	return os.Chmod(abs, 0o755)
}

func commitAll(t *testing.T, r *Repo, msg string) object.Hash {
	t.Helper()
	h, err := r.Commit(CommitOptions{Message: msg})
	if err != nil {
		t.Fatalf("Commit(%q): %v", msg, err)
	}
	return h
}

func TestInitLayout(t *testing.T) {
	r := tempRepo(t)

	head, err := os.ReadFile(filepath.Join(r.GitDir, "HEAD"))
	if err != nil {
		t.Fatalf("read HEAD: %v", err)
	}
	if string(head) != "ref: refs/heads/master\n" {
		t.Errorf("HEAD content: %q", head)
	}
	for _, d := range []string{"objects", "refs/heads"} {
		if _, err := os.Stat(filepath.Join(r.GitDir, filepath.FromSlash(d))); err != nil {
			t.Errorf("missing %s: %v", d, err)
		}
	}
	if _, err := os.Stat(filepath.Join(r.GitDir, "config")); err != nil {
		t.Errorf("missing config: %v", err)
	}
}

func TestInitRefusesExisting(t *testing.T) {
	r := tempRepo(t)
	if _, err := Init(r.RootDir); err == nil {
		t.Error("expected error re-initializing")
	}
}

func TestOpenAscends(t *testing.T) {
	r := tempRepo(t)
	sub := filepath.Join(r.RootDir, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	opened, err := Open(sub)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened.RootDir != r.RootDir {
		t.Errorf("Open root: got %s, want %s", opened.RootDir, r.RootDir)
	}
}

func TestOpenOutsideRepo(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, ErrNotARepository) {
		t.Errorf("expected ErrNotARepository, got %v", err)
	}
}

func TestRelPathRejectsEscapes(t *testing.T) {
	r := tempRepo(t)
	if _, err := r.RelPath(filepath.Dir(r.RootDir)); !errors.Is(err, ErrPathOutsideRepo) {
		t.Errorf("expected ErrPathOutsideRepo, got %v", err)
	}
	rel, err := r.RelPath(filepath.Join(r.RootDir, "sub", "file.txt"))
	if err != nil || rel != "sub/file.txt" {
		t.Errorf("RelPath: got %q, %v", rel, err)
	}
}
