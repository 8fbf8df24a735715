package repo

import (
	"regexp"
	"strings"
	"testing"

	"github.com/hamza-m-farooqi/pygit/pkg/object"
)

func TestCommitFirstCommitShape(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "a", "A\n")
	addPaths(t, r, "a")
	h := commitAll(t, r, "m")

	objType, data, err := r.Store.Read(h)
	if err != nil {
		t.Fatalf("read commit: %v", err)
	}
	if objType != object.TypeCommit {
		t.Fatalf("kind: %s", objType)
	}
	text := string(data)
	if !strings.HasPrefix(text, "tree ") {
		t.Errorf("missing tree header:\n%s", text)
	}
	if strings.Contains(text, "parent ") {
		t.Errorf("first commit must have no parent:\n%s", text)
	}
	if !strings.Contains(text, "author Test Author <author@test> ") {
		t.Errorf("author line wrong:\n%s", text)
	}
	if !strings.Contains(text, "committer Test Committer <committer@test> ") {
		t.Errorf("committer line wrong:\n%s", text)
	}
	if !strings.HasSuffix(text, "\n\nm\n") {
		t.Errorf("message framing wrong:\n%q", text)
	}

	// Timestamp format: epoch + ±HHMM offset.
	re := regexp.MustCompile(`author [^<]+ <[^>]+> \d+ [+-]\d{4}\n`)
	if !re.MatchString(text) {
		t.Errorf("timestamp format wrong:\n%s", text)
	}

	// The branch advanced.
	head, err := r.ResolveRef("HEAD")
	if err != nil || head != h {
		t.Errorf("HEAD: got %s, %v", head, err)
	}
}

func TestCommitParentChain(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "f", "1\n")
	addPaths(t, r, "f")
	c1 := commitAll(t, r, "one")

	writeFile(t, r, "f", "2\n")
	addPaths(t, r, "f")
	c2 := commitAll(t, r, "two")

	commit, err := r.Store.ReadCommit(c2)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if len(commit.Parents) != 1 || commit.Parents[0] != c1 {
		t.Errorf("parents: %v, want [%s]", commit.Parents, c1)
	}

	log, err := r.Log(c2, 10)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(log) != 2 || log[0].Hash != c2 || log[1].Hash != c1 {
		t.Errorf("log order: %+v", log)
	}
}

func TestCommitAmend(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "f", "1\n")
	addPaths(t, r, "f")
	c1 := commitAll(t, r, "one")

	writeFile(t, r, "f", "2\n")
	addPaths(t, r, "f")
	c2 := commitAll(t, r, "two")

	amended, err := r.Commit(CommitOptions{Message: "x", Amend: true})
	if err != nil {
		t.Fatalf("amend: %v", err)
	}

	commit, err := r.Store.ReadCommit(amended)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	// C2' keeps C2's parent (C1) and C2's tree (index unchanged).
	if len(commit.Parents) != 1 || commit.Parents[0] != c1 {
		t.Errorf("amended parents: %v, want [%s]", commit.Parents, c1)
	}
	old, err := r.Store.ReadCommit(c2)
	if err != nil {
		t.Fatalf("ReadCommit old: %v", err)
	}
	if commit.TreeHash != old.TreeHash {
		t.Errorf("amended tree: %s, want %s", commit.TreeHash, old.TreeHash)
	}
	if commit.Message != "x\n" && commit.Message != "x" {
		t.Errorf("amended message: %q", commit.Message)
	}
	// Author identity is reused from the amended commit.
	if commit.Author != old.Author {
		t.Errorf("author not reused: %+v vs %+v", commit.Author, old.Author)
	}

	// HEAD points at C2'; C2 is unreferenced but still stored.
	head, _ := r.ResolveRef("HEAD")
	if head != amended {
		t.Errorf("HEAD: %s, want %s", head, amended)
	}
	if !r.Store.Has(c2) {
		t.Error("amended-away commit should remain in the store")
	}
}

func TestCommitAmendReusesMessage(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "f", "1\n")
	addPaths(t, r, "f")
	commitAll(t, r, "original message")

	amended, err := r.Commit(CommitOptions{Amend: true})
	if err != nil {
		t.Fatalf("amend: %v", err)
	}
	commit, _ := r.Store.ReadCommit(amended)
	if commit.Summary() != "original message" {
		t.Errorf("message not reused: %q", commit.Message)
	}
}

func TestCommitRequiresMessage(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "f", "1\n")
	addPaths(t, r, "f")
	if _, err := r.Commit(CommitOptions{}); err == nil {
		t.Error("expected message-required error")
	}
}

func TestCommitRequiresStagedFiles(t *testing.T) {
	r := tempRepo(t)
	if _, err := r.Commit(CommitOptions{Message: "empty"}); err == nil {
		t.Error("expected empty-index error")
	}
}

func TestCommitIdentityDefaults(t *testing.T) {
	r := tempRepo(t)
	t.Setenv("GIT_AUTHOR_NAME", "")
	t.Setenv("GIT_AUTHOR_EMAIL", "")
	t.Setenv("GIT_COMMITTER_NAME", "")
	t.Setenv("GIT_COMMITTER_EMAIL", "")

	writeFile(t, r, "f", "1\n")
	addPaths(t, r, "f")
	h := commitAll(t, r, "m")

	commit, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if commit.Author.Name != DefaultIdentName || commit.Author.Email != DefaultIdentMail {
		t.Errorf("default identity: %+v", commit.Author)
	}
}

func TestCommitDetachedHeadAdvancesHeadOnly(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "f", "1\n")
	addPaths(t, r, "f")
	c1 := commitAll(t, r, "one")

	if _, err := r.Checkout(string(c1)); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	writeFile(t, r, "f", "2\n")
	addPaths(t, r, "f")
	c2 := commitAll(t, r, "two")

	head, err := r.ResolveRef("HEAD")
	if err != nil || head != c2 {
		t.Fatalf("detached HEAD: %s, %v", head, err)
	}
	// The branch stays at C1.
	branchHash, err := r.ResolveRef("refs/heads/master")
	if err != nil || branchHash != c1 {
		t.Errorf("master moved: %s, %v", branchHash, err)
	}
}

func TestCommitSignedCarriesGPGSig(t *testing.T) {
	r := tempRepo(t)
	writeFile(t, r, "f", "1\n")
	addPaths(t, r, "f")

	signer := func(payload []byte) (string, error) {
		if len(payload) == 0 {
			t.Error("signer got empty payload")
		}
		return "-----BEGIN SSH SIGNATURE-----\nAAAA\n-----END SSH SIGNATURE-----", nil
	}
	h, err := r.Commit(CommitOptions{Message: "signed", Signer: signer})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	commit, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if !strings.Contains(commit.GPGSig, "SSH SIGNATURE") {
		t.Errorf("gpgsig missing: %q", commit.GPGSig)
	}
}
