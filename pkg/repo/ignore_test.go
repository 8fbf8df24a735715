package repo

import (
	"os"
	"path/filepath"
	"testing"
)

func checkerFor(t *testing.T, gitignore string) *IgnoreChecker {
	t.Helper()
	dir := t.TempDir()
	if gitignore != "" {
		if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
			t.Fatalf("write .gitignore: %v", err)
		}
	}
	return NewIgnoreChecker(dir)
}

func TestIgnoreNegationPrecedence(t *testing.T) {
	ic := checkerFor(t, "*.log\n!keep.log\n")

	if !ic.IsIgnored("a.log", false) {
		t.Error("a.log should be ignored")
	}
	if !ic.IsIgnored("sub/a.log", false) {
		t.Error("sub/a.log should be ignored")
	}
	if ic.IsIgnored("keep.log", false) {
		t.Error("keep.log should be re-included by the negation")
	}
	if ic.IsIgnored("other.txt", false) {
		t.Error("other.txt matched nothing")
	}
}

func TestIgnoreLastMatchWins(t *testing.T) {
	ic := checkerFor(t, "!debug.log\n*.log\n")
	// The negation precedes the ignore rule, so the ignore wins.
	if !ic.IsIgnored("debug.log", false) {
		t.Error("later *.log should win over earlier negation")
	}
}

func TestIgnoreDirOnly(t *testing.T) {
	ic := checkerFor(t, "build/\n")
	if !ic.IsIgnored("build", true) {
		t.Error("build directory should be ignored")
	}
	if ic.IsIgnored("build", false) {
		t.Error("a plain file named build is not matched by build/")
	}
	if !ic.IsIgnored("build/out.txt", false) {
		t.Error("files under an ignored directory are ignored")
	}
	if !ic.IsIgnored("sub/build/x", false) {
		t.Error("unanchored dir pattern applies at any depth")
	}
}

func TestIgnoreParentDirectoryExclusionWins(t *testing.T) {
	ic := checkerFor(t, "build/\n!build/keep.log\n")
	// The negation cannot re-include a file whose parent directory stays
	// excluded.
	if !ic.IsIgnored("build/keep.log", false) {
		t.Error("file under an excluded directory stays ignored")
	}
}

func TestIgnoreNegatedDirectoryReincludes(t *testing.T) {
	ic := checkerFor(t, "out*/\n!out-keep/\n")
	if !ic.IsIgnored("out-tmp/file", false) {
		t.Error("out-tmp contents should be ignored")
	}
	if ic.IsIgnored("out-keep/file", false) {
		t.Error("negating the directory itself re-includes its contents")
	}
}

func TestIgnoreAnchoring(t *testing.T) {
	ic := checkerFor(t, "/top.txt\ndocs/notes.md\n")
	if !ic.IsIgnored("top.txt", false) {
		t.Error("/top.txt anchors at the root")
	}
	if ic.IsIgnored("sub/top.txt", false) {
		t.Error("anchored pattern must not match below the root")
	}
	if !ic.IsIgnored("docs/notes.md", false) {
		t.Error("embedded slash anchors the pattern")
	}
	if ic.IsIgnored("x/docs/notes.md", false) {
		t.Error("anchored path pattern matched at depth")
	}
}

func TestIgnoreWildmatchMetacharacters(t *testing.T) {
	ic := checkerFor(t, "?.txt\nfile[0-9].go\nlit[!a].md\n")
	if !ic.IsIgnored("a.txt", false) || ic.IsIgnored("ab.txt", false) {
		t.Error("? matches exactly one byte")
	}
	if ic.IsIgnored("a/b.txt", false) && !ic.IsIgnored("b.txt", false) {
		t.Error("? never matches a slash")
	}
	if !ic.IsIgnored("file7.go", false) || ic.IsIgnored("filex.go", false) {
		t.Error("character class failed")
	}
	if !ic.IsIgnored("litb.md", false) || ic.IsIgnored("lita.md", false) {
		t.Error("negated character class failed")
	}
}

func TestIgnoreDoubleStar(t *testing.T) {
	ic := checkerFor(t, "**/generated.go\nvendor/**\na/**/b\n")
	if !ic.IsIgnored("generated.go", false) {
		t.Error("**/x matches at the root")
	}
	if !ic.IsIgnored("deep/ly/generated.go", false) {
		t.Error("**/x matches at depth")
	}
	if !ic.IsIgnored("vendor/pkg/mod.go", false) {
		t.Error("x/** matches everything inside")
	}
	if ic.IsIgnored("vendor", false) {
		t.Error("x/** does not match x itself")
	}
	if !ic.IsIgnored("a/b", false) || !ic.IsIgnored("a/x/y/b", false) {
		t.Error("a/**/b spans zero or more directories")
	}
	if ic.IsIgnored("ab", false) {
		t.Error("a/**/b must not match ab")
	}
}

func TestIgnoreEscapes(t *testing.T) {
	ic := checkerFor(t, "\\*.txt\n\\!important\n")
	if !ic.IsIgnored("*.txt", false) {
		t.Error("escaped star is a literal")
	}
	if ic.IsIgnored("a.txt", false) {
		t.Error("escaped star must not act as a wildcard")
	}
	if !ic.IsIgnored("!important", false) {
		t.Error("escaped bang is a literal")
	}
}

func TestIgnoreCommentsAndBlanks(t *testing.T) {
	ic := checkerFor(t, "# comment\n\n*.tmp\n")
	if !ic.IsIgnored("a.tmp", false) {
		t.Error("rule after comment/blank lines ignored")
	}
	if ic.IsIgnored("# comment", false) {
		t.Error("comment treated as a pattern")
	}
}

func TestIgnoreAlwaysSkipsDotGit(t *testing.T) {
	ic := checkerFor(t, "")
	if !ic.IsIgnored(".git", true) || !ic.IsIgnored(".git/config", false) {
		t.Error(".git must always be ignored")
	}
}
