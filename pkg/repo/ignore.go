package repo

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreChecker evaluates .gitignore rules against repo-relative paths.
// Rules are compiled once per command; evaluation is last-match-wins with
// negation, and files under an ignored directory stay ignored regardless
// of later negations on the file itself.
type IgnoreChecker struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	negated  bool
	dirOnly  bool
	anchored bool // pattern contains a slash, so match against the full path
	re       *regexp.Regexp
}

// NewIgnoreChecker loads .gitignore from the repository root. A missing
// file yields a checker that only ignores .git itself.
func NewIgnoreChecker(repoRoot string) *IgnoreChecker {
	ic := &IgnoreChecker{}

	f, err := os.Open(filepath.Join(repoRoot, ".gitignore"))
	if err != nil {
		return ic
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if p := parseIgnoreLine(scanner.Text()); p != nil {
			ic.patterns = append(ic.patterns, *p)
		}
	}
	return ic
}

// parseIgnoreLine compiles one .gitignore line. Returns nil for blanks,
// comments, and patterns that fail to compile.
func parseIgnoreLine(line string) *ignorePattern {
	line = strings.TrimRight(line, " \t")
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	p := &ignorePattern{}

	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	} else if strings.HasPrefix(line, `\!`) || strings.HasPrefix(line, `\#`) {
		line = line[1:]
	}

	if strings.HasSuffix(line, "/") && !strings.HasSuffix(line, `\/`) {
		p.dirOnly = true
		line = strings.TrimRight(line, "/")
	}

	// A leading slash anchors to the root; an embedded slash does too.
	if strings.HasPrefix(line, "/") {
		line = line[1:]
		p.anchored = true
	} else if strings.Contains(line, "/") {
		p.anchored = true
	}
	if line == "" {
		return nil
	}

	re, err := regexp.Compile(wildmatchToRegex(line))
	if err != nil {
		return nil
	}
	p.re = re
	return p
}

// wildmatchToRegex translates Git's wildmatch dialect into a stdlib regexp:
// "?" is one non-slash byte, "*" is zero or more non-slash bytes, "**" as a
// full segment crosses slashes, [...] classes support "!" negation, and a
// backslash escapes the next metacharacter.
func wildmatchToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		switch ch {
		case '\\':
			if i+1 < len(pattern) {
				b.WriteString(regexp.QuoteMeta(string(pattern[i+1])))
				i++
			} else {
				b.WriteString(`\\`)
			}
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				atStart := i == 0 || pattern[i-1] == '/'
				afterEnd := i+2 >= len(pattern)
				beforeSlash := i+2 < len(pattern) && pattern[i+2] == '/'
				switch {
				case atStart && beforeSlash:
					// "**/" segment: zero or more whole directories.
					b.WriteString(`(?:[^/]*/)*`)
					i += 2
				case atStart && afterEnd:
					b.WriteString(`.*`)
					i++
				default:
					// "**" not a full segment degrades to "*", as in Git.
					b.WriteString(`[^/]*`)
					i++
				}
			} else {
				b.WriteString(`[^/]*`)
			}
		case '?':
			b.WriteString(`[^/]`)
		case '[':
			j := i + 1
			if j < len(pattern) && (pattern[j] == '!' || pattern[j] == '^') {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++ // a literal ] right after the (possibly negated) open
			}
			for j < len(pattern) && pattern[j] != ']' {
				if pattern[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(pattern) {
				// Unterminated class: literal bracket.
				b.WriteString(regexp.QuoteMeta("["))
				break
			}
			class := pattern[i+1 : j]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + class + "]")
			i = j
		default:
			b.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	b.WriteString("$")
	return b.String()
}

// Match evaluates the rules against one path without considering parents.
// The last matching rule wins; negated rules un-ignore.
func (ic *IgnoreChecker) Match(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	base := path.Base(relPath)

	ignored := false
	for _, p := range ic.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		target := base
		if p.anchored {
			target = relPath
		}
		if p.re.MatchString(target) {
			ignored = !p.negated
		}
	}
	return ignored
}

// IsIgnored reports whether a repo-relative path is ignored. The .git
// directory is always ignored, and a path under an ignored directory is
// ignored no matter what later rules say about the path itself.
func (ic *IgnoreChecker) IsIgnored(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	if relPath == ".git" || strings.HasPrefix(relPath, ".git/") {
		return true
	}

	for i := 0; i < len(relPath); i++ {
		if relPath[i] == '/' && ic.Match(relPath[:i], true) {
			return true
		}
	}
	return ic.Match(relPath, isDir)
}
