package object

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Blob
// ---------------------------------------------------------------------------

// MarshalBlob serializes a Blob to raw bytes (identity; no normalization).
func MarshalBlob(b *Blob) []byte {
	out := make([]byte, len(b.Data))
	copy(out, b.Data)
	return out
}

// UnmarshalBlob deserializes raw bytes into a Blob.
func UnmarshalBlob(data []byte) (*Blob, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return &Blob{Data: out}, nil
}

// ---------------------------------------------------------------------------
// TreeObj
// ---------------------------------------------------------------------------

// treeSortKey is the comparison key for canonical tree order: directory
// names compare as if they carried a trailing slash.
func treeSortKey(e TreeEntry) string {
	if e.IsDir() {
		return e.Name + "/"
	}
	return e.Name
}

// SortTreeEntries orders entries in canonical tree order in place.
func SortTreeEntries(entries []TreeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return treeSortKey(entries[i]) < treeSortKey(entries[j])
	})
}

// MarshalTree serializes a TreeObj to Git's binary tree format: for each
// entry "<mode> <name>\0" followed by the 20 raw id bytes. Entries are
// sorted into canonical tree order first.
func MarshalTree(tr *TreeObj) ([]byte, error) {
	sorted := make([]TreeEntry, len(tr.Entries))
	copy(sorted, tr.Entries)
	SortTreeEntries(sorted)

	var buf bytes.Buffer
	var prev string
	for _, e := range sorted {
		if e.Name == "" || strings.ContainsAny(e.Name, "/\x00") {
			return nil, fmt.Errorf("marshal tree: invalid entry name %q", e.Name)
		}
		if e.Name == prev {
			return nil, fmt.Errorf("marshal tree: duplicate entry name %q", e.Name)
		}
		prev = e.Name

		raw, err := e.Hash.Raw()
		if err != nil {
			return nil, fmt.Errorf("marshal tree: entry %q: %w", e.Name, err)
		}
		buf.WriteString(e.Mode)
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

// UnmarshalTree parses a TreeObj from its binary form.
func UnmarshalTree(data []byte) (*TreeObj, error) {
	tr := &TreeObj{}
	i := 0
	for i < len(data) {
		sp := bytes.IndexByte(data[i:], ' ')
		if sp < 0 {
			return nil, fmt.Errorf("unmarshal tree: missing mode separator at offset %d", i)
		}
		mode := string(data[i : i+sp])
		i += sp + 1

		nul := bytes.IndexByte(data[i:], 0)
		if nul < 0 {
			return nil, fmt.Errorf("unmarshal tree: unterminated entry name at offset %d", i)
		}
		name := string(data[i : i+nul])
		i += nul + 1

		if i+20 > len(data) {
			return nil, fmt.Errorf("unmarshal tree: truncated id for entry %q", name)
		}
		h, err := HashFromRaw(data[i : i+20])
		if err != nil {
			return nil, fmt.Errorf("unmarshal tree: entry %q: %w", name, err)
		}
		i += 20

		tr.Entries = append(tr.Entries, TreeEntry{Name: name, Mode: mode, Hash: h})
	}
	return tr, nil
}

// ---------------------------------------------------------------------------
// Identity lines
// ---------------------------------------------------------------------------

// String renders the identity as Git writes it: "Name <email> epoch ±HHMM".
func (id Identity) String() string {
	return fmt.Sprintf("%s <%s> %d %s", id.Name, id.Email, id.When, id.TZ)
}

// ParseIdentity parses an author/committer value back into its parts.
func ParseIdentity(s string) (Identity, error) {
	open := strings.Index(s, " <")
	end := strings.Index(s, "> ")
	if open < 0 || end < open {
		return Identity{}, fmt.Errorf("parse identity: malformed %q", s)
	}
	rest := strings.TrimSpace(s[end+2:])
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return Identity{}, fmt.Errorf("parse identity: malformed timestamp in %q", s)
	}
	when, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("parse identity: bad epoch %q: %w", fields[0], err)
	}
	return Identity{
		Name:  s[:open],
		Email: s[open+2 : end],
		When:  when,
		TZ:    fields[1],
	}, nil
}

// ---------------------------------------------------------------------------
// CommitObj
// ---------------------------------------------------------------------------

// MarshalCommit serializes a CommitObj to Git's commit format:
//
//	tree H
//	parent H     (zero or more)
//	author Name <email> epoch ±HHMM
//	committer Name <email> epoch ±HHMM
//	gpgsig <armored, continuation lines space-prefixed>   (optional)
//
//	message
//
// The message is stored verbatim except that a trailing newline is
// appended when absent.
func MarshalCommit(c *CommitObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", string(c.TreeHash))
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", string(p))
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "committer %s\n", c.Committer)
	if c.GPGSig != "" {
		sig := strings.TrimRight(c.GPGSig, "\n")
		buf.WriteString("gpgsig ")
		buf.WriteString(strings.ReplaceAll(sig, "\n", "\n "))
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	if !strings.HasSuffix(c.Message, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// UnmarshalCommit parses a CommitObj from its serialized form. Header
// continuation lines (leading space) extend the previous header value.
func UnmarshalCommit(data []byte) (*CommitObj, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return nil, fmt.Errorf("unmarshal commit: missing header/message separator")
	}
	header := string(data[:idx])
	message := string(data[idx+2:])

	c := &CommitObj{Message: message}

	var lines []string
	for _, line := range strings.Split(header, "\n") {
		if strings.HasPrefix(line, " ") && len(lines) > 0 {
			lines[len(lines)-1] += "\n" + line[1:]
			continue
		}
		lines = append(lines, line)
	}

	for _, line := range lines {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("unmarshal commit: malformed header line %q", line)
		}
		switch key {
		case "tree":
			c.TreeHash = Hash(val)
		case "parent":
			c.Parents = append(c.Parents, Hash(val))
		case "author":
			id, err := ParseIdentity(val)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: author: %w", err)
			}
			c.Author = id
		case "committer":
			id, err := ParseIdentity(val)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: committer: %w", err)
			}
			c.Committer = id
		case "gpgsig":
			c.GPGSig = val
		default:
			// Unknown headers (e.g. encoding, mergetag) are preserved by
			// round-tripping raw bytes at the store layer, not here.
		}
	}
	if c.TreeHash == "" {
		return nil, fmt.Errorf("unmarshal commit: missing tree header")
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// TagObj
// ---------------------------------------------------------------------------

// MarshalTag serializes an annotated tag.
func MarshalTag(t *TagObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "object %s\n", string(t.TargetHash))
	fmt.Fprintf(&buf, "type %s\n", string(t.TargetType))
	fmt.Fprintf(&buf, "tag %s\n", t.Name)
	fmt.Fprintf(&buf, "tagger %s\n", t.Tagger)
	buf.WriteByte('\n')
	buf.WriteString(t.Message)
	if !strings.HasSuffix(t.Message, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// UnmarshalTag parses an annotated tag payload.
func UnmarshalTag(data []byte) (*TagObj, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return nil, fmt.Errorf("unmarshal tag: missing header/message separator")
	}
	t := &TagObj{Message: string(data[idx+2:])}
	for _, line := range strings.Split(string(data[:idx]), "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("unmarshal tag: malformed header line %q", line)
		}
		switch key {
		case "object":
			t.TargetHash = Hash(val)
		case "type":
			t.TargetType = ObjectType(val)
		case "tag":
			t.Name = val
		case "tagger":
			id, err := ParseIdentity(val)
			if err != nil {
				return nil, fmt.Errorf("unmarshal tag: tagger: %w", err)
			}
			t.Tagger = id
		}
	}
	return t, nil
}
