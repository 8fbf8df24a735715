package object

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// Sentinel errors surfaced by store lookups.
var (
	ErrNotFound  = errors.New("object not found")
	ErrAmbiguous = errors.New("ambiguous object id prefix")
	ErrCorrupt   = errors.New("corrupt object")
)

// Store is a content-addressed loose-object store with a 2-character fan-out
// directory layout: objects/ab/cdef0123... Each file is the zlib-compressed
// envelope "type len\0content".
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given .git directory. The objects/
// subdirectory is created lazily on first write.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// objectPath returns the filesystem path for a given hash.
func (s *Store) objectPath(h Hash) string {
	return filepath.Join(s.root, "objects", string(h[:2]), string(h[2:]))
}

// Has reports whether the store contains an object with the given hash.
func (s *Store) Has(h Hash) bool {
	if len(h) != 40 {
		return false
	}
	_, err := os.Stat(s.objectPath(h))
	return err == nil
}

// Write stores an object and returns its content hash. Writes are atomic:
// the compressed envelope goes to a temp file in the fan-out directory and
// is renamed into place. Writing an object that already exists is a no-op.
func (s *Store) Write(objType ObjectType, data []byte) (Hash, error) {
	if !objType.Valid() {
		return "", fmt.Errorf("object write: unsupported object type %q", objType)
	}
	h := HashObject(objType, data)

	// Fast path: already exists; the path is derived from the content.
	if s.Has(h) {
		return h, nil
	}

	dir := filepath.Join(s.root, "objects", string(h[:2]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("object write mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("object write tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	zw := zlib.NewWriter(tmp)
	_, werr := fmt.Fprintf(zw, "%s %d\x00", objType, len(data))
	if werr == nil {
		_, werr = zw.Write(data)
	}
	if cerr := zw.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("object write: %w", werr)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write close: %w", err)
	}

	if err := os.Rename(tmpName, s.objectPath(h)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write rename: %w", err)
	}
	return h, nil
}

// Read retrieves an object by hash, returning its type and raw content.
// The declared envelope length must match the payload length.
func (s *Store) Read(h Hash) (ObjectType, []byte, error) {
	if len(h) != 40 {
		return "", nil, fmt.Errorf("object read %s: %w", h, ErrNotFound)
	}
	f, err := os.Open(s.objectPath(h))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("object read %s: %w", h, ErrNotFound)
		}
		return "", nil, fmt.Errorf("object read %s: %w", h, err)
	}
	defer f.Close()

	zr, err := zlib.NewReader(f)
	if err != nil {
		return "", nil, fmt.Errorf("object read %s: %w: %v", h, ErrCorrupt, err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return "", nil, fmt.Errorf("object read %s: %w: %v", h, ErrCorrupt, err)
	}

	nulIdx := bytes.IndexByte(raw, 0)
	if nulIdx < 0 {
		return "", nil, fmt.Errorf("object read %s: %w: no NUL in header", h, ErrCorrupt)
	}
	header := string(raw[:nulIdx])
	content := raw[nulIdx+1:]

	objTypeStr, sizeStr, ok := strings.Cut(header, " ")
	if !ok {
		return "", nil, fmt.Errorf("object read %s: %w: invalid header %q", h, ErrCorrupt, header)
	}
	objType := ObjectType(objTypeStr)
	if !objType.Valid() {
		return "", nil, fmt.Errorf("object read %s: %w: unknown type %q", h, ErrCorrupt, objTypeStr)
	}
	length, err := strconv.Atoi(sizeStr)
	if err != nil {
		return "", nil, fmt.Errorf("object read %s: %w: invalid length %q", h, ErrCorrupt, sizeStr)
	}
	if len(content) != length {
		return "", nil, fmt.Errorf("object read %s: %w: length mismatch (header=%d, actual=%d)",
			h, ErrCorrupt, length, len(content))
	}
	return objType, content, nil
}

// ResolvePrefix expands an object id prefix (at least 4 hex chars) to the
// unique full hash it identifies, scanning the fan-out directory.
func (s *Store) ResolvePrefix(prefix string) (Hash, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if len(prefix) < 4 {
		return "", fmt.Errorf("resolve %q: object id prefix must have at least 4 hex chars", prefix)
	}
	if len(prefix) > 40 {
		return "", fmt.Errorf("resolve %q: %w", prefix, ErrNotFound)
	}
	if _, err := strconv.ParseUint(prefix[:2], 16, 8); err != nil {
		return "", fmt.Errorf("resolve %q: %w", prefix, ErrNotFound)
	}
	if len(prefix) == 40 {
		if s.Has(Hash(prefix)) {
			return Hash(prefix), nil
		}
		return "", fmt.Errorf("resolve %q: %w", prefix, ErrNotFound)
	}

	dir := filepath.Join(s.root, "objects", prefix[:2])
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("resolve %q: %w", prefix, ErrNotFound)
		}
		return "", fmt.Errorf("resolve %q: %w", prefix, err)
	}

	var match Hash
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), prefix[2:]) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("resolve %q: %w", prefix, ErrAmbiguous)
		}
		match = Hash(prefix[:2] + e.Name())
	}
	if match == "" {
		return "", fmt.Errorf("resolve %q: %w", prefix, ErrNotFound)
	}
	return match, nil
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

// WriteBlob serializes and stores a Blob.
func (s *Store) WriteBlob(b *Blob) (Hash, error) {
	return s.Write(TypeBlob, MarshalBlob(b))
}

// ReadBlob reads and deserializes a Blob.
func (s *Store) ReadBlob(h Hash) (*Blob, error) {
	data, err := s.readTyped(h, TypeBlob)
	if err != nil {
		return nil, err
	}
	return UnmarshalBlob(data)
}

// WriteTree serializes and stores a TreeObj.
func (s *Store) WriteTree(tr *TreeObj) (Hash, error) {
	data, err := MarshalTree(tr)
	if err != nil {
		return "", err
	}
	return s.Write(TypeTree, data)
}

// ReadTree reads and deserializes a TreeObj.
func (s *Store) ReadTree(h Hash) (*TreeObj, error) {
	data, err := s.readTyped(h, TypeTree)
	if err != nil {
		return nil, err
	}
	return UnmarshalTree(data)
}

// WriteCommit serializes and stores a CommitObj.
func (s *Store) WriteCommit(c *CommitObj) (Hash, error) {
	return s.Write(TypeCommit, MarshalCommit(c))
}

// ReadCommit reads and deserializes a CommitObj.
func (s *Store) ReadCommit(h Hash) (*CommitObj, error) {
	data, err := s.readTyped(h, TypeCommit)
	if err != nil {
		return nil, err
	}
	return UnmarshalCommit(data)
}

func (s *Store) readTyped(h Hash, want ObjectType) ([]byte, error) {
	objType, data, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	if objType != want {
		return nil, fmt.Errorf("object %s: type mismatch: got %q, want %q", h, objType, want)
	}
	return data, nil
}
