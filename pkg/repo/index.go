package repo

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hamza-m-farooqi/pygit/pkg/object"
)

// Index binary layout constants (format v2).
const (
	indexSignature     = "DIRC"
	indexVersion       = 2
	indexEntryHeadSize = 62 // fixed fields before the path
)

// Entry flag bits.
const (
	flagAssumeValid = 0x8000
	flagExtended    = 0x4000
	flagStageMask   = 0x3000
	flagNameMask    = 0x0FFF
)

// File type bits within the 32-bit index mode.
const (
	ModeRegular    = 0o100644
	ModeExecutable = 0o100755
)

// IndexEntry records the staged state of a single path: the blob id, the
// file mode, and the stat cache used to skip rehashing unchanged files.
type IndexEntry struct {
	CtimeSec  uint32
	CtimeNano uint32
	MtimeSec  uint32
	MtimeNano uint32
	Dev       uint32
	Ino       uint32
	Mode      uint32
	UID       uint32
	GID       uint32
	Size      uint32
	Hash      object.Hash
	Flags     uint16
	Path      string
}

// Stage extracts the merge stage from the flags. Always 0 here.
func (e *IndexEntry) Stage() int {
	return int(e.Flags&flagStageMask) >> 12
}

// Index is the staging area: entries sorted by path bytes, unique.
type Index struct {
	entries []*IndexEntry
}

func (r *Repo) indexPath() string {
	return filepath.Join(r.GitDir, "index")
}

// validIndexPath rejects paths that must never enter the index.
func validIndexPath(p string) error {
	if p == "" {
		return fmt.Errorf("empty path")
	}
	if strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/") {
		return fmt.Errorf("path %q has a leading or trailing slash", p)
	}
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".", "..":
			return fmt.Errorf("path %q has an invalid segment", p)
		}
	}
	return nil
}

// entryFlags computes the flags word for a path: stage 0, name length
// capped at 0xFFF.
func entryFlags(path string) uint16 {
	n := len(path)
	if n > flagNameMask {
		n = flagNameMask
	}
	return uint16(n)
}

// ---------------------------------------------------------------------------
// Codec
// ---------------------------------------------------------------------------

// LoadIndex reads .git/index. A missing file yields an empty index. The
// trailing checksum and structural invariants are verified; extensions are
// tolerated and skipped.
func (r *Repo) LoadIndex() (*Index, error) {
	data, err := os.ReadFile(r.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Index{}, nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}
	idx, err := parseIndex(data)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return idx, nil
}

func parseIndex(data []byte) (*Index, error) {
	if len(data) < 12+sha1.Size {
		return nil, fmt.Errorf("%w: file too short", ErrCorruptIndex)
	}

	sum := sha1.Sum(data[:len(data)-sha1.Size])
	if !bytes.Equal(sum[:], data[len(data)-sha1.Size:]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptIndex)
	}

	if string(data[:4]) != indexSignature {
		return nil, fmt.Errorf("%w: bad signature %q", ErrCorruptIndex, data[:4])
	}
	version := binary.BigEndian.Uint32(data[4:8])
	if version < 2 || version > 4 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptIndex, version)
	}
	count := binary.BigEndian.Uint32(data[8:12])

	body := data[12 : len(data)-sha1.Size]
	idx := &Index{entries: make([]*IndexEntry, 0, count)}
	pos := 0
	prevPath := ""
	for i := uint32(0); i < count; i++ {
		if pos+indexEntryHeadSize > len(body) {
			return nil, fmt.Errorf("%w: truncated entry %d", ErrCorruptIndex, i)
		}
		head := body[pos : pos+indexEntryHeadSize]
		e := &IndexEntry{
			CtimeSec:  binary.BigEndian.Uint32(head[0:4]),
			CtimeNano: binary.BigEndian.Uint32(head[4:8]),
			MtimeSec:  binary.BigEndian.Uint32(head[8:12]),
			MtimeNano: binary.BigEndian.Uint32(head[12:16]),
			Dev:       binary.BigEndian.Uint32(head[16:20]),
			Ino:       binary.BigEndian.Uint32(head[20:24]),
			Mode:      binary.BigEndian.Uint32(head[24:28]),
			UID:       binary.BigEndian.Uint32(head[28:32]),
			GID:       binary.BigEndian.Uint32(head[32:36]),
			Size:      binary.BigEndian.Uint32(head[36:40]),
			Flags:     binary.BigEndian.Uint16(head[60:62]),
		}
		h, err := object.HashFromRaw(head[40:60])
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrCorruptIndex, i, err)
		}
		e.Hash = h
		if e.Flags&flagExtended != 0 {
			return nil, fmt.Errorf("%w: entry %d uses extended flags", ErrCorruptIndex, i)
		}
		pos += indexEntryHeadSize

		if version == 4 {
			strip, n, err := readOffsetVarint(body[pos:])
			if err != nil {
				return nil, fmt.Errorf("%w: entry %d: %v", ErrCorruptIndex, i, err)
			}
			pos += n
			nul := bytes.IndexByte(body[pos:], 0)
			if nul < 0 {
				return nil, fmt.Errorf("%w: unterminated path in entry %d", ErrCorruptIndex, i)
			}
			suffix := string(body[pos : pos+nul])
			pos += nul + 1
			if strip > uint64(len(prevPath)) {
				return nil, fmt.Errorf("%w: entry %d strips past previous path", ErrCorruptIndex, i)
			}
			e.Path = prevPath[:uint64(len(prevPath))-strip] + suffix
		} else {
			nul := bytes.IndexByte(body[pos:], 0)
			if nul < 0 {
				return nil, fmt.Errorf("%w: unterminated path in entry %d", ErrCorruptIndex, i)
			}
			e.Path = string(body[pos : pos+nul])
			// Entry length, header included, rounds up to a multiple of 8.
			entryLen := ((indexEntryHeadSize + nul + 8) / 8) * 8
			pos += entryLen - indexEntryHeadSize
			if pos > len(body) {
				return nil, fmt.Errorf("%w: entry %d padding overruns file", ErrCorruptIndex, i)
			}
		}

		if err := validIndexPath(e.Path); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrCorruptIndex, i, err)
		}
		if prevPath != "" && e.Path <= prevPath {
			return nil, fmt.Errorf("%w: entries out of order (%q after %q)", ErrCorruptIndex, e.Path, prevPath)
		}
		prevPath = e.Path
		idx.entries = append(idx.entries, e)
	}
	// Anything between the last entry and the checksum is extension data;
	// it is skipped on read and never written back.
	return idx, nil
}

// readOffsetVarint decodes the variable-width integer used by index v4
// path compression (same encoding as pack OFS_DELTA offsets).
func readOffsetVarint(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("truncated varint")
	}
	c := b[0]
	value := uint64(c & 0x7f)
	n := 1
	for c&0x80 != 0 {
		if n >= len(b) {
			return 0, 0, fmt.Errorf("truncated varint")
		}
		c = b[n]
		n++
		value = ((value + 1) << 7) | uint64(c&0x7f)
	}
	return value, n, nil
}

// SaveIndex serializes the index as format v2 and atomically replaces
// .git/index (temp file in the same directory, fsync, rename).
func (r *Repo) SaveIndex(idx *Index) error {
	payload := serializeIndex(idx)

	tmp, err := os.CreateTemp(r.GitDir, ".index-tmp-*")
	if err != nil {
		return fmt.Errorf("write index: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write index: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write index: close: %w", err)
	}
	if err := os.Rename(tmpName, r.indexPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write index: rename: %w", err)
	}
	return nil
}

func serializeIndex(idx *Index) []byte {
	var buf bytes.Buffer
	var header [12]byte
	copy(header[:4], indexSignature)
	binary.BigEndian.PutUint32(header[4:8], indexVersion)
	binary.BigEndian.PutUint32(header[8:12], uint32(len(idx.entries)))
	buf.Write(header[:])

	for _, e := range idx.entries {
		var head [indexEntryHeadSize]byte
		binary.BigEndian.PutUint32(head[0:4], e.CtimeSec)
		binary.BigEndian.PutUint32(head[4:8], e.CtimeNano)
		binary.BigEndian.PutUint32(head[8:12], e.MtimeSec)
		binary.BigEndian.PutUint32(head[12:16], e.MtimeNano)
		binary.BigEndian.PutUint32(head[16:20], e.Dev)
		binary.BigEndian.PutUint32(head[20:24], e.Ino)
		binary.BigEndian.PutUint32(head[24:28], e.Mode)
		binary.BigEndian.PutUint32(head[28:32], e.UID)
		binary.BigEndian.PutUint32(head[32:36], e.GID)
		binary.BigEndian.PutUint32(head[36:40], e.Size)
		raw, _ := e.Hash.Raw()
		copy(head[40:60], raw)
		binary.BigEndian.PutUint16(head[60:62], e.Flags)
		buf.Write(head[:])

		buf.WriteString(e.Path)
		// NUL terminator plus padding to a multiple of 8, at least one NUL.
		entryLen := ((indexEntryHeadSize + len(e.Path) + 8) / 8) * 8
		for n := indexEntryHeadSize + len(e.Path); n < entryLen; n++ {
			buf.WriteByte(0)
		}
	}

	sum := sha1.Sum(buf.Bytes())
	buf.Write(sum[:])
	return buf.Bytes()
}

// ---------------------------------------------------------------------------
// Mutations and lookups
// ---------------------------------------------------------------------------

// Entries returns the sorted entry slice. Callers must not reorder it.
func (idx *Index) Entries() []*IndexEntry {
	return idx.entries
}

// Len returns the number of staged paths.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Get returns the entry for path, or nil.
func (idx *Index) Get(path string) *IndexEntry {
	i := sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].Path >= path
	})
	if i < len(idx.entries) && idx.entries[i].Path == path {
		return idx.entries[i]
	}
	return nil
}

// Contains reports whether path is staged.
func (idx *Index) Contains(path string) bool {
	return idx.Get(path) != nil
}

// Upsert inserts or replaces the entry for e.Path, keeping the entries
// sorted by path bytes and unique.
func (idx *Index) Upsert(e *IndexEntry) error {
	if err := validIndexPath(e.Path); err != nil {
		return fmt.Errorf("index upsert: %w", err)
	}
	if e.Flags == 0 {
		e.Flags = entryFlags(e.Path)
	}
	i := sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].Path >= e.Path
	})
	if i < len(idx.entries) && idx.entries[i].Path == e.Path {
		idx.entries[i] = e
		return nil
	}
	idx.entries = append(idx.entries, nil)
	copy(idx.entries[i+1:], idx.entries[i:])
	idx.entries[i] = e
	return nil
}

// Remove drops the entry for path, reporting whether it was present.
func (idx *Index) Remove(path string) bool {
	i := sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].Path >= path
	})
	if i >= len(idx.entries) || idx.entries[i].Path != path {
		return false
	}
	idx.entries = append(idx.entries[:i], idx.entries[i+1:]...)
	return true
}

// Paths returns the staged paths in index order.
func (idx *Index) Paths() []string {
	out := make([]string, len(idx.entries))
	for i, e := range idx.entries {
		out[i] = e.Path
	}
	return out
}
