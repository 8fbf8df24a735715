package object

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"hash"
	"io"

	"github.com/klauspost/compress/zlib"
)

// PackObjectType is the numeric object type used in pack entry headers.
type PackObjectType int

const (
	PackCommit PackObjectType = 1
	PackTree   PackObjectType = 2
	PackBlob   PackObjectType = 3
	PackTag    PackObjectType = 4
)

const packVersion = 2

// PackTypeOf maps an object kind to its pack entry type. Only the four
// non-delta types are produced.
func PackTypeOf(t ObjectType) (PackObjectType, error) {
	switch t {
	case TypeCommit:
		return PackCommit, nil
	case TypeTree:
		return PackTree, nil
	case TypeBlob:
		return PackBlob, nil
	case TypeTag:
		return PackTag, nil
	}
	return 0, fmt.Errorf("pack: unsupported object type %q", t)
}

// encodePackEntryHeader encodes the variable-length object entry header used
// in Git pack files: type in bits 4-6 of the first byte, size in little
// 7-bit groups with the high bit as continuation.
func encodePackEntryHeader(objType PackObjectType, size uint64) []byte {
	b := byte(objType&0x7) << 4
	b |= byte(size & 0x0f)
	size >>= 4

	out := make([]byte, 0, 10)
	if size > 0 {
		b |= 0x80
	}
	out = append(out, b)

	for size > 0 {
		next := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			next |= 0x80
		}
		out = append(out, next)
	}
	return out
}

// PackWriter writes Git pack streams: "PACK" + version 2 + object count,
// then per-entry headers with zlib-compressed payloads, then a SHA-1
// trailer over everything preceding it.
type PackWriter struct {
	hashedW  io.Writer
	out      io.Writer
	hasher   hash.Hash
	expected uint32
	written  uint32
	finished bool
}

// NewPackWriter initializes a writer and emits the fixed pack header.
func NewPackWriter(out io.Writer, numObjects uint32) (*PackWriter, error) {
	hasher := sha1.New()
	pw := &PackWriter{
		hashedW:  io.MultiWriter(out, hasher),
		out:      out,
		hasher:   hasher,
		expected: numObjects,
	}

	var header [12]byte
	copy(header[:4], "PACK")
	binary.BigEndian.PutUint32(header[4:8], packVersion)
	binary.BigEndian.PutUint32(header[8:12], numObjects)
	if _, err := pw.hashedW.Write(header[:]); err != nil {
		return nil, fmt.Errorf("write pack header: %w", err)
	}
	return pw, nil
}

// WriteEntry appends one object entry to the pack stream.
func (p *PackWriter) WriteEntry(objType PackObjectType, data []byte) error {
	if p.finished {
		return fmt.Errorf("pack writer already finished")
	}
	if p.written >= p.expected {
		return fmt.Errorf("pack object count exceeded: expected %d", p.expected)
	}

	if _, err := p.hashedW.Write(encodePackEntryHeader(objType, uint64(len(data)))); err != nil {
		return fmt.Errorf("write pack entry header: %w", err)
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return fmt.Errorf("compress pack entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress pack entry: %w", err)
	}
	if _, err := p.hashedW.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write compressed pack entry: %w", err)
	}

	p.written++
	return nil
}

// Finish writes the trailing checksum. The trailer itself is not hashed.
func (p *PackWriter) Finish() error {
	if p.finished {
		return fmt.Errorf("pack writer already finished")
	}
	if p.written != p.expected {
		return fmt.Errorf("pack object count mismatch: wrote %d, expected %d", p.written, p.expected)
	}
	p.finished = true
	if _, err := p.out.Write(p.hasher.Sum(nil)); err != nil {
		return fmt.Errorf("write pack trailer: %w", err)
	}
	return nil
}

// BuildPack serializes the given objects, in order, into a complete pack.
func (s *Store) BuildPack(hashes []Hash) ([]byte, error) {
	var buf bytes.Buffer
	pw, err := NewPackWriter(&buf, uint32(len(hashes)))
	if err != nil {
		return nil, err
	}
	for _, h := range hashes {
		objType, data, err := s.Read(h)
		if err != nil {
			return nil, fmt.Errorf("build pack: %w", err)
		}
		packType, err := PackTypeOf(objType)
		if err != nil {
			return nil, fmt.Errorf("build pack %s: %w", h, err)
		}
		if err := pw.WriteEntry(packType, data); err != nil {
			return nil, fmt.Errorf("build pack %s: %w", h, err)
		}
	}
	if err := pw.Finish(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
