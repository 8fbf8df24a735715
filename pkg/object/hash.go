package object

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// HashObject computes the SHA-1 of the envelope "type len\0content",
// which is Git's object identity.
func HashObject(objType ObjectType, data []byte) Hash {
	header := fmt.Sprintf("%s %d\x00", objType, len(data))
	h := sha1.New()
	h.Write([]byte(header))
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// Raw decodes the hex hash into its 20 raw bytes.
func (h Hash) Raw() ([]byte, error) {
	if len(h) != 40 {
		return nil, fmt.Errorf("hash %q: length %d, expected 40", h, len(h))
	}
	raw, err := hex.DecodeString(string(h))
	if err != nil {
		return nil, fmt.Errorf("hash %q: %w", h, err)
	}
	return raw, nil
}

// HashFromRaw encodes 20 raw digest bytes as a hex Hash.
func HashFromRaw(raw []byte) (Hash, error) {
	if len(raw) != 20 {
		return "", fmt.Errorf("raw hash: length %d, expected 20", len(raw))
	}
	return Hash(hex.EncodeToString(raw)), nil
}

// ValidHash reports whether s is a full 40-char hex id (upper- or
// lowercase digits are both accepted).
func ValidHash(s string) bool {
	if len(s) != 40 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
