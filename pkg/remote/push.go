package remote

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/hamza-m-farooqi/pygit/pkg/object"
)

// PushResult reports the outcome of pushing one branch.
type PushResult struct {
	Ref      string
	Old      object.Hash
	New      object.Hash
	UpToDate bool // remote already at New; nothing sent
	Objects  int  // objects transferred in the pack
}

// PushBranch updates refs/heads/<branch> on the remote to newHash using
// the smart-HTTP receive-pack protocol.
//
//  1. Fetch the refs advertisement to learn the remote's old id (40 zeros
//     when the branch is unborn there).
//  2. Collect objects reachable from the new id but not the old one and
//     pack them (non-delta entries only).
//  3. POST the pkt-line update command plus the pack, then parse the
//     remote's report-status; any failure surfaces as a protocol error.
//
// Local refs are never mutated, so a failed push leaves no trace.
func (c *Client) PushBranch(store *object.Store, branch string, newHash object.Hash) (*PushResult, error) {
	refName := "refs/heads/" + branch

	refs, err := c.AdvertisedRefs()
	if err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}

	old, ok := refs[refName]
	if !ok {
		old = object.ZeroHash
	}
	result := &PushResult{Ref: refName, Old: old, New: newHash}
	if old == newHash {
		result.UpToDate = true
		return result, nil
	}

	// Objects the remote is missing. An old id we do not hold locally is
	// skipped by the reachability walk, which degrades to a full pack.
	missing, err := store.MissingFrom([]object.Hash{newHash}, []object.Hash{old})
	if err != nil {
		return nil, fmt.Errorf("push: collect objects: %w", err)
	}
	pack, err := store.BuildPack(missing)
	if err != nil {
		return nil, fmt.Errorf("push: build pack: %w", err)
	}
	result.Objects = len(missing)

	var body bytes.Buffer
	if err := WritePacketf(&body, "%s %s %s\x00report-status\n", old, newHash, refName); err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}
	if err := WriteFlush(&body); err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}
	body.Write(pack)

	br, closeBody, err := c.sendReceivePack(body.Bytes())
	if err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}
	defer closeBody()

	if err := parseReportStatus(br, refName); err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}
	return result, nil
}

// parseReportStatus validates the remote's unpack line and the per-ref
// status for the pushed ref.
func parseReportStatus(br *bufio.Reader, refName string) error {
	sawUnpack := false
	sawRef := false
	for {
		payload, flush, err := ReadPacket(br)
		if err == io.EOF || flush {
			break
		}
		if err != nil {
			return err
		}
		line := strings.TrimSuffix(string(payload), "\n")
		switch {
		case strings.HasPrefix(line, "unpack "):
			sawUnpack = true
			if line != "unpack ok" {
				return fmt.Errorf("%w: remote failed to unpack: %s", ErrProtocol, strings.TrimPrefix(line, "unpack "))
			}
		case strings.HasPrefix(line, "ok "):
			if strings.TrimPrefix(line, "ok ") == refName {
				sawRef = true
			}
		case strings.HasPrefix(line, "ng "):
			rest := strings.TrimPrefix(line, "ng ")
			name, reason, _ := strings.Cut(rest, " ")
			return fmt.Errorf("%w: remote rejected %s: %s", ErrProtocol, name, reason)
		default:
			return fmt.Errorf("%w: unexpected report-status line %q", ErrProtocol, line)
		}
	}
	if !sawUnpack {
		return fmt.Errorf("%w: remote sent no unpack status", ErrProtocol)
	}
	if !sawRef {
		return fmt.Errorf("%w: remote sent no status for %s", ErrProtocol, refName)
	}
	return nil
}
