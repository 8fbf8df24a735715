package object

import (
	"fmt"
	"sort"
	"strings"
)

// ReachableSet returns all object hashes reachable from roots by following
// object references. Roots missing from the store are ignored, which lets
// callers pass remote-advertised ids they may not hold locally.
func (s *Store) ReachableSet(roots []Hash) (map[Hash]struct{}, error) {
	roots = uniqueNormalizedHashes(roots)
	out := make(map[Hash]struct{}, len(roots))
	if len(roots) == 0 {
		return out, nil
	}

	stack := make([]Hash, 0, len(roots))
	stack = append(stack, roots...)
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if h == "" || h == ZeroHash {
			continue
		}
		if _, ok := out[h]; ok {
			continue
		}
		if !s.Has(h) {
			continue
		}
		out[h] = struct{}{}

		objType, data, err := s.Read(h)
		if err != nil {
			return nil, fmt.Errorf("reachable set read %s: %w", h, err)
		}
		refs, err := referencedHashes(objType, data)
		if err != nil {
			return nil, fmt.Errorf("reachable set parse %s (%s): %w", h, objType, err)
		}
		stack = append(stack, refs...)
	}

	return out, nil
}

// MissingFrom returns the hashes reachable from want but not from have, in
// a deterministic order with commits before trees before blobs. This is the
// object set a push must transfer.
func (s *Store) MissingFrom(want, have []Hash) ([]Hash, error) {
	wantSet, err := s.ReachableSet(want)
	if err != nil {
		return nil, err
	}
	haveSet, err := s.ReachableSet(have)
	if err != nil {
		return nil, err
	}

	missing := make([]Hash, 0, len(wantSet))
	for h := range wantSet {
		if _, ok := haveSet[h]; !ok {
			missing = append(missing, h)
		}
	}

	rank := func(h Hash) int {
		objType, _, err := s.Read(h)
		if err != nil {
			return 5
		}
		packType, err := PackTypeOf(objType)
		if err != nil {
			return 5
		}
		return int(packType)
	}
	sort.Slice(missing, func(i, j int) bool {
		ri, rj := rank(missing[i]), rank(missing[j])
		if ri != rj {
			return ri < rj
		}
		return missing[i] < missing[j]
	})
	return missing, nil
}

func referencedHashes(objType ObjectType, data []byte) ([]Hash, error) {
	switch objType {
	case TypeBlob:
		return nil, nil
	case TypeTag:
		tag, err := UnmarshalTag(data)
		if err != nil {
			return nil, err
		}
		return []Hash{tag.TargetHash}, nil
	case TypeCommit:
		commit, err := UnmarshalCommit(data)
		if err != nil {
			return nil, err
		}
		refs := make([]Hash, 0, 1+len(commit.Parents))
		refs = append(refs, commit.TreeHash)
		refs = append(refs, commit.Parents...)
		return refs, nil
	case TypeTree:
		tree, err := UnmarshalTree(data)
		if err != nil {
			return nil, err
		}
		refs := make([]Hash, 0, len(tree.Entries))
		for _, e := range tree.Entries {
			refs = append(refs, e.Hash)
		}
		return refs, nil
	}
	return nil, fmt.Errorf("unknown object type %q", objType)
}

func uniqueNormalizedHashes(hashes []Hash) []Hash {
	seen := make(map[Hash]struct{}, len(hashes))
	out := make([]Hash, 0, len(hashes))
	for _, h := range hashes {
		n := Hash(strings.ToLower(strings.TrimSpace(string(h))))
		if n == "" || n == ZeroHash {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
