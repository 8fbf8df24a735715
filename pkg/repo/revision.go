package repo

import (
	"errors"
	"fmt"

	"github.com/hamza-m-farooqi/pygit/pkg/object"
)

// ResolveRevision maps a user-supplied revision string to an object hash.
//
// Accepted forms, in order: "HEAD", an explicit "refs/..." path, a branch
// name under refs/heads, a full 40-hex id, and a unique hex prefix of at
// least 4 characters. HEAD on an unborn branch surfaces ErrRefNotFound.
func (r *Repo) ResolveRevision(rev string) (object.Hash, error) {
	if rev == "" {
		return "", fmt.Errorf("resolve revision: empty revision")
	}
	if rev == "HEAD" {
		return r.ResolveRef("HEAD")
	}

	if h, err := r.ResolveRef(rev); err == nil {
		return h, nil
	} else if !errors.Is(err, ErrRefNotFound) {
		return "", err
	}

	h, err := r.Store.ResolvePrefix(rev)
	if err != nil {
		return "", fmt.Errorf("resolve revision %q: %w", rev, err)
	}
	return h, nil
}

// ResolveCommit resolves a revision and verifies it names a commit.
func (r *Repo) ResolveCommit(rev string) (object.Hash, error) {
	h, err := r.ResolveRevision(rev)
	if err != nil {
		return "", err
	}
	objType, _, err := r.Store.Read(h)
	if err != nil {
		return "", err
	}
	if objType != object.TypeCommit {
		return "", fmt.Errorf("revision %q resolves to a %s, not a commit", rev, objType)
	}
	return h, nil
}
