package repo

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hamza-m-farooqi/pygit/pkg/object"
)

// Default identity when the environment provides none.
const (
	DefaultIdentName = "pygit"
	DefaultIdentMail = "pygit@localhost"
)

// CommitSigner signs the canonical commit payload (the commit object bytes
// without the gpgsig header) and returns the armored signature to embed.
type CommitSigner func(payload []byte) (string, error)

// CommitOptions configures Commit.
type CommitOptions struct {
	Message string
	Amend   bool
	Signer  CommitSigner
}

// currentIdentity builds an identity line from the environment, taking the
// first non-empty variable of nameVars and of emailVars in the order given,
// then falling back to the documented defaults.
func currentIdentity(nameVars, emailVars []string, now time.Time) object.Identity {
	name := ""
	for _, v := range nameVars {
		if name = os.Getenv(v); name != "" {
			break
		}
	}
	if name == "" {
		name = DefaultIdentName
	}
	email := ""
	for _, v := range emailVars {
		if email = os.Getenv(v); email != "" {
			break
		}
	}
	if email == "" {
		email = DefaultIdentMail
	}
	return object.Identity{
		Name:  name,
		Email: email,
		When:  now.Unix(),
		TZ:    formatTZOffset(now),
	}
}

// formatTZOffset renders the local UTC offset as ±HHMM.
func formatTZOffset(t time.Time) string {
	_, offset := t.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("%s%02d%02d", sign, offset/3600, (offset/60)%60)
}

// AuthorIdentity and CommitterIdentity resolve the two identity lines for
// a commit made now.
func AuthorIdentity(now time.Time) object.Identity {
	return currentIdentity(
		[]string{"GIT_AUTHOR_NAME", "GIT_COMMITTER_NAME"},
		[]string{"GIT_AUTHOR_EMAIL", "GIT_COMMITTER_EMAIL"},
		now,
	)
}

func CommitterIdentity(now time.Time) object.Identity {
	return currentIdentity(
		[]string{"GIT_COMMITTER_NAME", "GIT_AUTHOR_NAME"},
		[]string{"GIT_COMMITTER_EMAIL", "GIT_AUTHOR_EMAIL"},
		now,
	)
}

// Commit builds a tree from the index and writes a commit pointing at it.
//
//  1. Write the tree.
//  2. Determine parents: the current HEAD commit, or for --amend the
//     amended commit's parents (its author and, absent -m, its message are
//     reused; the committer is always refreshed).
//  3. Write the commit object, signing when a signer is configured.
//  4. Advance the attached branch, or HEAD itself when detached.
func (r *Repo) Commit(opts CommitOptions) (object.Hash, error) {
	idx, err := r.LoadIndex()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	if idx.Len() == 0 {
		return "", fmt.Errorf("commit: nothing staged: index is empty")
	}

	treeHash, err := r.WriteTree(idx)
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	headHash, headErr := r.ResolveRef("HEAD")
	if headErr != nil && !errors.Is(headErr, ErrRefNotFound) {
		return "", fmt.Errorf("commit: %w", headErr)
	}
	hasHead := headErr == nil

	now := time.Now()
	commit := &object.CommitObj{
		TreeHash:  treeHash,
		Author:    AuthorIdentity(now),
		Committer: CommitterIdentity(now),
		Message:   opts.Message,
	}

	if opts.Amend {
		if !hasHead {
			return "", fmt.Errorf("commit: cannot amend: HEAD does not point to a commit")
		}
		prior, err := r.Store.ReadCommit(headHash)
		if err != nil {
			return "", fmt.Errorf("commit: read amended commit: %w", err)
		}
		commit.Parents = prior.Parents
		commit.Author = prior.Author
		if commit.Message == "" {
			commit.Message = prior.Message
		}
	} else if hasHead {
		commit.Parents = []object.Hash{headHash}
	}

	if strings.TrimSpace(commit.Message) == "" {
		return "", fmt.Errorf("commit: commit message is required (use -m)")
	}

	if opts.Signer != nil {
		sig, err := opts.Signer(object.MarshalCommit(commit))
		if err != nil {
			return "", fmt.Errorf("commit: sign commit: %w", err)
		}
		commit.GPGSig = sig
	}

	commitHash, err := r.Store.WriteCommit(commit)
	if err != nil {
		return "", fmt.Errorf("commit: write commit: %w", err)
	}

	if err := r.UpdateHead(commitHash); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return commitHash, nil
}

// LogEntry pairs a commit with its id for history rendering.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.CommitObj
}

// Log walks history from start following first parents, newest first, up
// to limit commits.
func (r *Repo) Log(start object.Hash, limit int) ([]LogEntry, error) {
	var out []LogEntry
	current := start

	for current != "" && len(out) < limit {
		c, err := r.Store.ReadCommit(current)
		if err != nil {
			if errors.Is(err, object.ErrNotFound) {
				break
			}
			return nil, fmt.Errorf("log: read commit %s: %w", current, err)
		}
		out = append(out, LogEntry{Hash: current, Commit: c})

		if len(c.Parents) == 0 {
			break
		}
		current = c.Parents[0]
	}
	return out, nil
}
