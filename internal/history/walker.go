// Package history walks the commit chain from a head back to the root.
package history

import (
	"loki/internal/commit"
	"loki/internal/digest"
)

// Resolver loads a commit by digest.
type Resolver interface {
	Resolve(hash digest.Digest) (*commit.Commit, error)
}

// Entry is a commit together with its address.
type Entry struct {
	Digest digest.Digest
	Commit *commit.Commit
}

// Walker lazily follows parent links, most recent commit first. It is
// single-use: once exhausted or failed it stays that way.
//
// There is no cycle detection. A store whose parent links form a loop
// makes the walk endless; callers that need a guarantee stop on their own
// or use a seen-set (see repo.Verify).
type Walker struct {
	resolver Resolver
	next     digest.Digest
	current  Entry
	err      error
}

// NewWalker starts at head. An empty head yields nothing.
func NewWalker(resolver Resolver, head digest.Digest) *Walker {
	return &Walker{
		resolver: resolver,
		next:     head,
	}
}

// Next advances to the next commit. It returns false when the root has
// been passed or an error occurred; check Err afterwards.
func (w *Walker) Next() bool {
	if w.err != nil || w.next.IsZero() {
		w.current = Entry{}
		return false
	}

	c, err := w.resolver.Resolve(w.next)
	if err != nil {
		w.err = err
		w.current = Entry{}
		return false
	}

	w.current = Entry{Digest: w.next, Commit: c}
	w.next = c.Parent
	return true
}

// Entry returns the commit produced by the last successful Next.
func (w *Walker) Entry() Entry {
	return w.current
}

// Err returns the first error met, typically a dangling parent.
func (w *Walker) Err() error {
	return w.err
}

// Collect drains w.
func Collect(w *Walker) ([]Entry, error) {
	var entries []Entry
	for w.Next() {
		entries = append(entries, w.Entry())
	}
	return entries, w.Err()
}
