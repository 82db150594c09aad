package repo

import (
	"fmt"

	"loki/internal/commit"
	"loki/internal/diff"
	"loki/internal/errors"
	"loki/internal/index"

	"go.uber.org/zap"
)

// FileDiff is the change of one file between HEAD's parent and HEAD.
type FileDiff struct {
	Path    string
	NewFile bool // absent from the parent; Result holds one Added segment
	Result  *diff.Result

	old []byte
	new []byte
}

// Changed reports whether the file differs from the parent.
func (f FileDiff) Changed() bool {
	return f.NewFile || f.Result.HasChanges()
}

// Report lists file diffs in the order of HEAD's snapshot.
type Report struct {
	Head   commit.Commit
	Parent commit.Commit
	Files  []FileDiff
}

// Changed returns only the files that differ.
func (r *Report) Changed() []FileDiff {
	var changed []FileDiff
	for _, f := range r.Files {
		if f.Changed() {
			changed = append(changed, f)
		}
	}
	return changed
}

// Diff compares HEAD against its parent. It needs at least two commits.
//
// Only files in HEAD's snapshot are reported: a file dropped since the
// parent does not show up. Paths staged more than once are reported once
// per entry, each compared with the parent's first entry for that path.
func (r *Repository) Diff() (*Report, error) {
	headHash, err := r.head.Read()
	if err != nil {
		return nil, err
	}
	if headHash.IsZero() {
		return nil, errors.InsufficientHistory("diff needs two commits, repository has none")
	}

	head, err := r.graph.Resolve(headHash)
	if err != nil {
		return nil, err
	}
	if head.IsRoot() {
		return nil, errors.InsufficientHistory("diff needs two commits, HEAD has no parent")
	}

	parent, err := r.graph.Resolve(head.Parent)
	if err != nil {
		return nil, err
	}

	report := &Report{Head: *head, Parent: *parent}
	for _, entry := range head.Files {
		fd, err := r.diffEntry(entry, parent.Files)
		if err != nil {
			return nil, err
		}
		report.Files = append(report.Files, fd)
	}

	r.logger.Debug("diffed HEAD against parent",
		zap.String("head", headHash.String()),
		zap.String("parent", head.Parent.String()),
		zap.Int("files", len(report.Files)))

	return report, nil
}

func (r *Repository) diffEntry(entry index.Entry, parentFiles []index.Entry) (FileDiff, error) {
	content, err := r.store.Get(entry.Hash)
	if err != nil {
		return FileDiff{}, fmt.Errorf("loading %s: %w", entry.Path, err)
	}

	prev, ok := index.Lookup(parentFiles, entry.Path)
	if !ok {
		return FileDiff{
			Path:    entry.Path,
			NewFile: true,
			Result:  r.engine.Added(content),
			new:     content,
		}, nil
	}

	old, err := r.store.Get(prev.Hash)
	if err != nil {
		return FileDiff{}, fmt.Errorf("loading parent version of %s: %w", entry.Path, err)
	}

	return FileDiff{
		Path:   entry.Path,
		Result: r.engine.Diff(old, content),
		old:    old,
		new:    content,
	}, nil
}

// Unified renders f as a unified patch using the configured context.
func (r *Repository) Unified(f FileDiff) (string, error) {
	var old []byte
	if !f.NewFile {
		old = f.old
		if old == nil {
			old = []byte{}
		}
	}
	return r.engine.Unified(f.Path, old, f.new)
}
