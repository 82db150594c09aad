package repo

import (
	"fmt"

	"loki/internal/digest"
	"loki/internal/errors"
	"loki/internal/history"

	"go.uber.org/zap"
)

// VerifyReport counts what Verify checked.
type VerifyReport struct {
	Commits   int // reachable from HEAD
	Blobs     int // referenced by reachable commits
	Unreached int // cataloged objects not reachable from HEAD
}

// Verify walks the history from HEAD and re-hashes every commit and every
// blob it references, then every remaining cataloged object. A parent
// chain that loops back on itself is reported as corrupt.
func (r *Repository) Verify() (*VerifyReport, error) {
	head, err := r.head.Read()
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{}
	checked := make(map[digest.Digest]bool)
	commits := make(map[digest.Digest]bool)

	check := func(hash digest.Digest) error {
		if checked[hash] {
			return nil
		}
		if err := r.store.Verify(hash); err != nil {
			return err
		}
		checked[hash] = true
		return nil
	}

	w := history.NewWalker(r.graph, head)
	for w.Next() {
		entry := w.Entry()
		if commits[entry.Digest] {
			return report, errors.Corrupt(fmt.Sprintf("parent chain loops back to commit %s", entry.Digest.Short()), nil)
		}
		if err := check(entry.Digest); err != nil {
			return report, fmt.Errorf("commit %s: %w", entry.Digest.Short(), err)
		}
		commits[entry.Digest] = true
		report.Commits++

		for _, f := range entry.Commit.Files {
			seen := checked[f.Hash]
			if err := check(f.Hash); err != nil {
				return report, fmt.Errorf("commit %s, file %s: %w", entry.Digest.Short(), f.Path, err)
			}
			if !seen {
				report.Blobs++
			}
		}
	}
	if err := w.Err(); err != nil {
		return report, err
	}

	catalog, err := r.store.Catalog()
	if err != nil {
		return report, err
	}
	for _, meta := range catalog {
		if checked[meta.Hash] {
			continue
		}
		if err := check(meta.Hash); err != nil {
			return report, fmt.Errorf("object %s: %w", meta.Hash.Short(), err)
		}
		report.Unreached++
	}

	r.logger.Debug("verified repository",
		zap.Int("commits", report.Commits),
		zap.Int("blobs", report.Blobs),
		zap.Int("unreached", report.Unreached))

	return report, nil
}
