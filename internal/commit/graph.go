package commit

import (
	"fmt"
	"time"

	"loki/internal/digest"
	"loki/internal/errors"
	"loki/internal/index"
	"loki/internal/safe"

	"go.uber.org/zap"
)

// ObjectStore is the part of the object store the graph needs.
type ObjectStore interface {
	Store(kind safe.Kind, content []byte) (digest.Digest, error)
	Get(hash digest.Digest) ([]byte, error)
	Exists(hash digest.Digest) (bool, error)
	Algorithm() digest.Algorithm
}

// HeadRef is the pointer to the latest commit.
type HeadRef interface {
	Read() (digest.Digest, error)
	Write(hash digest.Digest) error
}

// Graph creates commits on top of HEAD and resolves stored ones.
type Graph struct {
	store  ObjectStore
	index  *index.Index
	head   HeadRef
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Graph)

// WithClock overrides the commit timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Graph) {
		g.now = now
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}

func NewGraph(store ObjectStore, ix *index.Index, head HeadRef, opts ...Option) *Graph {
	g := &Graph{
		store:  store,
		index:  ix,
		head:   head,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Commit snapshots the staging index into a new commit whose parent is the
// current HEAD. An empty index still produces a commit.
//
// The commit object is stored durably first, then the index is cleared and
// HEAD is moved last. If moving HEAD fails the staged entries are put back.
// A failure after the object write can leave an unreferenced object behind,
// which is harmless.
func (g *Graph) Commit(message string) (digest.Digest, error) {
	parent, err := g.head.Read()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}

	staged, err := g.index.Snapshot()
	if err != nil {
		return "", fmt.Errorf("reading index: %w", err)
	}

	for _, e := range staged {
		ok, err := g.store.Exists(e.Hash)
		if err != nil {
			return "", fmt.Errorf("checking staged object for %s: %w", e.Path, err)
		}
		if !ok {
			return "", errors.NotFound(fmt.Sprintf("staged object %s for %s is missing", e.Hash, e.Path))
		}
	}

	c := &Commit{
		Parent:  parent,
		Message: message,
		Time:    g.now(),
		Files:   staged,
	}
	data, err := Encode(c)
	if err != nil {
		return "", err
	}

	hash, err := g.store.Store(safe.KindCommit, data)
	if err != nil {
		return "", fmt.Errorf("storing commit: %w", err)
	}

	if err := g.index.Clear(); err != nil {
		return "", fmt.Errorf("clearing index: %w", err)
	}

	if err := g.head.Write(hash); err != nil {
		if restoreErr := g.index.Restore(staged); restoreErr != nil {
			g.logger.Error("restoring index after failed HEAD update",
				zap.String("commit", hash.String()),
				zap.Error(restoreErr))
		}
		return "", fmt.Errorf("updating HEAD: %w", err)
	}

	g.logger.Debug("committed",
		zap.String("commit", hash.String()),
		zap.String("parent", parent.String()),
		zap.Int("files", len(staged)))

	return hash, nil
}

// Resolve loads the commit stored under hash.
func (g *Graph) Resolve(hash digest.Digest) (*Commit, error) {
	if !hash.Valid(g.store.Algorithm()) {
		return nil, errors.ValidationError(fmt.Sprintf("invalid commit digest %q", hash), nil)
	}

	data, err := g.store.Get(hash)
	if err != nil {
		return nil, fmt.Errorf("resolving commit %s: %w", hash.Short(), err)
	}

	c, err := Decode(data, g.store.Algorithm())
	if err != nil {
		return nil, fmt.Errorf("resolving commit %s: %w", hash.Short(), err)
	}
	return c, nil
}
