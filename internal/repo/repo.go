// Package repo ties the object store, staging index, HEAD and commit graph
// together into a repository rooted at a working directory.
package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"loki/internal/commit"
	"loki/internal/config"
	"loki/internal/diff"
	"loki/internal/digest"
	"loki/internal/errors"
	"loki/internal/history"
	"loki/internal/index"
	"loki/internal/refs"
	"loki/internal/safe"
	"loki/internal/storage"
	"loki/internal/workspace"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Repository is an open repository. The root is fixed at Open; nothing is
// shared between instances, so several can be open in one process as long
// as they point at different roots.
type Repository struct {
	root   string
	layout layout
	cfg    *config.Config
	db     *badger.DB
	store  *safe.Safe
	index  *index.Index
	head   *refs.Head
	graph  *commit.Graph
	engine *diff.Engine
	logger *zap.Logger
}

// Init creates the repository skeleton under root. Existing files are
// never touched, so running it on an initialized repository is a no-op.
// It reports whether anything was created. A nil cfg means defaults.
func Init(root string, cfg *config.Config) (bool, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return false, err
	}

	l := newLayout(root)
	if info, err := os.Stat(l.dir); err == nil && !info.IsDir() {
		return false, errors.ValidationError(fmt.Sprintf("%s exists and is not a directory", l.dir), nil)
	}

	for _, dir := range []string{l.dir, l.objects(), l.db()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, errors.IO(fmt.Sprintf("creating %s", dir), err)
		}
	}

	emptyIndex, err := index.Encode(nil)
	if err != nil {
		return false, err
	}
	cfgData, err := cfg.Encode()
	if err != nil {
		return false, err
	}

	files := []struct {
		path string
		data []byte
	}{
		{l.head(), nil},
		{l.index(), emptyIndex},
		{l.config(), cfgData},
	}

	created := false
	for _, f := range files {
		ok, err := storage.CreateIfAbsent(f.path, f.data, 0644)
		if err != nil {
			return false, errors.IO(fmt.Sprintf("creating %s", filepath.Base(f.path)), err)
		}
		created = created || ok
	}
	return created, nil
}

// Open opens the repository at root. Callers must Close it.
func Open(root string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path for root %s: %w", root, err)
	}

	l := newLayout(absRoot)
	if info, err := os.Stat(l.dir); err != nil || !info.IsDir() {
		return nil, errors.NotFound(fmt.Sprintf("no repository at %s, run init first", absRoot))
	}

	cfg, err := config.Load(l.config())
	if err != nil {
		return nil, err
	}

	db, err := storage.OpenDB(l.db())
	if err != nil {
		return nil, errors.IO("opening object catalog", err)
	}

	compression := safe.DefaultCompressionOptions()
	compression.Enabled = cfg.Core.Compression

	store, err := safe.New(db, safe.Options{
		Root:        l.objects(),
		Algorithm:   cfg.Core.Hash,
		CacheSize:   cfg.Core.CacheSize,
		Compression: compression,
		Logger:      logger.Named("safe"),
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing object store: %w", err)
	}

	ix := index.New(l.index(), cfg.Core.Hash, logger.Named("index"))
	head := refs.NewHead(l.head(), cfg.Core.Hash)
	graph := commit.NewGraph(store, ix, head, commit.WithLogger(logger.Named("commit")))

	return &Repository{
		root:   absRoot,
		layout: l,
		cfg:    cfg,
		db:     db,
		store:  store,
		index:  ix,
		head:   head,
		graph:  graph,
		engine: diff.NewEngine(cfg.Diff.Context),
		logger: logger,
	}, nil
}

// Close releases the object store and the catalog lock.
func (r *Repository) Close() error {
	r.store.Close()
	if err := r.db.Close(); err != nil {
		return errors.IO("closing object catalog", err)
	}
	return nil
}

func (r *Repository) Root() string {
	return r.root
}

func (r *Repository) Config() *config.Config {
	return r.cfg
}

// Add stores the working file at path and stages it. The path is taken
// relative to the repository root unless absolute.
func (r *Repository) Add(path string) (digest.Digest, error) {
	rel, err := workspace.RelPath(r.root, r.root, path)
	if err != nil {
		return "", err
	}

	content, err := workspace.ReadFile(filepath.Join(r.root, filepath.FromSlash(rel)))
	if err != nil {
		return "", err
	}

	hash, err := r.store.Put(content)
	if err != nil {
		return "", fmt.Errorf("storing %s: %w", rel, err)
	}

	if err := r.index.Record(rel, hash); err != nil {
		return "", fmt.Errorf("staging %s: %w", rel, err)
	}
	return hash, nil
}

// Commit records the staged files as a new commit on top of HEAD.
func (r *Repository) Commit(message string) (digest.Digest, error) {
	return r.graph.Commit(message)
}

// Head returns the current head commit digest, "" before the first commit.
func (r *Repository) Head() (digest.Digest, error) {
	return r.head.Read()
}

// Log walks the history from HEAD, most recent first.
func (r *Repository) Log() (*history.Walker, error) {
	head, err := r.head.Read()
	if err != nil {
		return nil, err
	}
	return history.NewWalker(r.graph, head), nil
}

// Staged returns the staging index in add order.
func (r *Repository) Staged() ([]index.Entry, error) {
	return r.index.Snapshot()
}

// Object is a stored object as shown to the user. Commit is set when the
// object decodes as a commit.
type Object struct {
	Meta    safe.ObjectMeta
	Content []byte
	Commit  *commit.Commit
}

// Show loads the object stored under hash.
func (r *Repository) Show(hash digest.Digest) (*Object, error) {
	if !hash.Valid(r.store.Algorithm()) {
		return nil, errors.ValidationError(fmt.Sprintf("invalid digest %q", hash), nil)
	}

	content, err := r.store.Get(hash)
	if err != nil {
		return nil, err
	}
	meta, err := r.store.Stat(hash)
	if err != nil {
		return nil, err
	}

	obj := &Object{Meta: meta, Content: content}
	switch meta.Kind {
	case safe.KindCommit:
		c, err := commit.Decode(content, r.store.Algorithm())
		if err != nil {
			return nil, err
		}
		obj.Commit = c
	case safe.KindUnknown:
		// Catalog was rebuilt; sniff the content instead
		if c, err := commit.Decode(content, r.store.Algorithm()); err == nil {
			obj.Commit = c
		}
	}
	return obj, nil
}
