// internal/safe/safe.go
package safe

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"loki/internal/digest"
	"loki/internal/errors"
	"loki/internal/storage"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Kind records what an object holds. It is catalog metadata only and
// plays no part in addressing.
type Kind string

const (
	KindBlob    Kind = "blob"
	KindCommit  Kind = "commit"
	KindUnknown Kind = "unknown"
)

// ObjectMeta stores metadata about a stored object
type ObjectMeta struct {
	Hash       digest.Digest `json:"hash"`
	Kind       Kind          `json:"kind"`
	Size       int64         `json:"size"`
	StoredSize int64         `json:"stored_size"`
	Compressed bool          `json:"compressed"`
	CreatedAt  time.Time     `json:"created_at"`
}

func (m *ObjectMeta) GetID() string {
	return string(m.Hash)
}

// Safe is the content-addressed object store. Object bytes live under
// root/<shard>/<rest>; the badger catalog only describes them.
type Safe struct {
	root   string
	alg    digest.Algorithm
	meta   *storage.BadgerStore
	cache  *lru.Cache[digest.Digest, []byte]
	comp   *compressionManager
	logger *zap.Logger
}

// Options configures Safe behavior
type Options struct {
	Root        string           // Object directory
	Algorithm   digest.Algorithm // Digest used for addressing
	CacheSize   int              // Number of objects to cache
	Compression CompressionOptions
	Logger      *zap.Logger
}

// New creates a new Safe instance
func New(db *badger.DB, opts Options) (*Safe, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	if opts.Algorithm == "" {
		opts.Algorithm = digest.DefaultAlgorithm
	}
	if err := opts.Algorithm.Validate(); err != nil {
		return nil, err
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if err := os.MkdirAll(opts.Root, 0755); err != nil {
		return nil, errors.IO("creating object directory", err)
	}

	cache, err := lru.New[digest.Digest, []byte](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	comp, err := newCompressionManager(opts.Compression)
	if err != nil {
		return nil, err
	}

	return &Safe{
		root:   opts.Root,
		alg:    opts.Algorithm,
		meta:   storage.NewBadgerStore(db, "object"),
		cache:  cache,
		comp:   comp,
		logger: opts.Logger,
	}, nil
}

// Algorithm returns the digest algorithm objects are addressed by.
func (s *Safe) Algorithm() digest.Algorithm {
	return s.alg
}

// Put stores a blob. See Store.
func (s *Safe) Put(content []byte) (digest.Digest, error) {
	return s.Store(KindBlob, content)
}

// Store saves content and returns its digest. Writing content that is
// already present leaves the existing object untouched.
func (s *Safe) Store(kind Kind, content []byte) (digest.Digest, error) {
	if content == nil {
		content = []byte{}
	}

	hash := digest.Sum(s.alg, content)
	objectPath := s.objectPath(hash)

	if _, err := os.Stat(objectPath); err == nil {
		if err := s.ensureMeta(hash, kind); err != nil {
			return "", err
		}
		s.logger.Debug("object already stored", zap.String("hash", hash.String()))
		return hash, nil
	} else if !os.IsNotExist(err) {
		return "", errors.IO("checking object", err)
	}

	if err := os.MkdirAll(filepath.Dir(objectPath), 0755); err != nil {
		return "", errors.IO("creating object directory", err)
	}

	stored, compressed, err := s.comp.compress(content)
	if err != nil {
		return "", fmt.Errorf("compressing object %s: %w", hash, err)
	}

	if err := storage.WriteFileAtomic(objectPath, stored, 0644); err != nil {
		return "", errors.IO(fmt.Sprintf("writing object %s", hash), err)
	}

	meta := ObjectMeta{
		Hash:       hash,
		Kind:       kind,
		Size:       int64(len(content)),
		StoredSize: int64(len(stored)),
		Compressed: compressed,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.meta.Put(&meta); err != nil {
		os.Remove(objectPath)
		return "", fmt.Errorf("storing metadata: %w", err)
	}

	s.cache.Add(hash, bytes.Clone(content))
	s.logger.Debug("object stored",
		zap.String("hash", hash.String()),
		zap.String("kind", string(kind)),
		zap.Int64("size", meta.Size),
		zap.Bool("compressed", compressed))

	return hash, nil
}

// Get retrieves content by digest
func (s *Safe) Get(hash digest.Digest) ([]byte, error) {
	if !hash.Valid(s.alg) {
		return nil, errors.ValidationError(fmt.Sprintf("invalid digest %q", hash), nil)
	}

	// Cached bytes are never handed out or taken in directly
	if content, ok := s.cache.Get(hash); ok {
		return bytes.Clone(content), nil
	}

	content, err := s.readObject(hash)
	if err != nil {
		return nil, err
	}

	s.cache.Add(hash, bytes.Clone(content))
	return content, nil
}

// Exists checks if an object is stored under hash
func (s *Safe) Exists(hash digest.Digest) (bool, error) {
	if !hash.Valid(s.alg) {
		return false, errors.ValidationError(fmt.Sprintf("invalid digest %q", hash), nil)
	}

	if s.cache.Contains(hash) {
		return true, nil
	}

	_, err := os.Stat(s.objectPath(hash))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.IO("checking object", err)
}

// Stat returns catalog metadata for hash. An object present on disk but
// missing from the catalog gets its entry rebuilt.
func (s *Safe) Stat(hash digest.Digest) (ObjectMeta, error) {
	var meta ObjectMeta
	err := s.meta.Get(hash.String(), &meta)
	if err == nil {
		return meta, nil
	}

	exists, existsErr := s.Exists(hash)
	if existsErr != nil {
		return ObjectMeta{}, existsErr
	}
	if !exists {
		return ObjectMeta{}, errors.NotFound(fmt.Sprintf("object %s not found", hash))
	}

	if err := s.ensureMeta(hash, KindUnknown); err != nil {
		return ObjectMeta{}, err
	}
	if err := s.meta.Get(hash.String(), &meta); err != nil {
		return ObjectMeta{}, fmt.Errorf("getting metadata: %w", err)
	}
	return meta, nil
}

// Verify re-reads the object from disk, bypassing the cache, and checks
// that it still hashes to its address.
func (s *Safe) Verify(hash digest.Digest) error {
	if !hash.Valid(s.alg) {
		return errors.ValidationError(fmt.Sprintf("invalid digest %q", hash), nil)
	}
	_, err := s.readObject(hash)
	return err
}

// Catalog lists the metadata of every cataloged object, ordered by digest.
func (s *Safe) Catalog() ([]ObjectMeta, error) {
	var metas []ObjectMeta
	if err := s.meta.List(&metas); err != nil {
		return nil, err
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].Hash < metas[j].Hash
	})
	return metas, nil
}

// Close releases compression resources. The badger database is owned by
// the caller and stays open.
func (s *Safe) Close() {
	s.comp.close()
}

// Internal helper functions

func (s *Safe) objectPath(hash digest.Digest) string {
	return filepath.Join(s.root, hash.Shard(), hash.Rest())
}

func (s *Safe) readObject(hash digest.Digest) ([]byte, error) {
	raw, err := os.ReadFile(s.objectPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(fmt.Sprintf("object %s not found", hash))
		}
		return nil, errors.IO(fmt.Sprintf("reading object %s", hash), err)
	}

	// Raw bytes first: a stored blob may itself be zstd data.
	got := digest.Sum(s.alg, raw)
	if got == hash {
		return raw, nil
	}
	if !isZstd(raw) {
		return nil, errors.Corrupt(fmt.Sprintf("object %s hashes to %s", hash, got), nil)
	}

	content, err := s.comp.decompress(raw)
	if err != nil {
		return nil, errors.Corrupt(fmt.Sprintf("decompressing object %s", hash), err)
	}
	if got := digest.Sum(s.alg, content); got != hash {
		return nil, errors.Corrupt(fmt.Sprintf("object %s hashes to %s", hash, got), nil)
	}
	return content, nil
}

// ensureMeta adds a catalog entry for an object written before the
// catalog knew about it. Existing entries are upgraded from KindUnknown
// when a caller knows better.
func (s *Safe) ensureMeta(hash digest.Digest, kind Kind) error {
	var meta ObjectMeta
	err := s.meta.Get(hash.String(), &meta)
	if err == nil {
		if meta.Kind == KindUnknown && kind != KindUnknown {
			meta.Kind = kind
			return s.meta.Put(&meta)
		}
		return nil
	}

	if !errors.Is(err, errors.ErrNotFound) {
		return err
	}

	path := s.objectPath(hash)
	info, err := os.Stat(path)
	if err != nil {
		return errors.IO("checking object", err)
	}
	content, err := s.readObject(hash)
	if err != nil {
		return err
	}

	meta = ObjectMeta{
		Hash:       hash,
		Kind:       kind,
		Size:       int64(len(content)),
		StoredSize: info.Size(),
		// Compression is only kept when it shrinks the object
		Compressed: int64(len(content)) != info.Size(),
		CreatedAt:  info.ModTime().UTC(),
	}
	if err := s.meta.Put(&meta); err != nil {
		return fmt.Errorf("storing metadata: %w", err)
	}
	return nil
}
