// Package index is the staging area: an ordered list of path to content
// digest pairs waiting for the next commit.
//
// Entries are never deduplicated. Staging the same path twice keeps both
// entries in add order, and readers that search a snapshot take the first
// match (see Lookup).
package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"loki/internal/digest"
	"loki/internal/errors"
	"loki/internal/storage"

	"go.uber.org/zap"
)

// Entry is one staged file.
type Entry struct {
	Path string        `json:"path"`
	Hash digest.Digest `json:"hash"`
}

// Index is the persisted staging sequence stored at a single file.
type Index struct {
	path   string
	alg    digest.Algorithm
	logger *zap.Logger
}

func New(path string, alg digest.Algorithm, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		path:   path,
		alg:    alg,
		logger: logger,
	}
}

// Record appends an entry.
func (ix *Index) Record(path string, hash digest.Digest) error {
	if path == "" {
		return errors.ValidationError("path cannot be empty", nil)
	}
	if !hash.Valid(ix.alg) {
		return errors.ValidationError(fmt.Sprintf("invalid digest %q", hash), nil)
	}

	entries, err := ix.Snapshot()
	if err != nil {
		return err
	}
	entries = append(entries, Entry{Path: path, Hash: hash})

	if err := ix.write(entries); err != nil {
		return err
	}

	ix.logger.Debug("staged file",
		zap.String("path", path),
		zap.String("hash", hash.String()),
		zap.Int("entries", len(entries)))
	return nil
}

// Snapshot returns the staged entries in add order.
func (ix *Index) Snapshot() ([]Entry, error) {
	data, err := os.ReadFile(ix.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("index file missing, run init first")
		}
		return nil, errors.IO("reading index", err)
	}

	entries, err := Decode(data, ix.alg)
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	return entries, nil
}

// Clear resets the staging sequence to empty.
func (ix *Index) Clear() error {
	return ix.write(nil)
}

// Restore replaces the staging sequence with entries, typically a
// snapshot taken earlier.
func (ix *Index) Restore(entries []Entry) error {
	return ix.write(entries)
}

func (ix *Index) write(entries []Entry) error {
	data, err := Encode(entries)
	if err != nil {
		return err
	}
	if err := storage.WriteFileAtomic(ix.path, data, 0644); err != nil {
		return errors.IO("writing index", err)
	}
	return nil
}

// Encode serializes entries as a JSON array. An empty sequence encodes
// as [] rather than null.
func Encode(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("marshaling index: %w", err)
	}
	return data, nil
}

// Decode parses and validates a serialized staging sequence. Anything that
// is not a well-formed list of entries is reported as corrupt.
func Decode(data []byte, alg digest.Algorithm) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var entries []Entry
	if err := dec.Decode(&entries); err != nil {
		return nil, errors.Corrupt("malformed index", err)
	}
	if dec.More() {
		return nil, errors.Corrupt("malformed index: trailing data", nil)
	}

	for i, e := range entries {
		if e.Path == "" {
			return nil, errors.Corrupt(fmt.Sprintf("index entry %d has no path", i), nil)
		}
		if !e.Hash.Valid(alg) {
			return nil, errors.Corrupt(fmt.Sprintf("index entry %d (%s) has invalid hash %q", i, e.Path, e.Hash), nil)
		}
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Lookup returns the first entry for path.
func Lookup(entries []Entry, path string) (Entry, bool) {
	for _, e := range entries {
		if e.Path == path {
			return e, true
		}
	}
	return Entry{}, false
}
