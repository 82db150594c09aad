// Package refs persists the HEAD pointer.
package refs

import (
	"bytes"
	"fmt"
	"os"

	"loki/internal/digest"
	"loki/internal/errors"
	"loki/internal/storage"
)

// Head is the file holding the digest of the latest commit. An empty file
// means no commits yet.
type Head struct {
	path string
	alg  digest.Algorithm
}

func NewHead(path string, alg digest.Algorithm) *Head {
	return &Head{path: path, alg: alg}
}

// Read returns the current head digest, or "" for an empty repository.
func (h *Head) Read() (digest.Digest, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NotFound("HEAD missing, run init first")
		}
		return "", errors.IO("reading HEAD", err)
	}

	// Tolerate a trailing newline from hand edits
	d := digest.Digest(bytes.TrimSpace(data))
	if d.IsZero() {
		return "", nil
	}
	if !d.Valid(h.alg) {
		return "", errors.Corrupt(fmt.Sprintf("HEAD holds invalid digest %q", d), nil)
	}
	return d, nil
}

// Write points HEAD at d.
func (h *Head) Write(d digest.Digest) error {
	if !d.IsZero() && !d.Valid(h.alg) {
		return errors.ValidationError(fmt.Sprintf("invalid digest %q", d), nil)
	}
	if err := storage.WriteFileAtomic(h.path, []byte(d), 0644); err != nil {
		return errors.IO("writing HEAD", err)
	}
	return nil
}
