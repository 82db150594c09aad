// Package digest computes the content identifiers used as object addresses.
package digest

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"loki/internal/errors"

	"github.com/zeebo/xxh3"
)

// Digest is the lowercase hex encoding of a content hash.
type Digest string

// Algorithm names the hash function a repository was initialized with.
type Algorithm string

const (
	SHA1 Algorithm = "sha1"
	XXH3 Algorithm = "xxh3"

	// DefaultAlgorithm is used when a repository does not choose one.
	DefaultAlgorithm = SHA1
)

// Len returns the hex length of digests produced by the algorithm.
func (a Algorithm) Len() int {
	switch a {
	case SHA1:
		return 2 * sha1.Size
	case XXH3:
		return 32
	default:
		return 0
	}
}

func (a Algorithm) Validate() error {
	if a.Len() == 0 {
		return errors.ValidationError(fmt.Sprintf("unknown hash algorithm %q", string(a)), []Algorithm{SHA1, XXH3})
	}
	return nil
}

// Sum hashes data with the given algorithm.
func Sum(alg Algorithm, data []byte) Digest {
	switch alg {
	case XXH3:
		h := xxh3.Hash128(data).Bytes()
		return Digest(hex.EncodeToString(h[:]))
	default:
		h := sha1.Sum(data)
		return Digest(hex.EncodeToString(h[:]))
	}
}

// Parse validates s as a digest of alg.
func Parse(alg Algorithm, s string) (Digest, error) {
	d := Digest(s)
	if !d.Valid(alg) {
		return "", errors.ValidationError(fmt.Sprintf("invalid %s digest %q", alg, s), nil)
	}
	return d, nil
}

// Valid reports whether d is a well-formed digest for alg.
func (d Digest) Valid(alg Algorithm) bool {
	if len(d) != alg.Len() {
		return false
	}
	for _, c := range d {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// Shard is the fan-out directory name.
func (d Digest) Shard() string {
	return string(d[:2])
}

// Rest is the object filename inside its shard.
func (d Digest) Rest() string {
	return string(d[2:])
}

// Short is an abbreviated form for display.
func (d Digest) Short() string {
	if len(d) <= 8 {
		return string(d)
	}
	return string(d[:8])
}

func (d Digest) String() string {
	return string(d)
}

func (d Digest) IsZero() bool {
	return d == ""
}
