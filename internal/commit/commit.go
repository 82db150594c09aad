// Package commit builds, stores and resolves commit records.
package commit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"loki/internal/digest"
	"loki/internal/errors"
	"loki/internal/index"
)

// TimeLayout is ISO-8601 in UTC with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Commit is an immutable snapshot record. Files is a private copy of the
// staging sequence at commit time.
type Commit struct {
	Parent  digest.Digest
	Message string
	Time    time.Time
	Files   []index.Entry
}

// IsRoot reports whether the commit starts the history.
func (c *Commit) IsRoot() bool {
	return c.Parent.IsZero()
}

// record is the stored shape. Field order is part of the format: it fixes
// the bytes and therefore the digest. Files holds the serialized index as
// a string, not a nested array.
type record struct {
	Parent  string `json:"parent"`
	Message string `json:"message"`
	Time    string `json:"time"`
	Files   string `json:"files"`
}

// Encode serializes c deterministically.
func Encode(c *Commit) ([]byte, error) {
	files, err := index.Encode(c.Files)
	if err != nil {
		return nil, err
	}

	rec := record{
		Parent:  c.Parent.String(),
		Message: c.Message,
		Time:    c.Time.UTC().Format(TimeLayout),
		Files:   string(files),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("marshaling commit: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// Decode parses and validates a stored commit. Any deviation from the
// expected shape is reported as corrupt.
func Decode(data []byte, alg digest.Algorithm) (*Commit, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var rec record
	if err := dec.Decode(&rec); err != nil {
		return nil, errors.Corrupt("malformed commit", err)
	}
	if dec.More() {
		return nil, errors.Corrupt("malformed commit: trailing data", nil)
	}

	parent := digest.Digest(rec.Parent)
	if !parent.IsZero() && !parent.Valid(alg) {
		return nil, errors.Corrupt(fmt.Sprintf("commit has invalid parent %q", rec.Parent), nil)
	}

	ts, err := time.Parse(time.RFC3339Nano, rec.Time)
	if err != nil {
		return nil, errors.Corrupt("commit has invalid time", err)
	}

	files, err := index.Decode([]byte(rec.Files), alg)
	if err != nil {
		return nil, errors.Corrupt("commit has invalid file list", err)
	}

	return &Commit{
		Parent:  parent,
		Message: rec.Message,
		Time:    ts.UTC(),
		Files:   files,
	}, nil
}
