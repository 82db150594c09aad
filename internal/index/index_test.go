package index

import (
	"os"
	"path/filepath"
	"testing"

	"loki/internal/digest"
	"loki/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupTestIndex(t *testing.T) (*Index, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))
	return New(path, digest.SHA1, zaptest.NewLogger(t)), path
}

func TestIndex_RecordKeepsOrderAndDuplicates(t *testing.T) {
	ix, path := setupTestIndex(t)

	h1 := digest.Sum(digest.SHA1, []byte("one"))
	h2 := digest.Sum(digest.SHA1, []byte("two"))

	require.NoError(t, ix.Record("README", h1))
	require.NoError(t, ix.Record("main.go", h2))
	require.NoError(t, ix.Record("README", h2))

	entries, err := ix.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Path: "README", Hash: h1},
		{Path: "main.go", Hash: h2},
		{Path: "README", Hash: h2},
	}, entries)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"path":"README","hash":"`+h1.String()+`"},
		{"path":"main.go","hash":"`+h2.String()+`"},
		{"path":"README","hash":"`+h2.String()+`"}
	]`, string(data))
}

func TestIndex_RecordValidates(t *testing.T) {
	ix, _ := setupTestIndex(t)

	err := ix.Record("", digest.Sum(digest.SHA1, nil))
	assert.True(t, errors.Is(err, errors.ErrValidation))

	err = ix.Record("a.txt", "deadbeef")
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestIndex_ClearAndRestore(t *testing.T) {
	ix, path := setupTestIndex(t)
	h := digest.Sum(digest.SHA1, []byte("x"))

	require.NoError(t, ix.Record("x", h))
	before, err := ix.Snapshot()
	require.NoError(t, err)

	require.NoError(t, ix.Clear())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	entries, err := ix.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, ix.Restore(before))
	entries, err = ix.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, before, entries)
}

func TestIndex_SnapshotErrors(t *testing.T) {
	dir := t.TempDir()

	missing := New(filepath.Join(dir, "absent"), digest.SHA1, nil)
	_, err := missing.Snapshot()
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	path := filepath.Join(dir, "index")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"a list"}`), 0644))
	_, err = New(path, digest.SHA1, nil).Snapshot()
	assert.True(t, errors.Is(err, errors.ErrCorrupt))
}

func TestDecode(t *testing.T) {
	valid := digest.Sum(digest.SHA1, []byte("v")).String()

	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"empty list", `[]`, 0, false},
		{"null", `null`, 0, false},
		{"one entry", `[{"path":"a","hash":"` + valid + `"}]`, 1, false},
		{"empty file", ``, 0, true},
		{"missing path", `[{"hash":"` + valid + `"}]`, 0, true},
		{"bad hash", `[{"path":"a","hash":"zz"}]`, 0, true},
		{"unknown field", `[{"path":"a","hash":"` + valid + `","mode":1}]`, 0, true},
		{"trailing data", `[] []`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := Decode([]byte(tt.input), digest.SHA1)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrCorrupt), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, entries)
			assert.Len(t, entries, tt.want)
		})
	}
}

func TestEncodeEmpty(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestLookupFirstMatch(t *testing.T) {
	h1 := digest.Sum(digest.SHA1, []byte("1"))
	h2 := digest.Sum(digest.SHA1, []byte("2"))
	entries := []Entry{{Path: "a", Hash: h1}, {Path: "a", Hash: h2}}

	e, ok := Lookup(entries, "a")
	require.True(t, ok)
	assert.Equal(t, h1, e.Hash)

	_, ok = Lookup(entries, "b")
	assert.False(t, ok)
}
