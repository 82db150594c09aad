package repo

import (
	"os"
	"path/filepath"
	"testing"

	"loki/internal/errors"
	"loki/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	r := setupTestRepo(t)
	addFile(t, r, "a", "alpha")
	addFile(t, r, "b", "beta")
	mustCommit(t, r, "first")
	addFile(t, r, "a", "alpha")
	mustCommit(t, r, "second")
	addFile(t, r, "loose", "not committed")

	report, err := r.Verify()
	require.NoError(t, err)
	assert.Equal(t, 2, report.Commits)
	assert.Equal(t, 2, report.Blobs)
	assert.Equal(t, 1, report.Unreached)
}

func TestVerifyEmptyRepository(t *testing.T) {
	r := setupTestRepo(t)

	report, err := r.Verify()
	require.NoError(t, err)
	assert.Equal(t, VerifyReport{}, *report)
}

func TestVerifyDetectsTampering(t *testing.T) {
	r := setupTestRepo(t)
	h := addFile(t, r, "a", "alpha")
	mustCommit(t, r, "first")

	path := filepath.Join(r.Root(), workspace.DirName, ObjectsDir, h.Shard(), h.Rest())
	require.NoError(t, os.Chmod(path, 0644))
	require.NoError(t, os.WriteFile(path, []byte("tampered"), 0644))

	_, err := r.Verify()
	assert.True(t, errors.Is(err, errors.ErrCorrupt), "got %v", err)
}

func TestVerifyDetectsMissingBlob(t *testing.T) {
	r := setupTestRepo(t)
	h := addFile(t, r, "a", "alpha")
	mustCommit(t, r, "first")

	require.NoError(t, os.Remove(filepath.Join(r.Root(), workspace.DirName, ObjectsDir, h.Shard(), h.Rest())))

	_, err := r.Verify()
	assert.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)
}
