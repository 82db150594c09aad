package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loki/internal/digest"
	"loki/internal/errors"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runLoki(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func setupWorkdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)

	out, err := runLoki(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized empty Loki repository")
	return dir
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestInitTwice(t *testing.T) {
	setupWorkdir(t)

	out, err := runLoki(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Reinitialized existing Loki repository")
}

func TestAddCommitDiffLog(t *testing.T) {
	dir := setupWorkdir(t)

	write(t, dir, "README", "hello")
	out, err := runLoki(t, "add", "README")
	require.NoError(t, err)
	assert.Equal(t, digest.Sum(digest.SHA1, []byte("hello")).String()+"\n", out)

	first, err := runLoki(t, "commit", "first")
	require.NoError(t, err)
	first = strings.TrimSpace(first)
	assert.Len(t, first, 40)

	write(t, dir, "README", "hello world")
	_, err = runLoki(t, "add", "README")
	require.NoError(t, err)

	status, err := runLoki(t, "status")
	require.NoError(t, err)
	assert.Contains(t, status, "Staged for commit:")
	assert.Contains(t, status, "README")

	second, err := runLoki(t, "commit", "second")
	require.NoError(t, err)
	second = strings.TrimSpace(second)

	out, err = runLoki(t, "diff")
	require.NoError(t, err)
	assert.Contains(t, out, "README\n")
	assert.Contains(t, out, "- hello\n")
	assert.Contains(t, out, "+ hello world\n")

	out, err = runLoki(t, "log")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "commit "+second), strings.Index(out, "commit "+first))
	assert.Contains(t, out, "    second\n")
	assert.Contains(t, out, "    first\n")

	out, err = runLoki(t, "diff", "--unified")
	require.NoError(t, err)
	assert.Contains(t, out, "--- a/README")
	assert.Contains(t, out, "+hello world")

	out, err = runLoki(t, "show", first)
	require.NoError(t, err)
	assert.Contains(t, out, "commit "+first)
	assert.Contains(t, out, "README")

	out, err = runLoki(t, "show", digest.Sum(digest.SHA1, []byte("hello")).String())
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	out, err = runLoki(t, "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "ok: 2 commits, 2 blobs, 0 unreachable objects")
}

func TestDiffWithoutChanges(t *testing.T) {
	dir := setupWorkdir(t)
	write(t, dir, "README", "hello")

	_, err := runLoki(t, "add", "README")
	require.NoError(t, err)
	_, err = runLoki(t, "commit", "first")
	require.NoError(t, err)
	_, err = runLoki(t, "commit", "second")
	require.NoError(t, err)

	out, err := runLoki(t, "diff")
	require.NoError(t, err)
	assert.Equal(t, "No changes\n", out)
}

func TestRepoFlagAndDiscovery(t *testing.T) {
	dir := t.TempDir()
	_, err := runLoki(t, "--repo", dir, "init")
	require.NoError(t, err)

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))
	write(t, sub, "note.txt", "n")
	chdir(t, sub)

	_, err = runLoki(t, "add", "note.txt")
	require.NoError(t, err)

	out, err := runLoki(t, "--repo", dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "sub/note.txt")
}

func TestExitCodes(t *testing.T) {
	setupWorkdir(t)

	_, err := runLoki(t, "diff")
	assert.Equal(t, errors.CodeInsufficientHistory, errors.ExitCode(err))

	_, err = runLoki(t, "add", "missing.txt")
	assert.Equal(t, errors.CodeNotFound, errors.ExitCode(err))

	_, err = runLoki(t, "log", "--bogus")
	assert.Equal(t, errors.CodeValidation, errors.ExitCode(err))

	chdir(t, t.TempDir())
	_, err = runLoki(t, "status")
	assert.Equal(t, errors.CodeNotFound, errors.ExitCode(err))
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
