// Package workspace locates the repository and reads files from the
// working tree around it.
package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"loki/internal/errors"

	"golang.org/x/exp/mmap"
)

// DirName is the repository directory inside a working tree.
const DirName = ".loki"

// mmapThreshold is the size from which working files are read through a
// memory map instead of a buffered read.
const mmapThreshold = 4 << 20

// FindRoot searches startDir and its parents for the ".loki" directory and
// returns the working tree root containing it.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if info, err := os.Stat(filepath.Join(dir, DirName)); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.NotFound(fmt.Sprintf("not a loki repository (or any parent up to /): %s", startDir))
}

// RelPath converts path, absolute or relative to cwd, into the slash
// separated path recorded in the index. Paths outside root are rejected.
func RelPath(root, cwd, path string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(cwd, path)
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", errors.ValidationError(fmt.Sprintf("resolving %s: %v", path, err), nil)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.ValidationError(fmt.Sprintf("%s is outside the repository", path), nil)
	}

	rel = filepath.ToSlash(rel)
	if rel == DirName || strings.HasPrefix(rel, DirName+"/") {
		return "", errors.ValidationError(fmt.Sprintf("%s is inside the repository directory", path), nil)
	}
	return rel, nil
}

// ReadFile returns the content of a working tree file. Large files are
// read through mmap.
func ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(fmt.Sprintf("file %s does not exist", path))
		}
		return nil, errors.IO(fmt.Sprintf("stat %s", path), err)
	}
	if info.IsDir() {
		return nil, errors.ValidationError(fmt.Sprintf("%s is a directory", path), nil)
	}

	if info.Size() < mmapThreshold {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.IO(fmt.Sprintf("reading %s", path), err)
		}
		return data, nil
	}

	reader, err := mmap.Open(path)
	if err != nil {
		return nil, errors.IO(fmt.Sprintf("mapping %s", path), err)
	}
	defer reader.Close()

	data := make([]byte, reader.Len())
	if _, err := reader.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, errors.IO(fmt.Sprintf("reading %s", path), err)
	}
	return data, nil
}
