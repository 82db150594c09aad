package repo

import (
	"path/filepath"

	"loki/internal/config"
	"loki/internal/workspace"
)

// Repository layout, relative to the .loki directory.
const (
	ObjectsDir = "objects"
	DBDir      = "db"
	HeadFile   = "HEAD"
	IndexFile  = "index"
)

type layout struct {
	dir string
}

func newLayout(root string) layout {
	return layout{dir: filepath.Join(root, workspace.DirName)}
}

func (l layout) objects() string { return filepath.Join(l.dir, ObjectsDir) }
func (l layout) db() string      { return filepath.Join(l.dir, DBDir) }
func (l layout) head() string    { return filepath.Join(l.dir, HeadFile) }
func (l layout) index() string   { return filepath.Join(l.dir, IndexFile) }
func (l layout) config() string  { return filepath.Join(l.dir, config.FileName) }

// ConfigPath returns the config file of the repository rooted at root.
func ConfigPath(root string) string {
	return newLayout(root).config()
}
