// Package fs provides file system adapters for globbing, walking and hashing files.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
)

// DefaultSkipDirs are directory names never descended into.
var DefaultSkipDirs = []string{".git", ".jj", "node_modules"}

// Walker provides directory walking functionality.
type Walker struct {
	skip map[string]bool
}

// NewWalker creates a new Walker that skips DefaultSkipDirs plus extra.
func NewWalker(extra ...string) *Walker {
	skip := make(map[string]bool, len(DefaultSkipDirs)+len(extra))
	for _, name := range DefaultSkipDirs {
		skip[name] = true
	}
	for _, name := range extra {
		skip[name] = true
	}
	return &Walker{skip: skip}
}

// WalkDirs yields root and every directory below it, pruning skipped names.
// Unreadable directories are skipped silently.
func (w *Walker) WalkDirs(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil //nolint:nilerr // problematic directories are skipped
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && w.Skips(d.Name()) {
				return filepath.SkipDir
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// Skips reports whether a directory with the given base name is pruned.
func (w *Walker) Skips(name string) bool {
	return w.skip[name]
}
