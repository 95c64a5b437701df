package domain

import (
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

// File is the unit that flows through a pipeline.
type File struct {
	// Base is the directory Path is relative to.
	Base string
	// Path is slash-separated and relative to Base.
	Path     string
	Contents []byte
	Mode     fs.FileMode
}

// AbsPath returns the file's location on disk.
func (f File) AbsPath() string {
	return filepath.Join(f.Base, filepath.FromSlash(f.Path))
}

// Ext returns the extension of Path including the dot.
func (f File) Ext() string {
	return path.Ext(f.Path)
}

// WithPath returns a copy of f moved to p.
func (f File) WithPath(p string) File {
	f.Path = p
	return f
}

// WithContents returns a copy of f holding b.
func (f File) WithContents(b []byte) File {
	f.Contents = b
	return f
}

// WithExt returns a copy of f whose extension is replaced by ext.
func (f File) WithExt(ext string) File {
	f.Path = strings.TrimSuffix(f.Path, path.Ext(f.Path)) + ext
	return f
}
