// Package storage defines the documentation-tree file-system abstraction.
package storage

import (
	"io/fs"
	"iter"
)

// Provider is the interface for documentation tree operations. All paths are
// slash-separated and relative to the tree root.
type Provider interface {
	// Root returns the absolute path of the tree root.
	Root() string
	// Discover lazily yields every document under dir, pruning excluded directories.
	Discover(dir string) iter.Seq2[string, error]
	// Read returns the decoded text of the document at path.
	Read(path string) (*File, error)
	// Write atomically replaces the document at path, encoding content with enc.
	Write(path string, content string, enc Encoding) error
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
	// IsDocument reports whether path has an allowed document extension.
	IsDocument(path string) bool
	// Excluded reports whether a directory at path would be pruned.
	Excluded(path string) bool
}

// File is a decoded document.
type File struct {
	Path     string
	Content  string
	Encoding Encoding
	Raw      []byte
}
