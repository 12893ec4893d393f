package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/starford/ansuz/internal/apperr"
)

// Default discovery settings.
var (
	DefaultExtensions = []string{".md", ".markdown"}
	DefaultExclude    = []string{".git", "node_modules", "dist", "build", ".next", "output", "vendor"}
)

const tmpPrefix = ".ansuz-tmp-"

// FS implements Provider backed by the local file system.
type FS struct {
	root       string // absolute path to the tree root
	extensions []string
	exclude    []string
}

// FSOption configures an FS.
type FSOption func(*FS)

// WithExtensions sets the document extension allow-list (".md" form).
func WithExtensions(exts ...string) FSOption {
	return func(f *FS) {
		f.extensions = f.extensions[:0]
		for _, e := range exts {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			f.extensions = append(f.extensions, e)
		}
	}
}

// WithExclude sets the directory exclusion patterns. A pattern is matched
// against both the directory name and its root-relative slash path.
func WithExclude(patterns ...string) FSOption {
	return func(f *FS) {
		f.exclude = append([]string(nil), patterns...)
	}
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string, opts ...FSOption) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w: %w", apperr.ErrDirectoryMissing, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	f := &FS{
		root:       abs,
		extensions: append([]string(nil), DefaultExtensions...),
		exclude:    append([]string(nil), DefaultExclude...),
	}
	for _, opt := range opts {
		opt(f)
	}
	for _, p := range f.exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("storage: invalid exclude pattern %q", p)
		}
	}
	return f, nil
}

// Root returns the absolute tree root.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the tree root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" || rel == "." {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes tree root: %s", rel)
	}
	return abs, nil
}

// IsDocument reports whether path carries an allowed extension.
func (f *FS) IsDocument(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range f.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Excluded reports whether the directory at rel (slash path) matches an
// exclusion pattern by name or by path.
func (f *FS) Excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	name := pathBase(rel)
	for _, p := range f.exclude {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func pathBase(rel string) string {
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		return rel[i+1:]
	}
	return rel
}

// Discover walks dir (relative to root) and yields the relative path of every
// document. Excluded directories are skipped without being entered. A
// directory that cannot be read yields an error and the walk continues. The
// sequence re-walks the tree each time it is ranged over.
func (f *FS) Discover(dir string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		base, err := f.safePath(dir)
		if err != nil {
			yield("", err)
			return
		}
		stopped := false
		walkErr := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
			rel, relErr := filepath.Rel(f.root, p)
			if relErr != nil {
				return relErr
			}
			rel = filepath.ToSlash(rel)
			if err != nil {
				if !yield(rel, fmt.Errorf("storage: walk %s: %w", rel, err)) {
					stopped = true
					return fs.SkipAll
				}
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if p != base && f.Excluded(rel) {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !f.IsDocument(d.Name()) || strings.HasPrefix(d.Name(), tmpPrefix) {
				return nil
			}
			if !yield(rel, nil) {
				stopped = true
				return fs.SkipAll
			}
			return nil
		})
		if walkErr != nil && !stopped {
			yield("", fmt.Errorf("storage: discover: %w", walkErr))
		}
	}
}

// Stat returns file info for a tree path.
func (f *FS) Stat(path string) (fs.FileInfo, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	return os.Stat(abs)
}

// Read returns the decoded text of a document.
func (f *FS) Read(path string) (*File, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w: %w", path, apperr.ErrFileUnreadable, err)
	}
	text, enc, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w: %w", path, apperr.ErrFileUnreadable, err)
	}
	return &File{Path: path, Content: text, Encoding: enc, Raw: raw}, nil
}

// Write atomically writes content: tmp file → fsync → rename. The file keeps
// its existing permission bits.
func (f *FS) Write(path string, content string, enc Encoding) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	data, err := Encode(content, enc)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w: %w", path, apperr.ErrFileUnwritable, err)
	}
	mode := fs.FileMode(0o644)
	if info, statErr := os.Stat(abs); statErr == nil {
		mode = info.Mode().Perm()
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return fmt.Errorf("storage: stat %s: %w: %w", path, apperr.ErrFileUnwritable, statErr)
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w: %w", apperr.ErrFileUnwritable, err)
	}

	tmp, err := os.CreateTemp(dir, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w: %w", apperr.ErrFileUnwritable, err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("storage: write temp: %w: %w", apperr.ErrFileUnwritable, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return fmt.Errorf("storage: chmod temp: %w: %w", apperr.ErrFileUnwritable, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w: %w", apperr.ErrFileUnwritable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w: %w", apperr.ErrFileUnwritable, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w: %w", apperr.ErrFileUnwritable, err)
	}
	success = true
	return nil
}
