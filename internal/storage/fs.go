package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/enigma/internal/apperr"
	"github.com/starford/enigma/internal/checksum"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to library directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute library directory.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the library root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s: %w", rel, apperr.ErrInvalidArgument)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes library root: %s: %w", rel, apperr.ErrInvalidArgument)
	}
	return abs, nil
}

// List walks dir (relative to root) and returns metadata for every document,
// sorted by path.
func (f *FS) List(dir string) ([]DocumentMetadata, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []DocumentMetadata
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !IsDocument(d.Name()) {
			return nil
		}
		meta, err := f.metadata(p)
		if err != nil {
			return err
		}
		out = append(out, meta)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	slices.SortFunc(out, func(a, b DocumentMetadata) int { return strings.Compare(a.Path, b.Path) })
	return out, nil
}

// Read returns the raw bytes of a library file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, wrapNotExist(path, err)
	}
	return data, nil
}

// Stat returns metadata for one document.
func (f *FS) Stat(path string) (DocumentMetadata, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return DocumentMetadata{}, err
	}
	if !IsDocument(abs) {
		return DocumentMetadata{}, fmt.Errorf("storage: %s is not a document: %w", path, apperr.ErrInvalidArgument)
	}
	meta, err := f.metadata(abs)
	if err != nil {
		return DocumentMetadata{}, wrapNotExist(path, err)
	}
	return meta, nil
}

func (f *FS) metadata(abs string) (DocumentMetadata, error) {
	file, err := os.Open(abs)
	if err != nil {
		return DocumentMetadata{}, err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return DocumentMetadata{}, err
	}
	sum, err := checksum.SumReader(file)
	if err != nil {
		return DocumentMetadata{}, err
	}
	rel, _ := filepath.Rel(f.root, abs)
	return DocumentMetadata{
		Path:      filepath.ToSlash(rel),
		Checksum:  sum,
		Size:      info.Size(),
		UpdatedAt: info.ModTime(),
	}, nil
}

func wrapNotExist(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: %s: %w", path, apperr.ErrNotFound)
	}
	return fmt.Errorf("storage: read %s: %w", path, err)
}
