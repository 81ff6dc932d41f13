// Package storage defines the read-only score library abstraction.
package storage

import (
	"strings"
	"time"
)

// Document file suffixes recognised in a library.
var Extensions = []string{".enigmaxml", ".enigmaxml.gz", ".enigmaxml.zst"}

// IsDocument reports whether name carries one of the document suffixes.
func IsDocument(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// DocumentMetadata describes one document file in the library.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for library file access.
type Provider interface {
	// List returns metadata for every document under dir (relative to the library root).
	List(dir string) ([]DocumentMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the library root).
	Read(path string) ([]byte, error)
	// Stat returns metadata for the document at path.
	Stat(path string) (DocumentMetadata, error)
	// Root returns the absolute library directory.
	Root() string
}
