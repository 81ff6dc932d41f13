package index

// EntryIndex defines the interface for document index operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type EntryIndex interface {
	ReplaceDocument(doc DocumentRow, entries []EntryRow, issues []string) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDocument(path string) (*DocumentRow, error)
	ListDocuments() ([]DocumentRow, error)
	CellEntries(q CellQuery) ([]EntryRow, error)
	Issues(path string) ([]string, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies EntryIndex at compile time.
var _ EntryIndex = (*DB)(nil)
