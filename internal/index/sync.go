package index

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/starford/enigma/internal/storage"
)

// Indexer keeps the index in step with a library.
type Indexer struct {
	db      *DB
	store   storage.Provider
	logger  *slog.Logger
	strict  bool
	workers int
}

// NewIndexer returns an indexer. In strict mode the first consistency
// violation of a document ends its analysis.
func NewIndexer(db *DB, store storage.Provider, logger *slog.Logger, strict bool) *Indexer {
	return &Indexer{
		db:      db,
		store:   store,
		logger:  logger,
		strict:  strict,
		workers: runtime.GOMAXPROCS(0),
	}
}

// SyncStats counts the outcome of a Sync.
type SyncStats struct {
	Indexed   []*Analysis
	Removed   []string
	Unchanged int
	Failed    int
}

// IndexFile analyzes one document and stores the result.
func (ix *Indexer) IndexFile(path string) (*Analysis, error) {
	data, err := ix.store.Read(path)
	if err != nil {
		return nil, err
	}
	a, err := Analyze(path, data, ix.strict, ix.logger)
	if err != nil {
		return nil, fmt.Errorf("index: analyze %s: %w", path, err)
	}
	if err := ix.db.ReplaceDocument(a.Document, a.Entries, a.Issues); err != nil {
		return nil, err
	}
	return a, nil
}

// Sync walks the library and brings the index up to date:
//   - new/changed documents are analyzed in parallel and replaced
//   - documents removed from disk are deleted from the index
func (ix *Indexer) Sync(ctx context.Context) (SyncStats, error) {
	var stats SyncStats
	metas, err := ix.store.List("")
	if err != nil {
		return stats, err
	}

	checksums, err := ix.db.AllChecksums()
	if err != nil {
		return stats, err
	}

	disk := make(map[string]struct{}, len(metas))
	var changed []string
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if checksums[m.Path] == m.Checksum {
			stats.Unchanged++
			continue
		}
		changed = append(changed, m.Path)
	}

	results := make([]*Analysis, len(changed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for i, p := range changed {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := ix.store.Read(p)
			if err != nil {
				ix.logger.Warn("sync: read failed", slog.String("path", p), slog.String("error", err.Error()))
				return nil
			}
			a, err := Analyze(p, data, ix.strict, ix.logger)
			if err != nil {
				ix.logger.Warn("sync: analyze failed", slog.String("path", p), slog.String("error", err.Error()))
				return nil
			}
			results[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	// SQLite takes one writer at a time; store sequentially.
	for i, a := range results {
		if a == nil {
			stats.Failed++
			continue
		}
		if err := ix.db.ReplaceDocument(a.Document, a.Entries, a.Issues); err != nil {
			ix.logger.Warn("sync: store failed", slog.String("path", changed[i]), slog.String("error", err.Error()))
			stats.Failed++
			continue
		}
		ix.logger.Debug("sync: indexed", slog.String("path", a.Document.Path),
			slog.Int("entries", len(a.Entries)), slog.Int("issues", len(a.Issues)))
		stats.Indexed = append(stats.Indexed, a)
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := ix.db.DeleteDocument(p); err != nil {
			ix.logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		ix.logger.Debug("sync: removed stale", slog.String("path", p))
		stats.Removed = append(stats.Removed, p)
	}

	return stats, nil
}
