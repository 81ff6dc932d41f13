// Package docservice coordinates the library, the loader and the entry index.
package docservice

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/enigma/internal/apperr"
	"github.com/starford/enigma/internal/dom"
	"github.com/starford/enigma/internal/enigmaxml"
	"github.com/starford/enigma/internal/fraction"
	"github.com/starford/enigma/internal/index"
	"github.com/starford/enigma/internal/integrity"
	"github.com/starford/enigma/internal/storage"
)

// DocumentItem is one indexed document in a listing.
type DocumentItem struct {
	Path          string    `json:"path"`
	Checksum      string    `json:"checksum"`
	HeaderVersion string    `json:"header_version,omitempty"`
	EntryCount    int       `json:"entry_count"`
	IssueCount    int       `json:"issue_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CellEntry is one entry of a cell traversal.
type CellEntry struct {
	Layer    int               `json:"layer"`
	Seq      int               `json:"seq"`
	Entnum   int32             `json:"entnum"`
	IsNote   bool              `json:"is_note"`
	Duration int32             `json:"duration"`
	Elapsed  fraction.Fraction `json:"elapsed"`
	Actual   fraction.Fraction `json:"actual"`
	End      fraction.Fraction `json:"end"`
}

// CellRequest addresses one (staff, measure) cell. A negative Layer selects
// every layer.
type CellRequest struct {
	Path    string
	Part    int
	Staff   int
	Measure int
	Layer   int
}

// ids checks the request and returns its part, staff and measure ids.
func (r CellRequest) ids() (part, staff, measure dom.Cmper, err error) {
	if r.Layer >= dom.MaxLayers {
		return 0, 0, 0, fmt.Errorf("docservice: invalid layer index [%d]: %w", r.Layer, apperr.ErrInvalidArgument)
	}
	if part, err = dom.ToCmper("part", r.Part); err != nil {
		return 0, 0, 0, err
	}
	if staff, err = dom.ToCmper("staff", r.Staff); err != nil {
		return 0, 0, 0, err
	}
	if measure, err = dom.ToCmper("measure", r.Measure); err != nil {
		return 0, 0, 0, err
	}
	return part, staff, measure, nil
}

// Cell is the traversal of one cell.
type Cell struct {
	Path    string      `json:"path"`
	Part    int         `json:"part"`
	Staff   int         `json:"staff"`
	Measure int         `json:"measure"`
	Entries []CellEntry `json:"entries"`
}

type cached struct {
	checksum string
	doc      *dom.Document
}

// Service serves documents from a library, keeping loaded documents cached
// until their content changes.
type Service struct {
	store   storage.Provider
	db      index.EntryIndex
	indexer *index.Indexer
	strict  bool
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]cached
}

// NewService creates a document service. In strict mode a consistency
// violation fails the load or traversal that found it.
func NewService(store storage.Provider, db index.EntryIndex, indexer *index.Indexer, strict bool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		db:      db,
		indexer: indexer,
		strict:  strict,
		logger:  logger,
		cache:   make(map[string]cached),
	}
}

// Open returns the loaded document at path. The parsed document is reused
// while the file checksum is unchanged.
func (s *Service) Open(_ context.Context, path string) (*dom.Document, error) {
	meta, err := s.store.Stat(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	c, ok := s.cache[path]
	s.mu.Unlock()
	if ok && c.checksum == meta.Checksum {
		return c.doc, nil
	}

	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	chk := &integrity.Checker{
		Strict: s.strict,
		Sink:   integrity.LogSink{Logger: s.logger.With(slog.String("path", path))},
	}
	doc, err := enigmaxml.Load(bytes.NewReader(data), dom.WithChecker(chk))
	if err != nil {
		return nil, fmt.Errorf("docservice: load %s: %w", path, err)
	}

	s.mu.Lock()
	s.cache[path] = cached{checksum: meta.Checksum, doc: doc}
	s.mu.Unlock()
	return doc, nil
}

// Forget drops path from the document cache.
func (s *Service) Forget(path string) {
	s.mu.Lock()
	delete(s.cache, path)
	s.mu.Unlock()
}

// Cell traverses one cell of a document. Layers of the cell are visited in
// order and Seq restarts at 0 for each. A cell without a frame holder is
// reported as not found; a layer outside the frame holder is an invalid
// argument.
func (s *Service) Cell(ctx context.Context, req CellRequest) (*Cell, error) {
	part, staff, measure, err := req.ids()
	if err != nil {
		return nil, err
	}
	doc, err := s.Open(ctx, req.Path)
	if err != nil {
		return nil, err
	}
	hold := doc.FrameHold(part, staff, measure)
	if hold == nil {
		return nil, fmt.Errorf("docservice: no frame holder for staff %d measure %d: %w", req.Staff, req.Measure, apperr.ErrNotFound)
	}

	cell := &Cell{
		Path:    req.Path,
		Part:    req.Part,
		Staff:   req.Staff,
		Measure: req.Measure,
		Entries: []CellEntry{},
	}
	seq := 0
	last := dom.LayerIndex(0)
	collect := func(info *dom.EntryInfo) bool {
		if info.Layer != last {
			last = info.Layer
			seq = 0
		}
		cell.Entries = append(cell.Entries, CellEntry{
			Layer:    int(info.Layer),
			Seq:      seq,
			Entnum:   int32(info.Entry.Number()),
			IsNote:   info.Entry.IsNote,
			Duration: int32(info.Entry.Duration),
			Elapsed:  info.Elapsed,
			Actual:   info.Actual,
			End:      info.End(),
		})
		seq++
		return true
	}

	if req.Layer < 0 {
		_, err = hold.IterateEntries(collect)
	} else {
		_, err = hold.IterateLayer(dom.LayerIndex(req.Layer), collect)
	}
	if err != nil {
		return nil, fmt.Errorf("docservice: traverse %s: %w", req.Path, err)
	}
	return cell, nil
}

// IndexedCell returns a cell as stored by the last index pass.
func (s *Service) IndexedCell(_ context.Context, req CellRequest) (*Cell, error) {
	if _, _, _, err := req.ids(); err != nil {
		return nil, err
	}
	if _, err := s.db.GetDocument(req.Path); err != nil {
		return nil, err
	}
	rows, err := s.db.CellEntries(index.CellQuery{
		Path:    req.Path,
		Part:    req.Part,
		Staff:   req.Staff,
		Measure: req.Measure,
		Layer:   req.Layer,
	})
	if err != nil {
		return nil, err
	}
	cell := &Cell{
		Path:    req.Path,
		Part:    req.Part,
		Staff:   req.Staff,
		Measure: req.Measure,
		Entries: make([]CellEntry, len(rows)),
	}
	for i, r := range rows {
		cell.Entries[i] = CellEntry{
			Layer:    r.Layer,
			Seq:      r.Seq,
			Entnum:   r.Entnum,
			IsNote:   r.IsNote,
			Duration: r.Duration,
			Elapsed:  r.Elapsed,
			Actual:   r.Actual,
			End:      r.Elapsed.Add(r.Actual),
		}
	}
	return cell, nil
}

// IndexFile re-indexes one document and drops it from the cache.
func (s *Service) IndexFile(_ context.Context, path string) (*DocumentItem, error) {
	if s.indexer == nil {
		return nil, fmt.Errorf("docservice: no indexer: %w", apperr.ErrUnsupported)
	}
	s.Forget(path)
	a, err := s.indexer.IndexFile(path)
	if err != nil {
		return nil, err
	}
	item := toItem(a.Document)
	item.IssueCount = len(a.Issues)
	return &item, nil
}

// ListDocuments returns every indexed document ordered by path.
func (s *Service) ListDocuments(_ context.Context) ([]DocumentItem, error) {
	rows, err := s.db.ListDocuments()
	if err != nil {
		return nil, err
	}
	items := make([]DocumentItem, len(rows))
	for i, r := range rows {
		items[i] = toItem(r)
	}
	return items, nil
}

// Issues returns the consistency violations recorded for an indexed
// document.
func (s *Service) Issues(_ context.Context, path string) ([]string, error) {
	if _, err := s.db.GetDocument(path); err != nil {
		return nil, err
	}
	issues, err := s.db.Issues(path)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(issues), nil
}

// HandleChange keeps the cache in step with index changes. Its signature
// matches index.EventCallback.
func (s *Service) HandleChange(c index.Change) {
	s.logger.Debug("docservice: cache invalidated", slog.String("path", c.Path), slog.String("event", c.Kind))
	s.Forget(c.Path)
}

func toItem(r index.DocumentRow) DocumentItem {
	return DocumentItem{
		Path:          r.Path,
		Checksum:      r.Checksum,
		HeaderVersion: r.HeaderVersion,
		EntryCount:    r.EntryCount,
		IssueCount:    r.IssueCount,
		UpdatedAt:     r.UpdatedAt,
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
