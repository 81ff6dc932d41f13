package docservice

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/enigma/internal/apperr"
	"github.com/starford/enigma/internal/fraction"
	"github.com/starford/enigma/internal/index"
	"github.com/starford/enigma/internal/testutil"
)

func newTestService(t *testing.T, strict bool) (string, *Service) {
	t.Helper()
	dir, store := testutil.TestLibrary(t)
	db := testutil.TestDB(t)
	logger := testutil.QuietLogger()
	ix := index.NewIndexer(db, store, logger, strict)
	return dir, NewService(store, db, ix, strict, logger)
}

func TestCell(t *testing.T) {
	dir, svc := newTestService(t, false)
	testutil.WriteDoc(t, dir, "t.enigmaxml", testutil.TripletDoc)
	ctx := context.Background()

	cell, err := svc.Cell(ctx, CellRequest{Path: "t.enigmaxml", Staff: 1, Measure: 1, Layer: -1})
	if err != nil {
		t.Fatalf("Cell: %v", err)
	}
	if len(cell.Entries) != 5 {
		t.Fatalf("entries = %d, want 5", len(cell.Entries))
	}
	wantElapsed := []fraction.Fraction{
		fraction.Zero,
		fraction.MustNew(1, 12),
		fraction.MustNew(1, 6),
		fraction.MustNew(1, 4),
		fraction.Zero,
	}
	for i, e := range cell.Entries {
		if !e.Elapsed.Equal(wantElapsed[i]) {
			t.Errorf("entry %d elapsed = %v, want %v", i, e.Elapsed, wantElapsed[i])
		}
	}
	if e := cell.Entries[3]; !e.End.Equal(fraction.MustNew(1, 2)) || e.IsNote {
		t.Errorf("rest = %+v", e)
	}
	if e := cell.Entries[4]; e.Layer != 1 || e.Seq != 0 || !e.Actual.Equal(fraction.One) {
		t.Errorf("layer 1 = %+v", e)
	}

	one, err := svc.Cell(ctx, CellRequest{Path: "t.enigmaxml", Staff: 1, Measure: 1, Layer: 1})
	if err != nil {
		t.Fatalf("Cell layer 1: %v", err)
	}
	if len(one.Entries) != 1 || one.Entries[0].Entnum != 10 {
		t.Errorf("layer 1 entries = %+v", one.Entries)
	}
}

func TestCellErrors(t *testing.T) {
	dir, svc := newTestService(t, false)
	testutil.WriteDoc(t, dir, "t.enigmaxml", testutil.TripletDoc)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CellRequest
		want error
	}{
		{"layer out of range", CellRequest{Path: "t.enigmaxml", Staff: 1, Measure: 1, Layer: 4}, apperr.ErrInvalidArgument},
		{"staff above id range", CellRequest{Path: "t.enigmaxml", Staff: 65537, Measure: 1, Layer: -1}, apperr.ErrInvalidArgument},
		{"negative measure", CellRequest{Path: "t.enigmaxml", Staff: 1, Measure: -65535, Layer: -1}, apperr.ErrInvalidArgument},
		{"part above id range", CellRequest{Path: "t.enigmaxml", Part: 1 << 16, Staff: 1, Measure: 1, Layer: -1}, apperr.ErrInvalidArgument},
		{"unknown cell", CellRequest{Path: "t.enigmaxml", Staff: 9, Measure: 1, Layer: -1}, apperr.ErrNotFound},
		{"unknown document", CellRequest{Path: "missing.enigmaxml", Staff: 1, Measure: 1}, apperr.ErrNotFound},
		{"traversal", CellRequest{Path: "../t.enigmaxml", Staff: 1, Measure: 1}, apperr.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Cell(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIndexedCellRejectsWrappedIDs(t *testing.T) {
	dir, svc := newTestService(t, false)
	testutil.WriteDoc(t, dir, "t.enigmaxml", testutil.TripletDoc)
	ctx := context.Background()
	if _, err := svc.IndexFile(ctx, "t.enigmaxml"); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}

	for _, req := range []CellRequest{
		{Path: "t.enigmaxml", Staff: 65537, Measure: 1, Layer: -1},
		{Path: "t.enigmaxml", Staff: 1, Measure: 1 + 1<<16, Layer: -1},
		{Path: "t.enigmaxml", Part: -1, Staff: 1, Measure: 1, Layer: -1},
	} {
		if _, err := svc.IndexedCell(ctx, req); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Errorf("IndexedCell(%+v) err = %v, want invalid argument", req, err)
		}
	}
}

func TestCellStrictViolation(t *testing.T) {
	dir, svc := newTestService(t, true)
	testutil.WriteDoc(t, dir, "b.enigmaxml", testutil.BrokenDoc)

	_, err := svc.Cell(context.Background(), CellRequest{Path: "b.enigmaxml", Staff: 1, Measure: 1, Layer: 0})
	if !errors.Is(err, apperr.ErrIntegrity) {
		t.Fatalf("err = %v, want integrity violation", err)
	}
}

func TestCellLenientViolation(t *testing.T) {
	dir, svc := newTestService(t, false)
	testutil.WriteDoc(t, dir, "b.enigmaxml", testutil.BrokenDoc)

	cell, err := svc.Cell(context.Background(), CellRequest{Path: "b.enigmaxml", Staff: 1, Measure: 1, Layer: 0})
	if err != nil {
		t.Fatalf("Cell: %v", err)
	}
	if len(cell.Entries) != 2 {
		t.Errorf("entries = %d, want the 2 reached before the break", len(cell.Entries))
	}
}

func TestOpenCachesByChecksum(t *testing.T) {
	dir, svc := newTestService(t, false)
	testutil.WriteDoc(t, dir, "t.enigmaxml", testutil.TripletDoc)
	ctx := context.Background()

	first, err := svc.Open(ctx, "t.enigmaxml")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	second, err := svc.Open(ctx, "t.enigmaxml")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if first != second {
		t.Error("unchanged document should come from the cache")
	}

	testutil.WriteDoc(t, dir, "t.enigmaxml", testutil.BrokenDoc)
	third, err := svc.Open(ctx, "t.enigmaxml")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if third == first || third.EntryCount() != 2 {
		t.Errorf("changed document not reloaded: %d entries", third.EntryCount())
	}
}

func TestIndexedQueries(t *testing.T) {
	dir, svc := newTestService(t, false)
	testutil.WriteDoc(t, dir, "t.enigmaxml", testutil.TripletDoc)
	testutil.WriteDoc(t, dir, "b.enigmaxml", testutil.BrokenDoc)
	ctx := context.Background()

	if _, err := svc.IndexFile(ctx, "t.enigmaxml"); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	item, err := svc.IndexFile(ctx, "b.enigmaxml")
	if err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	if item.IssueCount != 1 {
		t.Errorf("issue count = %d, want 1", item.IssueCount)
	}

	docs, err := svc.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 2 || docs[0].Path != "b.enigmaxml" || docs[1].HeaderVersion != "27.4" {
		t.Errorf("documents = %+v", docs)
	}

	issues, err := svc.Issues(ctx, "b.enigmaxml")
	if err != nil {
		t.Fatalf("Issues: %v", err)
	}
	if len(issues) != 1 {
		t.Errorf("issues = %v", issues)
	}
	clean, err := svc.Issues(ctx, "t.enigmaxml")
	if err != nil || clean == nil || len(clean) != 0 {
		t.Errorf("clean issues = %v, %v", clean, err)
	}
	if _, err := svc.Issues(ctx, "nope.enigmaxml"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Issues(unknown) err = %v", err)
	}

	live, err := svc.Cell(ctx, CellRequest{Path: "t.enigmaxml", Staff: 1, Measure: 1, Layer: -1})
	if err != nil {
		t.Fatalf("Cell: %v", err)
	}
	stored, err := svc.IndexedCell(ctx, CellRequest{Path: "t.enigmaxml", Staff: 1, Measure: 1, Layer: -1})
	if err != nil {
		t.Fatalf("IndexedCell: %v", err)
	}
	if len(stored.Entries) != len(live.Entries) {
		t.Fatalf("indexed %d entries, live %d", len(stored.Entries), len(live.Entries))
	}
	for i := range live.Entries {
		s, l := stored.Entries[i], live.Entries[i]
		if s.Entnum != l.Entnum || s.Layer != l.Layer || s.Seq != l.Seq ||
			!s.Elapsed.Equal(l.Elapsed) || !s.Actual.Equal(l.Actual) {
			t.Errorf("entry %d: indexed %+v, live %+v", i, s, l)
		}
	}
}
