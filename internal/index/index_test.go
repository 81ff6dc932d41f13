package index

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/enigma/internal/apperr"
	"github.com/starford/enigma/internal/fraction"
	"github.com/starford/enigma/internal/storage"
)

const tripletDoc = `<finale>
  <header><headerData>
    <wordOrder>lo-endian</wordOrder>
    <created><year>2024</year><appVersion><major>27</major><minor>4</minor></appVersion></created>
    <modified><year>2025</year><appVersion><major>27</major><minor>5</minor><maint>0</maint></appVersion></modified>
  </headerData></header>
  <entries>
    <entry entnum="1" next="2"><dura>512</dura><isNote/></entry>
    <entry entnum="2" prev="1" next="3"><dura>512</dura><isNote/></entry>
    <entry entnum="3" prev="2" next="4"><dura>512</dura><isNote/></entry>
    <entry entnum="4" prev="3"><dura>1024</dura></entry>
    <entry entnum="10"><dura>4096</dura><isNote/></entry>
  </entries>
  <others>
    <frameSpec cmper="1" inci="0"><startEntry>1</startEntry><endEntry>4</endEntry></frameSpec>
    <frameSpec cmper="2" inci="0"><startEntry>10</startEntry><endEntry>10</endEntry></frameSpec>
  </others>
  <details>
    <gfhold cmper1="1" cmper2="1"><clefID>0</clefID><frame1>1</frame1><frame2>2</frame2></gfhold>
    <tupletDef entnum="1" inci="0"><symbolicNum>3</symbolicNum><symbolicDur>512</symbolicDur><refNum>2</refNum><refDur>512</refDur></tupletDef>
  </details>
</finale>`

// brokenDoc has a cell whose chain ends before the frame's end entry and a
// frame holder without a clef.
const brokenDoc = `<finale>
  <entries>
    <entry entnum="1" next="2"><dura>1024</dura></entry>
    <entry entnum="2" prev="1"><dura>1024</dura></entry>
  </entries>
  <others>
    <frameSpec cmper="1" inci="0"><startEntry>1</startEntry><endEntry>9</endEntry></frameSpec>
  </others>
  <details>
    <gfhold cmper1="1" cmper2="1"><clefID>0</clefID><frame1>1</frame1></gfhold>
    <gfhold cmper1="2" cmper2="1"><frame1>1</frame1></gfhold>
  </details>
</finale>`

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "enigma-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testLibrary(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

func writeDoc(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"documents", "entries", "issues"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestReplaceAndQuery(t *testing.T) {
	db := testDB(t)
	doc := DocumentRow{Path: "a.enigmaxml", Checksum: "abc", HeaderVersion: "27.4", EntryCount: 2, UpdatedAt: time.Now()}
	entries := []EntryRow{
		{Staff: 1, Measure: 1, Layer: 0, Seq: 0, Entnum: 1, IsNote: true, Duration: 1024, Elapsed: fraction.Zero, Actual: fraction.MustNew(1, 6)},
		{Staff: 1, Measure: 1, Layer: 0, Seq: 1, Entnum: 2, Duration: 1024, Elapsed: fraction.MustNew(1, 6), Actual: fraction.MustNew(1, 4)},
		{Staff: 1, Measure: 1, Layer: 1, Seq: 0, Entnum: 5, Duration: 4096, Elapsed: fraction.Zero, Actual: fraction.One},
	}
	if err := db.ReplaceDocument(doc, entries, []string{"first", "second"}); err != nil {
		t.Fatalf("ReplaceDocument: %v", err)
	}

	cs, err := db.GetChecksum("a.enigmaxml")
	if err != nil || cs != "abc" {
		t.Errorf("checksum = %q, %v", cs, err)
	}

	got, err := db.CellEntries(CellQuery{Path: "a.enigmaxml", Staff: 1, Measure: 1, Layer: -1})
	if err != nil {
		t.Fatalf("CellEntries: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if !got[1].Elapsed.Equal(fraction.MustNew(1, 6)) || !got[0].IsNote || got[1].IsNote {
		t.Errorf("row 1 = %+v", got[1])
	}

	layer1, err := db.CellEntries(CellQuery{Path: "a.enigmaxml", Staff: 1, Measure: 1, Layer: 1})
	if err != nil || len(layer1) != 1 || layer1[0].Entnum != 5 {
		t.Errorf("layer 1 = %+v, %v", layer1, err)
	}

	issues, err := db.Issues("a.enigmaxml")
	if err != nil || len(issues) != 2 || issues[0] != "first" {
		t.Errorf("issues = %v, %v", issues, err)
	}

	row, err := db.GetDocument("a.enigmaxml")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if row.IssueCount != 2 || row.EntryCount != 2 || row.HeaderVersion != "27.4" {
		t.Errorf("document = %+v", row)
	}

	// Replacing drops the old rows.
	if err := db.ReplaceDocument(doc, entries[:1], nil); err != nil {
		t.Fatalf("ReplaceDocument: %v", err)
	}
	got, _ = db.CellEntries(CellQuery{Path: "a.enigmaxml", Staff: 1, Measure: 1, Layer: -1})
	if len(got) != 1 {
		t.Errorf("after replace len = %d, want 1", len(got))
	}
	if issues, _ := db.Issues("a.enigmaxml"); len(issues) != 0 {
		t.Errorf("issues after replace = %v", issues)
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	doc := DocumentRow{Path: "del.enigmaxml", Checksum: "x", UpdatedAt: time.Now()}
	_ = db.ReplaceDocument(doc, []EntryRow{{Staff: 1, Measure: 1, Elapsed: fraction.Zero, Actual: fraction.One}}, []string{"oops"})

	if err := db.DeleteDocument("del.enigmaxml"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	cs, _ := db.GetChecksum("del.enigmaxml")
	if cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
	got, _ := db.CellEntries(CellQuery{Path: "del.enigmaxml", Staff: 1, Measure: 1, Layer: -1})
	if len(got) != 0 {
		t.Errorf("entries survived delete: %d", len(got))
	}
	if _, err := db.GetDocument("del.enigmaxml"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetDocument err = %v", err)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.enigmaxml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestAnalyze(t *testing.T) {
	a, err := Analyze("t.enigmaxml", []byte(tripletDoc), false, quietLogger())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Document.HeaderVersion != "27.5.0" || a.Document.EntryCount != 5 {
		t.Errorf("document = %+v", a.Document)
	}
	if len(a.Issues) != 0 {
		t.Errorf("issues = %v", a.Issues)
	}
	if len(a.Entries) != 5 {
		t.Fatalf("entries = %d, want 5", len(a.Entries))
	}
	if !a.Entries[0].Actual.Equal(fraction.MustNew(1, 12)) {
		t.Errorf("triplet actual = %v", a.Entries[0].Actual)
	}
	if last := a.Entries[3]; last.Seq != 3 || !last.Elapsed.Equal(fraction.MustNew(1, 4)) {
		t.Errorf("entry 4 = %+v", last)
	}
	if l1 := a.Entries[4]; l1.Layer != 1 || l1.Seq != 0 || !l1.Actual.Equal(fraction.One) {
		t.Errorf("layer 1 entry = %+v", l1)
	}
}

func TestAnalyzeIssues(t *testing.T) {
	lenient, err := Analyze("b.enigmaxml", []byte(brokenDoc), false, quietLogger())
	if err != nil {
		t.Fatalf("Analyze lenient: %v", err)
	}
	// Missing clef, chain end in both cells.
	if len(lenient.Issues) != 3 {
		t.Errorf("lenient issues = %v", lenient.Issues)
	}
	if len(lenient.Entries) != 4 {
		t.Errorf("lenient entries = %d, want 4", len(lenient.Entries))
	}

	strict, err := Analyze("b.enigmaxml", []byte(brokenDoc), true, quietLogger())
	if err != nil {
		t.Fatalf("Analyze strict: %v", err)
	}
	if len(strict.Issues) != 1 || len(strict.Entries) != 0 {
		t.Errorf("strict = %d issues %v, %d entries", len(strict.Issues), strict.Issues, len(strict.Entries))
	}

	if _, err := Analyze("bad.enigmaxml", []byte("<finale><entries>"), false, quietLogger()); err == nil {
		t.Error("malformed XML should fail")
	}
}

func TestSync(t *testing.T) {
	db := testDB(t)
	dir, store := testLibrary(t)
	writeDoc(t, dir, "a.enigmaxml", tripletDoc)
	writeDoc(t, dir, "sub/b.enigmaxml", brokenDoc)
	writeDoc(t, dir, "bad.enigmaxml", "<finale>")
	writeDoc(t, dir, "notes.txt", "ignored")

	ix := NewIndexer(db, store, quietLogger(), false)
	stats, err := ix.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(stats.Indexed) != 2 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}

	docs, err := db.ListDocuments()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[0].Path != "a.enigmaxml" || docs[1].Path != "sub/b.enigmaxml" {
		t.Fatalf("documents = %+v", docs)
	}
	if docs[1].IssueCount != 3 {
		t.Errorf("broken doc issue count = %d", docs[1].IssueCount)
	}

	// Second pass: nothing changed.
	stats, err = ix.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(stats.Indexed) != 0 || stats.Unchanged != 2 {
		t.Errorf("second sync = %+v", stats)
	}

	// Remove a file: stale row goes away.
	if err := os.Remove(filepath.Join(dir, "a.enigmaxml")); err != nil {
		t.Fatal(err)
	}
	stats, err = ix.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(stats.Removed) != 1 || stats.Removed[0] != "a.enigmaxml" {
		t.Errorf("removed = %v", stats.Removed)
	}
}

func TestIndexFile(t *testing.T) {
	db := testDB(t)
	dir, store := testLibrary(t)
	writeDoc(t, dir, "one.enigmaxml", tripletDoc)
	ix := NewIndexer(db, store, quietLogger(), true)

	a, err := ix.IndexFile("one.enigmaxml")
	if err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	if len(a.Entries) != 5 {
		t.Errorf("entries = %d", len(a.Entries))
	}
	rows, err := db.CellEntries(CellQuery{Path: "one.enigmaxml", Staff: 1, Measure: 1, Layer: 0})
	if err != nil || len(rows) != 4 {
		t.Errorf("cell rows = %d, %v", len(rows), err)
	}
	if _, err := ix.IndexFile("missing.enigmaxml"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
}
