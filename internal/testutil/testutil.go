// Package testutil provides shared test helpers for setting up libraries and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/enigma/internal/index"
	"github.com/starford/enigma/internal/storage"
)

// TripletDoc has one cell (staff 1, measure 1). Layer 0 holds a 3:2 eighth
// triplet followed by a quarter rest; layer 1 holds a whole note.
const TripletDoc = `<finale>
  <header><headerData>
    <created><year>2024</year><appVersion><major>27</major><minor>4</minor></appVersion></created>
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

// BrokenDoc has a frame whose chain stops before its end entry.
const BrokenDoc = `<finale>
  <entries>
    <entry entnum="1" next="2"><dura>1024</dura></entry>
    <entry entnum="2" prev="1"><dura>1024</dura></entry>
  </entries>
  <others>
    <frameSpec cmper="1" inci="0"><startEntry>1</startEntry><endEntry>9</endEntry></frameSpec>
  </others>
  <details>
    <gfhold cmper1="1" cmper2="1"><clefID>0</clefID><frame1>1</frame1></gfhold>
  </details>
</finale>`

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "enigma-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibrary creates a temporary library directory with a storage.Provider.
func TestLibrary(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteDoc writes content to rel inside dir, creating parent directories.
func WriteDoc(t *testing.T, dir, rel, content string) {
	t.Helper()
	abs := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// QuietLogger returns a logger that discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
