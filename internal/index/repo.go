package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/enigma/internal/apperr"
	"github.com/starford/enigma/internal/fraction"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path          string
	Checksum      string
	HeaderVersion string
	EntryCount    int
	IssueCount    int
	UpdatedAt     time.Time
}

// EntryRow is one traversed entry of a cell.
type EntryRow struct {
	Part     int
	Staff    int
	Measure  int
	Layer    int
	Seq      int
	Entnum   int32
	IsNote   bool
	Duration int32
	Elapsed  fraction.Fraction
	Actual   fraction.Fraction
}

// CellQuery selects the entries of one (staff, measure) cell. A negative
// Layer selects every layer.
type CellQuery struct {
	Path    string
	Part    int
	Staff   int
	Measure int
	Layer   int
}

// ReplaceDocument stores a document with its entries and issues, replacing
// anything previously indexed for the same path, within a transaction.
func (db *DB) ReplaceDocument(doc DocumentRow, entries []EntryRow, issues []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM entries WHERE path = ?`, doc.Path); err != nil {
		return fmt.Errorf("index: clear entries: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM issues WHERE path = ?`, doc.Path); err != nil {
		return fmt.Errorf("index: clear issues: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO documents (path, checksum, header_version, entry_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum       = excluded.checksum,
			header_version = excluded.header_version,
			entry_count    = excluded.entry_count,
			updated_at     = excluded.updated_at
	`, doc.Path, doc.Checksum, doc.HeaderVersion, doc.EntryCount, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if len(entries) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO entries (path, part, staff, measure, layer, seq, entnum, is_note, duration,
				elapsed_num, elapsed_den, actual_num, actual_den)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare entry insert: %w", err)
		}
		defer stmt.Close()
		for _, e := range entries {
			if _, err := stmt.Exec(doc.Path, e.Part, e.Staff, e.Measure, e.Layer, e.Seq, e.Entnum, e.IsNote, e.Duration,
				e.Elapsed.Num(), e.Elapsed.Den(), e.Actual.Num(), e.Actual.Den()); err != nil {
				return fmt.Errorf("index: insert entry: %w", err)
			}
		}
	}

	for i, msg := range issues {
		if _, err := tx.Exec(`INSERT INTO issues (path, seq, message) VALUES (?, ?, ?)`, doc.Path, i, msg); err != nil {
			return fmt.Errorf("index: insert issue: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document with its entries and issues.
func (db *DB) DeleteDocument(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}
	return nil
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

const documentColumns = `d.path, d.checksum, d.header_version, d.entry_count,
	(SELECT count(*) FROM issues i WHERE i.path = d.path), d.updated_at`

func scanDocument(s interface{ Scan(...any) error }) (DocumentRow, error) {
	var r DocumentRow
	err := s.Scan(&r.Path, &r.Checksum, &r.HeaderVersion, &r.EntryCount, &r.IssueCount, &r.UpdatedAt)
	return r, err
}

// GetDocument returns one indexed document.
func (db *DB) GetDocument(path string) (*DocumentRow, error) {
	r, err := scanDocument(db.conn.QueryRow(`SELECT `+documentColumns+` FROM documents d WHERE d.path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: document %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return &r, nil
}

// ListDocuments returns every indexed document ordered by path.
func (db *DB) ListDocuments() ([]DocumentRow, error) {
	rows, err := db.conn.Query(`SELECT ` + documentColumns + ` FROM documents d ORDER BY d.path`)
	if err != nil {
		return nil, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		r, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CellEntries returns the entries of a cell in (layer, seq) order.
func (db *DB) CellEntries(q CellQuery) ([]EntryRow, error) {
	query := `
		SELECT part, staff, measure, layer, seq, entnum, is_note, duration,
			elapsed_num, elapsed_den, actual_num, actual_den
		FROM entries
		WHERE path = ? AND part = ? AND staff = ? AND measure = ?`
	args := []any{q.Path, q.Part, q.Staff, q.Measure}
	if q.Layer >= 0 {
		query += ` AND layer = ?`
		args = append(args, q.Layer)
	}
	query += ` ORDER BY layer, seq`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: cell entries: %w", err)
	}
	defer rows.Close()

	var out []EntryRow
	for rows.Next() {
		var (
			e                      EntryRow
			eNum, eDen, aNum, aDen int64
		)
		if err := rows.Scan(&e.Part, &e.Staff, &e.Measure, &e.Layer, &e.Seq, &e.Entnum, &e.IsNote, &e.Duration,
			&eNum, &eDen, &aNum, &aDen); err != nil {
			return nil, err
		}
		if e.Elapsed, err = fraction.New(eNum, eDen); err != nil {
			return nil, fmt.Errorf("index: elapsed of entry %d: %w", e.Entnum, err)
		}
		if e.Actual, err = fraction.New(aNum, aDen); err != nil {
			return nil, fmt.Errorf("index: actual of entry %d: %w", e.Entnum, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Issues returns the consistency violations recorded for a document, in the
// order they were found.
func (db *DB) Issues(path string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT message FROM issues WHERE path = ? ORDER BY seq`, path)
	if err != nil {
		return nil, fmt.Errorf("index: issues: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AllChecksums returns path -> checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
