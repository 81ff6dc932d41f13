// Package index provides a SQLite-backed index of document traversals.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	path           TEXT PRIMARY KEY,
	checksum       TEXT NOT NULL DEFAULT '',
	header_version TEXT NOT NULL DEFAULT '',
	entry_count    INTEGER NOT NULL DEFAULT 0,
	updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS entries (
	path        TEXT NOT NULL REFERENCES documents(path) ON DELETE CASCADE,
	part        INTEGER NOT NULL,
	staff       INTEGER NOT NULL,
	measure     INTEGER NOT NULL,
	layer       INTEGER NOT NULL,
	seq         INTEGER NOT NULL,
	entnum      INTEGER NOT NULL,
	is_note     INTEGER NOT NULL DEFAULT 0,
	duration    INTEGER NOT NULL,
	elapsed_num INTEGER NOT NULL,
	elapsed_den INTEGER NOT NULL,
	actual_num  INTEGER NOT NULL,
	actual_den  INTEGER NOT NULL,
	PRIMARY KEY (path, part, staff, measure, layer, seq)
);

CREATE TABLE IF NOT EXISTS issues (
	path    TEXT NOT NULL REFERENCES documents(path) ON DELETE CASCADE,
	seq     INTEGER NOT NULL,
	message TEXT NOT NULL,
	PRIMARY KEY (path, seq)
);

CREATE INDEX IF NOT EXISTS idx_entries_cell ON entries(path, part, staff, measure);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}
