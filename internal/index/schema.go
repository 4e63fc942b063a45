// Package index provides the SQLite-backed graph and chunk store.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// seq preserves insertion order; ids are not unique because one entity may be
// declared by several datasets.
const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS datasets (
	name        TEXT PRIMARY KEY,
	checksum    TEXT NOT NULL DEFAULT '',
	imported_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS entities (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	dataset     TEXT NOT NULL,
	id          TEXT NOT NULL,
	entity_type TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	source_ids  TEXT NOT NULL DEFAULT '',
	file_paths  TEXT NOT NULL DEFAULT '',
	created_at  INTEGER,
	attrs       TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS relationships (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	dataset     TEXT NOT NULL,
	source      TEXT NOT NULL,
	target      TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	keywords    TEXT NOT NULL DEFAULT '',
	weight      REAL,
	file_paths  TEXT NOT NULL DEFAULT '',
	timestamp   INTEGER,
	attrs       TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS chunks (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	dataset     TEXT NOT NULL,
	id          TEXT NOT NULL,
	content     TEXT NOT NULL DEFAULT '',
	file_path   TEXT NOT NULL DEFAULT '',
	doc_id      TEXT NOT NULL DEFAULT '',
	order_index INTEGER,
	tokens      INTEGER,
	timestamp   INTEGER
);

CREATE INDEX IF NOT EXISTS idx_entities_id      ON entities(id);
CREATE INDEX IF NOT EXISTS idx_entities_dataset ON entities(dataset);
CREATE INDEX IF NOT EXISTS idx_rel_source       ON relationships(source);
CREATE INDEX IF NOT EXISTS idx_rel_target       ON relationships(target);
CREATE INDEX IF NOT EXISTS idx_rel_dataset      ON relationships(dataset);
CREATE INDEX IF NOT EXISTS idx_chunks_id        ON chunks(id);
CREATE INDEX IF NOT EXISTS idx_chunks_dataset   ON chunks(dataset);
`

// DB wraps a sql.DB with graph-specific operations.
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
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Ping checks that the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
