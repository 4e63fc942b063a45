// Package testutil provides shared test helpers for setting up databases and
// dataset directories.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/graphlens/internal/index"
)

// SampleDataset is a small graph around Alice used across package tests.
const SampleDataset = `
entities:
  - entity_name: Alice
    entity_type: person
    description: Software engineer
    source_id: c1<SEP>c2
    file_path: notes/alice.txt
  - entity_name: Acme Corp
    entity_type: organization
    source_id: c2
  - entity_name: Bob
    entity_type: person
relationships:
  - src_id: Alice
    tgt_id: Acme Corp
    description: Alice works at Acme Corp
    keywords: employment,works_at
    weight: 0.9
    file_path: notes/alice.txt
  - src_id: Bob
    tgt_id: Alice
    description: Bob mentors Alice
    keywords: mentorship
    weight: 0.4
chunks:
  - id: c1
    content: Alice joined the team.
    file_path: notes/alice.txt
    full_doc_id: doc-1
    chunk_order_index: 0
    tokens: 5
    timestamp: 100
  - id: c2
    content: Acme Corp hired Alice.
    file_path: notes/alice.txt
    full_doc_id: doc-1
    chunk_order_index: 1
    tokens: 5
    timestamp: 200
`

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "graphlens-test-*.db")
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

// WriteFile writes content to name under dir, creating parent directories.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
