package dataset

import (
	"strings"
	"testing"

	"github.com/starford/graphlens/internal/testutil"
)

func TestParseYAML(t *testing.T) {
	f, err := Parse([]byte(testutil.SampleDataset))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.Entities) != 3 || len(f.Relationships) != 2 || len(f.Chunks) != 2 {
		t.Fatalf("counts: %d/%d/%d", len(f.Entities), len(f.Relationships), len(f.Chunks))
	}
	alice := f.Entities[0]
	if alice.ID != "Alice" || len(alice.SourceIDs) != 2 || alice.FilePaths[0] != "notes/alice.txt" {
		t.Errorf("alice = %+v", alice)
	}
	if r := f.Relationships[0]; r.WeightOr(0) != 0.9 || r.Keywords != "employment,works_at" {
		t.Errorf("relationship = %+v", r)
	}
	c := f.Chunks[1]
	if c.DocID != "doc-1" || c.OrderIndex == nil || *c.OrderIndex != 1 || c.Timestamp == nil || *c.Timestamp != 200 {
		t.Errorf("chunk = %+v", c)
	}
}

func TestParseJSON(t *testing.T) {
	data := "{\n" +
		"\t\"entities\": [{\"id\": \"X\", \"source_ids\": [\"a\", \"b\"], \"custom\": \"kept\"}],\n" +
		"\t\"relationships\": [{\"source\": \"X\", \"target\": \"Y\", \"keywords\": [\"k1\", \"k2\"], \"weight\": 0.5}],\n" +
		"\t\"chunks\": [{\"chunk_id\": \"a\", \"doc_id\": \"d\", \"tokens\": 12}]\n" +
		"}"
	f, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if e := f.Entities[0]; len(e.SourceIDs) != 2 || e.Attributes["custom"] != "kept" {
		t.Errorf("entity = %+v", e)
	}
	if r := f.Relationships[0]; r.Source != "X" || r.Keywords != "k1,k2" || r.WeightOr(0) != 0.5 {
		t.Errorf("relationship = %+v", r)
	}
	if c := f.Chunks[0]; c.ID != "a" || c.DocID != "d" || c.Tokens == nil || *c.Tokens != 12 {
		t.Errorf("chunk = %+v", c)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad syntax", "entities: [", "decode"},
		{"entity without id", "entities:\n  - entity_type: person\n", "entity #1"},
		{"edge without target", "relationships:\n  - src_id: A\n", "relationship #1"},
		{"chunk without id", "chunks:\n  - content: x\n", "chunk #1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	f, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("empty file: %v", err)
	}
	if len(f.Entities) != 0 || f.Entities == nil {
		t.Errorf("entities = %v", f.Entities)
	}
}

func TestSupported(t *testing.T) {
	tests := map[string]bool{
		"a.yaml":       true,
		"dir/b.YML":    true,
		"c.json":       true,
		"notes.md":     false,
		".hidden.yaml": false,
	}
	for name, want := range tests {
		if got := Supported(name); got != want {
			t.Errorf("Supported(%q) = %v, want %v", name, got, want)
		}
	}
}
