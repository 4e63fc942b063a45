package query

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/starford/graphlens/internal/apperr"
	"github.com/starford/graphlens/internal/models"
	"github.com/starford/graphlens/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testGraph builds a small graph around Alice:
//
//	Alice -> Acme Corp (0.9, ts 100)
//	Bob   -> Alice     (0.5, ts 200)
//	Alice -> Paris     (0.2, ts 300)
func testGraph(t *testing.T) *storage.Memory {
	t.Helper()
	m := storage.NewMemory()
	m.AddEntity(map[string]any{
		"entity_name": "Alice",
		"entity_type": "person",
		"description": "Engineer",
		"source_id":   "c1<SEP>c2<SEP>c3",
		"file_path":   "a.txt<SEP>b.txt",
	})
	m.AddEntity(map[string]any{"entity_name": "Bob", "entity_type": "person"})
	m.AddEntity(map[string]any{"entity_name": "Acme Corp", "entity_type": "organization"})
	m.AddEntity(map[string]any{"entity_name": "Paris", "entity_type": "location"})

	m.AddRelationship(map[string]any{
		"src_id": "Alice", "tgt_id": "Acme Corp",
		"description": "Alice works at Acme",
		"keywords":    "employment,works_at",
		"weight":      0.9,
		"file_path":   "a.txt",
		"timestamp":   100,
	})
	m.AddRelationship(map[string]any{
		"src_id": "Bob", "tgt_id": "Alice",
		"description": "Bob knows Alice",
		"keywords":    "knows",
		"weight":      0.5,
		"file_path":   "a.txt",
		"timestamp":   200,
	})
	m.AddRelationship(map[string]any{
		"src_id": "Alice", "tgt_id": "Paris",
		"description": "Alice lives in Paris",
		"keywords":    "lives_in",
		"weight":      0.2,
		"file_path":   "b.txt",
		"timestamp":   300,
	})

	m.AddChunk(map[string]any{"id": "c1", "content": "first", "file_path": "a.txt", "full_doc_id": "d1", "chunk_order_index": 0, "tokens": 5, "timestamp": 10})
	m.AddChunk(map[string]any{"id": "c2", "content": "second", "file_path": "a.txt", "full_doc_id": "d1", "chunk_order_index": 1, "tokens": 7, "timestamp": 30})
	m.AddChunk(map[string]any{"id": "c3", "content": "third", "file_path": "b.txt", "full_doc_id": "d2", "chunk_order_index": 0, "tokens": 3, "timestamp": 20})
	return m
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	m := testGraph(t)
	return New(m, m, WithLogger(quietLogger()), WithMaxParallel(2))
}

// failingStore fails every call and counts how often it was reached.
type failingStore struct {
	err   error
	calls atomic.Int32
}

func (f *failingStore) HasNode(context.Context, string) (bool, error) {
	f.calls.Add(1)
	return false, f.err
}

func (f *failingStore) GetNode(context.Context, string) (*models.Entity, error) {
	f.calls.Add(1)
	return nil, f.err
}

func (f *failingStore) GetNodeEdges(context.Context, string) ([]models.EdgeKey, error) {
	f.calls.Add(1)
	return nil, f.err
}

func (f *failingStore) GetEdge(context.Context, string, string) (*models.Relationship, error) {
	f.calls.Add(1)
	return nil, f.err
}

func (f *failingStore) GetAllNodes(context.Context) ([]models.Entity, error) {
	f.calls.Add(1)
	return nil, f.err
}

func (f *failingStore) GetByIDs(context.Context, []string) (map[string]*models.Chunk, error) {
	f.calls.Add(1)
	return nil, f.err
}

func failingEngine() (*Engine, *failingStore) {
	fs := &failingStore{err: errors.New("store offline")}
	return New(fs, fs, WithLogger(quietLogger())), fs
}

func TestGetEntity(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	ent, err := e.GetEntity(ctx, "Alice")
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if ent.Type != "person" || len(ent.SourceIDs) != 3 {
		t.Errorf("unexpected entity: %+v", ent)
	}

	_, err = e.GetEntity(ctx, "Nobody")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetEntityStoreError(t *testing.T) {
	e, _ := failingEngine()
	_, err := e.GetEntity(context.Background(), "Alice")
	if err == nil || errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected store error, got %v", err)
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	two := 2
	tests := []struct {
		name   string
		offset int
		limit  *int
		want   int
	}{
		{"unlimited", 0, nil, 5},
		{"first page", 0, &two, 2},
		{"last partial page", 4, &two, 1},
		{"offset at end", 5, &two, 0},
		{"offset past end", 9, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := paginate(items, tt.offset, tt.limit)
			if got == nil {
				t.Fatal("paginate returned nil slice")
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}
