package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/starford/graphlens/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chunks.bolt"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReplaceAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	ts := int64(77)
	order := 2
	err := s.ReplaceChunks(ctx, "a.yaml", []models.Chunk{
		{ID: "c1", Content: "hello", DocID: "d1", Timestamp: &ts},
		{ID: "c2", Content: "world", OrderIndex: &order},
	})
	if err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}

	got, err := s.GetByIDs(ctx, []string{"c1", "c2", "missing"})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected an entry per id, got %v", got)
	}
	if c := got["c1"]; c == nil || c.Content != "hello" || c.Timestamp == nil || *c.Timestamp != 77 || c.OrderIndex != nil {
		t.Errorf("c1 = %+v", c)
	}
	if c := got["c2"]; c == nil || c.OrderIndex == nil || *c.OrderIndex != 2 {
		t.Errorf("c2 = %+v", c)
	}
	if got["missing"] != nil {
		t.Error("missing should be unresolved")
	}
}

func TestReplaceDropsPreviousChunks(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	_ = s.ReplaceChunks(ctx, "a.yaml", []models.Chunk{{ID: "old"}})
	_ = s.ReplaceChunks(ctx, "a.yaml", []models.Chunk{{ID: "new"}})

	got, err := s.GetByIDs(ctx, []string{"old", "new"})
	if err != nil {
		t.Fatal(err)
	}
	if got["old"] != nil || got["new"] == nil {
		t.Errorf("got %v", got)
	}
}

func TestDeleteKeepsOtherDatasets(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	_ = s.ReplaceChunks(ctx, "a.yaml", []models.Chunk{{ID: "shared", Content: "from a"}})
	_ = s.ReplaceChunks(ctx, "b.yaml", []models.Chunk{{ID: "shared", Content: "from b"}, {ID: "only-b"}})

	got, _ := s.GetByIDs(ctx, []string{"shared"})
	if got["shared"].Content != "from a" {
		t.Errorf("first dataset should win, got %q", got["shared"].Content)
	}

	if err := s.DeleteChunks(ctx, "a.yaml"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteChunks(ctx, "never-imported.yaml"); err != nil {
		t.Errorf("deleting an unknown dataset should be a no-op: %v", err)
	}
	got, _ = s.GetByIDs(ctx, []string{"shared", "only-b"})
	if got["shared"] == nil || got["shared"].Content != "from b" || got["only-b"] == nil {
		t.Errorf("got %v", got)
	}
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.bolt")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.ReplaceChunks(context.Background(), "a.yaml", []models.Chunk{{ID: "c1", Content: "kept"}})
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, _ := s.GetByIDs(context.Background(), []string{"c1"})
	if got["c1"] == nil || got["c1"].Content != "kept" {
		t.Errorf("chunk lost after reopen: %v", got)
	}
}
