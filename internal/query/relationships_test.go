package query

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/graphlens/internal/apperr"
	"github.com/starford/graphlens/internal/models"
	"github.com/starford/graphlens/internal/storage"
)

func neighbors(rels []models.Relationship, self string) []string {
	out := make([]string, 0, len(rels))
	for _, r := range rels {
		if r.Source == self {
			out = append(out, r.Target)
		} else {
			out = append(out, r.Source)
		}
	}
	return out
}

func assertNames(t *testing.T, label string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s = %v, want %v", label, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s = %v, want %v", label, got, want)
		}
	}
}

func TestRelationshipsDefault(t *testing.T) {
	e := testEngine(t)
	res, err := e.Relationships(context.Background(), "Alice", DefaultRelationshipFilter())
	if err != nil {
		t.Fatalf("Relationships: %v", err)
	}
	assertNames(t, "outgoing", neighbors(res.Outgoing, "Alice"), []string{"Acme Corp", "Paris"})
	assertNames(t, "incoming", neighbors(res.Incoming, "Alice"), []string{"Bob"})
	if res.TotalCount != 3 {
		t.Errorf("total_count = %d, want 3", res.TotalCount)
	}
	for _, r := range res.Outgoing {
		if r.Direction != "outgoing" || r.Source != "Alice" {
			t.Errorf("bad outgoing edge: %+v", r)
		}
	}
	if in := res.Incoming[0]; in.Direction != "incoming" || in.Target != "Alice" {
		t.Errorf("bad incoming edge: %+v", in)
	}
}

func TestRelationshipsDirection(t *testing.T) {
	e := testEngine(t)
	f := DefaultRelationshipFilter()
	f.Direction = DirectionIncoming
	res, err := e.Relationships(context.Background(), "Alice", f)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Outgoing) != 0 || len(res.Incoming) != 1 {
		t.Errorf("incoming-only: got %d in / %d out", len(res.Incoming), len(res.Outgoing))
	}
}

func TestRelationshipsWeightBounds(t *testing.T) {
	e := testEngine(t)
	f := DefaultRelationshipFilter()
	f.MinWeight, f.MaxWeight = 0.5, 0.9
	res, err := e.Relationships(context.Background(), "Alice", f)
	if err != nil {
		t.Fatal(err)
	}
	// Both bounds are inclusive.
	assertNames(t, "outgoing", neighbors(res.Outgoing, "Alice"), []string{"Acme Corp"})
	assertNames(t, "incoming", neighbors(res.Incoming, "Alice"), []string{"Bob"})
}

func TestRelationshipsMissingWeightCountsAsOne(t *testing.T) {
	m := storage.NewMemory()
	m.AddEntity(map[string]any{"entity_name": "A"})
	m.AddEntity(map[string]any{"entity_name": "B"})
	m.AddRelationship(map[string]any{"src_id": "A", "tgt_id": "B", "keywords": "x"})
	e := New(m, m, WithLogger(quietLogger()))

	res, err := e.Relationships(context.Background(), "A", DefaultRelationshipFilter())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Outgoing) != 1 {
		t.Fatalf("expected weightless edge within [0,1], got %d", len(res.Outgoing))
	}

	f := DefaultRelationshipFilter()
	f.MaxWeight = 0.99
	res, err = e.Relationships(context.Background(), "A", f)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Outgoing) != 0 {
		t.Errorf("weightless edge should be excluded below 1.0, got %d", len(res.Outgoing))
	}
}

func TestRelationshipsTextFilters(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		mod  func(*RelationshipFilter)
		want int
	}{
		{"relation type substring", func(f *RelationshipFilter) { f.RelationTypes = []string{"WORKS"} }, 1},
		{"relation type ignores description", func(f *RelationshipFilter) { f.RelationTypes = []string{"alice"} }, 0},
		{"keyword in description", func(f *RelationshipFilter) { f.Keywords = []string{"PARIS"} }, 1},
		{"keyword in keywords", func(f *RelationshipFilter) { f.Keywords = []string{"knows", "employment"} }, 2},
		{"file path intersection", func(f *RelationshipFilter) { f.FilePaths = []string{"b.txt", "zzz"} }, 1},
		{"related entity type", func(f *RelationshipFilter) { f.RelatedEntityTypes = []string{"LOCATION"} }, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewRelationshipFilter(tt.mod)
			if err != nil {
				t.Fatal(err)
			}
			res, err := e.Relationships(ctx, "Alice", f)
			if err != nil {
				t.Fatal(err)
			}
			if res.TotalCount != tt.want {
				t.Errorf("total_count = %d, want %d", res.TotalCount, tt.want)
			}
		})
	}
}

func TestRelationshipsDateRange(t *testing.T) {
	m := testGraph(t)
	m.AddEntity(map[string]any{"entity_name": "Undated"})
	m.AddRelationship(map[string]any{"src_id": "Alice", "tgt_id": "Undated", "weight": 0.1})
	e := New(m, m, WithLogger(quietLogger()))

	from, to := int64(150), int64(250)
	f := DefaultRelationshipFilter()
	f.DateFrom, f.DateTo = &from, &to
	res, err := e.Relationships(context.Background(), "Alice", f)
	if err != nil {
		t.Fatal(err)
	}
	assertNames(t, "incoming", neighbors(res.Incoming, "Alice"), []string{"Bob"})
	// Edges without a timestamp are never excluded by the date range.
	assertNames(t, "outgoing", neighbors(res.Outgoing, "Alice"), []string{"Undated"})
}

func TestRelationshipsPaginationPerDirection(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	one := 1

	f := DefaultRelationshipFilter()
	f.Limit = &one
	res, err := e.Relationships(ctx, "Alice", f)
	if err != nil {
		t.Fatal(err)
	}
	assertNames(t, "outgoing", neighbors(res.Outgoing, "Alice"), []string{"Acme Corp"})
	assertNames(t, "incoming", neighbors(res.Incoming, "Alice"), []string{"Bob"})
	if res.TotalCount != 2 {
		t.Errorf("total_count = %d, want 2 (counted after pagination)", res.TotalCount)
	}

	f.Offset = 1
	res, err = e.Relationships(ctx, "Alice", f)
	if err != nil {
		t.Fatal(err)
	}
	assertNames(t, "outgoing", neighbors(res.Outgoing, "Alice"), []string{"Paris"})
	if len(res.Incoming) != 0 {
		t.Errorf("incoming page 2 should be empty, got %d", len(res.Incoming))
	}

	f.Offset = 10
	res, err = e.Relationships(ctx, "Alice", f)
	if err != nil {
		t.Fatal(err)
	}
	if res.Incoming == nil || res.Outgoing == nil || res.TotalCount != 0 {
		t.Errorf("offset past end: %+v", res)
	}
}

func TestRelationshipsSortByTimestampAsc(t *testing.T) {
	m := testGraph(t)
	m.AddEntity(map[string]any{"entity_name": "Undated"})
	m.AddRelationship(map[string]any{"src_id": "Alice", "tgt_id": "Undated", "weight": 0.1})
	e := New(m, m, WithLogger(quietLogger()))

	f := DefaultRelationshipFilter()
	f.SortBy, f.SortOrder = "timestamp", SortAsc
	res, err := e.Relationships(context.Background(), "Alice", f)
	if err != nil {
		t.Fatal(err)
	}
	// A missing timestamp sorts as 0.
	assertNames(t, "outgoing", neighbors(res.Outgoing, "Alice"), []string{"Undated", "Acme Corp", "Paris"})
}

func TestRelationshipsIncomparableSortKeepsOrder(t *testing.T) {
	m := storage.NewMemory()
	for _, id := range []string{"Hub", "N1", "N2", "N3"} {
		m.AddEntity(map[string]any{"entity_name": id})
	}
	m.AddRelationship(map[string]any{"src_id": "Hub", "tgt_id": "N1", "rank": 3})
	m.AddRelationship(map[string]any{"src_id": "Hub", "tgt_id": "N2", "rank": "high"})
	m.AddRelationship(map[string]any{"src_id": "Hub", "tgt_id": "N3", "rank": 1})
	e := New(m, m, WithLogger(quietLogger()))

	f := DefaultRelationshipFilter()
	f.SortBy = "rank"
	res, err := e.Relationships(context.Background(), "Hub", f)
	if err != nil {
		t.Fatalf("sort failure must not fail the query: %v", err)
	}
	assertNames(t, "outgoing", neighbors(res.Outgoing, "Hub"), []string{"N1", "N2", "N3"})
}

func TestRelationshipsSortByAttribute(t *testing.T) {
	m := storage.NewMemory()
	for _, id := range []string{"Hub", "N1", "N2", "N3"} {
		m.AddEntity(map[string]any{"entity_name": id})
	}
	m.AddRelationship(map[string]any{"src_id": "Hub", "tgt_id": "N1", "rank": 3})
	m.AddRelationship(map[string]any{"src_id": "Hub", "tgt_id": "N2", "rank": 5})
	m.AddRelationship(map[string]any{"src_id": "Hub", "tgt_id": "N3", "rank": 1})
	e := New(m, m, WithLogger(quietLogger()))

	f := DefaultRelationshipFilter()
	f.SortBy = "rank"
	res, err := e.Relationships(context.Background(), "Hub", f)
	if err != nil {
		t.Fatal(err)
	}
	assertNames(t, "outgoing", neighbors(res.Outgoing, "Hub"), []string{"N2", "N1", "N3"})
}

func TestRelationshipsUnknownEntity(t *testing.T) {
	e := testEngine(t)
	res, err := e.Relationships(context.Background(), "Nobody", DefaultRelationshipFilter())
	if err != nil {
		t.Fatalf("unknown entity should not error: %v", err)
	}
	if res.TotalCount != 0 || res.Incoming == nil || res.Outgoing == nil {
		t.Errorf("expected empty lists, got %+v", res)
	}
}

func TestRelationshipsValidationBeforeStore(t *testing.T) {
	e, fs := failingEngine()
	f := DefaultRelationshipFilter()
	f.MinWeight = 1.2
	_, err := e.Relationships(context.Background(), "Alice", f)
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if n := fs.calls.Load(); n != 0 {
		t.Errorf("store called %d times before validation", n)
	}
}

func TestRelationshipsStoreErrorPropagates(t *testing.T) {
	e, _ := failingEngine()
	_, err := e.Relationships(context.Background(), "Alice", DefaultRelationshipFilter())
	if err == nil || errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("expected store error, got %v", err)
	}
}
