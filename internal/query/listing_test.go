package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/starford/graphlens/internal/apperr"
	"github.com/starford/graphlens/internal/storage"
)

func summaryIDs(s []EntitySummary) []string {
	out := make([]string, len(s))
	for i, e := range s {
		out[i] = e.EntityID
	}
	return out
}

func TestListEntities(t *testing.T) {
	m := testGraph(t)
	m.AddEntity(map[string]any{"entity_name": "Alice", "entity_type": "duplicate"})
	e := New(m, m, WithLogger(quietLogger()))

	res, err := e.ListEntities(context.Background(), DefaultListFilter())
	if err != nil {
		t.Fatal(err)
	}
	assertNames(t, "entities", summaryIDs(res.Entities), []string{"Acme Corp", "Alice", "Bob", "Paris"})
	if res.TotalCount != 4 || res.ReturnedCount != 4 || res.HasMore {
		t.Errorf("counts: %+v", res)
	}
	if alice := res.Entities[1]; alice.EntityType != "person" || alice.SourceCount != 3 {
		t.Errorf("first Alice record should win: %+v", alice)
	}
}

func TestListEntitiesFilterAndPage(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	f, err := NewListFilter(func(f *ListFilter) {
		f.EntityTypes = []string{"PERSON", "Organization"}
		f.Limit = 2
	})
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.ListEntities(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	assertNames(t, "page 1", summaryIDs(res.Entities), []string{"Acme Corp", "Alice"})
	if res.TotalCount != 3 || !res.HasMore {
		t.Errorf("page 1: total=%d has_more=%v", res.TotalCount, res.HasMore)
	}

	f.Offset = 2
	res, err = e.ListEntities(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	assertNames(t, "page 2", summaryIDs(res.Entities), []string{"Bob"})
	if res.HasMore {
		t.Error("page 2 should be the last")
	}

	f = DefaultListFilter()
	f.NamePattern = "ACME"
	res, err = e.ListEntities(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	assertNames(t, "name pattern", summaryIDs(res.Entities), []string{"Acme Corp"})
}

func TestListEntitiesTruncatesDescription(t *testing.T) {
	m := storage.NewMemory()
	long := strings.Repeat("é", 250)
	m.AddEntity(map[string]any{"entity_name": "Long", "description": long})
	e := New(m, m, WithLogger(quietLogger()))

	res, err := e.ListEntities(context.Background(), DefaultListFilter())
	if err != nil {
		t.Fatal(err)
	}
	s := res.Entities[0]
	if got := len([]rune(s.Description)); got != 200 {
		t.Errorf("preview runes = %d, want 200", got)
	}
	if s.DescriptionFullLength != 250 {
		t.Errorf("full length = %d, want 250", s.DescriptionFullLength)
	}
}

func TestListEntitiesStoreFailureDegrades(t *testing.T) {
	e, _ := failingEngine()
	res, err := e.ListEntities(context.Background(), DefaultListFilter())
	if err != nil {
		t.Fatalf("store failure should degrade, got %v", err)
	}
	if res.Entities == nil || res.TotalCount != 0 || res.Limit != 100 {
		t.Errorf("unexpected degraded result: %+v", res)
	}
}

func TestListEntitiesValidation(t *testing.T) {
	e := testEngine(t)
	f := DefaultListFilter()
	f.Limit = 0
	if _, err := e.ListEntities(context.Background(), f); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSearchEntities(t *testing.T) {
	m := testGraph(t)
	m.AddEntity(map[string]any{"entity_name": "Acme", "entity_type": "organization"})
	m.AddEntity(map[string]any{"entity_name": "Big Acme", "entity_type": "organization"})
	e := New(m, m, WithLogger(quietLogger()))

	res, err := e.SearchEntities(context.Background(), "acme", nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		id    string
		score float64
	}{{"Acme", 1.0}, {"Acme Corp", 0.8}, {"Big Acme", 0.5}}
	if len(res) != len(want) {
		t.Fatalf("got %d results, want %d", len(res), len(want))
	}
	for i, w := range want {
		if res[i].EntityID != w.id || res[i].RelevanceScore != w.score {
			t.Errorf("result %d = %s/%.1f, want %s/%.1f", i, res[i].EntityID, res[i].RelevanceScore, w.id, w.score)
		}
	}
}

func TestSearchEntitiesLimitBeforeScoring(t *testing.T) {
	m := storage.NewMemory()
	m.AddEntity(map[string]any{"entity_name": "AAA Acme"})
	m.AddEntity(map[string]any{"entity_name": "Acme"})
	e := New(m, m, WithLogger(quietLogger()))

	res, err := e.SearchEntities(context.Background(), "acme", nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	// The listing keeps "AAA Acme" (id order) before the exact match is scored.
	if len(res) != 1 || res[0].EntityID != "AAA Acme" {
		t.Errorf("unexpected results: %+v", res)
	}
}

func TestSearchEntitiesEmptyQuery(t *testing.T) {
	e := testEngine(t)
	if _, err := e.SearchEntities(context.Background(), "", nil, 10); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRelevanceScore(t *testing.T) {
	tests := []struct {
		id, query string
		want      float64
	}{
		{"acme", "Acme", 1.0},
		{"Acme Corp", "Acme", 0.8},
		{"Acme Corp", "orp", 0.5},
		{"Bob", "xyz", 0.3},
	}
	for _, tt := range tests {
		if got := relevanceScore(tt.id, tt.query); got != tt.want {
			t.Errorf("relevanceScore(%q, %q) = %v, want %v", tt.id, tt.query, got, tt.want)
		}
	}
}

func TestEntityTypes(t *testing.T) {
	m := testGraph(t)
	m.AddEntity(map[string]any{"entity_name": "Mystery"})
	m.AddEntity(map[string]any{"entity_name": "Bob", "entity_type": "person"})
	e := New(m, m, WithLogger(quietLogger()))

	got := e.EntityTypes(context.Background())
	want := map[string]int{"person": 2, "organization": 1, "location": 1, "unknown": 1}
	if len(got) != len(want) {
		t.Fatalf("types = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("types[%q] = %d, want %d", k, got[k], v)
		}
	}

	fe, _ := failingEngine()
	if got := fe.EntityTypes(context.Background()); got == nil || len(got) != 0 {
		t.Errorf("store failure should give empty map, got %v", got)
	}
}
