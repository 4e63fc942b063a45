package query

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/starford/graphlens/internal/apperr"
	"github.com/starford/graphlens/internal/models"
)

const descriptionPreviewLen = 200

// EntitySummary is one entity in a listing. Description holds at most the
// first 200 characters; DescriptionFullLength is the untruncated length.
type EntitySummary struct {
	EntityID              string `json:"entity_id"`
	EntityType            string `json:"entity_type"`
	Description           string `json:"description"`
	DescriptionFullLength int    `json:"description_full_length"`
	CreatedAt             *int64 `json:"created_at,omitempty"`
	SourceCount           int    `json:"source_count"`
}

// ListResult is one page of the entity listing. TotalCount counts every
// entity that passed the filters, before pagination.
type ListResult struct {
	Entities      []EntitySummary `json:"entities"`
	TotalCount    int             `json:"total_count"`
	ReturnedCount int             `json:"returned_count"`
	Offset        int             `json:"offset"`
	Limit         int             `json:"limit"`
	HasMore       bool            `json:"has_more"`
}

// SearchResult is a listed entity with its lexical relevance score.
type SearchResult struct {
	EntitySummary
	RelevanceScore float64 `json:"relevance_score"`
}

// ListEntities enumerates graph nodes with type and name filtering, sorting and
// pagination. A store failure is logged and yields an empty page; only filter
// validation errors are returned.
func (e *Engine) ListEntities(ctx context.Context, f ListFilter) (*ListResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	nodes, err := e.graph.GetAllNodes(ctx)
	if err != nil {
		e.logger.Error("failed to list entities", slog.String("error", err.Error()))
		return &ListResult{
			Entities: []EntitySummary{},
			Offset:   f.Offset,
			Limit:    f.Limit,
		}, nil
	}

	pattern := strings.ToLower(f.NamePattern)
	seen := make(map[string]struct{}, len(nodes))
	summaries := make([]EntitySummary, 0, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		if n.ID == "" {
			continue
		}
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}

		if len(f.EntityTypes) > 0 && !equalsAnyFold(n.Type, f.EntityTypes) {
			continue
		}
		if pattern != "" && !strings.Contains(strings.ToLower(n.ID), pattern) {
			continue
		}
		summaries = append(summaries, summarize(n))
	}

	sorted, err := sortStable(summaries, f.SortOrder, func(s EntitySummary) (sortValue, error) {
		return summarySortValue(&s, f.SortBy), nil
	})
	if err != nil {
		e.logger.Warn("failed to sort entities",
			slog.String("sort_by", f.SortBy),
			slog.String("error", err.Error()))
	}

	page := paginate(sorted, f.Offset, &f.Limit)
	return &ListResult{
		Entities:      page,
		TotalCount:    len(sorted),
		ReturnedCount: len(page),
		Offset:        f.Offset,
		Limit:         f.Limit,
		HasMore:       f.Offset+len(page) < len(sorted),
	}, nil
}

// SearchEntities lists entities whose id contains query, then orders them by
// relevance: exact match first, prefix matches next, other substrings last.
// The limit is applied by the listing, before scoring.
func (e *Engine) SearchEntities(ctx context.Context, query string, entityTypes []string, limit int) ([]SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", apperr.ErrInvalidInput)
	}
	f := DefaultListFilter()
	f.EntityTypes = entityTypes
	f.NamePattern = query
	f.Limit = limit

	page, err := e.ListEntities(ctx, f)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, len(page.Entities))
	for i, s := range page.Entities {
		results[i] = SearchResult{EntitySummary: s, RelevanceScore: relevanceScore(s.EntityID, query)}
	}
	slices.SortStableFunc(results, func(a, b SearchResult) int {
		switch {
		case a.RelevanceScore > b.RelevanceScore:
			return -1
		case a.RelevanceScore < b.RelevanceScore:
			return 1
		}
		return 0
	})
	return results, nil
}

// EntityTypes counts entities per type. Entities without a type count as
// "unknown". A store failure is logged and yields an empty map.
func (e *Engine) EntityTypes(ctx context.Context) map[string]int {
	counts := make(map[string]int)
	nodes, err := e.graph.GetAllNodes(ctx)
	if err != nil {
		e.logger.Error("failed to summarize entity types", slog.String("error", err.Error()))
		return counts
	}
	seen := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			continue
		}
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}
		t := n.Type
		if t == "" {
			t = "unknown"
		}
		counts[t]++
	}
	return counts
}

// relevanceScore grades how well id matches query. Listing already requires a
// substring match, so 0.3 is not produced by SearchEntities.
func relevanceScore(id, query string) float64 {
	id, query = strings.ToLower(id), strings.ToLower(query)
	switch {
	case id == query:
		return 1.0
	case strings.HasPrefix(id, query):
		return 0.8
	case strings.Contains(id, query):
		return 0.5
	}
	return 0.3
}

func summarize(n *models.Entity) EntitySummary {
	desc := n.Description
	full := utf8.RuneCountInString(desc)
	if full > descriptionPreviewLen {
		desc = string([]rune(desc)[:descriptionPreviewLen])
	}
	return EntitySummary{
		EntityID:              n.ID,
		EntityType:            n.Type,
		Description:           desc,
		DescriptionFullLength: full,
		CreatedAt:             n.CreatedAt,
		SourceCount:           len(n.SourceIDs),
	}
}

func summarySortValue(s *EntitySummary, field string) sortValue {
	switch field {
	case "entity_id":
		return stringValue(s.EntityID)
	case "entity_type":
		return stringValue(s.EntityType)
	case "description":
		return stringValue(s.Description)
	case "created_at":
		if s.CreatedAt == nil {
			return numberValue(0)
		}
		return numberValue(float64(*s.CreatedAt))
	case "source_count":
		return numberValue(float64(s.SourceCount))
	case "description_full_length":
		return numberValue(float64(s.DescriptionFullLength))
	}
	return stringValue("")
}
