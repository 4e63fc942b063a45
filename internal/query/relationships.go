package query

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/graphlens/internal/models"
)

// RelationshipResult holds the relationships of one entity split by direction.
// TotalCount is the number of relationships returned, counted after pagination.
type RelationshipResult struct {
	Incoming   []models.Relationship `json:"incoming"`
	Outgoing   []models.Relationship `json:"outgoing"`
	TotalCount int                   `json:"total_count"`
}

func emptyRelationships() *RelationshipResult {
	return &RelationshipResult{
		Incoming: []models.Relationship{},
		Outgoing: []models.Relationship{},
	}
}

// Relationships resolves the filtered, sorted and paginated relationships of an
// entity. An unknown entity yields an empty result, not an error.
func (e *Engine) Relationships(ctx context.Context, entityID string, f RelationshipFilter) (*RelationshipResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return e.resolveRelationships(ctx, entityID, f)
}

type edgeCandidate struct {
	key       models.EdgeKey
	direction Direction
	neighbor  string
	rel       *models.Relationship
	peer      *models.Entity
}

func (e *Engine) resolveRelationships(ctx context.Context, entityID string, f RelationshipFilter) (*RelationshipResult, error) {
	exists, err := e.graph.HasNode(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if !exists {
		e.logger.Debug("relationships: entity not in graph", slog.String("entity", entityID))
		return emptyRelationships(), nil
	}

	keys, err := e.graph.GetNodeEdges(ctx, entityID)
	if err != nil {
		return nil, err
	}

	candidates := make([]edgeCandidate, 0, len(keys))
	for _, k := range keys {
		c := edgeCandidate{key: k, direction: DirectionOutgoing, neighbor: k.Target}
		if k.Target == entityID {
			c.direction = DirectionIncoming
			c.neighbor = k.Source
		}
		if f.Direction.includes(c.direction) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return emptyRelationships(), nil
	}

	if err := e.fetchEdges(ctx, candidates, len(f.RelatedEntityTypes) > 0); err != nil {
		return nil, err
	}

	res := emptyRelationships()
	for _, c := range candidates {
		if c.rel == nil {
			continue
		}
		rel := *c.rel
		rel.Direction = string(c.direction)
		if c.direction == DirectionIncoming {
			rel.Source, rel.Target = c.neighbor, entityID
		} else {
			rel.Source, rel.Target = entityID, c.neighbor
		}
		if !f.matches(&rel, c.peer) {
			continue
		}
		if c.direction == DirectionIncoming {
			res.Incoming = append(res.Incoming, rel)
		} else {
			res.Outgoing = append(res.Outgoing, rel)
		}
	}

	res.Incoming = paginate(e.sortRelationships(res.Incoming, f), f.Offset, f.Limit)
	res.Outgoing = paginate(e.sortRelationships(res.Outgoing, f), f.Offset, f.Limit)
	res.TotalCount = len(res.Incoming) + len(res.Outgoing)
	return res, nil
}

// fetchEdges loads edge data (and neighbor nodes when needed) with bounded
// parallelism. Results land at their candidate index.
func (e *Engine) fetchEdges(ctx context.Context, candidates []edgeCandidate, withPeers bool) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxParallel)
	for i := range candidates {
		c := &candidates[i]
		g.Go(func() error {
			rel, err := e.graph.GetEdge(gCtx, c.key.Source, c.key.Target)
			if err != nil {
				return err
			}
			c.rel = rel
			if withPeers && rel != nil {
				peer, err := e.graph.GetNode(gCtx, c.neighbor)
				if err != nil {
					return err
				}
				c.peer = peer
			}
			return nil
		})
	}
	return g.Wait()
}

func (f RelationshipFilter) matches(rel *models.Relationship, peer *models.Entity) bool {
	w := rel.WeightOr(1.0)
	if w < f.MinWeight || w > f.MaxWeight {
		return false
	}

	if len(f.RelationTypes) > 0 && !containsAny(strings.ToLower(rel.Keywords), f.RelationTypes) {
		return false
	}

	if len(f.Keywords) > 0 {
		text := strings.ToLower(rel.Description + " " + rel.Keywords)
		if !containsAny(text, f.Keywords) {
			return false
		}
	}

	if len(f.FilePaths) > 0 && !intersects(rel.FilePaths, f.FilePaths) {
		return false
	}

	if rel.Timestamp != nil && !inRange(*rel.Timestamp, f.DateFrom, f.DateTo) {
		return false
	}

	if len(f.RelatedEntityTypes) > 0 {
		if peer == nil || !equalsAnyFold(peer.Type, f.RelatedEntityTypes) {
			return false
		}
	}
	return true
}

func (e *Engine) sortRelationships(rels []models.Relationship, f RelationshipFilter) []models.Relationship {
	sorted, err := sortStable(rels, f.SortOrder, func(r models.Relationship) (sortValue, error) {
		return relationshipSortValue(&r, f.SortBy)
	})
	if err != nil {
		e.logger.Warn("failed to sort relationships",
			slog.String("sort_by", f.SortBy),
			slog.String("error", err.Error()))
	}
	return sorted
}

func relationshipSortValue(r *models.Relationship, field string) (sortValue, error) {
	switch field {
	case "weight":
		return numberValue(r.WeightOr(0.0)), nil
	case "timestamp", "created_at":
		if r.Timestamp == nil {
			return numberValue(0), nil
		}
		return numberValue(float64(*r.Timestamp)), nil
	case "description":
		return stringValue(r.Description), nil
	case "keywords":
		return stringValue(r.Keywords), nil
	case "source":
		return stringValue(r.Source), nil
	case "target":
		return stringValue(r.Target), nil
	case "direction":
		return stringValue(r.Direction), nil
	case "file_path", "file_paths":
		return stringValue(models.JoinField(r.FilePaths)), nil
	}
	return attributeValue(r.Attributes[field])
}

// containsAny reports whether any needle occurs in the lowercased haystack,
// ignoring the needle's case.
func containsAny(lowered string, needles []string) bool {
	return slices.ContainsFunc(needles, func(n string) bool {
		return strings.Contains(lowered, strings.ToLower(n))
	})
}

func equalsAnyFold(s string, candidates []string) bool {
	return slices.ContainsFunc(candidates, func(c string) bool {
		return strings.EqualFold(s, c)
	})
}

func intersects(have, want []string) bool {
	return slices.ContainsFunc(want, func(w string) bool {
		return slices.Contains(have, w)
	})
}

func inRange(ts int64, from, to *int64) bool {
	if from != nil && ts < *from {
		return false
	}
	if to != nil && ts > *to {
		return false
	}
	return true
}
