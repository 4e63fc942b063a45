package query

import (
	"context"

	"github.com/starford/graphlens/internal/models"
)

// FullResult combines the stages of a full entity query. Relationships is set
// whenever that stage ran; the other sections are omitted when empty.
type FullResult struct {
	EntityName      string              `json:"entity_name"`
	Entity          *models.Entity      `json:"entity,omitempty"`
	Relationships   *RelationshipResult `json:"relationships,omitempty"`
	Documents       []DocumentChunk     `json:"documents,omitempty"`
	Statistics      *Statistics         `json:"statistics,omitempty"`
	RelatedEntities []string            `json:"related_entities,omitempty"`
}

// QueryEntityFull runs the stages selected by opts.
//
// Only the detail stage reports a missing entity: with IncludeEntityDetails
// set, an unknown id returns an error wrapping apperr.ErrNotFound. Without it
// the remaining stages still run and produce empty sections.
func (e *Engine) QueryEntityFull(ctx context.Context, entityID string, opts Options) (*FullResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	res := &FullResult{EntityName: entityID}

	if opts.IncludeEntityDetails {
		ent, err := e.GetEntity(ctx, entityID)
		if err != nil {
			return nil, err
		}
		res.Entity = ent
	}

	if opts.IncludeRelationships {
		rels, err := e.resolveRelationships(ctx, entityID, opts.relationshipFilter())
		if err != nil {
			return nil, err
		}
		res.Relationships = rels
	}

	if opts.IncludeDocuments {
		docs, err := e.resolveDocuments(ctx, entityID, opts.documentFilter())
		if err != nil {
			return nil, err
		}
		if len(docs) > 0 {
			res.Documents = docs
		}
	}

	if opts.IncludeStatistics {
		if stats := ComputeStatistics(res.Entity, res.Relationships, res.Documents); !stats.IsEmpty() {
			res.Statistics = &stats
		}
	}

	if opts.ComputeRelatedEntities && res.Relationships != nil {
		if related := RelatedEntities(entityID, res.Relationships, opts.MaxRelatedEntities); len(related) > 0 {
			res.RelatedEntities = related
		}
	}

	return res, nil
}
