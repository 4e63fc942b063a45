package query

import (
	"slices"

	"github.com/starford/graphlens/internal/models"
)

// Statistics summarizes already-resolved query results. A group of fields is
// present only when its input was resolved: entity counts need the entity,
// relationship counts need a relationship result, chunk counts need at least
// one returned chunk. AvgRelationshipWeight is absent when there are no edges.
type Statistics struct {
	TotalSourceChunks     *int     `json:"total_source_chunks,omitempty"`
	UniqueFiles           *int     `json:"unique_files,omitempty"`
	TotalRelationships    *int     `json:"total_relationships,omitempty"`
	IncomingRelationships *int     `json:"incoming_relationships,omitempty"`
	OutgoingRelationships *int     `json:"outgoing_relationships,omitempty"`
	AvgRelationshipWeight *float64 `json:"avg_relationship_weight,omitempty"`
	ReturnedChunks        *int     `json:"returned_chunks,omitempty"`
	UniqueDocuments       *int     `json:"unique_documents,omitempty"`
}

// IsEmpty reports whether no statistic was computed.
func (s Statistics) IsEmpty() bool {
	return s == Statistics{}
}

// ComputeStatistics derives counts and averages without touching any store.
// Any argument may be nil when its stage did not run.
func ComputeStatistics(ent *models.Entity, rels *RelationshipResult, docs []DocumentChunk) Statistics {
	var s Statistics

	if ent != nil {
		s.TotalSourceChunks = ptr(len(ent.SourceIDs))
		s.UniqueFiles = ptr(len(dedupe(ent.FilePaths)))
	}

	if rels != nil {
		s.TotalRelationships = ptr(rels.TotalCount)
		s.IncomingRelationships = ptr(len(rels.Incoming))
		s.OutgoingRelationships = ptr(len(rels.Outgoing))

		n := len(rels.Incoming) + len(rels.Outgoing)
		if n > 0 {
			var sum float64
			for _, r := range slices.Concat(rels.Incoming, rels.Outgoing) {
				sum += r.WeightOr(1.0)
			}
			s.AvgRelationshipWeight = ptr(sum / float64(n))
		}
	}

	if len(docs) > 0 {
		s.ReturnedChunks = ptr(len(docs))
		docIDs := make(map[string]struct{})
		for _, d := range docs {
			if d.DocID != nil && *d.DocID != "" {
				docIDs[*d.DocID] = struct{}{}
			}
		}
		s.UniqueDocuments = ptr(len(docIDs))
	}

	return s
}

// RelatedEntities returns the sorted, de-duplicated neighbors found in rels,
// excluding entityID itself, truncated to limit.
func RelatedEntities(entityID string, rels *RelationshipResult, limit int) []string {
	if rels == nil {
		return []string{}
	}
	set := make(map[string]struct{})
	for _, r := range rels.Incoming {
		set[r.Source] = struct{}{}
	}
	for _, r := range rels.Outgoing {
		set[r.Target] = struct{}{}
	}
	delete(set, entityID)

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func ptr[T any](v T) *T { return &v }
