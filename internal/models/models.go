// Package models defines the canonical graph records for graphlens.
package models

import "slices"

// FieldSep joins multi-valued attributes (source chunk ids, file paths) that a
// store keeps as a single string.
const FieldSep = "<SEP>"

// Entity is a graph node.
type Entity struct {
	ID          string         `json:"entity_id"`
	Type        string         `json:"entity_type"`
	Description string         `json:"description"`
	SourceIDs   []string       `json:"source_ids"`
	FilePaths   []string       `json:"file_paths"`
	CreatedAt   *int64         `json:"created_at,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// Merge folds another declaration of the same entity into e. Source ids and
// file paths are unioned in order; the other fields keep their first value.
func (e *Entity) Merge(other Entity) {
	e.SourceIDs = appendMissing(e.SourceIDs, other.SourceIDs)
	e.FilePaths = appendMissing(e.FilePaths, other.FilePaths)
}

func appendMissing(dst, src []string) []string {
	for _, v := range src {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}

// Relationship is a graph edge. Direction is empty in storage; the relationship
// resolver sets it relative to the queried entity.
type Relationship struct {
	Source      string         `json:"source"`
	Target      string         `json:"target"`
	Direction   string         `json:"direction,omitempty"`
	Description string         `json:"description"`
	Keywords    string         `json:"keywords"`
	Weight      *float64       `json:"weight,omitempty"`
	FilePaths   []string       `json:"file_paths"`
	Timestamp   *int64         `json:"timestamp,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// WeightOr returns the edge weight, or def when the edge carries none.
func (r *Relationship) WeightOr(def float64) float64 {
	if r.Weight == nil {
		return def
	}
	return *r.Weight
}

// Chunk is a unit of source text.
type Chunk struct {
	ID         string `json:"chunk_id"`
	Content    string `json:"content"`
	FilePath   string `json:"file_path"`
	DocID      string `json:"doc_id"`
	OrderIndex *int   `json:"chunk_order_index,omitempty"`
	Tokens     *int   `json:"tokens,omitempty"`
	Timestamp  *int64 `json:"timestamp,omitempty"`
}

// EdgeKey is one (source, target) pair touching a node.
type EdgeKey struct {
	Source string
	Target string
}
