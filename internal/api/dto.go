package api

import (
	"github.com/starford/graphlens/internal/models"
	"github.com/starford/graphlens/internal/query"
)

// EntityDetail is the single-entity response type (aliased from the domain layer).
type EntityDetail = models.Entity

// ListResponse is a page of entity summaries.
type ListResponse = query.ListResult

// SearchResult is a single search hit with its relevance score.
type SearchResult = query.SearchResult

// RelationshipsResponse holds relationships split by direction.
type RelationshipsResponse = query.RelationshipResult

// DocumentChunk is a source chunk as returned to clients.
type DocumentChunk = query.DocumentChunk

// FullResponse combines every stage of an entity query.
type FullResponse = query.FullResult
