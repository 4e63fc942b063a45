package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/starford/graphlens/internal/apperr"
	"github.com/starford/graphlens/internal/models"
	"github.com/starford/graphlens/internal/query"
)

// Querier is the subset of the query engine the handlers need.
type Querier interface {
	GetEntity(ctx context.Context, id string) (*models.Entity, error)
	Relationships(ctx context.Context, id string, f query.RelationshipFilter) (*query.RelationshipResult, error)
	Documents(ctx context.Context, id string, f query.DocumentFilter) ([]query.DocumentChunk, error)
	QueryEntityFull(ctx context.Context, id string, opts query.Options) (*query.FullResult, error)
	ListEntities(ctx context.Context, f query.ListFilter) (*query.ListResult, error)
	SearchEntities(ctx context.Context, q string, entityTypes []string, limit int) ([]query.SearchResult, error)
	EntityTypes(ctx context.Context) map[string]int
}

var _ Querier = (*query.Engine)(nil)

// Handler holds API route handlers.
type Handler struct {
	q Querier
}

// NewHandler creates a new Handler.
func NewHandler(q Querier) *Handler {
	return &Handler{q: q}
}

// ListEntities handles GET /api/entities/list.
//
//	@Summary		List entities with filtering, sorting and pagination
//	@Tags			entities
//	@Produce		json
//	@Param			entity_types	query		string	false	"Comma-separated entity types"
//	@Param			name_pattern	query		string	false	"Case-insensitive substring of the entity id"
//	@Param			limit			query		int		false	"Page size (1-1000)"
//	@Param			offset			query		int		false	"Page offset"
//	@Param			sort_by			query		string	false	"Sort field"	Enums(entity_id, entity_type, description, created_at, source_count)
//	@Param			sort_order		query		string	false	"Sort order"	Enums(asc, desc)
//	@Success		200				{object}	ListResponse
//	@Failure		400				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/list [get]
func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	p := newQueryParams(r)
	f := query.DefaultListFilter()
	f.EntityTypes = p.list("entity_types")
	f.NamePattern = p.str("name_pattern", "")
	f.Limit = p.integer("limit", f.Limit, 1, 1000)
	f.Offset = p.integer("offset", 0, 0, -1)
	f.SortBy = p.str("sort_by", f.SortBy)
	f.SortOrder = p.sortOrder("sort_order", f.SortOrder)
	if err := p.Err(); err != nil {
		writeQueryError(w, "list_entities", err)
		return
	}

	res, err := h.q.ListEntities(r.Context(), f)
	if err != nil {
		writeQueryError(w, "list_entities", err)
		return
	}
	writeQueryResult(w, "list_entities", res)
}

// SearchEntities handles GET /api/entities/search.
//
//	@Summary		Search entities by name
//	@Tags			entities
//	@Produce		json
//	@Param			q				query		string	true	"Search text"
//	@Param			entity_types	query		string	false	"Comma-separated entity types"
//	@Param			limit			query		int		false	"Maximum results (1-100)"
//	@Success		200				{array}		SearchResult
//	@Failure		400				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/search [get]
func (h *Handler) SearchEntities(w http.ResponseWriter, r *http.Request) {
	p := newQueryParams(r)
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeQueryError(w, "search_entities", fmt.Errorf("%w: q is required", apperr.ErrInvalidInput))
		return
	}
	types := p.list("entity_types")
	limit := p.integer("limit", 20, 1, 100)
	if err := p.Err(); err != nil {
		writeQueryError(w, "search_entities", err)
		return
	}

	results, err := h.q.SearchEntities(r.Context(), q, types, limit)
	if err != nil {
		writeQueryError(w, "search_entities", err)
		return
	}
	writeQueryResult(w, "search_entities", results)
}

// EntityTypes handles GET /api/entities/types.
//
//	@Summary		Count entities per type
//	@Tags			entities
//	@Produce		json
//	@Success		200	{object}	map[string]int
//	@Security		BearerAuth
//	@Router			/entities/types [get]
func (h *Handler) EntityTypes(w http.ResponseWriter, r *http.Request) {
	writeQueryResult(w, "entity_types", h.q.EntityTypes(r.Context()))
}

// GetEntity handles GET /api/entities/{name}.
//
//	@Summary		Get entity details
//	@Tags			entities
//	@Produce		json
//	@Param			name	path		string	true	"Entity name"
//	@Success		200		{object}	EntityDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{name} [get]
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	ent, err := h.q.GetEntity(r.Context(), entityName(r))
	if err != nil {
		writeQueryError(w, "get_entity", err)
		return
	}
	writeQueryResult(w, "get_entity", ent)
}

// Relationships handles GET /api/entities/{name}/relationships.
//
//	@Summary		List the relationships of an entity
//	@Description	An unknown entity yields empty lists, not 404.
//	@Tags			entities
//	@Produce		json
//	@Param			name					path		string	true	"Entity name"
//	@Param			direction				query		string	false	"Direction"	Enums(incoming, outgoing, both)
//	@Param			relation_types			query		string	false	"Comma-separated relation types (matched in keywords)"
//	@Param			related_entity_types	query		string	false	"Comma-separated neighbor types"
//	@Param			min_weight				query		number	false	"Minimum weight (0-1)"
//	@Param			max_weight				query		number	false	"Maximum weight (0-1)"
//	@Param			keywords				query		string	false	"Comma-separated keywords"
//	@Param			file_paths				query		string	false	"Comma-separated file paths"
//	@Param			date_from				query		int		false	"Earliest timestamp"
//	@Param			date_to					query		int		false	"Latest timestamp"
//	@Param			limit					query		int		false	"Per-direction limit"
//	@Param			offset					query		int		false	"Per-direction offset"
//	@Param			sort_by					query		string	false	"Sort field"
//	@Param			sort_order				query		string	false	"Sort order"	Enums(asc, desc)
//	@Success		200						{object}	RelationshipsResponse
//	@Failure		400						{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{name}/relationships [get]
func (h *Handler) Relationships(w http.ResponseWriter, r *http.Request) {
	p := newQueryParams(r)
	f := relationshipFilter(p, "direction", "limit")
	f.RelationTypes = p.list("relation_types")
	f.RelatedEntityTypes = p.list("related_entity_types")
	f.MaxWeight = p.number("max_weight", f.MaxWeight, 0, 1)
	f.Keywords = p.list("keywords")
	f.FilePaths = p.list("file_paths")
	f.DateFrom = p.optInt64("date_from")
	f.DateTo = p.optInt64("date_to")
	f.Offset = p.integer("offset", 0, 0, -1)
	f.SortBy = p.str("sort_by", f.SortBy)
	f.SortOrder = p.sortOrder("sort_order", f.SortOrder)
	if err := p.Err(); err != nil {
		writeQueryError(w, "relationships", err)
		return
	}

	res, err := h.q.Relationships(r.Context(), entityName(r), f)
	if err != nil {
		writeQueryError(w, "relationships", err)
		return
	}
	writeQueryResult(w, "relationships", res)
}

// Documents handles GET /api/entities/{name}/documents.
//
//	@Summary		List the source chunks of an entity
//	@Description	An unknown entity yields an empty list, not 404.
//	@Tags			entities
//	@Produce		json
//	@Param			name				path		string	true	"Entity name"
//	@Param			file_paths			query		string	false	"Comma-separated file paths"
//	@Param			doc_ids				query		string	false	"Comma-separated document ids"
//	@Param			chunk_ids			query		string	false	"Comma-separated chunk ids"
//	@Param			date_from			query		int		false	"Earliest timestamp"
//	@Param			date_to				query		int		false	"Latest timestamp"
//	@Param			max_chunks			query		int		false	"Maximum chunks (1-1000)"
//	@Param			offset				query		int		false	"Offset"
//	@Param			include_full_text	query		bool	false	"Include chunk content"
//	@Param			include_metadata	query		bool	false	"Include chunk metadata"
//	@Param			sort_by				query		string	false	"Sort field"
//	@Param			sort_order			query		string	false	"Sort order"	Enums(asc, desc)
//	@Success		200					{array}		DocumentChunk
//	@Failure		400					{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{name}/documents [get]
func (h *Handler) Documents(w http.ResponseWriter, r *http.Request) {
	p := newQueryParams(r)
	f := documentFilter(p)
	f.FilePaths = p.list("file_paths")
	f.DocIDs = p.list("doc_ids")
	f.ChunkIDs = p.list("chunk_ids")
	f.DateFrom = p.optInt64("date_from")
	f.DateTo = p.optInt64("date_to")
	f.Offset = p.integer("offset", 0, 0, -1)
	f.IncludeFullText = p.boolean("include_full_text", f.IncludeFullText)
	f.IncludeMetadata = p.boolean("include_metadata", f.IncludeMetadata)
	f.SortBy = p.str("sort_by", f.SortBy)
	f.SortOrder = p.sortOrder("sort_order", f.SortOrder)
	if err := p.Err(); err != nil {
		writeQueryError(w, "documents", err)
		return
	}

	docs, err := h.q.Documents(r.Context(), entityName(r), f)
	if err != nil {
		writeQueryError(w, "documents", err)
		return
	}
	writeQueryResult(w, "documents", docs)
}

// Full handles GET /api/entities/{name}/full.
//
//	@Summary		Get entity details, relationships, documents and statistics in one call
//	@Tags			entities
//	@Produce		json
//	@Param			name						path		string	true	"Entity name"
//	@Param			include_entity				query		bool	false	"Include entity details"
//	@Param			include_relationships		query		bool	false	"Include relationships"
//	@Param			include_documents			query		bool	false	"Include source chunks"
//	@Param			include_statistics			query		bool	false	"Include statistics"
//	@Param			compute_related_entities	query		bool	false	"Include related entity names"
//	@Param			max_related_entities		query		int		false	"Maximum related entity names"
//	@Param			relationship_direction		query		string	false	"Direction"	Enums(incoming, outgoing, both)
//	@Param			max_relationships			query		int		false	"Per-direction relationship limit"
//	@Param			min_weight					query		number	false	"Minimum weight (0-1)"
//	@Param			max_chunks					query		int		false	"Maximum chunks (1-1000)"
//	@Success		200							{object}	FullResponse
//	@Failure		400							{object}	errResponse
//	@Failure		404							{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{name}/full [get]
func (h *Handler) Full(w http.ResponseWriter, r *http.Request) {
	p := newQueryParams(r)
	opts := query.DefaultOptions()
	opts.IncludeEntityDetails = p.boolean("include_entity", opts.IncludeEntityDetails)
	opts.IncludeRelationships = p.boolean("include_relationships", opts.IncludeRelationships)
	opts.IncludeDocuments = p.boolean("include_documents", opts.IncludeDocuments)
	opts.IncludeStatistics = p.boolean("include_statistics", opts.IncludeStatistics)
	opts.ComputeRelatedEntities = p.boolean("compute_related_entities", opts.ComputeRelatedEntities)
	opts.MaxRelatedEntities = p.integer("max_related_entities", opts.MaxRelatedEntities, 1, -1)
	rf := relationshipFilter(p, "relationship_direction", "max_relationships")
	df := documentFilter(p)
	opts.RelationshipFilter = &rf
	opts.DocumentFilter = &df
	if err := p.Err(); err != nil {
		writeQueryError(w, "query_entity_full", err)
		return
	}

	res, err := h.q.QueryEntityFull(r.Context(), entityName(r), opts)
	if err != nil {
		writeQueryError(w, "query_entity_full", err)
		return
	}
	writeQueryResult(w, "query_entity_full", res)
}

// relationshipFilter reads the parameters shared by the relationships and
// full routes, which name direction and limit differently.
func relationshipFilter(p *queryParams, directionParam, limitParam string) query.RelationshipFilter {
	f := query.DefaultRelationshipFilter()
	f.Direction = query.Direction(strings.ToLower(p.str(directionParam, string(f.Direction))))
	f.Limit = p.optInt(limitParam, 1)
	f.MinWeight = p.number("min_weight", f.MinWeight, 0, 1)
	return f
}

func documentFilter(p *queryParams) query.DocumentFilter {
	f := query.DefaultDocumentFilter()
	f.MaxChunks = p.integer("max_chunks", f.MaxChunks, 1, 1000)
	return f
}
