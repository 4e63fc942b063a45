// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes GraphLens entity queries for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/graphlens/internal/dataset"
	"github.com/starford/graphlens/internal/models"
	"github.com/starford/graphlens/internal/query"
)

const datasetFormatURI = "graphlens://dataset-format"

// Querier is the subset of the query engine the tools need.
type Querier interface {
	GetEntity(ctx context.Context, id string) (*models.Entity, error)
	Relationships(ctx context.Context, id string, f query.RelationshipFilter) (*query.RelationshipResult, error)
	Documents(ctx context.Context, id string, f query.DocumentFilter) ([]query.DocumentChunk, error)
	QueryEntityFull(ctx context.Context, id string, opts query.Options) (*query.FullResult, error)
	ListEntities(ctx context.Context, f query.ListFilter) (*query.ListResult, error)
	SearchEntities(ctx context.Context, q string, entityTypes []string, limit int) ([]query.SearchResult, error)
	EntityTypes(ctx context.Context) map[string]int
}

// Syncer reconciles the stores with the dataset directory.
type Syncer interface {
	Sync(ctx context.Context) (dataset.Report, error)
}

// Server wraps the MCP server with GraphLens tools.
type Server struct {
	mcp    *server.MCPServer
	q      Querier
	syncer Syncer
}

// New creates a new MCP server with all GraphLens tools registered.
// syncer may be nil, in which case sync_datasets is not offered.
func New(q Querier, syncer Syncer) *Server {
	s := &Server{q: q, syncer: syncer}

	s.mcp = server.NewMCPServer(
		"GraphLens",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_entities",
		mcp.WithDescription("List entities in the knowledge graph with optional type and name filters."),
		mcp.WithArray("entity_types", mcp.WithStringItems(), mcp.Description("Entity types to keep (case-insensitive)")),
		mcp.WithString("name_pattern", mcp.Description("Case-insensitive substring of the entity name")),
		mcp.WithNumber("limit", mcp.Description("Page size (1-1000, default 100)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
		mcp.WithString("sort_by", mcp.Description("entity_id, entity_type, description, created_at or source_count")),
		mcp.WithString("sort_order", mcp.Enum("asc", "desc")),
	), s.listEntities)

	s.mcp.AddTool(mcp.NewTool("search_entities",
		mcp.WithDescription("Find entities whose name contains the query, best matches first."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
		mcp.WithArray("entity_types", mcp.WithStringItems(), mcp.Description("Entity types to keep")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (1-100, default 20)")),
	), s.searchEntities)

	s.mcp.AddTool(mcp.NewTool("entity_types",
		mcp.WithDescription("Count entities per entity type."),
	), s.entityTypes)

	s.mcp.AddTool(mcp.NewTool("get_entity",
		mcp.WithDescription("Read the details of one entity: type, description, source chunks and files."),
		mcp.WithString("entity", mcp.Required(), mcp.Description("Entity name (case-sensitive)")),
	), s.getEntity)

	s.mcp.AddTool(mcp.NewTool("get_entity_relationships",
		mcp.WithDescription("List the relationships of an entity split into incoming and outgoing."),
		mcp.WithString("entity", mcp.Required(), mcp.Description("Entity name")),
		mcp.WithString("direction", mcp.Enum("incoming", "outgoing", "both")),
		mcp.WithArray("relation_types", mcp.WithStringItems(), mcp.Description("Substrings of relationship keywords")),
		mcp.WithArray("related_entity_types", mcp.WithStringItems(), mcp.Description("Types of the entity on the other end")),
		mcp.WithArray("keywords", mcp.WithStringItems(), mcp.Description("Substrings of description or keywords")),
		mcp.WithNumber("min_weight", mcp.Description("Minimum weight (0-1)")),
		mcp.WithNumber("max_weight", mcp.Description("Maximum weight (0-1)")),
		mcp.WithNumber("limit", mcp.Description("Per-direction limit")),
		mcp.WithString("sort_by", mcp.Description("weight, timestamp, source, target or an attribute name")),
		mcp.WithString("sort_order", mcp.Enum("asc", "desc")),
	), s.getRelationships)

	s.mcp.AddTool(mcp.NewTool("get_entity_documents",
		mcp.WithDescription("Read the source text chunks an entity was extracted from."),
		mcp.WithString("entity", mcp.Required(), mcp.Description("Entity name")),
		mcp.WithArray("file_paths", mcp.WithStringItems(), mcp.Description("Keep chunks from these files")),
		mcp.WithArray("doc_ids", mcp.WithStringItems(), mcp.Description("Keep chunks from these documents")),
		mcp.WithNumber("max_chunks", mcp.Description("Maximum chunks (1-1000, default 100)")),
		mcp.WithBoolean("include_full_text", mcp.Description("Include chunk content (default true)")),
	), s.getDocuments)

	s.mcp.AddTool(mcp.NewTool("query_entity_full",
		mcp.WithDescription("Get entity details, relationships, source chunks, statistics and related entity names in one call."),
		mcp.WithString("entity", mcp.Required(), mcp.Description("Entity name")),
		mcp.WithBoolean("compute_related_entities", mcp.Description("Include related entity names (default false)")),
		mcp.WithNumber("max_relationships", mcp.Description("Per-direction relationship limit")),
		mcp.WithNumber("max_chunks", mcp.Description("Maximum chunks (1-1000, default 100)")),
	), s.queryFull)

	s.mcp.AddTool(mcp.NewTool("get_dataset_format",
		mcp.WithDescription("Returns the dataset file format. Call this to understand entity, relationship and chunk fields."),
	), s.getDatasetFormat)

	if syncer != nil {
		s.mcp.AddTool(mcp.NewTool("sync_datasets",
			mcp.WithDescription("Re-read the dataset directory and apply added, changed and removed files."),
		), s.syncDatasets)
	}

	// Resource: dataset format contract.
	s.mcp.AddResource(
		mcp.NewResource(datasetFormatURI, "Dataset Format",
			mcp.WithResourceDescription("Format of the knowledge-graph dataset files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDatasetFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := query.DefaultListFilter()
	f.EntityTypes = req.GetStringSlice("entity_types", nil)
	f.NamePattern = req.GetString("name_pattern", "")
	f.Limit = min(req.GetInt("limit", f.Limit), 1000)
	f.Offset = req.GetInt("offset", 0)
	f.SortBy = req.GetString("sort_by", f.SortBy)
	f.SortOrder = query.SortOrder(req.GetString("sort_order", string(f.SortOrder)))

	res, err := s.q.ListEntities(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) searchEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 20)
	if limit < 1 || limit > 100 {
		return mcp.NewToolResultError("limit must be between 1 and 100"), nil
	}
	res, err := s.q.SearchEntities(ctx, q, req.GetStringSlice("entity_types", nil), limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) entityTypes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.q.EntityTypes(ctx))
}

func (s *Server) getEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("entity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ent, err := s.q.GetEntity(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ent)
}

func (s *Server) getRelationships(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("entity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f := query.DefaultRelationshipFilter()
	f.Direction = query.Direction(req.GetString("direction", string(f.Direction)))
	f.RelationTypes = req.GetStringSlice("relation_types", nil)
	f.RelatedEntityTypes = req.GetStringSlice("related_entity_types", nil)
	f.Keywords = req.GetStringSlice("keywords", nil)
	f.MinWeight = req.GetFloat("min_weight", f.MinWeight)
	f.MaxWeight = req.GetFloat("max_weight", f.MaxWeight)
	if limit := req.GetInt("limit", 0); limit != 0 {
		f.Limit = &limit
	}
	f.SortBy = req.GetString("sort_by", f.SortBy)
	f.SortOrder = query.SortOrder(req.GetString("sort_order", string(f.SortOrder)))

	res, err := s.q.Relationships(ctx, name, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) getDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("entity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f := query.DefaultDocumentFilter()
	f.FilePaths = req.GetStringSlice("file_paths", nil)
	f.DocIDs = req.GetStringSlice("doc_ids", nil)
	f.MaxChunks = min(req.GetInt("max_chunks", f.MaxChunks), 1000)
	f.IncludeFullText = req.GetBool("include_full_text", f.IncludeFullText)

	docs, err := s.q.Documents(ctx, name, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(docs)
}

func (s *Server) queryFull(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("entity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	opts := query.DefaultOptions()
	opts.ComputeRelatedEntities = req.GetBool("compute_related_entities", false)
	rf := query.DefaultRelationshipFilter()
	if limit := req.GetInt("max_relationships", 0); limit != 0 {
		rf.Limit = &limit
	}
	df := query.DefaultDocumentFilter()
	df.MaxChunks = min(req.GetInt("max_chunks", df.MaxChunks), 1000)
	opts.RelationshipFilter = &rf
	opts.DocumentFilter = &df

	res, err := s.q.QueryEntityFull(ctx, name, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) syncDatasets(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.syncer.Sync(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("imported: %d, skipped: %d, removed: %d, failed: %d",
		rep.Imported, rep.Skipped, rep.Removed, rep.Failed)), nil
}

func (s *Server) getDatasetFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DatasetFormatContract), nil
}

func (s *Server) readDatasetFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      datasetFormatURI,
			MIMEType: "text/markdown",
			Text:     DatasetFormatContract,
		},
	}, nil
}
