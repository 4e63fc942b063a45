// Package storage defines the graph and chunk store contracts consumed by the
// query engine, plus an in-memory implementation of both.
package storage

import (
	"context"

	"github.com/starford/graphlens/internal/models"
)

// GraphStore holds entities as nodes and relationships as edges.
type GraphStore interface {
	// HasNode reports whether a node with the given id exists.
	HasNode(ctx context.Context, id string) (bool, error)
	// GetNode returns the node, or nil when it does not exist. Repeated
	// declarations are merged into one node.
	GetNode(ctx context.Context, id string) (*models.Entity, error)
	// GetNodeEdges returns each (source, target) pair touching the node once.
	GetNodeEdges(ctx context.Context, id string) ([]models.EdgeKey, error)
	// GetEdge returns the edge between two nodes, or nil when there is none.
	GetEdge(ctx context.Context, src, dst string) (*models.Relationship, error)
	// GetAllNodes returns every node. Implementations may return duplicates.
	GetAllNodes(ctx context.Context) ([]models.Entity, error)
}

// ChunkStore holds text chunks keyed by chunk id.
type ChunkStore interface {
	// GetByIDs returns one entry per requested id; the value is nil when the
	// id could not be resolved.
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.Chunk, error)
}

// GraphWriter replaces the nodes and edges owned by one dataset.
type GraphWriter interface {
	ReplaceGraph(ctx context.Context, dataset string, entities []models.Entity, rels []models.Relationship) error
	DeleteGraph(ctx context.Context, dataset string) error
}

// ChunkWriter replaces the chunks owned by one dataset.
type ChunkWriter interface {
	ReplaceChunks(ctx context.Context, dataset string, chunks []models.Chunk) error
	DeleteChunks(ctx context.Context, dataset string) error
}
