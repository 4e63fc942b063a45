// Package query implements the read-only entity query engine: relationship and
// document resolution, statistics, related-entity extraction, listing and
// search over a knowledge graph.
package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/graphlens/internal/apperr"
	"github.com/starford/graphlens/internal/models"
	"github.com/starford/graphlens/internal/storage"
)

const defaultMaxParallel = 8

// Engine answers entity queries against a graph store and a chunk store.
// It keeps no per-query state and is safe for concurrent use.
type Engine struct {
	graph       storage.GraphStore
	chunks      storage.ChunkStore
	logger      *slog.Logger
	maxParallel int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for warnings and degraded results.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMaxParallel bounds the number of concurrent edge fetches per query.
func WithMaxParallel(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxParallel = n
		}
	}
}

// New creates an engine over the given stores.
func New(graph storage.GraphStore, chunks storage.ChunkStore, opts ...Option) *Engine {
	e := &Engine{
		graph:       graph,
		chunks:      chunks,
		logger:      slog.Default(),
		maxParallel: defaultMaxParallel,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetEntity returns the entity details, or an error wrapping apperr.ErrNotFound.
func (e *Engine) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	ent, err := e.graph.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if ent == nil {
		e.logger.Debug("entity not found", slog.String("entity", id))
		return nil, fmt.Errorf("entity %q: %w", id, apperr.ErrNotFound)
	}
	return ent, nil
}

func paginate[T any](items []T, offset int, limit *int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit != nil && offset+*limit < end {
		end = offset + *limit
	}
	return items[offset:end]
}
