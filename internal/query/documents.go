package query

import (
	"context"
	"log/slog"
	"slices"

	"github.com/starford/graphlens/internal/models"
)

// DocumentChunk is a source chunk formatted for clients. Content is set only
// when full text is requested; the remaining optional fields only when
// metadata is requested.
type DocumentChunk struct {
	ChunkID    string  `json:"chunk_id"`
	Content    *string `json:"content,omitempty"`
	FilePath   *string `json:"file_path,omitempty"`
	DocID      *string `json:"doc_id,omitempty"`
	OrderIndex *int    `json:"chunk_order_index,omitempty"`
	Tokens     *int    `json:"tokens,omitempty"`
	Timestamp  *int64  `json:"timestamp,omitempty"`
}

// Documents resolves the source chunks an entity was extracted from. An
// unknown entity, or one without source chunks, yields an empty list.
func (e *Engine) Documents(ctx context.Context, entityID string, f DocumentFilter) ([]DocumentChunk, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return e.resolveDocuments(ctx, entityID, f)
}

func (e *Engine) resolveDocuments(ctx context.Context, entityID string, f DocumentFilter) ([]DocumentChunk, error) {
	ent, err := e.graph.GetNode(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if ent == nil {
		e.logger.Debug("documents: entity not found", slog.String("entity", entityID))
		return []DocumentChunk{}, nil
	}

	ids := dedupe(ent.SourceIDs)
	if len(f.ChunkIDs) > 0 {
		ids = slices.DeleteFunc(ids, func(id string) bool {
			return !slices.Contains(f.ChunkIDs, id)
		})
	}
	if len(ids) == 0 {
		e.logger.Debug("documents: no source chunks", slog.String("entity", entityID))
		return []DocumentChunk{}, nil
	}

	chunks, err := e.chunks.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]DocumentChunk, 0, len(ids))
	for _, id := range ids {
		c := chunks[id]
		if c == nil || !f.matches(c) {
			continue
		}
		out = append(out, formatChunk(id, c, f.IncludeFullText, f.IncludeMetadata))
	}

	sorted, err := sortStable(out, f.SortOrder, func(d DocumentChunk) (sortValue, error) {
		return chunkSortValue(&d, f.SortBy), nil
	})
	if err != nil {
		e.logger.Warn("failed to sort chunks",
			slog.String("sort_by", f.SortBy),
			slog.String("error", err.Error()))
	}
	return paginate(sorted, f.Offset, &f.MaxChunks), nil
}

func (f DocumentFilter) matches(c *models.Chunk) bool {
	if len(f.FilePaths) > 0 && !slices.Contains(f.FilePaths, c.FilePath) {
		return false
	}
	if len(f.DocIDs) > 0 && !slices.Contains(f.DocIDs, c.DocID) {
		return false
	}
	if c.Timestamp != nil && !inRange(*c.Timestamp, f.DateFrom, f.DateTo) {
		return false
	}
	return true
}

func formatChunk(id string, c *models.Chunk, fullText, metadata bool) DocumentChunk {
	d := DocumentChunk{ChunkID: id}
	if fullText {
		content := c.Content
		d.Content = &content
	}
	if metadata {
		filePath, docID := c.FilePath, c.DocID
		d.FilePath = &filePath
		d.DocID = &docID
		d.OrderIndex = c.OrderIndex
		d.Tokens = c.Tokens
		d.Timestamp = c.Timestamp
	}
	return d
}

// chunkSortValue projects a formatted chunk. Fields left out by formatting
// sort as their zero value.
func chunkSortValue(d *DocumentChunk, field string) sortValue {
	switch field {
	case "timestamp", "created_at":
		if d.Timestamp == nil {
			return numberValue(0)
		}
		return numberValue(float64(*d.Timestamp))
	case "chunk_order_index":
		if d.OrderIndex == nil {
			return numberValue(0)
		}
		return numberValue(float64(*d.OrderIndex))
	case "tokens":
		if d.Tokens == nil {
			return numberValue(0)
		}
		return numberValue(float64(*d.Tokens))
	case "chunk_id":
		return stringValue(d.ChunkID)
	case "content":
		return stringValue(deref(d.Content))
	case "file_path":
		return stringValue(deref(d.FilePath))
	case "doc_id":
		return stringValue(deref(d.DocID))
	}
	return stringValue("")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
