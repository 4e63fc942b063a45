package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/graphlens/internal/models"
)

const entityColumns = `id, entity_type, description, source_ids, file_paths, created_at, attrs`

const relationshipColumns = `source, target, description, keywords, weight, file_paths, timestamp, attrs`

type scanner interface {
	Scan(dest ...any) error
}

// HasNode reports whether any dataset declares the entity.
func (db *DB) HasNode(ctx context.Context, id string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx, `SELECT 1 FROM entities WHERE id = ? LIMIT 1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("index: has node: %w", err)
	}
	return true, nil
}

// GetNode returns an entity, or nil. When several datasets declare it, the
// first declaration supplies the fields and the source ids and file paths
// of the others are merged in.
func (db *DB) GetNode(ctx context.Context, id string) (*models.Entity, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("index: get node: %w", err)
	}
	defer rows.Close()

	var node *models.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("index: scan node: %w", err)
		}
		if node == nil {
			node = e
			continue
		}
		node.Merge(*e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index: get node: %w", err)
	}
	return node, nil
}

// GetNodeEdges returns each stored (source, target) pair touching id once,
// however many datasets declare it.
func (db *DB) GetNodeEdges(ctx context.Context, id string) ([]models.EdgeKey, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT source, target
		FROM relationships
		WHERE source = ? OR target = ?
		GROUP BY source, target
		ORDER BY min(seq)`, id, id)
	if err != nil {
		return nil, fmt.Errorf("index: node edges: %w", err)
	}
	defer rows.Close()

	var out []models.EdgeKey
	for rows.Next() {
		var k models.EdgeKey
		if err := rows.Scan(&k.Source, &k.Target); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// GetEdge returns the edge between src and dst in either orientation,
// preferring the stored one, or nil.
func (db *DB) GetEdge(ctx context.Context, src, dst string) (*models.Relationship, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+relationshipColumns+`
		FROM relationships
		WHERE (source = ? AND target = ?) OR (source = ? AND target = ?)
		ORDER BY (source = ?) DESC, seq
		LIMIT 1`, src, dst, dst, src, src)
	r, err := scanRelationship(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get edge: %w", err)
	}
	return r, nil
}

// GetAllNodes returns every entity row, including repeated declarations.
func (db *DB) GetAllNodes(ctx context.Context) ([]models.Entity, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+entityColumns+` FROM entities ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("index: all nodes: %w", err)
	}
	defer rows.Close()

	var out []models.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("index: scan node: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// CountEntities returns the number of distinct entity ids.
func (db *DB) CountEntities(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(DISTINCT id) FROM entities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count entities: %w", err)
	}
	return n, nil
}

// GetByIDs resolves chunks by id. Every requested id is present in the
// result; unresolved ids map to nil.
func (db *DB) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Chunk, error) {
	out := make(map[string]*models.Chunk, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		out[id] = nil
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, content, file_path, doc_id, order_index, tokens, timestamp
		FROM chunks WHERE id IN (`+placeholders+`) ORDER BY seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: get chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c             models.Chunk
			order, tokens sql.NullInt64
			ts            sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Content, &c.FilePath, &c.DocID, &order, &tokens, &ts); err != nil {
			return nil, fmt.Errorf("index: scan chunk: %w", err)
		}
		if out[c.ID] != nil {
			continue
		}
		c.OrderIndex = intPtr(order)
		c.Tokens = intPtr(tokens)
		c.Timestamp = int64Ptr(ts)
		out[c.ID] = &c
	}
	return out, rows.Err()
}

func scanEntity(s scanner) (*models.Entity, error) {
	var (
		e              models.Entity
		sources, files string
		created        sql.NullInt64
		attrs          string
	)
	if err := s.Scan(&e.ID, &e.Type, &e.Description, &sources, &files, &created, &attrs); err != nil {
		return nil, err
	}
	e.SourceIDs = models.SplitField(sources)
	e.FilePaths = models.SplitField(files)
	e.CreatedAt = int64Ptr(created)
	e.Attributes = decodeAttrs(attrs)
	return &e, nil
}

func scanRelationship(s scanner) (*models.Relationship, error) {
	var (
		r      models.Relationship
		weight sql.NullFloat64
		files  string
		ts     sql.NullInt64
		attrs  string
	)
	if err := s.Scan(&r.Source, &r.Target, &r.Description, &r.Keywords, &weight, &files, &ts, &attrs); err != nil {
		return nil, err
	}
	if weight.Valid {
		w := weight.Float64
		r.Weight = &w
	}
	r.FilePaths = models.SplitField(files)
	r.Timestamp = int64Ptr(ts)
	r.Attributes = decodeAttrs(attrs)
	return &r, nil
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
