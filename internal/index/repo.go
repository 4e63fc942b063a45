package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/starford/graphlens/internal/models"
)

// ReplaceGraph swaps the entities and relationships owned by a dataset within
// one transaction.
func (db *DB) ReplaceGraph(ctx context.Context, dataset string, entities []models.Entity, rels []models.Relationship) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := deleteGraph(ctx, tx, dataset); err != nil {
		return err
	}

	if len(entities) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO entities (dataset, id, entity_type, description, source_ids, file_paths, created_at, attrs)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare entity insert: %w", err)
		}
		defer stmt.Close()
		for _, e := range entities {
			_, err := stmt.ExecContext(ctx, dataset, e.ID, e.Type, e.Description,
				models.JoinField(e.SourceIDs), models.JoinField(e.FilePaths),
				nullInt(e.CreatedAt), encodeAttrs(e.Attributes))
			if err != nil {
				return fmt.Errorf("index: insert entity %q: %w", e.ID, err)
			}
		}
	}

	if len(rels) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO relationships (dataset, source, target, description, keywords, weight, file_paths, timestamp, attrs)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare relationship insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range rels {
			var weight sql.NullFloat64
			if r.Weight != nil {
				weight = sql.NullFloat64{Float64: *r.Weight, Valid: true}
			}
			_, err := stmt.ExecContext(ctx, dataset, r.Source, r.Target, r.Description, r.Keywords,
				weight, models.JoinField(r.FilePaths), nullInt(r.Timestamp), encodeAttrs(r.Attributes))
			if err != nil {
				return fmt.Errorf("index: insert relationship %s->%s: %w", r.Source, r.Target, err)
			}
		}
	}

	return tx.Commit()
}

// DeleteGraph removes the entities and relationships owned by a dataset.
func (db *DB) DeleteGraph(ctx context.Context, dataset string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteGraph(ctx, tx, dataset); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteGraph(ctx context.Context, tx *sql.Tx, dataset string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM relationships WHERE dataset = ?`, dataset); err != nil {
		return fmt.Errorf("index: delete relationships: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE dataset = ?`, dataset); err != nil {
		return fmt.Errorf("index: delete entities: %w", err)
	}
	return nil
}

// ReplaceChunks swaps the chunks owned by a dataset within one transaction.
func (db *DB) ReplaceChunks(ctx context.Context, dataset string, chunks []models.Chunk) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE dataset = ?`, dataset); err != nil {
		return fmt.Errorf("index: delete chunks: %w", err)
	}
	if len(chunks) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (dataset, id, content, file_path, doc_id, order_index, tokens, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare chunk insert: %w", err)
		}
		defer stmt.Close()
		for _, c := range chunks {
			_, err := stmt.ExecContext(ctx, dataset, c.ID, c.Content, c.FilePath, c.DocID,
				nullSmallInt(c.OrderIndex), nullSmallInt(c.Tokens), nullInt(c.Timestamp))
			if err != nil {
				return fmt.Errorf("index: insert chunk %q: %w", c.ID, err)
			}
		}
	}
	return tx.Commit()
}

// DeleteChunks removes the chunks owned by a dataset.
func (db *DB) DeleteChunks(ctx context.Context, dataset string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM chunks WHERE dataset = ?`, dataset); err != nil {
		return fmt.Errorf("index: delete chunks: %w", err)
	}
	return nil
}

// AllChecksums returns the checksum of every imported dataset keyed by name.
func (db *DB) AllChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT name, checksum FROM datasets`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var name, cs string
		if err := rows.Scan(&name, &cs); err != nil {
			return nil, err
		}
		out[name] = cs
	}
	return out, rows.Err()
}

// PutChecksum records a successful import of a dataset.
func (db *DB) PutChecksum(ctx context.Context, dataset, checksum string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO datasets (name, checksum, imported_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			checksum    = excluded.checksum,
			imported_at = excluded.imported_at
	`, dataset, checksum)
	if err != nil {
		return fmt.Errorf("index: put checksum: %w", err)
	}
	return nil
}

// DeleteDataset forgets a dataset. Its graph and chunk rows are removed
// separately through DeleteGraph and DeleteChunks.
func (db *DB) DeleteDataset(ctx context.Context, dataset string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM datasets WHERE name = ?`, dataset); err != nil {
		return fmt.Errorf("index: delete dataset: %w", err)
	}
	return nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullSmallInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func encodeAttrs(attrs map[string]any) string {
	if len(attrs) == 0 {
		return "{}"
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func decodeAttrs(s string) map[string]any {
	if s == "" || s == "{}" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil || len(out) == 0 {
		return nil
	}
	return out
}
