// Package boltstore provides a bbolt-backed chunk store.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/starford/graphlens/internal/models"
	"github.com/starford/graphlens/internal/storage"
)

// bucketDatasets holds one nested bucket per dataset, keyed by chunk id.
var bucketDatasets = []byte("datasets")

// Store keeps chunks as JSON values in bbolt.
type Store struct {
	db *bbolt.DB
}

var (
	_ storage.ChunkStore  = (*Store)(nil)
	_ storage.ChunkWriter = (*Store)(nil)
)

// Open opens (or creates) the bbolt file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDatasets)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: create buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetByIDs resolves chunks by id. When several datasets carry the same id,
// the dataset that sorts first wins.
func (s *Store) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Chunk, error) {
	out := make(map[string]*models.Chunk, len(ids))
	for _, id := range ids {
		out[id] = nil
	}
	if len(ids) == 0 {
		return out, nil
	}
	err := s.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketDatasets)
		return root.ForEach(func(name, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if v != nil {
				return nil
			}
			b := root.Bucket(name)
			for _, id := range ids {
				if out[id] != nil {
					continue
				}
				data := b.Get([]byte(id))
				if data == nil {
					continue
				}
				var c models.Chunk
				if err := json.Unmarshal(data, &c); err != nil {
					return fmt.Errorf("chunk %q: %w", id, err)
				}
				out[id] = &c
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: get chunks: %w", err)
	}
	return out, nil
}

// ReplaceChunks swaps the chunks owned by a dataset in one transaction.
func (s *Store) ReplaceChunks(_ context.Context, dataset string, chunks []models.Chunk) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketDatasets)
		if root.Bucket([]byte(dataset)) != nil {
			if err := root.DeleteBucket([]byte(dataset)); err != nil {
				return err
			}
		}
		b, err := root.CreateBucket([]byte(dataset))
		if err != nil {
			return err
		}
		for _, c := range chunks {
			data, err := json.Marshal(c)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(c.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("boltstore: replace chunks: %w", err)
	}
	return nil
}

// DeleteChunks removes the chunks owned by a dataset.
func (s *Store) DeleteChunks(_ context.Context, dataset string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketDatasets)
		if root.Bucket([]byte(dataset)) == nil {
			return nil
		}
		return root.DeleteBucket([]byte(dataset))
	})
	if err != nil {
		return fmt.Errorf("boltstore: delete chunks: %w", err)
	}
	return nil
}
