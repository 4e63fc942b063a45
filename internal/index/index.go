package index

import (
	"context"

	"github.com/starford/graphlens/internal/storage"
)

// Catalog tracks which dataset files were imported and their checksums.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Catalog interface {
	AllChecksums(ctx context.Context) (map[string]string, error)
	PutChecksum(ctx context.Context, dataset, checksum string) error
	DeleteDataset(ctx context.Context, dataset string) error
}

// Verify *DB satisfies the store contracts at compile time.
var (
	_ storage.GraphStore  = (*DB)(nil)
	_ storage.ChunkStore  = (*DB)(nil)
	_ storage.GraphWriter = (*DB)(nil)
	_ storage.ChunkWriter = (*DB)(nil)
	_ Catalog             = (*DB)(nil)
)
