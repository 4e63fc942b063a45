package internal

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/starford/graphlens/internal/boltstore"
	"github.com/starford/graphlens/internal/dataset"
	"github.com/starford/graphlens/internal/index"
	"github.com/starford/graphlens/internal/query"
	"github.com/starford/graphlens/internal/storage"
)

type chunkBackend interface {
	storage.ChunkStore
	storage.ChunkWriter
}

// stores owns the graph index and the configured chunk backend.
type stores struct {
	db     *index.DB
	chunks chunkBackend
	bolt   *boltstore.Store
}

func openStores(cfg *Config) (*stores, error) {
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	s := &stores{db: db, chunks: db}

	if cfg.Chunks.Backend == ChunkBackendBolt {
		bs, err := boltstore.Open(cfg.Chunks.BoltPath)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init chunk store: %w", err)
		}
		s.bolt = bs
		s.chunks = bs
	}
	return s, nil
}

func (s *stores) Close() {
	if s.bolt != nil {
		if err := s.bolt.Close(); err != nil {
			slog.Error("close chunk store", slog.String("error", err.Error()))
		}
	}
	if err := s.db.Close(); err != nil {
		slog.Error("close index", slog.String("error", err.Error()))
	}
}

func (s *stores) engine(cfg *Config, logger *slog.Logger) *query.Engine {
	return query.New(s.db, s.chunks,
		query.WithLogger(logger),
		query.WithMaxParallel(cfg.Query.MaxParallel),
	)
}

func (s *stores) importer(cfg *Config, logger *slog.Logger, cb dataset.EventCallback) *dataset.Importer {
	opts := []dataset.ImporterOption{dataset.WithLogger(logger)}
	if cb != nil {
		opts = append(opts, dataset.WithCallback(cb))
	}
	return dataset.NewImporter(cfg.Dataset.Path, s.db, s.chunks, s.db, opts...)
}

// newLogger builds the JSON logger and installs it as the process default.
func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}
