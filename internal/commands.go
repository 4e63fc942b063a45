package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/graphlens/internal/dataset"
	"github.com/starford/graphlens/internal/mcpserver"
	"github.com/starford/graphlens/internal/query"
)

// Sync imports the dataset directory once and reports what changed.
func Sync(ctx context.Context, opts ...Option) (dataset.Report, error) {
	app, err := newApplication(opts)
	if err != nil {
		return dataset.Report{}, err
	}
	logger := newLogger(app.config, app.logOutput)

	st, err := openStores(app.config)
	if err != nil {
		return dataset.Report{}, err
	}
	defer st.Close()

	rep, err := st.importer(app.config, logger, nil).Sync(ctx)
	if err != nil {
		return rep, fmt.Errorf("sync: %w", err)
	}
	logger.Info("sync done",
		slog.Int("imported", rep.Imported),
		slog.Int("skipped", rep.Skipped),
		slog.Int("removed", rep.Removed),
		slog.Int("failed", rep.Failed))
	return rep, nil
}

// ServeMCP syncs the dataset directory and serves MCP tools over stdio.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, app.logOutput)

	st, err := openStores(app.config)
	if err != nil {
		return err
	}
	defer st.Close()

	importer := st.importer(app.config, logger, nil)
	if _, err := importer.Sync(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	srv := mcpserver.New(st.engine(app.config, logger), importer)
	logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}

// QueryEntity prints the full query result for one entity as JSON.
func QueryEntity(ctx context.Context, name string, qopts query.Options, opts ...Option) error {
	return withEngine(opts, func(engine *query.Engine) (any, error) {
		return engine.QueryEntityFull(ctx, name, qopts)
	})
}

// SearchEntities prints the search hits for text as JSON.
func SearchEntities(ctx context.Context, text string, entityTypes []string, limit int, opts ...Option) error {
	return withEngine(opts, func(engine *query.Engine) (any, error) {
		return engine.SearchEntities(ctx, text, entityTypes, limit)
	})
}

// withEngine opens the stores read-side, runs fn and prints its result. The
// dataset directory is not re-read; run sync first when it changed.
func withEngine(opts []Option, fn func(*query.Engine) (any, error)) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, app.logOutput)

	st, err := openStores(app.config)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := fn(st.engine(app.config, logger))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(app.output)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
