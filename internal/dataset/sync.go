package dataset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/graphlens/internal/index"
	"github.com/starford/graphlens/internal/storage"
)

// EventKind classifies a dataset change.
type EventKind string

// Dataset change kinds.
const (
	EventImported EventKind = "imported"
	EventRemoved  EventKind = "removed"
	EventFailed   EventKind = "failed"
)

// Event describes one dataset change. Name is the slash-separated path
// relative to the dataset root.
type Event struct {
	Kind          EventKind `json:"kind"`
	Name          string    `json:"name"`
	Entities      int       `json:"entities,omitempty"`
	Relationships int       `json:"relationships,omitempty"`
	Chunks        int       `json:"chunks,omitempty"`
	Err           error     `json:"-"`
}

// EventCallback is called after every dataset change, including failures.
type EventCallback func(Event)

// Report summarizes a Sync pass.
type Report struct {
	Imported int
	Skipped  int
	Removed  int
	Failed   int
}

// Importer keeps the stores in line with the files under a root directory.
type Importer struct {
	src     *storage.FS
	graph   storage.GraphWriter
	chunks  storage.ChunkWriter
	catalog index.Catalog
	logger  *slog.Logger
	cb      EventCallback
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithLogger sets the importer logger.
func WithLogger(l *slog.Logger) ImporterOption {
	return func(im *Importer) {
		if l != nil {
			im.logger = l
		}
	}
}

// WithCallback registers a callback for dataset changes.
func WithCallback(cb EventCallback) ImporterOption {
	return func(im *Importer) { im.cb = cb }
}

// NewImporter creates an importer for the dataset directory root.
func NewImporter(root string, graph storage.GraphWriter, chunks storage.ChunkWriter, catalog index.Catalog, opts ...ImporterOption) *Importer {
	im := &Importer{
		src:     storage.NewFS(root),
		graph:   graph,
		chunks:  chunks,
		catalog: catalog,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Root returns the watched directory.
func (im *Importer) Root() string { return im.src.Root() }

// Sync walks the root and brings the stores up to date:
//   - new/changed files are parsed and imported
//   - datasets whose files are gone are removed
//
// A file that fails to import is logged and counted; it does not abort the pass.
func (im *Importer) Sync(ctx context.Context) (Report, error) {
	var rep Report

	names, err := im.list()
	if err != nil {
		return rep, err
	}
	checksums, err := im.catalog.AllChecksums(ctx)
	if err != nil {
		return rep, err
	}

	disk := make(map[string]struct{}, len(names))
	for _, name := range names {
		disk[name] = struct{}{}
		imported, err := im.importFile(ctx, name, checksums[name])
		switch {
		case err != nil:
			rep.Failed++
		case imported:
			rep.Imported++
		default:
			rep.Skipped++
		}
	}

	for name := range checksums {
		if _, ok := disk[name]; ok {
			continue
		}
		if err := im.Remove(ctx, name); err != nil {
			im.logger.Warn("sync: remove failed", slog.String("dataset", name), slog.String("error", err.Error()))
			continue
		}
		rep.Removed++
	}

	im.logger.Info("sync: done",
		slog.Int("imported", rep.Imported),
		slog.Int("skipped", rep.Skipped),
		slog.Int("removed", rep.Removed),
		slog.Int("failed", rep.Failed))
	return rep, nil
}

// Import (re)imports one dataset file unless its checksum is unchanged.
func (im *Importer) Import(ctx context.Context, name string) (bool, error) {
	checksums, err := im.catalog.AllChecksums(ctx)
	if err != nil {
		return false, err
	}
	return im.importFile(ctx, name, checksums[name])
}

func (im *Importer) importFile(ctx context.Context, name, known string) (bool, error) {
	data, err := im.src.Read(name)
	if err != nil {
		return false, im.fail(name, err)
	}
	sum := Checksum(data)
	if sum == known {
		return false, nil
	}

	f, err := Parse(data)
	if err != nil {
		return false, im.fail(name, fmt.Errorf("%w (%s)", err, name))
	}
	if err := im.graph.ReplaceGraph(ctx, name, f.Entities, f.Relationships); err != nil {
		return false, im.fail(name, err)
	}
	if err := im.chunks.ReplaceChunks(ctx, name, f.Chunks); err != nil {
		return false, im.fail(name, err)
	}
	// The checksum is recorded last so a partial import is retried next pass.
	if err := im.catalog.PutChecksum(ctx, name, sum); err != nil {
		return false, im.fail(name, err)
	}

	im.logger.Debug("dataset imported",
		slog.String("dataset", name),
		slog.Int("entities", len(f.Entities)),
		slog.Int("relationships", len(f.Relationships)),
		slog.Int("chunks", len(f.Chunks)))
	im.emit(Event{
		Kind:          EventImported,
		Name:          name,
		Entities:      len(f.Entities),
		Relationships: len(f.Relationships),
		Chunks:        len(f.Chunks),
	})
	return true, nil
}

// Remove deletes every record owned by a dataset and forgets its checksum.
func (im *Importer) Remove(ctx context.Context, name string) error {
	if err := im.graph.DeleteGraph(ctx, name); err != nil {
		return err
	}
	if err := im.chunks.DeleteChunks(ctx, name); err != nil {
		return err
	}
	if err := im.catalog.DeleteDataset(ctx, name); err != nil {
		return err
	}
	im.logger.Debug("dataset removed", slog.String("dataset", name))
	im.emit(Event{Kind: EventRemoved, Name: name})
	return nil
}

func (im *Importer) fail(name string, err error) error {
	im.logger.Warn("dataset import failed", slog.String("dataset", name), slog.String("error", err.Error()))
	im.emit(Event{Kind: EventFailed, Name: name, Err: err})
	return err
}

func (im *Importer) emit(ev Event) {
	if im.cb != nil {
		im.cb(ev)
	}
}

// list returns the names of all dataset files under the root.
func (im *Importer) list() ([]string, error) {
	names, err := im.src.List(Supported)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	return names, nil
}
