package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/starford/graphlens/internal/models"
)

type memSet struct {
	entities []models.Entity
	rels     []models.Relationship
	chunks   []models.Chunk
}

// Memory is an in-memory GraphStore and ChunkStore. Records are grouped by
// dataset; records added through the Add* helpers belong to the "" dataset.
// Node records are kept as added, so duplicates survive into GetAllNodes.
type Memory struct {
	mu    sync.RWMutex
	sets  map[string]*memSet
	order []string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sets: make(map[string]*memSet)}
}

var (
	_ GraphStore  = (*Memory)(nil)
	_ ChunkStore  = (*Memory)(nil)
	_ GraphWriter = (*Memory)(nil)
	_ ChunkWriter = (*Memory)(nil)
)

// AddEntity normalizes a raw node record and stores it.
func (m *Memory) AddEntity(raw map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.set("")
	s.entities = append(s.entities, models.NormalizeEntity(raw))
}

// AddRelationship normalizes a raw edge record and stores it.
func (m *Memory) AddRelationship(raw map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.set("")
	s.rels = append(s.rels, models.NormalizeRelationship(raw))
}

// AddChunk normalizes a raw chunk record and stores it.
func (m *Memory) AddChunk(raw map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.set("")
	s.chunks = append(s.chunks, models.NormalizeChunk(raw))
}

func (m *Memory) set(dataset string) *memSet {
	s, ok := m.sets[dataset]
	if !ok {
		s = &memSet{}
		m.sets[dataset] = s
		m.order = append(m.order, dataset)
	}
	return s
}

func (m *Memory) each(fn func(s *memSet) bool) {
	for _, name := range m.order {
		if !fn(m.sets[name]) {
			return
		}
	}
}

// HasNode implements GraphStore.
func (m *Memory) HasNode(ctx context.Context, id string) (bool, error) {
	e, err := m.GetNode(ctx, id)
	return e != nil, err
}

// GetNode implements GraphStore. Repeated declarations are merged into the
// first one.
func (m *Memory) GetNode(_ context.Context, id string) (*models.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *models.Entity
	m.each(func(s *memSet) bool {
		for i := range s.entities {
			if s.entities[i].ID != id {
				continue
			}
			if found == nil {
				e := s.entities[i]
				e.SourceIDs = slices.Clone(e.SourceIDs)
				e.FilePaths = slices.Clone(e.FilePaths)
				found = &e
				continue
			}
			found.Merge(s.entities[i])
		}
		return true
	})
	return found, nil
}

// GetNodeEdges implements GraphStore. Each (source, target) pair is reported
// once.
func (m *Memory) GetNodeEdges(_ context.Context, id string) ([]models.EdgeKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.EdgeKey
	seen := make(map[models.EdgeKey]struct{})
	m.each(func(s *memSet) bool {
		for _, r := range s.rels {
			if r.Source != id && r.Target != id {
				continue
			}
			k := models.EdgeKey{Source: r.Source, Target: r.Target}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
		return true
	})
	return out, nil
}

// GetEdge implements GraphStore. Edges are undirected for lookup; the stored
// orientation is preferred.
func (m *Memory) GetEdge(_ context.Context, src, dst string) (*models.Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var exact, reversed *models.Relationship
	m.each(func(s *memSet) bool {
		for i := range s.rels {
			r := s.rels[i]
			switch {
			case r.Source == src && r.Target == dst:
				exact = &r
				return false
			case reversed == nil && r.Source == dst && r.Target == src:
				reversed = &r
			}
		}
		return true
	})
	if exact != nil {
		return exact, nil
	}
	return reversed, nil
}

// GetAllNodes implements GraphStore.
func (m *Memory) GetAllNodes(_ context.Context) ([]models.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Entity
	m.each(func(s *memSet) bool {
		out = append(out, s.entities...)
		return true
	})
	return out, nil
}

// GetByIDs implements ChunkStore.
func (m *Memory) GetByIDs(_ context.Context, ids []string) (map[string]*models.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*models.Chunk, len(ids))
	for _, id := range ids {
		out[id] = nil
	}
	m.each(func(s *memSet) bool {
		for i := range s.chunks {
			c := s.chunks[i]
			if existing, wanted := out[c.ID]; wanted && existing == nil {
				out[c.ID] = &c
			}
		}
		return true
	})
	return out, nil
}

// ReplaceGraph implements GraphWriter.
func (m *Memory) ReplaceGraph(_ context.Context, dataset string, entities []models.Entity, rels []models.Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.set(dataset)
	s.entities = append([]models.Entity(nil), entities...)
	s.rels = append([]models.Relationship(nil), rels...)
	return nil
}

// DeleteGraph implements GraphWriter.
func (m *Memory) DeleteGraph(_ context.Context, dataset string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sets[dataset]; ok {
		s.entities, s.rels = nil, nil
	}
	return nil
}

// ReplaceChunks implements ChunkWriter.
func (m *Memory) ReplaceChunks(_ context.Context, dataset string, chunks []models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(dataset).chunks = append([]models.Chunk(nil), chunks...)
	return nil
}

// DeleteChunks implements ChunkWriter.
func (m *Memory) DeleteChunks(_ context.Context, dataset string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sets[dataset]; ok {
		s.chunks = nil
	}
	return nil
}
