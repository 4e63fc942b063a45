// Package dataset imports knowledge-graph files (entities, relationships and
// text chunks) from a directory into the graph and chunk stores.
package dataset

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/graphlens/internal/models"
)

// File is the normalized content of one dataset file.
type File struct {
	Entities      []models.Entity
	Relationships []models.Relationship
	Chunks        []models.Chunk
}

type rawFile struct {
	Entities      []map[string]any `yaml:"entities" json:"entities"`
	Relationships []map[string]any `yaml:"relationships" json:"relationships"`
	Chunks        []map[string]any `yaml:"chunks" json:"chunks"`
}

// Supported reports whether name has a dataset file extension.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return !strings.HasPrefix(filepath.Base(name), ".")
	}
	return false
}

// Parse decodes a YAML or JSON dataset file and normalizes its records.
// Records without an identifier are rejected.
func Parse(data []byte) (*File, error) {
	var raw rawFile
	// JSON documents may be tab-indented, which YAML rejects.
	unmarshal := yaml.Unmarshal
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		unmarshal = json.Unmarshal
	}
	if err := unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("dataset: decode: %w", err)
	}

	f := &File{
		Entities:      make([]models.Entity, 0, len(raw.Entities)),
		Relationships: make([]models.Relationship, 0, len(raw.Relationships)),
		Chunks:        make([]models.Chunk, 0, len(raw.Chunks)),
	}
	for i, rec := range raw.Entities {
		e := models.NormalizeEntity(rec)
		if e.ID == "" {
			return nil, fmt.Errorf("dataset: entity #%d has no id", i+1)
		}
		f.Entities = append(f.Entities, e)
	}
	for i, rec := range raw.Relationships {
		r := models.NormalizeRelationship(rec)
		if r.Source == "" || r.Target == "" {
			return nil, fmt.Errorf("dataset: relationship #%d needs source and target", i+1)
		}
		f.Relationships = append(f.Relationships, r)
	}
	for i, rec := range raw.Chunks {
		c := models.NormalizeChunk(rec)
		if c.ID == "" {
			return nil, fmt.Errorf("dataset: chunk #%d has no id", i+1)
		}
		f.Chunks = append(f.Chunks, c)
	}
	return f, nil
}

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
