package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Alias groups, in precedence order. A record may carry any member of a group;
// the first non-empty one wins and the rest are discarded.
var (
	entityIDKeys   = []string{"id", "entity_name", "name"}
	sourceIDKeys   = []string{"source_id", "source_ids"}
	filePathKeys   = []string{"file_path", "file_paths"}
	entityTimeKeys = []string{"created_at", "timestamp"}
	recordTimeKeys = []string{"timestamp", "created_at"}
	edgeSourceKeys = []string{"src_id", "source"}
	edgeTargetKeys = []string{"tgt_id", "target"}
	chunkIDKeys    = []string{"id", "chunk_id"}
	docIDKeys      = []string{"full_doc_id", "doc_id"}
)

// NormalizeEntity converts a loosely-typed node record into an Entity.
// The returned entity has an empty ID when no identifier key is set.
func NormalizeEntity(raw map[string]any) Entity {
	e := Entity{
		ID:          firstString(raw, entityIDKeys...),
		Type:        firstString(raw, "entity_type"),
		Description: firstString(raw, "description"),
		SourceIDs:   SplitField(firstValue(raw, sourceIDKeys...)),
		FilePaths:   SplitField(firstValue(raw, filePathKeys...)),
		CreatedAt:   firstTimestamp(raw, entityTimeKeys...),
	}
	e.Attributes = leftovers(raw, entityIDKeys, sourceIDKeys, filePathKeys, entityTimeKeys,
		[]string{"entity_type", "description"})
	return e
}

// NormalizeRelationship converts a loosely-typed edge record into a Relationship.
func NormalizeRelationship(raw map[string]any) Relationship {
	r := Relationship{
		Source:      firstString(raw, edgeSourceKeys...),
		Target:      firstString(raw, edgeTargetKeys...),
		Description: firstString(raw, "description"),
		Keywords:    joinKeywords(raw["keywords"]),
		FilePaths:   SplitField(firstValue(raw, filePathKeys...)),
		Timestamp:   firstTimestamp(raw, recordTimeKeys...),
	}
	if w, ok := toFloat(raw["weight"]); ok {
		r.Weight = &w
	}
	r.Attributes = leftovers(raw, edgeSourceKeys, edgeTargetKeys, filePathKeys, recordTimeKeys,
		[]string{"description", "keywords", "weight"})
	return r
}

// NormalizeChunk converts a loosely-typed chunk record into a Chunk.
func NormalizeChunk(raw map[string]any) Chunk {
	c := Chunk{
		ID:        firstString(raw, chunkIDKeys...),
		Content:   firstString(raw, "content"),
		FilePath:  firstString(raw, "file_path"),
		DocID:     firstString(raw, docIDKeys...),
		Timestamp: firstTimestamp(raw, recordTimeKeys...),
	}
	if n, ok := toInt64(raw["chunk_order_index"]); ok {
		idx := int(n)
		c.OrderIndex = &idx
	}
	if n, ok := toInt64(raw["tokens"]); ok {
		tok := int(n)
		c.Tokens = &tok
	}
	return c
}

// SplitField returns the values of a multi-valued attribute stored either as a
// FieldSep-joined string or as a list. Empty values are dropped.
func SplitField(v any) []string {
	var parts []string
	switch t := v.(type) {
	case nil:
		return []string{}
	case string:
		parts = strings.Split(t, FieldSep)
	case []string:
		parts = t
	case []any:
		parts = make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			parts = append(parts, stringify(item))
		}
	default:
		return []string{}
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinField is the inverse of SplitField for stores that keep one string column.
func JoinField(values []string) string {
	return strings.Join(values, FieldSep)
}

func firstValue(raw map[string]any, keys ...string) any {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || isEmpty(v) {
			continue
		}
		return v
	}
	return nil
}

func firstString(raw map[string]any, keys ...string) string {
	v := firstValue(raw, keys...)
	if v == nil {
		return ""
	}
	return stringify(v)
}

func firstTimestamp(raw map[string]any, keys ...string) *int64 {
	for _, k := range keys {
		if ts, ok := toInt64(raw[k]); ok && ts != 0 {
			return &ts
		}
	}
	return nil
}

func joinKeywords(v any) string {
	switch t := v.(type) {
	case []any, []string:
		return strings.Join(SplitField(t), ",")
	case nil:
		return ""
	default:
		return stringify(t)
	}
}

func leftovers(raw map[string]any, groups ...[]string) map[string]any {
	known := make(map[string]struct{})
	for _, g := range groups {
		for _, k := range g {
			known[k] = struct{}{}
		}
	}
	var out map[string]any
	for k, v := range raw {
		if _, ok := known[k]; ok {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[k] = v
	}
	return out
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}

func stringify(v any) string {
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}

// toFloat converts numbers and numeric strings. Missing values and booleans
// are not weights.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		v = strings.TrimSpace(t)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toInt64 converts numbers, numeric strings and YAML timestamps.
func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case nil, bool:
		return 0, false
	case time.Time:
		return t.Unix(), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
	case string:
		v = strings.TrimSpace(t)
	}
	n, err := cast.ToInt64E(v)
	return n, err == nil
}
