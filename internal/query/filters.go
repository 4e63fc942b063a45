package query

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/graphlens/internal/apperr"
)

// Direction selects relationships relative to the queried entity.
type Direction string

// Relationship directions.
const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
	DirectionBoth     Direction = "both"
)

func (d Direction) includes(dir Direction) bool {
	return d == DirectionBoth || d == dir
}

// SortOrder is the order applied to the sort field.
type SortOrder string

// Sort orders.
const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// RelationshipFilter selects, orders and pages the relationships of an entity.
//
// Nil slices and nil pointers mean "do not filter on this dimension".
// Scalar fields always apply: build filters with DefaultRelationshipFilter or
// NewRelationshipFilter so they start from the documented defaults
// (both directions, weight range [0, 1], offset 0, sort by weight descending).
type RelationshipFilter struct {
	Direction Direction `json:"direction"`
	// RelationTypes match case-insensitively as substrings of the edge keywords.
	RelationTypes []string `json:"relation_types,omitempty"`
	// RelatedEntityTypes match the neighbor node type exactly, ignoring case.
	RelatedEntityTypes []string `json:"related_entity_types,omitempty"`
	MinWeight          float64  `json:"min_weight"`
	MaxWeight          float64  `json:"max_weight"`
	// Keywords match case-insensitively against description and keywords.
	Keywords  []string `json:"keywords,omitempty"`
	FilePaths []string `json:"file_paths,omitempty"`
	// DateFrom and DateTo bound the edge timestamp, inclusive. Edges without
	// a timestamp are never excluded by them.
	DateFrom *int64 `json:"date_from,omitempty"`
	DateTo   *int64 `json:"date_to,omitempty"`
	// Limit applies to each direction separately; nil means unlimited.
	Limit     *int      `json:"limit,omitempty"`
	Offset    int       `json:"offset"`
	SortBy    string    `json:"sort_by"`
	SortOrder SortOrder `json:"sort_order"`
}

// DefaultRelationshipFilter returns the filter used when a caller supplies none.
func DefaultRelationshipFilter() RelationshipFilter {
	return RelationshipFilter{
		Direction: DirectionBoth,
		MinWeight: 0.0,
		MaxWeight: 1.0,
		SortBy:    "weight",
		SortOrder: SortDesc,
	}
}

// NewRelationshipFilter applies mods to the default filter and validates the result.
func NewRelationshipFilter(mods ...func(*RelationshipFilter)) (RelationshipFilter, error) {
	f := DefaultRelationshipFilter()
	for _, mod := range mods {
		mod(&f)
	}
	if err := f.Validate(); err != nil {
		return RelationshipFilter{}, err
	}
	return f, nil
}

// Validate checks the filter invariants.
func (f RelationshipFilter) Validate() error {
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Direction, validation.Required, validation.In(DirectionIncoming, DirectionOutgoing, DirectionBoth)),
		validation.Field(&f.MinWeight, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&f.MaxWeight, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&f.Limit, validation.By(atLeastOne)),
		validation.Field(&f.Offset, validation.Min(0)),
		validation.Field(&f.SortBy, validation.Required),
		validation.Field(&f.SortOrder, validation.Required, validation.In(SortAsc, SortDesc)),
	)
	if err == nil && f.MinWeight > f.MaxWeight {
		err = errors.New("min_weight cannot be greater than max_weight")
	}
	if err != nil {
		return fmt.Errorf("%w: relationship filter: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

// DocumentFilter selects, formats, orders and pages the source chunks of an entity.
//
// Nil slices and nil pointers mean "do not filter on this dimension". Build
// filters with DefaultDocumentFilter or NewDocumentFilter so the scalar fields
// start from their defaults (100 chunks, offset 0, text and metadata
// included, sort by timestamp descending).
type DocumentFilter struct {
	FilePaths []string `json:"file_paths,omitempty"`
	DocIDs    []string `json:"doc_ids,omitempty"`
	// ChunkIDs is intersected with the entity's source chunks before fetching.
	ChunkIDs        []string  `json:"chunk_ids,omitempty"`
	DateFrom        *int64    `json:"date_from,omitempty"`
	DateTo          *int64    `json:"date_to,omitempty"`
	MaxChunks       int       `json:"max_chunks"`
	Offset          int       `json:"offset"`
	IncludeFullText bool      `json:"include_full_text"`
	IncludeMetadata bool      `json:"include_metadata"`
	SortBy          string    `json:"sort_by"`
	SortOrder       SortOrder `json:"sort_order"`
}

// DefaultDocumentFilter returns the filter used when a caller supplies none.
func DefaultDocumentFilter() DocumentFilter {
	return DocumentFilter{
		MaxChunks:       100,
		IncludeFullText: true,
		IncludeMetadata: true,
		SortBy:          "timestamp",
		SortOrder:       SortDesc,
	}
}

// NewDocumentFilter applies mods to the default filter and validates the result.
func NewDocumentFilter(mods ...func(*DocumentFilter)) (DocumentFilter, error) {
	f := DefaultDocumentFilter()
	for _, mod := range mods {
		mod(&f)
	}
	if err := f.Validate(); err != nil {
		return DocumentFilter{}, err
	}
	return f, nil
}

// Validate checks the filter invariants.
func (f DocumentFilter) Validate() error {
	err := validation.ValidateStruct(&f,
		validation.Field(&f.MaxChunks, validation.Required.Error("must be at least 1"), validation.Min(1)),
		validation.Field(&f.Offset, validation.Min(0)),
		validation.Field(&f.SortBy, validation.Required),
		validation.Field(&f.SortOrder, validation.Required, validation.In(SortAsc, SortDesc)),
	)
	if err != nil {
		return fmt.Errorf("%w: document filter: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

// ListFilter selects and pages the entity listing.
type ListFilter struct {
	// EntityTypes match the node type exactly, ignoring case.
	EntityTypes []string `json:"entity_types,omitempty"`
	// NamePattern matches the entity id as a case-insensitive substring.
	NamePattern string    `json:"name_pattern,omitempty"`
	Limit       int       `json:"limit"`
	Offset      int       `json:"offset"`
	SortBy      string    `json:"sort_by"`
	SortOrder   SortOrder `json:"sort_order"`
}

// DefaultListFilter returns the listing defaults: 100 entities by id ascending.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit:     100,
		SortBy:    "entity_id",
		SortOrder: SortAsc,
	}
}

// NewListFilter applies mods to the default filter and validates the result.
func NewListFilter(mods ...func(*ListFilter)) (ListFilter, error) {
	f := DefaultListFilter()
	for _, mod := range mods {
		mod(&f)
	}
	if err := f.Validate(); err != nil {
		return ListFilter{}, err
	}
	return f, nil
}

// Validate checks the filter invariants.
func (f ListFilter) Validate() error {
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Limit, validation.Required.Error("must be at least 1"), validation.Min(1)),
		validation.Field(&f.Offset, validation.Min(0)),
		validation.Field(&f.SortBy, validation.Required),
		validation.Field(&f.SortOrder, validation.Required, validation.In(SortAsc, SortDesc)),
	)
	if err != nil {
		return fmt.Errorf("%w: list filter: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

// Options toggles the stages of a full entity query.
type Options struct {
	IncludeEntityDetails   bool `json:"include_entity_details"`
	IncludeRelationships   bool `json:"include_relationships"`
	IncludeDocuments       bool `json:"include_documents"`
	IncludeStatistics      bool `json:"include_statistics"`
	ComputeRelatedEntities bool `json:"compute_related_entities"`
	MaxRelatedEntities     int  `json:"max_related_entities"`
	// RelationshipFilter and DocumentFilter fall back to their defaults when nil.
	RelationshipFilter *RelationshipFilter `json:"relationship_filter,omitempty"`
	DocumentFilter     *DocumentFilter     `json:"document_filter,omitempty"`
}

// DefaultOptions runs every stage except related-entity extraction.
func DefaultOptions() Options {
	return Options{
		IncludeEntityDetails: true,
		IncludeRelationships: true,
		IncludeDocuments:     true,
		IncludeStatistics:    true,
		MaxRelatedEntities:   50,
	}
}

// NewOptions applies mods to the default options and validates the result.
func NewOptions(mods ...func(*Options)) (Options, error) {
	o := DefaultOptions()
	for _, mod := range mods {
		mod(&o)
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}

// Validate checks the options and any filters they carry.
func (o Options) Validate() error {
	err := validation.ValidateStruct(&o,
		validation.Field(&o.MaxRelatedEntities, validation.Required.Error("must be at least 1"), validation.Min(1)),
	)
	if err != nil {
		return fmt.Errorf("%w: query options: %v", apperr.ErrInvalidInput, err)
	}
	if o.RelationshipFilter != nil {
		if err := o.RelationshipFilter.Validate(); err != nil {
			return err
		}
	}
	if o.DocumentFilter != nil {
		if err := o.DocumentFilter.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (o Options) relationshipFilter() RelationshipFilter {
	if o.RelationshipFilter == nil {
		return DefaultRelationshipFilter()
	}
	return *o.RelationshipFilter
}

func (o Options) documentFilter() DocumentFilter {
	if o.DocumentFilter == nil {
		return DefaultDocumentFilter()
	}
	return *o.DocumentFilter
}

func atLeastOne(value any) error {
	if n, ok := value.(*int); ok && n != nil && *n < 1 {
		return errors.New("must be at least 1")
	}
	return nil
}
