package store

import (
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

// Schema describes one row type sharing the table.
type Schema struct {
	// ObjectType is the object_type attribute value (e.g., "project").
	ObjectType string

	// Public is the attribute allow-list returned on public read paths.
	Public []string

	// Immutable lists attributes a client update may never change.
	Immutable []string

	// New returns a pointer to a zero value to unmarshal the row into.
	New func() any
}

// IsImmutable reports whether attr is in the schema's immutable set.
func (s Schema) IsImmutable(attr string) bool {
	return slices.Contains(s.Immutable, attr)
}

// Registry maps object_type values to schemas so rows of different types can
// be decoded from one query.
type Registry struct {
	byType map[string]Schema
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[string]Schema)}
}

// Register adds a schema to the registry, replacing any schema with the same object type.
func (r *Registry) Register(s Schema) {
	r.byType[s.ObjectType] = s
}

// Lookup returns the schema registered for objectType.
func (r *Registry) Lookup(objectType string) (Schema, bool) {
	s, ok := r.byType[objectType]
	return s, ok
}

// Projection returns the public attribute allow-list for objectType.
func (r *Registry) Projection(objectType string) []string {
	return r.byType[objectType].Public
}

// Decode unmarshals a row into the type registered for its object_type.
func (r *Registry) Decode(item Item) (any, error) {
	objectType := StringAttr(item, AttrObjectType)
	s, ok := r.byType[objectType]
	if !ok || s.New == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownObjectType, objectType)
	}
	out := s.New()
	if err := attributevalue.UnmarshalMap(item, out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", objectType, err)
	}
	return out, nil
}
