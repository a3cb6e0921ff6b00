package document

import (
	"fmt"
	"maps"
	"slices"
)

// MaxIDLength bounds the store identifier that becomes the index document id.
const MaxIDLength = 512

// Document is a snapshot of a store document handed to the mapper (immutable value object).
type Document struct {
	id      string
	fields  map[string]any
	version int64
}

// New validates and creates a Document.
// ID: non-empty, max 512 chars. Fields are shallow-copied so later store
// mutations do not leak into an already published operation.
func New(id string, fields map[string]any, version int64) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > MaxIDLength {
		return Document{}, fmt.Errorf("document ID too long (max %d)", MaxIDLength)
	}
	if version < 0 {
		return Document{}, fmt.Errorf("document version must be >= 0")
	}
	return Document{id: id, fields: maps.Clone(fields), version: version}, nil
}

// Reconstruct creates a Document without validation (change-stream hydration).
func Reconstruct(id string, fields map[string]any, version int64) Document {
	return Document{id: id, fields: fields, version: version}
}

// ID returns the store identifier.
func (d Document) ID() string { return d.id }

// Version returns the store version tag, 0 when the store has none.
func (d Document) Version() int64 { return d.version }

// Field returns a single field value.
func (d Document) Field(name string) (any, bool) {
	v, ok := d.fields[name]
	return v, ok
}

// Fields returns a copy of the field map.
func (d Document) Fields() map[string]any { return maps.Clone(d.fields) }

// FieldNames returns field names in sorted order.
func (d Document) FieldNames() []string {
	return slices.Sorted(maps.Keys(d.fields))
}

// Len returns the number of fields.
func (d Document) Len() int { return len(d.fields) }
