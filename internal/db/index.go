package db

import (
	"errors"
	"strconv"
)

// IndexFieldType enumerates engine field types.
type IndexFieldType string

const (
	// IndexFieldText is an analyzed full-text field.
	IndexFieldText IndexFieldType = "text"
	// IndexFieldKeyword is an exact-value field.
	IndexFieldKeyword IndexFieldType = "keyword"
	// IndexFieldDouble is a numeric field.
	IndexFieldDouble IndexFieldType = "double"
	// IndexFieldDate is a date field (RFC3339 or epoch millis).
	IndexFieldDate IndexFieldType = "date"
	// IndexFieldBoolean is a boolean field.
	IndexFieldBoolean IndexFieldType = "boolean"
	// IndexFieldGeoPoint is a lat/lon field.
	IndexFieldGeoPoint IndexFieldType = "geo_point"
)

// IndexField describes a single field in an index mapping.
type IndexField struct {
	Name string
	Type IndexFieldType

	// TEXT options
	Analyzer string
	Keyword  bool // adds a <name>.keyword exact-value sub-field
}

// IndexDefinition is a complete index definition used by EnsureIndex.
type IndexDefinition struct {
	Name     string
	Shards   int
	Replicas int
	Dynamic  bool // unmapped fields are indexed with inferred types
	Fields   []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIndexName(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(idx.Fields) == 0 && !idx.Dynamic {
		return errors.New("at least one field is required")
	}
	if idx.Shards < 0 || idx.Replicas < 0 {
		return errors.New("shards and replicas must be >= 0")
	}

	seen := make(map[string]bool)
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true

		if f.Type != IndexFieldText && (f.Keyword || f.Analyzer != "") {
			return errors.New("analyzer and keyword sub-field require a text field: " + f.Name)
		}
	}

	return nil
}

// IsValidIndexName returns true if s matches [a-z0-9][a-z0-9_.-]*.
func IsValidIndexName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isLower := r >= 'a' && r <= 'z'
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == '.' || r == '-'
		if i == 0 && isSpecial {
			return false
		}
		if !isLower && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
