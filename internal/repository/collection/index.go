package collection

import (
	"fmt"

	"github.com/kailas-cloud/syncdex/internal/db"
	"github.com/kailas-cloud/syncdex/internal/domain/mapping"
)

// Settings are engine-side index settings that do not belong to the mapping.
type Settings struct {
	Shards   int
	Replicas int
}

// buildIndex creates an IndexDefinition from a collection mapping.
// Excluded fields never reach the engine, so they get no index field.
// Include-all mappings become dynamic indexes.
func buildIndex(m mapping.Mapping, s Settings) (*db.IndexDefinition, error) {
	b := db.NewIndex(m.IndexName())
	if s.Shards > 0 {
		b.Shards(s.Shards)
	}
	b.Replicas(s.Replicas)
	if m.IncludesAll() {
		b.Dynamic()
	}

	for _, f := range m.Fields() {
		if f.IsExcluded() {
			continue
		}
		if f.FieldType() == mapping.Text {
			b.TextWithOpts(f.Name(), f.Analyzer(), f.HasKeyword())
			continue
		}
		ft, err := fieldType(f.FieldType())
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name(), err)
		}
		b.Field(db.IndexField{Name: f.Name(), Type: ft})
	}

	for _, c := range m.Computed() {
		ft, err := fieldType(c.FieldType())
		if err != nil {
			return nil, fmt.Errorf("computed field %s: %w", c.Name(), err)
		}
		b.Field(db.IndexField{Name: c.Name(), Type: ft})
	}

	return b.Build()
}

func fieldType(t mapping.Type) (db.IndexFieldType, error) {
	switch t {
	case mapping.Text:
		return db.IndexFieldText, nil
	case mapping.Keyword:
		return db.IndexFieldKeyword, nil
	case mapping.Number:
		return db.IndexFieldDouble, nil
	case mapping.Date:
		return db.IndexFieldDate, nil
	case mapping.Boolean:
		return db.IndexFieldBoolean, nil
	case mapping.GeoPoint:
		return db.IndexFieldGeoPoint, nil
	default:
		return "", fmt.Errorf("unknown field type: %s", t)
	}
}
