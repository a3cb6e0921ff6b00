package collection

import (
	"context"

	"github.com/kailas-cloud/syncdex/internal/db"
	"github.com/kailas-cloud/syncdex/internal/domain/mapping"
)

// Repository manages the engine index of a collection mapping.
type Repository interface {
	Definition(m mapping.Mapping) (*db.IndexDefinition, error)
	Ensure(ctx context.Context, m mapping.Mapping) error
	Drop(ctx context.Context, m mapping.Mapping) error
	Recreate(ctx context.Context, m mapping.Mapping) error
	Exists(ctx context.Context, m mapping.Mapping) (bool, error)
}

// MappingReader lists registered collection mappings.
type MappingReader interface {
	Mapping(collection string) (mapping.Mapping, bool)
	Mappings() []mapping.Mapping
}
