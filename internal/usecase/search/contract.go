package search

import (
	"context"

	"github.com/kailas-cloud/syncdex/internal/domain/mapping"
	"github.com/kailas-cloud/syncdex/internal/domain/search/query"
	"github.com/kailas-cloud/syncdex/internal/domain/search/result"
)

// Repository runs translated searches against the engine.
type Repository interface {
	Search(ctx context.Context, index string, req query.Request, opts result.Options) (result.SearchResult, error)
}

// MappingReader resolves registered collection mappings.
type MappingReader interface {
	Mapping(collection string) (mapping.Mapping, bool)
	Mappings() []mapping.Mapping
}
