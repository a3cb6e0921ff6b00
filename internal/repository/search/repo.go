package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/syncdex/internal/domain/search/query"
	"github.com/kailas-cloud/syncdex/internal/domain/search/result"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	Search(ctx context.Context, index string, body map[string]any) ([]byte, error)
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Search translates the request into an engine body, runs it and projects
// the raw response. A failed search never yields a partial result.
func (r *Repo) Search(
	ctx context.Context, index string, req query.Request, opts result.Options,
) (result.SearchResult, error) {
	body, err := query.Translate(req)
	if err != nil {
		return result.SearchResult{}, fmt.Errorf("translate: %w", err)
	}

	raw, err := r.store.Search(ctx, index, body)
	if err != nil {
		return result.SearchResult{}, fmt.Errorf("search %s: %w", index, err)
	}

	res, err := result.Project(raw, opts)
	if err != nil {
		return result.SearchResult{}, fmt.Errorf("project %s: %w", index, err)
	}
	return res, nil
}
