package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/syncdex/internal/domain"
	"github.com/kailas-cloud/syncdex/internal/domain/mapping"
	"github.com/kailas-cloud/syncdex/internal/domain/search/query"
	"github.com/kailas-cloud/syncdex/internal/domain/search/result"
	"github.com/kailas-cloud/syncdex/internal/metrics"
)

// Service runs structured searches over the index of a registered collection.
type Service struct {
	repo     Repository
	mappings MappingReader
	opts     result.Options
}

// New creates a search service.
func New(repo Repository, mappings MappingReader) *Service {
	return &Service{repo: repo, mappings: mappings}
}

// WithOptions sets the projection options of every search.
func (s *Service) WithOptions(opts result.Options) *Service {
	s.opts = opts
	return s
}

// Search runs req against the index of a collection.
func (s *Service) Search(ctx context.Context, collection string, req query.Request) (result.SearchResult, error) {
	m, ok := s.mappings.Mapping(collection)
	if !ok {
		return result.SearchResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownCollection, collection)
	}
	return s.run(ctx, m, req)
}

// SearchIndex runs req against an index by name. The index must belong to a
// registered collection.
func (s *Service) SearchIndex(ctx context.Context, index string, req query.Request) (result.SearchResult, error) {
	m, ok := s.byIndex(index)
	if !ok {
		return result.SearchResult{}, fmt.Errorf("%w: no collection for index %q", domain.ErrUnknownCollection, index)
	}
	return s.run(ctx, m, req)
}

// Indexes lists the searchable index names.
func (s *Service) Indexes() []string {
	ms := s.mappings.Mappings()
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.IndexName())
	}
	return out
}

func (s *Service) byIndex(index string) (mapping.Mapping, bool) {
	for _, m := range s.mappings.Mappings() {
		if m.IndexName() == index {
			return m, true
		}
	}
	return mapping.Mapping{}, false
}

func (s *Service) run(ctx context.Context, m mapping.Mapping, req query.Request) (result.SearchResult, error) {
	index := m.IndexName()
	if err := req.CheckFields(m); err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(index, "invalid").Inc()
		return result.SearchResult{}, fmt.Errorf("check fields: %w", err)
	}

	res, err := s.repo.Search(ctx, index, req, s.opts)
	if err != nil {
		status := "error"
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrUnsupportedClause) {
			status = "invalid"
		}
		metrics.SearchRequestsTotal.WithLabelValues(index, status).Inc()
		return result.SearchResult{}, err
	}

	metrics.SearchRequestsTotal.WithLabelValues(index, "ok").Inc()
	metrics.SearchHitsReturned.WithLabelValues(index).Observe(float64(len(res.Hits())))
	return res, nil
}
