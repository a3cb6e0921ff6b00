package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/syncdex/internal/db"
	"github.com/kailas-cloud/syncdex/internal/domain"
	"github.com/kailas-cloud/syncdex/internal/domain/mapping"
)

// Status describes the index of one registered collection.
type Status struct {
	Collection string
	Index      string
	Exists     bool
}

// Service manages the indexes of registered collections.
type Service struct {
	repo     Repository
	mappings MappingReader
}

// New creates a collection index service.
func New(repo Repository, mappings MappingReader) *Service {
	return &Service{repo: repo, mappings: mappings}
}

// EnsureAll creates every missing index. It stops at the first failure.
func (s *Service) EnsureAll(ctx context.Context) error {
	for _, m := range s.mappings.Mappings() {
		if err := s.repo.Ensure(ctx, m); err != nil {
			return fmt.Errorf("ensure %s: %w", m.Collection(), err)
		}
	}
	return nil
}

// Ensure creates the index of one collection when missing.
func (s *Service) Ensure(ctx context.Context, collection string) error {
	m, err := s.mapping(collection)
	if err != nil {
		return err
	}
	if err := s.repo.Ensure(ctx, m); err != nil {
		return fmt.Errorf("ensure %s: %w", collection, err)
	}
	return nil
}

// Recreate drops and re-creates the index of a collection. Every indexed
// document is lost; a resynchronization has to follow.
func (s *Service) Recreate(ctx context.Context, collection string) error {
	m, err := s.mapping(collection)
	if err != nil {
		return err
	}
	if err := s.repo.Recreate(ctx, m); err != nil {
		return fmt.Errorf("recreate %s: %w", collection, err)
	}
	return nil
}

// Drop deletes the index of a collection.
func (s *Service) Drop(ctx context.Context, collection string) error {
	m, err := s.mapping(collection)
	if err != nil {
		return err
	}
	if err := s.repo.Drop(ctx, m); err != nil {
		return fmt.Errorf("drop %s: %w", collection, err)
	}
	return nil
}

// Definition returns the engine index definition of a collection.
func (s *Service) Definition(collection string) (*db.IndexDefinition, error) {
	m, err := s.mapping(collection)
	if err != nil {
		return nil, err
	}
	return s.repo.Definition(m)
}

// List reports the index status of every registered collection.
func (s *Service) List(ctx context.Context) ([]Status, error) {
	ms := s.mappings.Mappings()
	out := make([]Status, 0, len(ms))
	var errs []error
	for _, m := range ms {
		ok, err := s.repo.Exists(ctx, m)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, Status{Collection: m.Collection(), Index: m.IndexName(), Exists: ok})
	}
	if err := errors.Join(errs...); err != nil {
		return out, fmt.Errorf("list indexes: %w", err)
	}
	return out, nil
}

func (s *Service) mapping(collection string) (mapping.Mapping, error) {
	m, ok := s.mappings.Mapping(collection)
	if !ok {
		return mapping.Mapping{}, fmt.Errorf("%w: %q", domain.ErrUnknownCollection, collection)
	}
	return m, nil
}
