package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/syncdex/internal/db"
	"github.com/kailas-cloud/syncdex/internal/domain/mapping"
)

// store is the consumer interface for index management (ISP).
type store interface {
	EnsureIndex(ctx context.Context, def *db.IndexDefinition) error
	DeleteIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo implements usecase/collection.Repository.
type Repo struct {
	store    store
	settings Settings
}

// New creates a collection index repository.
func New(s store) *Repo {
	return &Repo{store: s, settings: Settings{Shards: 1}}
}

// WithSettings configures shard and replica counts for created indexes.
func (r *Repo) WithSettings(s Settings) *Repo {
	if s.Shards > 0 {
		r.settings.Shards = s.Shards
	}
	if s.Replicas >= 0 {
		r.settings.Replicas = s.Replicas
	}
	return r
}

// Definition renders the engine index definition of a mapping.
func (r *Repo) Definition(m mapping.Mapping) (*db.IndexDefinition, error) {
	def, err := buildIndex(m, r.settings)
	if err != nil {
		return nil, fmt.Errorf("build index %s: %w", m.IndexName(), err)
	}
	return def, nil
}

// Ensure creates the index of a mapping when it does not exist yet.
func (r *Repo) Ensure(ctx context.Context, m mapping.Mapping) error {
	def, err := r.Definition(m)
	if err != nil {
		return err
	}
	if err := r.store.EnsureIndex(ctx, def); err != nil {
		return fmt.Errorf("ensure index %s: %w", def.Name, err)
	}
	return nil
}

// Drop deletes the index of a mapping. A missing index is not an error.
func (r *Repo) Drop(ctx context.Context, m mapping.Mapping) error {
	err := r.store.DeleteIndex(ctx, m.IndexName())
	if err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("delete index %s: %w", m.IndexName(), err)
	}
	return nil
}

// Recreate drops and re-creates the index, discarding every indexed document.
func (r *Repo) Recreate(ctx context.Context, m mapping.Mapping) error {
	if _, err := r.Definition(m); err != nil {
		return err
	}
	if err := r.Drop(ctx, m); err != nil {
		return err
	}
	return r.Ensure(ctx, m)
}

// Exists reports whether the index of a mapping exists.
func (r *Repo) Exists(ctx context.Context, m mapping.Mapping) (bool, error) {
	ok, err := r.store.IndexExists(ctx, m.IndexName())
	if err != nil {
		return false, fmt.Errorf("index exists %s: %w", m.IndexName(), err)
	}
	return ok, nil
}
