package collection

import (
	"context"
	"testing"

	"github.com/kailas-cloud/syncdex/internal/db"
	"github.com/kailas-cloud/syncdex/internal/domain/mapping"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	ensureIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	deleteIndexFn func(ctx context.Context, name string) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
}

func (m *mockStore) EnsureIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.ensureIndexFn != nil {
		return m.ensureIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DeleteIndex(ctx context.Context, name string) error {
	if m.deleteIndexFn != nil {
		return m.deleteIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func bondMapping(t *testing.T, opts ...mapping.Option) mapping.Mapping {
	t.Helper()
	m, err := mapping.New("Bond", []mapping.Field{
		mapping.MustField("name", mapping.Text, mapping.WithKeyword(), mapping.WithAnalyzer("standard")),
		mapping.MustField("type", mapping.Keyword),
		mapping.MustField("price", mapping.Number),
		mapping.MustField("issued", mapping.Date),
		mapping.MustField("internal", mapping.Keyword, mapping.Excluded()),
	}, opts...)
	if err != nil {
		t.Fatalf("mapping: %v", err)
	}
	return m
}
