package search

import (
	"context"
	"testing"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchFn func(ctx context.Context, index string, body map[string]any) ([]byte, error)
}

func (m *mockStore) Search(ctx context.Context, index string, body map[string]any) ([]byte, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, index, body)
	}
	return []byte(`{"hits": {"total": {"value": 0, "relation": "eq"}, "hits": []}}`), nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}
