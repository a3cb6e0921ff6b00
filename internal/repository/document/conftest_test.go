package document

import (
	"context"
	"testing"

	"github.com/kailas-cloud/syncdex/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	putFn     func(ctx context.Context, index, id string, payload map[string]any) error
	deleteFn  func(ctx context.Context, index, id string) error
	bulkFn    func(ctx context.Context, index string, ops []db.BulkOp) ([]db.BulkItemResult, error)
	refreshFn func(ctx context.Context, index string) error
}

func (m *mockStore) PutDocument(ctx context.Context, index, id string, payload map[string]any) error {
	if m.putFn != nil {
		return m.putFn(ctx, index, id, payload)
	}
	return nil
}

func (m *mockStore) DeleteDocument(ctx context.Context, index, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, index, id)
	}
	return nil
}

func (m *mockStore) Bulk(ctx context.Context, index string, ops []db.BulkOp) ([]db.BulkItemResult, error) {
	if m.bulkFn != nil {
		return m.bulkFn(ctx, index, ops)
	}
	out := make([]db.BulkItemResult, len(ops))
	for i, op := range ops {
		out[i] = db.BulkItemResult{ID: op.ID, Status: 201}
	}
	return out, nil
}

func (m *mockStore) Refresh(ctx context.Context, index string) error {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, index)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}
