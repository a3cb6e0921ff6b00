package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/syncdex/internal/db"
	"github.com/kailas-cloud/syncdex/internal/domain"
)

// store is the consumer interface for index writes (ISP).
type store interface {
	PutDocument(ctx context.Context, index, id string, payload map[string]any) error
	DeleteDocument(ctx context.Context, index, id string) error
	Bulk(ctx context.Context, index string, ops []db.BulkOp) ([]db.BulkItemResult, error)
	Refresh(ctx context.Context, index string) error
}

// Repo implements usecase/indexsync.Indexer.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Put indexes a payload under the store id, replacing any previous version.
func (r *Repo) Put(ctx context.Context, index, id string, payload map[string]any) error {
	if err := r.store.PutDocument(ctx, index, id, payload); err != nil {
		return fmt.Errorf("put %s/%s: %w", index, id, err)
	}
	return nil
}

// Delete removes a document. It reports found=false, without error, when
// the document or its whole index is already absent.
func (r *Repo) Delete(ctx context.Context, index, id string) (bool, error) {
	err := r.store.DeleteDocument(ctx, index, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("delete %s/%s: %w", index, id, err)
	}
}

// PutMany indexes payloads in one bulk request. The returned slice holds one
// error per id in input order, nil for applied items. A non-nil second return
// means the request as a whole failed and no item outcome is known.
func (r *Repo) PutMany(ctx context.Context, index string, ids []string, payloads []map[string]any) ([]error, error) {
	if len(ids) != len(payloads) {
		return nil, fmt.Errorf("bulk %s: %d ids for %d payloads: %w", index, len(ids), len(payloads), domain.ErrValidation)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	ops := make([]db.BulkOp, len(ids))
	for i, id := range ids {
		ops[i] = db.BulkOp{Action: db.BulkIndex, ID: id, Payload: payloads[i]}
	}

	results, err := r.store.Bulk(ctx, index, ops)
	if err != nil {
		return nil, fmt.Errorf("bulk %s: %w", index, err)
	}
	if len(results) != len(ops) {
		return nil, fmt.Errorf("bulk %s: %w", index,
			domain.NewMalformedResponse("items", fmt.Sprintf("got %d results for %d operations", len(results), len(ops))))
	}

	errs := make([]error, len(results))
	for i, res := range results {
		if res.ID != "" && res.ID != ids[i] {
			return nil, fmt.Errorf("bulk %s: %w", index,
				domain.NewMalformedResponse(fmt.Sprintf("items[%d]._id", i), "result order does not match request"))
		}
		if !res.OK() {
			errs[i] = fmt.Errorf("bulk item %s/%s: %w", index, ids[i], res.Err)
		}
	}
	return errs, nil
}

// Refresh makes previous writes to the index visible to search.
func (r *Repo) Refresh(ctx context.Context, index string) error {
	if err := r.store.Refresh(ctx, index); err != nil {
		return fmt.Errorf("refresh %s: %w", index, err)
	}
	return nil
}
