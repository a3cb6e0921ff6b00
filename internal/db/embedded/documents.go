package embedded

import (
	"context"
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2"

	"github.com/kailas-cloud/syncdex/internal/db"
)

// PutDocument indexes payload under id, replacing any previous version.
func (e *Engine) PutDocument(ctx context.Context, name, id string, payload map[string]any) error {
	idx, err := e.lookupOrCreate(db.OpPut, name)
	if err != nil {
		return err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.put(ctx, db.OpPut, id, payload)
}

// DeleteDocument removes id; an absent document yields db.ErrNotFound.
func (e *Engine) DeleteDocument(ctx context.Context, name, id string) error {
	idx, err := e.lookup(db.OpDelete, name)
	if err != nil {
		return err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.remove(ctx, db.OpDelete, id)
}

// Bulk applies ops in order and reports one result per op.
func (e *Engine) Bulk(ctx context.Context, name string, ops []db.BulkOp) ([]db.BulkItemResult, error) {
	if len(ops) == 0 {
		return nil, nil
	}
	idx, err := e.lookupOrCreate(db.OpBulk, name)
	if err != nil {
		return nil, err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	results := make([]db.BulkItemResult, len(ops))
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return nil, &db.Error{Op: db.OpBulk, Index: name, Reason: err.Error(), Err: db.ErrTimeout}
		}
		results[i] = db.BulkItemResult{ID: op.ID, Status: 200}
		var opErr error
		switch op.Action {
		case db.BulkIndex:
			opErr = idx.put(ctx, db.OpBulk, op.ID, op.Payload)
		case db.BulkDelete:
			opErr = idx.remove(ctx, db.OpBulk, op.ID)
		default:
			return nil, &db.Error{Op: db.OpBulk, Index: name, Reason: fmt.Sprintf("unknown action %q", op.Action), Err: db.ErrMalformedRequest}
		}
		if opErr != nil {
			results[i].Err = opErr
			results[i].Status = statusOf(opErr)
		}
	}
	return results, nil
}

func (idx *index) put(_ context.Context, op, id string, payload map[string]any) error {
	if id == "" {
		return &db.Error{Op: op, Index: idx.def.Name, Status: 400, Type: "action_request_validation_exception", Reason: "id is missing", Err: db.ErrMalformedRequest}
	}
	_, doc, err := prepare(op, idx.def, payload)
	if err != nil {
		return err
	}
	if err := idx.bi.Index(id, doc); err != nil {
		return &db.Error{Op: op, Index: idx.def.Name, Status: 500, Reason: err.Error(), Err: db.ErrTransient}
	}
	return nil
}

func (idx *index) remove(ctx context.Context, op, id string) error {
	found, err := idx.exists(ctx, id)
	if err != nil {
		return &db.Error{Op: op, Index: idx.def.Name, Status: 500, Reason: err.Error(), Err: db.ErrTransient}
	}
	if !found {
		return &db.Error{Op: op, Index: idx.def.Name, Status: 404, Err: db.ErrNotFound}
	}
	if err := idx.bi.Delete(id); err != nil {
		return &db.Error{Op: op, Index: idx.def.Name, Status: 500, Reason: err.Error(), Err: db.ErrTransient}
	}
	return nil
}

func (idx *index) exists(ctx context.Context, id string) (bool, error) {
	req := bleve.NewSearchRequestOptions(bleve.NewDocIDQuery([]string{id}), 0, 0, false)
	res, err := idx.bi.SearchInContext(ctx, req)
	if err != nil {
		return false, err
	}
	return res.Total > 0, nil
}

func statusOf(err error) int {
	var dbErr *db.Error
	if errors.As(err, &dbErr) && dbErr.Status != 0 {
		return dbErr.Status
	}
	return 500
}
