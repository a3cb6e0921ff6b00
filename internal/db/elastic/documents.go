package elastic

import (
	"context"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/syncdex/internal/db"
)

// PutDocument indexes payload under id, replacing any previous version.
func (e *Engine) PutDocument(ctx context.Context, index, id string, payload map[string]any) error {
	body, err := encode(db.OpPut, index, payload)
	if err != nil {
		return err
	}
	status, resp, err := e.do(ctx, db.OpPut, index, esapi.IndexRequest{Index: index, DocumentID: id, Body: body})
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return errorFrom(db.OpPut, index, status, resp)
	}
	return nil
}

// DeleteDocument removes id from index. An absent document yields db.ErrNotFound,
// a missing index db.ErrIndexNotFound.
func (e *Engine) DeleteDocument(ctx context.Context, index, id string) error {
	status, resp, err := e.do(ctx, db.OpDelete, index, esapi.DeleteRequest{Index: index, DocumentID: id})
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}
	return errorFrom(db.OpDelete, index, status, resp)
}
