package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/syncdex/internal/db"
	"github.com/kailas-cloud/syncdex/internal/domain"
)

type bulkResponse struct {
	Errors bool                           `json:"errors"`
	Items  []map[string]bulkResponseEntry `json:"items"`
}

type bulkResponseEntry struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// Bulk submits ops as one NDJSON request. Item results are returned in input
// order; an item whose delete found nothing carries db.ErrNotFound.
func (e *Engine) Bulk(ctx context.Context, index string, ops []db.BulkOp) ([]db.BulkItemResult, error) {
	if len(ops) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, op := range ops {
		action := map[string]map[string]string{string(op.Action): {"_id": op.ID}}
		if err := enc.Encode(action); err != nil {
			return nil, &db.Error{Op: db.OpBulk, Index: index, Err: fmt.Errorf("%w: %v", db.ErrMalformedRequest, err)}
		}
		switch op.Action {
		case db.BulkIndex:
			if err := enc.Encode(op.Payload); err != nil {
				return nil, &db.Error{
					Op: db.OpBulk, Index: index, Reason: fmt.Sprintf("item %d (%s)", i, op.ID),
					Err: fmt.Errorf("%w: %v", db.ErrMalformedRequest, err),
				}
			}
		case db.BulkDelete:
		default:
			return nil, &db.Error{
				Op: db.OpBulk, Index: index, Reason: fmt.Sprintf("unknown action %q", op.Action),
				Err: db.ErrMalformedRequest,
			}
		}
	}

	status, body, err := e.do(ctx, db.OpBulk, index, esapi.BulkRequest{Index: index, Body: &buf})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, errorFrom(db.OpBulk, index, status, body)
	}

	var resp bulkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &db.Error{Op: db.OpBulk, Index: index, Err: domain.NewMalformedResponse("$", err.Error())}
	}
	if len(resp.Items) != len(ops) {
		return nil, &db.Error{
			Op: db.OpBulk, Index: index,
			Err: domain.NewMalformedResponse("items", fmt.Sprintf("got %d items for %d operations", len(resp.Items), len(ops))),
		}
	}

	results := make([]db.BulkItemResult, len(ops))
	for i, item := range resp.Items {
		entry, ok := item[string(ops[i].Action)]
		if !ok {
			return nil, &db.Error{
				Op: db.OpBulk, Index: index,
				Err: domain.NewMalformedResponse(fmt.Sprintf("items[%d]", i), "action does not match request"),
			}
		}
		results[i] = db.BulkItemResult{ID: ops[i].ID, Status: entry.Status}
		switch {
		case entry.Error != nil:
			results[i].Err = &db.Error{
				Op: db.OpBulk, Index: index, Status: entry.Status,
				Type: entry.Error.Type, Reason: entry.Error.Reason,
				Err: classify(entry.Status, entry.Error.Type),
			}
		case entry.Status == http.StatusNotFound:
			results[i].Err = &db.Error{Op: db.OpBulk, Index: index, Status: entry.Status, Err: db.ErrNotFound}
		case entry.Status >= 300:
			results[i].Err = &db.Error{Op: db.OpBulk, Index: index, Status: entry.Status, Err: classify(entry.Status, "")}
		}
	}
	return results, nil
}
