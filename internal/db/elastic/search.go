package elastic

import (
	"context"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/syncdex/internal/db"
)

// Search runs a query body against index and returns the raw response.
func (e *Engine) Search(ctx context.Context, index string, body map[string]any) ([]byte, error) {
	reqBody, err := encode(db.OpSearch, index, body)
	if err != nil {
		return nil, err
	}
	status, resp, err := e.do(ctx, db.OpSearch, index, esapi.SearchRequest{Index: []string{index}, Body: reqBody})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, errorFrom(db.OpSearch, index, status, resp)
	}
	return resp, nil
}

// Refresh makes recent writes to index visible to search.
func (e *Engine) Refresh(ctx context.Context, index string) error {
	status, resp, err := e.do(ctx, db.OpRefresh, index, esapi.IndicesRefreshRequest{Index: []string{index}})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return errorFrom(db.OpRefresh, index, status, resp)
	}
	return nil
}
