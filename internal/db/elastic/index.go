package elastic

import (
	"context"
	"errors"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/syncdex/internal/db"
)

const keywordIgnoreAbove = 256

// EnsureIndex creates the index from def unless it already exists.
// A concurrent creation by another process is treated as success.
func (e *Engine) EnsureIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Index: def.Name, Reason: err.Error(), Err: db.ErrMalformedRequest}
	}

	exists, err := e.IndexExists(ctx, def.Name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	reqBody, err := encode(db.OpCreateIndex, def.Name, createIndexBody(def))
	if err != nil {
		return err
	}
	status, body, err := e.do(ctx, db.OpCreateIndex, def.Name, esapi.IndicesCreateRequest{Index: def.Name, Body: reqBody})
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}
	cerr := errorFrom(db.OpCreateIndex, def.Name, status, body)
	var dbErr *db.Error
	if errors.As(cerr, &dbErr) && dbErr.Type == "resource_already_exists_exception" {
		return nil
	}
	return cerr
}

// DeleteIndex drops an index; a missing one yields db.ErrIndexNotFound.
func (e *Engine) DeleteIndex(ctx context.Context, name string) error {
	status, body, err := e.do(ctx, db.OpDeleteIndex, name, esapi.IndicesDeleteRequest{Index: []string{name}})
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return &db.Error{Op: db.OpDeleteIndex, Index: name, Status: status, Err: db.ErrIndexNotFound}
	default:
		return errorFrom(db.OpDeleteIndex, name, status, body)
	}
}

// IndexExists reports whether the index exists.
func (e *Engine) IndexExists(ctx context.Context, name string) (bool, error) {
	status, body, err := e.do(ctx, db.OpIndexExists, name, esapi.IndicesExistsRequest{Index: []string{name}})
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, errorFrom(db.OpIndexExists, name, status, body)
	}
}

func createIndexBody(def *db.IndexDefinition) map[string]any {
	props := make(map[string]any, len(def.Fields))
	for _, f := range def.Fields {
		props[f.Name] = fieldMapping(f)
	}
	dynamic := "false"
	if def.Dynamic {
		dynamic = "true"
	}
	settings := map[string]any{
		"number_of_replicas": def.Replicas,
	}
	if def.Shards > 0 {
		settings["number_of_shards"] = def.Shards
	}
	return map[string]any{
		"settings": map[string]any{"index": settings},
		"mappings": map[string]any{
			"dynamic":    dynamic,
			"properties": props,
		},
	}
}

func fieldMapping(f db.IndexField) map[string]any {
	m := map[string]any{"type": string(f.Type)}
	if f.Type != db.IndexFieldText {
		return m
	}
	if f.Analyzer != "" {
		m["analyzer"] = f.Analyzer
	}
	if f.Keyword {
		m["fields"] = map[string]any{
			"keyword": map[string]any{"type": "keyword", "ignore_above": keywordIgnoreAbove},
		}
	}
	return m
}
