package search

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/syncdex/internal/db"
	"github.com/kailas-cloud/syncdex/internal/domain"
	"github.com/kailas-cloud/syncdex/internal/domain/search/query"
	"github.com/kailas-cloud/syncdex/internal/domain/search/result"
)

func mustRequest(t *testing.T, q query.Clause, sort string, aggs map[string]query.Aggregation) query.Request {
	t.Helper()
	var fields []query.SortField
	if sort != "" {
		var err error
		if fields, err = query.NormalizeSort(sort); err != nil {
			t.Fatalf("sort: %v", err)
		}
	}
	req, err := query.NewRequest(q, fields, aggs, 0, 0)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return req
}

func TestSearch_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchFn = func(_ context.Context, index string, body map[string]any) ([]byte, error) {
		if index != "bonds" {
			t.Errorf("index = %s", index)
		}
		wantQuery := map[string]any{"range": map[string]any{"price": map[string]any{"gte": int64(20000), "lte": int64(30000)}}}
		if !reflect.DeepEqual(body["query"], wantQuery) {
			t.Errorf("query = %#v", body["query"])
		}
		if body["size"] != query.DefaultSize {
			t.Errorf("size = %v", body["size"])
		}
		if _, ok := body["sort"]; !ok {
			t.Error("sort missing from body")
		}
		return []byte(`{"took": 1, "hits": {"total": {"value": 2, "relation": "eq"}, "max_score": null, "hits": [
			{"_index": "bonds", "_id": "b-3", "_score": null, "_source": {"name": "Construction", "price": 20000}, "sort": [20000]},
			{"_index": "bonds", "_id": "b-4", "_score": null, "_source": {"name": "Legal", "price": 30000}, "sort": [30000]}
		]}}`), nil
	}

	req := mustRequest(t, query.Between("price", 20000, 30000), "price:asc", nil)
	res, err := repo.Search(context.Background(), "bonds", req, result.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total() != 2 || len(res.Hits()) != 2 {
		t.Fatalf("total = %d hits = %d", res.Total(), len(res.Hits()))
	}
	if res.Hits()[0].Source()["name"] != "Construction" || res.Hits()[1].ID() != "b-4" {
		t.Errorf("hits = %+v", res.Hits())
	}
}

func TestSearch_TermsBucketsByKey(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchFn = func(context.Context, string, map[string]any) ([]byte, error) {
		return []byte(`{"hits": {"total": 4, "hits": []}, "aggregations": {"types": {"buckets": [
			{"key": "B", "doc_count": 2}, {"key": "A", "doc_count": 1}, {"key": "C", "doc_count": 1}
		]}}}`), nil
	}

	aggs := map[string]query.Aggregation{"types": query.Terms("type", 10)}
	res, err := repo.Search(context.Background(), "bonds", mustRequest(t, nil, "", aggs), result.Options{SortBucketsByKey: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var keys []any
	for _, b := range res.Aggregations()["types"].Buckets() {
		keys = append(keys, b.Key)
	}
	if !reflect.DeepEqual(keys, []any{"A", "B", "C"}) {
		t.Errorf("keys = %v", keys)
	}
}

func TestSearch_EngineError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchFn = func(context.Context, string, map[string]any) ([]byte, error) {
		return nil, &db.Error{Op: db.OpSearch, Index: "bonds", Status: 503, Err: db.ErrTransient}
	}

	_, err := repo.Search(context.Background(), "bonds", mustRequest(t, nil, "", nil), result.Options{})
	if !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestSearch_MalformedResponse(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchFn = func(context.Context, string, map[string]any) ([]byte, error) {
		return []byte(`{"took": 1}`), nil
	}

	_, err := repo.Search(context.Background(), "bonds", mustRequest(t, nil, "", nil), result.Options{})
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}
