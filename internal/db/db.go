package db

import (
	"context"
	"time"
)

// Engine is the search engine facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade; consumers depend on the narrow sub-interfaces
type Engine interface {
	Pinger
	DocumentWriter
	BulkWriter
	Searcher
	IndexManager
	Refresher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DocumentWriter indexes and removes single documents.
// The engine document id always equals the store id.
type DocumentWriter interface {
	PutDocument(ctx context.Context, index, id string, payload map[string]any) error
	// DeleteDocument returns ErrNotFound when the id is absent.
	DeleteDocument(ctx context.Context, index, id string) error
}

// BulkWriter submits many operations in one request.
// Results are returned in input order; a nil error means the request itself
// succeeded and per-item failures are carried in each BulkItemResult.
type BulkWriter interface {
	Bulk(ctx context.Context, index string, ops []BulkOp) ([]BulkItemResult, error)
}

// Searcher runs a translated query body and returns the raw engine response.
type Searcher interface {
	Search(ctx context.Context, index string, body map[string]any) ([]byte, error)
}

// IndexManager provides index lifecycle operations.
type IndexManager interface {
	// EnsureIndex creates the index when missing; an existing index is left as is.
	EnsureIndex(ctx context.Context, def *IndexDefinition) error
	DeleteIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Refresher makes recent writes visible to search.
type Refresher interface {
	Refresh(ctx context.Context, index string) error
}

// Store is the key-value facade used for dead letters and checkpoints.
type Store interface {
	Pinger
	KVStore
	ListStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	// Get returns ErrKeyNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}

// ListStore provides append-only list operations.
type ListStore interface {
	RPush(ctx context.Context, key string, values ...[]byte) (int64, error)
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	LLen(ctx context.Context, key string) (int64, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
}
