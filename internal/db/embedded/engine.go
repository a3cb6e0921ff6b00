// Package embedded is an in-process search engine backed by bleve. It speaks
// the same query DSL and response shape as the HTTP engine, so the rest of the
// system can run without a cluster (tests, single-binary deployments).
package embedded

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/kailas-cloud/syncdex/internal/db"
)

// Compile-time check: Engine implements db.Engine.
var _ db.Engine = (*Engine)(nil)

var errClosed = errors.New("embedded engine is closed")

type index struct {
	def *db.IndexDefinition
	bi  bleve.Index
	// one writer at a time keeps validate-then-index atomic per index
	mu sync.Mutex
}

// Engine holds any number of in-memory indexes.
type Engine struct {
	mu      sync.RWMutex
	indexes map[string]*index
	closed  bool
}

// New creates an empty engine.
func New() *Engine {
	return &Engine{indexes: make(map[string]*index)}
}

// Ping reports whether the engine is open.
func (e *Engine) Ping(_ context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return &db.Error{Op: db.OpPing, Err: fmt.Errorf("%w: %v", db.ErrConnection, errClosed)}
	}
	return nil
}

// WaitForReady returns immediately; the engine has no startup phase.
func (e *Engine) WaitForReady(ctx context.Context, _ time.Duration) error {
	return e.Ping(ctx)
}

// Close releases all indexes.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for _, idx := range e.indexes {
		_ = idx.bi.Close()
	}
	e.indexes = nil
}

// Indexes returns the sorted names of existing indexes.
func (e *Engine) Indexes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.indexes))
	for name := range e.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnsureIndex creates the index from def unless it already exists.
func (e *Engine) EnsureIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Index: def.Name, Reason: err.Error(), Err: db.ErrMalformedRequest}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return &db.Error{Op: db.OpCreateIndex, Index: def.Name, Err: fmt.Errorf("%w: %v", db.ErrConnection, errClosed)}
	}
	if _, ok := e.indexes[def.Name]; ok {
		return nil
	}
	_, err := e.createLocked(def)
	return err
}

func (e *Engine) createLocked(def *db.IndexDefinition) (*index, error) {
	im, err := buildMapping(def)
	if err != nil {
		return nil, &db.Error{Op: db.OpCreateIndex, Index: def.Name, Reason: err.Error(), Err: db.ErrMalformedRequest}
	}
	bi, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, &db.Error{Op: db.OpCreateIndex, Index: def.Name, Reason: err.Error(), Err: db.ErrTransient}
	}
	cp := *def
	cp.Fields = append([]db.IndexField(nil), def.Fields...)
	idx := &index{def: &cp, bi: bi}
	e.indexes[def.Name] = idx
	return idx, nil
}

// DeleteIndex drops an index; a missing one yields db.ErrIndexNotFound.
func (e *Engine) DeleteIndex(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx, ok := e.indexes[name]
	if !ok {
		return &db.Error{Op: db.OpDeleteIndex, Index: name, Status: 404, Type: "index_not_found_exception", Err: db.ErrIndexNotFound}
	}
	delete(e.indexes, name)
	if err := idx.bi.Close(); err != nil {
		return &db.Error{Op: db.OpDeleteIndex, Index: name, Reason: err.Error(), Err: db.ErrTransient}
	}
	return nil
}

// IndexExists reports whether the index exists.
func (e *Engine) IndexExists(_ context.Context, name string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.indexes[name]
	return ok, nil
}

// Refresh is a no-op: writes are searchable as soon as they return.
func (e *Engine) Refresh(_ context.Context, name string) error {
	if _, err := e.lookup(db.OpRefresh, name); err != nil {
		return err
	}
	return nil
}

func (e *Engine) lookup(op, name string) (*index, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, &db.Error{Op: op, Index: name, Err: fmt.Errorf("%w: %v", db.ErrConnection, errClosed)}
	}
	idx, ok := e.indexes[name]
	if !ok {
		return nil, &db.Error{Op: op, Index: name, Status: 404, Type: "index_not_found_exception", Err: db.ErrIndexNotFound}
	}
	return idx, nil
}

// lookupOrCreate auto-creates a dynamic index on first write, like a cluster
// with automatic index creation enabled.
func (e *Engine) lookupOrCreate(op, name string) (*index, error) {
	if idx, err := e.lookup(op, name); err == nil || !errors.Is(err, db.ErrIndexNotFound) {
		return idx, err
	}
	if !db.IsValidIndexName(name) {
		return nil, &db.Error{Op: op, Index: name, Status: 400, Type: "invalid_index_name_exception", Err: db.ErrMalformedRequest}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, &db.Error{Op: op, Index: name, Err: fmt.Errorf("%w: %v", db.ErrConnection, errClosed)}
	}
	if idx, ok := e.indexes[name]; ok {
		return idx, nil
	}
	return e.createLocked(&db.IndexDefinition{Name: name, Shards: 1, Dynamic: true})
}
