package syncdex

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/syncdex/internal/domain/batch"
	domdoc "github.com/kailas-cloud/syncdex/internal/domain/document"
	"github.com/kailas-cloud/syncdex/internal/domain/mapping"
	"github.com/kailas-cloud/syncdex/internal/usecase/indexsync"
)

// Ticket is the completion handle of a published index operation.
type Ticket = indexsync.Ticket

// Outcome is the terminal result of one index operation.
type Outcome = indexsync.Outcome

// BulkError reports the documents of a bulk save that failed for good.
type BulkError = indexsync.BulkError

// ItemResult is the final outcome of one document of a bulk save.
type ItemResult = batch.Result

// FieldType is the cast type of an indexed field.
type FieldType = mapping.Type

// Field types.
const (
	Text     = mapping.Text
	Keyword  = mapping.Keyword
	Number   = mapping.Number
	Date     = mapping.Date
	Boolean  = mapping.Boolean
	GeoPoint = mapping.GeoPoint
)

// ModelOption configures a model's index mapping.
type ModelOption func(*modelConfig)

type modelConfig struct {
	opts     []mapping.Option
	computed []computedSpec
}

type computedSpec struct {
	name string
	ft   FieldType
	fn   func(fields map[string]any) (any, error)
}

// IndexName overrides the default index name (lower-cased plural of the collection).
func IndexName(name string) ModelOption {
	return func(c *modelConfig) {
		c.opts = append(c.opts, mapping.WithIndexName(name))
	}
}

// IncludeAll indexes every stored field, not only the tagged ones.
func IncludeAll() ModelOption {
	return func(c *modelConfig) {
		c.opts = append(c.opts, mapping.IncludeAll())
	}
}

// Computed adds an index-only field derived from the stored fields.
// fn must be deterministic and free of side effects.
func Computed(name string, ft FieldType, fn func(fields map[string]any) (any, error)) ModelOption {
	return func(c *modelConfig) {
		c.computed = append(c.computed, computedSpec{name: name, ft: ft, fn: fn})
	}
}

// Model is a typed, schema-first view of one store collection.
// The index mapping is inferred from T's struct tags at registration.
type Model[T any] struct {
	client  *Client
	meta    *schemaMeta
	mapping mapping.Mapping
	hooks   indexsync.Hooks
}

// Register creates the model of a collection and registers its mapping with
// the client's sync engine. T must be a struct with syncdex tags.
func Register[T any](client *Client, collection string, opts ...ModelOption) (*Model[T], error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("register %q: %w", collection, err)
	}
	m, err := buildMapping(meta, collection, opts)
	if err != nil {
		return nil, fmt.Errorf("register %q: %w", collection, err)
	}
	if err := client.engine.Register(m); err != nil {
		return nil, fmt.Errorf("register %q: %w", collection, err)
	}
	return &Model[T]{client: client, meta: meta, mapping: m, hooks: client.engine.Hooks(collection)}, nil
}

func buildMapping(meta *schemaMeta, collection string, opts []ModelOption) (mapping.Mapping, error) {
	var cfg modelConfig
	for _, o := range opts {
		o(&cfg)
	}
	fields, err := meta.mappingFields()
	if err != nil {
		return mapping.Mapping{}, err
	}
	mopts := cfg.opts
	for _, c := range cfg.computed {
		cf, err := mapping.NewComputed(c.name, c.ft, c.fn)
		if err != nil {
			return mapping.Mapping{}, err
		}
		mopts = append(mopts, mapping.WithComputed(cf))
	}
	return mapping.New(collection, fields, mopts...)
}

// Collection returns the store collection name.
func (m *Model[T]) Collection() string { return m.mapping.Collection() }

// IndexName returns the engine index the collection syncs into.
func (m *Model[T]) IndexName() string { return m.mapping.IndexName() }

// Ensure creates the index if it does not exist (idempotent).
func (m *Model[T]) Ensure(ctx context.Context) error {
	if err := m.client.collSvc.Ensure(ctx, m.Collection()); err != nil {
		return fmt.Errorf("ensure %q: %w", m.IndexName(), err)
	}
	return nil
}

// Truncate drops and recreates the index, discarding every indexed document.
func (m *Model[T]) Truncate(ctx context.Context) error {
	if err := m.client.collSvc.Recreate(ctx, m.Collection()); err != nil {
		return fmt.Errorf("truncate %q: %w", m.IndexName(), err)
	}
	return nil
}

// Created reports a newly saved item. The returned ticket resolves once the
// item is indexed or has failed for good.
func (m *Model[T]) Created(ctx context.Context, item T) (*Ticket, error) {
	doc, err := m.meta.toDocument(item, 0)
	if err != nil {
		return nil, fmt.Errorf("created: %w", err)
	}
	return m.hooks.OnCreate(ctx, doc)
}

// Updated reports a saved change. changed names the fields the update
// touched; when none of them is indexed the operation is skipped. Pass no
// names when unknown.
func (m *Model[T]) Updated(ctx context.Context, item T, changed ...string) (*Ticket, error) {
	doc, err := m.meta.toDocument(item, 0)
	if err != nil {
		return nil, fmt.Errorf("updated: %w", err)
	}
	return m.hooks.OnUpdate(ctx, doc, changed)
}

// Removed reports a deleted item. Removing an item the index never had
// succeeds with Outcome.NotFound set.
func (m *Model[T]) Removed(ctx context.Context, id string) (*Ticket, error) {
	return m.hooks.OnRemove(ctx, id)
}

// BulkSaved reports many saved items as one bulk operation. onItem, when
// set, receives the final result of every item.
func (m *Model[T]) BulkSaved(ctx context.Context, items []T, onItem func(ItemResult)) (*Ticket, error) {
	docs := make([]domdoc.Document, len(items))
	for i, item := range items {
		var err error
		docs[i], err = m.meta.toDocument(item, 0)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return m.hooks.BulkSave(ctx, docs, onItem)
}

// WaitIndexed waits for an operation and refreshes the index so its effect
// is visible to the next search.
func (m *Model[T]) WaitIndexed(ctx context.Context, t *Ticket) (Outcome, error) {
	return m.client.engine.WaitIndexed(ctx, t)
}
