package indexsync

import (
	"context"

	"github.com/kailas-cloud/syncdex/internal/domain/batch"
	"github.com/kailas-cloud/syncdex/internal/domain/document"
)

// Hooks binds the engine to one store collection. A document store calls
// these after each successful write.
type Hooks struct {
	engine     *Engine
	collection string
}

// Hooks returns the lifecycle hooks of a registered collection.
func (e *Engine) Hooks(collection string) Hooks {
	return Hooks{engine: e, collection: collection}
}

// Collection returns the bound collection name.
func (h Hooks) Collection() string { return h.collection }

// OnCreate indexes a newly saved document.
func (h Hooks) OnCreate(ctx context.Context, doc document.Document) (*Ticket, error) {
	return h.engine.Publish(ctx, Event{Kind: EventCreate, Collection: h.collection, Doc: doc})
}

// OnUpdate re-indexes an updated document. changed lists the top-level
// fields the update touched; nil means unknown.
func (h Hooks) OnUpdate(ctx context.Context, doc document.Document, changed []string) (*Ticket, error) {
	return h.engine.Publish(ctx, Event{Kind: EventUpdate, Collection: h.collection, Doc: doc, Changed: changed})
}

// OnRemove removes a deleted document from the index.
func (h Hooks) OnRemove(ctx context.Context, id string) (*Ticket, error) {
	return h.engine.Publish(ctx, Event{Kind: EventRemove, Collection: h.collection, ID: id})
}

// BulkSave indexes many documents in one operation. onItem, when set, gets
// the final result of every document.
func (h Hooks) BulkSave(ctx context.Context, docs []document.Document, onItem func(batch.Result)) (*Ticket, error) {
	return h.engine.Publish(ctx, Event{Kind: EventBulkSave, Collection: h.collection, Docs: docs, OnItem: onItem})
}
