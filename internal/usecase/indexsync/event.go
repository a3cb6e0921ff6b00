package indexsync

import (
	"github.com/kailas-cloud/syncdex/internal/domain/batch"
	"github.com/kailas-cloud/syncdex/internal/domain/document"
)

// EventKind is a store lifecycle event.
type EventKind string

// Store lifecycle events.
const (
	EventCreate   EventKind = "create"
	EventUpdate   EventKind = "update"
	EventRemove   EventKind = "remove"
	EventBulkSave EventKind = "bulk_save"
)

// Event is one mutation reported by the document store.
type Event struct {
	Kind       EventKind
	Collection string

	// Doc is the saved snapshot of a create or update.
	Doc document.Document
	// Changed lists the top-level fields an update touched. Empty means unknown.
	Changed []string
	// ID is the removed document.
	ID string

	// Docs are the documents of a bulk save, in order.
	Docs []document.Document
	// OnItem, when set, receives the final outcome of every bulk document.
	OnItem func(batch.Result)
}
