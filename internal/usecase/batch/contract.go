package batch

import (
	"context"

	domdoc "github.com/kailas-cloud/syncdex/internal/domain/document"
	"github.com/kailas-cloud/syncdex/internal/usecase/indexsync"
)

// DocumentSource streams every document of a store collection in pages.
// fn returning an error stops the scan with that error.
type DocumentSource interface {
	Scan(ctx context.Context, collection string, pageSize int, fn func([]domdoc.Document) error) error
}

// Publisher schedules index operations.
type Publisher interface {
	Publish(ctx context.Context, ev indexsync.Event) (*indexsync.Ticket, error)
}

// IndexResetter discards the index of a collection before a full resync.
type IndexResetter interface {
	Recreate(ctx context.Context, collection string) error
}
