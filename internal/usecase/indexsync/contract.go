package indexsync

import (
	"context"

	"github.com/kailas-cloud/syncdex/internal/domain/syncop"
)

// Indexer applies index mutations.
type Indexer interface {
	Put(ctx context.Context, index, id string, payload map[string]any) error
	// Delete reports found=false when the document was already absent.
	Delete(ctx context.Context, index, id string) (found bool, err error)
	// PutMany returns one error per id in input order, or a request-level error.
	PutMany(ctx context.Context, index string, ids []string, payloads []map[string]any) ([]error, error)
	Refresh(ctx context.Context, index string) error
}

// FailureSink records operations that ended in failed_terminal.
type FailureSink interface {
	Record(ctx context.Context, f syncop.Failure) error
}
