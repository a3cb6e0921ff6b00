package batch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/syncdex/internal/domain"
	dombatch "github.com/kailas-cloud/syncdex/internal/domain/batch"
	domdoc "github.com/kailas-cloud/syncdex/internal/domain/document"
	"github.com/kailas-cloud/syncdex/internal/usecase/indexsync"
)

// DefaultBatchSize is the number of documents per bulk save.
const DefaultBatchSize = 500

// maxReportedFailures caps Report.Failures; the counters stay exact.
const maxReportedFailures = 100

// Report summarizes a resynchronization.
type Report struct {
	Collection string
	Batches    int
	Indexed    int
	Failed     int
	Failures   []dombatch.Result
}

// Options tunes one resynchronization.
type Options struct {
	// Truncate recreates the index first, dropping documents the store no longer has.
	Truncate bool
	// OnItem receives the final result of every document.
	OnItem func(dombatch.Result)
}

// Service re-indexes whole collections from the store through the sync engine.
type Service struct {
	source    DocumentSource
	publisher Publisher
	indexes   IndexResetter
	logger    *zap.Logger
	batchSize int
}

// New creates a resynchronization service. indexes can be nil when
// truncation is never requested.
func New(source DocumentSource, publisher Publisher, indexes IndexResetter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source: source, publisher: publisher, indexes: indexes,
		logger: logger, batchSize: DefaultBatchSize,
	}
}

// WithBatchSize configures the number of documents per bulk save.
func (s *Service) WithBatchSize(size int) *Service {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// Synchronize indexes every document of a collection. Pages are saved one
// at a time and each bulk save finishes before the next page is read.
// Per-document failures are counted in the report, not returned; an error
// means the scan or the engine itself failed.
func (s *Service) Synchronize(ctx context.Context, collection string, opts Options) (Report, error) {
	rep := Report{Collection: collection}

	if opts.Truncate {
		if s.indexes == nil {
			return rep, fmt.Errorf("%w: truncate requires an index resetter", domain.ErrValidation)
		}
		if err := s.indexes.Recreate(ctx, collection); err != nil {
			return rep, fmt.Errorf("truncate: %w", err)
		}
	}

	// Items of a page abandoned on cancellation may still arrive after return.
	var mu sync.Mutex
	onItem := func(r dombatch.Result) {
		mu.Lock()
		defer mu.Unlock()
		if r.OK() {
			rep.Indexed++
		} else {
			rep.Failed++
			if len(rep.Failures) < maxReportedFailures {
				rep.Failures = append(rep.Failures, r)
			}
		}
		if opts.OnItem != nil {
			opts.OnItem(r)
		}
	}

	err := s.source.Scan(ctx, collection, s.batchSize, func(docs []domdoc.Document) error {
		if len(docs) == 0 {
			return nil
		}
		mu.Lock()
		rep.Batches++
		mu.Unlock()
		return s.save(ctx, collection, docs, onItem)
	})

	mu.Lock()
	defer mu.Unlock()
	rep.Failures = slices.Clip(rep.Failures)
	s.logger.Info("collection synchronized",
		zap.String("collection", collection),
		zap.Int("batches", rep.Batches),
		zap.Int("indexed", rep.Indexed),
		zap.Int("failed", rep.Failed),
		zap.Error(err),
	)
	if err != nil {
		return rep, fmt.Errorf("synchronize %s: %w", collection, err)
	}
	return rep, nil
}

func (s *Service) save(ctx context.Context, collection string, docs []domdoc.Document, onItem func(dombatch.Result)) error {
	tk, err := s.publisher.Publish(ctx, indexsync.Event{
		Kind:       indexsync.EventBulkSave,
		Collection: collection,
		Docs:       docs,
		OnItem:     onItem,
	})
	if err != nil {
		// A page where every document failed serialization was already reported item by item.
		var be *indexsync.BulkError
		if errors.As(err, &be) {
			return nil
		}
		return fmt.Errorf("bulk save: %w", err)
	}
	if _, err := tk.Wait(ctx); err != nil && ctx.Err() != nil {
		return fmt.Errorf("wait: %w", err)
	}
	return nil
}
