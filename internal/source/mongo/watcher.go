package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/syncdex/internal/domain"
	"github.com/kailas-cloud/syncdex/internal/domain/mapping"
	"github.com/kailas-cloud/syncdex/internal/usecase/indexsync"
)

// Change stream operation types.
const (
	opInsert     = "insert"
	opUpdate     = "update"
	opReplace    = "replace"
	opDelete     = "delete"
	opDrop       = "drop"
	opRename     = "rename"
	opInvalidate = "invalidate"
)

// ErrStreamInvalidated is returned when the watched collection was dropped
// or renamed. The index needs a full resynchronization afterwards.
var ErrStreamInvalidated = errors.New("change stream invalidated")

// Publisher schedules index operations.
type Publisher interface {
	Publish(ctx context.Context, ev indexsync.Event) (*indexsync.Ticket, error)
}

// Checkpoints persists resume tokens.
type Checkpoints interface {
	Load(ctx context.Context, stream string) ([]byte, error)
	Save(ctx context.Context, stream string, token []byte) error
}

// Binding ties a registered collection to the MongoDB collection it reads.
type Binding struct {
	Collection string // registered mapping collection, e.g. "Bond"
	Source     string // MongoDB collection; defaults to mapping.IndexName(Collection)
}

func (b Binding) source() string {
	if b.Source != "" {
		return b.Source
	}
	return mapping.IndexName(b.Collection)
}

// stream is the part of *mongo.ChangeStream the watcher reads.
type stream interface {
	Next(ctx context.Context) bool
	Decode(v any) error
	ResumeToken() bson.Raw
	Err() error
	Close(ctx context.Context) error
}

type openFunc func(ctx context.Context, source string, resumeAfter []byte) (stream, error)

// changeEvent is the subset of a change event the watcher uses.
type changeEvent struct {
	OperationType     string `bson:"operationType"`
	DocumentKey       bson.M `bson:"documentKey"`
	FullDocument      bson.M `bson:"fullDocument"`
	UpdateDescription struct {
		UpdatedFields bson.M   `bson:"updatedFields"`
		RemovedFields []string `bson:"removedFields"`
	} `bson:"updateDescription"`
}

// Watcher turns MongoDB change streams into sync engine events, one stream
// per bound collection.
type Watcher struct {
	open        openFunc
	publisher   Publisher
	checkpoints Checkpoints
	bindings    []Binding
	logger      *zap.Logger
}

// NewWatcher creates a watcher over the client's database. checkpoints can
// be nil; streams then start from the current time on every run.
func NewWatcher(c *Client, publisher Publisher, checkpoints Checkpoints, bindings []Binding, logger *zap.Logger) *Watcher {
	return newWatcher(c.openStream, publisher, checkpoints, bindings, logger)
}

func newWatcher(open openFunc, publisher Publisher, checkpoints Checkpoints, bindings []Binding, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{open: open, publisher: publisher, checkpoints: checkpoints, bindings: bindings, logger: logger}
}

func (c *Client) openStream(ctx context.Context, source string, resumeAfter []byte) (stream, error) {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	if len(resumeAfter) > 0 {
		opts.SetResumeAfter(bson.Raw(resumeAfter))
	}
	cs, err := c.Collection(source).Watch(ctx, driver.Pipeline{}, opts)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", source, err)
	}
	return cs, nil
}

// Run watches every bound collection until ctx ends or one stream fails.
// A canceled ctx is not an error.
func (w *Watcher) Run(ctx context.Context) error {
	if len(w.bindings) == 0 {
		return fmt.Errorf("%w: no collections to watch", domain.ErrValidation)
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, b := range w.bindings {
		g.Go(func() error { return w.watch(gctx, b) })
	}
	err := g.Wait()
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

func (w *Watcher) watch(ctx context.Context, b Binding) error {
	source := b.source()
	log := w.logger.With(zap.String("collection", b.Collection), zap.String("source", source))

	var token []byte
	if w.checkpoints != nil {
		var err error
		if token, err = w.checkpoints.Load(ctx, source); err != nil {
			return fmt.Errorf("load resume token %s: %w", source, err)
		}
	}

	cs, err := w.open(ctx, source, token)
	if err != nil {
		return err
	}
	defer func() { _ = cs.Close(context.Background()) }()
	log.Info("change stream opened", zap.Bool("resumed", len(token) > 0))

	for cs.Next(ctx) {
		var ev changeEvent
		if err := cs.Decode(&ev); err != nil {
			return fmt.Errorf("decode change event %s: %w", source, err)
		}
		if err := w.handle(ctx, b.Collection, ev, log); err != nil {
			return err
		}
		if w.checkpoints != nil {
			if err := w.checkpoints.Save(ctx, source, cs.ResumeToken()); err != nil {
				log.Warn("save resume token", zap.Error(err))
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cs.Err(); err != nil {
		return fmt.Errorf("change stream %s: %w", source, err)
	}
	return fmt.Errorf("change stream %s closed: %w", source, ErrStreamInvalidated)
}

// handle publishes one change. Only a closed engine or an invalidated stream
// stop the watcher; document-level failures are already reported by the engine.
func (w *Watcher) handle(ctx context.Context, collection string, ev changeEvent, log *zap.Logger) error {
	var out indexsync.Event
	switch ev.OperationType {
	case opInsert, opReplace, opUpdate:
		if ev.FullDocument == nil {
			// Deleted before the lookup; the delete event follows.
			return nil
		}
		doc, err := toDocument(ev.FullDocument)
		if err != nil {
			log.Warn("skip unconvertible document", zap.Error(err))
			return nil
		}
		out = indexsync.Event{Kind: indexsync.EventUpdate, Collection: collection, Doc: doc}
		switch ev.OperationType {
		case opInsert:
			out.Kind = indexsync.EventCreate
		case opUpdate:
			out.Changed = changedFields(ev.UpdateDescription.UpdatedFields, ev.UpdateDescription.RemovedFields)
		}
	case opDelete:
		id, err := idString(ev.DocumentKey["_id"])
		if err != nil {
			log.Warn("skip delete with unsupported key", zap.Error(err))
			return nil
		}
		out = indexsync.Event{Kind: indexsync.EventRemove, Collection: collection, ID: id}
	case opDrop, opRename, opInvalidate:
		return fmt.Errorf("%s: %w", ev.OperationType, ErrStreamInvalidated)
	default:
		return nil
	}

	if _, err := w.publisher.Publish(ctx, out); err != nil {
		if errors.Is(err, domain.ErrClosed) || ctx.Err() != nil {
			return err
		}
		log.Warn("change not published", zap.String("operation", ev.OperationType), zap.Error(err))
	}
	return nil
}
