package indexsync

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/syncdex/internal/domain"
	"github.com/kailas-cloud/syncdex/internal/domain/batch"
	"github.com/kailas-cloud/syncdex/internal/domain/mapping"
	"github.com/kailas-cloud/syncdex/internal/domain/syncop"
	"github.com/kailas-cloud/syncdex/internal/metrics"
)

// sinkTimeout bounds one failure sink write.
const sinkTimeout = 5 * time.Second

// Observer sees the outcome of every operation, including mapping
// rejections that never became an operation. It must not block.
type Observer func(Outcome)

type lifecycle int

const (
	idle lifecycle = iota
	running
	stopped
)

// Engine turns store lifecycle events into index operations and drives each
// of them to a terminal state.
//
// Operations on the same (index, id) run in publish order; others run
// concurrently, at most Config.Workers at a time.
type Engine struct {
	indexer Indexer
	sink    FailureSink
	logger  *zap.Logger
	cfg     Config
	sem     *semaphore.Weighted

	mu        sync.Mutex
	state     lifecycle
	mappings  map[string]mapping.Mapping
	observers []Observer
	tails     map[string]chan struct{} // (index, id) -> done of the latest operation
	live      map[string]*Ticket
	inflight  sync.WaitGroup

	// queueCtx ends on Stop and drops operations waiting for a worker or a
	// backoff. Engine calls never see it: an attempt in flight always runs
	// to completion, bounded by the indexer's own call timeout.
	queueCtx    context.Context
	queueCancel context.CancelFunc
}

// job is an operation with its completion bookkeeping.
type job struct {
	op         *syncop.Operation
	ticket     *Ticket
	order      []string
	items      map[string]batch.Result
	onItem     func(batch.Result)
	registered bool
	// skip resolves the operation as skipped once its predecessors are done.
	skip bool
}

// New creates a sync engine. Call Start before publishing.
func New(indexer Indexer, cfg Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sync config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		indexer:  indexer,
		logger:   logger,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(int64(cfg.Workers)),
		mappings: make(map[string]mapping.Mapping),
		tails:    make(map[string]chan struct{}),
		live:     make(map[string]*Ticket),
	}, nil
}

// WithFailureSink records every terminal failure in s.
func (e *Engine) WithFailureSink(s FailureSink) *Engine {
	e.sink = s
	return e
}

// Register adds the mapping of a store collection.
func (e *Engine) Register(m mapping.Mapping) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.mappings[m.Collection()]; dup {
		return fmt.Errorf("collection %q already registered", m.Collection())
	}
	for _, other := range e.mappings {
		if other.IndexName() == m.IndexName() {
			return fmt.Errorf("collections %q and %q share index %q", other.Collection(), m.Collection(), m.IndexName())
		}
	}
	e.mappings[m.Collection()] = m
	return nil
}

// Mapping returns the registered mapping of a collection.
func (e *Engine) Mapping(collection string) (mapping.Mapping, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.mappings[collection]
	return m, ok
}

// Mappings returns every registered mapping ordered by collection name.
func (e *Engine) Mappings() []mapping.Mapping {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]mapping.Mapping, 0, len(e.mappings))
	for _, name := range slices.Sorted(maps.Keys(e.mappings)) {
		out = append(out, e.mappings[name])
	}
	return out
}

// OnComplete registers an observer.
func (e *Engine) OnComplete(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// Start begins accepting events. A stopped engine cannot be restarted.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case running:
		return nil
	case stopped:
		return fmt.Errorf("start: %w", domain.ErrClosed)
	}
	e.queueCtx, e.queueCancel = context.WithCancel(context.Background())
	e.state = running
	return nil
}

// Stop refuses new events, drops operations not dispatched yet and waits for
// in-flight ones. In-flight attempts are never aborted: when ctx ends first,
// Stop returns ctx.Err() and those attempts finish and resolve their tickets
// in the background.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	prev := e.state
	e.state = stopped
	e.mu.Unlock()
	if prev != running {
		return nil
	}

	e.queueCancel()
	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop: %w", ctx.Err())
	}
}

// Pending returns the number of operations not yet terminal.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

// Flush waits until every operation published so far is terminal.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	tickets := slices.Collect(maps.Values(e.live))
	e.mu.Unlock()

	for _, t := range tickets {
		select {
		case <-t.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// WaitIndexed waits for the operation and refreshes its index so the
// result is visible to search.
func (e *Engine) WaitIndexed(ctx context.Context, t *Ticket) (Outcome, error) {
	out, err := t.Wait(ctx)
	if err != nil {
		return out, err
	}
	if err := e.indexer.Refresh(ctx, t.Index()); err != nil {
		return out, fmt.Errorf("refresh %s: %w", t.Index(), err)
	}
	return out, nil
}

// Publish turns a lifecycle event into an operation and schedules it.
// Serialization happens here: a mapping failure is returned at once and
// reported to observers. The returned ticket resolves when the operation is
// terminal.
func (e *Engine) Publish(ctx context.Context, ev Event) (*Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, ok := e.Mapping(ev.Collection)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCollection, ev.Collection)
	}

	j, err := e.prepare(ev, m)
	if err != nil {
		return nil, err
	}
	return e.enqueue(j)
}

func (e *Engine) prepare(ev Event, m mapping.Mapping) (*job, error) {
	index := m.IndexName()
	maxAttempts := e.cfg.MaxAttempts

	switch ev.Kind {
	case EventCreate, EventUpdate:
		kind := syncop.KindCreate
		if ev.Kind == EventUpdate {
			kind = syncop.KindUpdate
		}
		if kind == syncop.KindUpdate && !m.Touches(ev.Changed) {
			op, err := newOperation(kind, index, []string{ev.Doc.ID()}, []map[string]any{{}}, maxAttempts)
			if err != nil {
				return nil, err
			}
			return &job{op: op, ticket: newTicket(op), skip: true}, nil
		}
		payload, err := mapping.ToIndexPayload(ev.Doc, m)
		if err != nil {
			e.reject(kind, index, []string{ev.Doc.ID()}, err)
			return nil, fmt.Errorf("serialize %s/%s: %w", index, ev.Doc.ID(), err)
		}
		op, err := newOperation(kind, index, []string{ev.Doc.ID()}, []map[string]any{payload}, maxAttempts)
		if err != nil {
			return nil, err
		}
		return &job{op: op, ticket: newTicket(op)}, nil

	case EventRemove:
		op, err := newOperation(syncop.KindDelete, index, []string{ev.ID}, nil, maxAttempts)
		if err != nil {
			return nil, err
		}
		return &job{op: op, ticket: newTicket(op)}, nil

	case EventBulkSave:
		return e.prepareBulk(ev, m)

	default:
		return nil, fmt.Errorf("%w: unknown event kind %q", domain.ErrValidation, ev.Kind)
	}
}

// prepareBulk serializes every document. Documents that fail serialization
// get their result at once; the rest form one bulk operation.
func (e *Engine) prepareBulk(ev Event, m mapping.Mapping) (*job, error) {
	index := m.IndexName()
	if len(ev.Docs) == 0 {
		return nil, fmt.Errorf("%w: bulk save without documents", domain.ErrValidation)
	}

	order := make([]string, 0, len(ev.Docs))
	seen := make(map[string]struct{}, len(ev.Docs))
	items := make(map[string]batch.Result)
	ids := make([]string, 0, len(ev.Docs))
	payloads := make([]map[string]any, 0, len(ev.Docs))
	var rejected []error

	for _, doc := range ev.Docs {
		if _, dup := seen[doc.ID()]; dup {
			return nil, fmt.Errorf("%w: duplicate document id %q in bulk save", domain.ErrValidation, doc.ID())
		}
		seen[doc.ID()] = struct{}{}
		order = append(order, doc.ID())
		payload, err := mapping.ToIndexPayload(doc, m)
		if err != nil {
			items[doc.ID()] = batch.NewError(doc.ID(), err, 0)
			rejected = append(rejected, err)
			continue
		}
		ids = append(ids, doc.ID())
		payloads = append(payloads, payload)
	}

	if len(rejected) > 0 {
		failed := make([]string, 0, len(rejected))
		for _, id := range order {
			if _, ok := items[id]; ok {
				failed = append(failed, id)
			}
		}
		e.reject(syncop.KindBulkCreate, index, failed, rejected[0])
	}
	if len(ids) == 0 {
		if ev.OnItem != nil {
			for _, id := range order {
				ev.OnItem(items[id])
			}
		}
		return nil, fmt.Errorf("serialize %s: %w", index,
			&BulkError{Failed: len(rejected), Total: len(order), First: rejected[0]})
	}

	op, err := newOperation(syncop.KindBulkCreate, index, ids, payloads, e.cfg.MaxAttempts)
	if err != nil {
		return nil, err
	}
	return &job{op: op, ticket: newTicket(op), order: order, items: items, onItem: ev.OnItem}, nil
}

func newOperation(kind syncop.Kind, index string, ids []string, payloads []map[string]any, maxAttempts int) (*syncop.Operation, error) {
	op, err := syncop.New(kind, index, ids, payloads, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return op, nil
}

func (e *Engine) enqueue(j *job) (*Ticket, error) {
	e.mu.Lock()
	if e.state != running {
		e.mu.Unlock()
		return nil, fmt.Errorf("publish: %w", domain.ErrClosed)
	}

	var preds []<-chan struct{}
	for _, id := range j.op.Targets() {
		key := j.op.Index() + "\x00" + id
		if prev, ok := e.tails[key]; ok {
			preds = append(preds, prev)
		}
		e.tails[key] = j.ticket.done
	}
	e.live[j.op.ID()] = j.ticket
	j.registered = true
	e.inflight.Add(1)
	queueCtx := e.queueCtx
	e.mu.Unlock()

	metrics.SyncQueueDepth.Inc()
	go e.run(queueCtx, j, preds)
	return j.ticket, nil
}

// run waits for the earlier operations on the same ids, then executes j.
// A skipped update also waits, so its ticket never resolves ahead of the
// write it follows.
func (e *Engine) run(queueCtx context.Context, j *job, preds []<-chan struct{}) {
	defer e.inflight.Done()
	defer e.finish(j)

	for _, p := range preds {
		select {
		case <-p:
		case <-queueCtx.Done():
		}
	}
	if j.skip {
		if queueCtx.Err() != nil {
			_ = j.op.Drop()
			return
		}
		_ = j.op.Skip()
		return
	}
	e.execute(queueCtx, j)
}

// finish reports a terminal operation: items, metrics, logs, failure sink,
// observers, then the ticket.
func (e *Engine) finish(j *job) {
	op := j.op
	out := Outcome{
		OperationID: op.ID(),
		Kind:        op.Kind(),
		Index:       op.Index(),
		IDs:         j.ticket.ids,
		State:       op.State(),
		Attempts:    op.Attempts(),
		Err:         op.LastErr(),
		NotFound:    op.NotFound(),
		Skipped:     op.Skipped(),
		Duration:    time.Since(op.CreatedAt()),
	}

	var failedIDs []string
	if op.Kind() == syncop.KindBulkCreate {
		out.IDs = j.order
		out.Items = make([]batch.Result, 0, len(j.order))
		for _, id := range j.order {
			r, ok := j.items[id]
			if !ok {
				if out.OK() {
					r = batch.NewOK(id, op.Attempts())
				} else {
					r = batch.NewError(id, op.LastErr(), op.Attempts())
				}
			}
			if !r.OK() {
				failedIDs = append(failedIDs, id)
			}
			out.Items = append(out.Items, r)
			if j.onItem != nil {
				j.onItem(r)
			}
		}
	}

	e.record(out, j, failedIDs)
	e.notify(out)
	j.ticket.resolve(out)

	if j.registered {
		e.mu.Lock()
		for _, id := range j.ticket.ids {
			key := op.Index() + "\x00" + id
			if e.tails[key] == j.ticket.done {
				delete(e.tails, key)
			}
		}
		delete(e.live, op.ID())
		e.mu.Unlock()
		metrics.SyncQueueDepth.Dec()
	}
}

func (e *Engine) record(out Outcome, j *job, failedIDs []string) {
	kind := string(out.Kind)
	metrics.SyncLagSeconds.WithLabelValues(out.Index).Observe(out.Duration.Seconds())

	switch {
	case out.Skipped:
		metrics.SyncOperationsTotal.WithLabelValues(out.Index, kind, "skipped").Inc()
		e.logger.Debug("sync operation skipped", zap.String("operation_id", out.OperationID),
			zap.String("index", out.Index), zap.Strings("ids", out.IDs))
		return
	case out.OK():
		metrics.SyncOperationsTotal.WithLabelValues(out.Index, kind, "succeeded").Inc()
		e.logger.Debug("sync operation succeeded", zap.String("operation_id", out.OperationID),
			zap.String("index", out.Index), zap.String("kind", kind),
			zap.Int("attempts", out.Attempts), zap.Bool("not_found", out.NotFound))
		return
	}

	label := "failed"
	if errors.Is(out.Err, domain.ErrDropped) {
		label = "dropped"
	}
	metrics.SyncOperationsTotal.WithLabelValues(out.Index, kind, label).Inc()
	e.logger.Warn("sync operation failed",
		zap.String("operation_id", out.OperationID),
		zap.String("index", out.Index),
		zap.String("kind", kind),
		zap.Strings("ids", out.IDs),
		zap.Int("attempts", out.Attempts),
		zap.Error(out.Err),
	)

	if e.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()
	if err := e.sink.Record(ctx, syncop.FailureOf(j.op, failedIDs)); err != nil {
		e.logger.Error("record dead letter", zap.String("operation_id", out.OperationID), zap.Error(err))
		return
	}
	metrics.DeadLettersTotal.WithLabelValues(out.Index).Inc()
}

// reject reports a document that failed serialization and never became an operation.
func (e *Engine) reject(kind syncop.Kind, index string, ids []string, err error) {
	metrics.SyncOperationsTotal.WithLabelValues(index, string(kind), "rejected").Inc()
	e.logger.Warn("document rejected by mapping",
		zap.String("index", index),
		zap.String("kind", string(kind)),
		zap.Strings("ids", ids),
		zap.Error(err),
	)
	e.notify(Outcome{
		Kind:  kind,
		Index: index,
		IDs:   ids,
		State: syncop.StateFailedTerminal,
		Err:   err,
	})
}

func (e *Engine) notify(out Outcome) {
	e.mu.Lock()
	observers := slices.Clone(e.observers)
	e.mu.Unlock()
	for _, o := range observers {
		o(out)
	}
}
