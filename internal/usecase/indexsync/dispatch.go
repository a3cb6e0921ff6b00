package indexsync

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/syncdex/internal/domain"
	"github.com/kailas-cloud/syncdex/internal/domain/batch"
	"github.com/kailas-cloud/syncdex/internal/domain/syncop"
	"github.com/kailas-cloud/syncdex/internal/metrics"
)

// execute runs attempts until the operation is terminal. A worker slot is
// held only while an attempt is in flight, not during backoff. Attempts run
// on a context Stop cannot cancel.
func (e *Engine) execute(queueCtx context.Context, j *job) {
	runCtx := context.WithoutCancel(queueCtx)
	bo := e.cfg.newBackOff()
	for {
		if err := e.sem.Acquire(queueCtx, 1); err != nil {
			_ = j.op.Drop()
			return
		}
		e.attempt(runCtx, j)
		e.sem.Release(1)

		if j.op.State() != syncop.StateFailedRetryable {
			return
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			wait = e.cfg.MaxInterval
		}
		e.logger.Debug("retrying sync operation",
			zap.String("operation_id", j.op.ID()),
			zap.String("index", j.op.Index()),
			zap.Int("attempts", j.op.Attempts()),
			zap.Duration("backoff", wait),
			zap.Error(j.op.LastErr()),
		)
		if !sleep(queueCtx, wait) {
			_ = j.op.Drop()
			return
		}
		_ = j.op.Retry()
	}
}

func (e *Engine) attempt(ctx context.Context, j *job) {
	op := j.op
	if err := op.Begin(); err != nil {
		e.logger.Error("begin sync operation", zap.String("operation_id", op.ID()), zap.Error(err))
		_ = op.Drop()
		return
	}
	metrics.SyncAttemptsTotal.WithLabelValues(op.Index(), string(op.Kind())).Inc()

	switch op.Kind() {
	case syncop.KindCreate, syncop.KindUpdate:
		settle(op, e.indexer.Put(ctx, op.Index(), op.Targets()[0], op.Payloads()[0]))
	case syncop.KindDelete:
		found, err := e.indexer.Delete(ctx, op.Index(), op.Targets()[0])
		if err == nil && !found {
			_ = op.SucceedNotFound()
			return
		}
		settle(op, err)
	case syncop.KindBulkCreate:
		e.attemptBulk(ctx, j)
	}
}

func settle(op *syncop.Operation, err error) {
	if err == nil {
		_ = op.Succeed()
		return
	}
	_ = op.Fail(err)
}

// attemptBulk submits the remaining documents. Applied and terminally failed
// documents are settled; retryable ones stay as the next attempt's targets.
func (e *Engine) attemptBulk(ctx context.Context, j *job) {
	op := j.op
	ids := op.Targets()
	errs, err := e.indexer.PutMany(ctx, op.Index(), ids, op.Payloads())
	if err == nil && len(errs) != len(ids) {
		err = domain.NewMalformedResponse("items", fmt.Sprintf("got %d results for %d documents", len(errs), len(ids)))
	}
	if err != nil {
		_ = op.Fail(err)
		if op.State() == syncop.StateFailedTerminal {
			for _, id := range ids {
				j.items[id] = batch.NewError(id, op.LastErr(), op.Attempts())
			}
		}
		return
	}

	var (
		retry    []string
		retryErr error
	)
	for i, id := range ids {
		switch {
		case errs[i] == nil:
			j.items[id] = batch.NewOK(id, op.Attempts())
		case domain.IsRetryable(errs[i]):
			retry = append(retry, id)
			retryErr = errs[i]
		default:
			j.items[id] = batch.NewError(id, errs[i], op.Attempts())
		}
	}

	if len(retry) > 0 {
		_ = op.Fail(retryErr)
		if op.State() == syncop.StateFailedRetryable {
			_ = op.Narrow(retry)
			return
		}
		for _, id := range retry {
			j.items[id] = batch.NewError(id, op.LastErr(), op.Attempts())
		}
		return
	}

	if failed, first := j.failures(); failed > 0 {
		_ = op.Fail(&BulkError{Failed: failed, Total: len(j.order), First: first})
		return
	}
	_ = op.Succeed()
}

// failures counts failed documents and returns the first failure in input order.
func (j *job) failures() (int, error) {
	var (
		n     int
		first error
	)
	for _, id := range j.order {
		r, ok := j.items[id]
		if !ok || r.OK() {
			continue
		}
		if first == nil {
			first = r.Err()
		}
		n++
	}
	return n, first
}

// sleep waits for d and reports false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
