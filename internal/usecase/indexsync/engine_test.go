package indexsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/syncdex/internal/db"
	"github.com/kailas-cloud/syncdex/internal/domain"
	"github.com/kailas-cloud/syncdex/internal/domain/batch"
	"github.com/kailas-cloud/syncdex/internal/domain/document"
	"github.com/kailas-cloud/syncdex/internal/domain/syncop"
)

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no workers", func(c *Config) { c.Workers = 0 }},
		{"no attempts", func(c *Config) { c.MaxAttempts = 0 }},
		{"zero interval", func(c *Config) { c.InitialInterval = 0 }},
		{"max below initial", func(c *Config) { c.MaxInterval = c.InitialInterval / 2 }},
		{"shrinking multiplier", func(c *Config) { c.Multiplier = 0.5 }},
		{"jitter above one", func(c *Config) { c.RandomizationFactor = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
			_, err := New(&fakeIndexer{}, cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestRegister_Conflicts(t *testing.T) {
	e, err := New(&fakeIndexer{}, fastConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, e.Register(bondMapping(t)))
	assert.Error(t, e.Register(bondMapping(t)), "same collection twice")

	m, ok := e.Mapping("Bond")
	require.True(t, ok)
	assert.Equal(t, "bonds", m.IndexName())
	assert.Len(t, e.Mappings(), 1)
}

func TestPublish_CreateSucceeds(t *testing.T) {
	e, fi := newTestEngine(t, fastConfig())

	var got map[string]any
	fi.putFn = func(_ context.Context, index, id string, payload map[string]any) error {
		assert.Equal(t, "bonds", index)
		assert.Equal(t, "b-1", id)
		got = payload
		return nil
	}

	tk, err := e.Hooks("Bond").OnCreate(context.Background(), bond(t, "b-1", "Bail", "A", "10000"))
	require.NoError(t, err)
	out := wait(t, tk)

	assert.True(t, out.OK())
	assert.Equal(t, syncop.KindCreate, out.Kind)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, []string{"b-1"}, out.IDs)
	assert.Equal(t, map[string]any{"name": "Bail", "type": "A", "price": int64(10000)}, got)
}

func TestPublish_RetryThenSucceed(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxAttempts = 5
	e, fi := newTestEngine(t, cfg)

	var calls atomic.Int32
	fi.putFn = func(context.Context, string, string, map[string]any) error {
		if calls.Add(1) <= 2 {
			return &db.Error{Op: db.OpPut, Status: 503, Err: db.ErrTransient}
		}
		return nil
	}

	tk, err := e.Hooks("Bond").OnCreate(context.Background(), bond(t, "b-1", "Bail", "A", 1))
	require.NoError(t, err)
	out := wait(t, tk)

	assert.True(t, out.OK())
	assert.Equal(t, 3, out.Attempts)
	assert.NoError(t, out.Err)
}

func TestPublish_RetryExhausted(t *testing.T) {
	e, fi := newTestEngine(t, fastConfig())
	sink := &fakeSink{}
	e.WithFailureSink(sink)

	fi.putFn = func(context.Context, string, string, map[string]any) error {
		return &db.Error{Op: db.OpPut, Err: db.ErrConnection}
	}

	tk, err := e.Hooks("Bond").OnCreate(context.Background(), bond(t, "b-1", "Bail", "A", 1))
	require.NoError(t, err)
	_, werr := tk.Wait(context.Background())
	out := wait(t, tk)

	assert.Equal(t, syncop.StateFailedTerminal, out.State)
	assert.Equal(t, 3, out.Attempts)
	require.ErrorIs(t, werr, domain.ErrRetryExhausted)
	assert.ErrorIs(t, out.Err, domain.ErrConnection)
	var re *domain.RetryExhaustedError
	require.ErrorAs(t, out.Err, &re)
	assert.Equal(t, 3, re.Attempts)

	failures := sink.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, tk.ID(), failures[0].OperationID)
	assert.Equal(t, []string{"b-1"}, failures[0].IDs)
	assert.Len(t, fi.Calls(), 3)
}

func TestPublish_TerminalOnRejection(t *testing.T) {
	e, fi := newTestEngine(t, fastConfig())
	fi.putFn = func(context.Context, string, string, map[string]any) error {
		return &db.Error{Op: db.OpPut, Status: 400, Type: "mapper_parsing_exception", Err: db.ErrRejected}
	}

	tk, err := e.Hooks("Bond").OnCreate(context.Background(), bond(t, "b-1", "Bail", "A", 1))
	require.NoError(t, err)
	out := wait(t, tk)

	assert.Equal(t, syncop.StateFailedTerminal, out.State)
	assert.Equal(t, 1, out.Attempts)
	assert.ErrorIs(t, out.Err, domain.ErrValidation)
	assert.NotErrorIs(t, out.Err, domain.ErrRetryExhausted)
}

func TestPublish_DeleteNotFound(t *testing.T) {
	e, fi := newTestEngine(t, fastConfig())
	fi.deleteFn = func(context.Context, string, string) (bool, error) { return false, nil }

	tk, err := e.Hooks("Bond").OnRemove(context.Background(), "b-9")
	require.NoError(t, err)
	out := wait(t, tk)

	assert.True(t, out.OK())
	assert.True(t, out.NotFound)
	assert.Equal(t, syncop.KindDelete, out.Kind)
}

func TestPublish_UpdateSkippedWhenNoIndexedFieldChanged(t *testing.T) {
	e, fi := newTestEngine(t, fastConfig())

	tk, err := e.Hooks("Bond").OnUpdate(context.Background(), bond(t, "b-1", "Bail", "A", 1), []string{"updatedAt"})
	require.NoError(t, err)
	out := wait(t, tk)

	assert.True(t, out.OK())
	assert.True(t, out.Skipped)
	assert.Zero(t, out.Attempts)
	assert.Empty(t, fi.Calls())

	tk, err = e.Hooks("Bond").OnUpdate(context.Background(), bond(t, "b-1", "Bail", "A", 2), []string{"price"})
	require.NoError(t, err)
	out = wait(t, tk)
	assert.False(t, out.Skipped)
	assert.Equal(t, []string{"put:b-1"}, fi.Calls())
}

func TestPublish_MappingFailureIsImmediate(t *testing.T) {
	e, fi := newTestEngine(t, fastConfig())

	var observed []Outcome
	var mu sync.Mutex
	e.OnComplete(func(o Outcome) {
		mu.Lock()
		observed = append(observed, o)
		mu.Unlock()
	})

	tk, err := e.Hooks("Bond").OnCreate(context.Background(), bond(t, "b-1", "Bail", "A", "a lot"))
	assert.Nil(t, tk)
	require.ErrorIs(t, err, domain.ErrMappingMismatch)
	var mm *domain.MappingMismatchError
	require.ErrorAs(t, err, &mm)
	assert.Equal(t, "price", mm.Field)
	assert.Empty(t, fi.Calls())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, observed, 1)
	assert.Equal(t, syncop.StateFailedTerminal, observed[0].State)
	assert.Equal(t, []string{"b-1"}, observed[0].IDs)
}

func TestPublish_Rejections(t *testing.T) {
	e, _ := newTestEngine(t, fastConfig())
	ctx := context.Background()

	_, err := e.Hooks("Coupon").OnRemove(ctx, "c-1")
	assert.ErrorIs(t, err, domain.ErrUnknownCollection)

	_, err = e.Hooks("Bond").OnRemove(ctx, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.Hooks("Bond").BulkSave(ctx, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	dup := bond(t, "b-1", "Bail", "A", 1)
	_, err = e.Hooks("Bond").BulkSave(ctx, []document.Document{dup, dup}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.Publish(ctx, Event{Kind: "upsert", Collection: "Bond"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = e.Hooks("Bond").OnRemove(canceled, "b-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPublish_BeforeStartAndAfterStop(t *testing.T) {
	e, err := New(&fakeIndexer{}, fastConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, e.Register(bondMapping(t)))

	_, err = e.Hooks("Bond").OnRemove(context.Background(), "b-1")
	assert.ErrorIs(t, err, domain.ErrClosed)

	require.NoError(t, e.Start())
	require.NoError(t, e.Start(), "start is idempotent")
	require.NoError(t, e.Stop(context.Background()))
	require.NoError(t, e.Stop(context.Background()), "stop is idempotent")

	_, err = e.Hooks("Bond").OnRemove(context.Background(), "b-1")
	assert.ErrorIs(t, err, domain.ErrClosed)
	assert.ErrorIs(t, e.Start(), domain.ErrClosed)
}

func TestBulkSave_RetriesOnlyRetryableItems(t *testing.T) {
	e, fi := newTestEngine(t, fastConfig())
	sink := &fakeSink{}
	e.WithFailureSink(sink)

	var rounds [][]string
	fi.putManyFn = func(_ context.Context, _ string, ids []string, _ []map[string]any) ([]error, error) {
		rounds = append(rounds, append([]string(nil), ids...))
		errs := make([]error, len(ids))
		if len(rounds) == 1 {
			errs[1] = fmt.Errorf("item: %w", db.ErrTransient)
			errs[2] = fmt.Errorf("item: %w", db.ErrRejected)
		}
		return errs, nil
	}

	var reported []batch.Result
	docs := []document.Document{
		bond(t, "b-1", "Bail", "A", 10000),
		bond(t, "b-2", "Commercial", "B", 15000),
		bond(t, "b-3", "Construction", "B", 20000),
	}
	tk, err := e.Hooks("Bond").BulkSave(context.Background(), docs, func(r batch.Result) {
		reported = append(reported, r)
	})
	require.NoError(t, err)
	out := wait(t, tk)

	require.Len(t, rounds, 2)
	assert.Equal(t, []string{"b-1", "b-2", "b-3"}, rounds[0])
	assert.Equal(t, []string{"b-2"}, rounds[1])

	assert.Equal(t, syncop.StateFailedTerminal, out.State)
	var be *BulkError
	require.ErrorAs(t, out.Err, &be)
	assert.Equal(t, 1, be.Failed)
	assert.Equal(t, 3, be.Total)
	assert.ErrorIs(t, out.Err, domain.ErrValidation)

	require.Len(t, out.Items, 3)
	assert.True(t, out.Items[0].OK())
	assert.Equal(t, 1, out.Items[0].Attempts())
	assert.True(t, out.Items[1].OK())
	assert.Equal(t, 2, out.Items[1].Attempts())
	assert.False(t, out.Items[2].OK())
	assert.Equal(t, out.Items, reported)

	failures := sink.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, []string{"b-3"}, failures[0].IDs)
}

func TestBulkSave_ExhaustedItems(t *testing.T) {
	e, fi := newTestEngine(t, fastConfig())
	fi.putManyFn = func(_ context.Context, _ string, ids []string, _ []map[string]any) ([]error, error) {
		errs := make([]error, len(ids))
		for i, id := range ids {
			if id == "b-2" {
				errs[i] = db.ErrTransient
			}
		}
		return errs, nil
	}

	tk, err := e.Hooks("Bond").BulkSave(context.Background(), []document.Document{
		bond(t, "b-1", "Bail", "A", 1),
		bond(t, "b-2", "Commercial", "B", 2),
	}, nil)
	require.NoError(t, err)
	out := wait(t, tk)

	assert.ErrorIs(t, out.Err, domain.ErrRetryExhausted)
	assert.True(t, out.Items[0].OK())
	assert.ErrorIs(t, out.Items[1].Err(), domain.ErrRetryExhausted)
	assert.Equal(t, 3, out.Items[1].Attempts())
	assert.Equal(t, []string{"bulk:b-1,b-2", "bulk:b-2", "bulk:b-2"}, fi.Calls())
}

func TestBulkSave_MappingRejectedDocument(t *testing.T) {
	e, fi := newTestEngine(t, fastConfig())

	tk, err := e.Hooks("Bond").BulkSave(context.Background(), []document.Document{
		bond(t, "b-1", "Bail", "A", "not a price"),
		bond(t, "b-2", "Commercial", "B", 2),
	}, nil)
	require.NoError(t, err)
	out := wait(t, tk)

	assert.Equal(t, []string{"bulk:b-2"}, fi.Calls())
	assert.Equal(t, []string{"b-1", "b-2"}, out.IDs)
	assert.ErrorIs(t, out.Items[0].Err(), domain.ErrMappingMismatch)
	assert.Zero(t, out.Items[0].Attempts())
	assert.True(t, out.Items[1].OK())
	assert.ErrorIs(t, out.Err, domain.ErrMappingMismatch)

	var reported int
	_, err = e.Hooks("Bond").BulkSave(context.Background(), []document.Document{
		bond(t, "b-3", "Construction", "B", "nope"),
	}, func(batch.Result) { reported++ })
	assert.ErrorIs(t, err, domain.ErrMappingMismatch)
	assert.Equal(t, 1, reported)
}

func TestBulkSave_RequestFailure(t *testing.T) {
	e, fi := newTestEngine(t, fastConfig())
	fi.putManyFn = func(context.Context, string, []string, []map[string]any) ([]error, error) {
		return nil, db.ErrRejected
	}

	tk, err := e.Hooks("Bond").BulkSave(context.Background(), []document.Document{
		bond(t, "b-1", "Bail", "A", 1),
		bond(t, "b-2", "Commercial", "B", 2),
	}, nil)
	require.NoError(t, err)
	out := wait(t, tk)

	assert.Equal(t, 1, out.Attempts)
	for _, item := range out.Items {
		assert.ErrorIs(t, item.Err(), domain.ErrValidation)
	}
}

func TestOrdering_SameDocumentRunsInPublishOrder(t *testing.T) {
	e, fi := newTestEngine(t, fastConfig())

	release := make(chan struct{})
	started := make(chan struct{}, 4)
	var mu sync.Mutex
	var applied []any
	fi.putFn = func(_ context.Context, _, _ string, payload map[string]any) error {
		started <- struct{}{}
		if payload["price"] == int64(1) {
			<-release
		}
		mu.Lock()
		applied = append(applied, payload["price"])
		mu.Unlock()
		return nil
	}

	hooks := e.Hooks("Bond")
	first, err := hooks.OnCreate(context.Background(), bond(t, "b-1", "Bail", "A", 1))
	require.NoError(t, err)
	<-started
	second, err := hooks.OnUpdate(context.Background(), bond(t, "b-1", "Bail", "A", 2), nil)
	require.NoError(t, err)
	other, err := hooks.OnCreate(context.Background(), bond(t, "b-2", "Legal", "C", 3))
	require.NoError(t, err)

	assert.True(t, wait(t, other).OK(), "other ids are not blocked")
	select {
	case <-second.Done():
		t.Fatal("update finished before the create it follows")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	wait(t, first)
	wait(t, second)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []any{int64(3), int64(1), int64(2)}, applied)
}

func TestOrdering_SkippedUpdateWaitsForPredecessor(t *testing.T) {
	e, fi := newTestEngine(t, fastConfig())

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	fi.putFn = func(context.Context, string, string, map[string]any) error {
		started <- struct{}{}
		<-release
		return nil
	}

	hooks := e.Hooks("Bond")
	create, err := hooks.OnCreate(context.Background(), bond(t, "b-1", "Bail", "A", 1))
	require.NoError(t, err)
	<-started
	update, err := hooks.OnUpdate(context.Background(), bond(t, "b-1", "Bail", "A", 1), []string{"updatedAt"})
	require.NoError(t, err)

	select {
	case <-update.Done():
		t.Fatal("skipped update resolved before the create it follows")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	assert.True(t, wait(t, create).OK())
	out := wait(t, update)
	assert.True(t, out.OK())
	assert.True(t, out.Skipped)
	assert.Equal(t, []string{"put:b-1"}, fi.Calls())
}

func TestWorkers_BoundConcurrency(t *testing.T) {
	cfg := fastConfig()
	cfg.Workers = 2
	e, fi := newTestEngine(t, cfg)

	var cur, peak atomic.Int32
	fi.putFn = func(context.Context, string, string, map[string]any) error {
		n := cur.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		cur.Add(-1)
		return nil
	}

	var tickets []*Ticket
	for i := range 8 {
		tk, err := e.Hooks("Bond").OnCreate(context.Background(), bond(t, fmt.Sprintf("b-%d", i), "x", "A", i))
		require.NoError(t, err)
		tickets = append(tickets, tk)
	}
	require.NoError(t, e.Flush(context.Background()))
	for _, tk := range tickets {
		_, ok := tk.Outcome()
		assert.True(t, ok)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Eventually(t, func() bool { return e.Pending() == 0 }, time.Second, time.Millisecond)
}

func TestStop_DropsUndispatched(t *testing.T) {
	cfg := fastConfig()
	cfg.Workers = 1
	e, fi := newTestEngine(t, cfg)
	sink := &fakeSink{}
	e.WithFailureSink(sink)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	fi.putFn = func(_ context.Context, _, id string, _ map[string]any) error {
		if id == "b-1" {
			started <- struct{}{}
			<-release
		}
		return nil
	}

	hooks := e.Hooks("Bond")
	inFlight, err := hooks.OnCreate(context.Background(), bond(t, "b-1", "Bail", "A", 1))
	require.NoError(t, err)
	<-started
	queued, err := hooks.OnCreate(context.Background(), bond(t, "b-2", "Legal", "C", 2))
	require.NoError(t, err)

	stopped := make(chan error, 1)
	go func() { stopped <- e.Stop(context.Background()) }()

	dropped := wait(t, queued)
	assert.ErrorIs(t, dropped.Err, domain.ErrDropped)
	assert.Zero(t, dropped.Attempts)

	close(release)
	require.NoError(t, <-stopped)
	assert.True(t, wait(t, inFlight).OK())
	assert.NotContains(t, fi.Calls(), "put:b-2")

	failures := sink.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, queued.ID(), failures[0].OperationID)
}

func TestStop_DropsDuringBackoff(t *testing.T) {
	cfg := fastConfig()
	cfg.InitialInterval = time.Hour
	cfg.MaxInterval = time.Hour
	e, fi := newTestEngine(t, cfg)

	attempted := make(chan struct{}, 1)
	fi.putFn = func(context.Context, string, string, map[string]any) error {
		attempted <- struct{}{}
		return db.ErrTransient
	}

	tk, err := e.Hooks("Bond").OnCreate(context.Background(), bond(t, "b-1", "Bail", "A", 1))
	require.NoError(t, err)
	<-attempted

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Stop(ctx))

	out := wait(t, tk)
	assert.ErrorIs(t, out.Err, domain.ErrDropped)
	assert.Equal(t, 1, out.Attempts)
}

func TestStop_DeadlineLeavesInFlightRunning(t *testing.T) {
	e, fi := newTestEngine(t, fastConfig())

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	fi.putFn = func(ctx context.Context, _, _ string, _ map[string]any) error {
		started <- struct{}{}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	tk, err := e.Hooks("Bond").OnCreate(context.Background(), bond(t, "b-1", "Bail", "A", 1))
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.Stop(ctx), context.DeadlineExceeded)

	select {
	case <-tk.Done():
		t.Fatal("in-flight operation resolved before its engine call returned")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	out := wait(t, tk)
	assert.True(t, out.OK(), "attempt ran to completion: %v", out.Err)
	assert.Equal(t, 1, out.Attempts)
}

func TestWaitIndexed_Refreshes(t *testing.T) {
	e, fi := newTestEngine(t, fastConfig())

	tk, err := e.Hooks("Bond").OnCreate(context.Background(), bond(t, "b-1", "Bail", "A", 1))
	require.NoError(t, err)
	out, err := e.WaitIndexed(context.Background(), tk)
	require.NoError(t, err)
	assert.True(t, out.OK())
	assert.Equal(t, []string{"put:b-1", "refresh:bonds"}, fi.Calls())

	fi.refreshFn = func(context.Context, string) error { return db.ErrTimeout }
	tk, err = e.Hooks("Bond").OnRemove(context.Background(), "b-1")
	require.NoError(t, err)
	_, err = e.WaitIndexed(context.Background(), tk)
	assert.ErrorIs(t, err, db.ErrTimeout)
}

func TestWait_ContextEnds(t *testing.T) {
	e, fi := newTestEngine(t, fastConfig())
	release := make(chan struct{})
	defer close(release)
	fi.putFn = func(context.Context, string, string, map[string]any) error {
		<-release
		return nil
	}

	tk, err := e.Hooks("Bond").OnCreate(context.Background(), bond(t, "b-1", "Bail", "A", 1))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = tk.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, ok := tk.Outcome()
	assert.False(t, ok)
	assert.Equal(t, 1, e.Pending())
	assert.ErrorIs(t, e.Flush(ctx), context.DeadlineExceeded)
}

func TestOnComplete_SeesEveryOutcome(t *testing.T) {
	e, fi := newTestEngine(t, fastConfig())
	fi.deleteFn = func(_ context.Context, _, id string) (bool, error) {
		if id == "bad" {
			return false, errors.New("boom")
		}
		return true, nil
	}

	var mu sync.Mutex
	seen := map[string]syncop.State{}
	e.OnComplete(func(o Outcome) {
		mu.Lock()
		seen[o.IDs[0]] = o.State
		mu.Unlock()
	})

	for _, id := range []string{"b-1", "bad"} {
		_, err := e.Hooks("Bond").OnRemove(context.Background(), id)
		require.NoError(t, err)
	}
	require.NoError(t, e.Flush(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]syncop.State{"b-1": syncop.StateSucceeded, "bad": syncop.StateFailedTerminal}, seen)
}
