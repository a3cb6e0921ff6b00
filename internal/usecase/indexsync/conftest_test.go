package indexsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/syncdex/internal/domain/document"
	"github.com/kailas-cloud/syncdex/internal/domain/mapping"
	"github.com/kailas-cloud/syncdex/internal/domain/syncop"
)

// fakeIndexer implements Indexer for tests and records every call.
type fakeIndexer struct {
	putFn     func(ctx context.Context, index, id string, payload map[string]any) error
	deleteFn  func(ctx context.Context, index, id string) (bool, error)
	putManyFn func(ctx context.Context, index string, ids []string, payloads []map[string]any) ([]error, error)
	refreshFn func(ctx context.Context, index string) error

	mu    sync.Mutex
	calls []string
}

func (f *fakeIndexer) log(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeIndexer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeIndexer) Put(ctx context.Context, index, id string, payload map[string]any) error {
	f.log("put:" + id)
	if f.putFn != nil {
		return f.putFn(ctx, index, id, payload)
	}
	return nil
}

func (f *fakeIndexer) Delete(ctx context.Context, index, id string) (bool, error) {
	f.log("delete:" + id)
	if f.deleteFn != nil {
		return f.deleteFn(ctx, index, id)
	}
	return true, nil
}

func (f *fakeIndexer) PutMany(ctx context.Context, index string, ids []string, payloads []map[string]any) ([]error, error) {
	f.log("bulk:" + joinIDs(ids))
	if f.putManyFn != nil {
		return f.putManyFn(ctx, index, ids, payloads)
	}
	return make([]error, len(ids)), nil
}

func (f *fakeIndexer) Refresh(ctx context.Context, index string) error {
	f.log("refresh:" + index)
	if f.refreshFn != nil {
		return f.refreshFn(ctx, index)
	}
	return nil
}

func joinIDs(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += id
	}
	return out
}

// fakeSink collects dead letters.
type fakeSink struct {
	mu       sync.Mutex
	failures []syncop.Failure
}

func (s *fakeSink) Record(_ context.Context, f syncop.Failure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, f)
	return nil
}

func (s *fakeSink) Failures() []syncop.Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]syncop.Failure(nil), s.failures...)
}

func fastConfig() Config {
	return Config{
		Workers:             4,
		MaxAttempts:         3,
		InitialInterval:     time.Millisecond,
		MaxInterval:         2 * time.Millisecond,
		Multiplier:          2,
		RandomizationFactor: 0,
	}
}

func bondMapping(t testing.TB) mapping.Mapping {
	t.Helper()
	m, err := mapping.New("Bond", []mapping.Field{
		mapping.MustField("name", mapping.Text, mapping.WithKeyword()),
		mapping.MustField("type", mapping.Keyword),
		mapping.MustField("price", mapping.Number),
	})
	require.NoError(t, err)
	return m
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *fakeIndexer) {
	t.Helper()
	fi := &fakeIndexer{}
	e, err := New(fi, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, e.Register(bondMapping(t)))
	require.NoError(t, e.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Stop(ctx)
	})
	return e, fi
}

func bond(t testing.TB, id, name, kind string, price any) document.Document {
	t.Helper()
	d, err := document.New(id, map[string]any{"name": name, "type": kind, "price": price}, 0)
	require.NoError(t, err)
	return d
}

func wait(t *testing.T, tk *Ticket) Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	select {
	case <-tk.Done():
	case <-ctx.Done():
		t.Fatalf("operation %s did not finish", tk.ID())
	}
	out, ok := tk.Outcome()
	require.True(t, ok)
	return out
}
