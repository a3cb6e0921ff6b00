package deadletter

import (
	"context"
	"testing"
)

// mockStore implements the consumer interface with an in-memory list per key.
type mockStore struct {
	lists    map[string][][]byte
	rpushErr error
	trims    []string
}

func (m *mockStore) RPush(_ context.Context, key string, values ...[]byte) (int64, error) {
	if m.rpushErr != nil {
		return 0, m.rpushErr
	}
	m.lists[key] = append(m.lists[key], values...)
	return int64(len(m.lists[key])), nil
}

func (m *mockStore) LRange(_ context.Context, key string, start, stop int64) ([][]byte, error) {
	l := m.lists[key]
	lo, hi := span(int64(len(l)), start, stop)
	if lo > hi {
		return nil, nil
	}
	return l[lo : hi+1], nil
}

func (m *mockStore) LLen(_ context.Context, key string) (int64, error) {
	return int64(len(m.lists[key])), nil
}

func (m *mockStore) LTrim(_ context.Context, key string, start, stop int64) error {
	m.trims = append(m.trims, key)
	l := m.lists[key]
	lo, hi := span(int64(len(l)), start, stop)
	if lo > hi {
		delete(m.lists, key)
		return nil
	}
	m.lists[key] = l[lo : hi+1]
	return nil
}

// span resolves Redis-style negative list offsets.
func span(n, start, stop int64) (int64, int64) {
	if start < 0 {
		start = max(n+start, 0)
	}
	if stop < 0 {
		stop = n + stop
	}
	stop = min(stop, n-1)
	return start, stop
}

func newTestStore(t *testing.T, maxLen int64) (*Store, *mockStore) {
	t.Helper()
	ms := &mockStore{lists: map[string][][]byte{}}
	return New(ms, "", maxLen), ms
}
