package deadletter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/syncdex/internal/domain/syncop"
)

// DefaultKeyPrefix namespaces dead-letter lists.
const DefaultKeyPrefix = "syncdex:"

// store is the consumer interface for dead-letter lists (ISP).
type store interface {
	RPush(ctx context.Context, key string, values ...[]byte) (int64, error)
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	LLen(ctx context.Context, key string) (int64, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
}

// Store keeps terminal sync failures in one capped list per index.
type Store struct {
	store  store
	prefix string
	maxLen int64
}

// New creates a dead-letter store. maxLen caps each list to its most recent
// entries; 0 keeps everything.
func New(s store, prefix string, maxLen int64) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{store: s, prefix: prefix, maxLen: maxLen}
}

// Record appends a failure and trims the list to its cap.
func (s *Store) Record(ctx context.Context, f syncop.Failure) error {
	data, err := json.Marshal(toEntry(f))
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}

	key := s.key(f.Index)
	n, err := s.store.RPush(ctx, key, data)
	if err != nil {
		return fmt.Errorf("dead letter RPUSH %s: %w", key, err)
	}
	if s.maxLen > 0 && n > s.maxLen {
		if err := s.store.LTrim(ctx, key, -s.maxLen, -1); err != nil {
			return fmt.Errorf("dead letter LTRIM %s: %w", key, err)
		}
	}
	return nil
}

// List returns up to limit of the most recent failures of an index, oldest
// first. limit <= 0 returns all of them.
func (s *Store) List(ctx context.Context, index string, limit int64) ([]syncop.Failure, error) {
	key := s.key(index)
	start := int64(0)
	if limit > 0 {
		start = -limit
	}
	raw, err := s.store.LRange(ctx, key, start, -1)
	if err != nil {
		return nil, fmt.Errorf("dead letter LRANGE %s: %w", key, err)
	}

	out := make([]syncop.Failure, 0, len(raw))
	for i, data := range raw {
		var e entry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("dead letter %s[%d]: %w", key, i, err)
		}
		out = append(out, e.toFailure())
	}
	return out, nil
}

// Len returns the number of failures kept for an index.
func (s *Store) Len(ctx context.Context, index string) (int64, error) {
	key := s.key(index)
	n, err := s.store.LLen(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("dead letter LLEN %s: %w", key, err)
	}
	return n, nil
}

// Clear drops every failure kept for an index.
func (s *Store) Clear(ctx context.Context, index string) error {
	key := s.key(index)
	// LTRIM with start > stop empties the list.
	if err := s.store.LTrim(ctx, key, 1, 0); err != nil {
		return fmt.Errorf("dead letter LTRIM %s: %w", key, err)
	}
	return nil
}

// Key layout: syncdex:deadletter:{index}
func (s *Store) key(index string) string {
	return s.prefix + "deadletter:" + index
}
