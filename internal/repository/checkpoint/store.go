package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/syncdex/internal/db"
)

// DefaultKeyPrefix namespaces checkpoint keys.
const DefaultKeyPrefix = "syncdex:"

// store is the consumer interface for checkpoint operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}

// Store persists change-stream resume tokens, one per watched stream.
type Store struct {
	store  store
	prefix string
}

// New creates a checkpoint store.
func New(s store, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{store: s, prefix: prefix}
}

// Load returns the saved resume token of a stream, nil when none was saved.
func (s *Store) Load(ctx context.Context, stream string) ([]byte, error) {
	key := s.key(stream)
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("checkpoint GET %s: %w", key, err)
	}
	return data, nil
}

// Save stores the resume token of a stream, replacing the previous one.
func (s *Store) Save(ctx context.Context, stream string, token []byte) error {
	if len(token) == 0 {
		return fmt.Errorf("checkpoint %s: empty resume token", stream)
	}
	key := s.key(stream)
	if err := s.store.Set(ctx, key, token); err != nil {
		return fmt.Errorf("checkpoint SET %s: %w", key, err)
	}
	return nil
}

// Reset forgets the resume token so the stream starts from now.
func (s *Store) Reset(ctx context.Context, stream string) error {
	key := s.key(stream)
	if err := s.store.Del(ctx, key); err != nil {
		return fmt.Errorf("checkpoint DEL %s: %w", key, err)
	}
	return nil
}

// Key layout: syncdex:checkpoint:{stream}
func (s *Store) key(stream string) string {
	return s.prefix + "checkpoint:" + stream
}
