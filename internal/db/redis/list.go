package redis

import (
	"context"

	"github.com/kailas-cloud/syncdex/internal/db"
)

// RPush appends values to the list at key and returns the new length.
func (s *Store) RPush(ctx context.Context, key string, values ...[]byte) (int64, error) {
	if len(values) == 0 {
		return s.LLen(ctx, key)
	}
	elems := make([]string, len(values))
	for i, v := range values {
		elems[i] = string(v)
	}
	cmd := s.b().Rpush().Key(key).Element(elems...).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpRPush, Err: err}
	}
	return n, nil
}

// LRange returns list elements between start and stop inclusive.
// Negative indexes count from the tail, as in LRANGE.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	cmd := s.b().Lrange().Key(key).Start(start).Stop(stop).Build()
	items, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpLRange, Err: err}
	}
	out := make([][]byte, 0, len(items))
	for _, item := range items {
		b, err := item.AsBytes()
		if err != nil {
			return nil, &db.Error{Op: db.OpLRange, Err: err}
		}
		out = append(out, b)
	}
	return out, nil
}

// LLen returns the list length; a missing key has length 0.
func (s *Store) LLen(ctx context.Context, key string) (int64, error) {
	cmd := s.b().Llen().Key(key).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpLLen, Err: err}
	}
	return n, nil
}

// LTrim keeps only elements between start and stop inclusive.
func (s *Store) LTrim(ctx context.Context, key string, start, stop int64) error {
	cmd := s.b().Ltrim().Key(key).Start(start).Stop(stop).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpLTrim, Err: err}
	}
	return nil
}
