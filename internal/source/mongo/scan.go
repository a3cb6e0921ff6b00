package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/kailas-cloud/syncdex/internal/domain/document"
	"github.com/kailas-cloud/syncdex/internal/domain/mapping"
)

// cursor is the part of *mongo.Cursor the scanner reads.
type cursor interface {
	Next(ctx context.Context) bool
	Decode(v any) error
	Err() error
	Close(ctx context.Context) error
}

type findFunc func(ctx context.Context, source string, batchSize int32) (cursor, error)

// Scanner reads whole collections in _id order for resynchronization.
type Scanner struct {
	find    findFunc
	sources map[string]string
	logger  *zap.Logger
}

// NewScanner creates a scanner. Bindings map registered collections to
// MongoDB collections; unbound collections use mapping.IndexName.
func NewScanner(c *Client, bindings []Binding, logger *zap.Logger) *Scanner {
	return newScanner(c.findAll, bindings, logger)
}

func newScanner(find findFunc, bindings []Binding, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	sources := make(map[string]string, len(bindings))
	for _, b := range bindings {
		sources[b.Collection] = b.source()
	}
	return &Scanner{find: find, sources: sources, logger: logger}
}

func (c *Client) findAll(ctx context.Context, source string, batchSize int32) (cursor, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetBatchSize(batchSize)
	cur, err := c.Collection(source).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", source, err)
	}
	return cur, nil
}

// Scan calls fn with consecutive pages of at most pageSize documents.
// Documents that cannot be converted are logged and skipped.
func (s *Scanner) Scan(ctx context.Context, collection string, pageSize int, fn func([]document.Document) error) error {
	if pageSize <= 0 {
		pageSize = 500
	}
	source, ok := s.sources[collection]
	if !ok {
		source = mapping.IndexName(collection)
	}

	cur, err := s.find(ctx, source, int32(min(pageSize, 1<<20)))
	if err != nil {
		return err
	}
	defer func() { _ = cur.Close(context.Background()) }()

	page := make([]document.Document, 0, pageSize)
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return fmt.Errorf("decode %s: %w", source, err)
		}
		doc, err := toDocument(raw)
		if err != nil {
			s.logger.Warn("skip unconvertible document", zap.String("source", source), zap.Error(err))
			continue
		}
		page = append(page, doc)
		if len(page) == pageSize {
			if err := fn(page); err != nil {
				return err
			}
			page = make([]document.Document, 0, pageSize)
		}
	}
	if err := cur.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", source, err)
	}
	if len(page) > 0 {
		return fn(page)
	}
	return nil
}
