package syncdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/syncdex/internal/db"
	"github.com/kailas-cloud/syncdex/internal/db/elastic"
	"github.com/kailas-cloud/syncdex/internal/db/embedded"
	"github.com/kailas-cloud/syncdex/internal/domain/search/result"
	collectionrepo "github.com/kailas-cloud/syncdex/internal/repository/collection"
	documentrepo "github.com/kailas-cloud/syncdex/internal/repository/document"
	searchrepo "github.com/kailas-cloud/syncdex/internal/repository/search"
	collectionuc "github.com/kailas-cloud/syncdex/internal/usecase/collection"
	"github.com/kailas-cloud/syncdex/internal/usecase/indexsync"
	searchuc "github.com/kailas-cloud/syncdex/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the syncdex SDK entry point. It owns the engine connection and
// the sync engine; Close releases both.
type Client struct {
	store     db.Engine
	engine    *indexsync.Engine
	collSvc   *collectionuc.Service
	searchSvc *searchuc.Service
	obs       *observer
}

// New creates a Client, connects to the engine and starts the sync engine.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("syncdex: engine required (use WithElastic or WithMemory)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("syncdex: engine not ready: %w", err)
	}

	c, err := wireClient(store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Engine, error) {
	switch cfg.driver {
	case driverElastic:
		e, err := elastic.NewEngine(elastic.Config{
			URL:      cfg.url,
			Username: cfg.username,
			Password: cfg.password,
			Timeout:  cfg.timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("syncdex: create elastic engine: %w", err)
		}
		return e, nil
	case driverMemory:
		return embedded.New(), nil
	default:
		return nil, fmt.Errorf("syncdex: unknown driver %q", cfg.driver)
	}
}

func syncConfig(cfg *clientConfig) indexsync.Config {
	sc := indexsync.DefaultConfig()
	if cfg.workers > 0 {
		sc.Workers = cfg.workers
	}
	if cfg.maxAttempts > 0 {
		sc.MaxAttempts = cfg.maxAttempts
	}
	if cfg.initialInterval > 0 {
		sc.InitialInterval = cfg.initialInterval
	}
	if cfg.maxInterval > 0 {
		sc.MaxInterval = cfg.maxInterval
	}
	if sc.MaxInterval < sc.InitialInterval {
		sc.MaxInterval = sc.InitialInterval
	}
	return sc
}

func wireClient(store db.Engine, cfg *clientConfig, obs *observer) (*Client, error) {
	engine, err := indexsync.New(documentrepo.New(store), syncConfig(cfg), obs.logger)
	if err != nil {
		return nil, fmt.Errorf("syncdex: %w", err)
	}
	engine.OnComplete(obs.outcome)
	if err := engine.Start(); err != nil {
		return nil, fmt.Errorf("syncdex: %w", err)
	}

	searchSvc := searchuc.New(searchrepo.New(store), engine).
		WithOptions(result.Options{SortBucketsByKey: cfg.sortBucketsByKey})

	return &Client{
		store:     store,
		engine:    engine,
		collSvc:   collectionuc.New(collectionrepo.New(store), engine),
		searchSvc: searchSvc,
		obs:       obs,
	}, nil
}

// Close stops the sync engine and releases the engine connection.
// Operations not dispatched yet are dropped; in-flight ones are awaited
// until ctx ends.
func (c *Client) Close(ctx context.Context) error {
	var err error
	if c.engine != nil {
		err = c.engine.Stop(ctx)
	}
	if c.store != nil {
		c.store.Close()
	}
	return err
}

// Ping checks engine connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Flush waits until every operation published so far is terminal.
func (c *Client) Flush(ctx context.Context) error {
	return c.engine.Flush(ctx)
}

// Pending returns the number of operations not yet terminal.
func (c *Client) Pending() int {
	return c.engine.Pending()
}

// OnComplete registers a callback that sees the outcome of every operation.
// Callbacks run on engine goroutines and must not block.
func (c *Client) OnComplete(fn func(Outcome)) {
	c.engine.OnComplete(fn)
}

// EnsureIndexes creates the index of every registered model when missing.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	if err := c.collSvc.EnsureAll(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	return nil
}
