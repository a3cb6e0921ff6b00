package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/syncdex/internal/config"
	"github.com/kailas-cloud/syncdex/internal/db"
	"github.com/kailas-cloud/syncdex/internal/db/elastic"
	"github.com/kailas-cloud/syncdex/internal/db/embedded"
	dbRedis "github.com/kailas-cloud/syncdex/internal/db/redis"
	"github.com/kailas-cloud/syncdex/internal/repository/checkpoint"
	collectionrepo "github.com/kailas-cloud/syncdex/internal/repository/collection"
	"github.com/kailas-cloud/syncdex/internal/repository/deadletter"
	documentrepo "github.com/kailas-cloud/syncdex/internal/repository/document"
	searchrepo "github.com/kailas-cloud/syncdex/internal/repository/search"
	mongosrc "github.com/kailas-cloud/syncdex/internal/source/mongo"
	batchuc "github.com/kailas-cloud/syncdex/internal/usecase/batch"
	collectionuc "github.com/kailas-cloud/syncdex/internal/usecase/collection"
	healthuc "github.com/kailas-cloud/syncdex/internal/usecase/health"
	"github.com/kailas-cloud/syncdex/internal/usecase/indexsync"
	searchuc "github.com/kailas-cloud/syncdex/internal/usecase/search"
)

// app is the composition root shared by every command.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	store db.Engine
	redis *dbRedis.Store   // nil without redis
	mongo *mongosrc.Client // nil without mongo

	engine      *indexsync.Engine
	collections *collectionuc.Service
	search      *searchuc.Service
	batch       *batchuc.Service // nil without mongo
	health      *healthuc.Service
	deadLetters *deadletter.Store // nil without redis
	checkpoints *checkpoint.Store // nil without redis
}

// appOptions selects the optional parts a command needs.
type appOptions struct {
	redis  bool
	source bool
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger, opts appOptions) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	if a.store, err = openEngine(cfg.Engine); err != nil {
		return nil, err
	}
	if err := a.store.WaitForReady(ctx, time.Duration(cfg.Engine.ReadinessTimeout)*time.Second); err != nil {
		return nil, fmt.Errorf("engine not ready: %w", err)
	}
	logger.Info("Connected to search engine",
		zap.String("driver", cfg.Engine.Driver),
		zap.String("url", cfg.Engine.URL),
	)

	if opts.redis && len(cfg.Redis.Addrs) > 0 {
		a.openRedis(ctx)
	}

	mappings, err := cfg.Mappings()
	if err != nil {
		return nil, err
	}
	a.engine, err = indexsync.New(documentrepo.New(a.store), syncConfig(cfg.Sync), logger)
	if err != nil {
		return nil, err
	}
	for _, m := range mappings {
		if err := a.engine.Register(m); err != nil {
			return nil, err
		}
	}
	if a.deadLetters != nil {
		a.engine.WithFailureSink(a.deadLetters)
	}
	if err := a.engine.Start(); err != nil {
		return nil, err
	}

	collRepo := collectionrepo.New(a.store).WithSettings(collectionrepo.Settings{
		Shards:   cfg.Engine.Shards,
		Replicas: cfg.Engine.Replicas,
	})
	a.collections = collectionuc.New(collRepo, a.engine)
	a.search = searchuc.New(searchrepo.New(a.store), a.engine)

	// Pass a nil interface, not a typed nil pointer, when redis is off.
	var redisPinger healthuc.RedisPinger
	if a.redis != nil {
		redisPinger = a.redis
	}
	a.health = healthuc.New(a.store, redisPinger)

	if opts.source && cfg.Mongo.URI != "" {
		a.mongo, err = mongosrc.Connect(ctx, mongosrc.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to MongoDB", zap.String("database", cfg.Mongo.Database))
		scanner := mongosrc.NewScanner(a.mongo, a.bindings(), logger)
		a.batch = batchuc.New(scanner, a.engine, a.collections, logger).WithBatchSize(cfg.Sync.BatchSize)
	}
	return a, nil
}

// openRedis connects the dead-letter and checkpoint store. Redis is optional:
// when it cannot be reached the service runs without both.
func (a *app) openRedis(ctx context.Context) {
	store, err := dbRedis.NewStore(dbRedis.Config{Addrs: a.cfg.Redis.Addrs, Password: a.cfg.Redis.Password})
	if err == nil {
		err = store.WaitForReady(ctx, 5*time.Second)
		if err != nil {
			store.Close()
		}
	}
	if err != nil {
		a.logger.Warn("Redis unavailable, dead letters and checkpoints disabled",
			zap.Strings("addrs", a.cfg.Redis.Addrs), zap.Error(err))
		return
	}
	a.redis = store
	a.deadLetters = deadletter.New(store, a.cfg.Redis.KeyPrefix, a.cfg.Redis.DeadLetterMax)
	a.checkpoints = checkpoint.New(store, a.cfg.Redis.KeyPrefix)
	a.logger.Info("Connected to Redis", zap.Strings("addrs", a.cfg.Redis.Addrs))
}

func (a *app) bindings() []mongosrc.Binding {
	out := make([]mongosrc.Binding, 0, len(a.cfg.Mongo.Collections))
	for _, b := range a.cfg.Mongo.Collections {
		out = append(out, mongosrc.Binding{Collection: b.Name, Source: b.Source})
	}
	return out
}

// Close stops the sync engine, then releases every connection.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.engine != nil {
		if err := a.engine.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop sync engine: %w", err))
		}
	}
	if a.mongo != nil {
		if err := a.mongo.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	return errors.Join(errs...)
}

func openEngine(cfg config.EngineConfig) (db.Engine, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return embedded.New(), nil
	case config.DriverElastic:
		e, err := elastic.NewEngine(elastic.Config{
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
			Timeout:  time.Duration(cfg.TimeoutSec) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("create elastic engine: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown engine driver %q", cfg.Driver)
	}
}

func syncConfig(s config.SyncConfig) indexsync.Config {
	return indexsync.Config{
		Workers:             s.Workers,
		MaxAttempts:         s.MaxAttempts,
		InitialInterval:     s.InitialInterval(),
		MaxInterval:         s.MaxInterval(),
		Multiplier:          s.Multiplier,
		RandomizationFactor: s.RandomizationFactor,
	}
}
