package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	mongosrc "github.com/kailas-cloud/syncdex/internal/source/mongo"
	chiTransport "github.com/kailas-cloud/syncdex/internal/transport/chi"
	"github.com/kailas-cloud/syncdex/internal/version"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var ensureIndexes bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the change-stream watcher",
		Long: `Run the HTTP search API. When mongo.uri is configured, also watch the
bound collections and keep their indexes in sync.

Stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, ensureIndexes)
		},
	}
	cmd.Flags().BoolVar(&ensureIndexes, "ensure-indexes", true, "Create missing indexes on startup")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, ensureIndexes bool) error {
	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting syncdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", opts.env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("engine_driver", cfg.Engine.Driver),
		zap.Int("collections", len(cfg.Collections)),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, appOptions{redis: true, source: true})
	if err != nil {
		logger.Error("Failed to start", zap.Error(err))
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
		logger.Info("Server stopped gracefully")
	}()

	if ensureIndexes {
		if err := a.collections.EnsureAll(ctx); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
	}

	server := chiTransport.NewServer(a.search, a.collections, a.batch, a.health, logger)
	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.mongo != nil {
		// A nil *checkpoint.Store must not reach the interface.
		var checkpoints mongosrc.Checkpoints
		if a.checkpoints != nil {
			checkpoints = a.checkpoints
		}
		watcher := mongosrc.NewWatcher(a.mongo, a.engine, checkpoints, a.bindings(), logger)
		g.Go(func() error {
			err := watcher.Run(gctx)
			if errors.Is(err, mongosrc.ErrStreamInvalidated) {
				logger.Error("Change stream invalidated, run `syncdex sync` to rebuild the index", zap.Error(err))
			}
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", zap.Error(err))
		return err
	}
	return nil
}
