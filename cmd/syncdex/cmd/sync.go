package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	batchuc "github.com/kailas-cloud/syncdex/internal/usecase/batch"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var (
		truncate bool
		ensure   bool
	)

	cmd := &cobra.Command{
		Use:   "sync <collection>...",
		Short: "Re-index whole collections from MongoDB",
		Long: `Read every document of the named collections from MongoDB and bulk-save
them into their indexes. With --truncate the index is recreated first, so
documents the store no longer has disappear from it.

Requires mongo.uri in the configuration.

Examples:
  syncdex sync Bond
  syncdex sync Bond Coupon --truncate`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger, appOptions{redis: true, source: true})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			if a.batch == nil {
				return fmt.Errorf("sync needs mongo.uri in the configuration")
			}
			for _, name := range args {
				if ensure && !truncate {
					if err := a.collections.Ensure(ctx, name); err != nil {
						return err
					}
				}
				rep, err := a.batch.Synchronize(ctx, name, batchuc.Options{Truncate: truncate})
				if err != nil {
					return err
				}
				logger.Info("Collection synchronized",
					zap.String("collection", rep.Collection),
					zap.Int("batches", rep.Batches),
					zap.Int("indexed", rep.Indexed),
					zap.Int("failed", rep.Failed),
				)
				if err := printReport(cmd.OutOrStdout(), rep); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&truncate, "truncate", false, "Recreate the index before re-indexing")
	cmd.Flags().BoolVar(&ensure, "ensure-index", true, "Create the index first when missing")
	return cmd
}

func printReport(w io.Writer, rep batchuc.Report) error {
	if _, err := fmt.Fprintf(w, "%s: %d indexed, %d failed in %d batches\n",
		rep.Collection, rep.Indexed, rep.Failed, rep.Batches); err != nil {
		return err
	}
	for _, f := range rep.Failures {
		if _, err := fmt.Fprintf(w, "  %s: %v (attempts %d)\n", f.ID(), f.Err(), f.Attempts()); err != nil {
			return err
		}
	}
	return nil
}
