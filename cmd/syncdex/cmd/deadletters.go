package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/syncdex/internal/domain/syncop"
)

func newDeadLettersCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dead-letters",
		Aliases: []string{"dlq"},
		Short:   "Inspect operations that failed for good",
		Long: `Operations that exhaust their retries or fail terminally are recorded in
Redis, one capped list per index. Requires redis.addrs in the configuration.`,
	}
	cmd.AddCommand(newDeadLettersListCmd(opts), newDeadLettersClearCmd(opts))
	return cmd
}

func newDeadLettersListCmd(opts *rootOptions) *cobra.Command {
	var limit int64

	cmd := &cobra.Command{
		Use:   "list <index>",
		Short: "Show the most recent failures of an index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeadLetters(cmd, opts, func(ctx context.Context, a *app) error {
				total, err := a.deadLetters.Len(ctx, args[0])
				if err != nil {
					return err
				}
				failures, err := a.deadLetters.List(ctx, args[0], limit)
				if err != nil {
					return err
				}
				return printFailures(cmd.OutOrStdout(), args[0], total, failures)
			})
		},
	}
	cmd.Flags().Int64VarP(&limit, "limit", "n", 20, "Maximum number of failures to show")
	return cmd
}

func newDeadLettersClearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <index>",
		Short: "Discard every recorded failure of an index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeadLetters(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.deadLetters.Clear(ctx, args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: dead letters cleared\n", args[0])
				return err
			})
		},
	}
}

func withDeadLetters(cmd *cobra.Command, opts *rootOptions, fn func(context.Context, *app) error) error {
	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(cmd.Context(), cfg, logger, appOptions{redis: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	if a.deadLetters == nil {
		return fmt.Errorf("dead letters need a reachable redis (redis.addrs)")
	}
	return fn(cmd.Context(), a)
}

func printFailures(w io.Writer, index string, total int64, failures []syncop.Failure) error {
	if _, err := fmt.Fprintf(w, "%s: %d dead letters\n", index, total); err != nil {
		return err
	}
	for _, f := range failures {
		msg := "unknown error"
		if f.Err != nil {
			msg = f.Err.Error()
		}
		if _, err := fmt.Fprintf(w, "%s  %-6s %s  attempts=%d  ids=%s\n    %s\n",
			f.FailedAt.Format(time.RFC3339), f.Kind, f.OperationID, f.Attempts,
			strings.Join(f.IDs, ","), msg); err != nil {
			return err
		}
	}
	return nil
}
