package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newEnsureIndexCmd(opts *rootOptions) *cobra.Command {
	var (
		recreate bool
		list     bool
	)

	cmd := &cobra.Command{
		Use:   "ensure-index [collection...]",
		Short: "Create the indexes of declared collections",
		Long: `Create the engine index of each named collection, or of every declared
collection when none is named. Existing indexes are left untouched unless
--recreate is given, which drops them first.

Examples:
  syncdex ensure-index
  syncdex ensure-index Bond --recreate
  syncdex ensure-index --list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger, appOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			if list {
				return printStatuses(cmd, a)
			}

			names := args
			if len(names) == 0 {
				for _, c := range cfg.Collections {
					names = append(names, c.Name)
				}
			}
			action, verb := a.collections.Ensure, "ensured"
			if recreate {
				action, verb = a.collections.Recreate, "recreated"
			}
			for _, name := range names {
				if err := action(ctx, name); err != nil {
					return err
				}
				def, err := a.collections.Definition(name)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: index %s %s\n", name, def.Name, verb); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&recreate, "recreate", false, "Drop and recreate the index, discarding indexed documents")
	cmd.Flags().BoolVar(&list, "list", false, "Only list collections and whether their index exists")
	return cmd
}

func printStatuses(cmd *cobra.Command, a *app) error {
	statuses, err := a.collections.List(cmd.Context())
	if err != nil {
		return err
	}
	for _, st := range statuses {
		state := "missing"
		if st.Exists {
			state = "exists"
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-24s %s\n", st.Collection, st.Index, state); err != nil {
			return err
		}
	}
	return nil
}
