package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vk/streamgrid/internal/app"
)

func newRunCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run PATH...",
		Short: "Load a pipeline definition and update its targets once",
		Long: `Load every .hcl file under PATH, build the pipeline and update each
update block. Without update blocks every sink is updated in full.`,
		Args: requirePaths,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := o.source(args)
			if err != nil {
				return err
			}
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				_, err := a.Run(ctx, src)
				return err
			})
		},
	}
	addVarFlag(cmd, o)
	return cmd
}

func newPlanCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan PATH...",
		Short: "Negotiate requests without executing and print them as YAML",
		Args:  requirePaths,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := o.source(args)
			if err != nil {
				return err
			}
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Plan(ctx, src, cmd.OutOrStdout())
			})
		},
	}
	addVarFlag(cmd, o)
	return cmd
}

func newWatchCommand(o *options) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch PATH...",
		Short: "Update the targets again every time the definition changes",
		Long: `Keep the pipeline in memory and re-apply the definition whenever a .hcl
file under PATH changes. Nodes whose definition did not change keep their
cached outputs and are not executed again.`,
		Args: requirePaths,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := o.source(args)
			if err != nil {
				return err
			}
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Watch(ctx, app.WatchOptions{Source: src, Debounce: debounce})
			})
		},
	}
	addVarFlag(cmd, o)
	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "Quiet period after a change before reloading.")
	return cmd
}

func newHistoryCommand(o *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "List journaled runs, or the nodes of one run",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if len(args) == 1 {
					return a.HistoryRun(ctx, args[0], cmd.OutOrStdout())
				}
				return a.History(ctx, limit, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list. 0 lists all.")
	return cmd
}

func newModulesCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the algorithms compiled into the binary",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withApp(cmd, func(_ context.Context, a *app.App) error {
				reg := a.Registry()
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "KIND\tARGUMENTS\tDESCRIPTION")
				for _, kind := range reg.Kinds() {
					alg, _ := reg.Lookup(kind)
					args := make([]string, 0, len(alg.Arguments))
					for name, def := range alg.Arguments {
						if def.Default == nil && !def.Optional {
							name += "*"
						}
						args = append(args, name)
					}
					sort.Strings(args)
					fmt.Fprintf(tw, "%s\t%s\t%s\n", kind, strings.Join(args, ","), alg.Description)
				}
				return tw.Flush()
			})
		},
	}
}
