package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vk/streamgrid/internal/app"
	"github.com/vk/streamgrid/internal/registry"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Exit codes.
const (
	ExitRuntime = 1
	ExitUsage   = 2
)

func usageError(format string, args ...any) error {
	return &ExitError{Code: ExitUsage, Message: fmt.Sprintf(format, args...)}
}

// options is the state shared by the commands of one invocation.
type options struct {
	outW    io.Writer
	v       *viper.Viper
	cfgFile string
	vars    []string
	modules []registry.Module
}

// Execute parses args and runs the selected command. Output, logs included,
// goes to outW. When modules is empty the core modules are compiled in.
// Usage problems are returned as an *ExitError with code 2.
func Execute(ctx context.Context, args []string, outW io.Writer, modules ...registry.Module) error {
	slog.Debug("CLI parser started.")
	root := NewRootCommand(outW, modules...)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)

	var exitErr *ExitError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &exitErr):
		return err
	case strings.HasPrefix(err.Error(), "unknown command"):
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	default:
		return &ExitError{Code: ExitRuntime, Message: err.Error()}
	}
}

// NewRootCommand builds the command tree with its own viper instance.
func NewRootCommand(outW io.Writer, modules ...registry.Module) *cobra.Command {
	o := &options{outW: outW, v: viper.New(), modules: modules}
	defaults := app.DefaultConfig()

	root := &cobra.Command{
		Use:   "streamgrid",
		Short: "A demand-driven dataflow pipeline engine",
		Long: `StreamGrid builds pipelines of algorithms from HCL definitions and updates
them on demand: only the nodes whose inputs, parameters or requests changed
are executed, and only for the extent, piece and time that was asked for.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&o.cfgFile, "config", "c", "", "settings file (default: ./streamgrid.yaml when present)")
	pf.String("log-level", defaults.Log.Level, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.String("log-format", defaults.Log.Format, "Log output format. Options: 'text' or 'json'.")
	pf.Int("workers", defaults.Workers, "Parallelism offered to each node while it executes.")
	pf.String("journal", defaults.Journal.Path, "Path of the SQLite run journal. Empty disables it.")
	pf.Int("healthcheck-port", defaults.HealthcheckPort, "Port for the HTTP health check server. 0 is disabled.")

	_ = o.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = o.v.BindPFlag("log.format", pf.Lookup("log-format"))
	_ = o.v.BindPFlag("workers", pf.Lookup("workers"))
	_ = o.v.BindPFlag("journal.path", pf.Lookup("journal"))
	_ = o.v.BindPFlag("healthcheck_port", pf.Lookup("healthcheck-port"))

	root.AddCommand(
		newRunCommand(o),
		newPlanCommand(o),
		newWatchCommand(o),
		newHistoryCommand(o),
		newModulesCommand(o),
	)
	return root
}

// newApp loads the settings and builds the application. The caller closes
// it.
func (o *options) newApp(ctx context.Context) (*app.App, error) {
	cfg, err := app.LoadConfig(o.v, o.cfgFile)
	if err != nil {
		return nil, usageError("%v", err)
	}
	slog.Debug("CLI parameter validation complete.", "config", cfg)
	return app.NewApp(ctx, o.outW, cfg, o.modules...)
}

// withApp runs fn with a freshly built application and closes it afterwards.
func (o *options) withApp(cmd *cobra.Command, fn func(context.Context, *app.App) error) (err error) {
	ctx := cmd.Context()
	a, err := o.newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(context.WithoutCancel(ctx)); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(ctx, a)
}

// source combines the positional paths with the --var overrides.
func (o *options) source(paths []string) (app.Source, error) {
	vars, err := parseVariables(o.vars)
	if err != nil {
		return app.Source{}, err
	}
	return app.Source{Paths: paths, Variables: vars}, nil
}

// parseVariables turns name=value pairs into a map. The value may contain
// '=' itself.
func parseVariables(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, usageError("invalid --var %q: expected name=value", pair)
		}
		vars[name] = value
	}
	return vars, nil
}

func requirePaths(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return usageError("%s requires at least one PATH to a .hcl file or directory", cmd.CommandPath())
	}
	return nil
}

// usageArgs reports positional argument errors with the usage exit code.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError("%v", err)
		}
		return nil
	}
}

func addVarFlag(cmd *cobra.Command, o *options) {
	cmd.Flags().StringArrayVar(&o.vars, "var", nil, "Set a definition variable, as name=value. Repeatable.")
}
