package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/config"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/telemetry"
)

// RootOptions holds global flags for all commands, plus the state built
// from them before any subcommand runs.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	StorePath  string
	EnvFiles   []string

	Config    *config.Config
	Logger    *slog.Logger
	Telemetry *telemetry.Providers
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the swapgraph CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swapgraph",
		Short: "swapgraph - multi-party barter matching",
		Long: `Find disjoint barter cycles among trade intents.

swapgraph builds a compatibility graph from trade intents, enumerates
bounded-length cycles, scores each as a proposal and selects the best set
of proposals that share no intent.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.StorePath, "store", "", "path to SQLite run log (overrides config)")
	cmd.PersistentFlags().StringSliceVar(&opts.EnvFiles, "env-file", []string{".env"}, ".env files to load")

	cmd.AddCommand(NewMatchCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := opts.Telemetry.Shutdown(shutdownCtx); shutdownErr != nil {
		opts.logger().Error("telemetry shutdown failed", "error", shutdownErr)
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// setup validates global flags and builds config, logger and telemetry.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	if err := config.LoadEnv(o.EnvFiles...); err != nil {
		return WrapExitError(ExitCommandError, "failed to load env files", err)
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.StorePath != "" {
		cfg.Store.Path = o.StorePath
	}
	if o.Verbose {
		cfg.Log.Level = slog.LevelDebug
	}
	o.Config = cfg
	o.Logger = cfg.Log.NewLogger(cmd.ErrOrStderr())

	providers, err := telemetry.Init(cmd.Context(), cfg.Telemetry, telemetry.Options{Writer: cmd.ErrOrStderr()})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to init telemetry", err)
	}
	o.Telemetry = providers
	return nil
}

// config returns the loaded config, or defaults when a command runs
// without the root command (tests).
func (o *RootOptions) config() *config.Config {
	if o.Config == nil {
		o.Config = config.NewDefaultConfig()
		if o.StorePath != "" {
			o.Config.Store.Path = o.StorePath
		}
	}
	return o.Config
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
