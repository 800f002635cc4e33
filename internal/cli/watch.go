package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/engine"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <input-file>",
		Short: "Re-run matching whenever an input file changes",
		Long: `Re-run matching whenever an input file changes.

The input is matched once at start and again after every change, with
rapid successive writes collapsed into one run. When the telemetry config
selects the prometheus metric exporter, engine metrics are served on
<metrics_addr>/metrics for as long as the watch runs.

Stop with Ctrl-C.

Examples:
  swapgraph watch ./intents.yaml
  swapgraph watch ./intents.json --config ./swapgraph.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "quiet period before re-running after a change")

	return cmd
}

func runWatch(opts *WatchOptions, path string, cmd *cobra.Command) error {
	logger := opts.logger()

	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("input not found: %s", path), err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if handler := opts.Telemetry.MetricsHandler(); handler != nil {
		addr := opts.config().Telemetry.MetricsAddr
		g.Go(func() error {
			return serveMetrics(gctx, addr, handler, logger)
		})
	}

	matcher := engine.NewMatcher(engine.WithLogger(logger))
	rerun := func() {
		watchIteration(gctx, opts.RootOptions, matcher, path, cmd)
	}

	rerun()
	g.Go(func() error {
		return WatchFile(gctx, path, opts.Debounce, logger, rerun)
	})

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitCommandError, "watch failed", err)
	}
	return nil
}

// watchIteration runs the input once and prints the outcome. Failures are
// printed and the watch goes on.
func watchIteration(ctx context.Context, opts *RootOptions, matcher *engine.Matcher, path string, cmd *cobra.Command) {
	formatter := opts.formatter(cmd)

	in, err := LoadInput(path)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return
	}
	prepareInput(&in, opts, engine.SystemClock{})

	res, err := matcher.Run(ctx, in)
	if err != nil {
		_ = formatter.Error(matchErrorCode(err), err.Error(), nil)
		return
	}

	out := MatchOutput{File: path, Result: res}
	if opts.Format == "json" {
		_ = formatter.Success(out)
		return
	}
	writeMatchText(formatter.Writer, out, opts.Verbose)
}

// WatchFile calls onChange after path is written, created or replaced,
// once debounce has passed without further events. It watches the parent
// directory so editors that save by rename are seen. Returns when ctx is
// done.
func WatchFile(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, onChange func()) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	logger.Info("watcher: started", slog.String("path", target))

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			fire = nil
			logger.Debug("watcher: input changed", slog.String("path", target))
			onChange()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// serveMetrics serves handler on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", slog.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", slog.String("error", err.Error()))
	}
	return nil
}
