package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/qcml/internal/compiler"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	CompileOptions
	Debounce time.Duration

	// compiled is called after each compilation (for testing).
	compiled func(results []*CompiledProblem, err error)
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{CompileOptions: CompileOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "watch <file|dir>",
		Short: "Recompile problems when their files change",
		Long: `Compile problems once, then recompile whenever a CUE file under the
watched path is written. Compilation errors are reported and watching
continues. Stop with Ctrl-C.

Examples:
  qcml watch problems/
  qcml watch problems/lp.cue --values lp.yaml --db qcml.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runWatch(ctx, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "compile only the named problem")
	cmd.Flags().StringVar(&opts.Values, "values", "", "YAML file with dims and params")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record compilations in this SQLite log")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 100*time.Millisecond, "wait this long after a change before recompiling")

	return cmd
}

func runWatch(ctx context.Context, opts *WatchOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	info, err := os.Stat(path)
	if err != nil {
		formatter.Error(compiler.ErrCodeNotFound, fmt.Sprintf("path not found: %s", path), nil)
		return WrapExitError(ExitCommandError, "watch "+path, err)
	}
	dir := path
	if !info.IsDir() {
		dir = filepath.Dir(path)
	}

	env, cleanup, err := newCompileEnv(&opts.CompileOptions, formatter, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapExitError(ExitCommandError, "create watcher", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return WrapExitError(ExitCommandError, "watch "+dir, err)
	}

	compile := func() {
		results, err := compilePath(ctx, &opts.CompileOptions, path, formatter, env)
		if err == nil {
			if opts.Format == "json" {
				formatter.Success(results)
			} else {
				printCompiled(formatter, results)
			}
		}
		if opts.compiled != nil {
			opts.compiled(results, err)
		}
	}

	compile()
	formatter.VerboseLog("Watching %s", dir)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || filepath.Ext(ev.Name) != ".cue" {
				continue
			}
			if !info.IsDir() && filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			formatter.VerboseLog("Changed: %s", ev.Name)
			if timer == nil {
				timer = time.NewTimer(opts.Debounce)
			} else {
				timer.Reset(opts.Debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			compile()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			env.logger.Warn("watch error", "error", err)
		}
	}
}
