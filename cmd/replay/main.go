package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/yubzen/replay/internal/actions"
	replaycli "github.com/yubzen/replay/internal/cli"
	"github.com/yubzen/replay/internal/config"
	"github.com/yubzen/replay/internal/diff"
	"github.com/yubzen/replay/internal/player"
	"github.com/yubzen/replay/internal/search"
	"github.com/yubzen/replay/internal/state"
	"github.com/yubzen/replay/internal/tui"
)

type runtimeDeps struct {
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *slog.Logger
	dir         string
	cadence     time.Duration
	diffTimeout time.Duration
	db          *state.DB
	vecStore    *search.Store
	renderer    diff.Renderer
	loaded      actions.LoadResult
	watcher     *actions.Watcher
}

func (r *runtimeDeps) Close() {
	if r == nil {
		return
	}
	if r.cancel != nil {
		r.cancel()
	}
	if r.watcher != nil {
		select {
		case <-r.watcher.Done:
		case <-time.After(3 * time.Second):
			fmt.Fprintln(os.Stderr, "timed out waiting for actions watcher shutdown")
		}
	}
	if r.vecStore != nil {
		_ = r.vecStore.Close()
	}
	if r.db != nil {
		_ = r.db.Close()
	}
}

func restoreTerminalState() {
	fmt.Fprint(os.Stderr, "\x1b[?25h\x1b[0m")
}

func bootstrapRuntime(cfg *config.Config, dir string, logger *slog.Logger) (*runtimeDeps, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", config.GetConfigPath(), err)
	}
	if info, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("invalid actions directory %q: %w", dir, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("actions path %q is not a directory", dir)
	}

	rt := &runtimeDeps{logger: logger, dir: dir}
	rt.cadence, _ = cfg.Cadence()
	rt.diffTimeout, _ = cfg.DiffTimeout()
	rt.ctx, rt.cancel = context.WithCancel(context.Background())

	db, err := replaycli.OpenCache(cfg, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to open diff cache, running without it: %v\n", err)
	} else {
		rt.db = db
	}

	rt.renderer, err = replaycli.NewRenderer(cfg, rt.db, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.loaded, err = replaycli.LoadActions(rt.ctx, dir, rt.db, os.Stderr)
	if err != nil {
		rt.Close()
		return nil, err
	}

	if cfg.Search.Enabled {
		rt.startIndexing(cfg)
	}
	return rt, nil
}

// startIndexing refreshes the query search index for the loaded directory
// in the background; search stays optional so failures only warn.
func (r *runtimeDeps) startIndexing(cfg *config.Config) {
	store, err := search.NewStore(cfg.Search.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to open search index, running without it: %v\n", err)
		return
	}
	r.vecStore = store
	ix := search.NewIndex(store, search.NewEmbedder(cfg.Search.OllamaURL, cfg.Search.Embedder))
	records := r.loaded.Records
	go func() {
		n, err := ix.Index(r.ctx, r.dir, records)
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Warn("query indexing failed", "err", err)
			return
		}
		r.logger.Debug("query index refreshed", "dir", r.dir, "count", n)
	}()
}

func (r *runtimeDeps) startWatcher(onChange func(actions.LoadResult)) {
	w := actions.NewWatcher(r.dir, onChange)
	w.Logger = r.logger
	if err := w.Start(r.ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to watch %s, new actions will not be picked up: %v\n", r.dir, err)
		return
	}
	r.watcher = w
}

func openLogFile(path string) (io.Writer, func(), error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return io.Discard, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func main() {
	var verbose bool
	var logFile string

	rootCmd := &cobra.Command{
		Use:           "replay [dir]",
		Short:         "Replay a recorded coding session as a timed walkthrough",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			// The TUI owns the terminal; logs only go to --log-file.
			w, closeLog, err := openLogFile(logFile)
			if err != nil {
				return err
			}
			defer closeLog()
			logger := replaycli.NewLogger(w, verbose)

			rt, err := bootstrapRuntime(cfg, replaycli.ResolveDir(cfg, args), logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			feed := tui.NewRecordsFeed()
			rt.startWatcher(feed.Push)

			model := tui.NewPlaybackModel(rt.ctx, rt.loaded.Records, tui.Options{
				Dir:         rt.dir,
				Cadence:     rt.cadence,
				DiffTimeout: rt.diffTimeout,
				Renderer:    rt.renderer,
				Feed:        feed,
				Issues:      len(rt.loaded.Issues),
			})
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(rt.ctx))
			_, err = p.Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write TUI logs to this file")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Opens TUI config form",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v, showing defaults\n", err)
				cfg = config.Default()
			}
			return config.RunConfigForm(cfg)
		},
	}

	var headless bool
	var printDiffs bool
	var watch bool
	playCmd := &cobra.Command{
		Use:   "play [dir]",
		Short: "Play a session without the TUI, logging each transition",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !headless {
				return errors.New("play currently supports only --headless mode; run replay without a subcommand for the TUI")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := replaycli.NewLogger(os.Stderr, verbose)

			rt, err := bootstrapRuntime(cfg, replaycli.ResolveDir(cfg, args), logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			pl := player.New(rt.loaded.Records, rt.renderer, player.Options{
				Cadence:     rt.cadence,
				DiffTimeout: rt.diffTimeout,
				Logger:      logger,
			})
			if watch {
				rt.startWatcher(func(res actions.LoadResult) {
					pl.SetRecords(res.Records)
					pl.Play()
				})
			}

			sigCtx, stop := signal.NotifyContext(rt.ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return replaycli.RunHeadless(sigCtx, pl, logger, replaycli.HeadlessOptions{
				Out:        cmd.OutOrStdout(),
				PrintDiffs: printDiffs,
				Watch:      watch,
			})
		},
	}
	playCmd.Flags().BoolVar(&headless, "headless", true, "Headless mode")
	playCmd.Flags().BoolVar(&printDiffs, "print-diffs", false, "Print each diff to stdout as it is shown")
	playCmd.Flags().BoolVar(&watch, "watch", false, "Keep playing as new actions appear")

	rootCmd.AddCommand(
		configCmd,
		playCmd,
		replaycli.NewActionsCmd(),
		replaycli.NewDiffCmd(),
		replaycli.NewCacheCmd(),
		replaycli.NewAuthCmd(),
		replaycli.NewSearchCmd(),
		replaycli.NewHistoryCmd(),
		replaycli.NewDoctorCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		restoreTerminalState()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	restoreTerminalState()
}
