package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yubzen/replay/internal/actions"
	"github.com/yubzen/replay/internal/config"
	"github.com/yubzen/replay/internal/credentials"
	"github.com/yubzen/replay/internal/diff"
	"github.com/yubzen/replay/internal/state"
)

// swapped in tests
var (
	loadCredential   = credentials.LoadWithSource
	storeCredential  = credentials.Store
	removeCredential = credentials.Remove
	loadConfig       = config.Load
)

// NewLogger returns a text logger writing to w. verbose switches to debug.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loggerFor builds the logger for a command from the persistent --verbose
// flag declared on the root command.
func loggerFor(cmd *cobra.Command) *slog.Logger {
	verbose := false
	if f := cmd.Flags().Lookup("verbose"); f != nil {
		verbose = f.Value.String() == "true"
	}
	return NewLogger(cmd.ErrOrStderr(), verbose)
}

func ResolveDir(cfg *config.Config, args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0]
	}
	if cfg != nil && strings.TrimSpace(cfg.Playback.ActionsDir) != "" {
		return cfg.Playback.ActionsDir
	}
	return "."
}

// LoadActions loads dir, warns about unreadable files on w and, when db is
// open, records the load in the history table.
func LoadActions(ctx context.Context, dir string, db *state.DB, w io.Writer) (actions.LoadResult, error) {
	res, err := actions.LoadDir(dir)
	if err != nil {
		return res, err
	}
	if w != nil {
		for _, issue := range res.Issues {
			fmt.Fprintf(w, "warning: skipping %s\n", issue.Error())
		}
	}
	if db != nil {
		if err := db.RecordLoad(ctx, dir, len(res.Records), len(res.Issues)); err != nil && w != nil {
			fmt.Fprintf(w, "warning: failed to record load history: %v\n", err)
		}
	}
	return res, nil
}

// OpenCache opens the diff cache database, or returns nil when the cache is
// disabled.
func OpenCache(cfg *config.Config, override string) (*state.DB, error) {
	path := strings.TrimSpace(override)
	if path == "" {
		if cfg == nil || !cfg.Cache.Enabled {
			return nil, nil
		}
		path = cfg.Cache.Path
	}
	return state.Connect(path)
}

// NewRenderer builds the configured diff renderer, wrapped in the cache when
// db is open.
func NewRenderer(cfg *config.Config, db *state.DB, logger *slog.Logger) (diff.Renderer, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	name := cfg.Diff.Credential
	r, err := diff.New(diff.Options{
		Kind:    cfg.Diff.Renderer,
		RepoDir: cfg.Diff.RepoDir,
		BaseURL: cfg.Diff.BaseURL,
		Token: func() (string, error) {
			secret, _, err := loadCredential(name)
			if errors.Is(err, credentials.ErrCredentialNotFound) {
				return "", nil
			}
			return secret, err
		},
	})
	if err != nil {
		return nil, err
	}
	if db == nil {
		return r, nil
	}
	return diff.NewCachedRenderer(r, db, logger), nil
}
