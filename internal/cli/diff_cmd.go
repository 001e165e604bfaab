package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yubzen/replay/internal/actions"
	"github.com/yubzen/replay/internal/diff"
)

func NewDiffCmd() *cobra.Command {
	diffCmd := &cobra.Command{
		Use:   "diff",
		Short: "Render the code changes of recorded actions",
	}

	var noCache bool
	var color bool
	showCmd := &cobra.Command{
		Use:   "show <fileNumber> [dir]",
		Short: "Print the diff produced by one action",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileNumber, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("invalid file number %q", args[0])
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			res, err := LoadActions(cmd.Context(), ResolveDir(cfg, args[1:]), nil, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			rec, ok := actions.Find(res.Records, fileNumber)
			if !ok {
				return fmt.Errorf("no action %d in %s", fileNumber, res.Dir)
			}
			if !rec.HasResponse() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s has no recorded response\n", rec.FileName())
				return nil
			}

			logger := loggerFor(cmd)
			if !noCache {
				db, err := OpenCache(cfg, "")
				if err != nil {
					logger.Warn("diff cache unavailable", "err", err)
				} else if db != nil {
					defer db.Close()
					r, err := NewRenderer(cfg, db, logger)
					if err != nil {
						return err
					}
					return printDiff(cmd, r, rec.Response, cfg.Playback.DiffTimeout, color)
				}
			}
			r, err := NewRenderer(cfg, nil, logger)
			if err != nil {
				return err
			}
			return printDiff(cmd, r, rec.Response, cfg.Playback.DiffTimeout, color)
		},
	}
	showCmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the local diff cache")
	showCmd.Flags().BoolVar(&color, "color", false, "Colorize diff output")

	diffCmd.AddCommand(showCmd)
	return diffCmd
}

func printDiff(cmd *cobra.Command, r diff.Renderer, response, timeout string, color bool) error {
	d, err := time.ParseDuration(timeout)
	if err != nil || d <= 0 {
		d = 30 * time.Second
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	text, err := r.RenderDiff(ctx, response)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "No code changes recorded.")
		return nil
	}
	if color {
		text = diff.Colorize(text)
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(text, "\n"))
	return nil
}
