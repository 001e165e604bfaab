package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yubzen/replay/internal/search"
)

func NewSearchCmd() *cobra.Command {
	var limit int
	searchCmd := &cobra.Command{
		Use:   "search <text> [dir]",
		Short: "Find recorded actions with a similar query",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Search.Enabled {
				return errors.New("query search is disabled; set [search] enabled = true")
			}
			text := strings.TrimSpace(args[0])
			if text == "" {
				return errors.New("search text is empty")
			}

			res, err := LoadActions(cmd.Context(), ResolveDir(cfg, args[1:]), nil, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			store, err := search.NewStore(cfg.Search.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			ix := search.NewIndex(store, search.NewEmbedder(cfg.Search.OllamaURL, cfg.Search.Embedder))
			indexed, err := ix.Index(cmd.Context(), res.Dir, res.Records)
			if err != nil {
				return err
			}
			loggerFor(cmd).Debug("indexed action queries", "dir", res.Dir, "count", indexed)

			hits, err := ix.Search(cmd.Context(), res.Dir, text, limit)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No similar queries found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 2, 2, ' ', 0)
			fmt.Fprintln(w, "ACTION\tDISTANCE\tQUERY")
			for _, h := range hits {
				fmt.Fprintf(w, "#%d\t%.3f\t%s\n", h.FileNumber, h.Distance, previewQuery(h.Query))
			}
			return w.Flush()
		},
	}
	searchCmd.Flags().IntVar(&limit, "limit", 5, "Maximum number of results")
	return searchCmd
}
