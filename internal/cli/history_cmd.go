package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yubzen/replay/internal/state"
)

func NewHistoryCmd() *cobra.Command {
	var dbPath string
	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recently played action directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := OpenCache(cfg, dbPath)
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("history is stored in the cache database, which is disabled")
			}
			defer db.Close()

			if limit <= 0 {
				limit = state.DefaultLoadHistoryLimit
			}
			loads, err := db.RecentLoads(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(loads) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No playback history yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 2, 2, ' ', 0)
			fmt.Fprintln(w, "LOADED\tRECORDS\tISSUES\tDIR")
			for _, l := range loads {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", l.LoadedAt.Local().Format(time.DateTime), l.Records, l.Issues, l.Dir)
			}
			return w.Flush()
		},
	}
	historyCmd.Flags().StringVar(&dbPath, "db", "", "Path to the cache database (defaults to [cache] path)")
	historyCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries to show")
	return historyCmd
}
