package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func NewCacheCmd() *cobra.Command {
	var dbPath string
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the local diff cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show diff cache size",
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
				return errors.New("diff cache is disabled; pass --db or set [cache] enabled = true")
			}
			defer db.Close()

			stats, err := db.DiffCacheStats(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 2, 2, ' ', 0)
			fmt.Fprintf(w, "Entries\t%d\n", stats.Entries)
			fmt.Fprintf(w, "Bytes\t%d\n", stats.Bytes)
			if stats.Entries > 0 {
				fmt.Fprintf(w, "Oldest\t%s\n", stats.Oldest.Local().Format(time.DateTime))
				fmt.Fprintf(w, "Newest\t%s\n", stats.Newest.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	}

	var olderThan time.Duration
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached diffs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return errors.New("--older-than must not be negative")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := OpenCache(cfg, dbPath)
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("diff cache is disabled; pass --db or set [cache] enabled = true")
			}
			defer db.Close()

			removed, err := db.ClearDiffCache(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached diff(s).\n", removed)
			return nil
		},
	}
	clearCmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only remove entries older than this (e.g. 72h)")

	cacheCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the cache database (defaults to [cache] path)")
	cacheCmd.AddCommand(statsCmd, clearCmd)
	return cacheCmd
}
