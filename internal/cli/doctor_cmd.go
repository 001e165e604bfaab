package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yubzen/replay/internal/actions"
	"github.com/yubzen/replay/internal/config"
	"github.com/yubzen/replay/internal/credentials"
	"github.com/yubzen/replay/internal/search"
)

// HealthStatus is the outcome of one doctor check.
type HealthStatus struct {
	Name     string
	OK       bool
	Skipped  bool
	ErrorMsg string
}

type healthCheck struct {
	name  string
	skip  bool
	probe func(ctx context.Context) error
}

var lookPath = exec.LookPath

// CheckAll runs every check and collects the results in order.
func CheckAll(ctx context.Context, checks []healthCheck) []HealthStatus {
	statuses := make([]HealthStatus, 0, len(checks))
	for _, c := range checks {
		status := HealthStatus{Name: c.name, Skipped: c.skip}
		if !c.skip {
			err := c.probe(ctx)
			status.OK = err == nil
			if err != nil {
				status.ErrorMsg = err.Error()
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func doctorChecks(cfg *config.Config, dir string) []healthCheck {
	renderer := strings.ToLower(strings.TrimSpace(cfg.Diff.Renderer))
	return []healthCheck{
		{name: "config", probe: func(context.Context) error { return cfg.Validate() }},
		{name: "actions dir", probe: func(context.Context) error {
			res, err := actions.LoadDir(dir)
			if err != nil {
				return err
			}
			if len(res.Records) == 0 {
				return fmt.Errorf("no action files in %s", dir)
			}
			if len(res.Issues) > 0 {
				return fmt.Errorf("%d unreadable file(s), first: %v", len(res.Issues), res.Issues[0])
			}
			return nil
		}},
		{name: "git", skip: renderer != "git", probe: func(context.Context) error {
			if _, err := lookPath("git"); err != nil {
				return err
			}
			if _, err := os.Stat(cfg.Diff.RepoDir); err != nil {
				return fmt.Errorf("repo dir: %w", err)
			}
			return nil
		}},
		{name: "backend token", skip: renderer != "http", probe: func(context.Context) error {
			_, _, err := loadCredential(cfg.Diff.Credential)
			if errors.Is(err, credentials.ErrCredentialNotFound) {
				return fmt.Errorf("no token stored for %s, run replay auth set", cfg.Diff.Credential)
			}
			return err
		}},
		{name: "diff cache", skip: !cfg.Cache.Enabled, probe: func(ctx context.Context) error {
			db, err := OpenCache(cfg, "")
			if err != nil {
				return err
			}
			defer db.Close()
			return db.EnsureReady(ctx)
		}},
		{name: "ollama", skip: !cfg.Search.Enabled, probe: func(ctx context.Context) error {
			return search.NewEmbedder(cfg.Search.OllamaURL, cfg.Search.Embedder).EnsureReady(ctx)
		}},
	}
}

func NewDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor [dir]",
		Short: "Check that playback dependencies are reachable",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			statuses := CheckAll(ctx, doctorChecks(cfg, ResolveDir(cfg, args)))
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 2, 2, ' ', 0)
			fmt.Fprintln(w, "CHECK\tSTATUS\tDETAIL")
			failed := 0
			for _, s := range statuses {
				switch {
				case s.Skipped:
					fmt.Fprintf(w, "%s\tskipped\t\n", s.Name)
				case s.OK:
					fmt.Fprintf(w, "%s\tok\t\n", s.Name)
				default:
					failed++
					fmt.Fprintf(w, "%s\tfail\t%s\n", s.Name, s.ErrorMsg)
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}
