package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yubzen/replay/internal/redact"
	"github.com/yubzen/replay/internal/workflow"
)

const queryPreviewWidth = 60

func NewActionsCmd() *cobra.Command {
	actionsCmd := &cobra.Command{
		Use:   "actions",
		Short: "Inspect recorded chat action files",
	}

	listCmd := &cobra.Command{
		Use:   "list [dir]",
		Short: "List actions in playback order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			res, err := LoadActions(cmd.Context(), ResolveDir(cfg, args), nil, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			steps := workflow.Order(res.Records)
			if len(steps) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No actions found in %s\n", res.Dir)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 2, 2, ' ', 0)
			fmt.Fprintln(w, "FILE\tURLS\tDIFF\tQUERY")
			for _, step := range steps {
				hasDiff := "no"
				if step.HasResponse() {
					hasDiff = "yes"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", step.FileName(), len(step.URLs), hasDiff, previewQuery(step.Query))
			}
			return w.Flush()
		},
	}

	actionsCmd.AddCommand(listCmd)
	return actionsCmd
}

func previewQuery(q string) string {
	q = strings.Join(strings.Fields(redact.Clean(q)), " ")
	r := []rune(q)
	if len(r) <= queryPreviewWidth {
		return q
	}
	return string(r[:queryPreviewWidth-1]) + "…"
}
