package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kuitang/notes-e2e/internal/scenario"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	SelectOptions
}

type listedScenario struct {
	ID      string           `json:"id"`
	Title   string           `json:"title"`
	Channel scenario.Channel `json:"channel"`
	Tags    []scenario.Tag   `json:"tags"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the scenario catalog",
		Example: `  notes-e2e list --tag NEGATIVE
  notes-e2e list --channel WEB --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := opts.selectScenarios()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if opts.Format == "json" {
				listed := make([]listedScenario, 0, len(selected))
				for _, s := range selected {
					listed = append(listed, listedScenario{ID: s.ID, Title: s.Title, Channel: s.Channel, Tags: s.Tags})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(listed)
			}

			for _, s := range selected {
				tags := make([]string, len(s.Tags))
				for i, t := range s.Tags {
					tags[i] = string(t)
				}
				fmt.Fprintf(out, "%-5s  %-11s  %-13s  %s\n", s.ID, s.Channel, strings.Join(tags, ","), s.Title)
			}
			fmt.Fprintf(out, "\n%d scenarios\n", len(selected))
			return nil
		},
	}

	opts.SelectOptions.bind(cmd)
	return cmd
}
