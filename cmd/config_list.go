package cmd

import (
	"fmt"

	"github.com/brogergvhs/mangakit/internal/config"
	"github.com/brogergvhs/mangakit/internal/ui"

	"github.com/spf13/cobra"
)

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := config.ListProfiles()
		if err != nil {
			return fmt.Errorf("cannot read profiles: %w", err)
		}

		rows := make([][]string, 0, len(list))
		for _, p := range list {
			active := ""
			if p.Active {
				active = "yes"
			}
			rows = append(rows, []string{p.Label, p.Path, active})
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderTable([]string{"Label", "Path", "Active"}, rows))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configListCmd)
}
