package cmd

import (
	"fmt"
	"strings"

	"github.com/brogergvhs/mangakit/internal/config"
	"github.com/brogergvhs/mangakit/internal/ui"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the registered sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(config.Options{})
		if err != nil {
			return err
		}

		var rows [][]string
		for _, s := range a.registry.All() {
			hosts := strings.Join(s.Hosts(), ", ")
			if hosts == "" {
				hosts = "(any)"
			}
			rows = append(rows, []string{s.ID(), s.Name(), hosts})
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderTable([]string{"ID", "Name", "Hosts"}, rows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
