package cmd

import (
	"fmt"

	"github.com/brogergvhs/mangakit/internal/config"

	"github.com/spf13/cobra"
)

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the active profile to default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ActiveProfilePath()
		if err != nil {
			return err
		}

		if err := config.SaveYAML(config.DefaultConfig(), path); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Reset active profile: %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configResetCmd)
}
