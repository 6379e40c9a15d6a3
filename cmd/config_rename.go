package cmd

import (
	"fmt"

	"github.com/brogergvhs/mangakit/internal/config"

	"github.com/spf13/cobra"
)

var configRenameCmd = &cobra.Command{
	Use:   "rename <old_label> <new_label>",
	Short: "Rename a profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.RenameProfile(args[0], args[1]); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Renamed profile %q to %q\n", args[0], args[1])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configRenameCmd)
}
