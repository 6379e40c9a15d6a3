package cmd

import (
	"fmt"

	"github.com/brogergvhs/mangakit/internal/config"

	"github.com/spf13/cobra"
)

var forceRemove bool

var configRemoveCmd = &cobra.Command{
	Use:   "remove <label>",
	Short: "Remove a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := args[0]
		out := cmd.OutOrStdout()

		if active, _ := config.CurrentLabel(); label == active && !forceRemove {
			if !confirm(fmt.Sprintf("Profile %q is active. Remove it anyway", label)) {
				fmt.Fprintln(out, "Aborted.")
				return nil
			}
		}

		switched, err := config.RemoveProfile(label)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Removed profile %q\n", label)
		if switched {
			fmt.Fprintln(out, "Switched to the Default profile.")
		}
		return nil
	},
}

func init() {
	configRemoveCmd.Flags().BoolVarP(&forceRemove, "force", "f", false, "do not ask before removing the active profile")
	configCmd.AddCommand(configRemoveCmd)
}
