package cmd

import (
	"fmt"

	"github.com/brogergvhs/mangakit/internal/config"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var configAddCmd = &cobra.Command{
	Use:   "add [label]",
	Short: "Create a new profile with default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var label string
		if len(args) == 1 {
			label = args[0]
		} else {
			p := promptui.Prompt{Label: "Label for the new profile"}
			var err error
			if label, err = p.Run(); err != nil {
				return fmt.Errorf("input cancelled")
			}
		}

		path, err := config.CreateProfile(label)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created profile: %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configAddCmd)
}
