package cmd

import (
	"fmt"

	"github.com/brogergvhs/mangakit/internal/config"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var configSwitchCmd = &cobra.Command{
	Use:   "switch [label]",
	Short: "Switch to a different profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var label string

		if len(args) == 1 {
			label = args[0]
		} else {
			list, err := config.ListProfiles()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				return fmt.Errorf("no profiles available, run `mangakit config init`")
			}

			items := make([]string, len(list))
			for i, p := range list {
				items[i] = p.Label
				if p.Active {
					items[i] += "  (active)"
				}
			}

			prompt := promptui.Select{Label: "Select profile", Items: items}
			idx, _, err := prompt.Run()
			if err != nil {
				return fmt.Errorf("selection cancelled")
			}
			label = list[idx].Label
		}

		if err := config.SwitchProfile(label); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Switched to:", label)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSwitchCmd)
}
