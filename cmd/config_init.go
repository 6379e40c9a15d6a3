package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/brogergvhs/mangakit/internal/config"

	"github.com/spf13/cobra"
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the Default profile and make it active",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		path := config.ProfilePath("Default")

		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(out, "Profile already exists at:\n  %s\nUse `mangakit config reset` to recreate it.\n", path)
			return nil
		}

		fmt.Fprintf(out, "Default profile:\n")
		config.DefaultConfig().Print(out)
		fmt.Fprintln(out)

		if !confirm(fmt.Sprintf("Create it at %s", path)) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}

		path, err := config.InitDefault()
		if err != nil && !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("failed to create profile: %w", err)
		}

		fmt.Fprintf(out, "Profile created at: %s\nIt is now active (label: Default).\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
