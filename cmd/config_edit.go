package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/brogergvhs/mangakit/internal/config"

	"github.com/spf13/cobra"
)

var configEditCmd = &cobra.Command{
	Use:   "edit [label]",
	Short: "Open the active or named profile in $EDITOR",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := ""
		if len(args) == 1 {
			label = args[0]
		} else {
			var err error
			if label, err = config.CurrentLabel(); err != nil {
				return fmt.Errorf("failed to get active profile: %w", err)
			}
		}

		path := config.ProfilePath(label)
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("profile %q: %w", label, err)
		}

		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}

		ed := exec.Command(editor, path)
		ed.Stdin = os.Stdin
		ed.Stdout = os.Stdout
		ed.Stderr = os.Stderr

		if err := ed.Run(); err != nil {
			return fmt.Errorf("failed to open editor: %w", err)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configEditCmd)
}
