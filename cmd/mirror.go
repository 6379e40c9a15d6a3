package cmd

import (
	"fmt"

	"github.com/brogergvhs/mangakit/internal/config"
	"github.com/brogergvhs/mangakit/internal/mirror"

	"github.com/spf13/cobra"
)

var flagMirrorPath string

var mirrorCmd = &cobra.Command{
	Use:   "mirror --path P HOST...",
	Short: "Pick the first reachable mirror host for a resource path",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(config.Options{})
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		prober := mirror.NewProber(a.deps.Client, nil, a.log)
		fmt.Fprintln(cmd.OutOrStdout(), prober.ResolveSet(ctx, mirror.Set{Hosts: args, Path: flagMirrorPath}))
		return nil
	},
}

func init() {
	mirrorCmd.Flags().StringVar(&flagMirrorPath, "path", "", "resource path to probe, e.g. /data/ch1/001.png")
	_ = mirrorCmd.MarkFlagRequired("path")
	rootCmd.AddCommand(mirrorCmd)
}
