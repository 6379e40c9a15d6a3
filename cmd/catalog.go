package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/brogergvhs/mangakit/internal/config"
	"github.com/brogergvhs/mangakit/internal/sources"
	"github.com/brogergvhs/mangakit/internal/ui"

	"github.com/spf13/cobra"
)

var flagPage int

func unsupported(err error, what, id string) error {
	if errors.Is(err, sources.ErrUnsupported) {
		return fmt.Errorf("source %q does not support %s", id, what)
	}
	return err
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List the genres/tags a source knows",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(config.Options{})
		if err != nil {
			return err
		}
		src, err := a.namedSource()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		tags, err := src.GetTags(ctx)
		if err != nil {
			return unsupported(err, "tags", src.ID())
		}

		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), tags)
		}
		rows := make([][]string, len(tags))
		for i, t := range tags {
			rows[i] = []string{t.Key, t.Title}
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderTable([]string{"Key", "Title"}, rows))
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Browse or search a source's catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(config.Options{})
		if err != nil {
			return err
		}
		src, err := a.namedSource()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		list, err := src.ListPage(ctx, flagPage, strings.Join(args, " "))
		if err != nil {
			return unsupported(err, "search", src.ID())
		}

		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), list)
		}
		rows := make([][]string, len(list))
		for i, m := range list {
			rows[i] = []string{m.Title, m.URL}
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderTable([]string{"Title", "URL"}, rows))
		return nil
	},
}

var detailsCmd = &cobra.Command{
	Use:   "details",
	Short: "Show series metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(config.Options{DefaultURL: flagURL})
		if err != nil {
			return err
		}
		if a.cfg.DefaultURL == "" {
			return fmt.Errorf("missing --url and no default_url in config")
		}
		src, err := a.source(a.cfg.DefaultURL)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		d, err := src.GetDetails(ctx, a.cfg.DefaultURL)
		if err != nil {
			return unsupported(err, "details", src.ID())
		}

		out := cmd.OutOrStdout()
		if flagJSON {
			return writeJSON(out, d)
		}

		tags := make([]string, len(d.Tags))
		for i, t := range d.Tags {
			tags[i] = t.Title
		}
		rows := [][]string{
			{"Title", d.Title},
			{"Also known as", strings.Join(d.AltTitles, "; ")},
			{"Authors", strings.Join(d.Authors, ", ")},
			{"Status", d.Status},
			{"Tags", strings.Join(tags, ", ")},
			{"Cover", d.Cover},
			{"URL", d.URL},
		}
		fmt.Fprintln(out, ui.RenderTable([]string{"Field", "Value"}, rows))
		if d.Description != "" {
			fmt.Fprintf(out, "\n%s\n", d.Description)
		}
		return nil
	},
}

func init() {
	tagsCmd.Flags().BoolVar(&flagJSON, "json", false, "print JSON instead of a table")
	searchCmd.Flags().BoolVar(&flagJSON, "json", false, "print JSON instead of a table")
	searchCmd.Flags().IntVar(&flagPage, "page", 1, "result page")
	detailsCmd.Flags().StringVar(&flagURL, "url", "", "series URL")
	detailsCmd.Flags().BoolVar(&flagJSON, "json", false, "print JSON instead of a table")

	rootCmd.AddCommand(tagsCmd, searchCmd, detailsCmd)
}
