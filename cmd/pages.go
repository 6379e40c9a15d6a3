package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/brogergvhs/mangakit/internal/batch"
	"github.com/brogergvhs/mangakit/internal/model"
	"github.com/brogergvhs/mangakit/internal/ui"

	"github.com/spf13/cobra"
)

var (
	flagAll        bool
	flagWorkers    int
	flagSkipBroken bool
)

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Resolve the page images of a chapter, or of many chapters with --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := selectionOptions()
		opts.Workers = flagWorkers
		opts.SkipBroken = flagSkipBroken

		a, err := newApp(opts)
		if err != nil {
			return err
		}

		if flagAll {
			return a.runBatch(cmd)
		}

		if flagURL == "" {
			return fmt.Errorf("missing --url")
		}

		ctx, cancel := signalContext()
		defer cancel()

		src, err := a.source(flagURL)
		if err != nil {
			return err
		}

		list, err := src.GetPages(ctx, model.Chapter{ID: model.StableID(flagURL), URL: flagURL, Source: src.ID()})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flagJSON {
			return writeJSON(out, list)
		}
		printPages(out, list)
		return nil
	},
}

func (a *app) runBatch(cmd *cobra.Command) error {
	ctx, cancel := signalContext()
	defer cancel()

	selected, src, err := a.selectChapters(ctx, !flagJSON)
	if err != nil {
		return err
	}

	pm := ui.NewProgressManager(os.Stderr)
	handle := pm.Register(src.Name(), len(selected))

	runner := &batch.Runner{Workers: a.cfg.Workers, SkipBroken: a.cfg.SkipBroken, Log: a.log}
	start := time.Now()
	results, runErr := runner.Run(ctx, selected, src.GetPages, handle)
	pm.Close()

	stats := &ui.Stats{}
	for _, r := range results {
		switch {
		case r.Err != nil:
			stats.Failed.Add(1)
			a.log.Warnf("%s: %v\n", r.Chapter.Name, r.Err)
		case r.Pages != nil:
			stats.Chapters.Add(1)
			stats.Pages.Add(int64(len(r.Pages)))
		}
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		type chapterPages struct {
			Chapter model.Chapter `json:"chapter"`
			Pages   []model.Page  `json:"pages"`
			Error   string        `json:"error,omitempty"`
		}
		doc := make([]chapterPages, len(results))
		for i, r := range results {
			doc[i] = chapterPages{Chapter: r.Chapter, Pages: r.Pages}
			if r.Err != nil {
				doc[i].Error = r.Err.Error()
			}
		}
		if err := writeJSON(out, doc); err != nil {
			return err
		}
	}

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Summary:")
	fmt.Fprintf(os.Stderr, "Chapters: %d\n", stats.Chapters.Load())
	fmt.Fprintf(os.Stderr, "Pages:    %d\n", stats.Pages.Load())
	if f := stats.Failed.Load(); f > 0 {
		fmt.Fprintf(os.Stderr, "Failed:   %d\n", f)
	}
	fmt.Fprintf(os.Stderr, "Time:     %s\n", time.Since(start).Round(time.Second))

	return runErr
}

func printPages(w io.Writer, list []model.Page) {
	rows := make([][]string, len(list))
	for i, p := range list {
		rows[i] = []string{strconv.Itoa(i + 1), p.URL, p.Preview}
	}
	fmt.Fprintln(w, ui.RenderTable([]string{"#", "URL", "Preview"}, rows, 0))
}

func init() {
	addSelectionFlags(pagesCmd)
	pagesCmd.Flags().BoolVar(&flagAll, "all", false, "treat --url as a series and resolve every selected chapter")
	pagesCmd.Flags().IntVar(&flagWorkers, "workers", 0, "parallel chapters with --all (default from config)")
	pagesCmd.Flags().BoolVar(&flagSkipBroken, "skip-broken", false, "with --all, succeed even when some chapters fail")
	rootCmd.AddCommand(pagesCmd)
}
