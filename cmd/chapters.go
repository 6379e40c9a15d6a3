package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/brogergvhs/mangakit/internal/chapters"
	"github.com/brogergvhs/mangakit/internal/config"
	"github.com/brogergvhs/mangakit/internal/model"
	"github.com/brogergvhs/mangakit/internal/sources"
	"github.com/brogergvhs/mangakit/internal/ui"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var (
	flagURL     string
	flagBranch  string
	flagChapter string
	flagRange   string
	flagList    string
	flagJSON    bool
)

// addSelectionFlags registers the chapter selection flags shared by
// `chapters` and `pages --all`.
func addSelectionFlags(c *cobra.Command) {
	c.Flags().StringVar(&flagURL, "url", "", "series URL")
	c.Flags().StringVar(&flagBranch, "branch", "", "branch label, e.g. \"English\" or \"English (1)\"")
	c.Flags().StringVar(&flagChapter, "chapter", "", "single chapter by token or position (e.g. 28.5 or 5)")
	c.Flags().StringVar(&flagRange, "range", "", "chapters by position range (e.g. 5-12)")
	c.Flags().StringVar(&flagList, "list", "", "chapters by positions (e.g. 1,3,5)")
	c.Flags().BoolVar(&flagJSON, "json", false, "print JSON instead of a table")
}

func selectionOptions() config.Options {
	return config.Options{
		DefaultURL:    flagURL,
		DefaultBranch: flagBranch,
		DefaultRange:  flagRange,
		DefaultList:   flagList,
	}
}

var chaptersCmd = &cobra.Command{
	Use:   "chapters",
	Short: "List the chapters of a series, one branch at a time",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(selectionOptions())
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		selected, _, err := a.selectChapters(ctx, !flagJSON)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flagJSON {
			return writeJSON(out, selected)
		}

		printChapters(out, selected)
		return nil
	},
}

// selectChapters resolves the series URL to chapters and applies the branch
// and chapter selection. With interactive set and no branch given, a series
// with several branches prompts for one; otherwise every branch is kept.
func (a *app) selectChapters(ctx context.Context, interactive bool) ([]model.Chapter, sources.Source, error) {
	target := a.cfg.DefaultURL
	if target == "" {
		return nil, nil, fmt.Errorf("missing --url and no default_url in config")
	}

	src, err := a.source(target)
	if err != nil {
		return nil, nil, err
	}

	res, err := src.GetChapters(ctx, target)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", src.ID(), err)
	}
	if res.Len() == 0 {
		return nil, nil, fmt.Errorf("no chapters found at %s", target)
	}

	branch, all, err := pickBranch(res, a.cfg.DefaultBranch, interactive)
	if err != nil {
		return nil, nil, err
	}

	list := res.Branch(branch)
	if all {
		list = res.Flatten()
	}

	selected := chapters.Filter(list, flagChapter, a.cfg.DefaultRange, a.cfg.DefaultList)
	if len(selected) == 0 {
		return nil, nil, fmt.Errorf("no chapters selected")
	}

	a.log.Debugf("%d of %d chapters selected from %s\n", len(selected), res.Len(), src.ID())
	return selected, src, nil
}

func pickBranch(res *chapters.Result, want string, interactive bool) (string, bool, error) {
	if want != "" {
		if _, ok := res.Branches[want]; !ok {
			return "", false, fmt.Errorf("branch %q not found, have: %s", want, quoteLabels(res.Labels))
		}
		return want, false, nil
	}

	if len(res.Labels) == 1 {
		return res.Labels[0], false, nil
	}
	if !interactive {
		return "", true, nil
	}

	items := make([]string, len(res.Labels))
	for i, l := range res.Labels {
		items[i] = fmt.Sprintf("%s  (%d chapters)", branchTitle(l), len(res.Branches[l]))
	}

	prompt := promptui.Select{Label: "Select branch", Items: items}
	idx, _, err := prompt.Run()
	if err != nil {
		return "", false, fmt.Errorf("selection cancelled")
	}
	return res.Labels[idx], false, nil
}

func branchTitle(label string) string {
	if label == "" {
		return "(default)"
	}
	return label
}

func quoteLabels(labels []string) string {
	q := make([]string, len(labels))
	for i, l := range labels {
		q[i] = strconv.Quote(l)
	}
	return strings.Join(q, ", ")
}

func printChapters(w io.Writer, list []model.Chapter) {
	rows := make([][]string, 0, len(list))
	for _, ch := range list {
		uploaded := ""
		if !ch.UploadedAt.IsZero() {
			uploaded = ch.UploadedAt.Format("2006-01-02")
		}
		rows = append(rows, []string{
			strconv.Itoa(ch.Number), ch.Token, ch.Volume, ch.Name,
			branchTitle(ch.Branch), ch.Scanlator, uploaded, ch.URL,
		})
	}

	fmt.Fprintln(w, ui.RenderTable(
		[]string{"#", "Ch", "Vol", "Name", "Branch", "Group", "Uploaded", "URL"}, rows, 0))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	addSelectionFlags(chaptersCmd)
	rootCmd.AddCommand(chaptersCmd)
}
