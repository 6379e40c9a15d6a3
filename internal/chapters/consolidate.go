package chapters

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/brogergvhs/mangakit/internal/model"
)

// Result holds consolidated chapters per branch. Labels keeps branches in
// first-acceptance order so iteration is deterministic.
type Result struct {
	Labels   []string
	Branches map[string][]model.Chapter
}

func (r *Result) Branch(label string) []model.Chapter {
	return r.Branches[label]
}

// Len is the number of chapters across all branches.
func (r *Result) Len() int {
	n := 0
	for _, list := range r.Branches {
		n += len(list)
	}
	return n
}

// Flatten returns every chapter, branch by branch in Labels order.
func (r *Result) Flatten() []model.Chapter {
	out := make([]model.Chapter, 0, r.Len())
	for _, label := range r.Labels {
		out = append(out, r.Branches[label]...)
	}
	return out
}

type Consolidator struct {
	Namer     Namer
	ParseDate func(token string) time.Time
	Source    string
	Log       interface{ Debugf(string, ...any) }
}

// Consolidate runs a Consolidator with default settings.
func Consolidate(records []model.RawChapter, reversed bool) *Result {
	var c Consolidator
	return c.Consolidate(records, reversed)
}

// Consolidate turns a raw feed into branch-separated chapters numbered 1..N
// per branch in chronological order. reversed marks a newest-first feed.
// Records without a URL are dropped.
func (c *Consolidator) Consolidate(records []model.RawChapter, reversed bool) *Result {
	namer := c.Namer
	if namer == nil {
		namer = LanguageNamer
	}
	parseDate := c.ParseDate
	if parseDate == nil {
		parseDate = ParseDate
	}

	reg := NewRegistry()
	branches := make(map[string][]model.Chapter)

	for i := range records {
		idx := i
		if reversed {
			idx = len(records) - 1 - i
		}
		rec := records[idx]

		u := strings.TrimSpace(rec.URL)
		if u == "" {
			if c.Log != nil {
				c.Log.Debugf("skipping chapter %q (vol %q, ch %q): no url\n", rec.Title, rec.Volume, rec.Number)
			}
			continue
		}

		key := Key{Volume: rec.Volume, Number: rec.Number}
		branch, seq := reg.Place(namer(rec.Locale), key)

		branches[branch] = append(branches[branch], model.Chapter{
			ID:         model.StableID(u),
			Name:       displayName(rec),
			Number:     seq,
			Volume:     rec.Volume,
			Token:      rec.Number,
			Branch:     branch,
			Scanlator:  strings.TrimSpace(rec.Scanlator),
			UploadedAt: parseDate(rec.Date),
			URL:        u,
			Source:     c.Source,
		})
	}

	return &Result{Labels: reg.Labels(), Branches: branches}
}

// ParseDate parses an upload-date token in any common layout, as UTC.
// Unparsable tokens give the zero time.
func ParseDate(token string) time.Time {
	token = strings.TrimSpace(token)
	if token == "" {
		return time.Time{}
	}

	t, err := dateparse.ParseIn(token, time.UTC)
	if err != nil {
		return time.Time{}
	}

	return t
}

func displayName(rec model.RawChapter) string {
	if title := strings.TrimSpace(rec.Title); title != "" {
		return title
	}

	num := strings.TrimSpace(rec.Number)
	vol := strings.TrimSpace(rec.Volume)

	switch {
	case vol != "" && num != "":
		return "Vol. " + vol + " Ch. " + num
	case num != "":
		return "Chapter " + num
	case vol != "":
		return "Vol. " + vol
	default:
		return "Chapter"
	}
}
