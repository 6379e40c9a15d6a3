package generic

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/mangakit/internal/chapters"
	"github.com/brogergvhs/mangakit/internal/model"
	"github.com/brogergvhs/mangakit/internal/pages"
	"github.com/brogergvhs/mangakit/internal/sources"
)

const ID = "generic"

var reNuxt = regexp.MustCompile(`window\.__NUXT__\s*=\s*(\{.*?});`)

type Source struct {
	client   *http.Client
	log      sources.Logger
	resolver *pages.Resolver
	allowed  *regexp.Regexp
	checkJS  bool
}

// New builds the generic source. checkJS enables probing endpoints found in
// inline scripts.
func New(deps sources.Deps, checkJS bool) *Source {
	return &Source{
		client:   deps.HTTP(),
		log:      deps.Logger(),
		resolver: deps.Pages(),
		allowed:  extRegex(deps.AllowExt),
		checkJS:  checkJS,
	}
}

func (s *Source) ID() string      { return ID }
func (s *Source) Name() string    { return "Generic HTML" }
func (s *Source) Hosts() []string { return nil }

func (s *Source) ListPage(context.Context, int, string) ([]model.Manga, error) {
	return nil, sources.ErrUnsupported
}

func (s *Source) GetTags(context.Context) ([]model.Tag, error) {
	return nil, sources.ErrUnsupported
}

func (s *Source) fetch(ctx context.Context, target string) (string, *goquery.Document, error) {
	req, err := sources.Request(ctx, http.MethodGet, target, nil, nil)
	if err != nil {
		return "", nil, err
	}
	body, err := sources.FetchBody(s.client, req)
	if err != nil {
		return "", nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	return body, doc, err
}

// GetDetails reads OpenGraph metadata, falling back to <title>.
func (s *Source) GetDetails(ctx context.Context, mangaURL string) (*model.Details, error) {
	_, doc, err := s.fetch(ctx, mangaURL)
	if err != nil {
		return nil, err
	}

	meta := func(prop string) string {
		return strings.TrimSpace(doc.Find(`meta[property="` + prop + `"]`).AttrOr("content", ""))
	}

	title := meta("og:title")
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	return &model.Details{
		Manga: model.Manga{
			ID:     model.StableID(mangaURL),
			Title:  title,
			URL:    mangaURL,
			Cover:  meta("og:image"),
			Source: ID,
		},
		Description: meta("og:description"),
	}, nil
}

func (s *Source) GetChapters(ctx context.Context, mangaURL string) (*chapters.Result, error) {
	_, doc, err := s.fetch(ctx, mangaURL)
	if err != nil {
		return nil, err
	}

	type link struct {
		ref   chapterRef
		title string
		url   string
	}
	var found []link
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		title := strings.TrimSpace(a.Text())
		if !looksLikeChapterLink(href, title) {
			return
		}

		ref, ok := parseChapterLink(href, title)
		if !ok {
			return
		}

		u := sources.ResolveURL(mangaURL, href)
		if seen[u] {
			return
		}
		seen[u] = true
		found = append(found, link{ref: ref, title: title, url: u})
	})

	slices.SortStableFunc(found, func(a, b link) int { return compareRefs(a.ref, b.ref) })

	raw := make([]model.RawChapter, len(found))
	for i, l := range found {
		raw[i] = model.RawChapter{
			Title:  l.title,
			Volume: l.ref.Volume,
			Number: l.ref.Token,
			URL:    l.url,
		}
	}

	c := chapters.Consolidator{Source: ID, Log: s.log}
	return c.Consolidate(raw, false), nil
}

func (s *Source) GetPages(ctx context.Context, ch model.Chapter) ([]model.Page, error) {
	body, doc, err := s.fetch(ctx, ch.URL)
	if err != nil {
		return nil, err
	}

	col := newImageCollector(s.allowed, s.log)
	for name, n := range col.scanDOM(doc, ch.URL) {
		s.log.Debugf("%s: +%d candidates\n", name, n)
	}

	if m := reNuxt.FindStringSubmatch(body); len(m) > 1 {
		var state map[string]any
		if json.Unmarshal([]byte(m[1]), &state) == nil {
			s.log.Debugf("found embedded SSR state\n")
			col.scanState(state, ch.URL)
		}
	}

	col.scanLoose(body)

	if s.checkJS {
		var js strings.Builder
		doc.Find("script").Each(func(_ int, sc *goquery.Selection) {
			if t := sc.Text(); strings.TrimSpace(t) != "" {
				js.WriteString(t)
				js.WriteString("\n")
			}
		})
		s.probeEndpoints(ctx, ch.URL, readScripts(js.String()), col)
	}

	return s.resolver.Resolve(ctx, pages.Input{ChapterURL: ch.URL, URLs: col.Finalize()})
}
