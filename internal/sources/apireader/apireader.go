// Package apireader reads sites that expose their catalogue over a JSON API
// and serve chapter pages from a reader whose script carries a scrambled
// page list and a set of image mirrors.
package apireader

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/brogergvhs/mangakit/internal/chapters"
	"github.com/brogergvhs/mangakit/internal/memo"
	"github.com/brogergvhs/mangakit/internal/model"
	"github.com/brogergvhs/mangakit/internal/pages"
	"github.com/brogergvhs/mangakit/internal/sources"
)

const Engine = "apireader"

type Site struct {
	ID      string
	Name    string
	BaseURL string
}

type Source struct {
	site     Site
	base     *url.URL
	client   *http.Client
	log      sources.Logger
	resolver *pages.Resolver
	genres   *memo.Lazy[[]model.Tag]
}

type mangaJSON struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Cover       string   `json:"cover"`
	AltTitles   []string `json:"alt_titles"`
	Authors     []string `json:"authors"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Genres      []string `json:"genres"`
}

type chapterJSON struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Volume    string `json:"volume"`
	Chapter   string `json:"chapter"`
	Lang      string `json:"lang"`
	Group     string `json:"group"`
	Published string `json:"published_at"`
}

func New(deps sources.Deps, site Site) (*Source, error) {
	base, err := url.Parse(strings.TrimRight(site.BaseURL, "/") + "/")
	if err != nil || base.Hostname() == "" {
		return nil, fmt.Errorf("apireader site %q: invalid base url %q", site.ID, site.BaseURL)
	}
	if site.Name == "" {
		site.Name = site.ID
	}

	s := &Source{
		site:     site,
		base:     base,
		client:   deps.HTTP(),
		log:      deps.Logger(),
		resolver: deps.Pages(),
	}
	s.genres = memo.NewLazy(s.fetchGenres)
	return s, nil
}

func (s *Source) ID() string      { return s.site.ID }
func (s *Source) Name() string    { return s.site.Name }
func (s *Source) Hosts() []string { return []string{s.base.Hostname()} }

func (s *Source) endpoint(p string, q url.Values) string {
	u := s.base.JoinPath(p)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (s *Source) api(ctx context.Context, target string, v any) error {
	req, err := sources.Request(ctx, http.MethodGet, target, nil, http.Header{"Accept": {"application/json"}})
	if err != nil {
		return err
	}
	return sources.FetchJSON(s.client, req, v)
}

func (s *Source) mangaURL(slug string) string {
	return s.endpoint("manga/"+slug, nil)
}

// slugOf accepts a series URL (.../manga/<slug>) or a bare slug.
func slugOf(mangaURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(mangaURL))
	if err != nil {
		return "", err
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "manga" && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}
	if u.Host == "" && len(parts) == 1 && parts[0] != "" {
		return parts[0], nil
	}
	return "", fmt.Errorf("no series slug in %q", mangaURL)
}

func (s *Source) toManga(m mangaJSON) model.Manga {
	u := s.mangaURL(m.Slug)
	return model.Manga{
		ID:     model.StableID(u),
		Title:  strings.TrimSpace(m.Title),
		URL:    u,
		Cover:  m.Cover,
		Source: s.site.ID,
	}
}

func (s *Source) ListPage(ctx context.Context, page int, query string) ([]model.Manga, error) {
	q := url.Values{"page": {strconv.Itoa(max(page, 1))}}
	if query = strings.TrimSpace(query); query != "" {
		q.Set("q", query)
	}

	var resp struct {
		Data []mangaJSON `json:"data"`
	}
	if err := s.api(ctx, s.endpoint("api/manga", q), &resp); err != nil {
		return nil, err
	}

	out := make([]model.Manga, 0, len(resp.Data))
	for _, m := range resp.Data {
		if m.Slug == "" {
			continue
		}
		out = append(out, s.toManga(m))
	}
	return out, nil
}

func (s *Source) GetDetails(ctx context.Context, mangaURL string) (*model.Details, error) {
	slug, err := slugOf(mangaURL)
	if err != nil {
		return nil, err
	}

	var m mangaJSON
	if err := s.api(ctx, s.endpoint("api/manga/"+slug, nil), &m); err != nil {
		return nil, err
	}
	if m.Slug == "" {
		m.Slug = slug
	}

	d := &model.Details{
		Manga:       s.toManga(m),
		AltTitles:   m.AltTitles,
		Authors:     m.Authors,
		Description: strings.TrimSpace(m.Description),
		Status:      m.Status,
	}

	titles := map[string]string{}
	if all, err := s.GetTags(ctx); err != nil {
		s.log.Debugf("apireader %s: genres unavailable: %v\n", s.site.ID, err)
	} else {
		for _, t := range all {
			titles[t.Key] = t.Title
		}
	}
	for _, key := range m.Genres {
		title := titles[key]
		if title == "" {
			title = key
		}
		d.Tags = append(d.Tags, model.Tag{Key: key, Title: title, Source: s.site.ID})
	}

	return d, nil
}

// GetChapters reads the chapter feed, newest first, and splits it into one
// branch per language.
func (s *Source) GetChapters(ctx context.Context, mangaURL string) (*chapters.Result, error) {
	slug, err := slugOf(mangaURL)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []chapterJSON `json:"data"`
	}
	if err := s.api(ctx, s.endpoint("api/manga/"+slug+"/chapters", nil), &resp); err != nil {
		return nil, err
	}

	raw := make([]model.RawChapter, len(resp.Data))
	for i, c := range resp.Data {
		raw[i] = model.RawChapter{
			Title:     c.Title,
			Volume:    c.Volume,
			Number:    c.Chapter,
			Locale:    c.Lang,
			Scanlator: c.Group,
			Date:      c.Published,
		}
		if c.ID != "" {
			raw[i].URL = s.endpoint("read/"+slug+"/"+c.ID, nil)
		}
	}

	c := chapters.Consolidator{Source: s.site.ID, Log: s.log}
	return c.Consolidate(raw, true), nil
}

func (s *Source) GetTags(ctx context.Context) ([]model.Tag, error) {
	return s.genres.Get(ctx)
}

func (s *Source) fetchGenres(ctx context.Context) ([]model.Tag, error) {
	var list []struct {
		Key   string `json:"key"`
		Title string `json:"title"`
	}
	if err := s.api(ctx, s.endpoint("api/genres", nil), &list); err != nil {
		return nil, err
	}

	out := make([]model.Tag, 0, len(list))
	for _, g := range list {
		out = append(out, model.Tag{Key: g.Key, Title: g.Title, Source: s.site.ID})
	}
	return out, nil
}
