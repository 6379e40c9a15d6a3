// Package madara reads sites built on the Madara WordPress manga theme:
// search listings, series pages, the AJAX chapter list and reader pages,
// including ones guarded by the theme's chapter protector.
package madara

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/mangakit/internal/chapters"
	"github.com/brogergvhs/mangakit/internal/memo"
	"github.com/brogergvhs/mangakit/internal/model"
	"github.com/brogergvhs/mangakit/internal/pages"
	"github.com/brogergvhs/mangakit/internal/sources"
)

const Engine = "madara"

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
	tags     *memo.Lazy[[]model.Tag]
	now      func() time.Time
}

var (
	reChapterNo  = regexp.MustCompile(`(?i)(?:chapter|ch\.?)\s*([\d]+(?:\.\d+)?)`)
	reVolumeNo   = regexp.MustCompile(`(?i)vol(?:ume)?\.?\s*(\d+)`)
	reProtected  = regexp.MustCompile(`var\s+chapter_data\s*=\s*'([^']+)'`)
	reNonce      = regexp.MustCompile(`var\s+wpmangaprotectornonce\s*=\s*'([^']+)'`)
	reRelative   = regexp.MustCompile(`(?i)^(\d+|an?)\s+(second|min|minute|hour|day|week|month|year)s?\s+ago$`)
	relativeUnit = map[string]time.Duration{
		"second": time.Second,
		"min":    time.Minute,
		"minute": time.Minute,
		"hour":   time.Hour,
		"day":    24 * time.Hour,
		"week":   7 * 24 * time.Hour,
		"month":  30 * 24 * time.Hour,
		"year":   365 * 24 * time.Hour,
	}
)

func New(deps sources.Deps, site Site) (*Source, error) {
	base, err := url.Parse(strings.TrimRight(site.BaseURL, "/") + "/")
	if err != nil || base.Hostname() == "" {
		return nil, fmt.Errorf("madara site %q: invalid base url %q", site.ID, site.BaseURL)
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
		now:      time.Now,
	}
	s.tags = memo.NewLazy(s.fetchTags)
	return s, nil
}

func (s *Source) ID() string      { return s.site.ID }
func (s *Source) Name() string    { return s.site.Name }
func (s *Source) Hosts() []string { return []string{s.base.Hostname()} }

func (s *Source) get(ctx context.Context, target string) (*goquery.Document, error) {
	req, err := sources.Request(ctx, http.MethodGet, target, nil, http.Header{"Referer": {s.base.String()}})
	if err != nil {
		return nil, err
	}
	return sources.FetchDOM(s.client, req)
}

func imageSrc(img *goquery.Selection) string {
	for _, k := range []string{"data-src", "data-lazy-src", "src"} {
		if v := strings.TrimSpace(img.AttrOr(k, "")); v != "" {
			return v
		}
	}
	return ""
}

func (s *Source) ListPage(ctx context.Context, page int, query string) ([]model.Manga, error) {
	u := *s.base
	if page > 1 {
		u.Path += "page/" + strconv.Itoa(page) + "/"
	}
	u.RawQuery = url.Values{"s": {query}, "post_type": {"wp-manga"}}.Encode()

	doc, err := s.get(ctx, u.String())
	if err != nil {
		return nil, err
	}

	var out []model.Manga
	seen := map[string]bool{}
	doc.Find(".c-tabs-item__content, .page-item-detail").Each(func(_ int, item *goquery.Selection) {
		a := item.Find(".post-title a").First()
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return
		}
		href = sources.ResolveURL(s.base.String(), href)
		if seen[href] {
			return
		}
		seen[href] = true

		out = append(out, model.Manga{
			ID:     model.StableID(href),
			Title:  strings.TrimSpace(a.Text()),
			URL:    href,
			Cover:  imageSrc(item.Find("img").First()),
			Source: s.site.ID,
		})
	})

	return out, nil
}

func (s *Source) GetDetails(ctx context.Context, mangaURL string) (*model.Details, error) {
	doc, err := s.get(ctx, mangaURL)
	if err != nil {
		return nil, err
	}

	title := doc.Find(".post-title h1").First()
	title.Find("span").Remove()

	d := &model.Details{
		Manga: model.Manga{
			ID:     model.StableID(mangaURL),
			Title:  strings.TrimSpace(title.Text()),
			URL:    mangaURL,
			Cover:  imageSrc(doc.Find(".summary_image img").First()),
			Source: s.site.ID,
		},
		Description: strings.TrimSpace(doc.Find(".description-summary .summary__content, .summary__content").First().Text()),
	}

	doc.Find(".post-content_item").Each(func(_ int, row *goquery.Selection) {
		heading := strings.ToLower(strings.TrimSpace(row.Find(".summary-heading").Text()))
		content := strings.TrimSpace(row.Find(".summary-content").Text())

		switch {
		case strings.Contains(heading, "alternative"):
			for _, alt := range strings.FieldsFunc(content, func(r rune) bool { return r == ',' || r == ';' }) {
				if alt = strings.TrimSpace(alt); alt != "" {
					d.AltTitles = append(d.AltTitles, alt)
				}
			}
		case strings.Contains(heading, "status"):
			d.Status = content
		}
	})

	doc.Find(".author-content a").Each(func(_ int, a *goquery.Selection) {
		d.Authors = append(d.Authors, strings.TrimSpace(a.Text()))
	})
	doc.Find(".genres-content a").Each(func(_ int, a *goquery.Selection) {
		d.Tags = append(d.Tags, model.Tag{
			Key:    lastSegment(a.AttrOr("href", "")),
			Title:  strings.TrimSpace(a.Text()),
			Source: s.site.ID,
		})
	})

	return d, nil
}

func lastSegment(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	return parts[len(parts)-1]
}

// GetChapters loads the AJAX chapter list, falling back to chapters embedded
// in the series page. Madara lists newest first.
func (s *Source) GetChapters(ctx context.Context, mangaURL string) (*chapters.Result, error) {
	ajax := strings.TrimRight(mangaURL, "/") + "/ajax/chapters/"
	req, err := sources.Request(ctx, http.MethodPost, ajax, nil, http.Header{
		"Referer":          {mangaURL},
		"X-Requested-With": {"XMLHttpRequest"},
	})
	if err != nil {
		return nil, err
	}

	var items *goquery.Selection
	if doc, err := sources.FetchDOM(s.client, req); err != nil {
		s.log.Debugf("madara: ajax chapter list %s: %v\n", ajax, err)
	} else {
		items = doc.Find("li.wp-manga-chapter")
	}

	if items == nil || items.Length() == 0 {
		doc, err := s.get(ctx, mangaURL)
		if err != nil {
			return nil, err
		}
		items = doc.Find("li.wp-manga-chapter")
	}

	var raw []model.RawChapter
	items.Each(func(_ int, li *goquery.Selection) {
		a := li.Find("a").First()
		title := strings.TrimSpace(a.Text())

		date := li.Find(".chapter-release-date")
		rec := model.RawChapter{Title: title, Date: strings.TrimSpace(date.Text())}
		if rec.Date == "" {
			// fresh chapters show a "new" badge with the age in its title
			rec.Date = strings.TrimSpace(date.Find("a").AttrOr("title", ""))
		}
		if href := strings.TrimSpace(a.AttrOr("href", "")); href != "" {
			rec.URL = sources.ResolveURL(mangaURL, href)
		}
		if m := reChapterNo.FindStringSubmatch(title); m != nil {
			rec.Number = m[1]
		}
		if m := reVolumeNo.FindStringSubmatch(title); m != nil {
			rec.Volume = m[1]
		}
		raw = append(raw, rec)
	})

	c := chapters.Consolidator{Source: s.site.ID, Log: s.log, ParseDate: s.parseDate}
	return c.Consolidate(raw, true), nil
}

// parseDate understands Madara's "3 days ago" style besides absolute dates.
func (s *Source) parseDate(token string) time.Time {
	token = strings.TrimSpace(token)
	if m := reRelative.FindStringSubmatch(token); m != nil {
		n := 1
		if v, err := strconv.Atoi(m[1]); err == nil {
			n = v
		}
		return s.now().UTC().Add(-time.Duration(n) * relativeUnit[strings.ToLower(m[2])])
	}
	return chapters.ParseDate(token)
}

func (s *Source) GetPages(ctx context.Context, ch model.Chapter) ([]model.Page, error) {
	target := ch.URL
	if !strings.Contains(target, "?") {
		target += "?style=list"
	}

	doc, err := s.get(ctx, target)
	if err != nil {
		return nil, err
	}

	in := pages.Input{ChapterURL: ch.URL, Referer: s.base.String()}

	var scripts strings.Builder
	doc.Find("script").Each(func(_ int, sc *goquery.Selection) {
		scripts.WriteString(sc.Text())
		scripts.WriteString("\n")
	})

	if m := reProtected.FindStringSubmatch(scripts.String()); m != nil {
		nonce := reNonce.FindStringSubmatch(scripts.String())
		if nonce == nil {
			return nil, fmt.Errorf("%w (%s): protected chapter without nonce", pages.ErrPagesUnavailable, ch.URL)
		}
		in.CryptoJS = &pages.CryptoJSPayload{Envelope: m[1], Password: nonce[1]}
		return s.resolver.Resolve(ctx, in)
	}

	doc.Find(".reading-content img").Each(func(_ int, img *goquery.Selection) {
		if src := imageSrc(img); src != "" {
			in.URLs = append(in.URLs, sources.ResolveURL(ch.URL, src))
		}
	})

	return s.resolver.Resolve(ctx, in)
}

// GetTags returns the genre list, fetched once per Source.
func (s *Source) GetTags(ctx context.Context) ([]model.Tag, error) {
	return s.tags.Get(ctx)
}

func (s *Source) fetchTags(ctx context.Context) ([]model.Tag, error) {
	u := *s.base
	u.RawQuery = url.Values{"s": {""}, "post_type": {"wp-manga"}}.Encode()

	doc, err := s.get(ctx, u.String())
	if err != nil {
		return nil, err
	}

	var out []model.Tag
	doc.Find(`input[name="genre[]"]`).Each(func(_ int, in *goquery.Selection) {
		key := strings.TrimSpace(in.AttrOr("value", ""))
		if key == "" {
			return
		}
		title := strings.TrimSpace(doc.Find(`label[for="` + in.AttrOr("id", "") + `"]`).Text())
		if title == "" {
			title = key
		}
		out = append(out, model.Tag{Key: key, Title: title, Source: s.site.ID})
	})

	if len(out) > 0 {
		return out, nil
	}

	seen := map[string]bool{}
	doc.Find(`a[href*="/manga-genre/"]`).Each(func(_ int, a *goquery.Selection) {
		key := lastSegment(a.AttrOr("href", ""))
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, model.Tag{Key: key, Title: strings.TrimSpace(a.Text()), Source: s.site.ID})
	})

	if len(out) == 0 {
		return nil, fmt.Errorf("madara %s: no genres found", s.site.ID)
	}
	return out, nil
}
