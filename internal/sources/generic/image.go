package generic

import (
	"cmp"
	"net/url"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/mangakit/internal/sources"
)

var (
	reSizeSuffix    = regexp.MustCompile(`[-_](\d{2,5})x(\d{2,5})`)
	reBackgroundURL = regexp.MustCompile(`url\((?:["']?)([^"')]+)(?:["']?)\)`)
	reLooseURLs     = regexp.MustCompile(`https?://[^\s"'<>]+`)
)

var skipWords = []string{"logo", "cover", "profile", "avatar", "banner"}

// candidate is one image URL seen on the page. Index comes from a
// data-index attribute and is -1 when absent; Order is discovery order.
type candidate struct {
	URL   string
	Index int
	Order int
}

type imageCollector struct {
	allowed *regexp.Regexp
	log     sources.Logger
	found   []candidate
	seen    map[string]bool
}

func newImageCollector(allowed *regexp.Regexp, log sources.Logger) *imageCollector {
	return &imageCollector{
		allowed: allowed,
		log:     log,
		found:   make([]candidate, 0, 64),
		seen:    make(map[string]bool),
	}
}

func (c *imageCollector) add(raw string, idx int) {
	lu := strings.ToLower(raw)
	if raw == "" || strings.HasPrefix(lu, "javascript:") || strings.HasPrefix(lu, "data:") {
		return
	}
	if !c.allowed.MatchString(lu) {
		return
	}
	for _, w := range skipWords {
		if strings.Contains(lu, w) {
			c.log.Debugf("skipping non-page image: %s\n", raw)
			return
		}
	}
	if c.seen[raw] {
		return
	}

	c.seen[raw] = true
	c.found = append(c.found, candidate{URL: raw, Index: idx, Order: len(c.found) + 1})
}

func (c *imageCollector) addSrcset(base, srcset string, idx int) {
	for p := range strings.SplitSeq(srcset, ",") {
		if f := strings.Fields(p); len(f) > 0 {
			c.add(sources.ResolveURL(base, f[0]), idx)
		}
	}
}

func extRegex(exts []string) *regexp.Regexp {
	var clean []string
	for _, ext := range exts {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext != "" {
			clean = append(clean, regexp.QuoteMeta(ext))
		}
	}
	if len(clean) == 0 {
		return regexp.MustCompile(`$a`)
	}

	return regexp.MustCompile(`(?i)\.(` + strings.Join(clean, "|") + `)(?:\?.*)?$`)
}

// dataIndex reads data-index from sel or its closest ancestor carrying one.
func dataIndex(sel *goquery.Selection) int {
	for _, s := range []*goquery.Selection{sel, sel.ParentsFiltered("[data-index]").First()} {
		if v, ok := s.Attr("data-index"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		}
	}
	return -1
}

// scanDOM runs every DOM strategy and reports how many candidates each added.
func (c *imageCollector) scanDOM(doc *goquery.Document, base string) map[string]int {
	added := map[string]int{}
	count := func(name string, scan func()) {
		before := len(c.found)
		scan()
		added[name] = len(c.found) - before
	}

	count("img", func() {
		doc.Find("img").Each(func(_ int, img *goquery.Selection) {
			idx := dataIndex(img)
			if ss, ok := img.Attr("srcset"); ok {
				c.addSrcset(base, ss, idx)
			}
			for _, k := range []string{"src", "data-src", "data-lazy-src", "data-original"} {
				if v, ok := img.Attr(k); ok && strings.TrimSpace(v) != "" {
					c.add(sources.ResolveURL(base, v), idx)
				}
			}
		})
	})

	count("picture", func() {
		doc.Find("source[srcset]").Each(func(_ int, src *goquery.Selection) {
			ss, _ := src.Attr("srcset")
			c.addSrcset(base, ss, dataIndex(src))
		})
	})

	count("anchor", func() {
		doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href := strings.TrimSpace(a.AttrOr("href", ""))
			for _, prefix := range []string{"http://", "https://", "/", "./"} {
				if strings.HasPrefix(href, prefix) {
					c.add(sources.ResolveURL(base, href), dataIndex(a))
					return
				}
			}
		})
	})

	count("background", func() {
		doc.Find("[style]").Each(func(_ int, el *goquery.Selection) {
			style := el.AttrOr("style", "")
			if !strings.Contains(strings.ToLower(style), "background-image") {
				return
			}
			idx := dataIndex(el)
			for _, m := range reBackgroundURL.FindAllStringSubmatch(style, -1) {
				if u := strings.TrimSpace(m[1]); u != "" {
					c.add(sources.ResolveURL(base, u), idx)
				}
			}
		})
	})

	return added
}

// scanState walks decoded SSR state (e.g. window.__NUXT__), picking up
// absolute image URLs and HTML fragments.
func (c *imageCollector) scanState(v any, base string) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		ls := strings.ToLower(s)
		if strings.HasPrefix(ls, "http://") || strings.HasPrefix(ls, "https://") {
			c.add(s, -1)
			return
		}
		if looksLikeHTML(s) {
			if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
				c.scanDOM(doc, base)
			}
		}
	case []any:
		for _, x := range t {
			c.scanState(x, base)
		}
	case map[string]any:
		for _, x := range t {
			c.scanState(x, base)
		}
	}
}

func (c *imageCollector) scanLoose(body string) {
	for _, u := range reLooseURLs.FindAllString(body, -1) {
		c.add(u, -1)
	}
}

// Finalize collapses size variants of the same image and orders pages by
// data-index, then discovery order.
func (c *imageCollector) Finalize() []string {
	if len(c.found) == 0 {
		return nil
	}

	groups := map[string][]candidate{}
	var keys []string
	for _, it := range c.found {
		k := sizeless(it.URL)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], it)
	}

	picked := make([]candidate, 0, len(keys))
	for _, k := range keys {
		items := groups[k]
		best := bestVariant(items)
		for _, it := range items {
			if it.Index >= 0 && (best.Index < 0 || it.Index < best.Index) {
				best.Index = it.Index
			}
			best.Order = min(best.Order, it.Order)
		}
		picked = append(picked, best)
	}

	slices.SortStableFunc(picked, func(a, b candidate) int {
		switch {
		case a.Index >= 0 && b.Index >= 0 && a.Index != b.Index:
			return cmp.Compare(a.Index, b.Index)
		case a.Index >= 0 && b.Index < 0:
			return -1
		case a.Index < 0 && b.Index >= 0:
			return 1
		}
		return cmp.Compare(a.Order, b.Order)
	})

	out := make([]string, len(picked))
	for i, p := range picked {
		out[i] = p.URL
	}
	return out
}

// bestVariant prefers the earliest URL without a WxH suffix, otherwise the
// largest area.
func bestVariant(items []candidate) candidate {
	var best candidate
	bestArea := -1
	for _, it := range items {
		w, h, sized := dimensions(it.URL)
		if !sized {
			return it
		}
		if w*h > bestArea {
			best, bestArea = it, w*h
		}
	}
	return best
}

func dimensions(u string) (int, int, bool) {
	m := reSizeSuffix.FindStringSubmatch(u)
	if m == nil {
		return 0, 0, false
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	return w, h, true
}

func sizeless(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	ext := path.Ext(u.Path)
	base := strings.TrimSuffix(u.Path, ext)
	base = strings.TrimRight(reSizeSuffix.ReplaceAllString(base, ""), "-_")
	return u.Host + base + ext
}
