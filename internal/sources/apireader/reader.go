package apireader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/mangakit/internal/model"
	"github.com/brogergvhs/mangakit/internal/pages"
	"github.com/brogergvhs/mangakit/internal/sources"
)

// Script variables the reader page defines.
const (
	varTableA = "pageKeyA"
	varTableB = "pageKeyB"
	varData   = "pageData"
	varHosts  = "pageHosts"
)

var reScriptVar = regexp.MustCompile(`(?:var|let|const)\s+([A-Za-z_$][\w$]*)\s*=\s*("(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'|\[[^\]]*\])`)

// scriptVars collects string and array literals assigned in inline scripts.
func scriptVars(doc *goquery.Document) map[string]string {
	out := map[string]string{}
	doc.Find("script").Each(func(_ int, sc *goquery.Selection) {
		for _, m := range reScriptVar.FindAllStringSubmatch(sc.Text(), -1) {
			out[m[1]] = m[2]
		}
	})
	return out
}

// jsString decodes a JS string literal in either quote style.
func jsString(lit string) (string, error) {
	if len(lit) >= 2 && lit[0] == '\'' && lit[len(lit)-1] == '\'' {
		lit = requote(lit[1 : len(lit)-1])
	}
	var s string
	err := json.Unmarshal([]byte(lit), &s)
	return s, err
}

// requote turns the body of a single-quoted literal into a double-quoted one.
func requote(body string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body):
			i++
			if body[i] == '\'' {
				b.WriteByte('\'')
			} else {
				b.WriteByte('\\')
				b.WriteByte(body[i])
			}
		case c == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func (s *Source) GetPages(ctx context.Context, ch model.Chapter) ([]model.Page, error) {
	req, err := sources.Request(ctx, http.MethodGet, ch.URL, nil, http.Header{"Referer": {s.base.String()}})
	if err != nil {
		return nil, err
	}
	doc, err := sources.FetchDOM(s.client, req)
	if err != nil {
		return nil, err
	}

	vars := scriptVars(doc)
	payload := &pages.ScrambledPayload{}
	for name, dst := range map[string]*string{
		varTableA: &payload.TableA,
		varTableB: &payload.TableB,
		varData:   &payload.Blob,
	} {
		lit, ok := vars[name]
		if !ok {
			return nil, fmt.Errorf("%w (%s): reader script has no %s", pages.ErrPagesUnavailable, ch.URL, name)
		}
		if *dst, err = jsString(lit); err != nil {
			return nil, fmt.Errorf("%w (%s): %s: %w", pages.ErrPagesUnavailable, ch.URL, name, err)
		}
	}

	in := pages.Input{ChapterURL: ch.URL, Referer: s.base.String(), Scrambled: payload}

	if lit, ok := vars[varHosts]; ok {
		if err := json.Unmarshal([]byte(lit), &in.Mirrors); err != nil {
			s.log.Debugf("apireader %s: bad %s: %v\n", s.site.ID, varHosts, err)
		}
	}

	// one entry per thumbnail keeps previews aligned with pages
	doc.Find(".page-thumbs img").Each(func(_ int, img *goquery.Selection) {
		src := strings.TrimSpace(img.AttrOr("data-src", ""))
		if src == "" {
			src = strings.TrimSpace(img.AttrOr("src", ""))
		}
		if src == "" {
			in.Previews = append(in.Previews, "")
			return
		}
		in.Previews = append(in.Previews, sources.ResolveURL(ch.URL, src))
	})

	return s.resolver.Resolve(ctx, in)
}
