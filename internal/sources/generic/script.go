package generic

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/brogergvhs/mangakit/internal/sources"
)

var (
	reJSVar  = regexp.MustCompile(`(?m)(?:var|let|const)\s+([A-Za-z0-9_]+)\s*=\s*["']?([\w\-\/\.]+)["']?;`)
	reJSPath = regexp.MustCompile(`["'](\/[A-Za-z0-9\/\-\._]+)["']`)
	reJSCall = regexp.MustCompile(`(?:fetch|axios|post|get)\s*\(\s*["']([^"']+)["']`)
)

func looksLikeHTML(s string) bool {
	for _, tag := range []string{"<img", "<a", "<div", "<picture", "<source"} {
		if strings.Contains(s, tag) {
			return true
		}
	}
	return false
}

// scriptHints is what a regex pass over inline scripts can tell about
// endpoints that load pages later.
type scriptHints struct {
	Vars  map[string]string
	Paths []string
	Calls []string
}

func readScripts(js string) scriptHints {
	h := scriptHints{Vars: map[string]string{}}

	for _, m := range reJSVar.FindAllStringSubmatch(js, -1) {
		h.Vars[m[1]] = m[2]
	}
	for _, m := range reJSPath.FindAllStringSubmatch(js, -1) {
		h.Paths = append(h.Paths, m[1])
	}
	for _, m := range reJSCall.FindAllStringSubmatch(js, -1) {
		h.Calls = append(h.Calls, m[1])
	}

	return h
}

// endpoints guesses chapter endpoints: chapter-ish directory paths joined
// with id-like variables, plus every literal fetch target.
func (h scriptHints) endpoints() []string {
	var out []string
	seen := map[string]bool{}
	push := func(u string) {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}

	for _, base := range h.Paths {
		if !strings.Contains(base, "chap") || !strings.HasSuffix(base, "/") {
			continue
		}
		for k, v := range h.Vars {
			if strings.Contains(strings.ToLower(k), "id") {
				push(base + v)
			}
		}
	}
	for _, c := range h.Calls {
		push(c)
	}

	return out
}

// probeEndpoints calls each guessed endpoint (POST, then GET) and scans any
// JSON answer for page images. Failures are silent.
func (s *Source) probeEndpoints(ctx context.Context, chapterURL string, h scriptHints, col *imageCollector) {
	candidates := h.endpoints()
	s.log.Debugf("dynamic endpoint candidates: %v\n", candidates)

	for _, p := range candidates {
		target := sources.ResolveURL(chapterURL, p)

		body, ok := s.xhr(ctx, http.MethodPost, target)
		if !ok {
			body, ok = s.xhr(ctx, http.MethodGet, target)
		}
		if !ok || !strings.HasPrefix(strings.TrimSpace(body), "{") {
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal([]byte(body), &obj); err == nil {
			col.scanState(obj, chapterURL)
		}
	}
}

func (s *Source) xhr(ctx context.Context, method, target string) (string, bool) {
	req, err := sources.Request(ctx, method, target, nil, http.Header{"X-Requested-With": {"XMLHttpRequest"}})
	if err != nil {
		return "", false
	}

	body, err := sources.FetchBody(s.client, req)
	if err != nil {
		s.log.Debugf("probe %s %s: %v\n", method, target, err)
		return "", false
	}
	return body, true
}
