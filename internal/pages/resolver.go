// Package pages turns what an adapter fetched for one chapter into an
// ordered list of page URLs, decoding obfuscated payloads and picking a
// mirror host when the paths are relative.
package pages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/brogergvhs/mangakit/internal/codec"
	"github.com/brogergvhs/mangakit/internal/mirror"
	"github.com/brogergvhs/mangakit/internal/model"

	"golang.org/x/sync/errgroup"
)

// ErrPagesUnavailable wraps every chapter-level resolution failure.
var ErrPagesUnavailable = errors.New("pages unavailable for this chapter")

// AESPayload is an OpenSSL-style encrypted page list. The plaintext is a JSON
// array of strings: page URLs, or per-page tokens when Input.URLs is set.
type AESPayload struct {
	Blob     []byte
	Password string
	// Apply joins a page URL and its token. Defaults to AppendQuery.
	Apply func(pageURL, token string) string
}

// CryptoJSPayload is a CryptoJS JSON envelope ({"ct","iv","s"}) whose
// plaintext is a JSON array of page URLs, possibly itself JSON-quoted.
type CryptoJSPayload struct {
	Envelope string
	Password string
}

// ScrambledPayload is a substitution-scrambled, base64 JSON page list.
type ScrambledPayload struct {
	Blob   string
	TableA string
	TableB string
	// Extract pulls page paths out of the decoded JSON. Defaults to a plain
	// JSON array of strings.
	Extract func(raw []byte) ([]string, error)
}

// ViewerFunc fetches one viewer page and returns the image URL it shows.
type ViewerFunc func(ctx context.Context, viewerURL string) (string, error)

type Input struct {
	ChapterURL string
	Referer    string

	URLs      []string
	Previews  []string
	AES       *AESPayload
	CryptoJS  *CryptoJSPayload
	Scrambled *ScrambledPayload
	Viewers   []string

	// Mirrors are interchangeable host prefixes for relative page paths.
	Mirrors []string
}

type Resolver struct {
	Prober *mirror.Prober
	Viewer ViewerFunc
	// ViewerWorkers bounds concurrent viewer fetches.
	ViewerWorkers int
	Log           interface{ Debugf(string, ...any) }
}

// Resolve returns the chapter's pages in source order. It fails as a whole:
// either every page resolves or an error wrapping ErrPagesUnavailable is
// returned.
func (r *Resolver) Resolve(ctx context.Context, in Input) ([]model.Page, error) {
	urls, err := r.collect(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%w (%s): %w", ErrPagesUnavailable, in.ChapterURL, err)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w (%s): no pages", ErrPagesUnavailable, in.ChapterURL)
	}

	referer := in.Referer
	if referer == "" {
		referer = in.ChapterURL
	}

	for i, u := range urls {
		urls[i] = withScheme(u, in.ChapterURL)
	}

	if len(in.Mirrors) > 0 {
		urls = r.applyMirror(ctx, urls, in.Mirrors, referer)
	}

	out := make([]model.Page, len(urls))
	for i, u := range urls {
		out[i] = model.Page{
			ID:      model.StableID(u),
			URL:     u,
			Referer: referer,
		}
		if i < len(in.Previews) {
			out[i].Preview = in.Previews[i]
		}
	}

	return out, nil
}

func (r *Resolver) collect(ctx context.Context, in Input) ([]string, error) {
	urls := append([]string(nil), in.URLs...)

	if in.AES != nil {
		plain, err := codec.DecodeAESPayload(in.AES.Blob, in.AES.Password)
		if err != nil {
			return nil, err
		}

		var values []string
		if err := json.Unmarshal([]byte(plain), &values); err != nil {
			return nil, fmt.Errorf("%w: aes plaintext is not a string array: %v", codec.ErrDecode, err)
		}

		if len(urls) == 0 {
			urls = values
		} else {
			if len(values) != len(urls) {
				return nil, fmt.Errorf("%w: %d tokens for %d pages", codec.ErrDecode, len(values), len(urls))
			}
			apply := in.AES.Apply
			if apply == nil {
				apply = AppendQuery
			}
			for i := range urls {
				urls[i] = apply(urls[i], values[i])
			}
		}
	}

	if in.CryptoJS != nil {
		plain, err := codec.DecodeCryptoJSON(in.CryptoJS.Envelope, in.CryptoJS.Password)
		if err != nil {
			return nil, err
		}

		list, err := quotedStringArray([]byte(plain))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", codec.ErrDecode, err)
		}
		urls = append(urls, list...)
	}

	if in.Scrambled != nil {
		raw, err := codec.UnscrambleJSON(in.Scrambled.Blob, in.Scrambled.TableA, in.Scrambled.TableB)
		if err != nil {
			return nil, err
		}

		extract := in.Scrambled.Extract
		if extract == nil {
			extract = StringArray
		}
		paths, err := extract(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", codec.ErrDecode, err)
		}
		urls = append(urls, paths...)
	}

	if len(in.Viewers) > 0 {
		fetched, err := r.fetchViewers(ctx, in.Viewers)
		if err != nil {
			return nil, err
		}
		urls = append(urls, fetched...)
	}

	return urls, nil
}

func (r *Resolver) fetchViewers(ctx context.Context, viewers []string) ([]string, error) {
	if r.Viewer == nil {
		return nil, errors.New("viewer pages given but no viewer fetcher configured")
	}

	limit := r.ViewerWorkers
	if limit < 1 {
		limit = 4
	}

	out := make([]string, len(viewers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, v := range viewers {
		g.Go(func() error {
			u, err := r.Viewer(gctx, v)
			if err != nil {
				return fmt.Errorf("viewer page %d: %w", i+1, err)
			}
			if strings.TrimSpace(u) == "" {
				return fmt.Errorf("viewer page %d: no image", i+1)
			}
			out[i] = u
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// applyMirror probes once per chapter, using the first relative path, and
// prefixes every relative path with the host it picked. Probes carry the
// chapter's Referer.
func (r *Resolver) applyMirror(ctx context.Context, urls []string, mirrors []string, referer string) []string {
	first := -1
	for i, u := range urls {
		if !isAbsolute(u) {
			first = i
			break
		}
	}
	if first < 0 {
		return urls
	}

	prober := r.Prober
	if prober == nil {
		prober = mirror.NewProber(nil, nil, r.Log)
	}
	if referer != "" {
		prober = prober.WithHeader(http.Header{"Referer": {referer}})
	}

	resolved := prober.Resolve(ctx, urls[first], mirrors)
	host := strings.TrimSuffix(resolved, strings.TrimLeft(urls[first], "/"))
	if r.Log != nil {
		r.Log.Debugf("pages: using mirror %s\n", host)
	}

	out := make([]string, len(urls))
	for i, u := range urls {
		if isAbsolute(u) {
			out[i] = u
			continue
		}
		out[i] = mirror.Join(host, u)
	}

	return out
}

// isAbsolute reports whether raw already names its host.
func isAbsolute(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.IsAbs() || u.Host != "")
}

// withScheme gives a protocol-relative URL the chapter page's scheme, or
// https when that is unknown.
func withScheme(raw, chapterURL string) string {
	if !strings.HasPrefix(raw, "//") {
		return raw
	}
	scheme := "https"
	if base, err := url.Parse(chapterURL); err == nil && base.Scheme != "" {
		scheme = base.Scheme
	}
	return scheme + ":" + raw
}

// AppendQuery adds token to pageURL as its query string.
func AppendQuery(pageURL, token string) string {
	if token == "" {
		return pageURL
	}
	token = strings.TrimPrefix(token, "?")
	if strings.Contains(pageURL, "?") {
		return pageURL + "&" + token
	}
	return pageURL + "?" + token
}

// StringArray decodes a JSON array of strings.
func StringArray(raw []byte) ([]string, error) {
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// quotedStringArray accepts a JSON string array, or a JSON string holding one.
func quotedStringArray(raw []byte) ([]string, error) {
	if out, err := StringArray(raw); err == nil {
		return out, nil
	}

	var inner string
	if err := json.Unmarshal(raw, &inner); err != nil {
		return nil, err
	}
	return StringArray([]byte(inner))
}
