package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/mangakit/internal/util"
)

const (
	fetchAttempts = 3
	fetchBackoff  = 500 * time.Millisecond
)

// Request builds a request with optional extra headers (e.g. Referer).
func Request(ctx context.Context, method, target string, body io.Reader, header http.Header) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = append([]string(nil), v...)
	}
	return req, nil
}

func do(c *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := util.DoWithRetry(c, req, fetchAttempts, fetchBackoff)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("GET %s: HTTP %d", req.URL, resp.StatusCode)
	}
	return resp, nil
}

// FetchBody returns the response body of a successful request.
func FetchBody(c *http.Client, req *http.Request) (string, error) {
	resp, err := do(c, req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	return string(data), err
}

func FetchDOM(c *http.Client, req *http.Request) (*goquery.Document, error) {
	body, err := FetchBody(c, req)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

func FetchJSON(c *http.Client, req *http.Request, v any) error {
	resp, err := do(c, req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL, err)
	}
	return nil
}

// ResolveURL resolves href against base, keeping href if either is invalid.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return base
	}

	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := b.Parse(href)
	if err != nil {
		return href
	}
	return ref.String()
}
