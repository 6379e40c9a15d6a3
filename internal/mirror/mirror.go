// Package mirror picks a reachable host out of a set of interchangeable
// mirrors serving the same path.
package mirror

import (
	"context"
	"net/http"
	"strings"
)

// Set is a group of host prefixes that serve identical content under Path.
type Set struct {
	Hosts []string
	Path  string
}

type Prober struct {
	client *http.Client
	header http.Header
	log    interface{ Debugf(string, ...any) }
}

// NewProber builds a Prober. header is copied onto every probe request and
// may be nil; log may be nil.
func NewProber(c *http.Client, header http.Header, log interface{ Debugf(string, ...any) }) *Prober {
	if c == nil {
		c = http.DefaultClient
	}
	return &Prober{client: c, header: header, log: log}
}

// Join puts a host prefix and a path suffix together with exactly one slash.
func Join(host, path string) string {
	if host == "" {
		return path
	}
	if path == "" {
		return host
	}
	return strings.TrimRight(host, "/") + "/" + strings.TrimLeft(path, "/")
}

// WithHeader returns a copy of p whose probes also carry h. Values in h
// replace the ones p already sends under the same key.
func (p *Prober) WithHeader(h http.Header) *Prober {
	merged := p.header.Clone()
	if merged == nil {
		merged = http.Header{}
	}
	for k, vals := range h {
		merged[http.CanonicalHeaderKey(k)] = append([]string(nil), vals...)
	}
	return &Prober{client: p.client, header: merged, log: p.log}
}

func (p *Prober) ResolveSet(ctx context.Context, s Set) string {
	return p.Resolve(ctx, s.Path, s.Hosts)
}

// Resolve sends HEAD requests to each host in order and returns the first
// URL that answers 2xx. When none do, the first candidate is returned: a
// failed probe does not prove the resource is missing. It never fails.
func (p *Prober) Resolve(ctx context.Context, path string, hosts []string) string {
	if len(hosts) == 0 {
		return path
	}

	first := Join(hosts[0], path)
	for _, host := range hosts {
		if ctx.Err() != nil {
			break
		}

		candidate := Join(host, path)
		if p.probe(ctx, candidate) {
			return candidate
		}
	}

	p.debugf("mirror: no candidate for %s answered, falling back to %s\n", path, first)
	return first
}

func (p *Prober) probe(ctx context.Context, target string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		p.debugf("mirror: bad candidate %s: %v\n", target, err)
		return false
	}
	for k, vals := range p.header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.debugf("mirror: HEAD %s: %v\n", target, err)
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	p.debugf("mirror: HEAD %s -> %d\n", target, resp.StatusCode)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (p *Prober) debugf(format string, args ...any) {
	if p.log != nil {
		p.log.Debugf(format, args...)
	}
}
