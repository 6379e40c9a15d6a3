// Package sources defines what a manga site adapter can do and keeps the
// table of adapters available to the CLI.
package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/brogergvhs/mangakit/internal/chapters"
	"github.com/brogergvhs/mangakit/internal/model"
	"github.com/brogergvhs/mangakit/internal/pages"
)

// ErrUnsupported is returned by capabilities a source does not offer.
var ErrUnsupported = errors.New("not supported by this source")

type Logger interface {
	Debugf(string, ...any)
}

type Source interface {
	ID() string
	Name() string
	// Hosts lists the hostnames this source serves. Subdomains match too.
	Hosts() []string

	ListPage(ctx context.Context, page int, query string) ([]model.Manga, error)
	GetDetails(ctx context.Context, mangaURL string) (*model.Details, error)
	GetChapters(ctx context.Context, mangaURL string) (*chapters.Result, error)
	GetPages(ctx context.Context, ch model.Chapter) ([]model.Page, error)
	GetTags(ctx context.Context) ([]model.Tag, error)
}

// Deps are the collaborators shared by every adapter.
type Deps struct {
	Client   *http.Client
	Resolver *pages.Resolver
	Log      Logger
	AllowExt []string
}

type Registry struct {
	order []Source
	byID  map[string]Source
}

func NewRegistry(list ...Source) (*Registry, error) {
	r := &Registry{byID: make(map[string]Source)}
	for _, s := range list {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(s Source) error {
	id := strings.TrimSpace(s.ID())
	if id == "" {
		return errors.New("source id cannot be empty")
	}
	if _, dup := r.byID[id]; dup {
		return fmt.Errorf("source %q registered twice", id)
	}

	r.byID[id] = s
	r.order = append(r.order, s)
	return nil
}

func (r *Registry) Get(id string) (Source, bool) {
	s, ok := r.byID[strings.TrimSpace(id)]
	return s, ok
}

// Match finds the first registered source serving rawURL's host.
func (r *Registry) Match(rawURL string) (Source, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return nil, false
	}
	host := strings.ToLower(u.Hostname())

	for _, s := range r.order {
		for _, h := range s.Hosts() {
			h = strings.ToLower(h)
			if host == h || strings.HasSuffix(host, "."+h) {
				return s, true
			}
		}
	}
	return nil, false
}

// All returns sources in registration order.
func (r *Registry) All() []Source {
	return append([]Source(nil), r.order...)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}

func (d Deps) HTTP() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return http.DefaultClient
}

func (d Deps) Pages() *pages.Resolver {
	if d.Resolver != nil {
		return d.Resolver
	}
	return &pages.Resolver{Log: d.Log}
}

func (d Deps) Logger() Logger {
	if d.Log != nil {
		return d.Log
	}
	return nopLogger{}
}
