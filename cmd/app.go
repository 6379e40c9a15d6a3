package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/brogergvhs/mangakit/internal/config"
	"github.com/brogergvhs/mangakit/internal/mirror"
	"github.com/brogergvhs/mangakit/internal/pages"
	"github.com/brogergvhs/mangakit/internal/sources"
	"github.com/brogergvhs/mangakit/internal/sources/apireader"
	"github.com/brogergvhs/mangakit/internal/sources/generic"
	"github.com/brogergvhs/mangakit/internal/sources/madara"
	"github.com/brogergvhs/mangakit/internal/ui"
	"github.com/brogergvhs/mangakit/internal/util"
)

// app is everything a command needs once config has been resolved.
type app struct {
	cfg      *config.Config
	cfgPath  string
	log      *ui.Logger
	deps     sources.Deps
	registry *sources.Registry
}

func newApp(opts config.Options) (*app, error) {
	opts.IgnoreConfig = flagIgnoreConfig
	opts.Debug = flagDebug
	opts.UserAgent = flagUserAgent
	opts.Cookie = flagCookie
	opts.CookieFile = flagCookieFile
	opts.Timeout = flagTimeout

	cfg, used, err := config.LoadMerged(opts)
	if err != nil {
		return nil, err
	}

	log := ui.NewLogger(cfg.Debug)
	log.Debugf("config: %s\n", used)

	client, err := util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:     cfg.Timeout(),
		UserAgent:   util.PickUserAgent(cfg.UserAgent),
		Cookie:      cfg.Cookie,
		CookieFile:  cfg.CookieFile,
		DebugLogger: log,
	})
	if err != nil {
		return nil, err
	}

	deps := sources.Deps{
		Client: client,
		Log:    log,
		Resolver: &pages.Resolver{
			Prober:        mirror.NewProber(client, nil, log),
			ViewerWorkers: cfg.PageWorkers,
			Log:           log,
		},
		AllowExt: cfg.AllowExt,
	}

	reg, err := buildRegistry(cfg, deps)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, cfgPath: used, log: log, deps: deps, registry: reg}, nil
}

// buildRegistry registers the generic source followed by every configured
// site, in config order.
func buildRegistry(cfg *config.Config, deps sources.Deps) (*sources.Registry, error) {
	reg, err := sources.NewRegistry(generic.New(deps, flagCheckJS))
	if err != nil {
		return nil, err
	}

	for _, site := range cfg.Sites {
		var src sources.Source
		switch strings.ToLower(site.Engine) {
		case madara.Engine:
			src, err = madara.New(deps, madara.Site{ID: site.ID, Name: site.Name, BaseURL: site.BaseURL})
		case apireader.Engine:
			src, err = apireader.New(deps, apireader.Site{ID: site.ID, Name: site.Name, BaseURL: site.BaseURL})
		default:
			err = fmt.Errorf("site %q: unknown engine %q", site.ID, site.Engine)
		}
		if err != nil {
			return nil, err
		}
		if err := reg.Register(src); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

func (a *app) sourceByID(id string) (sources.Source, error) {
	s, ok := a.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown source %q (see `mangakit sources`)", id)
	}
	return s, nil
}

// source picks the adapter for rawURL: --source, then a host match, then
// default_source, then the generic source.
func (a *app) source(rawURL string) (sources.Source, error) {
	if flagSource != "" {
		return a.sourceByID(flagSource)
	}

	if s, ok := a.registry.Match(rawURL); ok {
		a.log.Debugf("source %s matched %s\n", s.ID(), rawURL)
		return s, nil
	}

	if a.cfg.DefaultSource != "" {
		return a.sourceByID(a.cfg.DefaultSource)
	}
	return a.sourceByID(generic.ID)
}

// namedSource is for commands that work on a whole site rather than a URL.
func (a *app) namedSource() (sources.Source, error) {
	id := flagSource
	if id == "" {
		id = a.cfg.DefaultSource
	}
	if id == "" {
		return nil, fmt.Errorf("missing --source and no default_source in config")
	}
	return a.sourceByID(id)
}

// signalContext is cancelled on the first interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
