package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Debug          bool     `yaml:"debug"`
	UserAgent      string   `yaml:"user_agent"`
	Cookie         string   `yaml:"cookie"`
	CookieFile     string   `yaml:"cookie_file"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Workers        int      `yaml:"workers"`
	PageWorkers    int      `yaml:"page_workers"`
	AllowExt       []string `yaml:"allow_ext"`

	DefaultSource string `yaml:"default_source"`
	DefaultURL    string `yaml:"default_url"`
	DefaultBranch string `yaml:"default_branch"`
	DefaultRange  string `yaml:"default_range"`
	DefaultList   string `yaml:"default_list"`

	SkipBroken bool `yaml:"skip_broken"`

	Sites []Site `yaml:"sites,omitempty"`
}

// Site registers one more source built on a known site engine.
type Site struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Engine  string `yaml:"engine"`
	BaseURL string `yaml:"base_url"`
}

// Options carries CLI flag values; non-zero fields override the profile.
type Options struct {
	IgnoreConfig  bool
	Debug         bool
	UserAgent     string
	Cookie        string
	CookieFile    string
	Timeout       time.Duration
	Workers       int
	PageWorkers   int
	DefaultSource string
	DefaultURL    string
	DefaultBranch string
	DefaultRange  string
	DefaultList   string
	SkipBroken    bool
}

func DefaultConfig() *Config {
	return &Config{
		TimeoutSeconds: 30,
		Workers:        2,
		PageWorkers:    4,
		AllowExt:       []string{"jpg", "jpeg", "png", "webp"},
	}
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadMerged returns the active profile with opts applied on top, and the
// path it came from (or a note when no file was used).
func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", nil
	}

	activePath, err := ActiveProfilePath()
	if errors.Is(err, ErrNoProfile) {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory, run `mangakit config init` to create a profile)", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := loadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load profile %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Debug {
		c.Debug = true
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.Timeout > 0 {
		c.TimeoutSeconds = int(o.Timeout / time.Second)
	}
	if o.Workers != 0 {
		c.Workers = o.Workers
	}
	if o.PageWorkers != 0 {
		c.PageWorkers = o.PageWorkers
	}
	if o.DefaultSource != "" {
		c.DefaultSource = o.DefaultSource
	}
	if o.DefaultURL != "" {
		c.DefaultURL = o.DefaultURL
	}
	if o.DefaultBranch != "" {
		c.DefaultBranch = o.DefaultBranch
	}
	if o.DefaultRange != "" {
		c.DefaultRange = o.DefaultRange
	}
	if o.DefaultList != "" {
		c.DefaultList = o.DefaultList
	}
	if o.SkipBroken {
		c.SkipBroken = true
	}
}

func normalizeDefaults(c *Config) {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.PageWorkers <= 0 {
		c.PageWorkers = 4
	}
}

func (c *Config) Print(w io.Writer) {
	p := func(format string, args ...any) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	p(" -timeout_seconds: %d\n", c.TimeoutSeconds)
	p(" -workers: %d\n", c.Workers)
	p(" -page_workers: %d\n", c.PageWorkers)
	if c.Debug {
		p(" -debug: %t\n", c.Debug)
	}
	if c.UserAgent != "" {
		p(" -user_agent: %s\n", c.UserAgent)
	}
	if c.CookieFile != "" {
		p(" -cookie_file: %s\n", c.CookieFile)
	}
	if c.DefaultSource != "" {
		p(" -source: %s\n", c.DefaultSource)
	}
	if c.DefaultURL != "" {
		p(" -url: %s\n", c.DefaultURL)
	}
	if c.DefaultBranch != "" {
		p(" -branch: %s\n", c.DefaultBranch)
	}
	if c.DefaultRange != "" {
		p(" -range: %s\n", c.DefaultRange)
	}
	if c.DefaultList != "" {
		p(" -list: %s\n", c.DefaultList)
	}
	if c.SkipBroken {
		p(" -skip_broken: %t\n", c.SkipBroken)
	}
	if len(c.AllowExt) > 0 {
		p(" -allow_ext: %s\n", strings.Join(c.AllowExt, ", "))
	}
	for _, s := range c.Sites {
		p(" -site: %s (%s) %s\n", s.ID, s.Engine, s.BaseURL)
	}
}
