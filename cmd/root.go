package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagIgnoreConfig bool
	flagDebug        bool

	flagSource     string
	flagUserAgent  string
	flagCookie     string
	flagCookieFile string
	flagTimeout    time.Duration
	flagCheckJS    bool
)

var rootCmd = &cobra.Command{
	Use:           "mangakit",
	Short:         "Resolve manga chapters and page images from reading sites",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flagDebug, "debug", false, "enable debug logging")
	pf.BoolVar(&flagIgnoreConfig, "ignore-config", false, "ignore config and use only CLI flags")

	pf.StringVar(&flagSource, "source", "", "source id (see `mangakit sources`); detected from the URL when empty")
	pf.StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")
	pf.StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	pf.StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	pf.DurationVar(&flagTimeout, "timeout", 0, "HTTP timeout (e.g. 20s)")
	pf.BoolVar(&flagCheckJS, "also-check-js", false, "generic source: probe endpoints referenced by inline scripts")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
