// Copyright 2026 The Termserve Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Termserve is a prefix-completion (autocomplete) daemon.

It serves ranked completions for a prefix out of an immutable trie snapshot
whose every node carries a precomputed top-K shortlist, so a query costs a
prefix walk plus a bounded copy regardless of how popular the prefix is.
Snapshots are built offline from a term/score stream, persisted as a
checksummed binary blob, and swapped in atomically under live traffic.

# Usage

Start the daemon with default settings:

	termserve

Use a custom terms file and snapshot location, with debug logging:

	termserve -terms /data/terms.tsv -snap /data/terms.snap -d

The terms file is one record per line, term and score separated by a tab:

	cat	100
	case	90
	car	80

# Configuration

Runtime configuration lives in a TOML file that is created with defaults on
first start:

	[server]
	max_limit = 10
	max_prefix = 256
	metrics_addr = ""

	[build]
	top_k = 10
	max_term_len = 256
	max_error_rate = 0.05
	interval_secs = 300
	terms_path = "data/terms.tsv"

	[snapshot]
	path = "data/terms.snap"
	watch = true

# IPC Protocol

The daemon speaks msgpack over stdin/stdout. A completion request:

	{"id": "req1", "cmd": "complete", "p": "ca", "l": 5}

is answered with ranked completions and timing:

	{"id": "req1", "r": [{"t": "cat", "s": 100}], "c": 1, "v": 3, "t": 38}

# Serving model

The daemon always serves the last successfully installed snapshot. Build
cycles run in the background on the configured interval; a failed build or a
corrupt snapshot file is logged and never interrupts serving. Before the
first snapshot is available the daemon answers completion requests with a
503-style not-ready error. When snapshot.watch is enabled, snapshots written
by an external builder (see snapgen) are hot-loaded on publish.

Setting server.metrics_addr (for example ":9100") exposes Prometheus metrics
on /metrics.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/termserve/termserve/internal/logger"
	"github.com/termserve/termserve/internal/metrics"
	"github.com/termserve/termserve/internal/utils"
	"github.com/termserve/termserve/pkg/config"
	"github.com/termserve/termserve/pkg/rebuild"
	"github.com/termserve/termserve/pkg/server"
	"github.com/termserve/termserve/pkg/suggest"
)

const (
	Version = "1.2.0"
	AppName = "termserve"
)

func main() {
	showVersion := flag.Bool("version", false, "Show current version")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	configPath := flag.String("config", "", "Path to config.toml (default: user config dir)")
	termsPath := flag.String("terms", "", "Terms file override (term<TAB>score per line)")
	snapPath := flag.String("snap", "", "Snapshot file override")
	metricsAddr := flag.String("metrics", "", "Prometheus listen address override (e.g. :9100)")
	noBuild := flag.Bool("no-build", false, "Disable the background build loop (serve snapshots only)")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}
	// Responses own stdout; everything logged goes to stderr.
	log.SetOutput(os.Stderr)

	cfg := loadConfig(*configPath)
	if *termsPath != "" {
		cfg.Build.TermsPath = *termsPath
	}
	if *snapPath != "" {
		cfg.Snapshot.Path = *snapPath
	}
	if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	handle := suggest.NewHandle()

	runner := rebuild.NewRunner(handle, cfg.Build, cfg.Snapshot.Path, m)
	runner.Bootstrap()
	showStartupInfo(cfg)

	g, ctx := errgroup.WithContext(ctx)

	srv := server.NewStdioServer(handle, cfg.Server, m)
	g.Go(func() error { return srv.Start(ctx) })

	if !*noBuild {
		g.Go(func() error { return runner.Run(ctx) })
	}
	if cfg.Snapshot.Watch {
		watcher := rebuild.NewWatcher(cfg.Snapshot.Path, handle, m)
		g.Go(func() error { return watcher.Run(ctx) })
	}
	if cfg.Server.MetricsAddr != "" {
		g.Go(func() error { return serveMetrics(ctx, cfg.Server.MetricsAddr, reg) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("termserve exited: %v", err)
	}
}

// loadConfig resolves the config file (custom path first, then the default
// location) and falls back to built-in defaults on any failure.
func loadConfig(custom string) *config.Config {
	path := custom
	if path == "" {
		var err error
		path, err = config.GetDefaultConfigPath()
		if err != nil {
			log.Warnf("Failed to determine config path: %v. Using built-in defaults...", err)
			return config.DefaultConfig()
		}
	}
	cfg, err := config.InitConfig(path)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", path, err)
		return config.DefaultConfig()
	}
	log.Debugf("Using config file: %s", path)
	return cfg
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	log.Debugf("Metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// showStartupInfo displays basic info about the init process.
func showStartupInfo(cfg *config.Config) {
	lg := logger.NewWithConfig(AppName, log.InfoLevel, false, false, log.TextFormatter)
	lg.Infof("Version: %s", Version)
	lg.Infof("Process ID: [ %d ]", os.Getpid())
	lg.Infof("terms: ( %s )", utils.GetAbsolutePath(cfg.Build.TermsPath))
	lg.Infof("snapshot: ( %s )", utils.GetAbsolutePath(cfg.Snapshot.Path))
	lg.Info("status: ready")
}

func printVersion() {
	lg := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
	})
	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	lg.SetStyles(styles)

	lg.Print("")
	lg.Print("[ termserve ] ranked prefix completions from immutable snapshots")
	lg.Print("", "version", Version)
	lg.Print("")
	lg.Print("use -h or --help to see available options")
}
