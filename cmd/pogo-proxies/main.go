// Command pogo-proxies runs the continuous scrape/test/publish service:
// cobra/viper load the operator's configuration, then the scraper
// framework, test engine and dashboard are wired together and handed to
// the orchestrator for its three independent cadences.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/neskk/PoGo-Proxies/internal/config"
	"github.com/neskk/PoGo-Proxies/internal/dashboard"
	"github.com/neskk/PoGo-Proxies/internal/fetcher"
	"github.com/neskk/PoGo-Proxies/internal/geoip"
	"github.com/neskk/PoGo-Proxies/internal/logx"
	"github.com/neskk/PoGo-Proxies/internal/orchestrator"
	"github.com/neskk/PoGo-Proxies/internal/scrapers"
	"github.com/neskk/PoGo-Proxies/internal/sessionpool"
	"github.com/neskk/PoGo-Proxies/internal/store"
	"github.com/neskk/PoGo-Proxies/internal/tester"
)

// Exit codes per spec.md §6: 0 on clean shutdown, non-zero on
// configuration error, DB init failure, schema version too new, or
// startup self-test failure.
const (
	exitOK = iota
	exitConfigError
	exitStoreError
	exitSchemaTooNew
	exitSelfTestError
)

func main() {
	os.Exit(run())
}

func run() int {
	v := viper.New()
	code := exitOK

	root := &cobra.Command{
		Use:           "pogo-proxies",
		Short:         "Continuous open-proxy acquisition, validation and republishing service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code = serve(v)
			if code != exitOK {
				return fmt.Errorf("exit code %d", code)
			}
			return nil
		},
	}
	config.BindFlags(root, v)

	if err := root.Execute(); err != nil && code == exitOK {
		fmt.Fprintln(os.Stderr, err)
		code = exitConfigError
	}
	return code
}

// serve loads the configuration and runs the service until its context
// is cancelled by a signal or the orchestrator's self-test tolerance
// trips. It returns the process exit code.
func serve(v *viper.Viper) int {
	loader := config.NewViperLoader(v)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfigError
	}

	log, err := logx.NewZapLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfigError
	}
	defer log.Sync()

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		if errors.Is(err, store.ErrSchemaTooNew) {
			log.Errorf("main: database schema is newer than this build understands: %v", err)
			return exitSchemaTooNew
		}
		log.Errorf("main: opening database: %v", err)
		return exitStoreError
	}

	var lookup tester.CountryLookup
	if cfg.GeoIPPath != "" {
		geo, err := geoip.Open(cfg.GeoIPPath)
		if err != nil {
			log.Errorf("main: opening geoip database: %v", err)
			return exitConfigError
		}
		defer geo.Close()
		lookup = geo
	}

	retryPolicy := fetcher.Config{
		Retries:       cfg.Retries,
		BackoffFactor: cfg.BackoffFactor,
		Timeout:       cfg.Timeout(),
	}

	pool, err := buildScraperPool(cfg.ScraperProxies)
	if err != nil {
		log.Errorf("main: parsing scraper_proxies: %v", err)
		return exitConfigError
	}

	scraperList := buildScrapers(cfg, retryPolicy, pool, log)

	testerCfg := tester.Config{
		JudgeURL:        cfg.JudgeURL,
		LocalIP:         cfg.LocalIP,
		UserAgent:       cfg.UserAgent,
		PogoVersion:     cfg.PogoVersion,
		NianticURL:      cfg.NianticURL,
		PTCLoginURL:     cfg.PTCLoginURL,
		PTCSignupURL:    cfg.PTCSignupURL,
		PTCSignupTitle:  cfg.PTCSignupTitle,
		MaxConcurrency:  cfg.MaxConcurrency,
		ScanInterval:    cfg.ScanInterval(),
		NoticeInterval:  cfg.NoticeInterval(),
		RetryPolicy:     retryPolicy,
		DownloadPath:    cfg.DownloadPath,
		Debug:           cfg.Debug,
		SkipAnonymity:   cfg.SkipAnonymity,
		IgnoreCountries: cfg.IgnoreCountrySet(),
	}

	hub := dashboard.NewHub()
	hubDone := make(chan struct{})
	go hub.Run(hubDone)
	go func() {
		if err := hub.ListenAndServe(cfg.DashboardPort); err != nil {
			log.Errorf("main: dashboard server: %v", err)
		}
	}()
	defer close(hubDone)

	manager := tester.NewManager(testerCfg, st, log, hub)
	orch := orchestrator.New(cfg, st, manager, scraperList, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager.StartWorkers(ctx, cfg.MaxConcurrency, lookup)

	if err := orch.Run(ctx, testerCfg); err != nil {
		log.Errorf("main: %v", err)
		return exitSelfTestError
	}

	return exitOK
}

// buildScraperPool turns the operator's upstream proxy URLs (used to
// route the scrape requests themselves, distinct from the proxies under
// test) into a sessionpool.Pool, or nil when none were configured.
func buildScraperPool(raw []string) (*sessionpool.Pool, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	urls := make([]*url.URL, 0, len(raw))
	for _, s := range raw {
		u, err := url.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, err)
		}
		urls = append(urls, u)
	}

	pool := sessionpool.NewPool(len(urls))
	pool.Set(urls)
	return pool, nil
}

// buildScrapers constructs every registered scrape source: ten site
// scrapers (twelve Framework instances, counting spys.one's
// HTTP/HTTPS/SOCKS variants), plus an operator-supplied proxy file when
// configured.
func buildScrapers(cfg *config.AppConfig, retryPolicy fetcher.Config, pool *sessionpool.Pool, log logx.Logger) []orchestrator.Scraper {
	fw := func(name string) *scrapers.Framework {
		return scrapers.NewFramework(name, cfg.UserAgent, retryPolicy, pool, cfg.DownloadPath, cfg.IgnoreCountries, cfg.Debug, log)
	}

	list := []orchestrator.Scraper{
		scrapers.NewFreeProxyList(fw("free-proxy-list-net")),
		scrapers.NewSocksProxy(fw("socks-proxy-net")),
		scrapers.NewIdcloak(fw("idcloak-com")),
		scrapers.NewProxyNova(fw("proxynova-com")),
		scrapers.NewProxyServerList24(fw("proxyserverlist24-top")),
		scrapers.NewSocksProxyList24(fw("socksproxylist24-top")),
		scrapers.NewVipsocks24(fw("vipsocks24-net")),
		scrapers.NewSockslist(fw("sockslist-net")),
		scrapers.NewPremproxy(fw("premproxy-com")),
		scrapers.NewSpysHTTP(fw("spys-one-http")),
		scrapers.NewSpysHTTPS(fw("spys-one-https")),
		scrapers.NewSpysSOCKS(fw("spys-one-socks")),
	}

	if cfg.ProxyFilePath != "" {
		list = append(list, scrapers.NewFileReader(cfg.ProxyFilePath))
	}

	return list
}
