// Package orchestrator wires the scraper refresh cadence, the test
// engine's re-scan cadence, and periodic output regeneration into the
// three independent schedules spec.md §1 describes, plus the startup and
// periodic self-test gate from §4.5/§7.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/neskk/PoGo-Proxies/internal/config"
	"github.com/neskk/PoGo-Proxies/internal/logx"
	"github.com/neskk/PoGo-Proxies/internal/model"
	"github.com/neskk/PoGo-Proxies/internal/output"
	"github.com/neskk/PoGo-Proxies/internal/proxyparser"
	"github.com/neskk/PoGo-Proxies/internal/tester"
)

// maxSelfTestFailures is how many consecutive self-test failures the
// orchestrator tolerates before giving up, per spec.md §7.
const maxSelfTestFailures = 2

// Store is the slice of store.Store the orchestrator needs beyond what
// tester.Manager already uses: InsertNew for scrape results and GetValid
// for output regeneration.
type Store interface {
	InsertNew(ctx context.Context, batch []model.ParsedProxy) (inserted int, chunkErrs []error)
	GetValid(ctx context.Context, limit int, requireAnonymous bool, age time.Duration, protocol *model.Protocol) ([]model.Proxy, error)
}

// Scraper produces raw, unparsed proxy strings from one source.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context) ([]string, error)
}

// Orchestrator owns the three cadences and the manager/worker pool.
type Orchestrator struct {
	cfg      *config.AppConfig
	store    Store
	manager  *tester.Manager
	scrapers []Scraper
	log      logx.Logger

	cron *cron.Cron

	consecutiveSelfTestFailures int
	cancel                      context.CancelFunc
}

// New builds an Orchestrator. manager must already be constructed with
// its own Store collaborator; StartWorkers is the caller's
// responsibility so it can supply the CountryLookup.
func New(cfg *config.AppConfig, store Store, manager *tester.Manager, scrapers []Scraper, log logx.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		manager:  manager,
		scrapers: scrapers,
		log:      log,
		cron:     cron.New(),
	}
}

// Run performs the startup self-test, then schedules all three cadences
// and blocks until ctx is cancelled or a fatal self-test failure streak
// trips. It returns non-nil only on a self-test-driven shutdown.
func (o *Orchestrator) Run(ctx context.Context, testerCfg tester.Config) error {
	if err := tester.SelfTest(ctx, testerCfg); err != nil {
		return fmt.Errorf("orchestrator: startup self-test failed: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	if _, err := o.cron.AddFunc(everyMinutes(o.cfg.ScrapeIntervalMinutes), func() { o.runScrape(ctx) }); err != nil {
		return fmt.Errorf("orchestrator: scheduling scrape cadence: %w", err)
	}
	if _, err := o.cron.AddFunc(everyMinutes(o.cfg.OutputIntervalMinutes), func() { o.regenerateOutputs(ctx) }); err != nil {
		return fmt.Errorf("orchestrator: scheduling output cadence: %w", err)
	}
	if _, err := o.cron.AddFunc(everyHours(o.cfg.FailCleanIntervalHours), func() { o.manager.Sweep(ctx) }); err != nil {
		return fmt.Errorf("orchestrator: scheduling failure sweep cadence: %w", err)
	}
	if _, err := o.cron.AddFunc(everyMinutes(o.cfg.ScanIntervalMinutes), func() { o.runLivenessCheck(ctx, testerCfg) }); err != nil {
		return fmt.Errorf("orchestrator: scheduling liveness cadence: %w", err)
	}

	o.cron.Start()
	defer o.cron.Stop()

	go o.manager.Run(ctx)

	<-ctx.Done()
	return nil
}

func everyMinutes(n int) string {
	if n <= 0 {
		n = 60
	}
	return fmt.Sprintf("@every %dm", n)
}

func everyHours(n int) string {
	if n <= 0 {
		n = 6
	}
	return fmt.Sprintf("@every %dh", n)
}

// runScrape pulls raw proxy strings from every scraper, parses and
// dedups them, and hands the batch to the store. A scraper that errors
// (ScrapeParseError/UnpackingError territory) is logged and skipped; the
// orchestrator continues with the remaining sources.
func (o *Orchestrator) runScrape(ctx context.Context) {
	var lines []string

	for _, s := range o.scrapers {
		raw, err := s.Scrape(ctx)
		if err != nil {
			o.log.Errorf("orchestrator: scraper %s failed: %v", s.Name(), err)
			continue
		}
		lines = append(lines, raw...)
		o.log.Infof("orchestrator: scraper %s yielded %d candidates", s.Name(), len(raw))
	}

	batch := proxyparser.ParseList(lines, model.HTTP, true)

	if len(batch) == 0 {
		return
	}

	inserted, errs := o.store.InsertNew(ctx, batch)
	for _, err := range errs {
		o.log.Errorf("orchestrator: insert_new: %v", err)
	}
	o.log.Infof("orchestrator: inserted %d new proxies out of %d scraped", inserted, len(batch))
}

// regenerateOutputs reads the currently valid proxies and rewrites every
// configured output file.
func (o *Orchestrator) regenerateOutputs(ctx context.Context) {
	proxies, err := o.store.GetValid(ctx, 0, false, o.cfg.ScanInterval(), nil)
	if err != nil {
		o.log.Errorf("orchestrator: get_valid: %v", err)
		return
	}

	if o.cfg.WorkingProxiesPath != "" {
		if err := writeFile(o.cfg.WorkingProxiesPath, func(f *os.File) error {
			return output.WritePlain(f, proxies, o.cfg.StripProtocol)
		}); err != nil {
			o.log.Errorf("orchestrator: writing %s: %v", o.cfg.WorkingProxiesPath, err)
		}
	}
	if o.cfg.ProxyChainsPath != "" {
		if err := writeFile(o.cfg.ProxyChainsPath, func(f *os.File) error {
			return output.WriteProxyChains(f, proxies)
		}); err != nil {
			o.log.Errorf("orchestrator: writing %s: %v", o.cfg.ProxyChainsPath, err)
		}
	}
	if o.cfg.KinanCityPath != "" {
		if err := writeFile(o.cfg.KinanCityPath, func(f *os.File) error {
			return output.WriteKinanCity(f, proxies)
		}); err != nil {
			o.log.Errorf("orchestrator: writing %s: %v", o.cfg.KinanCityPath, err)
		}
	}

	o.log.Infof("orchestrator: regenerated outputs for %d valid proxies", len(proxies))
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f)
}

// runLivenessCheck re-runs the self-test battery against the live
// targets; three consecutive failures (two tolerated, the third fatal)
// cancel the orchestrator's context, matching §7's tolerance rule.
func (o *Orchestrator) runLivenessCheck(ctx context.Context, testerCfg tester.Config) {
	if err := tester.SelfTest(ctx, testerCfg); err != nil {
		o.consecutiveSelfTestFailures++
		o.log.Warnf("orchestrator: self-test failed (%d consecutive): %v", o.consecutiveSelfTestFailures, err)
		if o.consecutiveSelfTestFailures > maxSelfTestFailures {
			o.log.Errorf("orchestrator: exceeded self-test failure tolerance, shutting down")
			if o.cancel != nil {
				o.cancel()
			}
		}
		return
	}
	o.consecutiveSelfTestFailures = 0
}
