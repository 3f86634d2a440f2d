// Package scrapers implements the concrete proxy-list scrapers (C3) over a
// shared Framework: a configured fetcher session, an optional pool of
// upstream exit proxies to spread the scrape itself across, a per-site
// country filter, and a debug-mode HTML export hook.
package scrapers

import (
	"context"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/neskk/PoGo-Proxies/internal/fetcher"
	"github.com/neskk/PoGo-Proxies/internal/logx"
	"github.com/neskk/PoGo-Proxies/internal/sessionpool"
)

// defaultReferer matches the original scraper's fixed Referer header, used
// by every site regardless of its own domain.
const defaultReferer = "http://google.com"

// Framework is the shared collaborator every concrete scraper embeds. It
// owns the HTTP session(s), the ignore-country filter, and the debug export
// hook; concrete scrapers only implement page parsing.
type Framework struct {
	Name         string
	UserAgent    string
	Referer      string
	DownloadPath string
	Debug        bool

	ignoreCountry map[string]bool
	log           logx.Logger

	cfg     fetcher.Config
	session *fetcher.Session
	pool    *sessionpool.Pool
	sleep   func(time.Duration)
}

// NewFramework builds a Framework. pool may be nil, meaning every request
// goes out directly through cfg's session rather than through a balanced set
// of upstream exits.
func NewFramework(name, userAgent string, cfg fetcher.Config, pool *sessionpool.Pool, downloadPath string, ignoreCountries []string, debug bool, log logx.Logger) *Framework {
	ignore := make(map[string]bool, len(ignoreCountries))
	for _, c := range ignoreCountries {
		ignore[strings.ToLower(strings.TrimSpace(c))] = true
	}

	return &Framework{
		Name:          name,
		UserAgent:     userAgent,
		Referer:       defaultReferer,
		DownloadPath:  downloadPath,
		Debug:         debug,
		ignoreCountry: ignore,
		log:           log,
		cfg:           cfg,
		session:       fetcher.NewSession(cfg),
		pool:          pool,
		sleep:         time.Sleep,
	}
}

// Close releases the framework's direct session. Sessions opened against
// pool exits close themselves after each request.
func (f *Framework) Close() {
	f.session.Close()
}

// Get downloads target with the site's User-Agent/Referer headers.
func (f *Framework) Get(ctx context.Context, target string) ([]byte, error) {
	return f.do(ctx, http.MethodGet, target, nil, nil)
}

// PostForm submits form as a standard urlencoded POST body.
func (f *Framework) PostForm(ctx context.Context, target string, form url.Values) ([]byte, error) {
	extra := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	return f.do(ctx, http.MethodPost, target, []byte(form.Encode()), extra)
}

// Download fetches target's raw bytes, for archives the parser unzips in
// memory rather than spooling to disk.
func (f *Framework) Download(ctx context.Context, target string) ([]byte, error) {
	return f.Get(ctx, target)
}

func (f *Framework) do(ctx context.Context, method, target string, body []byte, extraHeaders map[string]string) ([]byte, error) {
	headers := map[string]string{
		"User-Agent": f.UserAgent,
		"Referer":    f.Referer,
	}
	for k, v := range extraHeaders {
		headers[k] = v
	}

	call := func(sess *fetcher.Session) ([]byte, error) {
		var resp *http.Response
		var data []byte
		var err error
		if method == http.MethodPost {
			resp, data, err = sess.Post(ctx, target, body, headers)
		} else {
			resp, data, err = sess.Get(ctx, target, headers)
		}
		_ = resp
		return data, err
	}

	if f.pool != nil && f.pool.Len() > 0 {
		var data []byte
		var fetchErr error
		ok, _ := f.pool.Do(ctx, func(ctx context.Context, exitURL *url.URL) error {
			cfg := f.cfg
			cfg.Proxy = exitURL
			sess := fetcher.NewSession(cfg)
			defer sess.Close()
			d, err := call(sess)
			data, fetchErr = d, err
			return err
		})
		if ok {
			return data, fetchErr
		}
		// Pool configured but currently exhausted: fall back to the
		// framework's own direct session rather than stalling the scrape.
	}

	return call(f.session)
}

// ValidateCountry reports whether country is allowed through the ignore
// list (case-insensitive, empty country never filtered).
func (f *Framework) ValidateCountry(country string) bool {
	if country == "" {
		return true
	}
	return !f.ignoreCountry[strings.ToLower(strings.TrimSpace(country))]
}

// PaginationDelay sleeps a uniformly random 2.0-4.0s, matching the
// original's jitter between paginated requests.
func (f *Framework) PaginationDelay() {
	f.sleep(randomBetween(2*time.Second, 4*time.Second))
}

func randomBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// ExportWebpage is what every extractor calls on a zero-result parse: it
// logs that at error level and, when debug is enabled, persists html under
// download_path/<name>.html.
func (f *Framework) ExportWebpage(html []byte) {
	f.logf("scrapers: %s: no proxies found", f.Name)
	if !f.Debug || f.DownloadPath == "" {
		return
	}
	if err := os.MkdirAll(f.DownloadPath, 0o755); err != nil {
		f.logf("scrapers: %s: export webpage mkdir: %v", f.Name, err)
		return
	}
	path := filepath.Join(f.DownloadPath, f.Name+".html")
	if err := os.WriteFile(path, html, 0o644); err != nil {
		f.logf("scrapers: %s: export webpage write: %v", f.Name, err)
	}
}

func (f *Framework) logf(format string, args ...any) {
	if f.log != nil {
		f.log.Errorf(format, args...)
	}
}
