package scrapers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/bsm/ginkgo/v2"
	. "github.com/bsm/gomega"

	"github.com/neskk/PoGo-Proxies/internal/fetcher"
	"github.com/neskk/PoGo-Proxies/internal/sessionpool"
)

func TestScrapers(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "scrapers")
}

var _ = Describe("Framework", func() {
	var srv *httptest.Server

	AfterEach(func() {
		if srv != nil {
			srv.Close()
		}
	})

	It("sends the configured User-Agent and Referer on every GET", func() {
		var seenUA, seenReferer string
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenUA = r.Header.Get("User-Agent")
			seenReferer = r.Header.Get("Referer")
			w.Write([]byte("ok"))
		}))

		fw := NewFramework("test-scraper", "test-agent/1.0", fetcher.Config{Timeout: time.Second}, nil, "", nil, false, nil)
		defer fw.Close()

		body, err := fw.Get(context.Background(), srv.URL)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(Equal("ok"))
		Expect(seenUA).To(Equal("test-agent/1.0"))
		Expect(seenReferer).To(Equal(defaultReferer))
	})

	It("posts form-encoded bodies", func() {
		var seenContentType, seenBody string
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenContentType = r.Header.Get("Content-Type")
			r.ParseForm()
			seenBody = r.Form.Get("page")
		}))

		fw := NewFramework("test-scraper", "test-agent/1.0", fetcher.Config{Timeout: time.Second}, nil, "", nil, false, nil)
		defer fw.Close()

		_, err := fw.PostForm(context.Background(), srv.URL, url.Values{"page": {"2"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(seenContentType).To(Equal("application/x-www-form-urlencoded"))
		Expect(seenBody).To(Equal("2"))
	})

	It("routes requests through the pool's exit when one is configured", func() {
		var exitHit bool
		exitSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			exitHit = true
			w.Write([]byte("via-exit"))
		}))
		defer exitSrv.Close()

		exitURL, _ := url.Parse(exitSrv.URL)
		pool := sessionpool.NewPool(1)
		pool.Set([]*url.URL{exitURL})

		target := "http://example.invalid/page"
		fw := NewFramework("test-scraper", "test-agent/1.0", fetcher.Config{Timeout: time.Second}, pool, "", nil, false, nil)
		defer fw.Close()

		body, err := fw.Get(context.Background(), target)
		Expect(err).NotTo(HaveOccurred())
		Expect(exitHit).To(BeTrue())
		Expect(string(body)).To(Equal("via-exit"))
	})

	It("validates country against the ignore list case-insensitively", func() {
		fw := NewFramework("test-scraper", "ua", fetcher.Config{}, nil, "", []string{"China", "russia"}, false, nil)
		defer fw.Close()

		Expect(fw.ValidateCountry("china")).To(BeFalse())
		Expect(fw.ValidateCountry("RUSSIA")).To(BeFalse())
		Expect(fw.ValidateCountry("portugal")).To(BeTrue())
		Expect(fw.ValidateCountry("")).To(BeTrue())
	})

	It("exports the webpage to download_path/<name>.html only in debug mode", func() {
		dir, err := os.MkdirTemp("", "pogo-proxies-scrapers")
		Expect(err).NotTo(HaveOccurred())

		fw := NewFramework("my-scraper", "ua", fetcher.Config{}, nil, dir, nil, true, nil)
		defer fw.Close()

		fw.ExportWebpage([]byte("<html></html>"))

		data, err := os.ReadFile(filepath.Join(dir, "my-scraper.html"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("<html></html>"))
	})

	It("does not write anything when debug is disabled", func() {
		dir, err := os.MkdirTemp("", "pogo-proxies-scrapers")
		Expect(err).NotTo(HaveOccurred())

		fw := NewFramework("my-scraper", "ua", fetcher.Config{}, nil, dir, nil, false, nil)
		defer fw.Close()

		fw.ExportWebpage([]byte("<html></html>"))

		_, err = os.Stat(filepath.Join(dir, "my-scraper.html"))
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("sleeps a 2-4s jitter between paginated requests", func() {
		fw := NewFramework("test-scraper", "ua", fetcher.Config{}, nil, "", nil, false, nil)
		defer fw.Close()

		var slept time.Duration
		fw.sleep = func(d time.Duration) { slept = d }

		fw.PaginationDelay()
		Expect(slept).To(BeNumerically(">=", 2*time.Second))
		Expect(slept).To(BeNumerically("<", 4*time.Second))
	})
})
