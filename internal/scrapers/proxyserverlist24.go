package scrapers

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const proxyServerList24URL = "http://www.proxyserverlist24.top/"

// ProxyServerList24 scrapes proxyserverlist24.top's index-and-post layout:
// the landing page links to individual posts, each holding its proxylist
// inside a `<pre class="alt2" dir="ltr">` block's third <span>.
type ProxyServerList24 struct {
	*Framework
}

// NewProxyServerList24 builds the proxyserverlist24.top scraper over fw.
func NewProxyServerList24(fw *Framework) *ProxyServerList24 {
	return &ProxyServerList24{Framework: fw}
}

func (s *ProxyServerList24) Name() string { return s.Framework.Name }

func (s *ProxyServerList24) Scrape(ctx context.Context) ([]string, error) {
	indexBody, err := s.Get(ctx, proxyServerList24URL)
	if err != nil {
		return nil, fmt.Errorf("proxyserverlist24: %w", err)
	}

	indexDoc, err := goquery.NewDocumentFromReader(bytes.NewReader(indexBody))
	if err != nil {
		return nil, fmt.Errorf("proxyserverlist24: parsing index html: %w", err)
	}

	links := postLinks(indexDoc, "Proxy Server")
	if len(links) == 0 {
		s.ExportWebpage(indexBody)
		return nil, nil
	}

	var proxies []string
	for _, target := range links {
		body, err := s.Get(ctx, target)
		if err != nil {
			return proxies, fmt.Errorf("proxyserverlist24: %s: %w", target, err)
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return proxies, fmt.Errorf("proxyserverlist24: parsing html: %w", err)
		}

		found := s.parsePost(doc)
		if len(found) == 0 {
			s.ExportWebpage(body)
		}
		proxies = append(proxies, found...)
	}

	return proxies, nil
}

func (s *ProxyServerList24) parsePost(doc *goquery.Document) []string {
	container := doc.Find(`pre.alt2[dir="ltr"]`).First()
	if container.Length() == 0 {
		return nil
	}

	spans := container.Find("span")
	if spans.Length() < 3 {
		return nil
	}

	var proxies []string
	for _, line := range strings.Split(spans.Eq(2).Text(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			proxies = append(proxies, "http://"+line)
		}
	}
	return proxies
}
