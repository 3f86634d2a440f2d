package scrapers

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

const socksProxyList24URL = "http://www.socksproxylist24.top/"

// SocksProxyList24 is socksproxylist24.top, the SOCKS sibling of
// ProxyServerList24: same index-and-post layout, but every post's
// proxylist sits in a plain `<textarea>` rather than a `<pre>` block.
type SocksProxyList24 struct {
	*Framework
}

// NewSocksProxyList24 builds the socksproxylist24.top scraper over fw.
func NewSocksProxyList24(fw *Framework) *SocksProxyList24 {
	return &SocksProxyList24{Framework: fw}
}

func (s *SocksProxyList24) Name() string { return s.Framework.Name }

func (s *SocksProxyList24) Scrape(ctx context.Context) ([]string, error) {
	indexBody, err := s.Get(ctx, socksProxyList24URL)
	if err != nil {
		return nil, fmt.Errorf("socksproxylist24: %w", err)
	}

	indexDoc, err := goquery.NewDocumentFromReader(bytes.NewReader(indexBody))
	if err != nil {
		return nil, fmt.Errorf("socksproxylist24: parsing index html: %w", err)
	}

	links := postLinks(indexDoc, "")
	if len(links) == 0 {
		s.ExportWebpage(indexBody)
		return nil, nil
	}

	var proxies []string
	for _, target := range links {
		body, err := s.Get(ctx, target)
		if err != nil {
			return proxies, fmt.Errorf("socksproxylist24: %s: %w", target, err)
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return proxies, fmt.Errorf("socksproxylist24: parsing html: %w", err)
		}

		lines := textareaLines(doc)
		if len(lines) == 0 {
			s.ExportWebpage(body)
		}
		proxies = append(proxies, prefixSocks5(lines)...)
	}

	return proxies, nil
}
