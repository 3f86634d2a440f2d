package scrapers

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const freeProxyListURL = "https://free-proxy-list.net"

// FreeProxyList scrapes the single-table HTTP/HTTPS list at
// free-proxy-list.net: fixed-index columns, no pagination.
type FreeProxyList struct {
	*Framework
}

// NewFreeProxyList builds the free-proxy-list.net scraper over fw.
func NewFreeProxyList(fw *Framework) *FreeProxyList {
	return &FreeProxyList{Framework: fw}
}

func (s *FreeProxyList) Name() string { return s.Framework.Name }

func (s *FreeProxyList) Scrape(ctx context.Context) ([]string, error) {
	body, err := s.Get(ctx, freeProxyListURL)
	if err != nil {
		return nil, fmt.Errorf("freeproxylist: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("freeproxylist: parsing html: %w", err)
	}

	proxies := s.parse(doc)
	if len(proxies) == 0 {
		s.ExportWebpage(body)
	}
	return proxies, nil
}

// parse walks the table's fixed eight columns: 0 ip, 1 port, 2 code,
// 3 country, 4 anonymity, 5 google, 6 https, 7 last-checked.
func (s *FreeProxyList) parse(doc *goquery.Document) []string {
	var proxies []string

	doc.Find("table#proxylisttable tbody tr").Each(func(_ int, row *goquery.Selection) {
		cols := row.Find("td")
		if cols.Length() != 8 {
			return
		}

		country := strings.ToLower(strings.TrimSpace(cols.Eq(3).Text()))
		if !s.ValidateCountry(country) {
			return
		}

		anonymity := strings.ToLower(strings.TrimSpace(cols.Eq(4).Text()))
		if anonymity == "transparent" {
			return
		}

		ip := strings.TrimSpace(cols.Eq(0).Text())
		port := strings.TrimSpace(cols.Eq(1).Text())
		proxies = append(proxies, fmt.Sprintf("http://%s:%s", ip, port))
	})

	return proxies
}
