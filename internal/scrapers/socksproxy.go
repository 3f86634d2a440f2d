package scrapers

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const socksProxyURL = "https://socks-proxy.net"

// SocksProxy scrapes the SOCKS4/SOCKS5 sibling of FreeProxyList: same table
// id and eight-column layout, but column 4 carries the protocol rather than
// a second anonymity reading.
type SocksProxy struct {
	*Framework
}

// NewSocksProxy builds the socks-proxy.net scraper over fw.
func NewSocksProxy(fw *Framework) *SocksProxy {
	return &SocksProxy{Framework: fw}
}

func (s *SocksProxy) Name() string { return s.Framework.Name }

func (s *SocksProxy) Scrape(ctx context.Context) ([]string, error) {
	body, err := s.Get(ctx, socksProxyURL)
	if err != nil {
		return nil, fmt.Errorf("socksproxy: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("socksproxy: parsing html: %w", err)
	}

	proxies := s.parse(doc)
	if len(proxies) == 0 {
		s.ExportWebpage(body)
	}
	return proxies, nil
}

// parse walks the table's eight columns: 0 ip, 1 port, 2 code, 3 country,
// 4 version/protocol, 5 anonymity, 6 https, 7 last-checked.
func (s *SocksProxy) parse(doc *goquery.Document) []string {
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

		anonymity := strings.ToLower(strings.TrimSpace(cols.Eq(5).Text()))
		if anonymity == "transparent" {
			return
		}

		protocol := strings.ToLower(strings.TrimSpace(cols.Eq(4).Text()))
		ip := strings.TrimSpace(cols.Eq(0).Text())
		port := strings.TrimSpace(cols.Eq(1).Text())
		proxies = append(proxies, fmt.Sprintf("%s://%s:%s", protocol, ip, port))
	})

	return proxies
}
