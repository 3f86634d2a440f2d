package scrapers

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var proxyNovaURLs = []string{
	"https://www.proxynova.com/proxy-server-list/elite-proxies/",
	"https://www.proxynova.com/proxy-server-list/anonymous-proxies/",
}

var proxyNovaIPPattern = regexp.MustCompile(`document\.write\('([\d.]+)'\)`)

// ProxyNova scrapes proxynova.com's two list pages: the same tabular
// layout as FreeProxyList, except the IP cell hides its value behind an
// inline `document.write('1.2.3.4')` script instead of plain text.
type ProxyNova struct {
	*Framework
}

// NewProxyNova builds the proxynova.com scraper over fw.
func NewProxyNova(fw *Framework) *ProxyNova {
	return &ProxyNova{Framework: fw}
}

func (s *ProxyNova) Name() string { return s.Framework.Name }

func (s *ProxyNova) Scrape(ctx context.Context) ([]string, error) {
	var proxies []string

	for _, target := range proxyNovaURLs {
		body, err := s.Get(ctx, target)
		if err != nil {
			return proxies, fmt.Errorf("proxynova: %s: %w", target, err)
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return proxies, fmt.Errorf("proxynova: parsing html: %w", err)
		}

		found := s.parse(doc)
		if len(found) == 0 {
			s.ExportWebpage(body)
		}
		proxies = append(proxies, found...)
	}

	return proxies, nil
}

// parse walks the table's eight columns: 0 ip (via inline script), 1 port,
// ..., 5 country (with a nested city span), 6 status.
func (s *ProxyNova) parse(doc *goquery.Document) []string {
	var proxies []string

	doc.Find("table#tbl_proxy_list tbody tr").Each(func(_ int, row *goquery.Selection) {
		cols := row.Find("td")
		if cols.Length() != 8 {
			return
		}

		script := cols.Eq(0).Find("script").Text()
		m := proxyNovaIPPattern.FindStringSubmatch(script)
		if m == nil {
			return
		}
		ip := strings.TrimSpace(m[1])
		port := strings.TrimSpace(cols.Eq(1).Text())

		countryCell := cols.Eq(5).Find("a").First()
		countryCell.Find("span").Remove()
		country := strings.ToLower(strings.TrimSpace(countryCell.Text()))
		if !s.ValidateCountry(country) {
			return
		}

		status := strings.ToLower(strings.TrimSpace(cols.Eq(6).Find("span").Text()))
		if status == "transparent" {
			return
		}

		proxies = append(proxies, fmt.Sprintf("http://%s:%s", ip, port))
	})

	return proxies
}
