package scrapers

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/neskk/PoGo-Proxies/internal/deobfuscator"
)

var sockslistURLs = []string{
	"https://sockslist.net/list/proxy-socks-5-list#proxylist",
	"https://sockslist.net/list/proxy-socks-5-list/2#proxylist",
	"https://sockslist.net/list/proxy-socks-5-list/3#proxylist",
}

var sockslistPortPattern = regexp.MustCompile(`document\.write\(([\w\d^]+)\)`)

// Sockslist scrapes sockslist.net's three SOCKS5 list pages. The port
// column is obfuscated with an inline XOR cipher (no packer step, unlike
// SpysOne) whose decoding dictionary lives in a page-level <script>.
type Sockslist struct {
	*Framework
}

// NewSockslist builds the sockslist.net scraper over fw.
func NewSockslist(fw *Framework) *Sockslist {
	return &Sockslist{Framework: fw}
}

func (s *Sockslist) Name() string { return s.Framework.Name }

func (s *Sockslist) Scrape(ctx context.Context) ([]string, error) {
	var proxies []string

	for _, target := range sockslistURLs {
		body, err := s.Get(ctx, target)
		if err != nil {
			return proxies, fmt.Errorf("sockslist: %s: %w", target, err)
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return proxies, fmt.Errorf("sockslist: parsing html: %w", err)
		}

		found := s.parse(doc, body)
		proxies = append(proxies, found...)
	}

	return proxies, nil
}

func (s *Sockslist) parse(doc *goquery.Document, rawBody []byte) []string {
	dict := scanXorDict(doc, false)
	if len(dict) == 0 {
		s.ExportWebpage(rawBody)
		return nil
	}

	table := doc.Find("table.proxytbl").First()
	if table.Length() == 0 {
		s.ExportWebpage(rawBody)
		return nil
	}

	var proxies []string
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		ipCell := row.Find("td.t_ip")
		if ipCell.Length() == 0 {
			return
		}
		ip := strings.TrimSpace(ipCell.Text())

		portText := row.Find("td.t_port").Text()
		m := sockslistPortPattern.FindStringSubmatch(portText)
		if m == nil {
			return
		}
		port := deobfuscator.Evaluate(dict, m[1])
		if port == "" {
			return
		}

		country := strings.TrimSpace(row.Find("td.t_country").Text())
		if !s.ValidateCountry(country) {
			return
		}

		proxies = append(proxies, fmt.Sprintf("socks5://%s:%s", ip, port))
	})

	if len(proxies) == 0 {
		s.ExportWebpage(rawBody)
	}
	return proxies
}
