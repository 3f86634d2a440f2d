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

var (
	spysPortPattern   = regexp.MustCompile(`\(([\w^]+)\)`)
	spysCountryPrefix = regexp.MustCompile(`^([\w\s]+) \(.*`)
)

// SpysOne scrapes one of spys.one's three list families (HTTP, HTTPS or
// SOCKS): each row hides its port behind an inline <script> of XOR
// expressions, decoded against the page's variable dictionary script
// (unpacked first when it is p.a.c.k.e.r.-packed), and only "HIA" (high
// anonymity) rows are kept.
type SpysOne struct {
	*Framework
	urls     []string
	protocol string
}

// NewSpysHTTP builds the spys.one anonymous HTTP proxy list scraper.
func NewSpysHTTP(fw *Framework) *SpysOne {
	const base = "http://spys.one/en/anonymous-proxy-list/"
	return &SpysOne{Framework: fw, urls: []string{base, base + "1", base + "2"}, protocol: "http"}
}

// NewSpysHTTPS builds the spys.one HTTPS/SSL proxy list scraper. The listed
// proxies still speak plain HTTP(S)-proxy protocol; "https" here describes
// the sites they can reach, not the proxy's own scheme.
func NewSpysHTTPS(fw *Framework) *SpysOne {
	const base = "http://spys.one/en/https-ssl-proxy/"
	return &SpysOne{Framework: fw, urls: []string{base, base + "1", base + "2"}, protocol: "http"}
}

// NewSpysSOCKS builds the spys.one SOCKS proxy list scraper.
func NewSpysSOCKS(fw *Framework) *SpysOne {
	const base = "http://spys.one/en/socks-proxy-list/"
	return &SpysOne{Framework: fw, urls: []string{base, base + "1", base + "2"}, protocol: "socks5"}
}

func (s *SpysOne) Name() string { return s.Framework.Name }

func (s *SpysOne) Scrape(ctx context.Context) ([]string, error) {
	var proxies []string

	for _, target := range s.urls {
		body, err := s.Get(ctx, target)
		if err != nil {
			return proxies, fmt.Errorf("spysone: %s: %w", target, err)
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return proxies, fmt.Errorf("spysone: parsing html: %w", err)
		}

		proxies = append(proxies, s.parse(doc, body)...)
		s.PaginationDelay()
	}

	return proxies, nil
}

func (s *SpysOne) parse(doc *goquery.Document, rawBody []byte) []string {
	dict := scanXorDict(doc, true)
	if len(dict) == 0 {
		s.ExportWebpage(rawBody)
		return nil
	}

	var proxies []string
	doc.Find(`tr.spy1x, tr.spy1xx`).Each(func(_ int, row *goquery.Selection) {
		cols := row.Find("td")
		if cols.Length() != 10 {
			return
		}

		fonts := cols.Eq(0).Find("font")
		if fonts.Length() != 2 {
			return
		}
		info := fonts.Eq(1)
		script := info.Find("script")
		if script.Length() == 0 {
			return
		}
		scriptText := script.Text()
		script.Remove()
		ip := strings.TrimSpace(info.Text())

		matches := spysPortPattern.FindAllStringSubmatch(scriptText, -1)
		if len(matches) == 0 {
			return
		}
		var port strings.Builder
		for _, m := range matches {
			port.WriteString(deobfuscator.Evaluate(dict, m[1]))
		}

		anonymous := strings.TrimSpace(cols.Eq(2).Text())
		if anonymous != "HIA" {
			return
		}

		country := strings.TrimSpace(cols.Eq(3).Text())
		if m := spysCountryPrefix.FindStringSubmatch(country); m != nil {
			country = m[1]
		}
		if !s.ValidateCountry(strings.ToLower(country)) {
			return
		}

		proxies = append(proxies, fmt.Sprintf("%s://%s:%s", s.protocol, ip, port.String()))
	})

	if len(proxies) == 0 {
		s.ExportWebpage(rawBody)
	}
	return proxies
}
