package scrapers

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/neskk/PoGo-Proxies/internal/deobfuscator"
)

const premproxyURL = "https://premproxy.com"

var premproxyBracketPairs = regexp.MustCompile(`\((.*?)\)`)

// Premproxy scrapes premproxy.com's paginated HTTP list. Ports are not
// inline at all: each row's checkbox carries `ip|cssKey`, and cssKey only
// resolves to a port number via a dictionary extracted from a second,
// externally linked, packed JS file.
type Premproxy struct {
	*Framework
}

// NewPremproxy builds the premproxy.com scraper over fw.
func NewPremproxy(fw *Framework) *Premproxy {
	return &Premproxy{Framework: fw}
}

func (s *Premproxy) Name() string { return s.Framework.Name }

func (s *Premproxy) Scrape(ctx context.Context) ([]string, error) {
	pages, err := s.extractPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("premproxy: %w", err)
	}

	var proxies []string
	for i, target := range pages {
		if i > 0 {
			s.PaginationDelay()
		}
		body, err := s.Get(ctx, target)
		if err != nil {
			return proxies, fmt.Errorf("premproxy: %s: %w", target, err)
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return proxies, fmt.Errorf("premproxy: parsing html: %w", err)
		}

		found, err := s.parseWebpage(ctx, doc)
		if err != nil {
			return proxies, fmt.Errorf("premproxy: %s: %w", target, err)
		}
		proxies = append(proxies, found...)
	}

	return proxies, nil
}

// extractPages reads /list/'s pagination bar, excluding the "next" link,
// and resolves each href against either base_url or list_url depending on
// whether it already carries "list" in its path.
func (s *Premproxy) extractPages(ctx context.Context) ([]string, error) {
	listURL := premproxyURL + "/list/"

	body, err := s.Get(ctx, listURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	pagination := doc.Find("ul.pagination").First()
	if pagination.Length() == 0 {
		s.ExportWebpage(body)
		return nil, nil
	}

	var pages []string
	pagination.Find("a").Each(func(_ int, a *goquery.Selection) {
		if strings.TrimSpace(a.Text()) == "next" {
			return
		}
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		if strings.Contains(href, "list") {
			pages = append(pages, premproxyURL+href)
		} else {
			pages = append(pages, listURL+href)
		}
	})

	return pages, nil
}

// extractPorts downloads the page's second <script> src, unpacks it and
// strips the boilerplate the original's deobfuscator leaves behind, then
// pulls out `(cssKey)(port)` pairs two-at-a-time into a lookup map.
func (s *Premproxy) extractPorts(ctx context.Context, doc *goquery.Document) (map[string]string, error) {
	scripts := doc.Find("script")
	if scripts.Length() < 2 {
		return nil, nil
	}
	src, ok := scripts.Eq(1).Attr("src")
	if !ok || src == "" {
		return nil, nil
	}

	js, err := s.Get(ctx, premproxyURL+src)
	if err != nil {
		return nil, err
	}

	unpacked, err := deobfuscator.Unpack(string(js))
	if err != nil {
		return nil, err
	}
	unpacked = strings.NewReplacer(
		"$(document).ready(function(){", "",
		"});", "",
		"\\", "",
		"'", "",
		".", "",
	).Replace(unpacked)

	parts := premproxyBracketPairs.FindAllStringSubmatch(unpacked, -1)
	ports := make(map[string]string, len(parts)/2)
	for i := 0; i+1 < len(parts); i += 2 {
		ports[parts[i][1]] = parts[i+1][1]
	}
	return ports, nil
}

func (s *Premproxy) parseWebpage(ctx context.Context, doc *goquery.Document) ([]string, error) {
	ports, err := s.extractPorts(ctx, doc)
	if err != nil || len(ports) == 0 {
		return nil, err
	}

	return filterPremproxyRows(doc, ports, s.ValidateCountry), nil
}

// filterPremproxyRows walks each anon/transp row, resolving its checkbox's
// `ip|cssKey` value against ports and validating its country cell (when
// present) via validate. Only rows whose resolved ip is well-formed survive.
func filterPremproxyRows(doc *goquery.Document, ports map[string]string, validate func(string) bool) []string {
	rows := doc.Find("tr.anon, tr.transp")
	if rows.Length() == 0 {
		return nil
	}

	var entries []string
	rows.Each(func(_ int, row *goquery.Selection) {
		countryTD := row.Find(`td[data-label="Country: "]`)
		if countryTD.Length() > 0 {
			country := strings.ToLower(strings.TrimSpace(countryTD.Text()))
			if !validate(country) {
				return
			}
		}

		input := row.Find("input").First()
		typ, _ := input.Attr("type")
		if typ != "checkbox" {
			return
		}
		value, ok := input.Attr("value")
		if !ok || value == "" {
			return
		}

		parts := strings.SplitN(value, "|", 2)
		if len(parts) != 2 {
			return
		}
		port, ok := ports[parts[1]]
		if !ok {
			return
		}
		entries = append(entries, fmt.Sprintf("%s:%s", parts[0], port))
	})

	var proxies []string
	for _, entry := range entries {
		ip, _, found := strings.Cut(entry, ":")
		if !found || net.ParseIP(ip) == nil {
			continue
		}
		proxies = append(proxies, "http://"+entry)
	}
	return proxies
}
