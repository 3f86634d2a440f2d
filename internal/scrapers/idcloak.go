package scrapers

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const idcloakURL = "http://www.idcloak.com/proxylist/proxy-list.html"

// Idcloak scrapes idcloak.com's HTTP/HTTPS list: a fixed POST payload
// selects protocol/anonymity filters, and the result is paginated via a
// row of page-number inputs rather than a "next" link.
type Idcloak struct {
	*Framework
}

// NewIdcloak builds the idcloak.com scraper over fw.
func NewIdcloak(fw *Framework) *Idcloak {
	return &Idcloak{Framework: fw}
}

func (s *Idcloak) Name() string { return s.Framework.Name }

func (s *Idcloak) Scrape(ctx context.Context) ([]string, error) {
	var proxies []string

	page := 1
	for {
		found, nextPage, err := s.scrapePage(ctx, page)
		if err != nil {
			return proxies, fmt.Errorf("idcloak: page %d: %w", page, err)
		}
		if len(found) == 0 {
			break
		}
		proxies = append(proxies, found...)

		if nextPage == 0 {
			break
		}
		s.PaginationDelay()
		page = nextPage
	}

	return proxies, nil
}

func (s *Idcloak) scrapePage(ctx context.Context, page int) (proxies []string, nextPage int, err error) {
	form := url.Values{
		"port[]":           {"all"},
		"protocol-http":    {"true"},
		"protocol-https":   {"true"},
		"anonymity-medium": {"true"},
		"anonymity-high":   {"true"},
		"page":             {strconv.Itoa(page)},
	}

	body, err := s.PostForm(ctx, idcloakURL, form)
	if err != nil {
		return nil, 0, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("parsing html: %w", err)
	}

	proxies = s.parse(doc)
	if len(proxies) == 0 {
		s.ExportWebpage(body)
	}
	return proxies, s.parseNextPage(doc), nil
}

// parse reads the "sort" table's eight columns, where ip/port sit at the
// opposite end from the tabular sites above: 7 ip, 6 port.
func (s *Idcloak) parse(doc *goquery.Document) []string {
	var proxies []string

	doc.Find("table#sort tr").Each(func(_ int, row *goquery.Selection) {
		cols := row.Find("td")
		if cols.Length() != 8 {
			return
		}
		ip := strings.TrimSpace(cols.Eq(7).Text())
		port := strings.TrimSpace(cols.Eq(6).Text())
		proxies = append(proxies, fmt.Sprintf("http://%s:%s", ip, port))
	})

	return proxies
}

// parseNextPage locates the "this_page" marker among the pagination's input
// elements and returns the following page number, or 0 when already last.
func (s *Idcloak) parseNextPage(doc *goquery.Document) int {
	pagination := doc.Find("div.pagination").First()
	if pagination.Length() == 0 {
		return 0
	}

	inputs := pagination.Find("input")
	total := inputs.Length()
	current := -1
	inputs.EachWithBreak(func(i int, sel *goquery.Selection) bool {
		class, _ := sel.Attr("class")
		if strings.Contains(class, "this_page") {
			current = i
			return false
		}
		return true
	})

	if current < 0 || current+1 >= total {
		return 0
	}
	return current + 2
}
