package scrapers

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const vipsocks24URL = "http://vipsocks24.net/"

// Vipsocks24 is vipsocks24.net, the second SOCKS index-and-post source.
// Most posts publish a textarea like SocksProxyList24; older posts instead
// link a downloadable ZIP archive via a "Download" image button.
type Vipsocks24 struct {
	*Framework
}

// NewVipsocks24 builds the vipsocks24.net scraper over fw.
func NewVipsocks24(fw *Framework) *Vipsocks24 {
	return &Vipsocks24{Framework: fw}
}

func (s *Vipsocks24) Name() string { return s.Framework.Name }

func (s *Vipsocks24) Scrape(ctx context.Context) ([]string, error) {
	indexBody, err := s.Get(ctx, vipsocks24URL)
	if err != nil {
		return nil, fmt.Errorf("vipsocks24: %w", err)
	}

	indexDoc, err := goquery.NewDocumentFromReader(bytes.NewReader(indexBody))
	if err != nil {
		return nil, fmt.Errorf("vipsocks24: parsing index html: %w", err)
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
			return proxies, fmt.Errorf("vipsocks24: %s: %w", target, err)
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return proxies, fmt.Errorf("vipsocks24: parsing html: %w", err)
		}

		found, err := s.parsePost(ctx, doc)
		if err != nil {
			return proxies, fmt.Errorf("vipsocks24: %s: %w", target, err)
		}
		if len(found) == 0 {
			s.ExportWebpage(body)
		}
		proxies = append(proxies, found...)
	}

	return proxies, nil
}

func (s *Vipsocks24) parsePost(ctx context.Context, doc *goquery.Document) ([]string, error) {
	if lines := textareaLines(doc); len(lines) > 0 {
		return prefixSocks5(lines), nil
	}

	// Older posts replaced the textarea with a "Download" image button
	// linking a ZIP archive.
	button := doc.Find(`img[alt="Download"]`).First()
	if button.Length() == 0 {
		return nil, nil
	}
	anchor := button.Parent()
	if !anchor.Is("a") {
		return nil, nil
	}
	href, ok := anchor.Attr("href")
	if !ok || href == "" {
		return nil, nil
	}

	archive, err := s.Download(ctx, href)
	if err != nil {
		return nil, err
	}
	lines, err := extractZipLines(archive)
	if err != nil {
		return nil, err
	}
	return prefixSocks5(lines), nil
}

func prefixSocks5(lines []string) []string {
	proxies := make([]string, len(lines))
	for i, line := range lines {
		proxies[i] = "socks5://" + line
	}
	return proxies
}

// extractZipLines reads the first .txt member of a ZIP archive (held
// entirely in memory, no scratch file) into trimmed, non-blank lines.
func extractZipLines(archive []byte) ([]string, error) {
	r, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, err
	}

	for _, f := range r.File {
		if !strings.HasSuffix(f.Name, ".txt") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		var lines []string
		scanner := bufio.NewScanner(rc)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				lines = append(lines, line)
			}
		}
		return lines, scanner.Err()
	}

	return nil, nil
}
