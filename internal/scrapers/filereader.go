package scrapers

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// FileReader reads a local newline-delimited proxy list instead of
// scraping a website, letting an operator seed the store from a file they
// already trust.
type FileReader struct {
	name string
	path string
}

// NewFileReader builds a scraper that reads proxies from path.
func NewFileReader(path string) *FileReader {
	return &FileReader{name: "file-reader", path: path}
}

func (s *FileReader) Name() string { return s.name }

func (s *FileReader) Scrape(ctx context.Context) ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("filereader: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("filereader: %w", err)
	}

	return lines, nil
}
